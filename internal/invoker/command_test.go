package invoker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
	"github.com/hochfrequenz/arp-orchestrator/internal/runconfig"
	"github.com/hochfrequenz/arp-orchestrator/internal/settings"
)

func testTools() settings.ToolsConfig {
	return settings.ToolsConfig{
		SolutionRoot: "/opt/arp",
		Gaarf:        "gaarf",
		GaarfBQ:      "gaarf-bq",
		Python:       "python3",
		LogDir:       "/var/log/arp",
	}
}

func testConfig() *runconfig.Config {
	cfg := runconfig.Default()
	cfg.Account = "123-456-7890"
	cfg.Warehouse.Project = "acme"
	cfg.Cohorts = []int{0, 7}
	return &cfg
}

func TestBuild_FileStyle(t *testing.T) {
	b := Builder{Tools: testTools()}
	p := Params{
		RunID:           "run-1",
		Stage:           "fetch_reports",
		Config:          testConfig(),
		ConfigPath:      "/srv/arp/app_reporting_pack.yaml",
		CredentialsPath: "/home/u/google-ads.yaml",
		LogLevel:        mode.LevelDebug,
	}

	cmd, err := b.Build(Operation{Kind: KindReportFetch, Target: "google_ads_queries/*/*.sql"}, p)
	require.NoError(t, err)

	assert.Equal(t, StyleFile, p.Style())
	assert.Equal(t, "gaarf", cmd.Path)
	assert.Equal(t, "/opt/arp", cmd.Dir)
	assert.Equal(t, "/var/log/arp/run-1/fetch_reports.log", cmd.LogPath)
	want := []string{
		"/opt/arp/google_ads_queries/*/*.sql",
		"-c", "/srv/arp/app_reporting_pack.yaml",
		"--ads-config", "/home/u/google-ads.yaml",
		"--log", "debug",
	}
	if diff := cmp.Diff(want, cmd.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_InlineStyle(t *testing.T) {
	b := Builder{Tools: testTools()}
	p := Params{
		Stage:           "generate_views",
		Config:          testConfig(),
		CredentialsPath: "/creds.yaml",
		LogLevel:        mode.LevelInfo,
	}

	cmd, err := b.Build(Operation{Kind: KindWarehouseSQL, Target: "bq_queries/views_and_functions/*.sql"}, p)
	require.NoError(t, err)

	assert.Equal(t, StyleInline, p.Style())
	assert.Equal(t, "gaarf-bq", cmd.Path)
	assert.Empty(t, cmd.LogPath, "no run id, no log file")
	want := []string{
		"/opt/arp/bq_queries/views_and_functions/*.sql",
		"--project", "acme",
		"--macro.bq_dataset", "arp",
		"--macro.start_date", ":YYYYMMDD-90",
		"--macro.end_date", ":YYYYMMDD-1",
		"--template.cohort_days", "0,7",
		"--ads-config", "/creds.yaml",
		"--log", "info",
	}
	if diff := cmp.Diff(want, cmd.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RelativePathsAnchoredToWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	wd, err := os.Getwd()
	require.NoError(t, err)

	cmd, err := Builder{Tools: testTools()}.Build(
		Operation{Kind: KindScript, Target: "scripts/conv_lag_adjustment.py"},
		Params{Stage: "conversion_lag_adjustment", ConfigPath: "my.yaml", CredentialsPath: "creds/google-ads.yaml"},
	)
	require.NoError(t, err)

	assert.Equal(t, "/opt/arp", cmd.Dir)
	want := []string{
		"/opt/arp/scripts/conv_lag_adjustment.py",
		"-c", filepath.Join(wd, "my.yaml"),
		"--ads-config", filepath.Join(wd, "creds", "google-ads.yaml"),
	}
	if diff := cmp.Diff(want, cmd.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_InlineReportFetch(t *testing.T) {
	cfg := testConfig()
	cfg.Warehouse.Location = "EU"

	cmd, err := Builder{Tools: testTools()}.Build(
		Operation{Kind: KindReportFetch, Target: "google_ads_queries/*/*.sql"},
		Params{Stage: "fetch_reports", Config: cfg},
	)
	require.NoError(t, err)

	want := []string{
		"/opt/arp/google_ads_queries/*/*.sql",
		"--account", "1234567890",
		"--api-version", runconfig.DefaultAPIVersion,
		"--output", "bq",
		"--bq.project", "acme",
		"--bq.dataset", "arp",
		"--bq.location", "EU",
		"--macro.start_date", ":YYYYMMDD-90",
		"--macro.end_date", ":YYYYMMDD-1",
		"--template.cohort_days", "0,7",
	}
	if diff := cmp.Diff(want, cmd.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_InlineScriptWithVideoRegex(t *testing.T) {
	cfg := testConfig()
	cfg.Warehouse.Location = "EU"
	cfg.Scripts.VideoOrientation = runconfig.VideoOrientation{
		Mode:                 runconfig.VideoBasic,
		ElementDelimiter:     "_",
		OrientationPosition:  2,
		OrientationDelimiter: "x",
	}

	cmd, err := Builder{Tools: testTools()}.Build(
		Operation{Kind: KindScript, Target: "scripts/fetch_video_orientation.py"},
		Params{Stage: "fetch_video_orientation", Config: cfg, ExtraArgs: []string{"--dry"}},
	)
	require.NoError(t, err)

	assert.Equal(t, "python3", cmd.Path)
	assert.Equal(t, "/opt/arp/scripts/fetch_video_orientation.py", cmd.Args[0])
	assert.Contains(t, cmd.String(), "--bq.project acme --bq.dataset arp --bq.location EU")
	assert.Contains(t, cmd.String(), "--project acme --dataset-location EU --macro.bq_dataset arp")
	assert.Contains(t, cmd.String(), "--mode regex --element-delimiter _ --orientation-position 2 --orientation-delimiter x")
	assert.Equal(t, "--dry", cmd.Args[len(cmd.Args)-1])
	assert.NotContains(t, cmd.Args, "--output")
}

func TestBuild_Errors(t *testing.T) {
	b := Builder{Tools: testTools()}

	_, err := b.Build(Operation{Kind: KindScript}, Params{Config: testConfig()})
	assert.ErrorContains(t, err, "no target")

	_, err = b.Build(Operation{Kind: KindScript, Target: "x.py"}, Params{Stage: "s"})
	assert.ErrorContains(t, err, "no configuration")

	_, err = b.Build(Operation{Kind: "ftp", Target: "x"}, Params{Config: testConfig()})
	assert.ErrorContains(t, err, "unknown operation kind")

	tools := testTools()
	tools.GaarfBQ = ""
	_, err = Builder{Tools: tools}.Build(Operation{Kind: KindWarehouseSQL, Target: "q/*.sql"}, Params{Config: testConfig()})
	assert.ErrorContains(t, err, "no executable")
}
