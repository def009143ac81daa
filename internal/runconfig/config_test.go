package runconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
)

var now = time.Date(2024, 5, 20, 14, 30, 0, 0, time.UTC)

func validConfig() Config {
	cfg := Default()
	cfg.Account = "123-456-7890"
	cfg.Warehouse.Project = "acme-analytics"
	return cfg
}

func TestDefaultFileName(t *testing.T) {
	assert.Equal(t, "app_reporting_pack.yaml", DefaultFileName())
}

func TestDateSpec_Resolve(t *testing.T) {
	tests := []struct {
		spec DateSpec
		want string
	}{
		{":YYYYMMDD", "2024-05-20"},
		{":YYYYMMDD-1", "2024-05-19"},
		{":YYYYMMDD-90", "2024-02-20"},
		{"2023-12-31", "2023-12-31"},
	}
	for _, tt := range tests {
		t.Run(string(tt.spec), func(t *testing.T) {
			got, err := tt.spec.Resolve(now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(DateLayout))
		})
	}

	for _, bad := range []DateSpec{"", ":YYYYMMDD+3", "yesterday", "2024-13-01", ":YYYYMMDD-x"} {
		_, err := bad.Resolve(now)
		assert.Error(t, err, string(bad))
	}
}

func TestValidate_DateSpecUsesRunClock(t *testing.T) {
	ctx := context.WithValue(context.Background(), nowKey{}, now)
	assert.Equal(t, now, clockFrom(ctx))
	assert.NoError(t, validate.VarCtx(ctx, ":YYYYMMDD-3", "datespec"))
	assert.Error(t, validate.VarCtx(ctx, ":YYYYMMDD+3", "datespec"))

	cfg := validConfig()
	cfg.StartDate = "2024-05-18"
	cfg.EndDate = ":YYYYMMDD-1"
	assert.NoError(t, cfg.Validate(now))
	assert.ErrorContains(t, cfg.Validate(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)), "is after end_date")
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate(now))

	cfg.Account = "1234567890"
	cfg.Scripts.VideoOrientation = VideoOrientation{
		Mode:                 VideoBasic,
		ElementDelimiter:     "_",
		OrientationPosition:  2,
		OrientationDelimiter: "x",
	}
	require.NoError(t, cfg.Validate(now))
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{"missing account", func(c *Config) { c.Account = "" }, "account is required"},
		{"malformed account", func(c *Config) { c.Account = "12-34" }, "must have 10 digits"},
		{"missing project", func(c *Config) { c.Warehouse.Project = "" }, "warehouse.project is required"},
		{"bad dataset", func(c *Config) { c.Warehouse.Dataset = "my-dataset" }, "warehouse.dataset"},
		{"bad macro", func(c *Config) { c.StartDate = ":YYYYMMDD+1" }, "start_date"},
		{"start after end", func(c *Config) { c.StartDate = ":YYYYMMDD-1"; c.EndDate = ":YYYYMMDD-5" }, "is after end_date"},
		{"duplicate cohorts", func(c *Config) { c.Cohorts = []int{1, 1} }, "duplicates"},
		{"negative cohort", func(c *Config) { c.Cohorts = []int{-1} }, "cohorts"},
		{"unknown video mode", func(c *Config) { c.Scripts.VideoOrientation.Mode = "ai" }, "must be one of"},
		{"regex without params", func(c *Config) { c.Scripts.VideoOrientation.Mode = VideoBasic }, "required when scripts.video_orientation.mode is regex"},
		{"regex position below one", func(c *Config) {
			c.Scripts.VideoOrientation = VideoOrientation{Mode: VideoBasic, ElementDelimiter: "_", OrientationPosition: -1, OrientationDelimiter: "x"}
		}, "scripts.video_orientation.orientation_position must be at least 1"},
		{"video without cohorts", func(c *Config) {
			c.Scripts.VideoOrientation.Mode = VideoExtended
			c.Cohorts = nil
		}, "cohorts must not be empty"},
		{"non numeric api version", func(c *Config) { c.APIVersion = "v17" }, "api_version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate(now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfigInvalid))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_EmptyCohortsAllowedWithoutVideo(t *testing.T) {
	cfg := validConfig()
	cfg.Cohorts = nil
	assert.NoError(t, cfg.Validate(now))
}

func TestParseCohorts(t *testing.T) {
	got, err := ParseCohorts(" 7, 0,3 ,30")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 7, 30}, got)

	_, err = ParseCohorts("1,x")
	assert.Error(t, err)
	_, err = ParseCohorts("1,1")
	assert.Error(t, err)
	_, err = ParseCohorts("-2")
	assert.Error(t, err)
}

func TestParseVideoParsingMode(t *testing.T) {
	for in, want := range map[string]VideoParsingMode{
		"1": VideoDisabled, "placeholders": VideoDisabled,
		"2": VideoBasic, "REGEX": VideoBasic,
		"3": VideoExtended, "youtube": VideoExtended,
	} {
		got, err := ParseVideoParsingMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseVideoParsingMode("4")
	assert.Error(t, err)
}

func TestConfig_Helpers(t *testing.T) {
	cfg := validConfig()
	cfg.APIVersion = ""

	assert.Equal(t, DefaultAPIVersion, cfg.EffectiveAPIVersion())
	assert.Equal(t, "1234567890", cfg.AccountDigits())
	assert.Equal(t, "0,1,3,5,7,14,30", cfg.CohortList())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName())
	cfg := validConfig()
	cfg.Scripts.VideoOrientation = VideoOrientation{Mode: VideoBasic, ElementDelimiter: "_", OrientationPosition: 3, OrientationDelimiter: "x"}
	cfg.CredentialsPath = "/secrets/google-ads.yaml"

	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scripts:\n  video_orientation:\n    mode: regex\n")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
	assert.NoError(t, loaded.Validate(now))
}

func TestLoad_FromDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arp.yaml")
	content := `account: "9876543210"
warehouse:
  project: demo
  dataset: arp_demo
start_date: "2024-01-01"
end_date: ":YYYYMMDD-1"
cohorts: [0, 7]
scripts:
  video_orientation:
    mode: youtube
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9876543210", cfg.Account)
	assert.Equal(t, "demo", cfg.Warehouse.Project)
	assert.Equal(t, "arp_demo", cfg.Warehouse.Dataset)
	assert.Equal(t, DateSpec("2024-01-01"), cfg.StartDate)
	assert.Equal(t, []int{0, 7}, cfg.Cohorts)
	assert.Equal(t, VideoExtended, cfg.Scripts.VideoOrientation.Mode)
	assert.NoError(t, cfg.Validate(now))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, domain.ErrConfigNotFound), "got %v", err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("account: \"1234567890\"\nbogus: 1\n"), 0644))
	_, err = Load(unknown)
	assert.True(t, errors.Is(err, domain.ErrConfigInvalid), "got %v", err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = Load(empty)
	assert.True(t, errors.Is(err, domain.ErrConfigInvalid), "got %v", err)

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("account: [unterminated"), 0644))
	_, err = Load(garbage)
	assert.True(t, errors.Is(err, domain.ErrConfigInvalid), "got %v", err)
}
