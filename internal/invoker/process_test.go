package invoker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hochfrequenz/arp-orchestrator/internal/settings"
)

const fakeTool = `#!/bin/sh
echo "args: $*"
echo "warning from tool" >&2
echo "creds=$GOOGLE_ADS_CONFIGURATION_FILE_PATH project=$ARP_PROJECT"
exit ${FAKE_EXIT:-0}
`

func writeScript(t *testing.T, path, body string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), perm))
}

func fakeTools(t *testing.T) settings.ToolsConfig {
	t.Helper()
	root := t.TempDir()
	gaarf := filepath.Join(root, "bin", "gaarf")
	writeScript(t, gaarf, fakeTool, 0755)
	writeScript(t, filepath.Join(root, "scripts", "fix.sh"), fakeTool, 0644)
	return settings.ToolsConfig{
		SolutionRoot: root,
		Gaarf:        gaarf,
		GaarfBQ:      gaarf,
		Python:       "/bin/sh",
		LogDir:       filepath.Join(root, "logs"),
	}
}

func TestInvoke_StreamsOutputAndWritesLog(t *testing.T) {
	defer goleak.VerifyNone(t)

	tools := fakeTools(t)
	var stdout, stderr bytes.Buffer
	pi := NewProcessInvoker(tools, &stdout, &stderr, nil)

	p := Params{RunID: "r1", Stage: "fetch_reports", ConfigPath: "/cfg/arp.yaml", CredentialsPath: "/creds.yaml"}
	code, err := pi.Invoke(context.Background(), Operation{Kind: KindReportFetch, Target: "q/*.sql"}, p)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	assert.Contains(t, stdout.String(), "-c /cfg/arp.yaml --ads-config /creds.yaml")
	assert.Contains(t, stdout.String(), "creds=/creds.yaml")
	assert.Equal(t, "warning from tool\n", stderr.String())

	logged, err := os.ReadFile(filepath.Join(tools.LogDir, "r1", "fetch_reports.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "args:")
	assert.Contains(t, string(logged), "warning from tool")
}

func TestInvoke_EnvFileAndExitCode(t *testing.T) {
	defer goleak.VerifyNone(t)

	tools := fakeTools(t)
	tools.EnvFile = filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(tools.EnvFile, []byte("FAKE_EXIT=3\nARP_PROJECT=acme\n"), 0644))

	var stdout bytes.Buffer
	pi := NewProcessInvoker(tools, &stdout, nil, nil)

	code, err := pi.Invoke(context.Background(), Operation{Kind: KindScript, Target: "scripts/fix.sh"},
		Params{Stage: "conversion_lag_adjustment", ConfigPath: "arp.yaml"})
	require.NoError(t, err, "a collaborator that ran is not a launch error")
	assert.Equal(t, 3, code)
	assert.Contains(t, stdout.String(), "project=acme")
}

func TestInvoke_SignalledProcess(t *testing.T) {
	defer goleak.VerifyNone(t)

	tools := fakeTools(t)
	writeScript(t, tools.Gaarf, "#!/bin/sh\nkill -TERM $$\n", 0755)

	pi := NewProcessInvoker(tools, nil, nil, nil)
	code, err := pi.Invoke(context.Background(), Operation{Kind: KindReportFetch, Target: "q"}, Params{ConfigPath: "a.yaml"})
	require.NoError(t, err)
	assert.Equal(t, 128+15, code)
}

func TestInvoke_LaunchFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	tools := fakeTools(t)
	op := Operation{Kind: KindReportFetch, Target: "q"}
	p := Params{ConfigPath: "a.yaml"}

	tools.Gaarf = "arp-orch-no-such-tool"
	code, err := NewProcessInvoker(tools, nil, nil, nil).Invoke(context.Background(), op, p)
	assert.Error(t, err)
	assert.Equal(t, ExitNotFound, code)

	tools.Gaarf = filepath.Join(t.TempDir(), "missing")
	code, err = NewProcessInvoker(tools, nil, nil, nil).Invoke(context.Background(), op, p)
	assert.Error(t, err)
	assert.Equal(t, ExitNotFound, code)

	plain := filepath.Join(t.TempDir(), "not-executable")
	writeScript(t, plain, fakeTool, 0644)
	tools.Gaarf = plain
	code, err = NewProcessInvoker(tools, nil, nil, nil).Invoke(context.Background(), op, p)
	assert.Error(t, err)
	assert.Equal(t, ExitNotExecutable, code)
}

func TestInvoke_LongLineWithoutNewline(t *testing.T) {
	defer goleak.VerifyNone(t)

	tools := fakeTools(t)
	writeScript(t, tools.Gaarf, "#!/bin/sh\nhead -c 2000000 /dev/zero | tr '\\0' x\necho\necho after\necho oops >&2\nexit 3\n", 0755)

	var stdout, stderr bytes.Buffer
	pi := NewProcessInvoker(tools, &stdout, &stderr, nil)
	code, err := pi.Invoke(context.Background(), Operation{Kind: KindReportFetch, Target: "q"},
		Params{RunID: "r1", Stage: "fetch_reports", ConfigPath: "/cfg/a.yaml"})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, 2000000+len("\nafter\n"), stdout.Len())
	assert.True(t, strings.HasSuffix(stdout.String(), "x\nafter\n"))
	assert.Equal(t, "oops\n", stderr.String())

	logged, err := os.ReadFile(filepath.Join(tools.LogDir, "r1", "fetch_reports.log"))
	require.NoError(t, err)
	assert.Greater(t, len(logged), 2000000)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("console closed") }

func TestInvoke_ConsoleWriteFailureKeepsDraining(t *testing.T) {
	defer goleak.VerifyNone(t)

	tools := fakeTools(t)
	writeScript(t, tools.Gaarf, "#!/bin/sh\nyes line | head -n 200000\nexit 5\n", 0755)

	pi := NewProcessInvoker(tools, failingWriter{}, failingWriter{}, nil)
	code, err := pi.Invoke(context.Background(), Operation{Kind: KindReportFetch, Target: "q"}, Params{ConfigPath: "/cfg/a.yaml"})
	require.NoError(t, err)
	assert.Equal(t, 5, code)
}

func TestInvoke_MissingEnvFile(t *testing.T) {
	tools := fakeTools(t)
	tools.EnvFile = filepath.Join(t.TempDir(), "absent.env")

	code, err := NewProcessInvoker(tools, nil, nil, nil).Invoke(context.Background(),
		Operation{Kind: KindReportFetch, Target: "q"}, Params{ConfigPath: "a.yaml"})
	assert.ErrorContains(t, err, "env file")
	assert.Equal(t, 1, code)
}
