//go:build integration

package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// binaryPath returns the path to the built CLI binary, building it when missing
func binaryPath(t *testing.T) string {
	t.Helper()
	paths := []string{
		"../arp-orch",
		filepath.Join(os.Getenv("GOPATH"), "bin", "arp-orch"),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			abs, _ := filepath.Abs(p)
			return abs
		}
	}

	t.Log("Binary not found, building...")
	cmd := exec.Command("go", "build", "-o", "../arp-orch", "../cmd/arp-orch")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}
	abs, _ := filepath.Abs("../arp-orch")
	return abs
}

// workspace is a temporary solution directory with fake collaborators
type workspace struct {
	Dir      string
	Settings string
	CallLog  string
}

// newWorkspace writes fake gaarf, gaarf-bq and python executables that log
// their arguments. exits maps a tool name to a non-zero exit code.
func newWorkspace(t *testing.T, exits map[string]int) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{Dir: dir, CallLog: filepath.Join(dir, "calls.log")}

	tools := map[string]string{}
	for _, name := range []string{"gaarf", "gaarf-bq", "python"} {
		path := filepath.Join(dir, "bin", name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		script := fmt.Sprintf("#!/bin/sh\necho \"%s $*\" >> %s\nexit %d\n", name, ws.CallLog, exits[name])
		if err := os.WriteFile(path, []byte(script), 0755); err != nil {
			t.Fatal(err)
		}
		tools[name] = path
	}

	settings := fmt.Sprintf(`[tools]
solution_root = %q
gaarf = %q
gaarf_bq = %q
python = %q
log_dir = %q

[history]
enabled = true
database_path = %q
`, dir, tools["gaarf"], tools["gaarf-bq"], tools["python"],
		filepath.Join(dir, "logs"), filepath.Join(dir, "history.db"))
	ws.Settings = filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(ws.Settings, []byte(settings), 0644); err != nil {
		t.Fatal(err)
	}
	return ws
}

// writeConfig stores a run configuration under the default file name
func (ws *workspace) writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(ws.Dir, "app_reporting_pack.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// calls returns the logged collaborator invocations in order
func (ws *workspace) calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(ws.CallLog)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// run executes the binary inside the workspace with stdin
func (ws *workspace) run(t *testing.T, stdin string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(binaryPath(t), args...)
	cmd.Dir = ws.Dir
	cmd.Env = append(os.Environ(), "HOME="+ws.Dir)
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), exitErr.ExitCode()
		}
		t.Fatalf("running binary: %v", err)
	}
	return string(out), 0
}
