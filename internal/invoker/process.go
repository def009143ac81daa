package invoker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/arp-orchestrator/internal/settings"
)

// CredentialsEnv is exported to every collaborator so tools that read the
// credentials location from the environment agree with --ads-config
const CredentialsEnv = "GOOGLE_ADS_CONFIGURATION_FILE_PATH"

// Exit codes reported when a collaborator cannot be launched
const (
	ExitNotExecutable = 126
	ExitNotFound      = 127
)

// ProcessInvoker runs collaborators as child processes, one at a time
type ProcessInvoker struct {
	builder Builder
	envFile string
	stdout  io.Writer
	stderr  io.Writer
	logger  *zap.Logger
}

// NewProcessInvoker creates an invoker for the configured tools. Collaborator
// output is copied line by line to stdout and stderr.
func NewProcessInvoker(tools settings.ToolsConfig, stdout, stderr io.Writer, logger *zap.Logger) *ProcessInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessInvoker{
		builder: Builder{Tools: tools},
		envFile: tools.EnvFile,
		stdout:  stdout,
		stderr:  stderr,
		logger:  logger,
	}
}

// Prepare builds the command for op without running it
func (pi *ProcessInvoker) Prepare(op Operation, p Params) (Command, error) {
	return pi.builder.Build(op, p)
}

// Invoke runs op to completion and returns its exit status
func (pi *ProcessInvoker) Invoke(ctx context.Context, op Operation, p Params) (int, error) {
	c, err := pi.builder.Build(op, p)
	if err != nil {
		return 1, err
	}

	env, err := pi.environ(p.CredentialsPath)
	if err != nil {
		return 1, err
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = env

	var logFile *os.File
	if c.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogPath), 0755); err != nil {
			return 1, fmt.Errorf("creating log directory: %w", err)
		}
		logFile, err = os.Create(c.LogPath)
		if err != nil {
			return 1, fmt.Errorf("creating log file: %w", err)
		}
		defer logFile.Close()
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 1, err
	}

	pi.logger.Debug("starting collaborator",
		zap.String("stage", p.Stage),
		zap.String("command", c.String()),
		zap.String("style", p.Style().String()),
	)

	if err := cmd.Start(); err != nil {
		return launchExitCode(err), fmt.Errorf("starting %s: %w", c.Path, err)
	}

	// Both pipes must be drained before Wait closes them
	var logMu sync.Mutex
	var g errgroup.Group
	g.Go(func() error { return pump(stdout, pi.stdout, logFile, &logMu) })
	g.Go(func() error { return pump(stderr, pi.stderr, logFile, &logMu) })
	pumpErr := g.Wait()

	waitErr := cmd.Wait()
	if pumpErr != nil {
		pi.logger.Warn("reading collaborator output", zap.String("stage", p.Stage), zap.Error(pumpErr))
	}

	code := exitCode(waitErr)
	if code < 0 {
		return 1, fmt.Errorf("waiting for %s: %w", c.Path, waitErr)
	}
	pi.logger.Debug("collaborator finished", zap.String("stage", p.Stage), zap.Int("exit_code", code))
	return code, nil
}

// environ returns the process environment extended with the env file and
// the credentials location
func (pi *ProcessInvoker) environ(credentials string) ([]string, error) {
	env := os.Environ()
	if pi.envFile != "" {
		vars, err := godotenv.Read(pi.envFile)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", pi.envFile, err)
		}
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+vars[k])
		}
	}
	if credentials != "" {
		env = append(env, CredentialsEnv+"="+credentials)
	}
	return env, nil
}

// pump copies r to console and the log file until EOF. Lines longer than
// the read buffer are forwarded in pieces. After a write failure the rest
// of r is still drained so the collaborator never blocks on a full pipe.
func pump(r io.Reader, console io.Writer, logFile *os.File, logMu *sync.Mutex) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var writeErr error
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 && writeErr == nil {
			if errors.Is(err, io.EOF) {
				chunk = append(chunk[:len(chunk):len(chunk)], '\n')
			}
			writeErr = emit(chunk, console, logFile, logMu)
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF):
			return writeErr
		default:
			_, _ = io.Copy(io.Discard, r)
			if writeErr != nil {
				return writeErr
			}
			return err
		}
	}
}

func emit(chunk []byte, console io.Writer, logFile *os.File, logMu *sync.Mutex) error {
	if console != nil {
		if _, err := console.Write(chunk); err != nil {
			return err
		}
	}
	if logFile != nil {
		logMu.Lock()
		_, err := logFile.Write(chunk)
		logMu.Unlock()
		return err
	}
	return nil
}

// exitCode maps the result of Wait to a process status. A signal-terminated
// collaborator reports 128+signal. -1 means the status is unknown.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}

// launchExitCode follows the shell convention for commands that cannot run
func launchExitCode(err error) int {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ExitNotFound
	case errors.Is(err, fs.ErrPermission):
		return ExitNotExecutable
	default:
		return 1
	}
}
