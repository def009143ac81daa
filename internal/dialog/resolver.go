// Package dialog resolves the configuration of a run, either from a
// persisted file or by asking the operator.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
	"github.com/hochfrequenz/arp-orchestrator/internal/invoker"
	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
	"github.com/hochfrequenz/arp-orchestrator/internal/pipeline"
	"github.com/hochfrequenz/arp-orchestrator/internal/runconfig"
	"github.com/hochfrequenz/arp-orchestrator/internal/settings"
)

// DryRunner builds every stage invocation of a run without executing it
type DryRunner interface {
	DryRun(r pipeline.Run) ([]invoker.Command, error)
}

// Result is a resolved configuration and where it came from
type Result struct {
	Config *runconfig.Config
	Source domain.ConfigSource
	Path   string // file the configuration lives in; empty when never saved
}

// Resolver obtains the run configuration
type Resolver struct {
	prompter *Prompter
	dryRun   DryRunner
	logger   *zap.Logger
	setup    settings.SetupConfig
	dir      string
	now      func() time.Time
}

// NewResolver creates a resolver reading answers from in and writing
// prompts to out. dry validates a freshly entered configuration before it
// is saved.
func NewResolver(in io.Reader, out io.Writer, dry DryRunner, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		prompter: NewPrompter(in, out),
		dryRun:   dry,
		logger:   logger,
		setup:    settings.Default().Setup,
		dir:      ".",
		now:      time.Now,
	}
}

// SetDir sets the directory the default configuration file is looked up in
func (r *Resolver) SetDir(dir string) { r.dir = dir }

// SetDefaults sets the defaults offered by the setup dialog
func (r *Resolver) SetDefaults(setup settings.SetupConfig) { r.setup = setup }

// SetClock replaces the clock used to resolve date macros
func (r *Resolver) SetClock(now func() time.Time) { r.now = now }

// DefaultPath is where the default configuration file lives
func (r *Resolver) DefaultPath() string {
	return filepath.Join(r.dir, runconfig.DefaultFileName())
}

// Resolve returns the configuration for a run in mode m. An explicit path
// wins over the default file. Quiet mode never prompts.
func (r *Resolver) Resolve(ctx context.Context, m mode.Descriptor) (Result, error) {
	candidate, source, err := r.candidate(m)
	if err != nil {
		return Result{}, err
	}

	if candidate == "" {
		if m.Quiet {
			return Result{}, domain.ConfigNotFound(
				fmt.Errorf("quiet mode requires a configuration: pass -c or create %s", r.DefaultPath()))
		}
		r.logger.Debug("no configuration found, starting setup")
		return r.setupDialog(ctx, m)
	}

	if m.Quiet {
		cfg, err := r.load(candidate)
		if err != nil {
			return Result{}, err
		}
		return Result{Config: cfg, Source: source, Path: candidate}, nil
	}
	return r.savedDialog(ctx, m, candidate, source)
}

func (r *Resolver) candidate(m mode.Descriptor) (string, domain.ConfigSource, error) {
	if m.ConfigPath != "" {
		if !isFile(m.ConfigPath) {
			return "", "", domain.ConfigNotFound(fmt.Errorf("configuration file %s does not exist", m.ConfigPath))
		}
		return m.ConfigPath, domain.SourceGivenPath, nil
	}
	if def := r.DefaultPath(); isFile(def) {
		return def, domain.SourceDefaultPath, nil
	}
	return "", "", nil
}

// load reads and validates a persisted configuration
func (r *Resolver) load(path string) (*runconfig.Config, error) {
	cfg, err := runconfig.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(r.now()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.logger.Debug("loaded configuration", zap.String("path", path))
	return cfg, nil
}

func (r *Resolver) savedDialog(ctx context.Context, m mode.Descriptor, candidate string, source domain.ConfigSource) (Result, error) {
	machine := NewMachine(candidate)
	shown := ""

	for !machine.State.Terminal() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		if machine.State == AwaitUseSaved && shown != machine.Path {
			data, err := os.ReadFile(machine.Path)
			if err != nil {
				return Result{}, domain.ConfigNotFound(fmt.Errorf("reading %s: %w", machine.Path, err))
			}
			r.prompter.Show("Configuration "+machine.Path, string(data))
			shown = machine.Path
		}

		answer, err := r.prompter.Ask(question(machine.State))
		if err != nil {
			return Result{}, abortOn(err)
		}
		if !machine.Step(answer, isFile) {
			if machine.State == AwaitSavedPath {
				r.prompter.Problem("%s is not a file", answer)
			} else {
				r.prompter.Problem("please answer %s", choices(machine.State))
			}
		}
	}

	if machine.State == Aborted {
		return Result{}, domain.InteractiveAbort()
	}
	if machine.Outcome == OutcomeFreshSetup {
		return r.setupDialog(ctx, m)
	}

	cfg, err := r.load(machine.Path)
	if err != nil {
		return Result{}, err
	}
	if machine.Path != candidate {
		source = domain.SourceGivenPath
	}
	return Result{Config: cfg, Source: source, Path: machine.Path}, nil
}

func question(s State) string {
	switch s {
	case AwaitUseSaved:
		return "Use this configuration? [y/n/q]"
	case AwaitChooseOrRestart:
		return "Choose another file (c), start a fresh setup (s) or quit (q)? [c/s/q]"
	default:
		return "Path to a configuration file (empty to go back, q to quit):"
	}
}

func choices(s State) string {
	if s == AwaitChooseOrRestart {
		return "c, s or q"
	}
	return "y, n or q"
}

// abortOn turns the end of the input into an operator abort
func abortOn(err error) error {
	if errors.Is(err, io.EOF) {
		return domain.InteractiveAbort()
	}
	return fmt.Errorf("reading answer: %w", err)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
