package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/hochfrequenz/arp-orchestrator/internal/dialog"
	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
	"github.com/hochfrequenz/arp-orchestrator/internal/history"
	"github.com/hochfrequenz/arp-orchestrator/internal/invoker"
	"github.com/hochfrequenz/arp-orchestrator/internal/logging"
	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
	"github.com/hochfrequenz/arp-orchestrator/internal/notify"
	"github.com/hochfrequenz/arp-orchestrator/internal/observer"
	"github.com/hochfrequenz/arp-orchestrator/internal/pipeline"
	"github.com/hochfrequenz/arp-orchestrator/internal/settings"
)

func (a *app) runPipeline(ctx context.Context, d mode.Descriptor) error {
	s, err := settings.LoadWithLocalFallback(d.SettingsPath)
	if err != nil {
		return domain.ConfigInvalid(err)
	}

	logger := logging.New(d.LogLevel, a.stderr)
	defer logger.Sync()

	inv := invoker.NewProcessInvoker(s.Tools, a.stdout, a.stderr, logger.Named("invoker"))
	seq := pipeline.NewSequencer(inv, a.stdout, logger.Named("pipeline"))
	seq.SetClock(a.now)

	if !d.Quiet && !isTerminal(a.stdin) {
		logger.Debug("standard input is not a terminal, answers are read from it line by line")
	}

	resolver := dialog.NewResolver(a.stdin, a.stdout, seq, logger.Named("dialog"))
	resolver.SetDir(a.workdir)
	resolver.SetDefaults(s.Setup)
	resolver.SetClock(a.now)

	res, err := resolver.Resolve(ctx, d)
	if errors.Is(err, domain.ErrInteractiveAbort) {
		a.recordAbort(s, d, logger)
	}
	if err != nil {
		return err
	}
	switch res.Source {
	case domain.SourceFresh:
		if res.Path == "" {
			fmt.Fprintln(a.stdout, "Using the configuration entered above (not saved)")
		} else {
			fmt.Fprintf(a.stdout, "Using the new configuration saved to %s\n", res.Path)
		}
	default:
		fmt.Fprintf(a.stdout, "Using configuration %s\n", res.Path)
	}

	obs := observer.New()
	seq.AddRecorder(obs)

	run := domain.Run{
		ID:           pipeline.NewRunID(),
		StartedAt:    a.now(),
		Status:       domain.RunRunning,
		Flags:        d.String(),
		ConfigSource: res.Source,
		ConfigPath:   res.Path,
	}

	store := a.openHistory(s.History, logger)
	if store != nil {
		defer store.Close()
		if err := store.StartRun(run); err != nil {
			logger.Warn("recording run in history", zap.Error(err))
			store = nil
		} else {
			seq.AddRecorder(history.NewRecorder(store, logger.Named("history")))
		}
	}

	execErr := seq.Execute(ctx, pipeline.Run{
		ID:         run.ID,
		Config:     res.Config,
		ConfigPath: res.Path,
		Mode:       d,
	})
	obs.WriteSummary(a.stdout)

	run.ExitCode = domain.ExitCode(execErr)
	run.Status = domain.RunCompleted
	if execErr != nil {
		run.Status = domain.RunFailed
	}
	finished := a.now()
	run.FinishedAt = &finished

	if store != nil {
		if err := store.FinishRun(run.ID, run.Status, run.ExitCode, finished); err != nil {
			logger.Warn("recording run result in history", zap.Error(err))
		}
	}

	var failed *domain.StageResult
	if r, ok := obs.FailedStage(); ok {
		failed = &r
	}
	if err := notify.FromSettings(s.Notifications).Send(notify.ForRun(run, failed)); err != nil {
		logger.Warn("sending notification", zap.Error(err))
	}

	return execErr
}

// recordAbort records a run the operator abandoned during configuration
// resolution and sends the matching notification.
func (a *app) recordAbort(s *settings.Settings, d mode.Descriptor, logger *zap.Logger) {
	at := a.now()
	run := domain.Run{
		ID:         pipeline.NewRunID(),
		StartedAt:  at,
		FinishedAt: &at,
		Status:     domain.RunAborted,
		ExitCode:   domain.ExitCode(domain.ErrInteractiveAbort),
		Flags:      d.String(),
	}
	if store := a.openHistory(s.History, logger); store != nil {
		if err := store.StartRun(run); err != nil {
			logger.Warn("recording aborted run in history", zap.Error(err))
		} else if err := store.FinishRun(run.ID, run.Status, run.ExitCode, at); err != nil {
			logger.Warn("recording aborted run in history", zap.Error(err))
		}
		store.Close()
	}
	if err := notify.FromSettings(s.Notifications).Send(notify.ForRun(run, nil)); err != nil {
		logger.Warn("sending notification", zap.Error(err))
	}
}

// openHistory opens the run-history database when enabled. Failures are
// logged and the run continues without history.
func (a *app) openHistory(cfg settings.HistoryConfig, logger *zap.Logger) *history.Store {
	if !cfg.Enabled {
		return nil
	}
	store, err := history.New(cfg.DatabasePath)
	if err != nil {
		logger.Warn("opening run history", zap.String("path", cfg.DatabasePath), zap.Error(err))
		return nil
	}
	return store
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
