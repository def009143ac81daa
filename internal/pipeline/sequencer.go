package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hochfrequenz/arp-orchestrator/internal/backfill"
	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
	"github.com/hochfrequenz/arp-orchestrator/internal/invoker"
	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
	"github.com/hochfrequenz/arp-orchestrator/internal/runconfig"
)

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	counterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Recorder receives the outcome of every stage, in order
type Recorder interface {
	RecordStage(result domain.StageResult)
}

// Run is everything one pipeline execution depends on
type Run struct {
	ID         string
	Config     *runconfig.Config
	ConfigPath string // persisted file; empty passes the configuration inline
	Mode       mode.Descriptor
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.NewString()
}

// Credentials returns the effective credentials path: an explicit -g wins,
// then the configuration's own entry, then the default location.
func Credentials(cfg *runconfig.Config, m mode.Descriptor) string {
	if m.CredentialsExplicit || cfg == nil || cfg.CredentialsPath == "" {
		return m.CredentialsPath
	}
	return cfg.CredentialsPath
}

// Sequencer executes the planned stages of a run, one at a time
type Sequencer struct {
	invoker   invoker.Invoker
	backfill  *backfill.Coordinator
	out       io.Writer
	logger    *zap.Logger
	recorders []Recorder
	now       func() time.Time
}

// NewSequencer creates a sequencer invoking collaborators through inv and
// announcing stages on out
func NewSequencer(inv invoker.Invoker, out io.Writer, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	var backfillOp invoker.Operation
	for _, s := range Topology() {
		if s.ID == StageBackfillSnapshots {
			backfillOp = s.Op
		}
	}
	return &Sequencer{
		invoker:  inv,
		backfill: backfill.NewCoordinator(inv, backfillOp, logger.Named("backfill")),
		out:      out,
		logger:   logger,
		now:      time.Now,
	}
}

// AddRecorder registers r for stage results
func (s *Sequencer) AddRecorder(r Recorder) {
	s.recorders = append(s.recorders, r)
}

// SetClock replaces the clock used for timestamps and date macros
func (s *Sequencer) SetClock(now func() time.Time) {
	s.now = now
	s.backfill.SetClock(now)
}

func (s *Sequencer) params(r Run, st Stage) invoker.Params {
	return invoker.Params{
		RunID:           r.ID,
		Stage:           st.ID,
		Config:          r.Config,
		ConfigPath:      r.ConfigPath,
		CredentialsPath: Credentials(r.Config, r.Mode),
		LogLevel:        r.Mode.LogLevel,
	}
}

// Execute runs the planned stages in order. The first stage that fails
// stops the run; its exit code is carried by the returned StageFailed error.
// Nothing already done is rolled back.
func (s *Sequencer) Execute(ctx context.Context, r Run) error {
	if r.Config == nil {
		return domain.ConfigInvalid(fmt.Errorf("no configuration resolved"))
	}
	planned, _ := Plan(r.Mode)
	included := make(map[string]bool, len(planned))
	for _, st := range planned {
		included[st.ID] = true
	}

	s.logger.Info("starting pipeline",
		zap.String("run_id", r.ID),
		zap.Int("stages", len(planned)),
		zap.String("flags", r.Mode.String()),
	)

	k := 0
	for _, st := range Topology() {
		if !included[st.ID] {
			s.logger.Debug("skipping stage", zap.String("stage", st.ID))
			s.record(domain.StageResult{RunID: r.ID, Ordinal: st.Ordinal, Stage: st.ID, Status: domain.StageStatusSkipped})
			continue
		}
		k++
		fmt.Fprintf(s.out, "%s %s\n",
			counterStyle.Render(fmt.Sprintf("[%d/%d]", k, len(planned))),
			bannerStyle.Render(st.Name))

		started := s.now()
		code, err := s.invoke(ctx, r, st)
		result := domain.StageResult{
			RunID:      r.ID,
			Ordinal:    st.Ordinal,
			Stage:      st.ID,
			Status:     domain.StageStatusSucceeded,
			ExitCode:   code,
			StartedAt:  started,
			FinishedAt: s.now(),
		}
		if err != nil || code != 0 {
			result.Status = domain.StageStatusFailed
			if code == 0 {
				code = 1
				result.ExitCode = code
			}
		}
		s.record(result)

		if result.Status == domain.StageStatusFailed {
			s.logger.Error("stage failed",
				zap.String("stage", st.ID),
				zap.Int("exit_code", code),
				zap.Error(err),
			)
			return domain.StageFailed(st.ID, code, err)
		}
		s.logger.Debug("stage succeeded", zap.String("stage", st.ID), zap.Duration("duration", result.Duration()))
	}

	s.logger.Info("pipeline completed", zap.String("run_id", r.ID))
	return nil
}

func (s *Sequencer) invoke(ctx context.Context, r Run, st Stage) (int, error) {
	p := s.params(r, st)
	if st.ID == StageBackfillSnapshots {
		return s.backfill.Backfill(ctx, p)
	}
	return s.invoker.Invoke(ctx, st.Op, p)
}

// DryRun builds the invocation of every planned stage without executing
// anything.
func (s *Sequencer) DryRun(r Run) ([]invoker.Command, error) {
	if r.Config == nil {
		return nil, fmt.Errorf("no configuration resolved")
	}
	planned, _ := Plan(r.Mode)
	cmds := make([]invoker.Command, 0, len(planned))
	for _, st := range planned {
		p := s.params(r, st)
		if st.ID == StageBackfillSnapshots {
			cmd, err := s.backfill.Prepare(p)
			if err != nil {
				return nil, fmt.Errorf("stage %s: %w", st.ID, err)
			}
			cmds = append(cmds, cmd)
			continue
		}
		cmd, err := s.invoker.Prepare(st.Op, p)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", st.ID, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func (s *Sequencer) record(result domain.StageResult) {
	for _, r := range s.recorders {
		r.RecordStage(result)
	}
}
