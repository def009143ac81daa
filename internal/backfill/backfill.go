// Package backfill re-derives historical bid and budget snapshots for the
// configured date range. It always recomputes the full range.
package backfill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/arp-orchestrator/internal/invoker"
	"github.com/hochfrequenz/arp-orchestrator/internal/runconfig"
)

// HorizonDays is how far back the change history of the source API reaches
const HorizonDays = 29

// TablePrefix names the per-day snapshot tables the backfill rewrites
const TablePrefix = "bid_budgets_"

// Window is an inclusive range of calendar days
type Window struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the window contains no day
func (w Window) Empty() bool {
	return w.Start.After(w.End)
}

// Days returns the number of days in the window
func (w Window) Days() int {
	n := 0
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

func (w Window) String() string {
	return w.Start.Format(runconfig.DateLayout) + ".." + w.End.Format(runconfig.DateLayout)
}

// Horizon returns the days for which change history is available: [today-29, today-1]
func Horizon(now time.Time) Window {
	today := runconfig.Day(now)
	return Window{Start: today.AddDate(0, 0, -HorizonDays), End: today.AddDate(0, 0, -1)}
}

// Plan intersects the configured range with the change-history horizon
func Plan(cfg *runconfig.Config, now time.Time) (Window, error) {
	start, end, err := cfg.Range(now)
	if err != nil {
		return Window{}, err
	}
	h := Horizon(now)
	if start.Before(h.Start) {
		start = h.Start
	}
	if end.After(h.End) {
		end = h.End
	}
	return Window{Start: start, End: end}, nil
}

// Tables lists the snapshot tables covering w, one per day
func Tables(w Window) []string {
	tables := make([]string, 0, w.Days())
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		tables = append(tables, TablePrefix+d.Format("20060102"))
	}
	return tables
}

// Coordinator runs the corrective backfill pass
type Coordinator struct {
	invoker invoker.Invoker
	op      invoker.Operation
	logger  *zap.Logger
	now     func() time.Time
}

// NewCoordinator creates a coordinator invoking op through inv
func NewCoordinator(inv invoker.Invoker, op invoker.Operation, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{invoker: inv, op: op, logger: logger, now: time.Now}
}

// SetClock replaces the clock used to resolve date macros
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// Prepare builds the backfill invocation without running it
func (c *Coordinator) Prepare(p invoker.Params) (invoker.Command, error) {
	_, p, err := c.params(p)
	if err != nil {
		return invoker.Command{}, err
	}
	return c.invoker.Prepare(c.op, p)
}

// Backfill recomputes the snapshot tables of the configured range that lie
// within the change-history horizon. A range entirely outside the horizon
// rebuilds the whole horizon instead; the collaborator is always invoked.
func (c *Coordinator) Backfill(ctx context.Context, p invoker.Params) (int, error) {
	w, p, err := c.params(p)
	if err != nil {
		return 1, err
	}

	tables := Tables(w)
	c.logger.Info("backfilling snapshots",
		zap.String("window", w.String()),
		zap.Int("tables", len(tables)),
	)
	c.logger.Debug("snapshot tables", zap.Strings("tables", tables))

	return c.invoker.Invoke(ctx, c.op, p)
}

// Window returns the days a backfill for cfg rebuilds
func (c *Coordinator) Window(cfg *runconfig.Config) (Window, error) {
	now := c.now()
	w, err := Plan(cfg, now)
	if err != nil {
		return Window{}, err
	}
	if w.Empty() {
		c.logger.Warn("configured range lies outside the change-history horizon, rebuilding the whole horizon",
			zap.Int("horizon_days", HorizonDays))
		return Horizon(now), nil
	}
	return w, nil
}

func (c *Coordinator) params(p invoker.Params) (Window, invoker.Params, error) {
	if p.Config == nil {
		return Window{}, p, fmt.Errorf("backfill needs a resolved configuration")
	}
	w, err := c.Window(p.Config)
	if err != nil {
		return Window{}, p, err
	}
	extra := make([]string, 0, len(p.ExtraArgs)+4)
	extra = append(extra, p.ExtraArgs...)
	extra = append(extra,
		"--start-date", w.Start.Format(runconfig.DateLayout),
		"--end-date", w.End.Format(runconfig.DateLayout),
	)
	p.ExtraArgs = extra
	return w, p, nil
}
