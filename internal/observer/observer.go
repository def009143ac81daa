// Package observer collects stage timings during a run and renders the
// end-of-run summary.
package observer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Observer records stage results as the sequencer reports them
type Observer struct {
	results []domain.StageResult
	mu      sync.RWMutex
}

// Metrics holds aggregated metrics for one run
type Metrics struct {
	Succeeded     int
	Failed        int
	Skipped       int
	TotalDuration time.Duration
	Slowest       string
	SlowestTime   time.Duration
}

// New creates a new Observer
func New() *Observer {
	return &Observer{}
}

// RecordStage records the outcome of a stage
func (o *Observer) RecordStage(r domain.StageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, r)
}

// Results returns the recorded results in order
func (o *Observer) Results() []domain.StageResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]domain.StageResult(nil), o.results...)
}

// GetMetrics returns aggregated metrics
func (o *Observer) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var m Metrics
	for _, r := range o.results {
		switch r.Status {
		case domain.StageStatusSucceeded:
			m.Succeeded++
		case domain.StageStatusFailed:
			m.Failed++
		case domain.StageStatusSkipped:
			m.Skipped++
			continue
		}
		d := r.Duration()
		m.TotalDuration += d
		if d > m.SlowestTime {
			m.Slowest = r.Stage
			m.SlowestTime = d
		}
	}
	return m
}

// FailedStage returns the stage that failed, if any
func (o *Observer) FailedStage() (domain.StageResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, r := range o.results {
		if r.Status == domain.StageStatusFailed {
			return r, true
		}
	}
	return domain.StageResult{}, false
}

// WriteSummary prints one line per recorded stage and a totals line
func (o *Observer) WriteSummary(w io.Writer) {
	results := o.Results()
	if len(results) == 0 {
		return
	}

	fmt.Fprintln(w)
	for _, r := range results {
		switch r.Status {
		case domain.StageStatusSucceeded:
			fmt.Fprintf(w, "  %s %-28s %s\n", okStyle.Render("ok  "), r.Stage, r.Duration().Round(time.Second))
		case domain.StageStatusFailed:
			fmt.Fprintf(w, "  %s %-28s %s (exit %d)\n", failStyle.Render("FAIL"), r.Stage, r.Duration().Round(time.Second), r.ExitCode)
		default:
			fmt.Fprintf(w, "  %s %s\n", skipStyle.Render("skip"), r.Stage)
		}
	}

	m := o.GetMetrics()
	fmt.Fprintf(w, "%d succeeded, %d failed, %d skipped in %s\n",
		m.Succeeded, m.Failed, m.Skipped, m.TotalDuration.Round(time.Second))
}
