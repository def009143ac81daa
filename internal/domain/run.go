package domain

import "time"

// Run represents a single invocation of the pipeline
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       RunStatus
	ExitCode     int
	Flags        string // rendered run-mode flags, e.g. "--quiet --backfill"
	ConfigSource ConfigSource
	ConfigPath   string
}

// StageResult represents the outcome of one planned stage of a run
type StageResult struct {
	RunID      string
	Ordinal    int
	Stage      string
	Status     StageStatus
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the stage ran
func (r StageResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
