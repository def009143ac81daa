// Package pipeline sequences the stages of an App Reporting Pack run.
package pipeline

import (
	"github.com/hochfrequenz/arp-orchestrator/internal/invoker"
	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
)

// Stage IDs, in topological order
const (
	StageFetchReports          = "fetch_reports"
	StageConversionLag         = "conversion_lag_adjustment"
	StageGenerateSnapshots     = "generate_snapshots"
	StageBackfillSnapshots     = "backfill_snapshots"
	StageGenerateViews         = "generate_views"
	StageFetchVideoOrientation = "fetch_video_orientation"
	StageGenerateOutputTables  = "generate_output_tables"
	StageGenerateLegacyViews   = "generate_legacy_views"
)

// Idempotency tells whether rerunning a stage for the same range is safe
type Idempotency int

const (
	SafeToRerun Idempotency = iota
	AppendOnly
)

func (i Idempotency) String() string {
	if i == AppendOnly {
		return "append-only"
	}
	return "safe-to-rerun"
}

// Stage is one ordered unit of pipeline work
type Stage struct {
	Ordinal     int
	ID          string
	Name        string
	Include     func(mode.Descriptor) bool
	Op          invoker.Operation
	Idempotency Idempotency
}

func normalRun(m mode.Descriptor) bool { return !m.BackfillOnly }

// Topology returns the fixed stage table. Every later stage consumes tables
// produced by the earlier ones, so the order never changes.
func Topology() []Stage {
	return []Stage{
		{
			Ordinal: 1, ID: StageFetchReports, Name: "Fetch performance reports",
			Include: normalRun,
			Op:      invoker.Operation{Kind: invoker.KindReportFetch, Target: "google_ads_queries/*/*.sql"},
		},
		{
			Ordinal: 2, ID: StageConversionLag, Name: "Conversion-lag adjustment",
			Include: normalRun,
			Op:      invoker.Operation{Kind: invoker.KindScript, Target: "scripts/conv_lag_adjustment.py"},
		},
		{
			Ordinal: 3, ID: StageGenerateSnapshots, Name: "Generate snapshots",
			Include:     normalRun,
			Op:          invoker.Operation{Kind: invoker.KindWarehouseSQL, Target: "bq_queries/snapshots/*.sql"},
			Idempotency: AppendOnly,
		},
		{
			Ordinal: 4, ID: StageBackfillSnapshots, Name: "Backfill snapshots",
			Include: func(m mode.Descriptor) bool { return m.Backfill || m.BackfillOnly },
			Op:      invoker.Operation{Kind: invoker.KindScript, Target: "scripts/backfill_snapshots.py"},
		},
		{
			Ordinal: 5, ID: StageGenerateViews, Name: "Generate views and functions",
			Include: normalRun,
			Op:      invoker.Operation{Kind: invoker.KindWarehouseSQL, Target: "bq_queries/views_and_functions/*.sql"},
		},
		{
			Ordinal: 6, ID: StageFetchVideoOrientation, Name: "Fetch video orientation",
			Include: normalRun,
			Op:      invoker.Operation{Kind: invoker.KindScript, Target: "scripts/fetch_video_orientation.py"},
		},
		{
			Ordinal: 7, ID: StageGenerateOutputTables, Name: "Generate final output tables",
			Include: normalRun,
			Op:      invoker.Operation{Kind: invoker.KindWarehouseSQL, Target: "bq_queries/*.sql"},
		},
		{
			Ordinal: 8, ID: StageGenerateLegacyViews, Name: "Generate legacy views",
			Include: func(m mode.Descriptor) bool { return m.Legacy && !m.BackfillOnly },
			Op:      invoker.Operation{Kind: invoker.KindWarehouseSQL, Target: "bq_queries/legacy_views/*.sql"},
		},
	}
}

// Plan evaluates every inclusion predicate once and returns the included
// stages in order, followed by the skipped ones in order.
func Plan(m mode.Descriptor) (planned, skipped []Stage) {
	for _, s := range Topology() {
		if s.Include(m) {
			planned = append(planned, s)
		} else {
			skipped = append(skipped, s)
		}
	}
	return planned, skipped
}

// IDs returns the stage IDs in order
func IDs(stages []Stage) []string {
	ids := make([]string, len(stages))
	for i, s := range stages {
		ids[i] = s.ID
	}
	return ids
}
