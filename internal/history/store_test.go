package history

import (
	"testing"
	"time"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RunLifecycle(t *testing.T) {
	store := newStore(t)
	started := time.Date(2024, 5, 20, 6, 0, 0, 0, time.UTC)

	run := domain.Run{
		ID:           "run-1",
		StartedAt:    started,
		Flags:        "--quiet --backfill",
		ConfigSource: domain.SourceGivenPath,
		ConfigPath:   "/etc/arp/app_reporting_pack.yaml",
	}
	if err := store.StartRun(run); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.RunRunning {
		t.Errorf("Status = %q, want running", got.Status)
	}
	if got.FinishedAt != nil {
		t.Error("running run should have no finish time")
	}
	if got.Flags != run.Flags || got.ConfigSource != run.ConfigSource || got.ConfigPath != run.ConfigPath {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}

	if err := store.FinishRun("run-1", domain.RunFailed, 3, started.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.RunFailed || got.ExitCode != 3 {
		t.Errorf("finished run = %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(started.Add(time.Hour)) {
		t.Errorf("FinishedAt = %v", got.FinishedAt)
	}
}

func TestStore_FinishUnknownRun(t *testing.T) {
	store := newStore(t)
	if err := store.FinishRun("nope", domain.RunCompleted, 0, time.Now()); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestStore_ListRuns(t *testing.T) {
	store := newStore(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := store.StartRun(domain.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.ListRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].ID != "c" || runs[2].ID != "a" {
		t.Errorf("ListRuns order = %v", runIDs(runs))
	}

	runs, err = store.ListRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("ListRuns(2) returned %d runs", len(runs))
	}
}

func TestRecorder_StageResults(t *testing.T) {
	store := newStore(t)
	started := time.Date(2024, 5, 20, 6, 0, 0, 0, time.UTC)
	if err := store.StartRun(domain.Run{ID: "r", StartedAt: started}); err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(store, nil)
	rec.RecordStage(domain.StageResult{RunID: "r", Ordinal: 1, Stage: "fetch_reports", Status: domain.StageStatusSucceeded,
		StartedAt: started, FinishedAt: started.Add(2 * time.Minute)})
	rec.RecordStage(domain.StageResult{RunID: "r", Ordinal: 4, Stage: "backfill_snapshots", Status: domain.StageStatusSkipped})
	rec.RecordStage(domain.StageResult{RunID: "r", Ordinal: 2, Stage: "conversion_lag_adjustment", Status: domain.StageStatusFailed, ExitCode: 2,
		StartedAt: started, FinishedAt: started.Add(time.Second)})

	results, err := store.StageResults("r")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Stage != "fetch_reports" || results[0].Duration() != 2*time.Minute {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Stage != "conversion_lag_adjustment" || results[1].ExitCode != 2 {
		t.Errorf("second result = %+v", results[1])
	}
	if results[2].Status != domain.StageStatusSkipped || !results[2].StartedAt.IsZero() {
		t.Errorf("skipped result = %+v", results[2])
	}
}

func TestRecorder_UnknownRunIsLoggedNotFatal(t *testing.T) {
	store := newStore(t)
	rec := NewRecorder(store, nil)
	// foreign key violation; must not panic
	rec.RecordStage(domain.StageResult{RunID: "missing", Ordinal: 1, Stage: "fetch_reports", Status: domain.StageStatusSucceeded})

	results, err := store.StageResults("missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func runIDs(runs []*domain.Run) []string {
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ids
}
