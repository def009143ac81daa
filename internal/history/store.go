// Package history keeps an append-only SQLite audit log of pipeline runs.
// It is never consulted to resume or alter a run.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
)

// Store provides SQLite-backed run persistence
type Store struct {
	db *sql.DB
}

// New opens (and if necessary creates) the database at dbPath
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases shared across calls
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a run in running state
func (s *Store) StartRun(run domain.Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, status, exit_code, flags, config_source, config_path, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		string(domain.RunRunning),
		0,
		run.Flags,
		string(run.ConfigSource),
		run.ConfigPath,
		run.StartedAt.UTC(),
	)
	return err
}

// FinishRun stores the final status of a run
func (s *Store) FinishRun(id string, status domain.RunStatus, exitCode int, finishedAt time.Time) error {
	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, exit_code = ?, finished_at = ? WHERE id = ?
	`, string(status), exitCode, finishedAt.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// SaveStage stores the outcome of one stage
func (s *Store) SaveStage(r domain.StageResult) error {
	var started, finished interface{}
	if !r.StartedAt.IsZero() {
		started = r.StartedAt.UTC()
	}
	if !r.FinishedAt.IsZero() {
		finished = r.FinishedAt.UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO stage_results (run_id, ordinal, stage, status, exit_code, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, ordinal) DO UPDATE SET
			status = excluded.status,
			exit_code = excluded.exit_code,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, r.RunID, r.Ordinal, r.Stage, string(r.Status), r.ExitCode, started, finished)
	return err
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*domain.Run, error) {
	row := s.db.QueryRow(`
		SELECT id, status, exit_code, flags, config_source, config_path, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) ListRuns(limit int) ([]*domain.Run, error) {
	query := `SELECT id, status, exit_code, flags, config_source, config_path, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StageResults returns the recorded stages of a run in order
func (s *Store) StageResults(runID string) ([]domain.StageResult, error) {
	rows, err := s.db.Query(`
		SELECT run_id, ordinal, stage, status, exit_code, started_at, finished_at
		FROM stage_results WHERE run_id = ? ORDER BY ordinal
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.StageResult
	for rows.Next() {
		var r domain.StageResult
		var status string
		var started, finished sql.NullTime
		if err := rows.Scan(&r.RunID, &r.Ordinal, &r.Stage, &status, &r.ExitCode, &started, &finished); err != nil {
			return nil, err
		}
		r.Status = domain.StageStatus(status)
		if started.Valid {
			r.StartedAt = started.Time
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*domain.Run, error) {
	var run domain.Run
	var status string
	var flags, source, path sql.NullString
	var finished sql.NullTime

	err := row.Scan(&run.ID, &status, &run.ExitCode, &flags, &source, &path, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}

	run.Status = domain.RunStatus(status)
	run.Flags = flags.String
	run.ConfigSource = domain.ConfigSource(source.String)
	run.ConfigPath = path.String
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// Recorder adapts a Store to the sequencer's stage recorder. Write failures
// are logged and never interrupt the run.
type Recorder struct {
	store  *Store
	logger *zap.Logger
}

// NewRecorder creates a Recorder writing to store
func NewRecorder(store *Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// RecordStage implements pipeline.Recorder
func (r *Recorder) RecordStage(result domain.StageResult) {
	if err := r.store.SaveStage(result); err != nil {
		r.logger.Warn("recording stage in history", zap.String("stage", result.Stage), zap.Error(err))
	}
}
