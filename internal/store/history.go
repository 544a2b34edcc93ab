// Package store keeps a local audit log of reconciliation runs. The engine
// never reads it back; it exists for the history command.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"fichaje/internal/attendance"
	"fichaje/internal/logging"
)

var (
	// ErrRunNotFound is returned when no run matches an ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when an ID prefix matches several runs.
	ErrAmbiguousRun = errors.New("run ID prefix is ambiguous")
)

// RunSummary is one stored run.
type RunSummary struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	WindowStart string
	WindowEnd   string
	DryRun      bool
	Filled      int
	Partial     int
	Failed      int
	Skipped     int
	Absences    int
	// DetectionErrors counts dates whose absence state was unknown.
	DetectionErrors int
}

// OutcomeRecord is one stored per-date outcome.
type OutcomeRecord struct {
	Date       string
	Status     string
	SkipReason string
	Absence    string
	Plan       string
	Written    int
	Error      string
	// DetectionError is set when the date's absence state was unknown.
	DetectionError string
}

// HistoryStore persists run reports in SQLite.
type HistoryStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// OpenHistoryStore opens or creates the database at path.
func OpenHistoryStore(path string) (*HistoryStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &HistoryStore{db: db, dbPath: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Get(logging.CategoryStore).Debug("History store opened at %s", path)
	return s, nil
}

func (s *HistoryStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		dry_run INTEGER NOT NULL,
		filled INTEGER NOT NULL DEFAULT 0,
		partial INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		absences INTEGER NOT NULL DEFAULT 0,
		detection_errors INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS outcomes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		skip_reason TEXT,
		absence TEXT,
		plan TEXT,
		written INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		detection_error TEXT,
		PRIMARY KEY (run_id, date)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	if _, err := runMigrations(s.db); err != nil {
		return fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// RecordRun stores a finished run and all of its outcomes atomically.
func (s *HistoryStore) RecordRun(ctx context.Context, r *attendance.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tally := r.Tally()
	skipped := 0
	for _, n := range tally.Skipped {
		skipped += n
	}
	unknown := 0
	for _, o := range r.Outcomes {
		if o.DetectionErr != nil {
			unknown++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, window_start, window_end, dry_run, filled, partial, failed, skipped, absences, detection_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.Window.Start.String(),
		r.Window.End.String(),
		r.DryRun,
		tally.Filled, tally.Partial, tally.Failed, skipped, len(r.Absences), unknown,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes (run_id, date, status, skip_reason, absence, plan, written, error, detection_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range r.Outcomes {
		var errText string
		if o.Err != nil {
			errText = o.Err.Error()
		}
		var detectText string
		if o.DetectionErr != nil {
			detectText = o.DetectionErr.Error()
		}
		var plan string
		if len(o.Plan) > 0 {
			plan = o.Plan.String()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, o.Date.String(), o.Status.String(), o.Skip.String(),
			o.Absence.String(), plan, o.Written, errText, detectText); err != nil {
			return fmt.Errorf("insert outcome %s: %w", o.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", r.ID, err)
	}
	logging.Store("Recorded run %s (%d outcomes)", r.ID, len(r.Outcomes))
	return nil
}

const runColumns = `id, started_at, finished_at, window_start, window_end, dry_run, filled, partial, failed, skipped, absences, detection_errors`

func scanRun(row interface{ Scan(...any) error }) (RunSummary, error) {
	var (
		rs                RunSummary
		started, finished string
	)
	if err := row.Scan(&rs.ID, &started, &finished, &rs.WindowStart, &rs.WindowEnd, &rs.DryRun,
		&rs.Filled, &rs.Partial, &rs.Failed, &rs.Skipped, &rs.Absences, &rs.DetectionErrors); err != nil {
		return rs, err
	}
	rs.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	rs.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return rs, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *HistoryStore) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		rs, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// FindRun returns the run whose ID is id or starts with id. The prefix is
// compared literally; % and _ carry no pattern meaning.
func (s *HistoryStore) FindRun(ctx context.Context, id string) (RunSummary, error) {
	if id == "" {
		return RunSummary{}, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, length(?)) = ? ORDER BY id LIMIT 2`, id, id)
	if err != nil {
		return RunSummary{}, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []RunSummary
	for rows.Next() {
		rs, err := scanRun(rows)
		if err != nil {
			return RunSummary{}, fmt.Errorf("scan run: %w", err)
		}
		if rs.ID == id {
			return rs, nil
		}
		found = append(found, rs)
	}
	if err := rows.Err(); err != nil {
		return RunSummary{}, err
	}
	switch len(found) {
	case 0:
		return RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		return RunSummary{}, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// RunOutcomes returns the outcomes of a run in date order.
func (s *HistoryStore) RunOutcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, status, COALESCE(skip_reason, ''), COALESCE(absence, ''), COALESCE(plan, ''), written,
			COALESCE(error, ''), COALESCE(detection_error, '')
		FROM outcomes WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		var o OutcomeRecord
		if err := rows.Scan(&o.Date, &o.Status, &o.SkipReason, &o.Absence, &o.Plan, &o.Written, &o.Error, &o.DetectionError); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
