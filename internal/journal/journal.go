package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - runs and jobs tables
const currentSchemaVersion = 1

// ErrNotOpen is returned by methods called on a closed or zero Journal.
var ErrNotOpen = errors.New("journal is not open")

// Journal is a SQLite-backed build history. Methods are safe for concurrent
// use; writes are serialized over a single connection.
type Journal struct {
	db *sql.DB
}

// RunRecord is one row of the runs table plus its job count.
type RunRecord struct {
	ID         string
	Platform   string
	Container  string
	Mode       string
	Started    time.Time
	Finished   time.Time // Zero if the run never finished.
	ExitStatus int
	Jobs       int
}

// JobRecord is one job outcome.
type JobRecord struct {
	Source   string
	Dest     string
	Status   string
	ExitCode int
	Elapsed  time.Duration
}

// Open creates or opens the journal database at path and applies the
// schema. Safe to call on an existing journal.
func Open(path string) (*Journal, error) {
	// Foreign keys are per connection; the DSN applies them to any
	// connection the pool opens, not just the first.
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal %s: %w", path, err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// between concurrent workers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply journal schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// BeginRun inserts the row for a new run.
func (j *Journal) BeginRun(ctx context.Context, id, platform, container, mode string, started time.Time) error {
	if j == nil || j.db == nil {
		return ErrNotOpen
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, platform, container, mode, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, platform, container, mode, started.UnixNano())
	if err != nil {
		return fmt.Errorf("begin run %s: %w", id, err)
	}
	return nil
}

// RecordOutcome appends one job outcome to run runID.
func (j *Journal) RecordOutcome(ctx context.Context, runID string, rec JobRecord) error {
	if j == nil || j.db == nil {
		return ErrNotOpen
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO jobs (run_id, source, dest, status, exit_code, elapsed_ns) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, rec.Source, rec.Dest, rec.Status, rec.ExitCode, rec.Elapsed.Nanoseconds())
	if err != nil {
		return fmt.Errorf("record outcome for %s: %w", rec.Source, err)
	}
	return nil
}

// FinishRun stamps run id with its finish time and exit status.
func (j *Journal) FinishRun(ctx context.Context, id string, finished time.Time, exitStatus int) error {
	if j == nil || j.db == nil {
		return ErrNotOpen
	}
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, exit_status = ? WHERE id = ?`,
		finished.UnixNano(), exitStatus, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// LastRuns returns up to n runs, most recent first.
func (j *Journal) LastRuns(ctx context.Context, n int) ([]RunRecord, error) {
	if j == nil || j.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.platform, r.container, r.mode, r.started_at,
		       r.finished_at, r.exit_status, COUNT(jb.id)
		FROM runs r
		LEFT JOIN jobs jb ON jb.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec      RunRecord
			started  int64
			finished sql.NullInt64
			status   sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Platform, &rec.Container, &rec.Mode,
			&started, &finished, &status, &rec.Jobs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Started = time.Unix(0, started)
		if finished.Valid {
			rec.Finished = time.Unix(0, finished.Int64)
		}
		rec.ExitStatus = int(status.Int64)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Jobs returns the recorded outcomes of run runID in insertion order.
func (j *Journal) Jobs(ctx context.Context, runID string) ([]JobRecord, error) {
	if j == nil || j.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT source, dest, status, exit_code, elapsed_ns FROM jobs WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var (
			rec     JobRecord
			elapsed int64
		)
		if err := rows.Scan(&rec.Source, &rec.Dest, &rec.Status, &rec.ExitCode, &elapsed); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		rec.Elapsed = time.Duration(elapsed)
		out = append(out, rec)
	}
	return out, rows.Err()
}
