// Package db persists ingestion run history and pending reindex requests
// in SQLite, next to the vector store it describes.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with ingestion bookkeeping helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS ingest_runs (
    id TEXT PRIMARY KEY,
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL,
    books TEXT NOT NULL DEFAULT '',
    documents INTEGER NOT NULL DEFAULT 0,
    failed_refs INTEGER NOT NULL DEFAULT 0,
    reset_index INTEGER NOT NULL DEFAULT 0,
    embedding_model TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started ON ingest_runs(started_at);

CREATE TABLE IF NOT EXISTS reindex_requests (
    id TEXT PRIMARY KEY,
    requested_at DATETIME NOT NULL DEFAULT (datetime('now')),
    reason TEXT NOT NULL DEFAULT '',
    fulfilled_by TEXT REFERENCES ingest_runs(id)
);

CREATE INDEX IF NOT EXISTS idx_reindex_pending ON reindex_requests(fulfilled_by);
`

// IngestRun is one completed ingestion, successful or not.
type IngestRun struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Books          string
	Documents      int
	FailedRefs     int
	ResetIndex     bool
	EmbeddingModel string
}

// RecordRun inserts a finished ingestion run, assigning an ID when empty.
func (d *DB) RecordRun(run IngestRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := d.Exec(`
		INSERT INTO ingest_runs (id, started_at, finished_at, books, documents, failed_refs, reset_index, embedding_model)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Books,
		run.Documents, run.FailedRefs, boolToInt(run.ResetIndex), run.EmbeddingModel,
	)
	if err != nil {
		return "", fmt.Errorf("recording ingest run: %w", err)
	}
	return run.ID, nil
}

// LastRun returns the most recent ingestion run, or nil when none exist.
func (d *DB) LastRun() (*IngestRun, error) {
	row := d.QueryRow(`
		SELECT id, started_at, finished_at, books, documents, failed_refs, reset_index, embedding_model
		FROM ingest_runs ORDER BY started_at DESC LIMIT 1`)

	var run IngestRun
	var reset int
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Books,
		&run.Documents, &run.FailedRefs, &reset, &run.EmbeddingModel)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading last run: %w", err)
	}
	run.ResetIndex = reset != 0
	return &run, nil
}

// RequestReindex records that the index should be rebuilt on the next
// ingestion and returns the request ID.
func (d *DB) RequestReindex(reason string) (string, error) {
	id := uuid.NewString()
	_, err := d.Exec(`INSERT INTO reindex_requests (id, reason) VALUES (?, ?)`, id, reason)
	if err != nil {
		return "", fmt.Errorf("recording reindex request: %w", err)
	}
	return id, nil
}

// PendingReindexCount returns how many reindex requests await an ingestion.
func (d *DB) PendingReindexCount() (int, error) {
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM reindex_requests WHERE fulfilled_by IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting reindex requests: %w", err)
	}
	return n, nil
}

// FulfillReindexRequests marks every pending request as satisfied by the
// given ingestion run.
func (d *DB) FulfillReindexRequests(runID string) error {
	_, err := d.Exec(`UPDATE reindex_requests SET fulfilled_by = ? WHERE fulfilled_by IS NULL`, runID)
	if err != nil {
		return fmt.Errorf("fulfilling reindex requests: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
