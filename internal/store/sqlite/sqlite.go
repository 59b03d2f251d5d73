// Package sqlite implements the State Store contract on embedded SQLite,
// for single-node and development deployments that don't need PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"eltorch/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_definitions (
	job_id      TEXT PRIMARY KEY,
	job_name    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	schedule    TEXT NOT NULL,
	is_active   INTEGER NOT NULL DEFAULT 1,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS task_definitions (
	task_id          TEXT PRIMARY KEY,
	job_id           TEXT NOT NULL REFERENCES job_definitions(job_id) ON DELETE CASCADE,
	task_order       INTEGER NOT NULL,
	extractor_config TEXT NOT NULL,
	loader_config    TEXT NOT NULL,
	UNIQUE (job_id, task_order)
);

CREATE TABLE IF NOT EXISTS job_runs (
	run_id        TEXT PRIMARY KEY,
	job_id        TEXT NOT NULL REFERENCES job_definitions(job_id) ON DELETE CASCADE,
	status        TEXT NOT NULL,
	triggered_by  TEXT NOT NULL,
	started_at    TIMESTAMP,
	finished_at   TIMESTAMP,
	error_message TEXT,
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_job_runs_status_created_at ON job_runs (status, created_at);
CREATE INDEX IF NOT EXISTS idx_job_runs_job_id ON job_runs (job_id);
CREATE INDEX IF NOT EXISTS idx_task_definitions_job_id ON task_definitions (job_id, task_order);
`

// Store is the SQLite-backed StateStore.
type Store struct {
	db *sql.DB
}

// New opens (creating if absent) the SQLite database at path, which is the
// DATABASE_URL with its "sqlite:" prefix stripped, and applies the schema.
// Foreign keys are enabled and a busy timeout is set since SQLite serializes
// writers at the file level.
func New(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimPrefix(path, "sqlite:")
	path = strings.TrimPrefix(path, "//")
	if path == "" {
		path = "eltorch.db"
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite allows only one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY from concurrent goroutines within this process.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ store.StateStore = (*Store)(nil)
