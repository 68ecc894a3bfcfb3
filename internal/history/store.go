// Package history keeps an audit log of submitted executions in SQLite.
//
// The log is write-mostly: the tracker upserts each record when it is
// registered and again when it resolves. Nothing is ever read back into
// the in-memory registry.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/timvw/pane-relay/internal/model"
)

// SchemaVersion is stored in the metadata table.
const SchemaVersion = 1

// Store wraps the history database. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path with WAL mode and a busy
// timeout, and creates the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("history: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("history: create metadata: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id         TEXT PRIMARY KEY,
			pane_id    TEXT NOT NULL,
			command    TEXT NOT NULL,
			status     TEXT NOT NULL,
			raw_mode   INTEGER NOT NULL DEFAULT 0,
			exit_code  INTEGER,
			result     TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("history: create executions: %w", err)
	}

	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_executions_started ON executions(started_at)`); err != nil {
		return fmt.Errorf("history: create index: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprint(SchemaVersion),
	); err != nil {
		return fmt.Errorf("history: set schema version: %w", err)
	}

	return tx.Commit()
}

// Record upserts one execution.
func (s *Store) Record(ctx context.Context, e model.Execution) error {
	var exitCode any
	if e.ExitCode != nil {
		exitCode = *e.ExitCode
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, pane_id, command, status, raw_mode, exit_code, result, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status     = excluded.status,
			exit_code  = excluded.exit_code,
			result     = excluded.result,
			updated_at = excluded.updated_at
	`, e.ID, e.PaneID, e.Command, string(e.Status), boolToInt(e.RawMode), exitCode, e.Result,
		e.StartTime.UnixNano(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("history: record %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit executions, newest first. A limit of zero or
// less returns all of them.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.Execution, error) {
	query := `SELECT id, pane_id, command, status, raw_mode, exit_code, result, started_at
		FROM executions ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []model.Execution
	for rows.Next() {
		var (
			e        model.Execution
			status   string
			raw      int
			exitCode sql.NullInt64
			started  int64
		)
		if err := rows.Scan(&e.ID, &e.PaneID, &e.Command, &status, &raw, &exitCode, &e.Result, &started); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Status = model.Status(status)
		e.RawMode = raw != 0
		e.StartTime = time.Unix(0, started)
		if exitCode.Valid {
			code := int(exitCode.Int64)
			e.ExitCode = &code
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
