// Package history persists execution lifecycle records so past kernel
// runs stay inspectable across server restarts.
//
// It uses SQLite in WAL mode. Recording is best effort: a write failure
// is logged and swallowed, never surfaced to the execution path.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nbmcp/nbmcp/internal/execution"
	"github.com/nbmcp/nbmcp/internal/log"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Record is one persisted execution.
type Record struct {
	ExecutionID string  `json:"execution_id"`
	KernelID    string  `json:"kernel_id"`
	Code        string  `json:"code"`
	Status      string  `json:"status"`
	Error       *string `json:"error,omitempty"`
	OutputCount int     `json:"output_count"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Config holds history store configuration.
type Config struct {
	DataDir    string
	MaxResults int
}

// DefaultConfig returns the default configuration for the history store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:    filepath.Join(home, ".nbmcp"),
		MaxResults: 20,
	}
}

// Store is the execution history ledger backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (or creates) the history database. It creates the data
// directory if needed, opens SQLite with WAL mode, and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "history.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS executions (
			execution_id TEXT PRIMARY KEY,
			kernel_id    TEXT NOT NULL,
			code         TEXT NOT NULL,
			status       TEXT NOT NULL,
			error        TEXT,
			output_count INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_executions_kernel
			ON executions(kernel_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordSubmitted inserts the initial row for a new execution.
func (s *Store) RecordSubmitted(snap execution.Snapshot) {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO executions (execution_id, kernel_id, code, status) VALUES (?, ?, ?, ?)`,
		snap.ExecutionID, snap.KernelID, snap.Code, snap.Status,
	)
	if err != nil {
		log.Warnf("history: record submission %s: %v", snap.ExecutionID, err)
	}
}

// RecordFinished stores the terminal outcome. A row missed at submission
// time is inserted whole so the outcome is never lost.
func (s *Store) RecordFinished(snap execution.Snapshot) {
	res, err := s.db.Exec(
		`UPDATE executions
		 SET status = ?, error = ?, output_count = ?, updated_at = datetime('now')
		 WHERE execution_id = ?`,
		snap.Status, nullableString(snap.Error), len(snap.Outputs), snap.ExecutionID,
	)
	if err == nil {
		if n, raErr := res.RowsAffected(); raErr == nil && n == 0 {
			_, err = s.db.Exec(
				`INSERT OR IGNORE INTO executions (execution_id, kernel_id, code, status, error, output_count)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				snap.ExecutionID, snap.KernelID, snap.Code, snap.Status,
				nullableString(snap.Error), len(snap.Outputs),
			)
		}
	}
	if err != nil {
		log.Warnf("history: record outcome %s: %v", snap.ExecutionID, err)
	}
}

// Recent returns the latest executions, newest first, optionally
// filtered by kernel id.
func (s *Store) Recent(kernelID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT execution_id, kernel_id, code, status, error, output_count, created_at, updated_at
		FROM executions
	`
	args := []any{}
	if kernelID != "" {
		query += " WHERE kernel_id = ?"
		args = append(args, kernelID)
	}
	// created_at has second granularity; rowid breaks ties in insert order.
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ExecutionID, &r.KernelID, &r.Code, &r.Status, &r.Error,
			&r.OutputCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
