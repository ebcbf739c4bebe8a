// Package history keeps a local journal of executed bridge commands so an
// operator can inspect what ran on this machine after the fact.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Entry is one journal row.
type Entry struct {
	CommandID   string
	Command     string
	ExitCode    int
	DurationMS  int64
	OutputBytes int
	Truncated   bool
	RanAt       time.Time
}

// Store is a SQLite-backed journal.
type Store struct{ db *sql.DB }

// DefaultPath resolves the journal location under the user's home.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pl", "history.db")
}

// Open creates or opens the journal at path, applying migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// Record appends one executed command. Implements the worker's Journal
// interface.
func (s *Store) Record(commandID, command string, exitCode int, duration time.Duration, outputBytes int, truncated bool) error {
	_, err := s.db.Exec(
		`INSERT INTO command_history (command_id, command, exit_code, duration_ms, output_bytes, truncated, ran_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		commandID, command, exitCode, duration.Milliseconds(), outputBytes, truncated,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT command_id, command, exit_code, duration_ms, output_bytes, truncated, ran_at
		 FROM command_history ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ranAt string
		if err := rows.Scan(&e.CommandID, &e.Command, &e.ExitCode, &e.DurationMS, &e.OutputBytes, &e.Truncated, &ranAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.RanAt, _ = time.Parse(time.RFC3339Nano, ranAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping verifies the journal is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }
