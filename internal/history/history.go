// Package history persists a ledger of completed transfer operations in
// a local SQLite database. The CLI records every finished operation and
// the history command reads them back; nothing in here touches the
// network or stores credentials.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Entry is one recorded operation.
type Entry struct {
	ID        int64
	Timestamp time.Time
	Operation string // list, upload, download, mkdir, delete
	Account   string // username@host
	Path      string
	Bytes     int64
	Duration  time.Duration
	Outcome   string // "ok" or the error kind
}

// Store is the transfer history ledger. It owns a single-connection
// *sql.DB (sole-writer discipline) with schema managed by embedded
// migrations.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path and
// applies pending schema migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one completed operation into the ledger.
func (s *Store) Record(ctx context.Context, e Entry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transfers (ts, operation, account, path, bytes, duration_ms, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Unix(), e.Operation, e.Account, e.Path, e.Bytes,
		e.Duration.Milliseconds(), e.Outcome,
	)
	if err != nil {
		return fmt.Errorf("history: recording entry: %w", err)
	}

	return nil
}

// Recent returns the newest limit entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, operation, account, path, bytes, duration_ms, outcome
		 FROM transfers ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e          Entry
			ts         int64
			durationMS int64
		)

		if err := rows.Scan(&e.ID, &ts, &e.Operation, &e.Account, &e.Path,
			&e.Bytes, &durationMS, &e.Outcome); err != nil {
			return nil, fmt.Errorf("history: scanning entry: %w", err)
		}

		e.Timestamp = time.Unix(ts, 0).UTC()
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating entries: %w", err)
	}

	return entries, nil
}
