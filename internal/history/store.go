// Package history keeps a SQLite log of executed query templates.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/duckboard/pkg/core"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout is fixed-width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements core.HistoryStore.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates an unopened store.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database at path. Use ":memory:" for a throwaway log.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping history database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened history", slog.String("path", path))
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema applies pending migrations.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return migrate(context.Background(), s.db, s.logger)
}

// Record stores run, filling in ID and StartedAt when unset.
func (s *SQLiteStore) Record(run *core.QueryRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	var errMsg sql.NullString
	if run.Error != "" {
		errMsg = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO query_history (id, template, expanded_sql, status, row_count, duration_ms, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Template, run.ExpandedSQL, string(run.Status), run.RowCount,
		run.Duration.Milliseconds(), errMsg, run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. A non-positive limit returns all.
func (s *SQLiteStore) List(limit int) ([]*core.QueryRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT id, template, expanded_sql, status, row_count, duration_ms, error, started_at
		 FROM query_history ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.QueryRun
	for rows.Next() {
		var (
			run        core.QueryRun
			status     string
			durationMS int64
			errMsg     sql.NullString
			startedAt  string
		)
		if err := rows.Scan(&run.ID, &run.Template, &run.ExpandedSQL, &status, &run.RowCount,
			&durationMS, &errMsg, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		run.Status = core.QueryStatus(status)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.Error = errMsg.String
		if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("bad timestamp on history entry %s: %w", run.ID, err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return runs, nil
}

// Clear deletes every entry.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(`DELETE FROM query_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

var _ core.HistoryStore = (*SQLiteStore)(nil)
