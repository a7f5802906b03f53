// Package workspace is the application state every DuckBoard operation works on.
//
// A Workspace owns the source registry, the partition-pending store, the saved
// queries and the session uploads, and drives the query engine and the history
// log on their behalf. It is not safe for concurrent use: callers run one
// interaction at a time.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/duckboard/internal/cache"
	"github.com/leapstack-labs/duckboard/internal/expr"
	"github.com/leapstack-labs/duckboard/internal/history"
	"github.com/leapstack-labs/duckboard/internal/ingest"
	"github.com/leapstack-labs/duckboard/internal/pending"
	"github.com/leapstack-labs/duckboard/internal/registry"
	"github.com/leapstack-labs/duckboard/pkg/adapter"
	"github.com/leapstack-labs/duckboard/pkg/core"
)

// Config holds workspace configuration.
type Config struct {
	// CachePath is the table cache file. Empty disables persistence of sources.
	CachePath string
	// QueryCachePath is the saved-queries file. Empty disables persistence of queries.
	QueryCachePath string
	// HistoryPath is the SQLite query log. Empty disables history.
	HistoryPath string
	// ScanPattern is the glob used to read partitioned directories.
	ScanPattern string
	// Encodings lists the text encodings tried for CSV uploads, in order.
	Encodings []string
	// PreviewLimit caps the rows Run returns. Zero returns every row.
	PreviewLimit int
	// AdapterConfig selects and configures the query engine.
	AdapterConfig adapter.Config
	// Adapter, when set, is used instead of opening one from AdapterConfig.
	// It must already be connected.
	Adapter core.Adapter
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Workspace holds the session state.
type Workspace struct {
	Registry *registry.Registry
	Pending  *pending.Store
	Saved    *core.SavedQueries

	// uploads are the records accepted from uploads this session.
	uploads []core.SourceRecord
	// views maps aliases to the expression their engine view was created over.
	views map[string]string

	cfg    Config
	logger *slog.Logger
	reader *ingest.Reader

	db          core.Adapter
	dbConnected bool
	dbMu        sync.Mutex

	history core.HistoryStore
}

// New creates an empty workspace. The engine is connected on first use.
func New(cfg Config) (*Workspace, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.AdapterConfig.Type == "" {
		cfg.AdapterConfig.Type = "duckdb"
	}

	w := &Workspace{
		Registry: registry.New(),
		Pending:  pending.NewStore(cfg.ScanPattern, logger),
		Saved:    core.NewSavedQueries(),
		views:    make(map[string]string),
		cfg:      cfg,
		logger:   logger,
		reader:   ingest.NewReader(cfg.Encodings, logger),
	}
	if cfg.Adapter != nil {
		w.db = cfg.Adapter
		w.dbConnected = true
	}

	if cfg.HistoryPath != "" {
		store := history.NewSQLiteStore(logger)
		if err := store.Open(cfg.HistoryPath); err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		if err := store.InitSchema(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize history schema: %w", err)
		}
		w.history = store
	}

	logger.Debug("workspace created",
		slog.String("cache", cfg.CachePath),
		slog.String("queries", cfg.QueryCachePath),
		slog.String("engine", cfg.AdapterConfig.Type))
	return w, nil
}

// Open creates a workspace and loads both caches into it.
func Open(cfg Config) (*Workspace, error) {
	w, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := w.Load(); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// Load reads the table and saved-query caches. Cached sources whose alias
// collides with one already held are skipped with a warning.
func (w *Workspace) Load() error {
	if w.cfg.CachePath != "" {
		t, err := cache.LoadTables(w.cfg.CachePath)
		if err != nil {
			return fmt.Errorf("failed to load table cache: %w", err)
		}
		for _, c := range w.Registry.Merge(w.withExpressions(t.Tables)...) {
			w.logger.Warn("skipped cached table", slog.String("conflict", c.String()))
		}
		for _, c := range w.Registry.MergeFiles(w.withExpressions(t.Files)...) {
			w.logger.Warn("skipped cached file", slog.String("conflict", c.String()))
		}
	}

	if w.cfg.QueryCachePath != "" {
		q, err := cache.LoadQueries(w.cfg.QueryCachePath)
		if err != nil {
			return fmt.Errorf("failed to load saved queries: %w", err)
		}
		w.Saved = q
	}

	w.logger.Debug("workspace loaded",
		slog.Int("sources", w.Registry.Len()),
		slog.Int("saved_queries", w.Saved.Len()))
	return nil
}

// withExpressions marks cached records as on-disk and fills in missing
// source expressions.
func (w *Workspace) withExpressions(records []core.SourceRecord) []core.SourceRecord {
	out := make([]core.SourceRecord, 0, len(records))
	for _, rec := range records {
		if rec.Location == "" {
			rec.Location = core.LocationOnDisk
		}
		if rec.SourceExpression == "" {
			e, err := expr.ForRecord(rec, w.cfg.ScanPattern)
			if err != nil {
				w.logger.Warn("cached source has no expression", slog.String("name", rec.Name), slog.Any("error", err))
			}
			rec.SourceExpression = e
		}
		out = append(out, rec)
	}
	return out
}

// Persist writes the committed sources and the saved queries to their caches.
func (w *Workspace) Persist() error {
	var errs []error
	if err := w.persistTables(); err != nil {
		errs = append(errs, err)
	}
	if err := w.persistQueries(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *Workspace) persistTables() error {
	if w.cfg.CachePath == "" {
		return nil
	}
	err := cache.SaveTables(w.cfg.CachePath, cache.Tables{
		Files:  w.Registry.Files(),
		Tables: w.Registry.Tables(),
	})
	if err != nil {
		return fmt.Errorf("failed to save table cache: %w", err)
	}
	return nil
}

func (w *Workspace) persistQueries() error {
	if w.cfg.QueryCachePath == "" {
		return nil
	}
	if err := cache.SaveQueries(w.cfg.QueryCachePath, w.Saved); err != nil {
		return fmt.Errorf("failed to save queries: %w", err)
	}
	return nil
}

// Uploads returns the records accepted from uploads this session.
func (w *Workspace) Uploads() []core.SourceRecord {
	out := make([]core.SourceRecord, len(w.uploads))
	copy(out, w.uploads)
	return out
}

// Engine returns the connected query engine, connecting it if needed.
func (w *Workspace) Engine(ctx context.Context) (core.Adapter, error) {
	w.dbMu.Lock()
	defer w.dbMu.Unlock()

	if w.dbConnected {
		return w.db, nil
	}

	w.logger.Debug("connecting to engine", slog.String("adapter_type", w.cfg.AdapterConfig.Type))
	db, err := adapter.Open(ctx, w.cfg.AdapterConfig, w.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	w.db = db
	w.dbConnected = true
	return db, nil
}

// Close releases the engine and the history log.
func (w *Workspace) Close() error {
	w.logger.Debug("closing workspace")

	var errs []error
	if w.db != nil {
		if err := w.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.history != nil {
		if err := w.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing workspace: %v", errs)
	}
	return nil
}
