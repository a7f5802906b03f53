// Package duckdb provides the embedded DuckDB engine adapter.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/duckboard/pkg/adapter"
	"github.com/leapstack-labs/duckboard/pkg/core"

	_ "github.com/marcboeker/go-duckdb/v2" // duckdb driver
)

// workbookReader is the table function that needs the excel extension.
const workbookReader = "read_xlsx("

// Adapter implements core.Adapter for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	loaded map[string]bool
}

// New creates a new DuckDB adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
		loaded:         make(map[string]bool),
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// An empty path or ":memory:" opens an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return fmt.Errorf("invalid duckdb params: %w", err)
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	// Session tables and settings live on one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}

	a.Logger.Debug("connected to duckdb", slog.String("path", path))
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if err := a.loadExtension(ctx, ext); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := a.Exec(ctx, buildSetSQL(k, p.Settings[k])); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

func (a *Adapter) loadExtension(ctx context.Context, ext string) error {
	if a.loaded[ext] {
		return nil
	}
	if !isIdent(ext) {
		return fmt.Errorf("invalid extension name %q", ext)
	}
	for _, stmt := range []string{"INSTALL " + ext, "LOAD " + ext} {
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	a.loaded[ext] = true
	a.Logger.Debug("loaded duckdb extension", slog.String("extension", ext))
	return nil
}

// RegisterView creates or replaces a view, loading the excel extension first
// when the expression reads a workbook.
func (a *Adapter) RegisterView(ctx context.Context, alias, expression string) error {
	if strings.HasPrefix(expression, workbookReader) {
		if err := a.loadExtension(ctx, "excel"); err != nil {
			return err
		}
	}
	return a.BaseSQLAdapter.RegisterView(ctx, alias, expression)
}

func buildSetSQL(key, value string) string {
	return fmt.Sprintf("SET %s = '%s'", key, strings.ReplaceAll(value, "'", "''"))
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

var _ core.Adapter = (*Adapter)(nil)
