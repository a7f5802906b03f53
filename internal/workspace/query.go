package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/leapstack-labs/duckboard/internal/cache"
	"github.com/leapstack-labs/duckboard/internal/scripts"
	"github.com/leapstack-labs/duckboard/internal/template"
	"github.com/leapstack-labs/duckboard/pkg/adapter"
	"github.com/leapstack-labs/duckboard/pkg/core"
)

// ErrQueryExists is returned when saving over an existing query without overwrite.
var ErrQueryExists = errors.New("saved query already exists")

// ErrNoHistory is returned by history operations when no history path is configured.
var ErrNoHistory = errors.New("query history is disabled")

// QueryResult is the outcome of Run.
type QueryResult struct {
	// SQL is the expanded query, or the template when expansion failed.
	SQL      string
	Table    *core.Table
	Duration time.Duration
}

// Expand resolves every {{name}} in tmpl against source aliases, then saved queries.
func (w *Workspace) Expand(tmpl string) (string, error) {
	return template.Expand(tmpl, w.Registry.Expression, w.Saved.Get)
}

// RegisterViews creates an engine view for every on-disk source whose view is
// missing or stale. Session sources are already tables.
func (w *Workspace) RegisterViews(ctx context.Context) error {
	db, err := w.Engine(ctx)
	if err != nil {
		return err
	}
	for _, rec := range w.Registry.Records() {
		if rec.Location == core.LocationInMemory || rec.SourceExpression == "" {
			continue
		}
		if w.views[rec.Alias] == rec.SourceExpression {
			continue
		}
		if err := db.RegisterView(ctx, rec.Alias, rec.SourceExpression); err != nil {
			return fmt.Errorf("failed to register view %s: %w", rec.Alias, err)
		}
		w.views[rec.Alias] = rec.SourceExpression
	}
	return nil
}

// Run expands tmpl, registers views, executes the query and records it in the
// history. When tmpl references an unknown name the *template.UnknownAliasError
// is returned together with a result whose SQL is the unexpanded template.
func (w *Workspace) Run(ctx context.Context, tmpl string) (*QueryResult, error) {
	start := time.Now()
	run := &core.QueryRun{Template: tmpl, StartedAt: start}

	expanded, err := w.Expand(tmpl)
	if err != nil {
		run.Status = core.QueryStatusUnexpanded
		run.Error = err.Error()
		w.record(run)
		return &QueryResult{SQL: tmpl}, err
	}
	run.ExpandedSQL = expanded

	table, err := w.execute(ctx, expanded)
	run.Duration = time.Since(start)
	if err != nil {
		run.Status = core.QueryStatusFailed
		run.Error = err.Error()
		w.record(run)
		return &QueryResult{SQL: expanded, Duration: run.Duration}, err
	}

	run.Status = core.QueryStatusSuccess
	run.RowCount = int64(table.NumRows())
	w.record(run)

	w.logger.Debug("query finished",
		slog.Int("rows", table.NumRows()),
		slog.Duration("duration", run.Duration))
	return &QueryResult{SQL: expanded, Table: table, Duration: run.Duration}, nil
}

func (w *Workspace) execute(ctx context.Context, sql string) (*core.Table, error) {
	if err := w.RegisterViews(ctx); err != nil {
		return nil, err
	}
	rows, err := w.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return adapter.ScanTable(rows, w.cfg.PreviewLimit)
}

// Preview returns the first n rows of a source. When n is not positive the
// configured preview limit applies. Previews are not recorded in the history.
func (w *Workspace) Preview(ctx context.Context, alias string, n int) (*core.Table, error) {
	source, ok := w.Registry.Expression(alias)
	if !ok {
		return nil, fmt.Errorf("unknown alias %q", alias)
	}
	if n <= 0 {
		n = w.cfg.PreviewLimit
	}
	if err := w.RegisterViews(ctx); err != nil {
		return nil, err
	}
	sql := "SELECT * FROM " + source
	if n > 0 {
		sql += fmt.Sprintf(" LIMIT %d", n)
	}
	rows, err := w.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to preview %s: %w", alias, err)
	}
	return adapter.ScanTable(rows, n)
}

func (w *Workspace) record(run *core.QueryRun) {
	if w.history == nil {
		return
	}
	if err := w.history.Record(run); err != nil {
		w.logger.Warn("failed to record query history", slog.Any("error", err))
	}
}

// Query runs tmpl and returns only its table.
func (w *Workspace) Query(ctx context.Context, tmpl string) (*core.Table, error) {
	res, err := w.Run(ctx, tmpl)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// SourceAliases lists registered aliases in sorted order.
func (w *Workspace) SourceAliases() []string {
	records := w.Registry.Records()
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Alias
	}
	sort.Strings(out)
	return out
}

// SavedQueries returns a copy of the saved queries.
func (w *Workspace) SavedQueries() map[string]string {
	return w.Saved.Map()
}

// SaveQuery stores sql under name. An existing query is only replaced when
// overwrite is set. With persist the saved-query cache is rewritten.
func (w *Workspace) SaveQuery(name, sql string, overwrite, persist bool) error {
	if !template.ValidName(name) {
		return fmt.Errorf("invalid query name %q: use letters, digits, '_' or '-'", name)
	}
	if w.Saved.Has(name) && !overwrite {
		return fmt.Errorf("%w: %s", ErrQueryExists, name)
	}
	w.Saved.Put(name, sql)
	w.logger.Info("saved query", slog.String("name", name))
	if !persist {
		return nil
	}
	return w.persistQueries()
}

// DeleteQuery removes a saved query.
func (w *Workspace) DeleteQuery(name string, persist bool) error {
	if !w.Saved.Delete(name) {
		return fmt.Errorf("unknown saved query %q", name)
	}
	if !persist {
		return nil
	}
	return w.persistQueries()
}

// ImportQueries reads shared queries and saves them. Existing names are kept
// unless overwrite is set and are reported as skipped.
func (w *Workspace) ImportQueries(r io.Reader, format cache.Format, overwrite bool) (imported, skipped []string, err error) {
	q, err := cache.Import(r, format)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range q.Names() {
		sql, _ := q.Get(name)
		if err := w.SaveQuery(name, sql, overwrite, false); err != nil {
			if errors.Is(err, ErrQueryExists) {
				skipped = append(skipped, name)
				continue
			}
			return imported, skipped, err
		}
		imported = append(imported, name)
	}
	if len(imported) > 0 {
		if err := w.persistQueries(); err != nil {
			return imported, skipped, err
		}
	}
	return imported, skipped, nil
}

// ExportQueries writes the named saved queries, or all of them when names is empty.
func (w *Workspace) ExportQueries(out io.Writer, format cache.Format, names ...string) error {
	q := w.Saved
	if len(names) > 0 {
		q = core.NewSavedQueries()
		for _, name := range names {
			sql, ok := w.Saved.Get(name)
			if !ok {
				return fmt.Errorf("unknown saved query %q", name)
			}
			q.Put(name, sql)
		}
	}
	return cache.Export(out, q, format)
}

// History returns the most recent runs, newest first.
func (w *Workspace) History(limit int) ([]*core.QueryRun, error) {
	if w.history == nil {
		return nil, ErrNoHistory
	}
	return w.history.List(limit)
}

// ClearHistory deletes every recorded run.
func (w *Workspace) ClearHistory() error {
	if w.history == nil {
		return ErrNoHistory
	}
	return w.history.Clear()
}

var _ scripts.Host = (*Workspace)(nil)
