package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/duckboard/internal/expr"
	"github.com/leapstack-labs/duckboard/internal/ingest"
	"github.com/leapstack-labs/duckboard/internal/paths"
	"github.com/leapstack-labs/duckboard/internal/pending"
	"github.com/leapstack-labs/duckboard/internal/registry"
	"github.com/leapstack-labs/duckboard/internal/template"
	"github.com/leapstack-labs/duckboard/pkg/adapter"
	"github.com/leapstack-labs/duckboard/pkg/core"
)

// ErrDuplicate is returned when a file's content is already known.
var ErrDuplicate = errors.New("content already registered")

// ErrInvalidAlias is returned for an alias that cannot be referenced as {{alias}}.
var ErrInvalidAlias = errors.New("invalid alias: use letters, digits, '_' or '-'")

func checkAlias(alias string) error {
	if !template.ValidName(alias) {
		return fmt.Errorf("%q: %w", alias, ErrInvalidAlias)
	}
	return nil
}

// AliasConflictError lists pending records whose alias cannot be committed.
type AliasConflictError struct {
	Conflicts []registry.Conflict
}

func (e *AliasConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		return "alias conflict: " + e.Conflicts[0].String()
	}
	return fmt.Sprintf("%d alias conflicts, first: %s", len(e.Conflicts), e.Conflicts[0])
}

// ApplyPendingEdits applies a grid edit to the pending store. Uploads whose
// pending record was deleted are forgotten so the file can be uploaded again.
func (w *Workspace) ApplyPendingEdits(edits core.EditSet) pending.EditReport {
	before := hashes(w.Pending.Records())
	report := w.Pending.ApplyEdits(edits)
	after := hashes(w.Pending.Records())

	for h := range before {
		if !after[h] {
			w.forgetUpload(h)
		}
	}
	return report
}

// PromotePending commits every pending record and persists the table cache.
// Nothing is committed unless every record is valid and every alias is free.
func (w *Workspace) PromotePending() ([]core.SourceRecord, error) {
	if !w.Pending.AllValid() {
		return nil, pending.ErrNotAllValid
	}
	if conflicts := w.pendingConflicts(); len(conflicts) > 0 {
		return nil, &AliasConflictError{Conflicts: conflicts}
	}

	promoted, err := w.Pending.Promote()
	if err != nil {
		return nil, err
	}
	for _, c := range w.Registry.Merge(promoted...) {
		w.logger.Warn("promoted record not registered", slog.String("conflict", c.String()))
	}
	for _, rec := range promoted {
		w.forgetUpload(rec.ContentHash)
	}

	if err := w.persistTables(); err != nil {
		return promoted, err
	}
	return promoted, nil
}

// pendingConflicts finds pending aliases that are taken in the registry or
// repeated within the pending store.
func (w *Workspace) pendingConflicts() []registry.Conflict {
	var conflicts []registry.Conflict
	seen := make(map[string]bool)
	for _, rec := range w.Pending.Records() {
		if held, ok := w.Registry.Lookup(rec.Alias); ok {
			conflicts = append(conflicts, registry.Conflict{
				Record: rec,
				Reason: fmt.Sprintf("alias %q is already used by %s", rec.Alias, held.Name),
			})
			continue
		}
		if seen[rec.Alias] {
			conflicts = append(conflicts, registry.Conflict{
				Record: rec,
				Reason: fmt.Sprintf("alias %q is used by another pending record", rec.Alias),
			})
			continue
		}
		seen[rec.Alias] = true
	}
	return conflicts
}

// RegisterFile commits a single on-disk file under alias and persists the
// table cache.
func (w *Workspace) RegisterFile(path, alias string) (core.SourceRecord, error) {
	if alias != "" {
		if err := checkAlias(alias); err != nil {
			return core.SourceRecord{}, err
		}
	}
	res := paths.Validate(path)
	switch {
	case res.Validation != core.ValidationValid:
		return core.SourceRecord{}, fmt.Errorf("path %q does not exist", path)
	case res.Kind != core.PathKindFile:
		return core.SourceRecord{}, fmt.Errorf("path %q is a directory; upload one of its partitions instead", path)
	}

	kind := ingest.ResolveType("", res.Path)
	if kind == core.TypeUnsupported {
		return core.SourceRecord{}, fmt.Errorf("unsupported file type: %s", filepath.Base(res.Path))
	}

	f, err := os.Open(filepath.FromSlash(res.Path))
	if err != nil {
		return core.SourceRecord{}, fmt.Errorf("failed to open %s: %w", res.Path, err)
	}
	defer func() { _ = f.Close() }()

	hash, err := ingest.HashReader(f)
	if err != nil {
		return core.SourceRecord{}, fmt.Errorf("failed to hash %s: %w", res.Path, err)
	}
	if ingest.ContainsHash(hash, w.uploads, w.Pending.Records(), w.Registry.Records()) {
		return core.SourceRecord{}, fmt.Errorf("%s: %w", res.Path, ErrDuplicate)
	}

	info, err := f.Stat()
	if err != nil {
		return core.SourceRecord{}, fmt.Errorf("failed to stat %s: %w", res.Path, err)
	}

	if alias == "" {
		alias = w.freeAlias(DefaultAlias(filepath.Base(res.Path), ""), nil)
	}
	rec := core.SourceRecord{
		Name:         filepath.Base(res.Path),
		ContentHash:  hash,
		SizeBytes:    info.Size(),
		DeclaredType: kind,
		Validation:   res.Validation,
		Path:         res.Path,
		PathKind:     res.Kind,
		Alias:        alias,
		Location:     core.LocationOnDisk,
	}
	rec.SourceExpression, err = expr.ForRecord(rec, w.cfg.ScanPattern)
	if err != nil {
		return core.SourceRecord{}, err
	}

	if conflicts := w.Registry.MergeFiles(rec); len(conflicts) > 0 {
		return core.SourceRecord{}, &AliasConflictError{Conflicts: conflicts}
	}
	w.logger.Info("registered file", slog.String("alias", alias), slog.String("path", res.Path))

	if err := w.persistTables(); err != nil {
		return rec, err
	}
	return rec, nil
}

// SetAlias renames a registered source. Committed sources are persisted.
func (w *Workspace) SetAlias(ctx context.Context, oldAlias, newAlias string) error {
	collection, ok := w.Registry.CollectionOf(oldAlias)
	if !ok {
		return fmt.Errorf("unknown alias %q", oldAlias)
	}
	if err := checkAlias(newAlias); err != nil {
		return err
	}
	if err := w.Registry.Rename(oldAlias, newAlias); err != nil {
		return err
	}
	if err := w.dropView(ctx, oldAlias); err != nil {
		return err
	}
	w.logger.Info("renamed source", slog.String("from", oldAlias), slog.String("to", newAlias))

	if collection == registry.CollectionSession {
		return nil
	}
	return w.persistTables()
}

// RemoveSource drops a registered source. Session tables are dropped from the
// engine; committed sources are removed from the cache.
func (w *Workspace) RemoveSource(ctx context.Context, alias string) error {
	rec, ok := w.Registry.Lookup(alias)
	if !ok {
		return fmt.Errorf("unknown alias %q", alias)
	}
	collection, _ := w.Registry.CollectionOf(alias)
	w.Registry.Remove(alias)
	w.forgetUpload(rec.ContentHash)

	if err := w.dropView(ctx, alias); err != nil {
		return err
	}
	if w.dbConnected && collection == registry.CollectionSession {
		table := rec.SourceExpression
		if err := w.db.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	w.logger.Info("removed source", slog.String("alias", alias), slog.String("collection", string(collection)))

	if collection == registry.CollectionSession {
		return nil
	}
	return w.persistTables()
}

// dropView removes the engine view created for alias, if any.
func (w *Workspace) dropView(ctx context.Context, alias string) error {
	if _, ok := w.views[alias]; !ok || !w.dbConnected {
		return nil
	}
	if err := w.db.Exec(ctx, "DROP VIEW IF EXISTS "+adapter.QuoteIdent(alias)); err != nil {
		return fmt.Errorf("failed to drop view %s: %w", alias, err)
	}
	delete(w.views, alias)
	return nil
}

func (w *Workspace) forgetUpload(hash string) {
	if hash == "" {
		return
	}
	kept := w.uploads[:0]
	for _, rec := range w.uploads {
		if rec.ContentHash != hash {
			kept = append(kept, rec)
		}
	}
	w.uploads = kept
}

func hashes(records []core.SourceRecord) map[string]bool {
	out := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.ContentHash != "" {
			out[rec.ContentHash] = true
		}
	}
	return out
}
