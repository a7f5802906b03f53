// Package pending stages uploads that look like one shard of a partitioned
// Parquet dataset until the user points them at a path and names them.
//
// Each staged record moves Pending → {Valid, Invalid} as its path is edited.
// Promotion is all-or-nothing: every record must be Valid and aliased.
package pending

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/duckboard/internal/expr"
	"github.com/leapstack-labs/duckboard/internal/paths"
	"github.com/leapstack-labs/duckboard/internal/template"
	"github.com/leapstack-labs/duckboard/pkg/core"
)

// ErrNotAllValid is returned by Promote when any staged record is not
// Valid with an alias. Nothing is committed in that case.
var ErrNotAllValid = errors.New("every pending record needs a valid path and an alias before promotion")

// editableFields may be changed on an existing row.
var editableFields = map[core.Field]bool{
	core.FieldName:         true,
	core.FieldSheet:        true,
	core.FieldSizeBytes:    true,
	core.FieldDeclaredType: true,
	core.FieldEncoding:     true,
	core.FieldPath:         true,
	core.FieldAlias:        true,
}

// Store holds staged partition records in upload order.
type Store struct {
	records []core.SourceRecord
	pattern string
	logger  *slog.Logger
}

// NewStore creates an empty store. pattern is the scan glob used for directory
// records at promotion; empty means paths.DefaultScanPattern.
func NewStore(pattern string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{pattern: pattern, logger: logger}
}

// Add stages rec unless a record with the same content hash is already staged.
// It reports whether rec was added.
func (s *Store) Add(rec core.SourceRecord) bool {
	if rec.ContentHash != "" && s.hasHash(rec.ContentHash) {
		s.logger.Debug("pending record already staged", slog.String("name", rec.Name))
		return false
	}
	if rec.Validation == "" {
		rec.Validation = core.ValidationPending
	}
	if rec.PathKind == "" {
		rec.PathKind = core.PathKindUnknown
	}
	s.records = append(s.records, rec)
	return true
}

func (s *Store) hasHash(hash string) bool {
	for i := range s.records {
		if s.records[i].ContentHash == hash {
			return true
		}
	}
	return false
}

// Records returns a copy of the staged records.
func (s *Store) Records() []core.SourceRecord {
	return slices.Clone(s.records)
}

// Len returns the number of staged records.
func (s *Store) Len() int {
	return len(s.records)
}

// AllValid reports whether Promote would succeed.
func (s *Store) AllValid() bool {
	for i := range s.records {
		if !s.records[i].Committable() || !template.ValidName(s.records[i].Alias) {
			return false
		}
	}
	return true
}

// EditReport summarizes an ApplyEdits call.
type EditReport struct {
	Added   int
	Edited  int
	Deleted int
	// Skipped describes each edit that was ignored.
	Skipped []string
}

// ApplyEdits applies one grid change payload. Row indexes in Edited and Deleted
// refer to the rows as they were before the call. Edits are applied first, then
// deletions, then added rows are appended. Malformed edits are skipped and
// described in the report.
func (s *Store) ApplyEdits(edits core.EditSet) EditReport {
	var report EditReport

	rows := make([]int, 0, len(edits.Edited))
	for idx := range edits.Edited {
		rows = append(rows, idx)
	}
	slices.Sort(rows)

	for _, idx := range rows {
		if idx < 0 || idx >= len(s.records) {
			report.skip("edit row %d: no such row", idx)
			continue
		}
		if s.applyFields(&s.records[idx], edits.Edited[idx], editableFields, &report, fmt.Sprintf("edit row %d", idx)) {
			report.Edited++
		}
	}

	report.Deleted = s.deleteRows(edits.Deleted, &report)

	for i, fields := range edits.Added {
		rec := core.SourceRecord{
			Validation: core.ValidationPending,
			PathKind:   core.PathKindUnknown,
		}
		allowed := map[core.Field]bool{core.FieldContentHash: true}
		for f := range editableFields {
			allowed[f] = true
		}
		s.applyFields(&rec, fields, allowed, &report, fmt.Sprintf("added row %d", i))
		if rec.ContentHash != "" && s.hasHash(rec.ContentHash) {
			report.skip("added row %d: content hash already staged", i)
			continue
		}
		s.records = append(s.records, rec)
		report.Added++
	}

	for _, msg := range report.Skipped {
		s.logger.Warn("skipped pending edit", slog.String("reason", msg))
	}
	return report
}

// applyFields sets each allowed field on rec and reports whether anything changed.
func (s *Store) applyFields(rec *core.SourceRecord, fields map[core.Field]string, allowed map[core.Field]bool, report *EditReport, where string) bool {
	changed := false

	// Apply the path last so a validation result is never overwritten.
	names := make([]core.Field, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	slices.SortFunc(names, func(a, b core.Field) int {
		switch {
		case a == core.FieldPath:
			return 1
		case b == core.FieldPath:
			return -1
		}
		return cmp.Compare(a, b)
	})

	for _, f := range names {
		value := fields[f]
		if !allowed[f] {
			report.skip("%s: field %q cannot be edited", where, f)
			continue
		}
		if f == core.FieldPath {
			setPath(rec, value)
			changed = true
			continue
		}
		if f == core.FieldAlias && value != "" && !template.ValidName(value) {
			report.skip("%s: alias %q cannot be referenced as {{%s}}", where, value, value)
			continue
		}
		if !rec.Set(f, value) {
			report.skip("%s: invalid value %q for %q", where, value, f)
			continue
		}
		changed = true
	}
	return changed
}

// setPath re-validates rec against the filesystem.
func setPath(rec *core.SourceRecord, raw string) {
	res := paths.Validate(raw)
	rec.Validation = res.Validation
	rec.Path = res.Path
	rec.PathKind = res.Kind
}

// deleteRows removes the given rows, skipping placeholders without a content hash.
func (s *Store) deleteRows(indexes []int, report *EditReport) int {
	drop := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		switch {
		case idx < 0 || idx >= len(s.records):
			report.skip("delete row %d: no such row", idx)
		case s.records[idx].ContentHash == "":
			report.skip("delete row %d: placeholder row has no content hash", idx)
		default:
			drop[idx] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}

	kept := s.records[:0]
	for i, rec := range s.records {
		if !drop[i] {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	return len(drop)
}

// Remove drops the staged record with the given content hash.
func (s *Store) Remove(hash string) bool {
	if hash == "" {
		return false
	}
	for i := range s.records {
		if s.records[i].ContentHash == hash {
			s.records = slices.Delete(s.records, i, i+1)
			return true
		}
	}
	return false
}

// Promote turns every staged record into a committed on-disk source and clears
// the store. When any record is not Valid with an alias it returns
// ErrNotAllValid and leaves the store untouched.
func (s *Store) Promote() ([]core.SourceRecord, error) {
	if !s.AllValid() {
		return nil, ErrNotAllValid
	}

	promoted := make([]core.SourceRecord, 0, len(s.records))
	for _, rec := range s.records {
		rec.Location = core.LocationOnDisk
		if rec.DeclaredType == "" {
			rec.DeclaredType = core.TypeParquetPartition
		}
		expression, err := expr.ForRecord(rec, s.pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to build expression for %q: %w", rec.Alias, err)
		}
		rec.SourceExpression = expression
		promoted = append(promoted, rec)
	}

	s.records = nil
	s.logger.Info("promoted pending records", slog.Int("count", len(promoted)))
	return promoted, nil
}

func (r *EditReport) skip(format string, args ...any) {
	r.Skipped = append(r.Skipped, fmt.Sprintf(format, args...))
}
