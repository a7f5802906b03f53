package workspace

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/leapstack-labs/duckboard/internal/expr"
	"github.com/leapstack-labs/duckboard/internal/ingest"
	"github.com/leapstack-labs/duckboard/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Status is the outcome class of an upload.
type Status string

// Upload status constants.
const (
	StatusRegistered       Status = "Registered"
	StatusDuplicate        Status = "Duplicate"
	StatusPendingPartition Status = "PendingPartition"
	StatusUnsupported      Status = "Unsupported"
	StatusFailed           Status = "Failed"
)

// UploadOutcome reports what happened to one upload.
type UploadOutcome struct {
	Status Status
	// Records are the sources created: one per table or workbook sheet, or the
	// staged pending record.
	Records []core.SourceRecord
	// Detail is the encoding used, or why the upload was not registered.
	Detail string
}

// Upload reads one uploaded file and routes it. Well-formed tables become
// session sources, Parquet shards are staged as pending partitions, and
// content already known to the workspace is skipped.
func (w *Workspace) Upload(ctx context.Context, name, contentType string, data []byte) (UploadOutcome, error) {
	var (
		hash string
		res  ingest.Result
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hash, err = ingest.HashReader(bytes.NewReader(data))
		return err
	})
	g.Go(func() error {
		res = w.reader.Read(data, contentType, name)
		return nil
	})
	if err := g.Wait(); err != nil {
		return UploadOutcome{}, fmt.Errorf("failed to hash %s: %w", name, err)
	}

	log := w.logger.With(slog.String("file", name), slog.String("hash", hash))

	if ingest.ContainsHash(hash, w.uploads, w.Pending.Records(), w.Registry.Records()) {
		log.Warn("duplicate upload skipped")
		return UploadOutcome{Status: StatusDuplicate, Detail: "content already registered"}, nil
	}

	base := core.SourceRecord{
		Name:         name,
		ContentHash:  hash,
		SizeBytes:    int64(len(data)),
		DeclaredType: res.Type,
	}

	switch res.Type {
	case core.TypeUnsupported:
		log.Info("unsupported upload", slog.String("content_type", contentType))
		return UploadOutcome{Status: StatusUnsupported, Detail: res.Detail}, nil

	case core.TypeError:
		log.Warn("upload could not be read", slog.String("detail", res.Detail))
		return UploadOutcome{Status: StatusFailed, Detail: res.Detail}, nil

	case core.TypeParquetPartition:
		rec := base
		rec.Validation = core.ValidationPending
		rec.PathKind = core.PathKindUnknown
		w.Pending.Add(rec)
		w.uploads = append(w.uploads, rec)
		log.Info("staged parquet partition")
		return UploadOutcome{Status: StatusPendingPartition, Records: []core.SourceRecord{rec}, Detail: res.Detail}, nil
	}

	tables := res.Sheets
	if res.Table != nil {
		tables = []ingest.SheetTable{{Table: res.Table}}
	}

	db, err := w.Engine(ctx)
	if err != nil {
		return UploadOutcome{}, err
	}

	records := make([]core.SourceRecord, 0, len(tables))
	reserved := make(map[string]bool, len(tables))
	for _, st := range tables {
		rec := base
		rec.Sheet = st.Name
		if st.Name != "" {
			rec.Name = name + "--" + st.Name
		}
		if res.Type == core.TypeCSV {
			rec.Encoding = res.Detail
		}
		rec.Alias = w.freeAlias(DefaultAlias(name, st.Name), reserved)
		reserved[rec.Alias] = true
		rec.Validation = core.ValidationValid
		rec.PathKind = core.PathKindUnknown
		rec.Location = core.LocationInMemory
		rec.SourceExpression = expr.SessionTable(expr.SessionTableName(hash, st.Name))
		records = append(records, rec)
	}

	// Every table is loaded before any is registered so a failure leaves nothing behind.
	for i, st := range tables {
		if err := db.LoadTable(ctx, expr.SessionTableName(hash, st.Name), st.Table); err != nil {
			w.dropSessionTables(ctx, records[:i])
			return UploadOutcome{}, fmt.Errorf("failed to load %s: %w", records[i].Name, err)
		}
	}
	if conflicts := w.Registry.Merge(records...); len(conflicts) > 0 {
		skipped := make(map[string]bool, len(conflicts))
		for _, c := range conflicts {
			skipped[c.Record.Name] = true
		}
		for _, rec := range records {
			if !skipped[rec.Name] {
				w.Registry.Remove(rec.Alias)
			}
		}
		w.dropSessionTables(ctx, records)
		return UploadOutcome{}, fmt.Errorf("failed to register %s: %s", conflicts[0].Record.Name, conflicts[0])
	}

	for i, rec := range records {
		log.Info("registered upload",
			slog.String("alias", rec.Alias),
			slog.Int("rows", tables[i].Table.NumRows()),
			slog.Int("columns", len(tables[i].Table.Columns)))
	}
	w.uploads = append(w.uploads, records...)

	return UploadOutcome{Status: StatusRegistered, Records: records, Detail: res.Detail}, nil
}

// UploadFile uploads a file from disk, guessing its content type from the name.
func (w *Workspace) UploadFile(ctx context.Context, path string) (UploadOutcome, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-chosen upload
	if err != nil {
		return UploadOutcome{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	name := filepath.Base(path)
	return w.Upload(ctx, name, ingest.ContentTypeFor(name), data)
}

// DefaultAlias derives an SQL-safe alias from a filename and optional sheet:
// lowercase letters, digits and underscores, never starting with a digit.
func DefaultAlias(filename, sheet string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	alias := sanitize(stem)
	if sheet != "" {
		alias += "_" + sanitize(sheet)
	}
	if alias == "" {
		alias = "source"
	}
	if unicode.IsDigit(rune(alias[0])) {
		alias = "t_" + alias
	}
	return alias
}

func sanitize(s string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && sb.Len() > 0 {
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}

// freeAlias returns alias, or alias_2, alias_3, … when it is registered,
// pending or in reserved.
func (w *Workspace) freeAlias(alias string, reserved map[string]bool) string {
	taken := func(a string) bool {
		if reserved[a] {
			return true
		}
		if _, ok := w.Registry.Lookup(a); ok {
			return true
		}
		for _, rec := range w.Pending.Records() {
			if rec.Alias == a {
				return true
			}
		}
		return false
	}
	if !taken(alias) {
		return alias
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", alias, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// dropSessionTables removes the engine tables behind records. Failures are
// logged; the tables are unreachable once their records are gone.
func (w *Workspace) dropSessionTables(ctx context.Context, records []core.SourceRecord) {
	for _, rec := range records {
		if err := w.db.Exec(ctx, "DROP TABLE IF EXISTS "+rec.SourceExpression); err != nil {
			w.logger.Warn("failed to drop session table",
				slog.String("table", rec.SourceExpression),
				slog.Any("error", err))
		}
	}
}
