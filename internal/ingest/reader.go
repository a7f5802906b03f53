// Package ingest turns uploaded bytes into tables.
//
// It fingerprints uploads (HashReader), dispatches them to a parser by declared
// type (Reader.Read) and answers membership questions for deduplication
// (IsDuplicate). Parsing failures never escape as errors: they are encoded in the
// Result's Type and Detail so the caller can route the upload.
package ingest

import (
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/duckboard/pkg/core"
)

// DefaultEncodings is the order in which text encodings are tried for CSV uploads.
var DefaultEncodings = []string{"utf-8", "iso-8859-1", "windows-1252"}

// SheetTable is one worksheet of a workbook upload.
type SheetTable struct {
	Name  string
	Table *core.Table
}

// Result is the outcome of reading one upload.
// Exactly one of Table or Sheets is set on success; both are empty otherwise.
type Result struct {
	Table  *core.Table
	Sheets []SheetTable
	Type   core.DeclaredType
	// Detail carries the encoding used, or the failure reason.
	Detail string
}

// Reader dispatches uploads to the CSV, workbook or Parquet parser.
type Reader struct {
	encodings []string
	logger    *slog.Logger
}

// NewReader creates a reader trying the given encodings in order.
// A nil or empty list uses DefaultEncodings.
func NewReader(encodings []string, logger *slog.Logger) *Reader {
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{encodings: encodings, logger: logger}
}

// Read parses data according to contentType, falling back to the filename
// extension when the content type is missing or generic.
func (r *Reader) Read(data []byte, contentType, filename string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("parser panicked", slog.String("file", filename), slog.Any("panic", p))
			res = Result{Type: core.TypeError, Detail: fmt.Sprintf("error: %v", p)}
		}
	}()

	kind := ResolveType(contentType, filename)
	r.logger.Debug("reading upload",
		slog.String("file", filename),
		slog.String("content_type", contentType),
		slog.String("resolved", string(kind)))

	switch kind {
	case core.TypeCSV:
		return r.readCSV(data, delimiterFor(filename))
	case core.TypeXLSX:
		return readWorkbook(data)
	case core.TypeParquet:
		return readParquet(data)
	default:
		return Result{Type: core.TypeUnsupported, Detail: "unsupported file type"}
	}
}

var csvTypes = map[string]bool{
	"text/csv":                  true,
	"text/plain":                true,
	"application/csv":           true,
	"text/tab-separated-values": true,
}

var parquetTypes = map[string]bool{
	"application/octet-stream":       true,
	"application/vnd.apache.parquet": true,
	"application/x-parquet":          true,
}

var workbookTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/xlsx": true,
}

// ResolveType maps a MIME type and filename to the parser that should read them.
func ResolveType(contentType, filename string) core.DeclaredType {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}

	byExt := typeFromExtension(filename)

	switch {
	case workbookTypes[mediaType]:
		return core.TypeXLSX
	case csvTypes[mediaType]:
		return core.TypeCSV
	case mediaType == "application/octet-stream" && byExt != core.TypeUnsupported:
		// octet-stream is what browsers send for anything unknown
		return byExt
	case parquetTypes[mediaType]:
		return core.TypeParquet
	case mediaType == "":
		return byExt
	}
	return core.TypeUnsupported
}

func typeFromExtension(filename string) core.DeclaredType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".tsv", ".txt":
		return core.TypeCSV
	case ".parquet", ".pq":
		return core.TypeParquet
	case ".xlsx":
		return core.TypeXLSX
	default:
		return core.TypeUnsupported
	}
}

// ContentTypeFor guesses the MIME type an upload of filename would carry.
func ContentTypeFor(filename string) string {
	switch typeFromExtension(filename) {
	case core.TypeCSV:
		return "text/csv"
	case core.TypeParquet:
		return "application/octet-stream"
	case core.TypeXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return ""
}

func delimiterFor(filename string) rune {
	if strings.EqualFold(filepath.Ext(filename), ".tsv") {
		return '\t'
	}
	return ','
}
