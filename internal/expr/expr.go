// Package expr builds the engine read expressions that back registered sources.
//
// The set is closed: every source expression in the workspace comes from one of
// these constructors, so user-controlled text only ever appears inside a quoted
// literal or identifier.
package expr

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/duckboard/internal/paths"
	"github.com/leapstack-labs/duckboard/pkg/core"
)

// Literal quotes s as a SQL string literal.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Ident quotes s as a SQL identifier.
func Ident(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ReadCSV reads one delimited text file.
func ReadCSV(path string) string {
	return fmt.Sprintf("read_csv(%s)", Literal(path))
}

// ReadParquet reads one Parquet file.
func ReadParquet(path string) string {
	return fmt.Sprintf("read_parquet(%s)", Literal(path))
}

// ReadParquetGlob reads every file under dir matching pattern.
func ReadParquetGlob(dir, pattern string) string {
	return fmt.Sprintf("read_parquet(%s)", Literal(paths.Glob(dir, pattern)))
}

// ReadExcel reads one worksheet of a workbook. An empty sheet reads the first one.
func ReadExcel(path, sheet string) string {
	if sheet == "" {
		return fmt.Sprintf("read_xlsx(%s)", Literal(path))
	}
	return fmt.Sprintf("read_xlsx(%s, sheet = %s)", Literal(path), Literal(sheet))
}

// SessionTable references a table loaded into the engine for this session.
func SessionTable(name string) string {
	return Ident(name)
}

// sessionHashLen is how much of the content hash names a session table.
const sessionHashLen = 16

// SessionTableName names the engine table holding an upload, or one sheet of
// it. The name follows the content, never the alias, so renaming a source
// cannot hand its table to a later upload.
func SessionTableName(contentHash, sheet string) string {
	h := contentHash
	if len(h) > sessionHashLen {
		h = h[:sessionHashLen]
	}
	if sheet == "" {
		return "upload_" + h
	}
	return "upload_" + h + ":" + sheet
}

// ForRecord picks the expression for rec. Directory records scan with pattern.
// It returns an error for records that have no readable location.
func ForRecord(rec core.SourceRecord, pattern string) (string, error) {
	if rec.Location == core.LocationInMemory {
		if rec.ContentHash == "" {
			return "", fmt.Errorf("in-memory source %q has no content hash", rec.Name)
		}
		return SessionTable(SessionTableName(rec.ContentHash, rec.Sheet)), nil
	}

	if rec.Path == "" {
		return "", fmt.Errorf("source %q has no path", rec.Name)
	}

	if rec.PathKind == core.PathKindDirectory {
		return ReadParquetGlob(rec.Path, pattern), nil
	}

	switch rec.DeclaredType {
	case core.TypeCSV:
		return ReadCSV(rec.Path), nil
	case core.TypeXLSX:
		return ReadExcel(rec.Path, rec.Sheet), nil
	case core.TypeParquet, core.TypeParquetPartition:
		return ReadParquet(rec.Path), nil
	default:
		return "", fmt.Errorf("source %q has unreadable type %q", rec.Name, rec.DeclaredType)
	}
}
