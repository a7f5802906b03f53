// Package paths validates the on-disk locations users give for partitioned data.
package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/duckboard/pkg/core"
)

// DefaultScanPattern is the glob appended to a directory when building a read expression.
const DefaultScanPattern = "*.parquet"

// Result is the outcome of validating one path.
type Result struct {
	Validation core.Validation
	// Path is the normalized path. Empty unless Validation is Valid.
	Path string
	Kind core.PathKind
}

// Validate classifies p. An empty or blank path is Pending, a path that does not
// exist is Invalid, and an existing file or directory is Valid with its
// absolute, forward-slashed form.
func Validate(p string) Result {
	p = strings.TrimSpace(p)
	if p == "" {
		return Result{Validation: core.ValidationPending, Kind: core.PathKindUnknown}
	}

	info, err := os.Stat(p)
	if err != nil {
		return Result{Validation: core.ValidationInvalid, Kind: core.PathKindUnknown}
	}

	kind := core.PathKindFile
	if info.IsDir() {
		kind = core.PathKindDirectory
	}
	return Result{Validation: core.ValidationValid, Path: Normalize(p), Kind: kind}
}

// Normalize makes p absolute and clean, with forward slashes.
func Normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// Glob joins a normalized directory with a scan pattern.
// An empty pattern uses DefaultScanPattern.
func Glob(dir, pattern string) string {
	if pattern == "" {
		pattern = DefaultScanPattern
	}
	return path.Join(filepath.ToSlash(dir), pattern)
}
