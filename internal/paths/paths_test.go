package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "part-0.parquet")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	tests := []struct {
		name     string
		input    string
		wantVal  core.Validation
		wantKind core.PathKind
		wantPath string
	}{
		{"empty", "", core.ValidationPending, core.PathKindUnknown, ""},
		{"blank", "   ", core.ValidationPending, core.PathKindUnknown, ""},
		{"missing", filepath.Join(dir, "nope"), core.ValidationInvalid, core.PathKindUnknown, ""},
		{"directory", dir, core.ValidationValid, core.PathKindDirectory, filepath.ToSlash(dir)},
		{"file", file, core.ValidationValid, core.PathKindFile, filepath.ToSlash(file)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.input)
			assert.Equal(t, tt.wantVal, got.Validation)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}

func TestValidate_RelativePathIsMadeAbsolute(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.Mkdir("shards", 0o755))

	got := Validate("shards")

	require.Equal(t, core.ValidationValid, got.Validation)
	assert.Equal(t, core.PathKindDirectory, got.Kind)
	assert.True(t, filepath.IsAbs(filepath.FromSlash(got.Path)), "expected absolute path, got %s", got.Path)
}

func TestGlob(t *testing.T) {
	assert.Equal(t, "/data/sales/*.parquet", Glob("/data/sales", ""))
	assert.Equal(t, "/data/sales/**/*.parquet", Glob("/data/sales/", "**/*.parquet"))
}
