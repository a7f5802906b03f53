// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/duckboard/internal/cli/config"
	"github.com/leapstack-labs/duckboard/internal/cli/output"
)

// OrdersCSV is the data file written by SetupTestProject.
const OrdersCSV = "id,region,amount\n1,east,5\n2,west,7\n"

// SummaryScript is the script written by SetupTestProject.
const SummaryScript = `def run(ctx):
    rows = ctx.query("SELECT count(*) AS n FROM {{orders}}")
    print("orders:", rows[0]["n"])
`

// SetupTestProject creates a temporary project with a data file and a script.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	files := map[string]string{
		filepath.Join("data", "orders.csv"):     OrdersCSV,
		filepath.Join("scripts", "summary.star"): SummaryScript,
	}
	for name, body := range files {
		path := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return tmpDir
}

// NewTestConfig returns a config rooted at dir with CSV output.
func NewTestConfig(dir string) *config.Config {
	return &config.Config{
		CacheFile:    filepath.Join(dir, config.DefaultCacheFile),
		QueryCache:   filepath.Join(dir, config.DefaultQueryCache),
		ScriptsDir:   filepath.Join(dir, config.DefaultScriptsDir),
		HistoryPath:  filepath.Join(dir, config.DefaultHistoryPath),
		ScanPattern:  config.DefaultScanPattern,
		PreviewLimit: config.DefaultPreviewLimit,
		OutputFormat: string(output.ModeCSV),
		Engine:       config.EngineConfig{Type: config.DefaultEngine},
		BaseDir:      dir,
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
