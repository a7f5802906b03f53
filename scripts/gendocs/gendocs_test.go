package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/duckboard/pkg/adapters/duckdb"
)

func TestMarkdownWriter(t *testing.T) {
	w := NewMarkdownWriter()
	w.Frontmatter("Title", "Desc")
	w.GeneratedMarker()
	w.Header(2, "Section")
	w.CodeBlock("bash", "duckboard query\n")
	w.BulletList([]string{"a", "b"})
	w.Table([]string{"Key", "Value"}, [][]string{{"k", "v"}})

	out := w.String()
	assert.Contains(t, out, "---\ntitle: Title\ndescription: Desc\n---")
	assert.Contains(t, out, generatedHeader)
	assert.Contains(t, out, "## Section\n")
	assert.Contains(t, out, "```bash\nduckboard query\n```")
	assert.Contains(t, out, "- a\n- b\n")
	assert.Contains(t, out, "| Key | Value |")
	assert.Contains(t, out, "| k | v |")
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "one two three", cleanDescription("  one\n two\tthree "))
}

func TestCleanExample(t *testing.T) {
	in := "\n    duckboard query 'SELECT 1'\n      --output csv\n"
	assert.Equal(t, "duckboard query 'SELECT 1'\n  --output csv", cleanExample(in))
}

func TestFormatSteps(t *testing.T) {
	assert.Equal(t, "50,000,000", formatSteps(50_000_000))
	assert.Equal(t, "999", formatSteps(999))
	assert.Equal(t, "1,000", formatSteps(1000))
}

func TestGenerators(t *testing.T) {
	tests := []struct {
		gen   string
		files []string
		want  string
	}{
		{gen: "cli", files: []string{"index.md", "query.md", "sources.md", "pending.md"}, want: "DUCKBOARD_SCRIPTS_DIR"},
		{gen: "config", files: []string{"configuration.md"}, want: "`scan_pattern`"},
		{gen: "scripts", files: []string{"scripts.md"}, want: "ctx.query(template)"},
	}

	for _, tt := range tests {
		t.Run(tt.gen, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, generators[tt.gen].run(dir))

			for _, f := range tt.files {
				assert.FileExists(t, filepath.Join(dir, f))
			}
			data, err := os.ReadFile(filepath.Join(dir, tt.files[0]))
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.want)
			assert.Contains(t, string(data), generatedHeader)
		})
	}
}
