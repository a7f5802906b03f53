package main

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/duckboard/internal/scripts"
)

// ScriptMember is one attribute of the ctx value passed to run.
type ScriptMember struct {
	Name        string
	Returns     string
	Description string
}

// getScriptAPI describes the ctx struct built by the script runner.
func getScriptAPI() []ScriptMember {
	return []ScriptMember{
		{Name: "ctx.query(template)", Returns: "list of dict", Description: "Expand {{name}} tokens, run the query and return each row as a dict of column to text; missing cells are None"},
		{Name: "ctx.sources()", Returns: "list of string", Description: "Aliases of every registered source, sorted"},
		{Name: "ctx.saved()", Returns: "dict", Description: "Saved query names mapped to their SQL"},
		{Name: "ctx.log(msg)", Returns: "None", Description: "Write msg to the structured log at info level"},
	}
}

// generateScriptDocs writes the script API reference.
func generateScriptDocs(outDir string) error {
	log.Printf("Generating script docs to %s", outDir)

	w := NewMarkdownWriter()
	w.Frontmatter("Scripts", "Starlark script API reference")
	w.GeneratedMarker()

	w.Header(1, "Scripts")
	w.Paragraph("Scripts are Starlark files with the " + InlineCode(scripts.Ext) + " extension in the scripts directory. Each must define " +
		InlineCode(scripts.EntryPoint+"(ctx)") + ". Output from " + InlineCode("print") + " and any value " + InlineCode(scripts.EntryPoint) +
		" returns are written to standard output. Scripts have no filesystem or network access.")

	w.Header(2, "ctx")
	var rows [][]string
	for _, m := range getScriptAPI() {
		rows = append(rows, []string{InlineCode(m.Name), m.Returns, cleanDescription(m.Description)})
	}
	w.Table([]string{"Member", "Returns", "Description"}, rows)

	w.Header(2, "Limits")
	w.BulletList([]string{
		"Execution stops after " + InlineCode(formatSteps(scripts.DefaultMaxSteps)) + " Starlark steps.",
		"Interrupting the command cancels the running script.",
		"Top-level " + InlineCode("for") + ", " + InlineCode("while") + " and " + InlineCode("set") + " are allowed.",
	})

	w.Header(2, "Example")
	w.CodeBlock("python", `def run(ctx):
    for alias in ctx.sources():
        rows = ctx.query("SELECT count(*) AS n FROM {{" + alias + "}}")
        print(alias, rows[0]["n"])`)

	return os.WriteFile(filepath.Join(outDir, "scripts.md"), w.Bytes(), 0o600)
}

// formatSteps renders n with thousands separators.
func formatSteps(n uint64) string {
	s := strconv.FormatUint(n, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
