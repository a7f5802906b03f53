package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/leapstack-labs/duckboard/internal/cli/config"
)

// configDescriptions documents each koanf key of config.Config.
var configDescriptions = map[string]string{
	"cache_file":    "JSON file holding committed sources (registered files and promoted partitions)",
	"query_cache":   "JSON file holding saved queries",
	"scripts_dir":   "Directory searched for .star scripts",
	"database":      "DuckDB database file; empty runs in memory",
	"history":       "SQLite file logging every query run; `:memory:` keeps it for one run",
	"scan_pattern":  "Glob appended to directory sources when reading partitions",
	"encodings":     "Text encodings tried in order when decoding CSV uploads",
	"preview_limit": "Maximum rows returned by a query; 0 returns every row",
	"verbose":       "Log debug output to stderr",
	"output":        "Output format: auto, table, json, csv or md",
	"engine":        "Query engine settings (`type`, driver `params`)",
}

// configDefaults are the built-in values, keyed like the config file.
var configDefaults = map[string]string{
	"cache_file":    config.DefaultCacheFile,
	"query_cache":   config.DefaultQueryCache,
	"scripts_dir":   config.DefaultScriptsDir,
	"history":       config.DefaultHistoryPath,
	"scan_pattern":  config.DefaultScanPattern,
	"encodings":     "utf-8, iso-8859-1, windows-1252",
	"preview_limit": fmt.Sprint(config.DefaultPreviewLimit),
	"verbose":       "false",
	"output":        config.DefaultOutput,
	"engine":        "type: " + config.DefaultEngine,
}

// generateConfigDocs writes the configuration reference from config.Config's fields.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "DuckBoard configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("DuckBoard reads %s from the working directory, or the file named by %s. Relative paths resolve against the config file's directory.",
		InlineCode(config.DefaultConfigName), InlineCode("--config")))

	w.Header(2, "Settings")
	var rows [][]string
	t := reflect.TypeOf(config.Config{})
	for i := range t.NumField() {
		f := t.Field(i)
		key := strings.Split(f.Tag.Get("koanf"), ",")[0]
		if key == "" || key == "-" {
			continue
		}
		def := configDefaults[key]
		if def == "" {
			def = "-"
		} else {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode(key), f.Type.String(), def, configDescriptions[key]})
	}
	w.Table([]string{"Key", "Type", "Default", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `# duckboard.yaml
cache_file: .duckboard/tables.json
query_cache: .duckboard/queries.json
scripts_dir: scripts
database: ./data/board.duckdb
history: .duckboard/history.db
scan_pattern: "*.parquet"
preview_limit: 500
output: table

engine:
  type: duckdb
  params:
    extensions:
      - excel`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0o600)
}
