// Package config loads DuckBoard CLI configuration.
//
// Values are layered, lowest to highest: built-in defaults, duckboard.yaml,
// DUCKBOARD_* environment variables, then flags that were set explicitly.
package config

import (
	"github.com/leapstack-labs/duckboard/internal/workspace"
	"github.com/leapstack-labs/duckboard/pkg/core"
)

// Default configuration values.
const (
	DefaultConfigName   = "duckboard.yaml"
	DefaultCacheFile    = ".duckboard/tables.json"
	DefaultQueryCache   = ".duckboard/queries.json"
	DefaultHistoryPath  = ".duckboard/history.db"
	DefaultScriptsDir   = "scripts"
	DefaultScanPattern  = "*.parquet"
	DefaultPreviewLimit = 1000
	DefaultEngine       = "duckdb"
	DefaultOutput       = "auto" // table on a terminal, markdown otherwise
)

// EngineConfig selects the query engine and its driver parameters.
type EngineConfig struct {
	Type   string         `koanf:"type"`
	Params map[string]any `koanf:"params"`
}

// Config holds all CLI configuration options.
type Config struct {
	CacheFile    string       `koanf:"cache_file"`
	QueryCache   string       `koanf:"query_cache"`
	ScriptsDir   string       `koanf:"scripts_dir"`
	Database     string       `koanf:"database"`
	HistoryPath  string       `koanf:"history"`
	ScanPattern  string       `koanf:"scan_pattern"`
	Encodings    []string     `koanf:"encodings"`
	PreviewLimit int          `koanf:"preview_limit"`
	Verbose      bool         `koanf:"verbose"`
	OutputFormat string       `koanf:"output"`
	Engine       EngineConfig `koanf:"engine"`

	// BaseDir is the directory relative paths were resolved against.
	BaseDir string `koanf:"-"`
}

// WorkspaceConfig converts the CLI configuration for workspace.Open.
func (c *Config) WorkspaceConfig() workspace.Config {
	return workspace.Config{
		CachePath:      c.CacheFile,
		QueryCachePath: c.QueryCache,
		HistoryPath:    c.HistoryPath,
		ScanPattern:    c.ScanPattern,
		Encodings:      c.Encodings,
		PreviewLimit:   c.PreviewLimit,
		AdapterConfig: core.AdapterConfig{
			Type:   c.Engine.Type,
			Path:   c.Database,
			Params: c.Engine.Params,
		},
	}
}
