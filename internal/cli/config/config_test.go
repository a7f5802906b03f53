package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/duckboard/pkg/adapters/duckdb"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("cache-file", DefaultCacheFile, "")
	fs.String("query-cache", DefaultQueryCache, "")
	fs.String("scripts-dir", DefaultScriptsDir, "")
	fs.String("database", "", "")
	fs.String("history", DefaultHistoryPath, "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", DefaultOutput, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, DefaultConfigName)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, used, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, used)
	assert.Equal(t, filepath.Join(dir, DefaultCacheFile), cfg.CacheFile)
	assert.Equal(t, filepath.Join(dir, DefaultScriptsDir), cfg.ScriptsDir)
	assert.Empty(t, cfg.Database)
	assert.Equal(t, DefaultPreviewLimit, cfg.PreviewLimit)
	assert.Equal(t, DefaultScanPattern, cfg.ScanPattern)
	assert.Equal(t, DefaultEngine, cfg.Engine.Type)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, dir, cfg.BaseDir)
}

func TestLoad_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		env        map[string]string
		args       []string
		wantOutput string
		wantLimit  int
	}{
		{
			name:       "file overrides defaults",
			file:       "output: json\npreview_limit: 50\n",
			wantOutput: "json",
			wantLimit:  50,
		},
		{
			name:       "env overrides file",
			file:       "output: json\npreview_limit: 50\n",
			env:        map[string]string{"DUCKBOARD_OUTPUT": "csv"},
			wantOutput: "csv",
			wantLimit:  50,
		},
		{
			name:       "flag overrides env",
			file:       "output: json\n",
			env:        map[string]string{"DUCKBOARD_OUTPUT": "csv"},
			args:       []string{"--output", "md"},
			wantOutput: "md",
			wantLimit:  DefaultPreviewLimit,
		},
		{
			name:       "unchanged flag keeps file value",
			file:       "output: json\n",
			args:       []string{"--verbose"},
			wantOutput: "json",
			wantLimit:  DefaultPreviewLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			writeConfig(t, dir, tt.file)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, used, err := Load("", newFlags(t, tt.args...))
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(dir, DefaultConfigName), used)
			assert.Equal(t, tt.wantOutput, cfg.OutputFormat)
			assert.Equal(t, tt.wantLimit, cfg.PreviewLimit)
		})
	}
}

func TestLoad_ResolvesPaths(t *testing.T) {
	projectDir := t.TempDir()
	cfgPath := writeConfig(t, projectDir, `
cache_file: state/tables.json
database: data/board.duckdb
history: ":memory:"
engine:
  type: DuckDB
`)

	cwd := t.TempDir()
	t.Chdir(cwd)

	cfg, used, err := Load(cfgPath, newFlags(t, "--scripts-dir", "my-scripts"))
	require.NoError(t, err)

	assert.Equal(t, cfgPath, used)
	assert.Equal(t, filepath.Join(projectDir, "state/tables.json"), cfg.CacheFile)
	assert.Equal(t, filepath.Join(projectDir, "data/board.duckdb"), cfg.Database)
	assert.Equal(t, ":memory:", cfg.HistoryPath)
	assert.Equal(t, filepath.Join(cwd, "my-scripts"), cfg.ScriptsDir)
	assert.Equal(t, "duckdb", cfg.Engine.Type)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := Load("nope.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Engine:       EngineConfig{Type: "duckdb"},
			OutputFormat: "auto",
			ScanPattern:  "*.parquet",
			PreviewLimit: 10,
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty engine", mutate: func(c *Config) { c.Engine.Type = "" }, errSubstr: "engine.type is required"},
		{name: "unknown engine", mutate: func(c *Config) { c.Engine.Type = "oracle" }, errSubstr: "unknown engine type"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "xml" }, errSubstr: "xml"},
		{name: "negative limit", mutate: func(c *Config) { c.PreviewLimit = -1 }, errSubstr: "preview_limit"},
		{name: "bad pattern", mutate: func(c *Config) { c.ScanPattern = "[" }, errSubstr: "scan_pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestWorkspaceConfig(t *testing.T) {
	cfg := Config{
		CacheFile:    "/p/tables.json",
		QueryCache:   "/p/queries.json",
		HistoryPath:  "/p/history.db",
		Database:     "/p/board.duckdb",
		ScanPattern:  "*.parquet",
		PreviewLimit: 5,
		Engine:       EngineConfig{Type: "duckdb"},
	}

	wc := cfg.WorkspaceConfig()
	assert.Equal(t, "/p/tables.json", wc.CachePath)
	assert.Equal(t, "/p/queries.json", wc.QueryCachePath)
	assert.Equal(t, "/p/board.duckdb", wc.AdapterConfig.Path)
	assert.Equal(t, "duckdb", wc.AdapterConfig.Type)
	assert.Equal(t, 5, wc.PreviewLimit)
}
