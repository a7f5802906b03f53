package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment variables read as configuration.
const EnvPrefix = "DUCKBOARD_"

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// pathKeys are the settings holding filesystem paths.
var pathKeys = []string{"cache_file", "query_cache", "scripts_dir", "database", "history"}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"query-cache": "query_cache",
}

// Load reads configuration. cfgFile names an explicit config file; when empty,
// duckboard.yaml in the working directory is used if present. flags may be nil.
//
// Relative paths from the config file resolve against its directory, relative
// paths from defaults or the environment against the config file's directory
// or the working directory, and relative paths given as flags against the
// working directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"cache_file":    DefaultCacheFile,
		"query_cache":   DefaultQueryCache,
		"scripts_dir":   DefaultScriptsDir,
		"database":      "",
		"history":       DefaultHistoryPath,
		"scan_pattern":  DefaultScanPattern,
		"preview_limit": DefaultPreviewLimit,
		"verbose":       false,
		"output":        DefaultOutput,
		"engine.type":   DefaultEngine,
	}, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get working directory: %w", err)
	}
	baseDir := cwd

	used := findConfigFile(cfgFile, cwd)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
		if abs, err := filepath.Abs(used); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	// DUCKBOARD_CACHE_FILE -> cache_file
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	flagPaths := make(map[string]string)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			val := posflag.FlagVal(flags, f)
			if s, ok := val.(string); ok && isPathKey(key) {
				flagPaths[key] = resolvePath(s, cwd)
			}
			return key, val
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.BaseDir = baseDir
	cfg.Engine.Type = strings.ToLower(cfg.Engine.Type)
	for key, target := range map[string]*string{
		"cache_file":  &cfg.CacheFile,
		"query_cache": &cfg.QueryCache,
		"scripts_dir": &cfg.ScriptsDir,
		"database":    &cfg.Database,
		"history":     &cfg.HistoryPath,
	} {
		if p, ok := flagPaths[key]; ok {
			*target = p
			continue
		}
		*target = resolvePath(*target, baseDir)
	}

	return &cfg, used, nil
}

// findConfigFile returns explicit, or the default config file in dir if it exists.
func findConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{DefaultConfigName, "duckboard.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// resolvePath joins a relative path onto baseDir. Empty values and the
// in-memory database name are returned unchanged.
func resolvePath(p, baseDir string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func isPathKey(key string) bool {
	for _, k := range pathKeys {
		if k == key {
			return true
		}
	}
	return false
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// configKey is used to store the loaded config in context.
type configKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored by WithConfig, or nil.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(configKey{}).(*Config)
	return c
}
