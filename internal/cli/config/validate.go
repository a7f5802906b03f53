package config

import (
	"fmt"
	"path"

	"github.com/leapstack-labs/duckboard/internal/cli/output"
	"github.com/leapstack-labs/duckboard/pkg/adapter"
)

// Validate checks the configuration for values no command can work with.
func (c *Config) Validate() error {
	if c.Engine.Type == "" {
		return fmt.Errorf("engine.type is required")
	}
	if _, ok := adapter.Lookup(c.Engine.Type); !ok {
		return &adapter.UnknownAdapterError{Type: c.Engine.Type, Available: adapter.Names()}
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	if c.PreviewLimit < 0 {
		return fmt.Errorf("preview_limit must not be negative, got %d", c.PreviewLimit)
	}
	if _, err := path.Match(c.ScanPattern, ""); err != nil {
		return fmt.Errorf("invalid scan_pattern %q: %w", c.ScanPattern, err)
	}
	return nil
}
