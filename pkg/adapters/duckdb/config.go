package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration, decoded from
// core.AdapterConfig.Params.
type Params struct {
	// Extensions to install and load at connect (e.g. "excel", "json").
	Extensions []string `mapstructure:"extensions"`

	// Settings applied with SET at connect (e.g. memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	for k := range p.Settings {
		if !isIdent(k) {
			return nil, fmt.Errorf("invalid setting name %q", k)
		}
	}
	return p, nil
}
