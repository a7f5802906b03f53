// Package adapter provides the engine adapter contract and the shared
// database/sql plumbing concrete engines embed.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves by name from init().
package adapter

import "github.com/leapstack-labs/duckboard/pkg/core"

// Type aliases so callers need only this package.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)
