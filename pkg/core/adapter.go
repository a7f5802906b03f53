package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface the embedded query engine must implement.
type Adapter interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// LoadTable materializes an in-memory table under the given name.
	LoadTable(ctx context.Context, name string, table *Table) error

	// RegisterView creates or replaces a view named alias over expression.
	RegisterView(ctx context.Context, alias, expression string) error

	// DialectName returns the SQL dialect spoken by the engine.
	DialectName() string
}

// AdapterConfig holds configuration for connecting to the engine.
type AdapterConfig struct {
	Type   string
	Path   string
	Params map[string]any
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
