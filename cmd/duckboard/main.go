// Package main provides the DuckBoard CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/duckboard/internal/cli"

	// Engines register themselves by name.
	_ "github.com/leapstack-labs/duckboard/pkg/adapters/duckdb"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
