// Package core defines the shared language of DuckBoard.
//
// This package contains:
//   - Domain entities (SourceRecord, Table, SavedQueries, QueryRun)
//   - Service interfaces (Adapter, HistoryStore)
//   - Edit payloads for the pending-partition grid (EditSet)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
