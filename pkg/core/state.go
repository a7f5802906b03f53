package core

import "time"

// HistoryStore records executed queries.
type HistoryStore interface {
	Open(path string) error
	Close() error
	InitSchema() error

	Record(run *QueryRun) error
	List(limit int) ([]*QueryRun, error)
	Clear() error
}

// QueryStatus represents the outcome of an executed query.
type QueryStatus string

// Query status constants.
const (
	QueryStatusSuccess QueryStatus = "success"
	QueryStatusFailed  QueryStatus = "failed"
	// QueryStatusUnexpanded marks a template that referenced an unknown alias.
	QueryStatusUnexpanded QueryStatus = "unexpanded"
)

// QueryRun is one entry of the query history.
type QueryRun struct {
	ID          string
	Template    string
	ExpandedSQL string
	Status      QueryStatus
	RowCount    int64
	Duration    time.Duration
	Error       string
	StartedAt   time.Time
}
