package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/duckboard/internal/testutil"
	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &core.QueryRun{
		Template:    "SELECT * FROM {{sales}}",
		ExpandedSQL: "SELECT * FROM read_parquet('/d/*.parquet')",
		Status:      core.QueryStatusSuccess,
		RowCount:    42,
		Duration:    1500 * time.Millisecond,
		StartedAt:   base,
	}
	second := &core.QueryRun{
		Template:  "SELECT * FROM {{missing}}",
		Status:    core.QueryStatusUnexpanded,
		Error:     "unknown alias or query: missing",
		StartedAt: base.Add(time.Minute),
	}
	require.NoError(t, store.Record(first))
	require.NoError(t, store.Record(second))
	assert.NotEmpty(t, first.ID, "ID is assigned on record")

	runs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second.Template, runs[0].Template, "newest first")
	assert.Equal(t, core.QueryStatusUnexpanded, runs[0].Status)
	assert.Equal(t, second.Error, runs[0].Error)

	got := runs[1]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.ExpandedSQL, got.ExpandedSQL)
	assert.Equal(t, int64(42), got.RowCount)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.True(t, base.Equal(got.StartedAt))
	assert.Empty(t, got.Error)
}

func TestSQLiteStore_ListLimit(t *testing.T) {
	store := setupTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(&core.QueryRun{Template: "SELECT 1", Status: core.QueryStatusSuccess}))
	}

	runs, err := store.List(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestSQLiteStore_Clear(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Record(&core.QueryRun{Template: "SELECT 1", Status: core.QueryStatusSuccess}))

	require.NoError(t, store.Clear())

	runs, err := store.List(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSQLiteStore_FileBackedSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.InitSchema())
	require.NoError(t, store.Record(&core.QueryRun{Template: "SELECT 1", Status: core.QueryStatusSuccess}))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.InitSchema(), "migrations are idempotent")

	version, err := reopened.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	runs, err := reopened.List(0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)

	assert.Error(t, store.InitSchema())
	assert.Error(t, store.Record(&core.QueryRun{}))
	_, err := store.List(1)
	assert.Error(t, err)
	assert.Error(t, store.Clear())
	assert.NoError(t, store.Close())
}
