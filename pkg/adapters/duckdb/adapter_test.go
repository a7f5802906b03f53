package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/duckboard/internal/expr"
	"github.com/leapstack-labs/duckboard/internal/testutil"
	"github.com/leapstack-labs/duckboard/pkg/adapter"
	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, cfg core.AdapterConfig) *Adapter {
	t.Helper()
	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(context.Background(), cfg))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "default is in-memory",
			setupPath: func(_ *testing.T) string {
				return ""
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := tt.setupPath(t)
			connect(t, core.AdapterConfig{Path: dbPath})

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.Error(t, adp.Exec(ctx, "SELECT 1"))
	_, err := adp.Query(ctx, "SELECT 1")
	assert.Error(t, err)
	assert.Error(t, adp.LoadTable(ctx, "t", &core.Table{Columns: []string{"a"}}))
	assert.NoError(t, adp.Close(), "closing an unconnected adapter is fine")
}

func TestAdapter_LoadTableAndView(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, core.AdapterConfig{})

	require.NoError(t, adp.LoadTable(ctx, "people", &core.Table{
		Columns: []string{"id", "name"},
		Rows:    [][]string{{"1", "alice"}, {"2", "bob"}},
	}))
	require.NoError(t, adp.RegisterView(ctx, "p", expr.SessionTable("people")))

	rows, err := adp.Query(ctx, `SELECT name FROM "p" WHERE id = '2'`)
	require.NoError(t, err)
	table, err := adapter.ScanTable(rows, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"bob"}}, table.Rows)

	// Reloading replaces the table.
	require.NoError(t, adp.LoadTable(ctx, "people", &core.Table{
		Columns: []string{"id", "name"},
		Rows:    [][]string{{"3", "carol"}},
	}))
	rows, err = adp.Query(ctx, `SELECT count(*) FROM "people"`)
	require.NoError(t, err)
	table, err = adapter.ScanTable(rows, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}}, table.Rows)
}

func TestAdapter_ViewOverCSVFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("region,amount\nnorth,10\nsouth,5\nnorth,1\n"), 0o600))

	adp := connect(t, core.AdapterConfig{})
	require.NoError(t, adp.RegisterView(ctx, "sales", expr.ReadCSV(filepath.ToSlash(path))))

	rows, err := adp.Query(ctx, `SELECT region, sum(amount) FROM sales GROUP BY 1 ORDER BY 1`)
	require.NoError(t, err)
	table, err := adapter.ScanTable(rows, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"north", "11"}, {"south", "5"}}, table.Rows)
}

func TestConnect_WithSettings(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, core.AdapterConfig{
		Params: map[string]any{
			"settings": map[string]any{
				"threads": "2",
			},
		},
	})

	rows, err := adp.Query(ctx, "SELECT current_setting('threads')")
	require.NoError(t, err)
	table, err := adapter.ScanTable(rows, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2"}}, table.Rows)
}

func TestConnect_InvalidParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), core.AdapterConfig{
		Params: map[string]any{"extensions": []any{"bad name"}},
	})
	require.Error(t, err)
	assert.False(t, adp.IsConnected())
}

func TestRegistered(t *testing.T) {
	adp, err := adapter.Open(context.Background(), core.AdapterConfig{Type: "duckdb"}, nil)
	require.NoError(t, err)
	defer func() { _ = adp.Close() }()
	assert.Equal(t, "duckdb", adp.DialectName())
}
