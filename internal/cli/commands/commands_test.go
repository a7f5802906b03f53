package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/duckboard/internal/cli/config"
	"github.com/leapstack-labs/duckboard/internal/cli/output"
	"github.com/leapstack-labs/duckboard/internal/cli/testutil"
	"github.com/leapstack-labs/duckboard/internal/scripts"
	logtest "github.com/leapstack-labs/duckboard/internal/testutil"
	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/duckboard/pkg/adapters/duckdb"
)

// execute runs cmd with args against cfg, returning stdout and stderr.
func execute(t *testing.T, cfg *config.Config, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, logtest.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
		subs  []string
	}{
		{cmd: NewUploadCommand(), use: "upload FILE...", flags: []string{"query"}},
		{cmd: NewPendingCommand(), use: "pending", subs: []string{"list", "edit", "promote"}},
		{cmd: NewSourcesCommand(), use: "sources", subs: []string{"list", "alias", "remove", "add-file", "preview"}},
		{cmd: NewQueryCommand(), use: "query [TEMPLATE]", flags: []string{"input", "show-sql"}},
		{cmd: NewExpandCommand(), use: "expand [TEMPLATE]", flags: []string{"input"}},
		{cmd: NewSavedCommand(), use: "saved", subs: []string{"list", "save", "delete", "import", "export"}},
		{cmd: NewScriptsCommand(), use: "scripts", subs: []string{"list", "run", "save", "delete"}},
		{cmd: NewHistoryCommand(), use: "history", flags: []string{"limit", "clear"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
			for _, sub := range tt.subs {
				found, _, err := tt.cmd.Find([]string{sub})
				require.NoError(t, err)
				assert.Equal(t, sub, found.Name())
			}
		})
	}
}

func TestParseEdit(t *testing.T) {
	tests := []struct {
		in        string
		wantRow   int
		wantField core.Field
		wantValue string
		wantErr   bool
	}{
		{in: "0:path=./data", wantRow: 0, wantField: core.FieldPath, wantValue: "./data"},
		{in: "2:alias=sales", wantRow: 2, wantField: core.FieldAlias, wantValue: "sales"},
		{in: "1:alias=", wantRow: 1, wantField: core.FieldAlias, wantValue: ""},
		{in: "1:path=a=b", wantRow: 1, wantField: core.FieldPath, wantValue: "a=b"},
		{in: "alias=sales", wantErr: true},
		{in: "x:alias=sales", wantErr: true},
		{in: "0:=sales", wantErr: true},
		{in: "0:alias", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			row, field, value, err := parseEdit(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRow, row)
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestReplEdits(t *testing.T) {
	edits, err := replEdits([]string{"0:path=/data", "0:alias=sales", "1:alias=x"})
	require.NoError(t, err)
	assert.Equal(t, map[core.Field]string{core.FieldPath: "/data", core.FieldAlias: "sales"}, edits.Edited[0])
	assert.Len(t, edits.Edited, 2)

	edits, err = replEdits([]string{"del", "2", "0"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, edits.Deleted)

	_, err = replEdits([]string{"del", "x"})
	assert.Error(t, err)
}

func TestReadTemplate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "q.sql")
	require.NoError(t, os.WriteFile(file, []byte("SELECT 2;\n"), 0o600))

	tests := []struct {
		name    string
		stdin   string
		args    []string
		input   string
		want    string
		wantErr bool
	}{
		{name: "args joined", args: []string{"SELECT", "1"}, want: "SELECT 1"},
		{name: "input file", input: file, want: "SELECT 2"},
		{name: "stdin", stdin: "  SELECT 3 ;  ", want: "SELECT 3 "},
		{name: "args win over stdin", stdin: "SELECT 3", args: []string{"SELECT 1"}, want: "SELECT 1"},
		{name: "empty", stdin: " ; ", wantErr: true},
		{name: "missing file", input: filepath.Join(t.TempDir(), "nope.sql"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readTemplate(strings.NewReader(tt.stdin), tt.args, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.want), got)
		})
	}
}

func TestSourcesAddFileThenQuery(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.NewTestConfig(dir)

	_, errOut, err := execute(t, cfg, NewSourcesCommand(), "add-file", filepath.Join(dir, "data", "orders.csv"))
	require.NoError(t, err, errOut)

	out, _, err := execute(t, cfg, NewSourcesCommand(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "OnDisk")

	out, _, err = execute(t, cfg, NewQueryCommand(), "SELECT count(*) AS n FROM {{orders}}")
	require.NoError(t, err)
	assert.Contains(t, out, "n\n2")

	out, _, err = execute(t, cfg, NewExpandCommand(), "SELECT * FROM {{orders}}")
	require.NoError(t, err)
	assert.Contains(t, out, "read_csv(")

	_, _, err = execute(t, cfg, NewSourcesCommand(), "alias", "orders", "sales")
	require.NoError(t, err)
	out, _, err = execute(t, cfg, NewQueryCommand(), "SELECT count(*) AS n FROM {{sales}}")
	require.NoError(t, err)
	assert.Contains(t, out, "n\n2")

	_, _, err = execute(t, cfg, NewSourcesCommand(), "remove", "sales")
	require.NoError(t, err)
	_, _, err = execute(t, cfg, NewQueryCommand(), "SELECT * FROM {{sales}}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown alias or query: sales")
}

func TestSourcesPreview(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.NewTestConfig(dir)

	_, errOut, err := execute(t, cfg, NewSourcesCommand(), "add-file", filepath.Join(dir, "data", "orders.csv"))
	require.NoError(t, err, errOut)

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
		errStr  string
	}{
		{name: "default limit", args: []string{"preview", "orders"}, want: []string{"region", "east", "west"}},
		{name: "first row", args: []string{"preview", "orders", "-n", "1"}, want: []string{"east"}, notWant: []string{"west"}},
		{name: "unknown alias", args: []string{"preview", "nope"}, errStr: `unknown alias "nope"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, cfg, NewSourcesCommand(), tt.args...)
			if tt.errStr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errStr)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestUpload_RunsQuery(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.NewTestConfig(dir)

	out, _, err := execute(t, cfg, NewUploadCommand(),
		filepath.Join(dir, "data", "orders.csv"),
		"--query", "SELECT sum(CAST(amount AS INTEGER)) AS total FROM {{orders}}")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered")
	assert.Contains(t, out, "total\n12")
}

func TestUpload_UnsupportedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	out, _, err := execute(t, testutil.NewTestConfig(dir), NewUploadCommand(), path)
	require.NoError(t, err)
	assert.Contains(t, out, "Unsupported")
}

func TestQuery_UnknownAliasListsSources(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.NewTestConfig(dir)

	_, _, err := execute(t, cfg, NewSourcesCommand(), "add-file", filepath.Join(dir, "data", "orders.csv"))
	require.NoError(t, err)

	_, _, err = execute(t, cfg, NewQueryCommand(), "SELECT * FROM {{ordrs}}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ordrs")
	assert.Contains(t, err.Error(), "known sources: orders")
}

func TestSavedCommands(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.NewTestConfig(dir)

	_, _, err := execute(t, cfg, NewSavedCommand(), "save", "one", "SELECT 1 AS x")
	require.NoError(t, err)

	_, _, err = execute(t, cfg, NewSavedCommand(), "save", "one", "SELECT 2 AS x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, _, err := execute(t, cfg, NewQueryCommand(), "SELECT x FROM {{one}}")
	require.NoError(t, err)
	assert.Contains(t, out, "x\n1")

	exported := filepath.Join(dir, "shared.toml")
	_, _, err = execute(t, cfg, NewSavedCommand(), "export", "--file", exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[[queries]]")

	_, _, err = execute(t, cfg, NewSavedCommand(), "delete", "one")
	require.NoError(t, err)
	out, _, err = execute(t, cfg, NewSavedCommand(), "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "SELECT 1")

	out, _, err = execute(t, cfg, NewSavedCommand(), "import", exported)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 queries")
}

func TestScriptsRun(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.NewTestConfig(dir)

	out, _, err := execute(t, cfg, NewScriptsCommand(), "run", "summary",
		"--upload", filepath.Join(dir, "data", "orders.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "orders: 2")

	_, _, err = execute(t, cfg, NewScriptsCommand(), "run", "missing")
	assert.ErrorIs(t, err, scripts.ErrNotFound)
}

func TestScriptsSaveListDelete(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.NewTestConfig(dir)

	src := filepath.Join(dir, "hello.star")
	require.NoError(t, os.WriteFile(src, []byte("def run(ctx):\n    print('hi')\n"), 0o600))
	bad := filepath.Join(dir, "bad.star")
	require.NoError(t, os.WriteFile(bad, []byte("x = 1\n"), 0o600))

	_, _, err := execute(t, cfg, NewScriptsCommand(), "save", src)
	require.NoError(t, err)
	_, _, err = execute(t, cfg, NewScriptsCommand(), "save", bad)
	require.Error(t, err)

	tr := testutil.NewTestRenderer(output.ModeCSV, false)
	cc := &CommandContext{Cfg: cfg, Loader: scripts.NewLoader(cfg.ScriptsDir), Renderer: tr.Renderer}
	require.NoError(t, listScripts(cc))
	assert.Contains(t, tr.Output(), "hello")
	assert.Contains(t, tr.Output(), "summary")
	assert.NotContains(t, tr.Output(), "bad")
	testutil.AssertNoANSI(t, tr.Output())

	_, _, err = execute(t, cfg, NewScriptsCommand(), "delete", "hello")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.ScriptsDir, "hello.star"))
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testutil.NewTestConfig(dir)

	_, _, err := execute(t, cfg, NewQueryCommand(), "SELECT 42 AS answer")
	require.NoError(t, err)

	out, _, err := execute(t, cfg, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT 42 AS answer")
	assert.Contains(t, out, string(core.QueryStatusSuccess))

	_, _, err = execute(t, cfg, NewHistoryCommand(), "--clear")
	require.NoError(t, err)
	out, _, err = execute(t, cfg, NewHistoryCommand())
	require.NoError(t, err)
	assert.NotContains(t, out, "SELECT 42")
}

type regionRow struct {
	ID     int64  `parquet:"id"`
	Region string `parquet:"region"`
}

func TestPendingPromote(t *testing.T) {
	dir := t.TempDir()
	cfg := testutil.NewTestConfig(dir)

	dataset := filepath.Join(dir, "regions")
	require.NoError(t, os.Mkdir(dataset, 0o750))
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[regionRow](&buf)
	_, err := w.Write([]regionRow{{1, "east"}, {2, "west"}, {3, "east"}})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dataset, "part-0.parquet"), buf.Bytes(), 0o600))

	// The uploaded shard does not open on its own, so it is staged.
	shard := filepath.Join(dir, "part-1.parquet")
	require.NoError(t, os.WriteFile(shard, []byte("shard bytes"), 0o600))

	out, _, err := execute(t, cfg, NewPendingCommand(), "edit", shard, "--set", "0:alias=regions")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending")
	assert.Contains(t, out, "regions")

	_, _, err = execute(t, cfg, NewPendingCommand(), "promote", shard, "--set", "0:alias=regions")
	require.Error(t, err)

	out, _, err = execute(t, cfg, NewPendingCommand(), "promote", shard,
		"--set", "0:path="+dataset, "--set", "0:alias=regions")
	require.NoError(t, err)
	assert.Contains(t, out, "promoted")

	out, _, err = execute(t, cfg, NewQueryCommand(), "SELECT count(*) AS n FROM {{regions}} WHERE region = 'east'")
	require.NoError(t, err)
	assert.Contains(t, out, "n\n2")
}

func TestPendingList_NothingStaged(t *testing.T) {
	dir := t.TempDir()
	cfg := testutil.NewTestConfig(dir)

	shard := filepath.Join(dir, "part-0.csv")
	require.NoError(t, os.WriteFile(shard, []byte(testutil.OrdersCSV), 0o600))

	// A CSV never stages, so promotion has nothing to work with.
	_, errOut, err := execute(t, cfg, NewPendingCommand(), "list", shard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pending partitions")
	assert.Contains(t, errOut, "Registered")
}
