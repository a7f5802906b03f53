package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/duckboard/internal/cli/config"
	"github.com/leapstack-labs/duckboard/internal/cli/output"
	"github.com/leapstack-labs/duckboard/internal/scripts"
	"github.com/leapstack-labs/duckboard/internal/workspace"
	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Workspace *workspace.Workspace
	Loader    *scripts.Loader
	Scripts   *scripts.Runner
	Renderer  *output.Renderer
}

// NewCommandContext opens the workspace described by the command's config.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	if cfg.HistoryPath != "" && cfg.HistoryPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryPath), 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	wcfg := cfg.WorkspaceConfig()
	wcfg.Logger = logger
	ws, err := workspace.Open(wcfg)
	if err != nil {
		return nil, nil, err
	}

	cc := newContextWithoutWorkspace(cmd, cfg, logger)
	cc.Workspace = ws
	cc.Loader = scripts.NewLoader(cfg.ScriptsDir)
	cc.Scripts = scripts.NewRunner(cc.Loader, ws, logger)

	cleanup := func() {
		if err := ws.Close(); err != nil {
			logger.Warn("failed to close workspace", slog.String("error", err.Error()))
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutWorkspace creates a CommandContext without opening the workspace.
// Useful for commands that only touch files.
func NewCommandContextWithoutWorkspace(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newContextWithoutWorkspace(cmd, cfg, config.GetLogger(cmd.Context())), nil
}

func newContextWithoutWorkspace(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) *CommandContext {
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		mode = output.ModeAuto
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// getConfig returns the config loaded by the root command, or loads one from
// the working directory when the command runs on its own.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg, nil
	}
	cfg, _, err := config.Load("", nil)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// recordColumns are the source fields shown in listings.
var recordColumns = []core.Field{
	core.FieldAlias,
	core.FieldName,
	core.FieldDeclaredType,
	core.FieldLocation,
	core.FieldValidation,
	core.FieldPath,
	core.FieldSourceExpression,
}

// recordsTable lays records out as rows, prefixed with their index.
func recordsTable(records []core.SourceRecord, fields []core.Field) *core.Table {
	t := &core.Table{Columns: make([]string, 0, len(fields)+1)}
	t.Columns = append(t.Columns, "#")
	for _, f := range fields {
		t.Columns = append(t.Columns, string(f))
	}
	for i := range records {
		row := make([]string, 0, len(fields)+1)
		row = append(row, fmt.Sprint(i))
		for _, f := range fields {
			v, _ := records[i].Get(f)
			row = append(row, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// parseEdit reads "ROW:FIELD=VALUE".
func parseEdit(s string) (int, core.Field, string, error) {
	target, value, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", "", fmt.Errorf("invalid edit %q: want ROW:FIELD=VALUE", s)
	}
	rowText, field, ok := strings.Cut(target, ":")
	if !ok || field == "" {
		return 0, "", "", fmt.Errorf("invalid edit %q: want ROW:FIELD=VALUE", s)
	}
	row, err := strconv.Atoi(rowText)
	if err != nil {
		return 0, "", "", fmt.Errorf("invalid row in edit %q", s)
	}
	return row, core.Field(field), value, nil
}

// buildEditSet groups --set and --delete flag values into one grid change.
func buildEditSet(sets []string, deletes []int) (core.EditSet, error) {
	edits := core.EditSet{Edited: make(map[int]map[core.Field]string), Deleted: deletes}
	for _, s := range sets {
		row, field, value, err := parseEdit(s)
		if err != nil {
			return core.EditSet{}, err
		}
		if edits.Edited[row] == nil {
			edits.Edited[row] = make(map[core.Field]string)
		}
		edits.Edited[row][field] = value
	}
	return edits, nil
}
