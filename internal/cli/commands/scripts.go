package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/duckboard/internal/scripts"
	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/spf13/cobra"
)

// NewScriptsCommand creates the scripts command group.
func NewScriptsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "Manage and run Starlark scripts",
		Long: `Scripts are Starlark files in the scripts directory. Each defines run(ctx),
where ctx offers:

  ctx.query(template)  run a query and return its rows as a list of dicts
  ctx.sources()        list of source aliases
  ctx.saved()          dict of saved query name to SQL
  ctx.log(msg)         write to the log

print() output goes to standard output.`,
	}

	cmd.AddCommand(newScriptsListCommand())
	cmd.AddCommand(newScriptsRunCommand())
	cmd.AddCommand(newScriptsSaveCommand())
	cmd.AddCommand(newScriptsDeleteCommand())
	return cmd
}

func newScriptsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List scripts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContextWithoutWorkspace(cmd)
			if err != nil {
				return err
			}
			cc.Loader = scripts.NewLoader(cc.Cfg.ScriptsDir)
			return listScripts(cc)
		},
	}
}

func listScripts(cc *CommandContext) error {
	list, err := cc.Loader.Load()
	if err != nil {
		return err
	}
	t := &core.Table{Columns: []string{"name", "path"}}
	for _, s := range list {
		t.Rows = append(t.Rows, []string{s.Name, s.Path})
	}
	cc.Renderer.Header("Scripts")
	return cc.Renderer.Table(t)
}

func newScriptsRunCommand() *cobra.Command {
	var uploads []string

	cmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Run a script against the workspace",
		Example: `  duckboard scripts run summary
  duckboard scripts run summary --upload orders.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, f := range uploads {
				outcome, err := cc.Workspace.UploadFile(cmd.Context(), f)
				if err != nil {
					return err
				}
				cc.Logger.Debug("uploaded for script", slog.String("file", f), slog.String("status", string(outcome.Status)))
			}
			return cc.Scripts.Run(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringArrayVar(&uploads, "upload", nil, "Upload a file into the session before running (repeatable)")
	return cmd
}

func newScriptsSaveCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save FILE",
		Short: "Copy a script file into the scripts directory",
		Long:  `Check that a Starlark file parses and defines run(ctx), then copy it into the scripts directory.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContextWithoutWorkspace(cmd)
			if err != nil {
				return err
			}

			src, err := os.ReadFile(args[0]) //nolint:gosec // G304: user-chosen script file
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			if err := scripts.NewLoader(cc.Cfg.ScriptsDir).Save(name, src); err != nil {
				return err
			}
			cc.Renderer.Success("saved script " + name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Script name (default: file name without extension)")
	return cmd
}

func newScriptsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME...",
		Aliases: []string{"rm"},
		Short:   "Delete scripts",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContextWithoutWorkspace(cmd)
			if err != nil {
				return err
			}
			loader := scripts.NewLoader(cc.Cfg.ScriptsDir)
			for _, name := range args {
				if err := loader.Delete(name); err != nil {
					return err
				}
				cc.Renderer.Success("deleted script " + name)
			}
			return nil
		},
	}
}
