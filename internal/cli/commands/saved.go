package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/duckboard/internal/cache"
	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/spf13/cobra"
)

// NewSavedCommand creates the saved-query command group.
func NewSavedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved queries",
		Long: `Saved queries are named SQL templates. {{name}} in a query expands to the
saved query wrapped as a subquery. Source aliases win when a name is both.`,
	}

	cmd.AddCommand(newSavedListCommand())
	cmd.AddCommand(newSavedSaveCommand())
	cmd.AddCommand(newSavedDeleteCommand())
	cmd.AddCommand(newSavedImportCommand())
	cmd.AddCommand(newSavedExportCommand())
	return cmd
}

func newSavedListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved queries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return listSaved(cc)
		},
	}
}

func listSaved(cc *CommandContext) error {
	t := &core.Table{Columns: []string{"name", "sql"}}
	for _, name := range cc.Workspace.Saved.Names() {
		sql, _ := cc.Workspace.Saved.Get(name)
		t.Rows = append(t.Rows, []string{name, sql})
	}
	cc.Renderer.Header("Saved queries")
	return cc.Renderer.Table(t)
}

func newSavedSaveCommand() *cobra.Command {
	var (
		input string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "save NAME [SQL]",
		Short: "Save a query under a name",
		Example: `  duckboard saved save big_orders "SELECT * FROM {{orders}} WHERE amount > 100"
  duckboard saved save report -i report.sql --force`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readTemplate(cmd.InOrStdin(), args[1:], input)
			if err != nil {
				return err
			}

			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cc.Workspace.SaveQuery(args[0], sql, force, true); err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("saved {{%s}}", args[0]))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Read the SQL from file")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing query")
	return cmd
}

func newSavedDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME...",
		Aliases: []string{"rm"},
		Short:   "Delete saved queries",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, name := range args {
				if err := cc.Workspace.DeleteQuery(name, true); err != nil {
					return err
				}
				cc.Renderer.Success("deleted " + name)
			}
			return nil
		},
	}
}

func newSavedImportCommand() *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import saved queries from a YAML, TOML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0]) //nolint:gosec // G304: user-chosen import file
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			imported, skipped, err := cc.Workspace.ImportQueries(f, shareFormat(format, args[0]), force)
			if err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("imported %d queries", len(imported)))
			if len(skipped) > 0 {
				cc.Renderer.Warning("skipped existing: " + strings.Join(skipped, ", ") + " (use --force to replace)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "File format: yaml, toml or json (default: from extension)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace existing queries")
	return cmd
}

func newSavedExportCommand() *cobra.Command {
	var (
		format string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "export [NAME...]",
		Short: "Export saved queries as YAML, TOML or JSON",
		Example: `  duckboard saved export > queries.yaml
  duckboard saved export big_orders --file shared.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if file == "" {
				return cc.Workspace.ExportQueries(cmd.OutOrStdout(), shareFormat(format, ""), args...)
			}

			f, err := os.Create(file) //nolint:gosec // G304: user-chosen export file
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", file, err)
			}
			if err := cc.Workspace.ExportQueries(f, shareFormat(format, file), args...); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			cc.Renderer.Success("exported to " + file)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "File format: yaml, toml or json (default: from extension, else yaml)")
	cmd.Flags().StringVar(&file, "file", "", "Write to file instead of stdout")
	return cmd
}

// shareFormat returns the explicit format, or the one implied by path.
func shareFormat(explicit, path string) cache.Format {
	if explicit != "" {
		return cache.Format(strings.ToLower(explicit))
	}
	return cache.FormatFor(path)
}
