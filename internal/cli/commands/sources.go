package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSourcesCommand creates the sources command group.
func NewSourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage registered sources",
		Long: `List, rename and remove the sources {{alias}} tokens resolve to.

Committed sources (registered files and promoted partitions) are kept in the
cache file between runs.`,
	}

	cmd.AddCommand(newSourcesListCommand())
	cmd.AddCommand(newSourcesAliasCommand())
	cmd.AddCommand(newSourcesRemoveCommand())
	cmd.AddCommand(newSourcesAddFileCommand())
	cmd.AddCommand(newSourcesPreviewCommand())
	return cmd
}

func newSourcesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered sources",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return listSources(cc)
		},
	}
}

func listSources(cc *CommandContext) error {
	cc.Renderer.Header("Sources")
	return cc.Renderer.Table(recordsTable(cc.Workspace.Registry.Records(), recordColumns))
}

func newSourcesAliasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "alias OLD NEW",
		Short: "Rename a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cc.Workspace.SetAlias(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("renamed {{%s}} to {{%s}}", args[0], args[1]))
			return nil
		},
	}
}

func newSourcesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove ALIAS...",
		Aliases: []string{"rm"},
		Short:   "Remove sources",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, alias := range args {
				if err := cc.Workspace.RemoveSource(cmd.Context(), alias); err != nil {
					return err
				}
				cc.Renderer.Success("removed " + alias)
			}
			return nil
		},
	}
}

func newSourcesAddFileCommand() *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "add-file PATH",
		Short: "Register a file on disk as a committed source",
		Long: `Register a single CSV, XLSX or Parquet file by path. The engine reads it
in place on every query; nothing is copied.`,
		Example: `  duckboard sources add-file ./data/orders.parquet --alias orders`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := cc.Workspace.RegisterFile(args[0], alias)
			if err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("registered %s as {{%s}}", rec.Path, rec.Alias))
			return nil
		},
	}

	cmd.Flags().StringVarP(&alias, "alias", "a", "", "Alias for the source (default: derived from the file name)")
	return cmd
}

func newSourcesPreviewCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "preview ALIAS",
		Aliases: []string{"head"},
		Short:   "Show the first rows of a source",
		Example: `  duckboard sources preview orders -n 20`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			table, err := cc.Workspace.Preview(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return cc.Renderer.Table(table)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Rows to show (default: preview_limit)")
	return cmd
}
