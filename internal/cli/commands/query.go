package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/leapstack-labs/duckboard/internal/cli/output"
	"github.com/leapstack-labs/duckboard/internal/template"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input   string
	ShowSQL bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [TEMPLATE]",
		Short: "Run a query over registered sources",
		Long: `Run a SQL template. Every {{name}} is replaced by the source registered
under that alias, or by a saved query wrapped as a subquery.

When invoked without arguments on a terminal, enters interactive REPL mode.
Otherwise the template is read from --input or standard input.`,
		Example: `  # Query a committed source
  duckboard query "SELECT * FROM {{orders}} LIMIT 10"

  # Reuse a saved query
  duckboard query "SELECT count(*) FROM {{big_orders}}"

  # Read the template from a file, output as JSON
  duckboard query -i report.sql -o json

  # Interactive mode
  duckboard query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read the template from file")
	cmd.Flags().BoolVar(&opts.ShowSQL, "show-sql", false, "Print the expanded SQL before the results")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	interactive := len(args) == 0 && opts.Input == "" && output.IsTerminal(cmd.InOrStdin())

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if interactive {
		return runQueryREPL(cmd, cc)
	}

	tmpl, err := readTemplate(cmd.InOrStdin(), args, opts.Input)
	if err != nil {
		return err
	}
	if opts.ShowSQL {
		expanded, err := cc.Workspace.Expand(tmpl)
		if err != nil {
			return err
		}
		cc.Renderer.Muted(expanded)
	}
	return runTemplate(cmd.Context(), cc, tmpl)
}

// readTemplate returns the template from args, the input file or stdin, in that order.
func readTemplate(stdin io.Reader, args []string, input string) (string, error) {
	var tmpl string
	switch {
	case len(args) > 0:
		tmpl = strings.Join(args, " ")
	case input != "":
		data, err := os.ReadFile(input) //nolint:gosec // G304: user-chosen template file
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", input, err)
		}
		tmpl = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		tmpl = string(data)
	}

	tmpl = strings.TrimSuffix(strings.TrimSpace(tmpl), ";")
	if tmpl == "" {
		return "", errors.New("no query given")
	}
	return tmpl, nil
}

// runTemplate runs tmpl in the workspace and renders the result.
func runTemplate(ctx context.Context, cc *CommandContext, tmpl string) error {
	res, err := cc.Workspace.Run(ctx, tmpl)
	if err != nil {
		var unknown *template.UnknownAliasError
		if errors.As(err, &unknown) {
			return fmt.Errorf("%w (known sources: %s)", err, strings.Join(cc.Workspace.SourceAliases(), ", "))
		}
		return err
	}
	if err := cc.Renderer.Table(res.Table); err != nil {
		return err
	}
	cc.Logger.Debug("rendered query", slog.Duration("duration", res.Duration.Round(time.Millisecond)))
	return nil
}

// NewExpandCommand creates the expand command.
func NewExpandCommand() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "expand [TEMPLATE]",
		Short: "Print a template with every {{name}} resolved",
		Example: `  duckboard expand "SELECT * FROM {{orders}}"
  # SELECT * FROM read_parquet('/data/orders/*.parquet')`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := readTemplate(cmd.InOrStdin(), args, input)
			if err != nil {
				return err
			}

			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			expanded, err := cc.Workspace.Expand(tmpl)
			if err != nil {
				return err
			}
			cc.Renderer.Println(expanded)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Read the template from file")
	return cmd
}
