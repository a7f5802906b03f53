package commands

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		limit int
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently run queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if clearAll {
				if err := cc.Workspace.ClearHistory(); err != nil {
					return err
				}
				cc.Renderer.Success("history cleared")
				return nil
			}
			return showHistory(cc, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of runs to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete the recorded history")
	return cmd
}

func showHistory(cc *CommandContext, limit int) error {
	runs, err := cc.Workspace.History(limit)
	if err != nil {
		return err
	}
	cc.Renderer.Header("History")
	return cc.Renderer.Table(historyTable(runs))
}

func historyTable(runs []*core.QueryRun) *core.Table {
	t := &core.Table{Columns: []string{"started", "status", "rows", "duration", "template", "error"}}
	for _, r := range runs {
		t.Rows = append(t.Rows, []string{
			r.StartedAt.Local().Format(time.DateTime),
			string(r.Status),
			strconv.FormatInt(r.RowCount, 10),
			r.Duration.Round(time.Millisecond).String(),
			r.Template,
			r.Error,
		})
	}
	return t
}

