package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/duckboard/internal/workspace"
	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/spf13/cobra"
)

// UploadOptions holds options for the upload command.
type UploadOptions struct {
	Query string
}

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	opts := &UploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload CSV, XLSX or Parquet files into the session",
		Long: `Read files as uploads. Each table (or workbook sheet) becomes a session
source named after its file. Parquet files that look like one shard of a
partitioned dataset are staged as pending partitions instead.

Session sources last only for this invocation; use --query to query them, or
the interactive query REPL to keep them around.`,
		Example: `  duckboard upload orders.csv
  duckboard upload orders.csv people.xlsx -q "SELECT count(*) FROM {{orders}}"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := uploadFiles(cmd.Context(), cc, args); err != nil {
				return err
			}
			if opts.Query == "" {
				return nil
			}
			return runTemplate(cmd.Context(), cc, opts.Query)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Query to run after uploading")
	return cmd
}

// uploadFiles uploads each file and prints one outcome row per file.
func uploadFiles(ctx context.Context, cc *CommandContext, files []string) error {
	t := &core.Table{Columns: []string{"file", "status", "aliases", "detail"}}
	for _, f := range files {
		outcome, err := cc.Workspace.UploadFile(ctx, f)
		if err != nil {
			return err
		}
		aliases := make([]string, 0, len(outcome.Records))
		for _, rec := range outcome.Records {
			if rec.Alias != "" {
				aliases = append(aliases, rec.Alias)
			}
		}
		t.Rows = append(t.Rows, []string{f, string(outcome.Status), strings.Join(aliases, ", "), outcome.Detail})
	}
	if err := cc.Renderer.Table(t); err != nil {
		return err
	}
	if cc.Workspace.Pending.Len() > 0 {
		cc.Renderer.Muted(fmt.Sprintf("%d pending partition(s): set a path and alias, then promote", cc.Workspace.Pending.Len()))
	}
	return nil
}

// PendingOptions holds options for the pending edit and promote commands.
type PendingOptions struct {
	Sets    []string
	Deletes []int
	Promote bool
}

// NewPendingCommand creates the pending command group.
func NewPendingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Stage partitioned Parquet uploads",
		Long: `Work with pending partitions: Parquet uploads that are one shard of a
larger dataset. Each needs a path (the file or directory holding the whole
dataset) and an alias before it can be promoted to a committed source.

Pending records live for one invocation, so every subcommand takes the shard
files to stage.`,
	}

	cmd.AddCommand(newPendingListCommand())
	cmd.AddCommand(newPendingEditCommand())
	cmd.AddCommand(newPendingPromoteCommand())
	return cmd
}

func newPendingListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list FILE...",
		Short: "Show the records the files would stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := stageFiles(cmd.Context(), cc, args); err != nil {
				return err
			}
			return showPending(cc)
		},
	}
}

func newPendingEditCommand() *cobra.Command {
	opts := &PendingOptions{}

	cmd := &cobra.Command{
		Use:   "edit FILE...",
		Short: "Stage files and edit their pending records",
		Example: `  duckboard pending edit part-0.parquet --set 0:path=./sales --set 0:alias=sales
  duckboard pending edit part-0.parquet --set 0:path=./sales --set 0:alias=sales --promote`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPendingEdit(cmd, args, opts)
		},
	}

	addPendingFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.Promote, "promote", false, "Promote after editing")
	return cmd
}

func newPendingPromoteCommand() *cobra.Command {
	opts := &PendingOptions{Promote: true}

	cmd := &cobra.Command{
		Use:     "promote FILE...",
		Short:   "Stage files, apply edits and commit them as sources",
		Example: `  duckboard pending promote part-0.parquet --set 0:path=./sales --set 0:alias=sales`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPendingEdit(cmd, args, opts)
		},
	}

	addPendingFlags(cmd, opts)
	return cmd
}

func addPendingFlags(cmd *cobra.Command, opts *PendingOptions) {
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "Edit a field as ROW:FIELD=VALUE (repeatable)")
	cmd.Flags().IntSliceVar(&opts.Deletes, "delete", nil, "Delete pending rows by index")
}

func runPendingEdit(cmd *cobra.Command, files []string, opts *PendingOptions) error {
	edits, err := buildEditSet(opts.Sets, opts.Deletes)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := stageFiles(cmd.Context(), cc, files); err != nil {
		return err
	}
	applyEdits(cc, edits)
	if !opts.Promote {
		return showPending(cc)
	}
	return promotePending(cc)
}

// stageFiles uploads files, failing when none of them was staged.
func stageFiles(ctx context.Context, cc *CommandContext, files []string) error {
	for _, f := range files {
		outcome, err := cc.Workspace.UploadFile(ctx, f)
		if err != nil {
			return err
		}
		if outcome.Status != workspace.StatusPendingPartition {
			cc.Renderer.Warning(fmt.Sprintf("%s: %s (%s)", f, outcome.Status, outcome.Detail))
		}
	}
	if cc.Workspace.Pending.Len() == 0 {
		return errors.New("no pending partitions staged")
	}
	return nil
}

func applyEdits(cc *CommandContext, edits core.EditSet) {
	report := cc.Workspace.ApplyPendingEdits(edits)
	for _, s := range report.Skipped {
		cc.Renderer.Warning(s)
	}
	cc.Logger.Debug("applied pending edits",
		slog.Int("edited", report.Edited),
		slog.Int("deleted", report.Deleted),
		slog.Int("added", report.Added))
}

func showPending(cc *CommandContext) error {
	cc.Renderer.Header("Pending partitions")
	fields := []core.Field{core.FieldName, core.FieldSizeBytes, core.FieldValidation, core.FieldPath, core.FieldPathKind, core.FieldAlias}
	return cc.Renderer.Table(recordsTable(cc.Workspace.Pending.Records(), fields))
}

func promotePending(cc *CommandContext) error {
	promoted, err := cc.Workspace.PromotePending()
	if err != nil {
		_ = showPending(cc)
		return err
	}
	for _, rec := range promoted {
		cc.Renderer.Success(fmt.Sprintf("promoted %s as {{%s}}", rec.Path, rec.Alias))
	}
	return nil
}
