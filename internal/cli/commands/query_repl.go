package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/duckboard/internal/scripts"
	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/spf13/cobra"
)

const (
	replPrompt         = "duckboard> "
	replContinuePrompt = "      ...> "
)

// repl is one interactive session over a single workspace.
type repl struct {
	cmd     *cobra.Command
	cc      *CommandContext
	watcher *scripts.Watcher
	// last is the most recent template run, for .save without SQL.
	last string
}

func runQueryREPL(cmd *cobra.Command, cc *CommandContext) error {
	r := &repl{cmd: cmd, cc: cc}

	if w, err := scripts.NewWatcher(cc.Cfg.ScriptsDir, cc.Logger); err != nil {
		cc.Logger.Warn("script reloading disabled", slog.String("error", err.Error()))
	} else {
		r.watcher = w
		defer func() { _ = w.Close() }()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     replHistoryFile(cc.Cfg.HistoryPath),
		AutoComplete:    r.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "DuckBoard REPL (%d sources)\n", cc.Workspace.Registry.Len())
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		r.reloadScripts()

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := r.handleDotCommand(cmd.Context(), line); quit {
				break
			}
			rl.Config.AutoComplete = r.completer()
			continue
		}

		// Accumulate multi-line SQL until semicolon
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			rl.SetPrompt(replContinuePrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		tmpl := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()

		r.last = tmpl
		r.report(runTemplate(cmd.Context(), r.cc, tmpl))
		_, _ = fmt.Fprintln(out)
	}

	return r.cc.Workspace.Persist()
}

// replHistoryFile keeps line history next to the query history database.
func replHistoryFile(historyPath string) string {
	if historyPath == "" || historyPath == ":memory:" {
		return ""
	}
	return filepath.Join(filepath.Dir(historyPath), "repl_history")
}

// reloadScripts drops compiled scripts whose files changed since the last line.
func (r *repl) reloadScripts() {
	if r.watcher == nil {
		return
	}
	if names := r.cc.Scripts.Reload(r.watcher); len(names) > 0 {
		r.cc.Renderer.Muted("reloaded scripts: " + strings.Join(names, ", "))
	}
}

func (r *repl) report(err error) {
	if err != nil {
		r.cc.Renderer.Error(err.Error())
	}
}

// handleDotCommand runs one dot-command. It reports whether the session should end.
func (r *repl) handleDotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command, args := strings.ToLower(parts[0]), parts[1:]
	cc := r.cc

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.cmd.OutOrStdout())

	case ".upload":
		if len(args) == 0 {
			cc.Renderer.Warning("Usage: .upload FILE...")
			break
		}
		r.report(uploadFiles(ctx, cc, args))

	case ".pending":
		r.report(showPending(cc))

	case ".edit":
		if len(args) == 0 {
			cc.Renderer.Warning("Usage: .edit ROW:FIELD=VALUE... | .edit del ROW...")
			break
		}
		edits, err := replEdits(args)
		if err != nil {
			r.report(err)
			break
		}
		applyEdits(cc, edits)
		r.report(showPending(cc))

	case ".promote":
		r.report(promotePending(cc))

	case ".sources":
		r.report(listSources(cc))

	case ".alias":
		if len(args) != 2 {
			cc.Renderer.Warning("Usage: .alias OLD NEW")
			break
		}
		r.report(cc.Workspace.SetAlias(ctx, args[0], args[1]))

	case ".preview":
		if len(args) < 1 || len(args) > 2 {
			cc.Renderer.Warning("Usage: .preview ALIAS [N]")
			break
		}
		n := 0
		if len(args) == 2 {
			v, err := strconv.Atoi(args[1])
			if err != nil {
				r.report(fmt.Errorf("invalid row count %q", args[1]))
				break
			}
			n = v
		}
		table, err := cc.Workspace.Preview(ctx, args[0], n)
		if err != nil {
			r.report(err)
			break
		}
		r.report(cc.Renderer.Table(table))

	case ".expand":
		expanded, err := cc.Workspace.Expand(strings.TrimSpace(strings.TrimPrefix(line, parts[0])))
		if err != nil {
			r.report(err)
			break
		}
		cc.Renderer.Println(expanded)

	case ".save":
		if len(args) == 0 {
			cc.Renderer.Warning("Usage: .save NAME [SQL]")
			break
		}
		_, sql, _ := strings.Cut(strings.TrimSpace(line[len(parts[0]):]), " ")
		sql = strings.TrimSuffix(strings.TrimSpace(sql), ";")
		if sql == "" {
			sql = r.last
		}
		if sql == "" {
			cc.Renderer.Warning("nothing to save: run a query first or give the SQL")
			break
		}
		if err := cc.Workspace.SaveQuery(args[0], sql, true, true); err != nil {
			r.report(err)
			break
		}
		cc.Renderer.Success(fmt.Sprintf("saved {{%s}}", args[0]))

	case ".saved":
		r.report(listSaved(cc))

	case ".scripts":
		r.report(listScripts(cc))

	case ".run":
		if len(args) != 1 {
			cc.Renderer.Warning("Usage: .run SCRIPT")
			break
		}
		r.report(cc.Scripts.Run(ctx, args[0], r.cmd.OutOrStdout()))

	case ".history":
		limit := defaultHistoryLimit
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				cc.Renderer.Warning("Usage: .history [N]")
				break
			}
			limit = n
		}
		r.report(showHistory(cc, limit))

	case ".clear":
		_, _ = fmt.Fprint(r.cmd.OutOrStdout(), "\033[H\033[2J")

	default:
		cc.Renderer.Warning(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

// replEdits parses ".edit" arguments: ROW:FIELD=VALUE pairs, or "del" followed by row indexes.
func replEdits(args []string) (core.EditSet, error) {
	if args[0] != "del" {
		return buildEditSet(args, nil)
	}
	rows := make([]int, 0, len(args)-1)
	for _, a := range args[1:] {
		n, err := strconv.Atoi(a)
		if err != nil {
			return core.EditSet{}, fmt.Errorf("invalid row %q", a)
		}
		rows = append(rows, n)
	}
	return buildEditSet(nil, rows)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .upload FILE...          Upload files into the session
  .pending                 Show pending partitions
  .edit ROW:FIELD=VALUE... Edit pending records (.edit del ROW... removes rows)
  .promote                 Commit every pending partition
  .sources                 List registered sources
  .alias OLD NEW           Rename a source
  .preview ALIAS [N]       Show the first rows of a source
  .expand TEMPLATE         Show a template with {{name}} tokens resolved
  .save NAME [SQL]         Save SQL (or the last query) as {{NAME}}
  .saved                   List saved queries
  .scripts                 List scripts
  .run SCRIPT              Run a script
  .history [N]             Show recent queries
  .clear                   Clear the screen
  .quit / .exit            Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - {{alias}} expands to a source, {{name}} to a saved query
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// completer offers dot-commands and {{name}} tokens for every source and saved query.
func (r *repl) completer() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	for _, alias := range r.cc.Workspace.SourceAliases() {
		items = append(items, readline.PcItem("{{"+alias+"}}"))
	}
	for _, name := range r.cc.Workspace.Saved.Names() {
		items = append(items, readline.PcItem("{{"+name+"}}"))
	}

	var scriptItems []readline.PrefixCompleterInterface
	if names, err := r.cc.Loader.Names(); err == nil {
		for _, n := range names {
			scriptItems = append(scriptItems, readline.PcItem(n))
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".upload"),
		readline.PcItem(".pending"),
		readline.PcItem(".edit"),
		readline.PcItem(".promote"),
		readline.PcItem(".sources"),
		readline.PcItem(".alias"),
		readline.PcItem(".preview"),
		readline.PcItem(".expand"),
		readline.PcItem(".save"),
		readline.PcItem(".saved"),
		readline.PcItem(".scripts"),
		readline.PcItem(".run", scriptItems...),
		readline.PcItem(".history"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
