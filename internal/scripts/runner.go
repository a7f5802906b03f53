package scripts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/duckboard/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// DefaultMaxSteps bounds the work a single script run may do.
const DefaultMaxSteps uint64 = 50_000_000

// Host is the slice of the workspace a script can reach through ctx.
type Host interface {
	// Query expands template against the workspace's aliases and runs it.
	Query(ctx context.Context, template string) (*core.Table, error)
	// SourceAliases lists the aliases of registered sources.
	SourceAliases() []string
	// SavedQueries returns the saved query mapping.
	SavedQueries() map[string]string
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

var predeclared = starlark.StringDict{
	"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
}

// threadContextKey holds the Go context of the running call in thread locals.
const threadContextKey = "duckboard.context"

// Runner executes scripts found by a Loader. Compiled programs are cached
// until Forget is called for them.
type Runner struct {
	loader   *Loader
	host     Host
	logger   *slog.Logger
	maxSteps uint64

	mu       sync.Mutex
	programs map[string]*starlark.Program
}

// NewRunner creates a runner. host may be nil for runners that only compile.
func NewRunner(loader *Loader, host Host, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		loader:   loader,
		host:     host,
		logger:   logger,
		maxSteps: DefaultMaxSteps,
		programs: make(map[string]*starlark.Program),
	}
}

// SetMaxSteps changes the execution step limit. Zero means no limit.
func (r *Runner) SetMaxSteps(n uint64) {
	r.maxSteps = n
}

// Forget drops cached programs so the next run reads the files again.
// With no names every cached program is dropped.
func (r *Runner) Forget(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(names) == 0 {
		r.programs = make(map[string]*starlark.Program)
		return
	}
	for _, n := range names {
		delete(r.programs, n)
	}
}

// Reload drains w and forgets every script it reports as changed.
func (r *Runner) Reload(w *Watcher) []string {
	changed := w.Drain()
	if len(changed) > 0 {
		r.Forget(changed...)
		r.logger.Debug("scripts changed", slog.Any("names", changed))
	}
	return changed
}

func (r *Runner) program(name string) (*starlark.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prog, ok := r.programs[name]; ok {
		return prog, nil
	}

	src, err := r.loader.Read(name)
	if err != nil {
		return nil, err
	}
	path := r.loader.pathOf(name)
	_, prog, err := starlark.SourceProgramOptions(fileOptions, path, src, predeclared.Has)
	if err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	r.programs[name] = prog
	return prog, nil
}

// Run executes the script called name. print output and any non-None value
// returned by run are written to out.
func (r *Runner) Run(ctx context.Context, name string, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	prog, err := r.program(name)
	if err != nil {
		return err
	}

	thread := &starlark.Thread{
		Name: "script:" + name,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(out, msg)
		},
	}
	thread.SetLocal(threadContextKey, ctx)
	if r.maxSteps > 0 {
		thread.SetMaxExecutionSteps(r.maxSteps)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	globals, err := prog.Init(thread, predeclared)
	if err != nil {
		return wrapEvalError(name, err)
	}

	fn, ok := globals[EntryPoint].(starlark.Callable)
	if !ok {
		return &LoadError{File: r.loader.pathOf(name), Message: fmt.Sprintf("script must define %s(ctx)", EntryPoint)}
	}

	r.logger.Debug("running script", slog.String("script", name))
	result, err := starlark.Call(thread, fn, starlark.Tuple{r.newContext(name)}, nil)
	if err != nil {
		return wrapEvalError(name, err)
	}
	if result != starlark.None {
		if s, ok := starlark.AsString(result); ok {
			fmt.Fprintln(out, s)
		} else {
			fmt.Fprintln(out, result.String())
		}
	}
	return nil
}

func wrapEvalError(name string, err error) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return fmt.Errorf("script %s: %s", name, evalErr.Backtrace())
	}
	return fmt.Errorf("script %s: %w", name, err)
}

// newContext builds the ctx struct passed to run.
func (r *Runner) newContext(name string) starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("ctx"), starlark.StringDict{
		"query":   starlark.NewBuiltin("query", r.queryBuiltin),
		"sources": starlark.NewBuiltin("sources", r.sourcesBuiltin),
		"saved":   starlark.NewBuiltin("saved", r.savedBuiltin),
		"log": starlark.NewBuiltin("log", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var msg starlark.Value
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &msg); err != nil {
				return nil, err
			}
			text, ok := starlark.AsString(msg)
			if !ok {
				text = msg.String()
			}
			r.logger.Info(text, slog.String("script", name))
			return starlark.None, nil
		}),
	})
}

func (r *Runner) queryBuiltin(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var tmpl string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &tmpl); err != nil {
		return nil, err
	}
	if r.host == nil {
		return nil, fmt.Errorf("%s: no workspace attached", b.Name())
	}
	ctx, _ := thread.Local(threadContextKey).(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	table, err := r.host.Query(ctx, tmpl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return tableToList(table)
}

func (r *Runner) sourcesBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	if r.host == nil {
		return starlark.NewList(nil), nil
	}
	return stringList(r.host.SourceAliases()), nil
}

func (r *Runner) savedBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	if r.host == nil {
		return starlark.NewDict(0), nil
	}
	return stringDict(r.host.SavedQueries())
}
