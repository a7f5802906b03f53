package scripts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports script files that changed on disk. It does not run a
// goroutine of its own: callers Drain it between interactions.
type Watcher struct {
	w      *fsnotify.Watcher
	dir    string
	logger *slog.Logger
}

// NewWatcher watches dir, creating it if needed.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create scripts directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{w: fw, dir: dir, logger: logger}, nil
}

// Drain consumes every pending event without blocking and returns the sorted
// names of scripts that were written, created, removed or renamed.
func (w *Watcher) Drain() []string {
	seen := make(map[string]bool)
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				return sortedKeys(seen)
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != Ext {
				continue
			}
			seen[nameOf(event.Name)] = true
		case err, ok := <-w.w.Errors:
			if !ok {
				return sortedKeys(seen)
			}
			w.logger.Warn("script watcher error", slog.String("dir", w.dir), slog.Any("error", err))
		default:
			return sortedKeys(seen)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.w.Close()
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
