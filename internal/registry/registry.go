// Package registry is the alias → source view consumed by query expansion.
// It aggregates cache-loaded tables, single on-disk files, promoted partitions
// and session uploads, and keeps aliases unique across all of them.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/leapstack-labs/duckboard/pkg/core"
)

// Collection names the group a source belongs to. Tables and files are
// persisted in the cache; session sources live only as long as the process.
type Collection string

// Collection constants.
const (
	CollectionTables  Collection = "tables"
	CollectionFiles   Collection = "files"
	CollectionSession Collection = "session"
)

// Conflict describes a record Merge refused.
type Conflict struct {
	Record core.SourceRecord
	Reason string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s: %s", c.Record.Name, c.Reason)
}

type entry struct {
	record     core.SourceRecord
	collection Collection
}

// Registry maps aliases to sources in registration order.
type Registry struct {
	mu sync.RWMutex

	entries []entry
	// byAlias maps an alias to its index in entries.
	byAlias map[string]int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byAlias: make(map[string]int)}
}

// Merge adds records, routing in-memory sources to the session collection and
// on-disk ones to tables. Records equal to one already held are skipped
// silently; records without an alias or whose alias is taken are returned as
// conflicts.
func (r *Registry) Merge(records ...core.SourceRecord) []Conflict {
	var conflicts []Conflict
	for _, rec := range records {
		c := CollectionTables
		if rec.Location == core.LocationInMemory {
			c = CollectionSession
		}
		if conflict, ok := r.add(c, rec); !ok {
			conflicts = append(conflicts, conflict)
		}
	}
	return conflicts
}

// MergeFiles adds single on-disk file sources. Conflicts follow Merge.
func (r *Registry) MergeFiles(records ...core.SourceRecord) []Conflict {
	var conflicts []Conflict
	for _, rec := range records {
		if conflict, ok := r.add(CollectionFiles, rec); !ok {
			conflicts = append(conflicts, conflict)
		}
	}
	return conflicts
}

// add reports false with a conflict when rec was refused. An exact duplicate
// counts as accepted.
func (r *Registry) add(c Collection, rec core.SourceRecord) (Conflict, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.Alias == "" {
		return Conflict{Record: rec, Reason: "source has no alias"}, false
	}
	if idx, ok := r.byAlias[rec.Alias]; ok {
		if r.entries[idx].record == rec {
			return Conflict{}, true
		}
		return Conflict{
			Record: rec,
			Reason: fmt.Sprintf("alias %q is already used by %s", rec.Alias, r.entries[idx].record.Name),
		}, false
	}

	r.byAlias[rec.Alias] = len(r.entries)
	r.entries = append(r.entries, entry{record: rec, collection: c})
	return Conflict{}, true
}

// AliasMap returns alias → source expression for every held source.
func (r *Registry) AliasMap() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.entries))
	for _, e := range r.entries {
		out[e.record.Alias] = e.record.SourceExpression
	}
	return out
}

// Expression resolves an alias to its source expression.
func (r *Registry) Expression(alias string) (string, bool) {
	rec, ok := r.Lookup(alias)
	if !ok {
		return "", false
	}
	return rec.SourceExpression, true
}

// Lookup returns the source registered under alias.
func (r *Registry) Lookup(alias string) (core.SourceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byAlias[alias]
	if !ok {
		return core.SourceRecord{}, false
	}
	return r.entries[idx].record, true
}

// CollectionOf reports which collection holds alias.
func (r *Registry) CollectionOf(alias string) (Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byAlias[alias]
	if !ok {
		return "", false
	}
	return r.entries[idx].collection, true
}

// Records returns every source in registration order.
func (r *Registry) Records() []core.SourceRecord {
	return r.collect(func(Collection) bool { return true })
}

// Tables returns the persisted table sources.
func (r *Registry) Tables() []core.SourceRecord {
	return r.collect(func(c Collection) bool { return c == CollectionTables })
}

// Files returns the persisted single-file sources.
func (r *Registry) Files() []core.SourceRecord {
	return r.collect(func(c Collection) bool { return c == CollectionFiles })
}

// Committed returns every persisted source, tables first.
func (r *Registry) Committed() []core.SourceRecord {
	return append(r.Tables(), r.Files()...)
}

// Session returns the in-memory sources.
func (r *Registry) Session() []core.SourceRecord {
	return r.collect(func(c Collection) bool { return c == CollectionSession })
}

func (r *Registry) collect(keep func(Collection) bool) []core.SourceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []core.SourceRecord
	for _, e := range r.entries {
		if keep(e.collection) {
			out = append(out, e.record)
		}
	}
	return out
}

// Remove drops the source registered under alias.
func (r *Registry) Remove(alias string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byAlias[alias]
	if !ok {
		return false
	}
	r.entries = slices.Delete(r.entries, idx, idx+1)
	r.reindex()
	return true
}

// Rename moves a source to a new alias. The new alias must be free.
// Session sources keep pointing at their loaded table, so only the alias changes.
func (r *Registry) Rename(oldAlias, newAlias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byAlias[oldAlias]
	if !ok {
		return fmt.Errorf("unknown alias %q", oldAlias)
	}
	if newAlias == "" {
		return fmt.Errorf("new alias for %q is empty", oldAlias)
	}
	if oldAlias == newAlias {
		return nil
	}
	if _, taken := r.byAlias[newAlias]; taken {
		return fmt.Errorf("alias %q is already in use", newAlias)
	}

	r.entries[idx].record.Alias = newAlias
	delete(r.byAlias, oldAlias)
	r.byAlias[newAlias] = idx
	return nil
}

// Len returns the number of sources held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) reindex() {
	clear(r.byAlias)
	for i, e := range r.entries {
		r.byAlias[e.record.Alias] = i
	}
}
