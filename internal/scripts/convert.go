package scripts

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/duckboard/pkg/core"
	"go.starlark.net/starlark"
)

// tableToList renders a table as a list of column→value dicts.
// Missing trailing cells become None.
func tableToList(t *core.Table) (starlark.Value, error) {
	if t == nil {
		return starlark.NewList(nil), nil
	}
	rows := make([]starlark.Value, 0, len(t.Rows))
	for i, row := range t.Rows {
		d := starlark.NewDict(len(t.Columns))
		for j, col := range t.Columns {
			var v starlark.Value = starlark.None
			if j < len(row) {
				v = starlark.String(row[j])
			}
			if err := d.SetKey(starlark.String(col), v); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, col, err)
			}
		}
		rows = append(rows, d)
	}
	return starlark.NewList(rows), nil
}

func stringList(items []string) *starlark.List {
	vals := make([]starlark.Value, len(items))
	for i, s := range items {
		vals[i] = starlark.String(s)
	}
	return starlark.NewList(vals)
}

// stringDict builds a dict with keys in sorted order.
func stringDict(m map[string]string) (*starlark.Dict, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := starlark.NewDict(len(m))
	for _, k := range keys {
		if err := d.SetKey(starlark.String(k), starlark.String(m[k])); err != nil {
			return nil, fmt.Errorf("dict setkey %q: %w", k, err)
		}
	}
	return d, nil
}
