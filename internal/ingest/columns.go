package ingest

import "strconv"

// RenameDuplicates suffixes repeated column names with _2, _3, ... in order of
// appearance. The first occurrence keeps its name.
func RenameDuplicates(columns []string) []string {
	seen := make(map[string]int, len(columns))
	out := make([]string, len(columns))
	for i, col := range columns {
		seen[col]++
		if n := seen[col]; n > 1 {
			out[i] = col + "_" + strconv.Itoa(n)
			continue
		}
		out[i] = col
	}
	return out
}
