package ingest

import "github.com/leapstack-labs/duckboard/pkg/core"

// IsDuplicate reports whether member appears under key in any row of any collection.
// Rows without the key, or with an empty value for it, are ignored.
func IsDuplicate(member string, key core.Field, collections ...[]map[core.Field]string) bool {
	known := make(map[string]struct{})
	for _, rows := range collections {
		for _, row := range rows {
			if v, ok := row[key]; ok && v != "" {
				known[v] = struct{}{}
			}
		}
	}
	_, ok := known[member]
	return ok
}

// ContainsHash is IsDuplicate over typed records keyed by content hash.
func ContainsHash(hash string, collections ...[]core.SourceRecord) bool {
	rows := make([][]map[core.Field]string, 0, len(collections))
	for _, records := range collections {
		fields := make([]map[core.Field]string, 0, len(records))
		for i := range records {
			fields = append(fields, map[core.Field]string{core.FieldContentHash: records[i].ContentHash})
		}
		rows = append(rows, fields)
	}
	return IsDuplicate(hash, core.FieldContentHash, rows...)
}
