package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/leapstack-labs/duckboard/pkg/core"
)

// Tables is the committed-source snapshot.
type Tables struct {
	Files  []core.SourceRecord
	Tables []core.SourceRecord
}

// tablesFile is the on-disk shape. Every field is stored as text.
type tablesFile struct {
	Files  []map[string]string `json:"files"`
	Tables []map[string]string `json:"tables"`
}

// LoadTables reads the snapshot at path. A missing file is an empty snapshot.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Tables{}, nil
	}
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read table cache: %w", err)
	}

	var raw tablesFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tables{}, fmt.Errorf("failed to parse table cache %s: %w", path, err)
	}

	return Tables{
		Files:  fromFields(raw.Files),
		Tables: fromFields(raw.Tables),
	}, nil
}

// SaveTables overwrites path with the snapshot.
func SaveTables(path string, t Tables) error {
	raw := tablesFile{
		Files:  toFields(t.Files),
		Tables: toFields(t.Tables),
	}
	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode table cache: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

func toFields(records []core.SourceRecord) []map[string]string {
	out := make([]map[string]string, 0, len(records))
	for i := range records {
		out = append(out, records[i].ToFields())
	}
	return out
}

func fromFields(rows []map[string]string) []core.SourceRecord {
	out := make([]core.SourceRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.RecordFromFields(row))
	}
	return out
}
