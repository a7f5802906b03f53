package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/leapstack-labs/duckboard/pkg/core"
)

// LoadQueries reads saved queries from path. A missing file yields an empty
// set. The legacy form, a JSON array of SQL strings, is named query_1,
// query_2, ... in order.
func LoadQueries(path string) (*core.SavedQueries, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.NewSavedQueries(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read query cache: %w", err)
	}

	q, err := decodeQueries(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query cache %s: %w", path, err)
	}
	return q, nil
}

func decodeQueries(data []byte) (*core.SavedQueries, error) {
	q := core.NewSavedQueries()

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return q, nil
	}

	if trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		for i, sql := range list {
			q.Put("query_"+strconv.Itoa(i+1), sql)
		}
		return q, nil
	}

	// Walk the object token by token so file order is kept.
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object or array, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", keyTok)
		}
		var sql string
		if err := dec.Decode(&sql); err != nil {
			return nil, fmt.Errorf("query %q: %w", name, err)
		}
		q.Put(name, sql)
	}
	return q, nil
}

// SaveQueries overwrites path with q as a JSON object in insertion order.
func SaveQueries(path string, q *core.SavedQueries) error {
	data, err := encodeQueries(q)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func encodeQueries(q *core.SavedQueries) ([]byte, error) {
	var buf bytes.Buffer
	names := q.Names()
	if len(names) == 0 {
		return []byte("{}\n"), nil
	}

	buf.WriteString("{\n")
	for i, name := range names {
		sql, _ := q.Get(name)
		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query name: %w", err)
		}
		value, err := json.Marshal(sql)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query %q: %w", name, err)
		}
		buf.WriteString("    ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(names)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}
