package cache

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a sharing format for saved queries.
type Format string

// Format constants.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFor picks a format from a file extension, defaulting to YAML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

type sharedQuery struct {
	Name string `yaml:"name" toml:"name"`
	SQL  string `yaml:"sql" toml:"sql"`
}

type sharedQueries struct {
	Queries []sharedQuery `yaml:"queries" toml:"queries"`
}

// Export writes q to w in the given format.
func Export(w io.Writer, q *core.SavedQueries, format Format) error {
	doc := sharedQueries{Queries: make([]sharedQuery, 0, q.Len())}
	for _, name := range q.Names() {
		sql, _ := q.Get(name)
		doc.Queries = append(doc.Queries, sharedQuery{Name: name, SQL: sql})
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	case FormatJSON:
		data, err := encodeQueries(q)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// Import reads saved queries written by Export.
func Import(r io.Reader, format Format) (*core.SavedQueries, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}

	if format == FormatJSON {
		return decodeQueries(data)
	}

	var doc sharedQueries
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unknown import format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s queries: %w", format, err)
	}

	q := core.NewSavedQueries()
	for i, sq := range doc.Queries {
		if sq.Name == "" {
			return nil, fmt.Errorf("query %d has no name", i+1)
		}
		q.Put(sq.Name, sq.SQL)
	}
	return q, nil
}
