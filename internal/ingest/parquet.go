package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/parquet-go/parquet-go"
)

// readParquet reads a single-file Parquet upload. Bytes that do not open as a
// Parquet file are assumed to be one shard of a partitioned dataset.
func readParquet(data []byte) Result {
	table, err := parseParquet(data)
	if err != nil {
		return Result{
			Table:  &core.Table{},
			Type:   core.TypeParquetPartition,
			Detail: "parquet partition: " + err.Error(),
		}
	}
	return Result{Table: table, Type: core.TypeParquet}
}

func parseParquet(data []byte) (*core.Table, error) {
	pqFile, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	fields := pqFile.Schema().Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name()
	}

	reader := parquet.NewReader(pqFile)
	defer func() { _ = reader.Close() }()

	table := &core.Table{Columns: RenameDuplicates(columns)}
	for {
		row := make(map[string]interface{})
		if err := reader.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		cells := make([]string, len(columns))
		for i, name := range columns {
			cells[i] = formatCell(row[name])
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
