package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/duckboard/pkg/core"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// decodeAttempt records why one encoding failed.
type decodeAttempt struct {
	encoding string
	err      error
}

// readCSV tries each configured encoding in order; the first that both decodes
// and parses wins.
func (r *Reader) readCSV(data []byte, delimiter rune) Result {
	var attempts []decodeAttempt

	for _, name := range r.encodings {
		text, err := decode(data, name)
		if err == nil {
			var table *core.Table
			table, err = parseCSV(text, delimiter)
			if err == nil {
				r.logger.Debug("decoded csv", slog.String("encoding", name), slog.Int("rows", table.NumRows()))
				return Result{Table: table, Type: core.TypeCSV, Detail: name}
			}
		}
		attempts = append(attempts, decodeAttempt{encoding: name, err: err})
	}

	return Result{Type: core.TypeError, Detail: formatAttempts(attempts)}
}

// decode converts data from the named encoding to UTF-8.
func decode(data []byte, name string) ([]byte, error) {
	if isUTF8Name(name) {
		out, _, err := transform.Bytes(encoding.UTF8Validator, data)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isUTF8Name(name string) bool {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// parseCSV reads UTF-8 text with a header row.
func parseCSV(text []byte, delimiter rune) (*core.Table, error) {
	text = bytes.TrimPrefix(text, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(text))
	cr.Comma = delimiter

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, err
	}

	table := &core.Table{Columns: RenameDuplicates(header)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

func formatAttempts(attempts []decodeAttempt) string {
	parts := make([]string, len(attempts))
	for i, a := range attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.encoding, a.err)
	}
	return "error: " + strings.Join(parts, "; ")
}
