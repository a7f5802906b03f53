// Package output renders command results for terminals and pipes.
package output

import "fmt"

// Mode selects how results are written.
type Mode string

// Output modes.
const (
	// ModeAuto renders tables on a terminal and markdown otherwise.
	ModeAuto     Mode = "auto"
	ModeTable    Mode = "table"
	ModeJSON     Mode = "json"
	ModeCSV      Mode = "csv"
	ModeMarkdown Mode = "md"
)

// Modes lists every accepted mode, for flag completion.
var Modes = []string{string(ModeAuto), string(ModeTable), string(ModeJSON), string(ModeCSV), string(ModeMarkdown)}

// ParseMode validates s. Empty means ModeAuto; "text" and "markdown" are accepted as aliases.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "table", "text":
		return ModeTable, nil
	case "json":
		return ModeJSON, nil
	case "csv":
		return ModeCSV, nil
	case "md", "markdown":
		return ModeMarkdown, nil
	}
	return "", fmt.Errorf("unknown output format %q (want one of auto, table, json, csv, md)", s)
}
