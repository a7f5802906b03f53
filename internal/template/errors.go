package template

import "fmt"

// UnknownAliasError reports the first reference in a template that names
// neither a source alias nor a saved query.
type UnknownAliasError struct {
	Name string
	Pos  Position
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("%d:%d: unknown alias or query: %s", e.Pos.Line, e.Pos.Column, e.Name)
}
