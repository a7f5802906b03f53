// Package template expands {{name}} references in SQL query templates.
//
// A reference resolves to a source alias's read expression or, failing that,
// to a saved query's text wrapped as a subquery. Substituted text is never
// rescanned, so saved queries that themselves contain references are inserted
// verbatim.
package template

import "strings"

// Lookup resolves a name. The second value is false when the name is unknown.
type Lookup func(name string) (string, bool)

// MapLookup adapts a plain map.
func MapLookup(m map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// Expand replaces every reference in tmpl. Aliases win over saved queries of the
// same name. The first unresolved reference, in template order, is returned as
// an *UnknownAliasError.
func Expand(tmpl string, aliases, saved Lookup) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tmpl))

	for _, tok := range NewLexer(tmpl).Tokenize() {
		switch tok.Type {
		case TokenText:
			sb.WriteString(tok.Value)
		case TokenAlias:
			repl, ok := resolve(tok.Value, aliases, saved)
			if !ok {
				return "", &UnknownAliasError{Name: tok.Value, Pos: tok.Pos}
			}
			sb.WriteString(repl)
		}
	}
	return sb.String(), nil
}

func resolve(name string, aliases, saved Lookup) (string, bool) {
	if aliases != nil {
		if expr, ok := aliases(name); ok {
			return expr, true
		}
	}
	if saved != nil {
		if sql, ok := saved(name); ok {
			return Subquery(sql), true
		}
	}
	return "", false
}

// Subquery wraps sql in parentheses unless it already starts with one.
func Subquery(sql string) string {
	if strings.HasPrefix(strings.TrimSpace(sql), "(") {
		return sql
	}
	return "(" + sql + ")"
}

// Aliases lists the distinct names referenced by tmpl in order of first use.
func Aliases(tmpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, tok := range NewLexer(tmpl).Tokenize() {
		if tok.Type == TokenAlias && !seen[tok.Value] {
			seen[tok.Value] = true
			names = append(names, tok.Value)
		}
	}
	return names
}

// ValidName reports whether name can be referenced as {{name}}.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !isNameRune(r) {
			return false
		}
	}
	return true
}
