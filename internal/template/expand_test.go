package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	aliases := MapLookup(map[string]string{
		"t1":    "read_csv('a.csv')",
		"sales": "read_parquet('/data/sales/*.parquet')",
		"dup":   "read_csv('alias-wins.csv')",
	})
	saved := MapLookup(map[string]string{
		"q1":      "SELECT 1",
		"wrapped": " (SELECT 2)",
		"nested":  "SELECT * FROM {{t1}}",
		"dup":     "SELECT 'saved'",
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no references", "SELECT 1", "SELECT 1"},
		{"alias and saved", "SELECT * FROM {{t1}} JOIN {{q1}} x", "SELECT * FROM read_csv('a.csv') JOIN (SELECT 1) x"},
		{"repeated", "{{t1}} UNION {{t1}}", "read_csv('a.csv') UNION read_csv('a.csv')"},
		{"already parenthesized", "SELECT * FROM {{wrapped}}", "SELECT * FROM  (SELECT 2)"},
		{"no recursion", "SELECT * FROM {{nested}}", "SELECT * FROM (SELECT * FROM {{t1}})"},
		{"alias wins", "{{dup}}", "read_csv('alias-wins.csv')"},
		{"glob", "SELECT count(*) FROM {{sales}}", "SELECT count(*) FROM read_parquet('/data/sales/*.parquet')"},
		{"spaced braces untouched", "SELECT '{{ t1 }}'", "SELECT '{{ t1 }}'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.input, aliases, saved)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpand_UnknownAlias(t *testing.T) {
	aliases := MapLookup(map[string]string{"known": "x"})

	_, err := Expand("SELECT * FROM {{known}} JOIN {{missing}} JOIN {{other}}", aliases, nil)
	require.Error(t, err)

	var unknown *UnknownAliasError
	require.True(t, errors.As(err, &unknown), "expected *UnknownAliasError, got %T", err)
	assert.Equal(t, "missing", unknown.Name, "first unresolved token in template order")
	assert.Equal(t, 29, unknown.Pos.Offset)
	assert.Contains(t, err.Error(), "missing")
}

func TestExpand_NilLookups(t *testing.T) {
	got, err := Expand("SELECT 1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got)

	_, err = Expand("{{a}}", nil, nil)
	require.Error(t, err)
}

func TestSubquery(t *testing.T) {
	assert.Equal(t, "(SELECT 1)", Subquery("SELECT 1"))
	assert.Equal(t, "(SELECT 1)", Subquery("(SELECT 1)"))
	assert.Equal(t, "\n(SELECT 1)", Subquery("\n(SELECT 1)"))
}

func TestAliases(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, Aliases("{{b}} {{a}} {{b}}"))
	assert.Empty(t, Aliases("SELECT 1"))
}

func TestValidName(t *testing.T) {
	for name, want := range map[string]bool{
		"sales_2023": true,
		"q-1":        true,
		"":           false,
		"has space":  false,
		"semi;":      false,
	} {
		assert.Equal(t, want, ValidName(name), name)
	}
}
