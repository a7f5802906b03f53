package registry

import (
	"testing"

	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(alias, expression string) core.SourceRecord {
	return core.SourceRecord{
		Name:             alias + ".parquet",
		ContentHash:      "hash-" + alias,
		Alias:            alias,
		SourceExpression: expression,
		Validation:       core.ValidationValid,
		Location:         core.LocationOnDisk,
	}
}

func TestRegistry_Merge(t *testing.T) {
	r := New()

	conflicts := r.Merge(
		table("sales", "read_parquet('/s/*.parquet')"),
		core.SourceRecord{Name: "a.csv", Alias: "a", SourceExpression: `"a"`, Location: core.LocationInMemory},
	)

	assert.Empty(t, conflicts)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, map[string]string{
		"sales": "read_parquet('/s/*.parquet')",
		"a":     `"a"`,
	}, r.AliasMap())

	c, ok := r.CollectionOf("a")
	require.True(t, ok)
	assert.Equal(t, CollectionSession, c)
	assert.Len(t, r.Session(), 1)
	assert.Len(t, r.Tables(), 1)
}

func TestRegistry_MergeFlagsAliasCollision(t *testing.T) {
	r := New()
	r.Merge(table("sales", "read_parquet('/a/*.parquet')"))

	other := table("sales", "read_parquet('/b/*.parquet')")
	other.Name = "other.parquet"
	conflicts := r.Merge(other)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "other.parquet", conflicts[0].Record.Name)
	assert.Contains(t, conflicts[0].Reason, "already used")

	expression, ok := r.Expression("sales")
	require.True(t, ok)
	assert.Equal(t, "read_parquet('/a/*.parquet')", expression, "the earlier record wins")
}

func TestRegistry_MergeSkipsIdenticalRecord(t *testing.T) {
	r := New()
	rec := table("sales", "x")

	assert.Empty(t, r.Merge(rec))
	assert.Empty(t, r.Merge(rec))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_MergeRejectsMissingAlias(t *testing.T) {
	r := New()

	conflicts := r.Merge(table("", "x"))

	require.Len(t, conflicts, 1)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Files(t *testing.T) {
	r := New()
	r.Merge(table("t", "x"))
	r.MergeFiles(table("f", "y"))

	assert.Len(t, r.Files(), 1)
	assert.Len(t, r.Committed(), 2)
	assert.Equal(t, "t", r.Committed()[0].Alias)

	conflicts := r.MergeFiles(table("t", "z"))
	assert.Len(t, conflicts, 1, "aliases are unique across collections")
}

func TestRegistry_Remove(t *testing.T) {
	r := New()
	r.Merge(table("a", "1"), table("b", "2"), table("c", "3"))

	assert.True(t, r.Remove("b"))
	assert.False(t, r.Remove("b"))

	rec, ok := r.Lookup("c")
	require.True(t, ok)
	assert.Equal(t, "3", rec.SourceExpression)
	assert.Equal(t, []string{"a", "c"}, aliases(r.Records()))
}

func TestRegistry_Rename(t *testing.T) {
	r := New()
	r.Merge(table("a", "1"), table("b", "2"))

	require.NoError(t, r.Rename("a", "alpha"))
	_, ok := r.Lookup("a")
	assert.False(t, ok)
	rec, ok := r.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", rec.Alias)

	assert.Error(t, r.Rename("alpha", "b"), "target alias taken")
	assert.Error(t, r.Rename("missing", "x"))
	assert.Error(t, r.Rename("b", ""))
	assert.NoError(t, r.Rename("b", "b"))
}

func aliases(records []core.SourceRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Alias
	}
	return out
}
