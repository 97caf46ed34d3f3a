package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chlorophyll/mapper/predicate"
	"github.com/chlorophyll/mapper/query"
)

func TestDecodeSelectGroup(t *testing.T) {
	raw := `{"group": [{"select": {"name": "title"}}, {"select": {"name": "genre"}}]}`
	var jq jsonQuery
	require.NoError(t, json.Unmarshal([]byte(raw), &jq))

	q, err := jq.build()
	require.NoError(t, err)

	g, ok := q.(query.Group)
	require.True(t, ok)
	require.Len(t, g.Children, 2)
	assert.Equal(t, "title", g.Children[0].(query.Select).Name)
	assert.Equal(t, "genre", g.Children[1].(query.Select).Name)
}

func TestDecodeFilterEqlAndAnd(t *testing.T) {
	raw := `{
		"filter": {
			"pred": {"and": [
				{"eql": {"path": "id", "const": "m1"}},
				{"gtEql": {"path": "duration", "const": 100}}
			]},
			"child": {"select": {"name": "title"}}
		}
	}`
	var jq jsonQuery
	require.NoError(t, json.Unmarshal([]byte(raw), &jq))

	q, err := jq.build()
	require.NoError(t, err)

	f, ok := q.(query.Filter)
	require.True(t, ok)
	and, ok := f.Pred.(predicate.And)
	require.True(t, ok)
	require.Len(t, and.Terms, 2)

	eql, ok := and.Terms[0].(predicate.Eql)
	require.True(t, ok)
	assert.Equal(t, "id", eql.Paths()[0].String())

	sel, ok := f.Child.(query.Select)
	require.True(t, ok)
	assert.Equal(t, "title", sel.Name)
}

func TestDecodeNarrow(t *testing.T) {
	raw := `{"narrow": {"targetType": "Movie", "child": {"select": {"name": "title"}}}}`
	var jq jsonQuery
	require.NoError(t, json.Unmarshal([]byte(raw), &jq))

	q, err := jq.build()
	require.NoError(t, err)

	n, ok := q.(query.Narrow)
	require.True(t, ok)
	assert.Equal(t, "Movie", n.TargetType)
}

func TestDecodeEmptyNodeErrors(t *testing.T) {
	var jq jsonQuery
	_, err := jq.build()
	assert.Error(t, err)
}

func TestDecodeInPredicate(t *testing.T) {
	raw := `{"filter": {"pred": {"in": {"path": "genre", "values": ["comedy", "drama"]}}, "child": {"select": {"name": "title"}}}}`
	var jq jsonQuery
	require.NoError(t, json.Unmarshal([]byte(raw), &jq))

	q, err := jq.build()
	require.NoError(t, err)
	f := q.(query.Filter)
	in, ok := f.Pred.(predicate.In)
	require.True(t, ok)
	assert.Equal(t, []any{"comedy", "drama"}, in.Values)
}
