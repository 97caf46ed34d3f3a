package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chlorophyll/mapper/predicate"
)

func TestNewGroupFlattensAndDropsEmpty(t *testing.T) {
	g := NewGroup(
		Select{Name: "title"},
		Group{Children: []Query{Select{Name: "genre"}, Empty{}}},
		Empty{},
	)
	grp, ok := g.(Group)
	require.True(t, ok)
	assert.Len(t, grp.Children, 2)
	assert.Equal(t, "title", grp.Children[0].(Select).Name)
	assert.Equal(t, "genre", grp.Children[1].(Select).Name)
}

func TestMergeQueriesFoldsSameAlias(t *testing.T) {
	merged := MergeQueries([]Query{
		Select{Name: "movie", Child: Select{Name: "title"}},
		Select{Name: "movie", Child: Select{Name: "genre"}},
	})
	sel, ok := merged.(Select)
	require.True(t, ok)
	assert.Equal(t, "movie", sel.Name)
	grp, ok := sel.Child.(Group)
	require.True(t, ok)
	assert.Len(t, grp.Children, 2)
}

func TestMergeQueriesCoalescesNarrow(t *testing.T) {
	merged := MergeQueries([]Query{
		Narrow{TargetType: "Cat", Child: Select{Name: "name"}},
		Narrow{TargetType: "Cat", Child: Select{Name: "claws"}},
	})
	n, ok := merged.(Narrow)
	require.True(t, ok)
	assert.Equal(t, "Cat", n.TargetType)
	grp, ok := n.Child.(Group)
	require.True(t, ok)
	assert.Len(t, grp.Children, 2)
}

func TestMkPathQuerySharesPrefixes(t *testing.T) {
	q := MkPathQuery([][]string{{"a", "b"}, {"a", "c"}, {"d"}})
	grp, ok := q.(Group)
	require.True(t, ok)
	require.Len(t, grp.Children, 2)
	a := grp.Children[0].(Select)
	assert.Equal(t, "a", a.Name)
	abGroup := a.Child.(Group)
	assert.Len(t, abGroup.Children, 2)
}

func TestRootNameLooksThroughWrappers(t *testing.T) {
	q := Environment{Env: map[string]any{"x": 1}, Child: Rename{Name: "renamed", Child: Select{Name: "movieById"}}}
	name, ok := RootName(q)
	require.True(t, ok)
	assert.Equal(t, "movieById", name)
}

func TestSubstChild(t *testing.T) {
	q := Wrap{Name: "w", Child: Select{Name: "movie", Child: Select{Name: "title"}}}
	replaced := SubstChild(q, Select{Name: "genre"})
	w := replaced.(Wrap)
	sel := w.Child.(Select)
	assert.Equal(t, "genre", sel.Child.(Select).Name)
}

func TestMapFields(t *testing.T) {
	q := NewGroup(Select{Name: "a"}, Select{Name: "b"})
	names := MapFields(q, func(s Select) string { return s.Name })
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestFilterReferencesPredicate(t *testing.T) {
	f := Filter{Pred: predicate.NewEql(predicate.NewPath("id"), predicate.Const{Value: "x"}), Child: Select{Name: "title"}}
	assert.Equal(t, "id", f.Pred.Paths()[0].String())
}
