package stage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chlorophyll/mapper/mapping"
	"github.com/chlorophyll/mapper/mapping/moviesfixture"
	"github.com/chlorophyll/mapper/query"
	"github.com/chlorophyll/mapper/stage"
)

func col(table, column string) mapping.ColumnRef {
	return mapping.ColumnRef{Table: table, Column: column, Codec: mapping.IntCodec}
}

// Person.manager.manager... is self-referential; elaborating a query that
// selects into manager twice must stage the second hop instead of
// recursing forever, per spec §8 S5.
func TestElaborateStagesSelfReferentialManager(t *testing.T) {
	cat := moviesfixture.New()

	q := query.Select{
		Name: "manager",
		Child: query.Select{
			Name: "manager",
			Child: query.Select{Name: "name"},
		},
	}

	out, err := stage.Elaborate(cat, q, nil, "Person")
	require.NoError(t, err)

	outer, ok := out.(query.Select)
	require.True(t, ok, "first manager hop should stay inlined")
	assert.Equal(t, "manager", outer.Name)

	wrap, ok := outer.Child.(query.Wrap)
	require.True(t, ok, "second manager hop should be staged behind a Wrap boundary")
	assert.Equal(t, "manager", wrap.Name)

	defer_, ok := wrap.Child.(query.Defer)
	require.True(t, ok, "second manager hop should be staged")
	assert.Equal(t, "Person", defer_.ParentType)
	require.NotNil(t, defer_.StagingJoin)

	inner, ok := defer_.Child.(query.Select)
	require.True(t, ok, "the staged hop keeps its unelaborated child")
	assert.Equal(t, "name", inner.Name)

	staged := defer_.StagingJoin(nil, map[string]any{"manager_id": 7})
	ctx, ok := staged.(query.Context)
	require.True(t, ok)
	assert.Equal(t, []string{"manager", "manager"}, ctx.Path)
}

// A.b: B, B.a: A is a cross-type cycle: staging triggers on the second hop
// (re-entering A), and the deferred ParentType must be "B" (the type
// enclosing the staged Select), never "A" (the staged field's own target
// type) or the query's root type.
func TestElaborateStagesCrossTypeCycleWithEnclosingParentType(t *testing.T) {
	cat := mapping.NewCatalog()
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "A",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("a", "id"), Key: true},
			mapping.SqlObject{
				Name:       "b",
				TargetType: "B",
				Joins:      []mapping.Join{{Parent: col("a", "b_id"), Child: col("b", "id")}},
			},
		},
	}))
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "B",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("b", "id"), Key: true},
			mapping.SqlObject{
				Name:       "a",
				TargetType: "A",
				Joins:      []mapping.Join{{Parent: col("b", "a_id"), Child: col("a", "id")}},
			},
		},
	}))

	q := query.Select{
		Name: "b",
		Child: query.Select{
			Name:  "a",
			Child: query.Select{Name: "id"},
		},
	}

	out, err := stage.Elaborate(cat, q, nil, "A")
	require.NoError(t, err)

	outer, ok := out.(query.Select)
	require.True(t, ok)

	wrap, ok := outer.Child.(query.Wrap)
	require.True(t, ok, "re-entering A from B should stage behind a Wrap boundary")
	assert.Equal(t, "a", wrap.Name)

	defer_, ok := wrap.Child.(query.Defer)
	require.True(t, ok, "re-entering A from B should stage")
	assert.Equal(t, "B", defer_.ParentType)
}

// items (list of Item) nested inside another list-typed field (a list of
// Item itself) must stage at the inner list, with ParentType set to the
// enclosing type ("Item"), not the nested field's own target type.
func TestElaborateStagesListInListWithEnclosingParentType(t *testing.T) {
	cat := mapping.NewCatalog()
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "Root",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("root", "id"), Key: true},
			mapping.SqlObject{
				Name:       "items",
				TargetType: "Item",
				List:       true,
				Joins:      []mapping.Join{{Parent: col("root", "id"), Child: col("item", "root_id")}},
			},
		},
	}))
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "Item",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("item", "id"), Key: true},
			mapping.SqlObject{
				Name:       "subitems",
				TargetType: "Item",
				List:       true,
				Joins:      []mapping.Join{{Parent: col("item", "id"), Child: col("item", "parent_id")}},
			},
		},
	}))

	q := query.Select{
		Name: "items",
		Child: query.Select{
			Name:  "subitems",
			Child: query.Select{Name: "id"},
		},
	}

	out, err := stage.Elaborate(cat, q, nil, "Root")
	require.NoError(t, err)

	outer, ok := out.(query.Select)
	require.True(t, ok)

	wrap, ok := outer.Child.(query.Wrap)
	require.True(t, ok, "a non-leaf list nested in another non-leaf list should stage behind a Wrap boundary")
	assert.Equal(t, "subitems", wrap.Name)

	defer_, ok := wrap.Child.(query.Defer)
	require.True(t, ok, "a non-leaf list nested in another non-leaf list should stage")
	assert.Equal(t, "Item", defer_.ParentType)
}

// shape is an interface field with no discriminator: staging must occur
// even with no cycle and no list-in-list, and the deferred ParentType must
// be the schema root type ("A"), not the enclosing type ("B") or the
// field's own interface type ("Shape").
func TestElaborateStagesUndiscriminatedInterfaceWithRootParentType(t *testing.T) {
	cat := mapping.NewCatalog()
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "A",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("a", "id"), Key: true},
			mapping.SqlObject{
				Name:       "b",
				TargetType: "B",
				Joins:      []mapping.Join{{Parent: col("a", "b_id"), Child: col("b", "id")}},
			},
		},
	}))
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "B",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("b", "id"), Key: true},
			mapping.SqlObject{
				Name:       "shape",
				TargetType: "Shape",
				Joins:      []mapping.Join{{Parent: col("b", "shape_id"), Child: col("shape", "id")}},
			},
		},
	}))
	cat.AddInterfaceMapping(mapping.SqlInterfaceMapping{Type: "Shape"})

	q := query.Select{
		Name: "b",
		Child: query.Select{
			Name:  "shape",
			Child: query.Select{Name: "id"},
		},
	}

	out, err := stage.Elaborate(cat, q, nil, "A")
	require.NoError(t, err)

	outer, ok := out.(query.Select)
	require.True(t, ok)

	wrap, ok := outer.Child.(query.Wrap)
	require.True(t, ok, "an undiscriminated interface field should stage behind a Wrap boundary")
	assert.Equal(t, "shape", wrap.Name)

	defer_, ok := wrap.Child.(query.Defer)
	require.True(t, ok, "an undiscriminated interface field should stage")
	assert.Equal(t, "A", defer_.ParentType)
}

// Re-elaborating an already-elaborated tree must be a no-op (spec I7):
// elaborateSelect must not re-stage a Select whose child is already a
// Defer boundary into Defer{Child: Defer{...}}.
func TestElaborateIsIdempotent(t *testing.T) {
	cat := mapping.NewCatalog()
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "Root",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("root", "id"), Key: true},
			mapping.SqlObject{
				Name:       "items",
				TargetType: "Item",
				List:       true,
				Joins:      []mapping.Join{{Parent: col("root", "id"), Child: col("item", "root_id")}},
			},
		},
	}))
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "Item",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("item", "id"), Key: true},
			mapping.SqlObject{
				Name:       "subitems",
				TargetType: "Item",
				List:       true,
				Joins:      []mapping.Join{{Parent: col("item", "id"), Child: col("item", "parent_id")}},
			},
		},
	}))

	q := query.Select{
		Name: "items",
		Child: query.Select{
			Name:  "subitems",
			Child: query.Select{Name: "id"},
		},
	}

	once, err := stage.Elaborate(cat, q, nil, "Root")
	require.NoError(t, err)

	twice, err := stage.Elaborate(cat, once, nil, "Root")
	require.NoError(t, err)

	outerOnce, ok := once.(query.Select)
	require.True(t, ok)
	wrapOnce, ok := outerOnce.Child.(query.Wrap)
	require.True(t, ok)
	_, ok = wrapOnce.Child.(query.Defer)
	require.True(t, ok)

	outerTwice, ok := twice.(query.Select)
	require.True(t, ok)
	wrapTwice, ok := outerTwice.Child.(query.Wrap)
	require.True(t, ok, "a second Elaborate pass must leave the Wrap boundary in place")
	defer_, ok := wrapTwice.Child.(query.Defer)
	require.True(t, ok, "a second Elaborate pass must not nest a second Defer inside the first")
	assert.Equal(t, "Item", defer_.ParentType)
}

func TestElaborateLeavesAcyclicQueryUntouched(t *testing.T) {
	cat := moviesfixture.New()
	q := query.NewGroup(query.Select{Name: "title"}, query.Select{Name: "genre"})

	out, err := stage.Elaborate(cat, q, nil, "Movie")
	require.NoError(t, err)

	grp, ok := out.(query.Group)
	require.True(t, ok)
	assert.Len(t, grp.Children, 2)
	_, isDefer := grp.Children[0].(query.Defer)
	assert.False(t, isDefer)
}
