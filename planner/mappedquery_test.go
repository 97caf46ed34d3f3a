package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/chlorophyll/mapper/mapping"
	"github.com/chlorophyll/mapper/mapping/moviesfixture"
	"github.com/chlorophyll/mapper/planner"
	"github.com/chlorophyll/mapper/predicate"
	"github.com/chlorophyll/mapper/query"
	"github.com/chlorophyll/mapper/stage"
)

// movieById: Filter by a single key-column equality, spec §8 S1.
func TestBuildMovieById(t *testing.T) {
	cat := moviesfixture.New()
	q := query.Filter{
		Pred: predicate.NewEql(predicate.NewPath("id"), predicate.Const{Value: "6a7c1f00-0000-0000-0000-000000000001"}),
		Child: query.NewGroup(
			query.Select{Name: "title"},
			query.Select{Name: "genre"},
		),
	}

	mq, err := planner.Build(cat, q, nil, "Movie", planner.Options{})
	require.NoError(t, err)
	assert.Equal(t, "movies", mq.Table)
	require.Len(t, mq.Predicates, 1)
	assert.Empty(t, mq.Joins)

	frag, err := mq.Fragment(nil)
	require.NoError(t, err)
	assert.Contains(t, frag.Text, "movies.id = ?")
	require.Len(t, frag.Binds, 1)
	assert.Equal(t, "6a7c1f00-0000-0000-0000-000000000001", frag.Binds[0].Value)
}

// moviesByGenres: an In predicate over a single column, spec §8 S2.
func TestBuildMoviesByGenresIn(t *testing.T) {
	cat := moviesfixture.New()
	q := query.Filter{
		Pred:  predicate.In{X: predicate.NewPath("genre"), Values: []any{"comedy", "drama"}},
		Child: query.Select{Name: "title"},
	}

	mq, err := planner.Build(cat, q, nil, "Movie", planner.Options{})
	require.NoError(t, err)

	frag, err := mq.Fragment(nil)
	require.NoError(t, err)
	assert.Contains(t, frag.Text, "movies.genre IN (?, ?)")
	require.Len(t, frag.Binds, 2)
}

// releasedate range: a conjunction of two ordered comparisons, spec §8 S3.
func TestBuildReleaseDateRange(t *testing.T) {
	cat := moviesfixture.New()
	q := query.Filter{
		Pred: predicate.And{Terms: []predicate.Predicate{
			predicate.NewGtEql(predicate.NewPath("releaseDate"), predicate.Const{Value: "2020-01-01"}),
			predicate.NewLt(predicate.NewPath("releaseDate"), predicate.Const{Value: "2021-01-01"}),
		}},
		Child: query.Select{Name: "title"},
	}

	mq, err := planner.Build(cat, q, nil, "Movie", planner.Options{})
	require.NoError(t, err)

	frag, err := mq.Fragment(nil)
	require.NoError(t, err)
	assert.Contains(t, frag.Text, "movies.releasedate >= ?")
	assert.Contains(t, frag.Text, "movies.releasedate < ?")
	assert.Contains(t, frag.Text, " AND ")
}

// longMovies: selecting a CursorField pulls in its RequiredSiblings column
// even though isLong itself has no SQL rendering, spec §8 S4.
func TestBuildLongMoviesProjectsRequiredSibling(t *testing.T) {
	cat := moviesfixture.New()
	q := query.NewGroup(
		query.Select{Name: "title"},
		query.Select{Name: "isLong"},
	)

	mq, err := planner.Build(cat, q, nil, "Movie", planner.Options{})
	require.NoError(t, err)

	var sawDuration bool
	for _, c := range mq.Columns {
		if c.Table == "movies" && c.Column == "duration" {
			sawDuration = true
		}
	}
	assert.True(t, sawDuration, "expected duration column to be projected for isLong's RequiredSiblings")
}

// A self-join (Person.manager) orders its LEFT JOIN after the root table.
func TestBuildPersonManagerJoin(t *testing.T) {
	cat := moviesfixture.New()
	q := query.Select{
		Name:  "manager",
		Child: query.Select{Name: "name"},
	}

	mq, err := planner.Build(cat, q, nil, "Person", planner.Options{})
	require.NoError(t, err)
	assert.Equal(t, "people", mq.Table)
	require.Len(t, mq.Joins, 1)
	assert.Equal(t, "people", mq.Joins[0].Child.Table)

	frag, err := mq.Fragment(nil)
	require.NoError(t, err)
	assert.Contains(t, frag.Text, "LEFT JOIN people ON people.manager_id = people.id")
}

func TestMetaForMarksOuterJoinNullable(t *testing.T) {
	cat := moviesfixture.New()
	q := query.Select{Name: "manager", Child: query.Select{Name: "name"}}

	mq, err := planner.Build(cat, q, nil, "Person", planner.Options{})
	require.NoError(t, err)

	nameCol := mq.Columns[len(mq.Columns)-1]
	meta, ok := mq.MetaFor(nameCol)
	require.True(t, ok)
	assert.True(t, meta.IsFromOuterJoin)
	assert.True(t, meta.Nullable)
}

// A SqlField carrying a nullable GQLType (`String`, not `String!`) is
// nullable per spec §4.E step 8(a), independent of joins or Narrow.
func TestMetaForMarksSchemaNullableField(t *testing.T) {
	cat := mapping.NewCatalog()
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "Movie",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: mapping.ColumnRef{Table: "movies", Column: "id", Codec: mapping.UUIDCodec}, Key: true},
			mapping.SqlField{
				Name:    "tagline",
				Col:     mapping.ColumnRef{Table: "movies", Column: "tagline", Codec: mapping.StringCodec},
				GQLType: &ast.Type{NamedType: "String"},
			},
		},
	}))

	mq, err := planner.Build(cat, query.Select{Name: "tagline"}, nil, "Movie", planner.Options{})
	require.NoError(t, err)

	taglineCol := findColumnByName(t, mq, "tagline")
	meta, ok := mq.MetaFor(taglineCol)
	require.True(t, ok)
	assert.False(t, meta.IsFromOuterJoin)
	assert.True(t, meta.Nullable)
}

func findColumnByName(t *testing.T, mq *planner.MappedQuery, column string) mapping.ColumnRef {
	t.Helper()
	for _, c := range mq.Columns {
		if c.Column == column {
			return c
		}
	}
	t.Fatalf("column %q not found in %v", column, mq.Columns)
	return mapping.ColumnRef{}
}

// A query that selects directly against a discriminated interface type,
// with no preceding Narrow, must still resolve the interface's own field
// mappings (spec §4.F step 3: only an *undiscriminated* interface needs
// staging) and collect the interface's key/discriminator columns (spec §4.E
// step 1's "every interface it implements").
func TestBuildResolvesDiscriminatedInterfaceFieldWithoutNarrow(t *testing.T) {
	cat := mapping.NewCatalog()
	cat.AddInterfaceMapping(mapping.SqlInterfaceMapping{
		Type:          "Shape",
		Discriminator: func(c mapping.CursorLike) (string, error) { return "Circle", nil },
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: mapping.ColumnRef{Table: "shapes", Column: "id", Codec: mapping.IntCodec}, Key: true},
			mapping.SqlAttribute{Name: "kind", Col: mapping.ColumnRef{Table: "shapes", Column: "kind", Codec: mapping.StringCodec}, Discriminator: true},
			mapping.SqlField{Name: "perimeter", Col: mapping.ColumnRef{Table: "shapes", Column: "perimeter", Codec: mapping.DoubleCodec}},
		},
	})

	mq, err := planner.Build(cat, query.Select{Name: "perimeter"}, nil, "Shape", planner.Options{})
	require.NoError(t, err)

	assert.Equal(t, "shapes", mq.Table)
	perimeterCol := findColumnByName(t, mq, "perimeter")
	assert.Equal(t, "shapes", perimeterCol.Table)

	var sawID, sawKind bool
	for _, c := range mq.Columns {
		switch c.Column {
		case "id":
			sawID = true
		case "kind":
			sawKind = true
		}
	}
	assert.True(t, sawID, "interface key column should be collected even with no Narrow")
	assert.True(t, sawKind, "interface discriminator column should be collected even with no Narrow")
}

// A list-in-list field (Root.items -> Item, Item.subitems -> Item) must
// stage the inner hop so the staged join never reaches planner.Build: only
// one join (root.id=item.root_id) should appear in the plan, never the
// staged subitems join too, which would otherwise join table "item" twice
// without aliasing.
func TestBuildExcludesStagedJoinForListInList(t *testing.T) {
	cat := mapping.NewCatalog()
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "Root",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: mapping.ColumnRef{Table: "root", Column: "id", Codec: mapping.IntCodec}, Key: true},
			mapping.SqlObject{
				Name:       "items",
				TargetType: "Item",
				List:       true,
				Joins: []mapping.Join{{
					Parent: mapping.ColumnRef{Table: "root", Column: "id", Codec: mapping.IntCodec},
					Child:  mapping.ColumnRef{Table: "item", Column: "root_id", Codec: mapping.IntCodec},
				}},
			},
		},
	}))
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "Item",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: mapping.ColumnRef{Table: "item", Column: "id", Codec: mapping.IntCodec}, Key: true},
			mapping.SqlObject{
				Name:       "subitems",
				TargetType: "Item",
				List:       true,
				Joins: []mapping.Join{{
					Parent: mapping.ColumnRef{Table: "item", Column: "id", Codec: mapping.IntCodec},
					Child:  mapping.ColumnRef{Table: "item", Column: "parent_id", Codec: mapping.IntCodec},
				}},
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

	elaborated, err := stage.Elaborate(cat, q, nil, "Root")
	require.NoError(t, err)

	mq, err := planner.Build(cat, elaborated, nil, "Root", planner.Options{})
	require.NoError(t, err)

	require.Len(t, mq.Joins, 1, "the staged subitems join must not leak into the plan")
	assert.Equal(t, "item", mq.Joins[0].Child.Table)
	assert.Equal(t, "root_id", mq.Joins[0].Child.Column)
}

// A.b -> B, B.a -> A cross-type cycle: once staged, planning must not fail
// with ErrAmbiguousRoot/ErrJoinCycle from the staged-away join's endpoints
// still being counted as "child of some join".
func TestBuildResolvesRootForStagedCrossTypeCycle(t *testing.T) {
	cat := mapping.NewCatalog()
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "A",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: mapping.ColumnRef{Table: "a", Column: "id", Codec: mapping.IntCodec}, Key: true},
			mapping.SqlObject{
				Name:       "b",
				TargetType: "B",
				Joins: []mapping.Join{{
					Parent: mapping.ColumnRef{Table: "a", Column: "b_id", Codec: mapping.IntCodec},
					Child:  mapping.ColumnRef{Table: "b", Column: "id", Codec: mapping.IntCodec},
				}},
			},
		},
	}))
	require.NoError(t, cat.AddObjectMapping(mapping.ObjectMapping{
		Type: "B",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: mapping.ColumnRef{Table: "b", Column: "id", Codec: mapping.IntCodec}, Key: true},
			mapping.SqlObject{
				Name:       "a",
				TargetType: "A",
				Joins: []mapping.Join{{
					Parent: mapping.ColumnRef{Table: "b", Column: "a_id", Codec: mapping.IntCodec},
					Child:  mapping.ColumnRef{Table: "a", Column: "id", Codec: mapping.IntCodec},
				}},
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

	elaborated, err := stage.Elaborate(cat, q, nil, "A")
	require.NoError(t, err)

	mq, err := planner.Build(cat, elaborated, nil, "A", planner.Options{})
	require.NoError(t, err)

	assert.Equal(t, "a", mq.Table)
	require.Len(t, mq.Joins, 1)
	assert.Equal(t, "b", mq.Joins[0].Child.Table)
}

func TestBuildUnknownFieldReturnsPlanError(t *testing.T) {
	cat := moviesfixture.New()
	q := query.Select{Name: "doesNotExist"}

	_, err := planner.Build(cat, q, nil, "Movie", planner.Options{})
	require.Error(t, err)
}
