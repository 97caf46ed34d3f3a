// Package moviesfixture builds the "movies" ObjectMapping used by spec §8's
// concrete scenarios (S1–S6) and by this module's planner/stage/cursor
// tests, plus a self-referencing "Person" mapping used by S5's cyclic
// staging scenario. It is a fixture, not core logic; production callers
// build their own mapping.Catalog from their own schema.
package moviesfixture

import "github.com/chlorophyll/mapper/mapping"

// New returns a Catalog with the "Movie" and "Person" object mappings
// described in spec §8.
func New() *mapping.Catalog {
	cat := mapping.NewCatalog()

	movie := mapping.ObjectMapping{
		Type: "Movie",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("movies", "id", mapping.UUIDCodec), Key: true},
			mapping.SqlField{Name: "title", Col: col("movies", "title", mapping.StringCodec)},
			mapping.SqlField{Name: "genre", Col: col("movies", "genre", mapping.StringCodec)},
			mapping.SqlField{Name: "releaseDate", Col: col("movies", "releasedate", mapping.StringCodec)},
			mapping.SqlField{Name: "showtime", Col: col("movies", "showtime", mapping.StringCodec)},
			mapping.SqlField{Name: "nextShowing", Col: col("movies", "nextshowing", mapping.StringCodec)},
			mapping.SqlAttribute{Name: "duration", Col: col("movies", "duration", mapping.IntCodec)},
			mapping.SqlField{Name: "categories", Col: col("movies", "categories", mapping.StringCodec)},
			mapping.SqlField{Name: "features", Col: col("movies", "features", mapping.StringCodec)},
			mapping.CursorField{
				Name:             "isLong",
				RequiredSiblings: []string{"duration"},
				Fn: func(c mapping.CursorLike) (any, error) {
					v, err := c.FieldValue("duration")
					if err != nil {
						return nil, err
					}
					var minutes int64
					switch n := v.(type) {
					case int64:
						minutes = n
					case int:
						minutes = int64(n)
					}
					return minutes >= 180, nil
				},
			},
		},
	}

	person := mapping.ObjectMapping{
		Type: "Person",
		Fields: []mapping.FieldMapping{
			mapping.SqlField{Name: "id", Col: col("people", "id", mapping.IntCodec), Key: true},
			mapping.SqlField{Name: "name", Col: col("people", "name", mapping.StringCodec)},
			mapping.SqlObject{
				Name:       "manager",
				TargetType: "Person",
				Joins: []mapping.Join{
					{Parent: col("people", "manager_id", mapping.IntCodec), Child: col("people", "id", mapping.IntCodec)},
				},
			},
		},
	}

	must(cat.AddObjectMapping(movie))
	must(cat.AddObjectMapping(person))
	return cat
}

func col(table, column string, codec mapping.Codec) mapping.ColumnRef {
	return mapping.ColumnRef{Table: table, Column: column, Codec: codec}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
