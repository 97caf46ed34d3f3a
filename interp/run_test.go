package interp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chlorophyll/mapper/cursor"
	"github.com/chlorophyll/mapper/interp"
	"github.com/chlorophyll/mapper/mapping"
	"github.com/chlorophyll/mapper/mapping/moviesfixture"
)

func TestRegroupSplitsRowsBackBySibling(t *testing.T) {
	cat := moviesfixture.New()
	keyCol := mapping.ColumnRef{Table: "movies", Column: "id"}
	rows := []cursor.Row{
		{"movies.id": cursor.StringCell("m1"), "movies.title": cursor.StringCell("Arrival")},
		{"movies.id": cursor.StringCell("m3"), "movies.title": cursor.StringCell("Dune")},
	}

	cursors := interp.Regroup(cat, "Movie", []string{"movie"}, rows, keyCol, []any{"m1", "m2", "m3"})
	require.Len(t, cursors, 3)

	assert.Equal(t, 1, cursors[0].Len())
	assert.Equal(t, 0, cursors[1].Len(), "sibling with no matching row gets an empty cursor, not an error")
	assert.Equal(t, 1, cursors[2].Len())

	title, err := cursors[0].FieldValue("title")
	require.NoError(t, err)
	assert.Equal(t, "Arrival", title)
}

func TestRunAllPreservesOrderAndCombinesErrors(t *testing.T) {
	fns := []func(context.Context) (int, error){
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 0, errors.New("boom") },
		func(context.Context) (int, error) { return 3, nil },
	}

	out, err := interp.RunAll(context.Background(), fns)
	require.Error(t, err)
	assert.Equal(t, []int{1, 0, 3}, out, "every fn runs to completion regardless of sibling failures")
	assert.Contains(t, err.Error(), "boom")
}

func TestRunAllNoErrorWhenAllSucceed(t *testing.T) {
	fns := []func(context.Context) (int, error){
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 2, nil },
	}

	out, err := interp.RunAll(context.Background(), fns)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, out)
}
