package mapper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingErrorFormatsAndUnwraps(t *testing.T) {
	err := NewMappingError("Movie", "director")
	assert.Equal(t, "mapper: mapping: Movie.director: mapper: no mapping found", err.Error())
	assert.True(t, errors.Is(err, ErrNoMapping))

	bare := NewMappingError("Movie", "")
	assert.Equal(t, "mapper: mapping: Movie: mapper: no mapping found", bare.Error())
}

func TestPlanErrorFormatsWithAndWithoutPath(t *testing.T) {
	err := NewPlanError([]string{"movieById", "reviews"}, ErrAmbiguousRoot)
	assert.Equal(t, "mapper: plan: at movieById.reviews: mapper: cannot determine a unique root table", err.Error())
	assert.True(t, errors.Is(err, ErrAmbiguousRoot))

	bare := NewPlanError(nil, ErrJoinCycle)
	assert.Equal(t, "mapper: plan: mapper: join topology is inconsistent (cycle or missing parent)", bare.Error())
}

func TestPlanErrorPathIsCopiedNotAliased(t *testing.T) {
	path := []string{"a", "b"}
	err := NewPlanError(path, ErrStagingCycle)
	path[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, err.Path)
}

func TestCursorErrorFormatsAndUnwraps(t *testing.T) {
	err := NewCursorError([]string{"movie", "cast", "0"}, ErrFailedJoinLeaf)
	assert.Equal(t, "mapper: cursor: at movie.cast.0: mapper: non-nullable leaf sourced from a failed outer join", err.Error())
	assert.True(t, errors.Is(err, ErrFailedJoinLeaf))
}

func TestNewAggregateErrorCollapsesZeroAndOne(t *testing.T) {
	assert.Nil(t, NewAggregateError())
	assert.Nil(t, NewAggregateError(nil, nil))

	single := errors.New("boom")
	got := NewAggregateError(nil, single, nil)
	assert.Same(t, single, got)
}

func TestNewAggregateErrorCombinesMultiple(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")
	got := NewAggregateError(e1, e2)

	require.IsType(t, &AggregateError{}, got)
	agg := got.(*AggregateError)
	assert.Equal(t, []error{e1, e2}, agg.Errors)

	msg := got.Error()
	assert.Contains(t, msg, "mapper: multiple errors:")
	assert.Contains(t, msg, "[1] first")
	assert.Contains(t, msg, "[2] second")
}

func TestAggregateErrorUnwrapsForErrorsIsAndAs(t *testing.T) {
	wrapped := NewMappingError("Movie", "id")
	got := NewAggregateError(ErrJoinCycle, wrapped)

	assert.True(t, errors.Is(got, ErrJoinCycle))

	var me *MappingError
	require.True(t, errors.As(got, &me))
	assert.Same(t, wrapped, me)
}

func TestEmptyAggregateErrorMessage(t *testing.T) {
	agg := &AggregateError{}
	assert.Equal(t, "mapper: no errors", agg.Error())
}
