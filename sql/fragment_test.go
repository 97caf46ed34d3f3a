package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAndOptOrOpt(t *testing.T) {
	a := Const("movies.genre = ?")
	b := Const("movies.title = ?")
	assert.Equal(t, "(movies.genre = ?) AND (movies.title = ?)", AndOpt(a, b).Text)
	assert.Equal(t, "(movies.genre = ?) OR (movies.title = ?)", OrOpt(a, b).Text)
	assert.True(t, AndOpt().IsEmpty())
	assert.Equal(t, "("+a.Text+")", AndOpt(Empty, a).Text)
}

func TestWhereAndOpt(t *testing.T) {
	assert.True(t, WhereAndOpt().IsEmpty())
	assert.True(t, WhereAndOpt(Empty, Empty).IsEmpty())
	got := WhereAndOpt(Const("movies.id = ?"))
	assert.Equal(t, " WHERE (movies.id = ?)", got.Text)
}

func TestIn(t *testing.T) {
	f, err := In("movies.genre", []any{"ACTION", "COMEDY"}, Identity)
	require.NoError(t, err)
	assert.Equal(t, "movies.genre IN (?, ?)", f.Text)
	require.Len(t, f.Binds, 2)
	assert.Equal(t, "ACTION", f.Binds[0].Value)

	_, err = In("movies.genre", nil, Identity)
	assert.ErrorIs(t, err, ErrEmptyInList)
}

func TestPlaceholdersPostgresRenumbers(t *testing.T) {
	f, err := In("movies.genre", []any{"ACTION", "COMEDY"}, Identity)
	require.NoError(t, err)
	assert.Equal(t, "movies.genre IN ($1, $2)", Placeholders(DialectPostgres, f))
	assert.Equal(t, "movies.genre IN (?, ?)", Placeholders(DialectSQLite, f))
}

func TestWithVarRoundTrip(t *testing.T) {
	ctx := WithVar(context.Background(), "statement_timeout", "5s")
	v, ok := VarFromContext(ctx, "statement_timeout")
	require.True(t, ok)
	assert.Equal(t, "5s", v)

	_, ok = VarFromContext(ctx, "missing")
	assert.False(t, ok)
}

func TestIsConstraintError(t *testing.T) {
	assert.True(t, IsUniqueConstraintError(errString("UNIQUE constraint failed: movies.id")))
	assert.True(t, IsForeignKeyConstraintError(errString("FOREIGN KEY constraint failed")))
	assert.False(t, IsConstraintError(errString("connection refused")))
}

type errString string

func (e errString) Error() string { return string(e) }
