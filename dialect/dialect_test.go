package dialect_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/chlorophyll/mapper/dialect"
)

func TestOpenNormalizesDialectName(t *testing.T) {
	drv, err := dialect.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer drv.Close()

	assert.Equal(t, dialect.SQLite, drv.Name())
}

func TestTxCommitsAndWrapsExecQuerier(t *testing.T) {
	drv, err := dialect.Open("sqlite", ":memory:")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	defer drv.Close()

	ctx := context.Background()
	_, err = drv.ExecContext(ctx, `CREATE TABLE t (v INTEGER)`)
	require.NoError(t, err)

	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	rows, err := drv.QueryContext(ctx, `SELECT v FROM t`)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var v int
	require.NoError(t, rows.Scan(&v))
	assert.Equal(t, 1, v)
}
