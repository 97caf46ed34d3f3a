// Package dialect is the driver boundary (spec §6): the thin interface a
// SQL backend implements so the Interpreter Shell can issue a planner
// Fragment without this module depending on any one driver directly.
// Grounded on velox/dialect (the teacher's own top-level dialect package,
// referenced throughout dialect/sql/driver.go's imports) and adapted from
// that file's Conn/Driver/Tx wrapping of database/sql.
package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect name constants, mirroring velox/dialect's Postgres/MySQL/SQLite
// and this module's own sql.DialectPostgres/MySQL/SQLite.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// ExecQuerier wraps the standard database/sql Exec and Query methods,
// implemented by both *sql.DB and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Driver is a dialect-aware wrapper over an ExecQuerier, the boundary the
// fetch step (dialect/fetch.go) issues a planner Fragment through.
type Driver struct {
	ExecQuerier
	name string
}

// Open opens a new connection pool for driverName (one of Postgres, MySQL,
// SQLite) using database/sql.Open; the caller must have imported the
// matching driver package for its side-effecting sql.Register call.
func Open(driverName, dataSourceName string) (*Driver, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("dialect: open %s: %w", driverName, err)
	}
	return NewDriver(driverName, db), nil
}

// NewDriver wraps an already-open ExecQuerier (typically *sql.DB) as a
// Driver for name.
func NewDriver(name string, conn ExecQuerier) *Driver {
	return &Driver{ExecQuerier: conn, name: name}
}

// Name reports the dialect name Driver was opened with, normalized to one
// of Postgres/MySQL/SQLite when the driver name carries a registration
// suffix (e.g. a telemetry-wrapped driver registered as "postgres-traced").
func (d *Driver) Name() string {
	for _, n := range []string{Postgres, MySQL, SQLite} {
		if strings.HasPrefix(d.name, n) {
			return n
		}
	}
	return d.name
}

// DB returns the underlying *sql.DB, panicking if Driver wraps a *sql.Tx
// instead (callers that opened via Open/NewDriver always get a *sql.DB).
func (d *Driver) DB() *sql.DB {
	db, ok := d.ExecQuerier.(*sql.DB)
	if !ok {
		panic("dialect: Driver does not wrap a *sql.DB")
	}
	return db
}

// Close closes the underlying connection pool.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx begins a transaction, returning a Driver-shaped wrapper so fetch can
// treat a transaction and a pool identically.
func (d *Driver) Tx(ctx context.Context) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("dialect: begin tx: %w", err)
	}
	return &Tx{Driver: &Driver{ExecQuerier: tx, name: d.name}, tx: tx}, nil
}

// Tx wraps a database/sql.Tx as a Driver plus Commit/Rollback.
type Tx struct {
	*Driver
	tx *sql.Tx
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }
