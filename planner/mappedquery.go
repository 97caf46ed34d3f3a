// Package planner builds the SQL Projection Planner output, MappedQuery:
// the projected column set, required joins (topologically ordered),
// WHERE-clause fragments, and per-column codec/nullability metadata for
// one elaborated query (spec §4.E). Grounded on the teacher's
// dialect/sql.Selector accumulation pattern (build columns/joins/wheres
// across one walk) and graph.Graph.Validate's topological dependency walk.
package planner

import (
	"log/slog"
	"time"

	mapper "github.com/chlorophyll/mapper"
	"github.com/chlorophyll/mapper/mapping"
	"github.com/chlorophyll/mapper/predicate"
	"github.com/chlorophyll/mapper/query"
	sqlpkg "github.com/chlorophyll/mapper/sql"
)

// ColumnMeta is the per-column record spec §4.E step 8 describes:
// (isFromOuterJoin, (codec, nullability)).
type ColumnMeta struct {
	IsFromOuterJoin bool
	Codec           mapping.Codec
	Nullable        bool
}

// PredicateEntry is one (path, type, Predicate) accumulated for the WHERE
// clause, per spec §4.E.
type PredicateEntry struct {
	Path []string
	Type string
	Pred predicate.Predicate
}

// MappedQuery is the planner's output (spec §4.E / GLOSSARY).
type MappedQuery struct {
	Table      string
	Columns    []mapping.ColumnRef
	Metas      map[string]ColumnMeta // keyed by ColumnRef.Key()
	Predicates []PredicateEntry
	Joins      []mapping.Join

	catalog *mapping.Catalog
	dialect string
}

// MetaFor returns the ColumnMeta for c, if present.
func (mq *MappedQuery) MetaFor(c mapping.ColumnRef) (ColumnMeta, bool) {
	m, ok := mq.Metas[c.Key()]
	return m, ok
}

// Options configures Build, per SPEC_FULL §2's planner.Options.
type Options struct {
	Dialect         string // sqlpkg.DialectPostgres/MySQL/SQLite; default SQLite
	Logger          *slog.Logger
	FallbackEncoder sqlpkg.Encoder // used for untyped Const literals when no typed side resolves one
	Stats           *Stats         // optional; folds this Build's outcome in if set
}

// Build walks q starting at path/typeName and produces a MappedQuery, per
// spec §4.E's numbered algorithm (steps 1–8). It is a pure function of
// (q, cat): running it twice on the same inputs yields the same output
// (spec I1).
func Build(cat *mapping.Catalog, q query.Query, path []string, typeName string, opts Options) (mq *MappedQuery, err error) {
	start := time.Now()
	if opts.Stats != nil {
		defer func() { opts.Stats.record(mq, time.Since(start), err) }()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Dialect == "" {
		opts.Dialect = sqlpkg.DialectSQLite
	}
	if opts.FallbackEncoder == nil {
		opts.FallbackEncoder = sqlpkg.Identity
	}

	acc := &accumulator{
		catalog:     cat,
		colSeen:     make(map[string]int),
		joinSeen:    make(map[string]struct{}),
		childTables: make(map[string]struct{}),
		variantCols: make(map[string]struct{}),
		logger:      opts.Logger,
	}

	if err := acc.visit(q, path, typeName); err != nil {
		return nil, err
	}

	root, err := chooseRoot(acc.columns, acc.joins)
	if err != nil {
		return nil, err
	}

	ordered, err := orderJoins(root, acc.joins)
	if err != nil {
		return nil, err
	}

	metas := buildMetas(cat, acc.columns, acc.childTables, acc.variantCols)

	opts.Logger.Debug("mapper: plan built",
		"table", root,
		"columns", len(acc.columns),
		"joins", len(ordered),
		"predicates", len(acc.predicates),
	)

	return &MappedQuery{
		Table:      root,
		Columns:    acc.columns,
		Metas:      metas,
		Predicates: acc.predicates,
		Joins:      ordered,
		catalog:    cat,
		dialect:    opts.Dialect,
	}, nil
}

func wrapPlanErr(path []string, err error) error {
	if err == nil {
		return nil
	}
	return mapper.NewPlanError(path, err)
}
