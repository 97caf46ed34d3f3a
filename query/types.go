// Package query defines the query algebra: a tagged tree of operators that
// an elaborated GraphQL query is translated into before SQL projection
// planning. Every type in this package is a structural value; nothing here
// evaluates a query or touches a database.
package query

import "github.com/chlorophyll/mapper/predicate"

// Query is the sum type of query-algebra nodes. Implementations are all
// value or pointer types in this package; the private marker method keeps
// the sum closed, the same discriminant idiom the teacher uses for its
// predicate and edge sum types.
type Query interface {
	queryNode()
}

// Select projects a named field, optionally under an alias, continuing
// into child for whatever the field selects.
type Select struct {
	Name  string
	Alias string
	Child Query
}

func (Select) queryNode() {}

// EffectiveAlias returns Alias if set, otherwise Name.
func (s Select) EffectiveAlias() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// Group holds a list of sibling selections. A Group of Group is always
// flattened by MergeQueries/NewGroup; callers should prefer NewGroup.
type Group struct {
	Children []Query
}

func (Group) queryNode() {}

// NewGroup builds a Group, flattening any nested Group children and
// dropping Empty children, per spec §3's "Group of Group is flattened."
func NewGroup(qs ...Query) Query {
	flat := make([]Query, 0, len(qs))
	for _, q := range qs {
		switch g := q.(type) {
		case Group:
			switch inner := NewGroup(g.Children...).(type) {
			case Group:
				flat = append(flat, inner.Children...)
			case Empty:
			default:
				flat = append(flat, inner)
			}
		case Empty:
			continue
		default:
			if q == nil {
				continue
			}
			flat = append(flat, q)
		}
	}
	switch len(flat) {
	case 0:
		return Empty{}
	case 1:
		return flat[0]
	default:
		return Group{Children: flat}
	}
}

// Unique asserts the child resolves to exactly one row (e.g. lookup by key).
type Unique struct {
	Child Query
}

func (Unique) queryNode() {}

// Filter applies pred before continuing into Child.
type Filter struct {
	Pred  predicate.Predicate
	Child Query
}

func (Filter) queryNode() {}

// Narrow restricts the current object to TargetType before continuing.
type Narrow struct {
	TargetType string
	Child      Query
}

func (Narrow) queryNode() {}

// Wrap renames the result of Child to Name in the surrounding shape without
// changing the underlying selection — used to introduce staging boundaries.
type Wrap struct {
	Name  string
	Child Query
}

func (Wrap) queryNode() {}

// Rename changes the field name reported to the cursor without affecting
// how Child is planned.
type Rename struct {
	Name  string
	Child Query
}

func (Rename) queryNode() {}

// Limit bounds the number of rows/groups returned by Child to N.
type Limit struct {
	N     int
	Child Query
}

func (Limit) queryNode() {}

// Offset skips the first N rows/groups returned by Child.
type Offset struct {
	N     int
	Child Query
}

func (Offset) queryNode() {}

// OrderSelection is a single ordering key: a term extractor plus direction
// flags. Ascending/NullsLast mirror spec §4.A's OrderSelection[T].
type OrderSelection struct {
	Term      predicate.Term
	Ascending bool
	NullsLast bool
}

// OrderBy sorts Child's results by Sels, tie-breaking left to right.
type OrderBy struct {
	Sels  []OrderSelection
	Child Query
}

func (OrderBy) queryNode() {}

// GroupBy partitions Child's results by Keys.
type GroupBy struct {
	Keys  []string
	Child Query
}

func (GroupBy) queryNode() {}

// Count replaces Child's result with its cardinality.
type Count struct {
	Child Query
}

func (Count) queryNode() {}

// Introspect delegates schema introspection to the general interpreter; it
// contributes nothing to SQL planning (spec §4.E step 5, §6).
type Introspect struct {
	Schema string
	Child  Query
}

func (Introspect) queryNode() {}

// Environment threads an opaque key/value environment down to Child,
// available to CursorField closures.
type Environment struct {
	Env   map[string]any
	Child Query
}

func (Environment) queryNode() {}

// Component marks a sub-query answered by a different interpreter
// component entirely (e.g. a non-SQL resolver); it passes through SQL
// planning untouched (spec §6).
type Component struct {
	Mapping string
	Join    bool
	Child   Query
}

func (Component) queryNode() {}

// Defer marks a staging boundary inserted by the Staging Elaborator
// (spec §4.F). StagingJoin is evaluated by the interpreter against a
// cursor to produce the deferred sub-query; ParentType records the type
// context the deferred query must be re-planned against.
type Defer struct {
	StagingJoin func(parentPath []string, parentFields map[string]any) Query
	Child       Query
	ParentType  string
}

func (Defer) queryNode() {}

// TransformCursor post-processes the cursor produced for Child.
type TransformCursor struct {
	Fn    func(any) (any, error)
	Child Query
}

func (TransformCursor) queryNode() {}

// Context jumps planning to an absolute path before continuing into Child,
// used by staging joins to re-enter the schema root (spec §4.F).
type Context struct {
	Path  []string
	Child Query
}

func (Context) queryNode() {}

// Skip unconditionally contributes nothing to planning or results.
type Skip struct{}

func (Skip) queryNode() {}

// UntypedNarrow is Narrow's untyped-query counterpart, used before a query
// has been checked against the schema; it contributes nothing to SQL
// planning (spec §4.E step 5).
type UntypedNarrow struct {
	TargetType string
	Child      Query
}

func (UntypedNarrow) queryNode() {}

// Empty is the terminal, content-free query node and the merge identity.
type Empty struct{}

func (Empty) queryNode() {}

// UntypedSelect is Select's pre-validation counterpart: it additionally
// carries a directive list which the untyped merger concatenates
// (spec §4.A "two separate mergers exist").
type UntypedSelect struct {
	Name       string
	Alias      string
	Directives []string
	Child      Query
}

func (UntypedSelect) queryNode() {}
