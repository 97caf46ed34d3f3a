package interp

import (
	"reflect"
	"strings"

	"github.com/chlorophyll/mapper/predicate"
	"github.com/chlorophyll/mapper/query"
)

// Coalesced is the result of folding N sibling single-key lookups into one
// IN-list query: Query selects every sibling's row in a single fetch;
// ValueAt maps a sibling's original index to the constant it was looking
// up, so the interpreter can later regroup the fetched cursor by that
// value and hand each sibling back its own slice, per spec §4.H's
// "N equality lookups become one IN query plus a regroup."
type Coalesced struct {
	Query   query.Query
	EqPath  predicate.Path
	ValueAt []any
}

// Coalesce looks for N (N>=2) sibling queries of the shape
//
//	Context{Path: p, Child: Select{Name: f, Child: Filter{Pred: Eql(path, Const(v)), Child: rest}}}
//
// sharing the same p, f, path and rest (rest compared structurally, value
// notwithstanding), and folds them into one query.Filter{In} wrapping a
// query.GroupBy over the shared rest, per spec §4.H / §5. It returns
// ok=false if queries don't all match the pattern, or don't share shape.
func Coalesce(queries []query.Query) (Coalesced, bool) {
	if len(queries) < 2 {
		return Coalesced{}, false
	}

	first, ok := decomposeSibling(queries[0])
	if !ok {
		return Coalesced{}, false
	}

	values := make([]any, len(queries))
	values[0] = first.Value
	for i, q := range queries[1:] {
		s, ok := decomposeSibling(q)
		if !ok {
			return Coalesced{}, false
		}
		if !pathsEqual(s.ContextPath, first.ContextPath) ||
			s.Field != first.Field ||
			s.EqPath.String() != first.EqPath.String() ||
			!reflect.DeepEqual(s.Child, first.Child) {
			return Coalesced{}, false
		}
		values[i+1] = s.Value
	}

	coalesced := query.Context{
		Path: first.ContextPath,
		Child: query.Select{
			Name: first.Field,
			Child: query.Filter{
				Pred:  predicate.In{X: first.EqPath, Values: values},
				Child: query.GroupBy{Keys: []string{first.EqPath.String()}, Child: first.Child},
			},
		},
	}
	return Coalesced{Query: coalesced, EqPath: first.EqPath, ValueAt: values}, true
}

type sibling struct {
	ContextPath []string
	Field       string
	EqPath      predicate.Path
	Value       any
	Child       query.Query
}

func decomposeSibling(q query.Query) (sibling, bool) {
	ctx, ok := q.(query.Context)
	if !ok {
		return sibling{}, false
	}
	sel, ok := ctx.Child.(query.Select)
	if !ok {
		return sibling{}, false
	}
	filt, ok := sel.Child.(query.Filter)
	if !ok {
		return sibling{}, false
	}
	eql, ok := filt.Pred.(predicate.Eql)
	if !ok {
		return sibling{}, false
	}

	if path, ok := eql.X.(predicate.Path); ok {
		if c, ok := eql.Y.(predicate.Const); ok {
			return sibling{ContextPath: ctx.Path, Field: sel.Name, EqPath: path, Value: c.Value, Child: filt.Child}, true
		}
		return sibling{}, false
	}
	if path, ok := eql.Y.(predicate.Path); ok {
		if c, ok := eql.X.(predicate.Const); ok {
			return sibling{ContextPath: ctx.Path, Field: sel.Name, EqPath: path, Value: c.Value, Child: filt.Child}, true
		}
	}
	return sibling{}, false
}

func pathsEqual(a, b []string) bool {
	return strings.Join(a, "\x1f") == strings.Join(b, "\x1f")
}
