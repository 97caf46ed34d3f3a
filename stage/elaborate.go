// Package stage implements the Staging Elaborator (spec §4.F): it rewrites
// a query-algebra tree so that joins which would otherwise recurse forever
// (type cycles), explode combinatorially (a list nested inside another
// list), or cannot be resolved without first seeing a row (an undiscriminated
// interface) are cut at a Wrap(Defer(...)) boundary instead of being
// inlined as further SQL joins. Grounded on the teacher's
// graph.Graph.Validate pre-order visited-set cycle detection
// (graph/doc.go's "Edge linking... ensuring bidirectional edges match"),
// repurposed from schema-edge validation to query-tree rewriting.
package stage

import (
	mapper "github.com/chlorophyll/mapper"
	"github.com/chlorophyll/mapper/mapping"
	"github.com/chlorophyll/mapper/predicate"
	"github.com/chlorophyll/mapper/query"
)

// Seen is the elaborator's visit-state, threaded down the query tree:
// context is the stack of enclosing type names whose fields were descended
// through on the way from the root to the current node, plus the target
// type of any enclosing Narrow (for cycle detection: a Select whose target
// type is already among them is staged), and inList tracks whether the
// current position is already beneath an unresolved list boundary.
type Seen struct {
	context   []string
	seenTypes map[string]struct{}
	inList    bool
	rootType  string
}

func newSeen(rootType string) Seen {
	return Seen{seenTypes: make(map[string]struct{}), rootType: rootType}
}

func (s Seen) push(typeName string, list bool) Seen {
	next := Seen{
		context:   append(append([]string(nil), s.context...), typeName),
		seenTypes: make(map[string]struct{}, len(s.seenTypes)+1),
		inList:    s.inList || list,
		rootType:  s.rootType,
	}
	for t := range s.seenTypes {
		next.seenTypes[t] = struct{}{}
	}
	next.seenTypes[typeName] = struct{}{}
	return next
}

func (s Seen) has(typeName string) bool {
	_, ok := s.seenTypes[typeName]
	return ok
}

// Elaborate rewrites q, staging joins per spec §4.F, and returns the
// rewritten tree. typeName is the GraphQL object type q is evaluated
// against at path.
func Elaborate(cat *mapping.Catalog, q query.Query, path []string, typeName string) (query.Query, error) {
	return elaborate(cat, newSeen(typeName), q, path, typeName)
}

func elaborate(cat *mapping.Catalog, seen Seen, q query.Query, path []string, typeName string) (query.Query, error) {
	switch n := q.(type) {
	case query.Select:
		return elaborateSelect(cat, seen, n, path, typeName)
	case query.Group:
		children := make([]query.Query, len(n.Children))
		for i, c := range n.Children {
			ec, err := elaborate(cat, seen, c, path, typeName)
			if err != nil {
				return nil, err
			}
			children[i] = ec
		}
		return query.Group{Children: children}, nil
	case query.Filter:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.Narrow:
		child, err := elaborate(cat, seen.push(n.TargetType, seen.inList), n.Child, path, n.TargetType)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.Context:
		child, err := elaborate(cat, seen, n.Child, n.Path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.Unique:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.Wrap:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.Rename:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.Limit:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.Offset:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.OrderBy:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.GroupBy:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.Count:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.Environment:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	case query.TransformCursor:
		child, err := elaborate(cat, seen, n.Child, path, typeName)
		if err != nil {
			return nil, err
		}
		n.Child = child
		return n, nil
	default:
		// Empty, Skip, Component, Defer (already staged), Introspect,
		// UntypedNarrow, UntypedSelect: nothing to rewrite.
		return q, nil
	}
}

func elaborateSelect(cat *mapping.Catalog, seen Seen, n query.Select, path []string, typeName string) (query.Query, error) {
	if _, ok := n.Child.(query.Defer); ok {
		// Already staged (spec I7: re-elaborating an elaborated tree must be
		// a no-op). Re-running the field/cycle checks below against a fresh
		// Seen would re-stage an already-Defer'd child into
		// Defer{Child: Defer{...}} instead of leaving it alone.
		return n, nil
	}

	fm, err := cat.FieldMappingFor(path, typeName, n.Name)
	if err != nil {
		return nil, mapper.NewPlanError(path, err)
	}

	obj, isObject := fm.(mapping.SqlObject)
	if !isObject {
		return n, nil // leaf fields never introduce a staging boundary
	}

	childPath := append(append([]string(nil), path...), n.Name)

	cycle := seen.has(obj.TargetType)
	listInList := obj.List && seen.inList

	switch {
	case cycle || listInList:
		// spec §4.F step 2: deferred parentType is tpe.underlyingObject, the
		// type enclosing this Select — not the child's own type. Staging
		// introduces a Wrap(Defer(...)) boundary (query/types.go's own doc
		// comment), not a Select whose child happens to be a Defer: a Select
		// still asks planner/accumulate.go's selectField to add the staged
		// join's endpoint columns before recursing into the deferred child,
		// which defeats the point of staging the join out of this plan.
		return query.Wrap{Name: n.Name, Child: stageDefer(cat, obj, n.Child, childPath, typeName)}, nil
	case isUndiscriminatedInterface(cat, obj.TargetType):
		// spec §4.F step 3: deferred parentType is the schema root type.
		return query.Wrap{Name: n.Name, Child: stageDefer(cat, obj, n.Child, childPath, seen.rootType)}, nil
	}

	child, err := elaborate(cat, seen.push(typeName, obj.List), n.Child, childPath, obj.TargetType)
	if err != nil {
		return nil, err
	}
	n.Child = child
	return n, nil
}

// isUndiscriminatedInterface reports whether typeName names an interface
// mapping with no discriminator closure, per spec §4.F step 3.
func isUndiscriminatedInterface(cat *mapping.Catalog, typeName string) bool {
	ifm, ok := cat.InterfaceMapping(typeName)
	return ok && ifm.Discriminator == nil
}

// stageDefer builds the Defer half of the Wrap(Defer(...)) boundary for a
// staged join, per spec §4.F; the caller supplies the Wrap. The original, not-yet-elaborated child query is captured
// by StagingJoin's closure and re-elaborated lazily — once the interpreter
// has a row to join against — rather than eagerly here, which is what lets
// this break an otherwise-infinite recursion. parentType is the deferred
// node's ParentType: the enclosing type for a cycle/list-in-list boundary,
// or the schema root type for an undiscriminated-interface boundary.
func stageDefer(cat *mapping.Catalog, obj mapping.SqlObject, child query.Query, childPath []string, parentType string) query.Query {
	joins := append([]mapping.Join(nil), obj.Joins...)
	targetType := obj.TargetType

	stagingJoin := func(parentPath []string, parentFields map[string]any) query.Query {
		preds := make([]predicate.Predicate, 0, len(joins))
		for _, j := range joins {
			preds = append(preds, predicate.NewEql(predicate.NewPath(j.Child.Column), predicate.Const{Value: parentFields[j.Parent.Column]}))
		}
		var pred predicate.Predicate
		switch len(preds) {
		case 0:
			pred = predicate.And{}
		case 1:
			pred = preds[0]
		default:
			pred = predicate.And{Terms: preds}
		}

		elaborated, err := Elaborate(cat, child, childPath, targetType)
		if err != nil {
			// planner.Build re-resolves the same field mapping and returns
			// the same error as a *mapper.PlanError; falling back to the
			// unelaborated child keeps that error path reachable instead of
			// panicking inside a closure that cannot return one.
			elaborated = child
		}

		return query.Context{Path: childPath, Child: query.Filter{Pred: pred, Child: elaborated}}
	}

	return query.Defer{
		StagingJoin: stagingJoin,
		Child:       child,
		ParentType:  parentType,
	}
}
