package planner

import (
	"fmt"
	"log/slog"

	"github.com/chlorophyll/mapper/mapping"
	"github.com/chlorophyll/mapper/predicate"
	"github.com/chlorophyll/mapper/query"
)

// accumulator is the single-pass walk state described in spec §4.E.
type accumulator struct {
	catalog *mapping.Catalog
	logger  *slog.Logger

	columns  []mapping.ColumnRef
	colSeen  map[string]int // column key -> index into columns
	joins    []mapping.Join
	joinSeen map[string]struct{}

	predicates []PredicateEntry

	childTables map[string]struct{} // tables introduced on the child side of any join
	variantCols map[string]struct{} // columns discovered while inside a Narrow (interface-member variance)
}

func (a *accumulator) addColumn(c mapping.ColumnRef, variant bool) {
	key := c.Key()
	if _, ok := a.colSeen[key]; ok {
		if variant {
			a.variantCols[key] = struct{}{}
		}
		return
	}
	a.colSeen[key] = len(a.columns)
	a.columns = append(a.columns, c)
	if variant {
		a.variantCols[key] = struct{}{}
	}
}

func (a *accumulator) addJoin(j mapping.Join) {
	key := j.Key()
	if _, ok := a.joinSeen[key]; ok {
		return
	}
	a.joinSeen[key] = struct{}{}
	a.joins = append(a.joins, j)
	a.childTables[j.Child.Table] = struct{}{}
}

// visitObjectAt adds the key and discriminator columns for typeName at
// path, per spec §4.E step 1: "for the current object mapping and every
// interface it implements, collect: all key columns, all discriminator
// columns... added at every visited node so joins and narrowing always
// have material to test." typeName may itself name a discriminated
// interface with no concrete ObjectMapping of its own (a query selecting
// directly against the interface type, with no preceding Narrow — only an
// *undiscriminated* interface is staged away before reaching the planner),
// in which case the interface's own Fields supply the key/discriminator
// columns instead.
func (a *accumulator) visitObjectAt(path []string, typeName string, variant bool) error {
	om, err := a.catalog.ObjectMappingFor(path, typeName)
	if err != nil {
		ifm, ok := a.catalog.InterfaceMapping(typeName)
		if !ok {
			return err
		}
		for _, c := range ifm.KeyColumns() {
			a.addColumn(c, variant)
		}
		for _, c := range ifm.DiscriminatorColumns() {
			a.addColumn(c, variant)
		}
		return nil
	}

	for _, c := range om.KeyColumns() {
		a.addColumn(c, variant)
	}
	for _, c := range om.DiscriminatorColumns() {
		a.addColumn(c, variant)
	}
	for _, ifaceName := range om.Implements {
		ifm, ok := a.catalog.InterfaceMapping(ifaceName)
		if !ok {
			continue
		}
		for _, c := range ifm.KeyColumns() {
			a.addColumn(c, variant)
		}
		for _, c := range ifm.DiscriminatorColumns() {
			a.addColumn(c, variant)
		}
	}
	return nil
}

// selectField resolves name within typeName at path and adds whatever
// columns/joins it requires, per spec §4.E steps 2–3. It returns the
// field's target type (for SqlObject) so the caller can recurse, or ""
// for leaf/cursor fields.
func (a *accumulator) selectField(path []string, typeName, name string, variant bool) (targetType string, err error) {
	fm, err := a.catalog.FieldMappingFor(path, typeName, name)
	if err != nil {
		return "", err
	}
	switch f := fm.(type) {
	case mapping.SqlField:
		a.addColumn(f.Col, variant)
		return "", nil
	case mapping.SqlAttribute:
		a.addColumn(f.Col, variant)
		return "", nil
	case mapping.SqlJson:
		a.addColumn(f.Col, variant)
		return "", nil
	case mapping.SqlObject:
		for _, j := range f.Joins {
			a.addColumn(j.Parent, variant)
			a.addColumn(j.Child, variant)
			a.addJoin(j)
		}
		return f.TargetType, nil
	case mapping.CursorField:
		for _, sib := range f.RequiredSiblings {
			if _, err := a.selectField(path, typeName, sib, variant); err != nil {
				return "", err
			}
		}
		return "", nil
	case mapping.CursorAttribute:
		for _, sib := range f.RequiredSiblings {
			if _, err := a.selectField(path, typeName, sib, variant); err != nil {
				return "", err
			}
		}
		return "", nil
	default:
		return "", fmt.Errorf("planner: unknown field mapping kind %T for %s.%s", fm, typeName, name)
	}
}

// processPredicate implements spec §4.E step 4: every path the predicate
// references is walked by projectPath, which adds the column of a
// single-hop path and, for a multi-hop path, the joins and columns of each
// SqlObject hop, so fields used only in predicates are still projected and
// joined. The predicate itself is always appended to the accumulator's
// predicate list afterward.
func (a *accumulator) processPredicate(path []string, typeName string, pred predicate.Predicate, variant bool) error {
	for _, p := range pred.Paths() {
		if err := a.projectPath(path, typeName, p.Segments, variant); err != nil {
			return err
		}
	}
	a.predicates = append(a.predicates, PredicateEntry{Path: append([]string(nil), path...), Type: typeName, Pred: pred})
	return nil
}

// projectPath walks segs through typeName's mapping, adding every column
// along the chain (the single-hop attribute case and the multi-hop
// field-valued case share this code path).
func (a *accumulator) projectPath(path []string, typeName string, segs []string, variant bool) error {
	if len(segs) == 0 {
		return nil
	}
	name := segs[0]
	target, err := a.selectField(path, typeName, name, variant)
	if err != nil {
		return err
	}
	if len(segs) == 1 {
		return nil
	}
	if target == "" {
		return fmt.Errorf("planner: path %v continues past non-object field %q", segs, name)
	}
	return a.projectPath(append(append([]string(nil), path...), name), target, segs[1:], variant)
}

// visit dispatches over the query algebra, per spec §4.E step 5.
func (a *accumulator) visit(q query.Query, path []string, typeName string) error {
	return a.visitVariant(q, path, typeName, false)
}

func (a *accumulator) visitVariant(q query.Query, path []string, typeName string, variant bool) error {
	switch n := q.(type) {
	case query.Select:
		if err := a.visitObjectAt(path, typeName, variant); err != nil {
			return wrapPlanErr(path, err)
		}
		childPath := append(append([]string(nil), path...), n.Name)
		target, err := a.selectField(path, typeName, n.Name, variant)
		if err != nil {
			return wrapPlanErr(path, err)
		}
		if target != "" {
			return a.visitVariant(n.Child, childPath, target, variant)
		}
		return a.visitVariant(n.Child, childPath, typeName, variant)
	case query.Context:
		return a.visitVariant(n.Child, n.Path, typeName, variant)
	case query.Narrow:
		if err := a.visitObjectAt(path, n.TargetType, true); err != nil {
			return wrapPlanErr(path, err)
		}
		return a.visitVariant(n.Child, path, n.TargetType, true)
	case query.Filter:
		if err := a.processPredicate(path, typeName, n.Pred, variant); err != nil {
			return wrapPlanErr(path, err)
		}
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.Unique:
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.Group:
		for _, c := range n.Children {
			if err := a.visitVariant(c, path, typeName, variant); err != nil {
				return err
			}
		}
		return nil
	case query.OrderBy:
		for _, sel := range n.Sels {
			if p, ok := sel.Term.(predicate.Path); ok {
				if err := a.projectPath(path, typeName, p.Segments, variant); err != nil {
					return wrapPlanErr(path, err)
				}
			}
		}
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.Wrap:
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.Rename:
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.Limit:
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.Offset:
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.GroupBy:
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.Count:
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.Environment:
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.TransformCursor:
		return a.visitVariant(n.Child, path, typeName, variant)
	case query.Empty, query.Component, query.Defer, query.Introspect, query.Skip, query.UntypedNarrow:
		return nil
	default:
		return nil
	}
}
