package cursor

import (
	"fmt"
	"sort"
	"strings"

	mapper "github.com/chlorophyll/mapper"
	"github.com/chlorophyll/mapper/mapping"
	"github.com/chlorophyll/mapper/predicate"
)

// Row is one fetched row, keyed by mapping.ColumnRef.Key(). A MappedQuery's
// single flat SELECT (root table plus every LEFT JOIN) means every Row
// already carries every joined table's columns, so descending into a
// SqlObject field never needs a second fetch — only a re-scoped view over
// the same rows (spec §4.G / §6).
type Row map[string]Cell

// SqlCursor is the cursor over object-typed results: a set of Rows sharing
// a (Catalog, typeName, path) context. A singular object's cursor holds
// exactly one Row; a list's cursor holds one Row per element until Group
// partitions it further for nested one-to-many joins.
type SqlCursor struct {
	cat      *mapping.Catalog
	typeName string
	path     []string
	rows     []Row
}

// New wraps rows as the root cursor for typeName at path.
func New(cat *mapping.Catalog, typeName string, path []string, rows []Row) *SqlCursor {
	return &SqlCursor{cat: cat, typeName: typeName, path: path, rows: rows}
}

// Len returns the number of rows (elements, for a list cursor) in c.
func (c *SqlCursor) Len() int { return len(c.rows) }

// Type returns the GraphQL type name c is currently scoped to.
func (c *SqlCursor) Type() string { return c.typeName }

// AsList reports whether c holds anything other than the single row a scalar
// object selection would (zero rows also reports true), per spec §7.2's "treating a leaf as a list"/"a non-leaf
// as a leaf" distinction: callers planning a list field call Group first;
// this is a best-effort check for callers that didn't.
func (c *SqlCursor) AsList() bool { return len(c.rows) != 1 }

// IsLeaf always reports false: a SqlCursor's focus is a Table, never a
// scalar (spec §4.G's leaf/non-leaf cursor split is expressed as two Go
// types, SqlCursor and LeafCursor, rather than one type with a flag).
func (c *SqlCursor) IsLeaf() bool { return false }

// KeyColumns returns the key columns of c's current (path, typeName)
// mapping, the lookup Group's caller previously had to perform itself.
func (c *SqlCursor) KeyColumns() ([]mapping.ColumnRef, error) {
	om, err := c.cat.ObjectMappingFor(c.path, c.typeName)
	if err != nil {
		return nil, mapper.NewCursorError(c.path, err)
	}
	return om.KeyColumns(), nil
}

// GroupByKey partitions c using its own type's key columns, per spec §4.G's
// "mapped.group(table, path, itemTpe)": the caller no longer needs to look
// up keyCols via the mapping itself before calling Group.
func (c *SqlCursor) GroupByKey() ([]*SqlCursor, error) {
	keyCols, err := c.KeyColumns()
	if err != nil {
		return nil, err
	}
	return c.Group(keyCols), nil
}

// AsNullable reports whether c represents a GraphQL null, per spec §4.G:
// "None iff the list focus is empty OR the single cell is FailedJoin." For
// an object cursor, "the single cell is FailedJoin" means every key column
// of its one row is the FailedJoin sentinel — the to-one nested-object
// case of an unmatched LEFT JOIN.
func (c *SqlCursor) AsNullable() (bool, error) {
	if len(c.rows) == 0 {
		return true, nil
	}
	if len(c.rows) != 1 {
		return false, nil
	}
	keyCols, err := c.KeyColumns()
	if err != nil {
		return false, err
	}
	return rowKeyAllFailedJoin(c.rows[0], keyCols), nil
}

// HasAttribute reports whether name resolves to a hidden SqlAttribute or
// CursorAttribute mapping on c's current type — the non-GraphQL-visible
// counterpart of a field, per spec §6's Cursor capability.
func (c *SqlCursor) HasAttribute(name string) bool {
	fm, err := c.cat.FieldMappingFor(c.path, c.typeName, name)
	if err != nil {
		return false
	}
	switch fm.(type) {
	case mapping.SqlAttribute, mapping.CursorAttribute:
		return true
	default:
		return false
	}
}

// Attribute resolves a hidden attribute's value, restricted to
// SqlAttribute/CursorAttribute mappings (spec §6); it rejects anything
// HasAttribute would reject, including ordinary GraphQL-visible fields.
func (c *SqlCursor) Attribute(name string) (any, error) {
	if !c.HasAttribute(name) {
		return nil, mapper.NewCursorError(c.path, fmt.Errorf("cursor: %q is not an attribute", name))
	}
	return c.FieldValue(name)
}

// FieldResult is what Field returns: exactly one of Leaf or Child is
// meaningful, mirroring spec §4.G's unstructured-vs-structured field(name)
// split ("if the target type is unstructured... read a single cell from
// the head row; otherwise... pass the (possibly null-stripped) subtable
// down").
type FieldResult struct {
	// Leaf holds the decoded value for a CursorField/CursorAttribute,
	// SqlField, SqlAttribute, or SqlJson projection — everything
	// FieldValue already handles.
	Leaf any
	// Child holds the re-scoped cursor for a SqlObject projection, rows
	// shared per the Row doc comment. For a list-valued SqlObject, call
	// Child.GroupByKey to expand it into one cursor per element; for a
	// to-one SqlObject, call Child.AsNullable to decide null-vs-present.
	Child *SqlCursor
}

// Field resolves name against c, dispatching on the field mapping kind
// (spec §4.G "field(name)" / §6's Cursor capability `field`). Unlike
// FieldValue — which only ever needs to answer a CursorField/
// CursorAttribute closure's own sibling lookups, and so refuses to
// descend into a SqlObject — Field is the full dispatch an external JSON
// assembler walks: a SqlObject field yields a child cursor instead of an
// error.
func (c *SqlCursor) Field(name string) (FieldResult, error) {
	if len(c.rows) == 0 {
		return FieldResult{}, mapper.NewCursorError(c.path, fmt.Errorf("cursor: %q has no row", name))
	}
	fm, err := c.cat.FieldMappingFor(c.path, c.typeName, name)
	if err != nil {
		return FieldResult{}, mapper.NewCursorError(c.path, err)
	}
	if obj, ok := fm.(mapping.SqlObject); ok {
		return FieldResult{Child: c.child(name, obj.TargetType)}, nil
	}
	v, err := c.FieldValue(name)
	if err != nil {
		return FieldResult{}, err
	}
	return FieldResult{Leaf: v}, nil
}

// Group partitions c's rows by the distinct values of keyCols, returning one
// child cursor per distinct key ordered deterministically by the stringified
// key projection (spec §4.G, §5(ii), I6) rather than row-arrival order: the
// planner never emits an ORDER BY for the query algebra's own OrderBy node
// (planner/accumulate.go's Wrap/Group case is a pure pass-through), so the
// underlying driver gives no row-order guarantee across repeated executions
// of the same fragment, and only sorting the distinct keys themselves yields
// the same partition order every run. Per spec §4.G's isList/asList: if
// every row's key projection is entirely FailedJoin (the outer join matched
// nothing for any row), Group reports an empty list rather than one
// spurious group; otherwise rows whose key projection contains any
// FailedJoin are stripped before grouping the remainder.
func (c *SqlCursor) Group(keyCols []mapping.ColumnRef) []*SqlCursor {
	if isEmptyJoin(c.rows, keyCols) {
		return nil
	}

	var order []string
	groups := make(map[string][]Row)
	for _, row := range c.rows {
		if rowKeyHasFailedJoin(row, keyCols) {
			continue
		}
		key := groupKey(row, keyCols)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}
	sort.Strings(order)
	out := make([]*SqlCursor, len(order))
	for i, k := range order {
		out[i] = &SqlCursor{cat: c.cat, typeName: c.typeName, path: c.path, rows: groups[k]}
	}
	return out
}

// isEmptyJoin reports whether every row's key projection is entirely
// FailedJoin, per spec §4.G's "sanity-check: table length <= 1" case.
func isEmptyJoin(rows []Row, keyCols []mapping.ColumnRef) bool {
	if len(rows) == 0 || len(keyCols) == 0 {
		return false
	}
	for _, row := range rows {
		if !rowKeyAllFailedJoin(row, keyCols) {
			return false
		}
	}
	return true
}

// rowKeyAllFailedJoin reports whether every one of row's key columns is
// the FailedJoin sentinel.
func rowKeyAllFailedJoin(row Row, keyCols []mapping.ColumnRef) bool {
	for _, col := range keyCols {
		if !row[col.Key()].IsFailedJoin() {
			return false
		}
	}
	return true
}

// rowKeyHasFailedJoin reports whether any of row's key columns is the
// FailedJoin sentinel.
func rowKeyHasFailedJoin(row Row, keyCols []mapping.ColumnRef) bool {
	for _, col := range keyCols {
		if row[col.Key()].IsFailedJoin() {
			return true
		}
	}
	return false
}

func groupKey(row Row, cols []mapping.ColumnRef) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%v", row[col.Key()].Raw())
	}
	return strings.Join(parts, "\x1f")
}

// Narrow re-scopes c to targetType, checking the discriminator when c's
// current type carries an interface mapping (spec §4.G "narrow"). When
// there is no discriminator closure (a plain object-type narrow, or an
// undiscriminated interface resolved by join shape alone), every row's key
// columns for targetType's mapping must be non-FailedJoin instead: a row
// whose join into targetType's table never matched cannot actually be
// narrowed to it.
func (c *SqlCursor) Narrow(targetType string) (*SqlCursor, error) {
	if ifm, ok := c.cat.InterfaceMapping(c.typeName); ok && ifm.Discriminator != nil {
		actual, err := ifm.Discriminator(c)
		if err != nil {
			return nil, mapper.NewCursorError(c.path, err)
		}
		if actual != targetType {
			return nil, mapper.NewCursorError(c.path, fmt.Errorf("cannot narrow %s to %s: discriminator says %s", c.typeName, targetType, actual))
		}
		return &SqlCursor{cat: c.cat, typeName: targetType, path: c.path, rows: c.rows}, nil
	}

	om, err := c.cat.ObjectMappingFor(c.path, targetType)
	if err != nil {
		return nil, mapper.NewCursorError(c.path, err)
	}
	keyCols := om.KeyColumns()
	for _, row := range c.rows {
		if rowKeyHasFailedJoin(row, keyCols) {
			return nil, mapper.NewCursorError(c.path, fmt.Errorf("cannot narrow %s to %s: join to %s's table did not match", c.typeName, targetType, targetType))
		}
	}
	return &SqlCursor{cat: c.cat, typeName: targetType, path: c.path, rows: c.rows}, nil
}

// child re-scopes c into a SqlObject field's target type, sharing rows (see
// Row's doc comment): no second fetch, just a new type/path lens.
func (c *SqlCursor) child(name, targetType string) *SqlCursor {
	return &SqlCursor{
		cat:      c.cat,
		typeName: targetType,
		path:     append(append([]string(nil), c.path...), name),
		rows:     c.rows,
	}
}

// FieldValue resolves name against c's first row, satisfying
// mapping.CursorLike. It errors on an object-typed field: callers that
// need to descend into one should use Resolve (for a predicate path) or
// build a child cursor directly via Narrow/Group's caller.
func (c *SqlCursor) FieldValue(name string) (any, error) {
	if len(c.rows) == 0 {
		return nil, mapper.NewCursorError(c.path, fmt.Errorf("cursor: %q has no row", name))
	}
	fm, err := c.cat.FieldMappingFor(c.path, c.typeName, name)
	if err != nil {
		return nil, mapper.NewCursorError(c.path, err)
	}
	row := c.rows[0]

	switch f := fm.(type) {
	case mapping.SqlField:
		return decodeCell(row[f.Col.Key()], f.Col.Codec)
	case mapping.SqlAttribute:
		return decodeCell(row[f.Col.Key()], f.Col.Codec)
	case mapping.SqlJson:
		codec := f.Col.Codec
		if codec == nil {
			codec = mapping.JSONCodec
		}
		return decodeCell(row[f.Col.Key()], codec)
	case mapping.CursorField:
		return f.Fn(c)
	case mapping.CursorAttribute:
		return f.Fn(c)
	case mapping.SqlObject:
		return nil, mapper.NewCursorError(c.path, fmt.Errorf("cursor: %q is an object field, not a leaf value", name))
	default:
		return nil, mapper.NewCursorError(c.path, fmt.Errorf("cursor: unsupported field mapping %T for %q", fm, name))
	}
}

// Resolve implements predicate.ValueSource, walking p's segments through
// any intervening SqlObject fields (sharing rows per the Row doc comment)
// before reading the final leaf value.
func (c *SqlCursor) Resolve(p predicate.Path) (any, error) {
	cur := c
	for i, seg := range p.Segments {
		last := i == len(p.Segments)-1
		if !last {
			fm, err := cur.cat.FieldMappingFor(cur.path, cur.typeName, seg)
			if err != nil {
				return nil, mapper.NewCursorError(cur.path, err)
			}
			obj, ok := fm.(mapping.SqlObject)
			if !ok {
				return nil, mapper.NewCursorError(cur.path, fmt.Errorf("cursor: path continues past leaf field %q", seg))
			}
			cur = cur.child(seg, obj.TargetType)
			continue
		}
		return cur.FieldValue(seg)
	}
	return nil, fmt.Errorf("cursor: empty path")
}

func decodeCell(cell Cell, codec mapping.Codec) (any, error) {
	if cell.IsAbsent() {
		return nil, nil
	}
	raw := cell.Raw()
	if codec == nil {
		return raw, nil
	}
	return codec.Decode(raw)
}

// LeafCursor wraps a single Cell for a bare scalar result (e.g. a Count
// query's answer, or a top-level leaf selection with no enclosing object),
// per spec §4.G's leaf/non-leaf cursor split.
type LeafCursor struct {
	Cell  Cell
	Codec mapping.Codec
}

// Value decodes the wrapped cell.
func (l LeafCursor) Value() (any, error) { return decodeCell(l.Cell, l.Codec) }

// IsNull reports whether the wrapped cell carries no value.
func (l LeafCursor) IsNull() bool { return l.Cell.IsAbsent() }

// IsLeaf always reports true: a LeafCursor's focus is a scalar, never a
// Table (spec §4.G's leaf/non-leaf cursor split is expressed as two Go
// types rather than one type with a flag).
func (l LeafCursor) IsLeaf() bool { return true }

// AsLeaf decodes the wrapped cell, satisfying spec §6's Cursor capability
// alongside IsLeaf/IsNull. Equivalent to Value.
func (l LeafCursor) AsLeaf() (any, error) { return l.Value() }

// AsNullable reports whether l represents a GraphQL null, per spec §4.G:
// "None iff... the single cell is FailedJoin." Equivalent to IsNull; named
// to match SqlCursor.AsNullable and spec §6's boundary vocabulary.
func (l LeafCursor) AsNullable() bool { return l.IsNull() }
