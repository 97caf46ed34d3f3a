// Package mapping describes the declarative object-to-relational mapping:
// which GraphQL type/field maps to which table/column/join/codec, plus
// cursor-computed fields. It is pure metadata — no SQL is built here; the
// planner package walks this metadata to build a MappedQuery.
//
// Grounded on the teacher's graph.Type/Field/Edge shape (an entity has
// fields and edges, edges carry join information), repurposed from
// ORM-entity metadata to GraphQL-type-to-table metadata.
package mapping

import (
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

// ColumnRef identifies one column. Equality is (Table, Column) only; Codec
// is metadata riding along, per spec §3's invariant that the same
// (table, column) pair always carries the same codec in a given mapping.
type ColumnRef struct {
	Table  string
	Column string
	Codec  Codec
}

// Equal compares two ColumnRefs by (Table, Column), ignoring Codec.
func (c ColumnRef) Equal(o ColumnRef) bool {
	return c.Table == o.Table && c.Column == o.Column
}

// Key returns the (table, column) identity used for maps/sets.
func (c ColumnRef) Key() string { return c.Table + "." + c.Column }

// String renders "table.column" for SQL text and diagnostics.
func (c ColumnRef) String() string { return c.Table + "." + c.Column }

// Join is a parent/child column pair rendered as a LEFT JOIN. Two Joins
// with the same endpoints in either order are the same join; NormalForm
// gives them identical representation for deduplication (spec §3).
type Join struct {
	Parent ColumnRef
	Child  ColumnRef
}

// NormalForm orders the endpoints lexicographically by (table, column) so
// Join(a,b) and Join(b,a) compare equal.
func (j Join) NormalForm() (ColumnRef, ColumnRef) {
	if j.Parent.Key() <= j.Child.Key() {
		return j.Parent, j.Child
	}
	return j.Child, j.Parent
}

// Key returns a canonical string for deduplicating joins by normal form.
func (j Join) Key() string {
	a, b := j.NormalForm()
	return a.Key() + "|" + b.Key()
}

// FieldMapping is the closed sum of per-field mapping kinds (spec §3).
type FieldMapping interface {
	fieldMappingNode()
	// FieldName returns the GraphQL field or attribute name this mapping
	// answers for.
	FieldName() string
}

// SqlField is a simple column projection.
type SqlField struct {
	Name          string
	Col           ColumnRef
	Key           bool
	Discriminator bool
	// GQLType is this field's schema type, when a schema loader has
	// supplied one (spec §3's "tpe" context, per SPEC_FULL §3's
	// gqlparser/v2/ast wiring). It is optional: a Catalog built
	// programmatically without a schema (e.g. moviesfixture) leaves it
	// nil, in which case the planner falls back to the other three
	// nullability sources of spec §4.E step 8. When set, a field whose
	// GQLType is not non-null (`T`, not `T!`) is nullable per spec §4.E
	// step 8(a).
	GQLType *ast.Type
}

func (SqlField) fieldMappingNode()    {}
func (f SqlField) FieldName() string  { return f.Name }

// SqlObject is a nested object reached via zero or more joins. TargetType
// names the GraphQL object type reached through Joins; spec §3 leaves the
// destination type implicit (carried by the external schema), but the
// planner/stage/cursor packages need it to recurse without a full schema
// loader, so it is recorded here explicitly.
type SqlObject struct {
	Name       string
	Joins      []Join
	TargetType string
	// List marks this field as GraphQL-list-valued. Spec §3 leaves list-ness
	// to the external GraphQL schema; it is recorded here, alongside
	// TargetType, because the Staging Elaborator's "non-leaf-list-in-list"
	// rule (spec §4.F) needs it and this module loads no schema of its own.
	List bool
}

func (SqlObject) fieldMappingNode()   {}
func (f SqlObject) FieldName() string { return f.Name }

// SqlAttribute is a hidden column used for joins/filters, not exposed as a
// GraphQL field.
type SqlAttribute struct {
	Name          string
	Col           ColumnRef
	Key           bool
	Nullable      bool
	Discriminator bool
}

func (SqlAttribute) fieldMappingNode()  {}
func (f SqlAttribute) FieldName() string { return f.Name }

// SqlJson is an embedded JSON subtree stored in a single column.
type SqlJson struct {
	Name string
	Col  ColumnRef
}

func (SqlJson) fieldMappingNode()    {}
func (f SqlJson) FieldName() string  { return f.Name }

// CursorField is a field computed post-fetch from RequiredSiblings.
type CursorField struct {
	Name             string
	Fn               func(c CursorLike) (any, error)
	RequiredSiblings []string
	Hidden           bool
}

func (CursorField) fieldMappingNode()   {}
func (f CursorField) FieldName() string { return f.Name }

// CursorAttribute is CursorField's hidden-attribute counterpart.
type CursorAttribute struct {
	Name             string
	Fn               func(c CursorLike) (any, error)
	RequiredSiblings []string
}

func (CursorAttribute) fieldMappingNode()   {}
func (f CursorAttribute) FieldName() string { return f.Name }

// CursorLike is the minimal surface a CursorField/CursorAttribute closure
// needs from a cursor; *cursor.SqlCursor satisfies it structurally, avoiding
// an import cycle (cursor imports mapping to read FieldMapping kinds).
type CursorLike interface {
	FieldValue(name string) (any, error)
}

// ObjectMapping describes one GraphQL object type: its fields plus an
// optional path scope (for PrefixedMapping overrides).
type ObjectMapping struct {
	Type   string
	Fields []FieldMapping
	Path   []string // nil for the unprefixed, type-wide mapping
	// Implements names the SqlInterfaceMapping types this object type
	// implements. Spec §4.E step 1: "for the current object mapping and
	// every interface it implements, collect: all key columns, all
	// discriminator columns" — Implements is what lets the planner find
	// those interfaces without a full schema loader.
	Implements []string
}

// FieldByName returns the FieldMapping for name, or (nil, false). Spec §3
// invariant: "a field name resolves within its mapping at most once."
func (m ObjectMapping) FieldByName(name string) (FieldMapping, bool) {
	return fieldByName(m.Fields, name)
}

// KeyColumns returns the columns/attributes marked Key, in declaration
// order. Spec §3 invariant: every ObjectMapping has at least one.
func (m ObjectMapping) KeyColumns() []ColumnRef {
	return keyColumnsOf(m.Fields)
}

// DiscriminatorColumns returns the columns/attributes marked as carrying a
// discriminator value.
func (m ObjectMapping) DiscriminatorColumns() []ColumnRef {
	return discriminatorColumnsOf(m.Fields)
}

// fieldByName, keyColumnsOf and discriminatorColumnsOf are shared between
// ObjectMapping and SqlInterfaceMapping: an interface mapping's Fields obey
// the same Key/Discriminator conventions as an object mapping's, since a
// discriminated interface is planned directly via SQL (spec §4.F step 3)
// rather than always staged, and needs the same key/discriminator lookup a
// concrete ObjectMapping gets.
func fieldByName(fields []FieldMapping, name string) (FieldMapping, bool) {
	for _, f := range fields {
		if f.FieldName() == name {
			return f, true
		}
	}
	return nil, false
}

func keyColumnsOf(fields []FieldMapping) []ColumnRef {
	var out []ColumnRef
	for _, f := range fields {
		switch ff := f.(type) {
		case SqlField:
			if ff.Key {
				out = append(out, ff.Col)
			}
		case SqlAttribute:
			if ff.Key {
				out = append(out, ff.Col)
			}
		}
	}
	return out
}

func discriminatorColumnsOf(fields []FieldMapping) []ColumnRef {
	var out []ColumnRef
	for _, f := range fields {
		switch ff := f.(type) {
		case SqlField:
			if ff.Discriminator {
				out = append(out, ff.Col)
			}
		case SqlAttribute:
			if ff.Discriminator {
				out = append(out, ff.Col)
			}
		}
	}
	return out
}

// Validate checks the invariant that at least one field is a key.
func (m ObjectMapping) Validate() error {
	if len(m.KeyColumns()) == 0 {
		return fmt.Errorf("mapping: object mapping %q has no key field", m.Type)
	}
	seen := make(map[string]struct{})
	for _, f := range m.Fields {
		name := f.FieldName()
		if _, dup := seen[name]; dup {
			return fmt.Errorf("mapping: object mapping %q declares field %q more than once", m.Type, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// SqlInterfaceMapping is an interface type with a runtime discriminator.
// When Discriminator is nil, a selection on this type cannot be decided by
// SQL alone and the Staging Elaborator defers it (spec §4.F step 3); when
// it is set, Fields is planned directly like an ObjectMapping's, which is
// why it carries the same Key/Discriminator field conventions.
type SqlInterfaceMapping struct {
	Type          string
	Fields        []FieldMapping
	Discriminator func(c CursorLike) (string, error)
}

// FieldByName returns the FieldMapping for name, or (nil, false).
func (m SqlInterfaceMapping) FieldByName(name string) (FieldMapping, bool) {
	return fieldByName(m.Fields, name)
}

// KeyColumns returns the columns/attributes marked Key, in declaration
// order.
func (m SqlInterfaceMapping) KeyColumns() []ColumnRef {
	return keyColumnsOf(m.Fields)
}

// DiscriminatorColumns returns the columns/attributes marked as carrying a
// discriminator value.
func (m SqlInterfaceMapping) DiscriminatorColumns() []ColumnRef {
	return discriminatorColumnsOf(m.Fields)
}

// LeafMapping describes a scalar/enum's JSON-side encoding (no column).
type LeafMapping struct {
	Type    string
	Encoder func(v any) (any, error)
}

// SqlLeafMapping is LeafMapping plus a database Codec.
type SqlLeafMapping struct {
	Type    string
	Encoder func(v any) (any, error)
	Codec   Codec
}

// SortedColumnKeys returns cols' Key() strings sorted lexicographically,
// used by the planner to report which tables/columns it saw when root-table
// selection fails — map iteration order is otherwise nondeterministic, and
// a nondeterministic error message is hard to compare across runs.
func SortedColumnKeys(cols []ColumnRef) []string {
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.Key()
	}
	sort.Strings(keys)
	return keys
}
