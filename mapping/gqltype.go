package mapping

import "github.com/vektah/gqlparser/v2/ast"

// This file gives the mapping/planner/stage/cursor packages a small,
// planning-relevant vocabulary around *ast.Type (list/non-null/named),
// per SPEC_FULL §3: the core never parses query text with gqlparser, it
// only consumes the type nodes a schema loader would already have built.

// IsList reports whether t is a list type, looking through a leading
// non-null wrapper (`[T]!` and `[T]` are both lists).
func IsList(t *ast.Type) bool {
	return t != nil && t.Elem != nil
}

// IsNonNull reports whether t itself is non-null (`T!`), independent of
// whatever t wraps.
func IsNonNull(t *ast.Type) bool {
	return t != nil && t.NonNull
}

// ItemType returns the element type of a list type, or nil if t is not a
// list.
func ItemType(t *ast.Type) *ast.Type {
	if t == nil {
		return nil
	}
	return t.Elem
}

// NamedTypeName returns the underlying named type, looking through list
// and non-null wrappers.
func NamedTypeName(t *ast.Type) string {
	for t != nil && t.Elem != nil {
		t = t.Elem
	}
	if t == nil {
		return ""
	}
	return t.NamedType
}

// IsLeaf reports whether t names a GraphQL leaf type (scalar/enum) given
// the set of known object/interface type names in scope; anything not a
// known composite and not a list is treated as a leaf, per spec §4.G's
// "unstructured" cursor classification.
func IsLeaf(t *ast.Type, objectTypes map[string]struct{}) bool {
	if IsList(t) {
		return false
	}
	_, isObject := objectTypes[NamedTypeName(t)]
	return !isObject
}
