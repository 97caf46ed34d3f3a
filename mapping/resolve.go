package mapping

import (
	"fmt"

	mapper "github.com/chlorophyll/mapper"
)

// Catalog is the full declarative mapping: every ObjectMapping (including
// path-scoped PrefixedMapping overrides), interface mappings and leaf
// mappings, keyed by GraphQL type name. It is built once and never
// mutated afterward (SPEC_FULL §2 Configuration).
type Catalog struct {
	objects    map[string][]ObjectMapping
	interfaces map[string]SqlInterfaceMapping
	leaves     map[string]LeafMapping
	sqlLeaves  map[string]SqlLeafMapping
}

// NewCatalog returns an empty Catalog ready for AddObjectMapping etc.
func NewCatalog() *Catalog {
	return &Catalog{
		objects:    make(map[string][]ObjectMapping),
		interfaces: make(map[string]SqlInterfaceMapping),
		leaves:     make(map[string]LeafMapping),
		sqlLeaves:  make(map[string]SqlLeafMapping),
	}
}

// AddObjectMapping registers m, appending to any existing mappings for the
// same type (the unprefixed mapping and any PrefixedMapping overrides for
// that type coexist; AddObjectMapping preserves declaration order, which
// breaks ties in ObjectMappingFor).
func (c *Catalog) AddObjectMapping(m ObjectMapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	c.objects[m.Type] = append(c.objects[m.Type], m)
	return nil
}

// AddInterfaceMapping registers an interface mapping.
func (c *Catalog) AddInterfaceMapping(m SqlInterfaceMapping) {
	c.interfaces[m.Type] = m
}

// AddLeafMapping registers a scalar/enum encoding.
func (c *Catalog) AddLeafMapping(m LeafMapping) {
	c.leaves[m.Type] = m
}

// AddSqlLeafMapping registers a scalar/enum encoding with a database codec.
func (c *Catalog) AddSqlLeafMapping(m SqlLeafMapping) {
	c.sqlLeaves[m.Type] = m
}

// ObjectMappingFor resolves the applicable ObjectMapping for typeName at
// path, per spec §4.C: "more specific path prefix wins; ties are resolved
// by declaration order." The unprefixed mapping (Path == nil) always
// matches, at specificity 0.
func (c *Catalog) ObjectMappingFor(path []string, typeName string) (ObjectMapping, error) {
	candidates, ok := c.objects[typeName]
	if !ok || len(candidates) == 0 {
		return ObjectMapping{}, fmt.Errorf("mapping: %w: no ObjectMapping for type %q", mapper.ErrNoMapping, typeName)
	}
	bestIdx := -1
	bestSpecificity := -1
	for i, m := range candidates {
		if !isPrefix(m.Path, path) {
			continue
		}
		specificity := len(m.Path)
		if specificity > bestSpecificity {
			bestSpecificity = specificity
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return ObjectMapping{}, fmt.Errorf("mapping: %w: no ObjectMapping for type %q at path %v", mapper.ErrNoMapping, typeName, path)
	}
	return candidates[bestIdx], nil
}

// FieldMappingFor resolves the FieldMapping for name within typeName at
// path. typeName is usually a concrete object type, but a query may also
// select directly against a discriminated interface type with no preceding
// Narrow (spec §4.F step 3: only an *undiscriminated* interface needs
// staging) — when no ObjectMapping exists for typeName at all, fall back to
// the registered interface mapping of that name, if any.
func (c *Catalog) FieldMappingFor(path []string, typeName, name string) (FieldMapping, error) {
	om, err := c.ObjectMappingFor(path, typeName)
	if err == nil {
		fm, ok := om.FieldByName(name)
		if !ok {
			return nil, fmt.Errorf("mapping: %w: type %q has no field %q", mapper.ErrNoMapping, typeName, name)
		}
		return fm, nil
	}
	if ifm, ok := c.interfaces[typeName]; ok {
		fm, ok := ifm.FieldByName(name)
		if !ok {
			return nil, fmt.Errorf("mapping: %w: interface %q has no field %q", mapper.ErrNoMapping, typeName, name)
		}
		return fm, nil
	}
	return nil, err
}

// InterfaceMapping returns the interface mapping for typeName, if any.
func (c *Catalog) InterfaceMapping(typeName string) (SqlInterfaceMapping, bool) {
	m, ok := c.interfaces[typeName]
	return m, ok
}

// LeafCodec returns the database Codec for a SqlLeafMapping'd scalar/enum,
// or (nil, false) if typeName has no SQL-backed leaf mapping.
func (c *Catalog) LeafCodec(typeName string) (Codec, bool) {
	m, ok := c.sqlLeaves[typeName]
	if !ok {
		return nil, false
	}
	return m.Codec, true
}

// AllObjectMappings returns every registered ObjectMapping across every
// type, in no particular order. Used by the planner to resolve per-column
// nullability declarations without threading type context through the
// accumulator (SPEC_FULL §4).
func (c *Catalog) AllObjectMappings() []ObjectMapping {
	var out []ObjectMapping
	for _, ms := range c.objects {
		out = append(out, ms...)
	}
	return out
}

// isPrefix reports whether prefix is a (possibly empty, possibly full)
// prefix of path.
func isPrefix(prefix, path []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i, seg := range prefix {
		if path[i] != seg {
			return false
		}
	}
	return true
}
