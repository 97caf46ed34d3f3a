package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileObjectMapping is the YAML-decodable shape of one ObjectMapping,
// grounded on the teacher's contrib/graphql/gqlgen.go decode-into-struct-
// with-yaml-tags idiom for mapping configuration.
type fileObjectMapping struct {
	Type string          `yaml:"type"`
	Path []string        `yaml:"path,omitempty"`
	Fields []fileField   `yaml:"fields"`
}

type fileField struct {
	Kind          string `yaml:"kind"` // "field", "attribute", "json"
	Name          string `yaml:"name"`
	Table         string `yaml:"table"`
	Column        string `yaml:"column"`
	Codec         string `yaml:"codec,omitempty"`
	Key           bool   `yaml:"key,omitempty"`
	Nullable      bool   `yaml:"nullable,omitempty"`
	Discriminator bool   `yaml:"discriminator,omitempty"`
}

type fileDocument struct {
	Objects []fileObjectMapping `yaml:"objects"`
}

// builtinCodecs maps the YAML "codec" name to a registered Codec. Callers
// with custom codecs should build a Catalog programmatically instead.
var builtinCodecs = map[string]Codec{
	"int":     IntCodec,
	"string":  StringCodec,
	"double":  DoubleCodec,
	"boolean": BooleanCodec,
	"uuid":    UUIDCodec,
	"json":    JSONCodec,
}

// LoadFile reads a YAML mapping-definition file (spec §3's "declarative
// layer," externalized per SPEC_FULL §3) and returns a populated Catalog.
// SqlObject joins, CursorField/CursorAttribute closures and interface
// discriminators cannot be expressed in YAML and must be added to the
// returned Catalog programmatically afterward.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: load %s: %w", path, err)
	}
	return LoadBytes(b)
}

// LoadBytes parses YAML mapping bytes into a Catalog.
func LoadBytes(b []byte) (*Catalog, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("mapping: parse yaml: %w", err)
	}
	cat := NewCatalog()
	for _, fo := range doc.Objects {
		om := ObjectMapping{Type: fo.Type, Path: fo.Path}
		for _, ff := range fo.Fields {
			fm, err := buildFieldMapping(ff)
			if err != nil {
				return nil, fmt.Errorf("mapping: %s.%s: %w", fo.Type, ff.Name, err)
			}
			om.Fields = append(om.Fields, fm)
		}
		if err := cat.AddObjectMapping(om); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func buildFieldMapping(ff fileField) (FieldMapping, error) {
	codec := builtinCodecs[ff.Codec]
	if codec == nil {
		codec = StringCodec
	}
	col := ColumnRef{Table: ff.Table, Column: ff.Column, Codec: codec}
	switch ff.Kind {
	case "", "field":
		return SqlField{Name: ff.Name, Col: col, Key: ff.Key, Discriminator: ff.Discriminator}, nil
	case "attribute":
		return SqlAttribute{Name: ff.Name, Col: col, Key: ff.Key, Nullable: ff.Nullable, Discriminator: ff.Discriminator}, nil
	case "json":
		return SqlJson{Name: ff.Name, Col: col}, nil
	default:
		return nil, fmt.Errorf("unknown field kind %q", ff.Kind)
	}
}
