package mapping

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec is opaque to the core except for identity-by-reference equality
// (spec §6 "Codec contract"). It provides the bind-value encoder used by
// sql.BindValue and the cell decoder invoked by the driver adapter when
// scanning a row.
type Codec interface {
	// Encode converts a Go value into a database/sql-bindable value.
	Encode(v any) (any, error)
	// Decode converts a raw driver cell into the codec's Go value type.
	Decode(cell any) (any, error)
}

type funcCodec struct {
	encode func(v any) (any, error)
	decode func(cell any) (any, error)
}

func (f funcCodec) Encode(v any) (any, error)    { return f.encode(v) }
func (f funcCodec) Decode(cell any) (any, error) { return f.decode(cell) }

// NewCodec builds a Codec from an encode/decode function pair.
func NewCodec(encode, decode func(any) (any, error)) Codec {
	return funcCodec{encode: encode, decode: decode}
}

func identityEncode(v any) (any, error) { return v, nil }
func identityDecode(v any) (any, error) { return v, nil }

// Built-in fallback codecs for untyped literals (spec §6: "a small set of
// built-ins (int, string, double, boolean) injected as fallback encoders
// for untyped literals").
var (
	IntCodec     Codec = funcCodec{encode: encodeAs[int64], decode: identityDecode}
	StringCodec  Codec = funcCodec{encode: encodeAs[string], decode: identityDecode}
	DoubleCodec  Codec = funcCodec{encode: encodeAs[float64], decode: identityDecode}
	BooleanCodec Codec = funcCodec{encode: encodeAs[bool], decode: identityDecode}
)

func encodeAs[T any](v any) (any, error) {
	switch tv := v.(type) {
	case T:
		return tv, nil
	default:
		return nil, fmt.Errorf("mapping: cannot encode %v (%T) as %T", v, v, *new(T))
	}
}

// UUIDCodec encodes/decodes uuid.UUID values for a key column such as the
// "movies" mapping's `id` (spec §8 S1: movieById(id:"6a7c...")). Grounded
// on the teacher's direct dependency on github.com/google/uuid.
var UUIDCodec Codec = funcCodec{
	encode: func(v any) (any, error) {
		switch u := v.(type) {
		case uuid.UUID:
			return u.String(), nil
		case string:
			parsed, err := uuid.Parse(u)
			if err != nil {
				return nil, fmt.Errorf("mapping: invalid uuid %q: %w", u, err)
			}
			return parsed.String(), nil
		default:
			return nil, fmt.Errorf("mapping: cannot encode %T as uuid", v)
		}
	},
	decode: func(cell any) (any, error) {
		s, ok := cell.(string)
		if !ok {
			return nil, fmt.Errorf("mapping: cannot decode %T as uuid", cell)
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("mapping: invalid uuid cell %q: %w", s, err)
		}
		return u, nil
	},
}

// JSONCodec reads an SqlJson column whose bytes are msgpack-encoded (the
// binary analogue of an embedded JSON subtree, per SPEC_FULL §3). Decode
// returns a generic any tree (map[string]any/[]any/scalars) that the
// cursor wraps as a JSON-shaped value for the external assembler.
var JSONCodec Codec = funcCodec{
	encode: func(v any) (any, error) {
		b, err := msgpack.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("mapping: encode json column: %w", err)
		}
		return b, nil
	},
	decode: func(cell any) (any, error) {
		b, ok := cell.([]byte)
		if !ok {
			return nil, fmt.Errorf("mapping: cannot decode %T as json column", cell)
		}
		var v any
		if err := msgpack.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("mapping: decode json column: %w", err)
		}
		return v, nil
	},
}
