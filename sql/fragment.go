// Package sql provides the Fragment builder: an accumulator for
// parameterised SQL text with typed bind slots, grounded on the teacher's
// dialect/sql predicate-combinator idiom (And/Or/Not/In built as
// func(*Selector) composition) and its dialect-aware placeholder
// rendering in dialect/sql/driver.go.
package sql

import "strings"

// Encoder converts a Go value into a database/sql-compatible bind value.
// Codecs (mapping.Codec) implement this for their column type; Identity
// is the fallback for untyped literals.
type Encoder interface {
	Encode(v any) (any, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(v any) (any, error)

func (f EncoderFunc) Encode(v any) (any, error) { return f(v) }

// Identity passes the value through unchanged; used as the fallback
// encoder for untyped literals whose type already matches a database
// driver value (int64, string, float64, bool), per spec §6's "built-ins
// injected as fallback encoders for untyped literals."
var Identity Encoder = EncoderFunc(func(v any) (any, error) { return v, nil })

// Bind is one parameter slot: the encoded value plus the encoder that
// produced it (kept for diagnostics/tests).
type Bind struct {
	Value   any
	Encoder Encoder
}

// Fragment is an opaque pair of SQL text and its bind list, with an
// associative concatenation and a monoid identity, per spec §4.D.
type Fragment struct {
	Text  string
	Binds []Bind
}

// Empty is the Fragment monoid identity.
var Empty = Fragment{}

// IsEmpty reports whether f carries no SQL text.
func (f Fragment) IsEmpty() bool { return f.Text == "" }

// Append concatenates f and g, concatenating bind lists in order. This is
// the Fragment monoid's associative operation.
func (f Fragment) Append(g Fragment) Fragment {
	return Fragment{Text: f.Text + g.Text, Binds: append(append([]Bind{}, f.Binds...), g.Binds...)}
}

// Join concatenates fragments with sep between non-empty text pieces.
func Join(sep string, fs ...Fragment) Fragment {
	var texts []string
	var binds []Bind
	for _, f := range fs {
		if f.Text != "" {
			texts = append(texts, f.Text)
		}
		binds = append(binds, f.Binds...)
	}
	return Fragment{Text: strings.Join(texts, sep), Binds: binds}
}

// Const builds a literal-text Fragment with no binds.
func Const(text string) Fragment {
	return Fragment{Text: text}
}

// BindValue appends one bind slot, encoding value with enc and rendering a
// single placeholder ("?"; callers targeting a numbered-placeholder
// dialect renumber via Placeholders).
func BindValue(enc Encoder, value any) (Fragment, error) {
	encoded, err := enc.Encode(value)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{Text: "?", Binds: []Bind{{Value: encoded, Encoder: enc}}}, nil
}

// AndOpt joins the non-empty fragments in fs with AND, wrapping each in
// parentheses; an all-empty or zero-length fs yields Empty.
func AndOpt(fs ...Fragment) Fragment {
	return boolOpt(" AND ", fs)
}

// OrOpt joins the non-empty fragments in fs with OR, wrapping each in
// parentheses; an all-empty or zero-length fs yields Empty.
func OrOpt(fs ...Fragment) Fragment {
	return boolOpt(" OR ", fs)
}

func boolOpt(sep string, fs []Fragment) Fragment {
	var nonEmpty []Fragment
	for _, f := range fs {
		if !f.IsEmpty() {
			nonEmpty = append(nonEmpty, Fragment{Text: "(" + f.Text + ")", Binds: f.Binds})
		}
	}
	if len(nonEmpty) == 0 {
		return Empty
	}
	if len(nonEmpty) == 1 {
		return nonEmpty[0]
	}
	return Join(sep, nonEmpty...)
}

// WhereAndOpt prefixes the AND of fs with "WHERE " only if at least one
// fragment is non-empty, per spec §4.D.
func WhereAndOpt(fs ...Fragment) Fragment {
	body := AndOpt(fs...)
	if body.IsEmpty() {
		return Empty
	}
	return Const(" WHERE ").Append(body)
}

// In builds `col IN (?, ?, ...)`, encoding each value in vs with enc.
func In(col string, vs []any, enc Encoder) (Fragment, error) {
	if len(vs) == 0 {
		return Empty, ErrEmptyInList
	}
	placeholders := make([]Fragment, 0, len(vs))
	for _, v := range vs {
		f, err := BindValue(enc, v)
		if err != nil {
			return Fragment{}, err
		}
		placeholders = append(placeholders, f)
	}
	return Const(col + " IN (").Append(Join(", ", placeholders...)).Append(Const(")")), nil
}

// Placeholders rewrites every literal "?" placeholder in f.Text for
// dialects that use numbered parameters (Postgres' $1, $2, ...). SQLite
// and MySQL use "?" already and need no rewrite.
func Placeholders(dialect string, f Fragment) string {
	if dialect != DialectPostgres {
		return f.Text
	}
	var sb strings.Builder
	n := 0
	for _, r := range f.Text {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// Dialect name constants, mirroring velox/dialect's Postgres/MySQL/SQLite.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)
