// Package predicate defines the predicate algebra: a tagged sum of
// boolean, comparison, string and bitwise operators over Terms, grounded
// on the teacher's querylanguage.Fielder combinators. A Predicate is a
// structural value; compiling it to SQL is the planner package's job, and
// evaluating it over a fetched cursor is this package's Eval.
package predicate

import "fmt"

// Term is a value reference in a predicate: a constant, a path into the
// current object, or a ToUpperCase/ToLowerCase applied to another Term.
// Term is a closed four-case sum.
type Term interface {
	termNode()
}

// Const wraps a literal value known at plan time.
type Const struct {
	Value any
}

func (Const) termNode() {}

// Path is a list of field names resolved against the current type context.
// A Path is field-valued if every hop names a field (as opposed to a
// hidden attribute); that is not recorded here (Term stays
// mapping-agnostic) and is resolved against the mapping by whoever walks
// the path.
type Path struct {
	Segments []string
}

func (Path) termNode() {}

// NewPath builds a Path from segments.
func NewPath(segments ...string) Path { return Path{Segments: segments} }

// String renders a Path as a dotted name, used in error messages and tests.
func (p Path) String() string {
	s := ""
	for i, seg := range p.Segments {
		if i > 0 {
			s += "."
		}
		s += seg
	}
	return s
}

// Predicate is the sum of boolean/comparison/string/bitwise operators.
// Like query.Query, the sum is closed via a private marker method.
type Predicate interface {
	predicateNode()
	// Paths returns the set of Paths (deduplicated, discovery order) this
	// predicate references, per spec §4.B.
	Paths() []Path
}

func collectPaths(terms ...Term) []Path {
	seen := make(map[string]struct{})
	var out []Path
	var visit func(Term)
	visit = func(t Term) {
		switch term := t.(type) {
		case Path:
			key := term.String()
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			out = append(out, term)
		case ToUpperCase:
			visit(term.X)
		case ToLowerCase:
			visit(term.X)
		}
	}
	for _, t := range terms {
		visit(t)
	}
	return out
}

func mergePaths(ps ...[]Path) []Path {
	seen := make(map[string]struct{})
	var out []Path
	for _, group := range ps {
		for _, p := range group {
			key := p.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// --- boolean combinators ---

type And struct{ Terms []Predicate }

func (And) predicateNode() {}
func (a And) Paths() []Path {
	var ps [][]Path
	for _, t := range a.Terms {
		ps = append(ps, t.Paths())
	}
	return mergePaths(ps...)
}

type Or struct{ Terms []Predicate }

func (Or) predicateNode() {}
func (o Or) Paths() []Path {
	var ps [][]Path
	for _, t := range o.Terms {
		ps = append(ps, t.Paths())
	}
	return mergePaths(ps...)
}

type Not struct{ Term Predicate }

func (Not) predicateNode()   {}
func (n Not) Paths() []Path { return n.Term.Paths() }

// --- comparisons ---

type cmp struct {
	X, Y Term
}

func (c cmp) Paths() []Path { return collectPaths(c.X, c.Y) }

type Eql struct{ cmp }
type NEql struct{ cmp }
type Lt struct{ cmp }
type LtEql struct{ cmp }
type Gt struct{ cmp }
type GtEql struct{ cmp }

func (Eql) predicateNode()   {}
func (NEql) predicateNode()  {}
func (Lt) predicateNode()    {}
func (LtEql) predicateNode() {}
func (Gt) predicateNode()    {}
func (GtEql) predicateNode() {}

// NewEql, NewNEql, ... build comparison predicates from two terms.
func NewEql(x, y Term) Eql     { return Eql{cmp{x, y}} }
func NewNEql(x, y Term) NEql   { return NEql{cmp{x, y}} }
func NewLt(x, y Term) Lt       { return Lt{cmp{x, y}} }
func NewLtEql(x, y Term) LtEql { return LtEql{cmp{x, y}} }
func NewGt(x, y Term) Gt       { return Gt{cmp{x, y}} }
func NewGtEql(x, y Term) GtEql { return GtEql{cmp{x, y}} }

// In tests x against the set Values.
type In struct {
	X      Term
	Values []any
}

func (In) predicateNode() {}
func (i In) Paths() []Path { return collectPaths(i.X) }

// Contains tests array/membership containment; x is not coerced to an
// encoder (spec §4.E table: "x is not coerced to encoder").
type Contains struct {
	X, Y Term
}

func (Contains) predicateNode() {}
func (c Contains) Paths() []Path { return collectPaths(c.X, c.Y) }

// --- string predicates ---

type Like struct {
	X             Term
	Pattern       string
	CaseSensitive bool
}

func (Like) predicateNode() {}
func (l Like) Paths() []Path { return collectPaths(l.X) }

type StartsWith struct {
	X      Term
	Prefix string
}

func (StartsWith) predicateNode() {}
func (s StartsWith) Paths() []Path { return collectPaths(s.X) }

type Matches struct {
	X       Term
	Pattern string
}

func (Matches) predicateNode() {}
func (m Matches) Paths() []Path { return collectPaths(m.X) }

// ToUpperCase and ToLowerCase are Terms, not Predicates: per spec §4.E's
// compilation table they render to a SQL value expression (`upper(x)` /
// `lower(x)`), the same as Const/Path, for use as an operand nested inside
// a comparison (e.g. `Eql{X: ToUpperCase{Path}, Y: Const}` for a
// case-insensitive equality test) rather than as a standalone boolean.
type ToUpperCase struct{ X Term }
type ToLowerCase struct{ X Term }

func (ToUpperCase) termNode() {}
func (ToLowerCase) termNode() {}

// --- bitwise ---

type AndB struct{ X, Y Term }
type OrB struct{ X, Y Term }
type XorB struct{ X, Y Term }
type NotB struct{ X Term }

func (AndB) predicateNode()  {}
func (b AndB) Paths() []Path { return collectPaths(b.X, b.Y) }
func (OrB) predicateNode()   {}
func (b OrB) Paths() []Path  { return collectPaths(b.X, b.Y) }
func (XorB) predicateNode()  {}
func (b XorB) Paths() []Path { return collectPaths(b.X, b.Y) }
func (NotB) predicateNode()  {}
func (b NotB) Paths() []Path { return collectPaths(b.X) }

// String renders a Const's value with %v, for error messages.
func (c Const) String() string { return fmt.Sprintf("%v", c.Value) }
