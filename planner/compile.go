package planner

import (
	"fmt"

	mapper "github.com/chlorophyll/mapper"
	"github.com/chlorophyll/mapper/mapping"
	"github.com/chlorophyll/mapper/predicate"
	sqlpkg "github.com/chlorophyll/mapper/sql"
)

// compilePredicate renders one PredicateEntry's Predicate to SQL, unifying
// the encoder used for a constant side with the column Codec resolved for
// the other (typed) side, per spec §4.E's predicate-compilation table.
// Matches (regex) has no SQL rendering in that table and is left for
// post-fetch evaluation via predicate.Eval against the cursor; compiling
// one here returns mapper.ErrUncompilablePredicate, following the
// fail-fast policy over silently dropping the clause.
func compilePredicate(cat *mapping.Catalog, entry PredicateEntry, fallback sqlpkg.Encoder) (sqlpkg.Fragment, error) {
	f, err := compilePred(cat, entry.Path, entry.Type, entry.Pred, fallback)
	if err != nil {
		return sqlpkg.Fragment{}, mapper.NewPlanError(entry.Path, fmt.Errorf("%w: %v", mapper.ErrUncompilablePredicate, err))
	}
	return f, nil
}

func compilePred(cat *mapping.Catalog, path []string, typeName string, pred predicate.Predicate, fallback sqlpkg.Encoder) (sqlpkg.Fragment, error) {
	switch p := pred.(type) {
	case predicate.And:
		return compileJunction(cat, path, typeName, p.Terms, fallback, sqlpkg.AndOpt)
	case predicate.Or:
		return compileJunction(cat, path, typeName, p.Terms, fallback, sqlpkg.OrOpt)
	case predicate.Not:
		inner, err := compilePred(cat, path, typeName, p.Term, fallback)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		return sqlpkg.Const("NOT (").Append(inner).Append(sqlpkg.Const(")")), nil
	case predicate.Eql:
		return compileComparison(cat, path, typeName, p.X, p.Y, "=", fallback)
	case predicate.NEql:
		return compileComparison(cat, path, typeName, p.X, p.Y, "<>", fallback)
	case predicate.Lt:
		return compileComparison(cat, path, typeName, p.X, p.Y, "<", fallback)
	case predicate.LtEql:
		return compileComparison(cat, path, typeName, p.X, p.Y, "<=", fallback)
	case predicate.Gt:
		return compileComparison(cat, path, typeName, p.X, p.Y, ">", fallback)
	case predicate.GtEql:
		return compileComparison(cat, path, typeName, p.X, p.Y, ">=", fallback)
	case predicate.In:
		return compileIn(cat, path, typeName, p.X, p.Values, fallback)
	case predicate.StartsWith:
		return compileLike(cat, path, typeName, p.X, p.Prefix+"%", true, fallback)
	case predicate.Like:
		return compileLike(cat, path, typeName, p.X, p.Pattern, p.CaseSensitive, fallback)
	case predicate.Contains:
		return compileContains(cat, path, typeName, p.X, p.Y, fallback)
	case predicate.AndB:
		return compileBitwise(cat, path, typeName, p.X, p.Y, "&")
	case predicate.OrB:
		return compileBitwise(cat, path, typeName, p.X, p.Y, "|")
	case predicate.XorB:
		return compileBitwise(cat, path, typeName, p.X, p.Y, "#")
	case predicate.NotB:
		return compileNotB(cat, path, typeName, p.X)
	default:
		return sqlpkg.Fragment{}, fmt.Errorf("planner: %T has no SQL rendering, evaluate post-fetch", pred)
	}
}

func compileJunction(cat *mapping.Catalog, path []string, typeName string, terms []predicate.Predicate, fallback sqlpkg.Encoder, combine func(...sqlpkg.Fragment) sqlpkg.Fragment) (sqlpkg.Fragment, error) {
	frags := make([]sqlpkg.Fragment, 0, len(terms))
	for _, t := range terms {
		f, err := compilePred(cat, path, typeName, t, fallback)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		frags = append(frags, f)
	}
	return combine(frags...), nil
}

// resolvedTerm is a Term rendered for SQL: either a column reference (with
// its declared Codec, used as the encoder for the other side's constant)
// or a bare constant value. sqlText overrides the column's rendered SQL
// text when the term is a column wrapped in a function (ToUpperCase/
// ToLowerCase); the codec still comes from col.
type resolvedTerm struct {
	isColumn bool
	col      mapping.ColumnRef
	value    any
	sqlText  string
}

// render returns the SQL text for a column-backed term.
func (t resolvedTerm) render() string {
	if t.sqlText != "" {
		return t.sqlText
	}
	return t.col.String()
}

func resolveTerm(cat *mapping.Catalog, path []string, typeName string, t predicate.Term) (resolvedTerm, error) {
	switch term := t.(type) {
	case predicate.Const:
		return resolvedTerm{value: term.Value}, nil
	case predicate.Path:
		col, err := resolveColumn(cat, path, typeName, term.Segments)
		if err != nil {
			return resolvedTerm{}, err
		}
		return resolvedTerm{isColumn: true, col: col}, nil
	case predicate.ToUpperCase:
		return resolveCaseTerm(cat, path, typeName, term.X, "UPPER")
	case predicate.ToLowerCase:
		return resolveCaseTerm(cat, path, typeName, term.X, "LOWER")
	default:
		return resolvedTerm{}, fmt.Errorf("planner: unsupported term %T", t)
	}
}

// resolveCaseTerm renders predicate.ToUpperCase/ToLowerCase per spec
// §4.E's `upper(x)`/`lower(x)` fragment. A column operand is wrapped in
// SQL text; a constant operand is folded in Go via predicate.ApplyCase
// (golang.org/x/text/cases), the same case-folding the post-SQL evaluator
// uses, so a literal compared against a folded column still matches.
func resolveCaseTerm(cat *mapping.Catalog, path []string, typeName string, inner predicate.Term, fn string) (resolvedTerm, error) {
	x, err := resolveTerm(cat, path, typeName, inner)
	if err != nil {
		return resolvedTerm{}, err
	}
	if x.isColumn {
		return resolvedTerm{isColumn: true, col: x.col, sqlText: fn + "(" + x.render() + ")"}, nil
	}
	s, ok := x.value.(string)
	if !ok {
		return resolvedTerm{}, fmt.Errorf("planner: %s requires a string constant, got %T", fn, x.value)
	}
	return resolvedTerm{value: predicate.ApplyCase(s, fn == "UPPER")}, nil
}

// resolveColumn walks segs through typeName's mapping starting at path,
// returning the ColumnRef the final segment projects to. Mirrors
// accumulator.projectPath but is side-effect-free: compilation happens
// after accumulation has already guaranteed every path's columns were
// projected.
func resolveColumn(cat *mapping.Catalog, path []string, typeName string, segs []string) (mapping.ColumnRef, error) {
	if len(segs) == 0 {
		return mapping.ColumnRef{}, fmt.Errorf("planner: empty predicate path")
	}
	cur := typeName
	curPath := path
	for i, name := range segs {
		fm, err := cat.FieldMappingFor(curPath, cur, name)
		if err != nil {
			return mapping.ColumnRef{}, err
		}
		last := i == len(segs)-1
		switch f := fm.(type) {
		case mapping.SqlField:
			if !last {
				return mapping.ColumnRef{}, fmt.Errorf("planner: path continues past leaf field %q", name)
			}
			return f.Col, nil
		case mapping.SqlAttribute:
			if !last {
				return mapping.ColumnRef{}, fmt.Errorf("planner: path continues past leaf attribute %q", name)
			}
			return f.Col, nil
		case mapping.SqlJson:
			if !last {
				return mapping.ColumnRef{}, fmt.Errorf("planner: path continues past json field %q", name)
			}
			return f.Col, nil
		case mapping.SqlObject:
			if last {
				return mapping.ColumnRef{}, fmt.Errorf("planner: path ends at object field %q", name)
			}
			curPath = append(append([]string(nil), curPath...), name)
			cur = f.TargetType
		default:
			return mapping.ColumnRef{}, fmt.Errorf("planner: field %q of kind %T cannot appear in a predicate path", name, fm)
		}
	}
	return mapping.ColumnRef{}, fmt.Errorf("planner: unreachable")
}

func encoderFor(col mapping.ColumnRef, fallback sqlpkg.Encoder) sqlpkg.Encoder {
	if col.Codec != nil {
		return col.Codec
	}
	return fallback
}

func compileComparison(cat *mapping.Catalog, path []string, typeName string, xt, yt predicate.Term, op string, fallback sqlpkg.Encoder) (sqlpkg.Fragment, error) {
	x, err := resolveTerm(cat, path, typeName, xt)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	y, err := resolveTerm(cat, path, typeName, yt)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}

	switch {
	case x.isColumn && y.isColumn:
		return sqlpkg.Const(x.render() + " " + op + " " + y.render()), nil
	case x.isColumn && !y.isColumn:
		bind, err := sqlpkg.BindValue(encoderFor(x.col, fallback), y.value)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		return sqlpkg.Const(x.render() + " " + op + " ").Append(bind), nil
	case !x.isColumn && y.isColumn:
		bind, err := sqlpkg.BindValue(encoderFor(y.col, fallback), x.value)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		return bind.Append(sqlpkg.Const(" " + op + " " + y.render())), nil
	default:
		bx, err := sqlpkg.BindValue(fallback, x.value)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		by, err := sqlpkg.BindValue(fallback, y.value)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		return bx.Append(sqlpkg.Const(" " + op + " ")).Append(by), nil
	}
}

func compileIn(cat *mapping.Catalog, path []string, typeName string, xt predicate.Term, values []any, fallback sqlpkg.Encoder) (sqlpkg.Fragment, error) {
	x, err := resolveTerm(cat, path, typeName, xt)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	if !x.isColumn {
		return sqlpkg.Fragment{}, fmt.Errorf("planner: In requires a path on the left-hand side")
	}
	return sqlpkg.In(x.render(), values, encoderFor(x.col, fallback))
}

// compileContains renders predicate.Contains per spec §4.E: `x = y`, with
// x "not coerced to encoder" — unlike an ordinary comparison, a constant
// y is bound with fallback rather than x's column codec, since x may be
// an array-typed column whose element codec doesn't apply to a scalar
// membership test.
func compileContains(cat *mapping.Catalog, path []string, typeName string, xt, yt predicate.Term, fallback sqlpkg.Encoder) (sqlpkg.Fragment, error) {
	x, err := resolveTerm(cat, path, typeName, xt)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	y, err := resolveTerm(cat, path, typeName, yt)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}

	switch {
	case x.isColumn && y.isColumn:
		return sqlpkg.Const(x.render() + " = " + y.render()), nil
	case x.isColumn && !y.isColumn:
		bind, err := sqlpkg.BindValue(fallback, y.value)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		return sqlpkg.Const(x.render() + " = ").Append(bind), nil
	case !x.isColumn && y.isColumn:
		bind, err := sqlpkg.BindValue(encoderFor(y.col, fallback), x.value)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		return bind.Append(sqlpkg.Const(" = " + y.render())), nil
	default:
		bx, err := sqlpkg.BindValue(fallback, x.value)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		by, err := sqlpkg.BindValue(fallback, y.value)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		return bx.Append(sqlpkg.Const(" = ")).Append(by), nil
	}
}

// compileBitwise renders predicate.AndB/OrB/XorB per spec §4.E's `a & b`,
// `a | b`, `a # b`, bound with the integer encoder regardless of any
// column codec (the table's "integer encoder" note).
func compileBitwise(cat *mapping.Catalog, path []string, typeName string, xt, yt predicate.Term, op string) (sqlpkg.Fragment, error) {
	x, err := resolveTerm(cat, path, typeName, xt)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	y, err := resolveTerm(cat, path, typeName, yt)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	fx, err := renderBitwiseOperand(x)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	fy, err := renderBitwiseOperand(y)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	return sqlpkg.Const("(").Append(fx).Append(sqlpkg.Const(" " + op + " ")).Append(fy).Append(sqlpkg.Const(")")), nil
}

// compileNotB renders predicate.NotB per spec §4.E's `~x`.
func compileNotB(cat *mapping.Catalog, path []string, typeName string, xt predicate.Term) (sqlpkg.Fragment, error) {
	x, err := resolveTerm(cat, path, typeName, xt)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	fx, err := renderBitwiseOperand(x)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	return sqlpkg.Const("(~").Append(fx).Append(sqlpkg.Const(")")), nil
}

func renderBitwiseOperand(t resolvedTerm) (sqlpkg.Fragment, error) {
	if t.isColumn {
		return sqlpkg.Const(t.render()), nil
	}
	return sqlpkg.BindValue(mapping.IntCodec, t.value)
}

func compileLike(cat *mapping.Catalog, path []string, typeName string, xt predicate.Term, pattern string, caseSensitive bool, fallback sqlpkg.Encoder) (sqlpkg.Fragment, error) {
	x, err := resolveTerm(cat, path, typeName, xt)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	if !x.isColumn {
		return sqlpkg.Fragment{}, fmt.Errorf("planner: LIKE requires a path operand")
	}
	col := x.render()
	if !caseSensitive {
		col = "LOWER(" + col + ")"
		pattern = toLowerASCII(pattern)
	}
	bind, err := sqlpkg.BindValue(sqlpkg.Identity, pattern)
	if err != nil {
		return sqlpkg.Fragment{}, err
	}
	return sqlpkg.Const(col + " LIKE ").Append(bind), nil
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
