package predicate

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ValueSource resolves a Path to a value when evaluating a predicate
// post-SQL, over a cursor-computed field (spec §3's "predicates referring
// to cursor-computed fields are evaluated post-SQL"). *cursor.SqlCursor
// satisfies this interface structurally so predicate need not import
// cursor (which imports predicate for Filter processing).
type ValueSource interface {
	Resolve(p Path) (any, error)
}

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// matchesCache memoizes compiled Matches patterns: the same predicate is
// evaluated once per post-SQL row, and re-compiling its regexp every time
// would be wasted work.
var matchesCache sync.Map // string -> *regexp.Regexp

func compileMatches(pattern string) (*regexp.Regexp, error) {
	if re, ok := matchesCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	matchesCache.Store(pattern, re)
	return re, nil
}

// Eval evaluates pred against src, resolving Path terms through src and
// Const terms as literals. It is the predicate-algebra half of spec §4.B's
// "each predicate node exposes ... an evaluator over a cursor."
func Eval(pred Predicate, src ValueSource) (bool, error) {
	switch p := pred.(type) {
	case And:
		for _, t := range p.Terms {
			ok, err := Eval(t, src)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case Or:
		for _, t := range p.Terms {
			ok, err := Eval(t, src)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		ok, err := Eval(p.Term, src)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case Eql:
		return compareEq(p.X, p.Y, src)
	case NEql:
		eq, err := compareEq(p.X, p.Y, src)
		return !eq, err
	case Lt:
		return compareOrdered(p.X, p.Y, src, func(c int) bool { return c < 0 })
	case LtEql:
		return compareOrdered(p.X, p.Y, src, func(c int) bool { return c <= 0 })
	case Gt:
		return compareOrdered(p.X, p.Y, src, func(c int) bool { return c > 0 })
	case GtEql:
		return compareOrdered(p.X, p.Y, src, func(c int) bool { return c >= 0 })
	case In:
		v, err := resolve(p.X, src)
		if err != nil {
			return false, err
		}
		for _, candidate := range p.Values {
			if valuesEqual(v, candidate) {
				return true, nil
			}
		}
		return false, nil
	case Contains:
		x, err := resolve(p.X, src)
		if err != nil {
			return false, err
		}
		y, err := resolve(p.Y, src)
		if err != nil {
			return false, err
		}
		xs, ok := x.([]any)
		if !ok {
			return false, fmt.Errorf("predicate: Contains requires a list, got %T", x)
		}
		for _, el := range xs {
			if valuesEqual(el, y) {
				return true, nil
			}
		}
		return false, nil
	case StartsWith:
		v, err := resolve(p.X, src)
		if err != nil {
			return false, err
		}
		s, _ := v.(string)
		return strings.HasPrefix(s, p.Prefix), nil
	case Like:
		v, err := resolve(p.X, src)
		if err != nil {
			return false, err
		}
		s, _ := v.(string)
		return likeMatch(s, p.Pattern, p.CaseSensitive), nil
	case Matches:
		v, err := resolve(p.X, src)
		if err != nil {
			return false, err
		}
		s, _ := v.(string)
		re, err := compileMatches(p.Pattern)
		if err != nil {
			return false, fmt.Errorf("predicate: Matches: %w", err)
		}
		return re.MatchString(s), nil
	case AndB:
		x, y, err := resolveInts(p.X, p.Y, src)
		if err != nil {
			return false, err
		}
		return x&y != 0, nil
	case OrB:
		x, y, err := resolveInts(p.X, p.Y, src)
		if err != nil {
			return false, err
		}
		return x|y != 0, nil
	case XorB:
		x, y, err := resolveInts(p.X, p.Y, src)
		if err != nil {
			return false, err
		}
		return x^y != 0, nil
	case NotB:
		x, err := resolve(p.X, src)
		if err != nil {
			return false, err
		}
		xi, _ := toInt64(x)
		return ^xi != 0, nil
	default:
		return false, fmt.Errorf("predicate: Eval: unsupported predicate %T", pred)
	}
}

// ApplyCase returns s transformed per spec §4.B/§4.E's ToUpperCase and
// ToLowerCase fragments, kept in sync with the SQL-side upper()/lower() so
// a predicate evaluated post-SQL (over a CursorField) folds the same way
// the database would have.
func ApplyCase(s string, upperCase bool) string {
	if upperCase {
		return upper.String(s)
	}
	return lower.String(s)
}

func resolve(t Term, src ValueSource) (any, error) {
	switch term := t.(type) {
	case Const:
		return term.Value, nil
	case Path:
		return src.Resolve(term)
	case ToUpperCase:
		return resolveCase(term.X, src, true)
	case ToLowerCase:
		return resolveCase(term.X, src, false)
	default:
		return nil, fmt.Errorf("predicate: unsupported term %T", t)
	}
}

func resolveCase(inner Term, src ValueSource, upperCase bool) (any, error) {
	v, err := resolve(inner, src)
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("predicate: upper/lower requires a string, got %T", v)
	}
	return ApplyCase(s, upperCase), nil
}

func compareEq(x, y Term, src ValueSource) (bool, error) {
	xv, err := resolve(x, src)
	if err != nil {
		return false, err
	}
	yv, err := resolve(y, src)
	if err != nil {
		return false, err
	}
	return valuesEqual(xv, yv), nil
}

func compareOrdered(x, y Term, src ValueSource, ok func(int) bool) (bool, error) {
	xv, err := resolve(x, src)
	if err != nil {
		return false, err
	}
	yv, err := resolve(y, src)
	if err != nil {
		return false, err
	}
	c, err := compareValues(xv, yv)
	if err != nil {
		return false, err
	}
	return ok(c), nil
}

func resolveInts(x, y Term, src ValueSource) (int64, int64, error) {
	xv, err := resolve(x, src)
	if err != nil {
		return 0, 0, err
	}
	yv, err := resolve(y, src)
	if err != nil {
		return 0, 0, err
	}
	xi, ok := toInt64(xv)
	if !ok {
		return 0, 0, fmt.Errorf("predicate: bitwise operand %v is not an integer", xv)
	}
	yi, ok := toInt64(yv)
	if !ok {
		return 0, 0, fmt.Errorf("predicate: bitwise operand %v is not an integer", yv)
	}
	return xi, yi, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareValues(a, b any) (int, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), nil
	}
	return 0, fmt.Errorf("predicate: cannot order %T and %T", a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func likeMatch(s, pattern string, caseSensitive bool) bool {
	if !caseSensitive {
		s = lower.String(s)
		pattern = lower.String(pattern)
	}
	return likeHelper(s, pattern)
}
