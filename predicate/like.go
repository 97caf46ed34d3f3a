package predicate

// likeHelper implements SQL LIKE matching ('%' = any run of characters,
// '_' = exactly one character) for the post-SQL evaluator in Eval, so
// Like/StartsWith match the same way the compiled `LIKE` fragment would
// have on the database side (a case-insensitive Like compiles to
// `LOWER(x) LIKE` with a lowercased pattern; there is no `ILIKE`).
func likeHelper(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	var memo = map[[2]int]bool{}
	var rec func(si, pi int) bool
	rec = func(si, pi int) bool {
		key := [2]int{si, pi}
		if v, ok := memo[key]; ok {
			return v
		}
		var result bool
		switch {
		case pi == len(p):
			result = si == len(s)
		case p[pi] == '%':
			result = rec(si, pi+1) || (si < len(s) && rec(si+1, pi))
		case p[pi] == '_':
			result = si < len(s) && rec(si+1, pi+1)
		default:
			result = si < len(s) && s[si] == p[pi] && rec(si+1, pi+1)
		}
		memo[key] = result
		return result
	}
	return rec(0, 0)
}
