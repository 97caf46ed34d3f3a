package query

// MergeQueries folds sibling selections sharing the same (name, alias)
// pair into one, recursively merging their children, per spec §4.A.
// Narrow siblings with the same target type are coalesced; Empty is
// dropped; order of first occurrence is preserved (stable).
func MergeQueries(qs []Query) Query {
	type bucket struct {
		key      string
		selects  []Select
		narrow   *Narrow
		children []Query // children for non-Select/Narrow queries, kept verbatim
	}
	order := make([]string, 0, len(qs))
	buckets := make(map[string]*bucket)
	var passthrough []Query

	for _, q := range qs {
		switch n := q.(type) {
		case Empty:
			continue
		case Select:
			key := "select:" + n.Name + "\x00" + n.Alias
			b, ok := buckets[key]
			if !ok {
				b = &bucket{key: key}
				buckets[key] = b
				order = append(order, key)
			}
			b.selects = append(b.selects, n)
		case Narrow:
			key := "narrow:" + n.TargetType
			b, ok := buckets[key]
			if !ok {
				b = &bucket{key: key}
				buckets[key] = b
				order = append(order, key)
			}
			nn := n
			if b.narrow == nil {
				b.narrow = &nn
			} else {
				merged := MergeQueries([]Query{b.narrow.Child, n.Child})
				b.narrow.Child = merged
			}
		default:
			passthrough = append(passthrough, q)
		}
	}

	out := make([]Query, 0, len(order)+len(passthrough))
	for _, key := range order {
		b := buckets[key]
		switch {
		case len(b.selects) > 0:
			children := make([]Query, len(b.selects))
			for i, s := range b.selects {
				children[i] = s.Child
			}
			merged := MergeQueries(children)
			first := b.selects[0]
			first.Child = merged
			out = append(out, first)
		case b.narrow != nil:
			out = append(out, *b.narrow)
		}
	}
	out = append(out, passthrough...)
	return NewGroup(out...)
}

// MergeUntyped is UntypedSelect's counterpart to MergeQueries: it
// additionally merges directive lists by concatenation, per spec §4.A's
// "two separate mergers exist."
func MergeUntyped(qs []Query) Query {
	type bucket struct {
		sels []UntypedSelect
	}
	order := []string{}
	buckets := map[string]*bucket{}
	var passthrough []Query

	for _, q := range qs {
		switch n := q.(type) {
		case Empty:
			continue
		case UntypedSelect:
			key := n.EffectiveAliasUntyped()
			b, ok := buckets[key]
			if !ok {
				b = &bucket{}
				buckets[key] = b
				order = append(order, key)
			}
			b.sels = append(b.sels, n)
		default:
			passthrough = append(passthrough, q)
		}
	}

	out := make([]Query, 0, len(order)+len(passthrough))
	for _, key := range order {
		b := buckets[key]
		children := make([]Query, len(b.sels))
		var directives []string
		for i, s := range b.sels {
			children[i] = s.Child
			directives = append(directives, s.Directives...)
		}
		merged := MergeUntyped(children)
		first := b.sels[0]
		first.Child = merged
		first.Directives = directives
		out = append(out, first)
	}
	out = append(out, passthrough...)
	return NewGroup(out...)
}

// EffectiveAliasUntyped mirrors Select.EffectiveAlias for UntypedSelect.
func (u UntypedSelect) EffectiveAliasUntyped() string {
	if u.Alias != "" {
		return u.Alias
	}
	return u.Name
}

// MkPathQuery builds the minimal Select tree covering every path in paths,
// sharing common prefixes, per spec §4.A.
func MkPathQuery(paths [][]string) Query {
	var build func(ps [][]string) Query
	build = func(ps [][]string) Query {
		groups := make(map[string][][]string)
		var order []string
		for _, p := range ps {
			if len(p) == 0 {
				continue
			}
			head := p[0]
			if _, ok := groups[head]; !ok {
				order = append(order, head)
			}
			groups[head] = append(groups[head], p[1:])
		}
		var out []Query
		for _, head := range order {
			rest := groups[head]
			var child Query = Empty{}
			var nonEmpty [][]string
			for _, r := range rest {
				if len(r) > 0 {
					nonEmpty = append(nonEmpty, r)
				}
			}
			if len(nonEmpty) > 0 {
				child = build(nonEmpty)
			}
			out = append(out, Select{Name: head, Child: child})
		}
		return NewGroup(out...)
	}
	return build(paths)
}

// RootName looks through Environment/TransformCursor/Rename/Wrap wrappers
// to reach the first Select and returns its Name, per spec §4.A.
func RootName(q Query) (string, bool) {
	sel, ok := firstSelect(q)
	if !ok {
		return "", false
	}
	return sel.Name, true
}

// ResultName is RootName's alias-aware counterpart.
func ResultName(q Query) (string, bool) {
	sel, ok := firstSelect(q)
	if !ok {
		return "", false
	}
	return sel.EffectiveAlias(), true
}

// HasField reports whether q selects name at its top Select level.
func HasField(q Query, name string) bool {
	sel, ok := firstSelect(q)
	return ok && sel.Name == name
}

// FieldAlias returns the alias (or name) q's top Select was given.
func FieldAlias(q Query) (string, bool) {
	return ResultName(q)
}

// SubstChild replaces the child of q's first reachable Select with next,
// looking through the same wrappers as firstSelect, and returns the
// rewritten tree.
func SubstChild(q Query, next Query) Query {
	switch n := q.(type) {
	case Select:
		n.Child = next
		return n
	case Environment:
		n.Child = SubstChild(n.Child, next)
		return n
	case TransformCursor:
		n.Child = SubstChild(n.Child, next)
		return n
	case Rename:
		n.Child = SubstChild(n.Child, next)
		return n
	case Wrap:
		n.Child = SubstChild(n.Child, next)
		return n
	default:
		return q
	}
}

// MapFields applies fn to every Select reachable by looking through
// Environment/TransformCursor/Rename/Wrap wrappers within a Group, and
// collects the results, preserving order.
func MapFields[R any](q Query, fn func(Select) R) []R {
	var out []R
	var walk func(Query)
	walk = func(q Query) {
		switch n := q.(type) {
		case Group:
			for _, c := range n.Children {
				walk(c)
			}
		case Select:
			out = append(out, fn(n))
		case Environment:
			walk(n.Child)
		case TransformCursor:
			walk(n.Child)
		case Rename:
			walk(n.Child)
		case Wrap:
			walk(n.Child)
		}
	}
	walk(q)
	return out
}

func firstSelect(q Query) (Select, bool) {
	switch n := q.(type) {
	case Select:
		return n, true
	case Environment:
		return firstSelect(n.Child)
	case TransformCursor:
		return firstSelect(n.Child)
	case Rename:
		return firstSelect(n.Child)
	case Wrap:
		return firstSelect(n.Child)
	default:
		return Select{}, false
	}
}
