package planner

import (
	"fmt"

	mapper "github.com/chlorophyll/mapper"
	"github.com/chlorophyll/mapper/mapping"
)

// chooseRoot picks the FROM-clause table, per spec §4.E step 6: "the tables
// referenced by columns that are not the child side of any join are
// candidates; if exactly one, it is the root; otherwise pick the table
// that is the parent of the most distinct child tables." A self-join (a
// join whose parent and child are the same table) does not make its table
// a child for this purpose.
func chooseRoot(columns []mapping.ColumnRef, joins []mapping.Join) (string, error) {
	tables := map[string]struct{}{}
	for _, c := range columns {
		tables[c.Table] = struct{}{}
	}
	if len(tables) == 0 {
		return "", mapper.ErrAmbiguousRoot
	}
	columnKeys := mapping.SortedColumnKeys(columns)

	isChild := map[string]struct{}{}
	distinctChildren := map[string]map[string]struct{}{}
	for _, j := range joins {
		if j.Parent.Table == j.Child.Table {
			continue
		}
		isChild[j.Child.Table] = struct{}{}
		children, ok := distinctChildren[j.Parent.Table]
		if !ok {
			children = map[string]struct{}{}
			distinctChildren[j.Parent.Table] = children
		}
		children[j.Child.Table] = struct{}{}
	}

	var candidates []string
	for t := range tables {
		if _, ok := isChild[t]; !ok {
			candidates = append(candidates, t)
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%w: columns %v have no parent-only table", mapper.ErrJoinCycle, columnKeys)
	case 1:
		return candidates[0], nil
	default:
		return tieBreakRoot(candidates, distinctChildren, columnKeys)
	}
}

// tieBreakRoot picks the candidate that parents the most distinct child
// tables, per spec §4.E step 6's tie-break rule. A tie at the maximum
// (including a maximum of zero, meaning no candidate parents anything)
// leaves the root genuinely ambiguous.
func tieBreakRoot(candidates []string, distinctChildren map[string]map[string]struct{}, columnKeys []string) (string, error) {
	counts := make(map[string]int, len(candidates))
	maxCount := -1
	for _, t := range candidates {
		c := len(distinctChildren[t])
		counts[t] = c
		if c > maxCount {
			maxCount = c
		}
	}

	var winners []string
	for _, t := range candidates {
		if counts[t] == maxCount {
			winners = append(winners, t)
		}
	}
	if len(winners) != 1 {
		return "", fmt.Errorf("%w: columns %v yield tied candidates %v", mapper.ErrAmbiguousRoot, columnKeys, winners)
	}
	return winners[0], nil
}

// orderJoins topologically sorts joins so every join's Parent table is
// either root or already reachable by an earlier join's Child, per spec
// §4.E step 7 ("joins ordered so each LEFT JOIN's ON clause only references
// already-introduced tables"). Detects cycles via mapper.ErrJoinCycle.
func orderJoins(root string, joins []mapping.Join) ([]mapping.Join, error) {
	remaining := append([]mapping.Join(nil), joins...)
	introduced := map[string]struct{}{root: {}}
	ordered := make([]mapping.Join, 0, len(joins))

	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0:0]
		for _, j := range remaining {
			if _, ok := introduced[j.Parent.Table]; ok {
				ordered = append(ordered, j)
				introduced[j.Child.Table] = struct{}{}
				progressed = true
				continue
			}
			next = append(next, j)
		}
		remaining = next
		if !progressed {
			return nil, mapper.ErrJoinCycle
		}
	}
	return ordered, nil
}
