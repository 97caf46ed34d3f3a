package interp

import (
	"fmt"

	"github.com/chlorophyll/mapper/cursor"
	"github.com/chlorophyll/mapper/mapping"
)

// Regroup splits a coalesced fetch's rows back into one *cursor.SqlCursor
// per original sibling, keyed by the value each sibling was looking up
// (Coalesced.ValueAt), so the interpreter can hand each sibling's caller
// exactly the rows that answer its own lookup — spec §4.H's "regroup after
// a coalesced fetch." A sibling whose value matched no row gets an empty
// cursor rather than an error: a single-key lookup with no match is a
// normal "not found," not a fetch failure.
func Regroup(cat *mapping.Catalog, typeName string, path []string, rows []cursor.Row, keyCol mapping.ColumnRef, valueAt []any) []*cursor.SqlCursor {
	byKey := make(map[string][]cursor.Row, len(rows))
	for _, row := range rows {
		k := fmt.Sprintf("%v", row[keyCol.Key()].Raw())
		byKey[k] = append(byKey[k], row)
	}

	out := make([]*cursor.SqlCursor, len(valueAt))
	for i, v := range valueAt {
		out[i] = cursor.New(cat, typeName, path, byKey[fmt.Sprintf("%v", v)])
	}
	return out
}
