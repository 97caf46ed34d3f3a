package planner

import (
	"strings"

	sqlpkg "github.com/chlorophyll/mapper/sql"
)

// Fragment lazily renders mq into one SQL statement: SELECT over the
// projected columns, FROM the chosen root table, the ordered LEFT JOINs,
// and an optional WHERE clause folding every accumulated predicate with
// AND, per spec §4.E/§6 ("fetch(fragment, metas)"). Rendering happens here,
// not at Build time, so a caller that only needs Columns/Metas (e.g. to
// decide whether a query is even worth issuing) never pays for it.
func (mq *MappedQuery) Fragment(fallback sqlpkg.Encoder) (sqlpkg.Fragment, error) {
	if fallback == nil {
		fallback = sqlpkg.Identity
	}

	cols := make([]string, len(mq.Columns))
	for i, c := range mq.Columns {
		cols[i] = c.String()
	}
	text := "SELECT " + strings.Join(cols, ", ") + " FROM " + mq.Table

	for _, j := range mq.Joins {
		text += " LEFT JOIN " + j.Child.Table + " ON " + j.Parent.String() + " = " + j.Child.String()
	}

	clauses := make([]sqlpkg.Fragment, 0, len(mq.Predicates))
	for _, entry := range mq.Predicates {
		f, err := compilePredicate(mq.catalog, entry, fallback)
		if err != nil {
			return sqlpkg.Fragment{}, err
		}
		clauses = append(clauses, f)
	}

	fragment := sqlpkg.Const(text).Append(sqlpkg.WhereAndOpt(clauses...))
	fragment.Text = sqlpkg.Placeholders(mq.dialect, fragment)
	return fragment, nil
}
