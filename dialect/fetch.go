package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/chlorophyll/mapper/cursor"
	"github.com/chlorophyll/mapper/planner"
	sqlpkg "github.com/chlorophyll/mapper/sql"
)

// Fetch issues mq's Fragment against drv and decodes the result into
// cursor.Rows, one per returned row, keyed by each projected column's
// mapping.ColumnRef.Key() — spec §6's "fetch(fragment, metas) → Table."
// Session variables stashed on ctx via sql.WithVar (e.g. statement_timeout)
// are applied before the query, per SPEC_FULL §4.
func Fetch(ctx context.Context, drv ExecQuerier, mq *planner.MappedQuery, frag sqlpkg.Fragment) ([]cursor.Row, error) {
	if err := applyVars(ctx, drv); err != nil {
		return nil, fmt.Errorf("dialect: apply session vars: %w", err)
	}

	args := make([]any, len(frag.Binds))
	for i, b := range frag.Binds {
		args[i] = b.Value
	}

	rows, err := drv.QueryContext(ctx, frag.Text, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect: query: %w", err)
	}
	defer rows.Close()

	cols := mq.Columns
	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	var out []cursor.Row
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("dialect: scan: %w", err)
		}
		row := make(cursor.Row, len(cols))
		for i, col := range cols {
			row[col.Key()] = cellFor(dest[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialect: rows: %w", err)
	}
	return out, nil
}

// cellFor wraps a database/sql scanned value (the Go-native type the
// driver already decoded it to: int64, float64, bool, string, []byte, or
// nil) as a cursor.Cell. mapping.Codec.Decode, called later by the cursor
// package, does any further type conversion (e.g. string -> uuid.UUID).
func cellFor(v any) cursor.Cell {
	switch x := v.(type) {
	case nil:
		return cursor.NullCell()
	case int64:
		return cursor.I64Cell(x)
	case int32:
		return cursor.I32Cell(x)
	case int:
		return cursor.I64Cell(int64(x))
	case float64:
		return cursor.F64Cell(x)
	case bool:
		return cursor.BoolCell(x)
	case string:
		return cursor.StringCell(x)
	case []byte:
		return cursor.BytesCell(x)
	default:
		return cursor.CustomCell(x)
	}
}

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores,
// dots for schema.name), adapted from velox/dialect/sql/driver.go.
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue escapes a string value for safe use in SQL.
// It escapes both single quotes (by doubling) and backslashes (for MySQL
// compatibility).
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// applyVars issues a SET statement per session variable stashed on ctx.
// SET covers Postgres and MySQL; a SQLite-backed Driver has no use for
// session variables (PRAGMAs are connection-scoped, not statement-scoped)
// and callers simply won't stash any when targeting it. The variable name
// is validated and the value escaped to prevent SQL injection, since both
// come from sql.WithVar callers and end up interpolated into the SET text.
func applyVars(ctx context.Context, drv ExecQuerier) error {
	for name, value := range sqlpkg.AllVars(ctx) {
		if !isValidIdentifier(name) {
			return fmt.Errorf("dialect: invalid session variable name: %q", name)
		}
		stmt := fmt.Sprintf("SET %s = '%s'", name, escapeStringValue(value))
		if _, err := drv.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
