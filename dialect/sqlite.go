package dialect

import (
	"fmt"
	"strings"
)

type sqliteDialect struct{}

// SQLite is the SQLite Dialect singleton.
var SQLite Dialect = sqliteDialect{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (d sqliteDialect) QualifiedTable(schema, table string) string {
	// SQLite has no schemas in the Postgres/SQL-Server sense; schema here
	// would only ever be an attached-database name, which BifrostQL does
	// not support (Non-goals: cross-database joins).
	return d.QuoteIdentifier(table)
}

func (sqliteDialect) BindVar(i int) string { return fmt.Sprintf("?%d", i) }

func (sqliteDialect) ParamPrefix() byte { return '?' }

func (sqliteDialect) RenderLike(colRef, bindVar string, form LikeForm, negate bool) string {
	op := "LIKE"
	if negate {
		op = "NOT LIKE"
	}
	return fmt.Sprintf("%s %s %s", colRef, op, likeConcat(bindVar, form, "||"))
}

func (sqliteDialect) RenderOp(op Op) (string, error) { return renderOpCommon(op) }

func (sqliteDialect) RenderPaging(orderBy []string, limit, offset int, unbounded bool) string {
	var b strings.Builder
	if len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orderBy, ", "))
	}
	if !unbounded {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	} else if offset > 0 {
		b.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

func (sqliteDialect) LastInsertedIDExpr(table, idCol string) string {
	return "SELECT last_insert_rowid()"
}
