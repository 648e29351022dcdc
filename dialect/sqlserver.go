package dialect

import (
	"fmt"
	"strings"
)

type sqlServerDialect struct{}

// SQLServer is the Microsoft SQL Server Dialect singleton.
var SQLServer Dialect = sqlServerDialect{}

func (sqlServerDialect) Name() string { return "sql-server" }

func (sqlServerDialect) QuoteIdentifier(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

func (d sqlServerDialect) QualifiedTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

func (sqlServerDialect) BindVar(i int) string { return fmt.Sprintf("@p%d", i) }

func (sqlServerDialect) ParamPrefix() byte { return '@' }

func (sqlServerDialect) RenderLike(colRef, bindVar string, form LikeForm, negate bool) string {
	op := "LIKE"
	if negate {
		op = "NOT LIKE"
	}
	return fmt.Sprintf("%s %s %s", colRef, op, likeConcat(bindVar, form, "+"))
}

func (sqlServerDialect) RenderOp(op Op) (string, error) { return renderOpCommon(op) }

// RenderPaging always emits an ORDER BY — SQL Server's OFFSET/FETCH clause
// is illegal without one. The emitter guarantees orderBy is never empty for
// this dialect by injecting the primary-key tie-break first (spec.md §4.1,
// §9 "SQL-Server pagination without explicit sort").
func (sqlServerDialect) RenderPaging(orderBy []string, limit, offset int, unbounded bool) string {
	var b strings.Builder
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(orderBy, ", "))
	fmt.Fprintf(&b, " OFFSET %d ROWS", offset)
	if !unbounded {
		fmt.Fprintf(&b, " FETCH NEXT %d ROWS ONLY", limit)
	}
	return b.String()
}

func (sqlServerDialect) LastInsertedIDExpr(table, idCol string) string {
	return "SELECT SCOPE_IDENTITY()"
}
