package dialect

import (
	"fmt"
	"strings"
)

type postgresDialect struct{}

// Postgres is the PostgreSQL Dialect singleton.
var Postgres Dialect = postgresDialect{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (d postgresDialect) QualifiedTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

func (postgresDialect) BindVar(i int) string { return fmt.Sprintf("$%d", i) }

func (postgresDialect) ParamPrefix() byte { return '$' }

func (postgresDialect) RenderLike(colRef, bindVar string, form LikeForm, negate bool) string {
	op := "LIKE"
	if negate {
		op = "NOT LIKE"
	}
	return fmt.Sprintf("%s %s %s", colRef, op, likeConcat(bindVar, form, "||"))
}

func (postgresDialect) RenderOp(op Op) (string, error) { return renderOpCommon(op) }

func (postgresDialect) RenderPaging(orderBy []string, limit, offset int, unbounded bool) string {
	var b strings.Builder
	if len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orderBy, ", "))
	}
	if !unbounded {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

func (postgresDialect) LastInsertedIDExpr(table, idCol string) string {
	return "SELECT lastval()"
}

// likeConcat builds the wildcard-wrapped LIKE operand using concat operator
// concatOp ("||" for Postgres/SQLite, "+" for SQL Server, string-concat
// function form handled separately for MySQL).
func likeConcat(bindVar string, form LikeForm, concatOp string) string {
	switch form {
	case LikeStartsWith:
		return fmt.Sprintf("(%s %s '%%')", bindVar, concatOp)
	case LikeEndsWith:
		return fmt.Sprintf("('%%' %s %s)", concatOp, bindVar)
	default:
		return fmt.Sprintf("('%%' %s %s %s '%%')", concatOp, bindVar, concatOp)
	}
}
