package dialect

import (
	"fmt"
	"strings"
)

type mysqlDialect struct{}

// MySQL is the MySQL Dialect singleton.
var MySQL Dialect = mysqlDialect{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func (d mysqlDialect) QualifiedTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

func (mysqlDialect) BindVar(i int) string { return "?" }

func (mysqlDialect) ParamPrefix() byte { return '?' }

func (mysqlDialect) RenderLike(colRef, bindVar string, form LikeForm, negate bool) string {
	op := "LIKE"
	if negate {
		op = "NOT LIKE"
	}
	var arg string
	switch form {
	case LikeStartsWith:
		arg = fmt.Sprintf("CONCAT(%s, '%%')", bindVar)
	case LikeEndsWith:
		arg = fmt.Sprintf("CONCAT('%%', %s)", bindVar)
	default:
		arg = fmt.Sprintf("CONCAT('%%', %s, '%%')", bindVar)
	}
	return fmt.Sprintf("%s %s %s", colRef, op, arg)
}

func (mysqlDialect) RenderOp(op Op) (string, error) { return renderOpCommon(op) }

func (mysqlDialect) RenderPaging(orderBy []string, limit, offset int, unbounded bool) string {
	var b strings.Builder
	if len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orderBy, ", "))
	}
	switch {
	case unbounded && offset > 0:
		// MySQL has no OFFSET-without-LIMIT syntax; a very large limit
		// stands in for "no cap" the same way the teacher's MySQL dialect
		// does for unbounded paginated queries.
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", 1<<62, offset)
	case unbounded:
		// no clause needed
	case offset > 0:
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", limit, offset)
	default:
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	return b.String()
}

func (mysqlDialect) LastInsertedIDExpr(table, idCol string) string {
	return "SELECT LAST_INSERT_ID()"
}
