package mutate

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
)

// compileInsert implements spec.md §4.8's insert rule: INSERT the writable
// columns, then SELECT the dialect's last-inserted-identity expression,
// both carried in one statement text joined by "; " (core's executor runs
// the two parts as separate calls inside one transaction).
func (c *Compiler) compileInsert(t *catalog.Table, user UserContext, data map[string]interface{}) ([]Statement, error) {
	cols, vals := writableColumns(t, data, c.Now(), user, catalog.PopulateCreatedOn, catalog.PopulateCreatedBy)
	// Audit columns are filled in regardless of data, so only a column taken
	// from data counts as supplied.
	supplied := false
	for _, col := range cols {
		if c, ok := t.Column(col); ok && c.Populate == catalog.PopulateNone {
			supplied = true
			break
		}
	}
	if !supplied {
		return nil, errs.New(errs.InvalidQuery, "insert on %s supplies no writable columns", t.Ref)
	}

	d := c.Dialect
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = d.QuoteIdentifier(col)
		placeholders[i] = d.BindVar(i + 1)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QualifiedTable(t.Ref.Schema, t.Ref.Name), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	returnsIdentity := t.IdentityColumn != nil
	if returnsIdentity {
		sql += "; " + d.LastInsertedIDExpr(d.QualifiedTable(t.Ref.Schema, t.Ref.Name), t.IdentityColumn.Name)
	}

	return []Statement{{SQL: sql, Params: vals, ReturnsIdentity: returnsIdentity}}, nil
}
