package mutate

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
)

// compileDelete implements spec.md §4.8's delete rule: a hard DELETE for
// ordinary tables, rewritten to an UPDATE of the configured deleted-on/
// deleted-by columns when the table carries soft-delete metadata.
func (c *Compiler) compileDelete(t *catalog.Table, user UserContext, where map[string]interface{}) ([]Statement, error) {
	pkCols, pkVals, err := pkWhere(t, where)
	if err != nil {
		return nil, err
	}

	if t.SoftDelete != nil {
		return c.compileSoftDelete(t, user, pkCols, pkVals)
	}

	d := c.Dialect
	idx := 1
	conds := make([]string, len(pkCols))
	for i, col := range pkCols {
		conds[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(col), d.BindVar(idx))
		idx++
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s", d.QualifiedTable(t.Ref.Schema, t.Ref.Name), strings.Join(conds, " AND "))
	return []Statement{{SQL: sql, Params: pkVals}}, nil
}

// compileSoftDelete rewrites the delete into an UPDATE setting the
// SoftDelete-configured columns (spec.md §8 S5), leaving whichever of
// deleted-on/deleted-by the table actually configures.
func (c *Compiler) compileSoftDelete(t *catalog.Table, user UserContext, pkCols []string, pkVals []interface{}) ([]Statement, error) {
	var setCols []string
	var setVals []interface{}
	if t.SoftDelete.DeletedOnColumn != "" {
		setCols = append(setCols, t.SoftDelete.DeletedOnColumn)
		setVals = append(setVals, c.Now())
	}
	if t.SoftDelete.DeletedByColumn != "" {
		setCols = append(setCols, t.SoftDelete.DeletedByColumn)
		setVals = append(setVals, user.UserID)
	}
	sql, params := renderUpdate(c.Dialect, t, setCols, setVals, pkCols, pkVals)
	return []Statement{{SQL: sql, Params: params}}, nil
}
