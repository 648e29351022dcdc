package mutate

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/dialect"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
)

// compileUpdate implements spec.md §4.8's update rule: where must match
// every primary key; SET clause carries data's writable columns plus any
// updated-on/updated-by audit columns.
func (c *Compiler) compileUpdate(t *catalog.Table, user UserContext, data, where map[string]interface{}) ([]Statement, error) {
	pkCols, pkVals, err := pkWhere(t, where)
	if err != nil {
		return nil, err
	}

	cols, vals := writableColumns(t, data, c.Now(), user, catalog.PopulateUpdatedOn, catalog.PopulateUpdatedBy)
	cols, vals = dropPrimaryKeys(t, cols, vals)
	if len(cols) == 0 {
		return nil, errs.New(errs.InvalidQuery, "update on %s supplies no writable columns", t.Ref)
	}

	sql, params := renderUpdate(c.Dialect, t, cols, vals, pkCols, pkVals)
	return []Statement{{SQL: sql, Params: params}}, nil
}

func renderUpdate(d dialect.Dialect, t *catalog.Table, setCols []string, setVals []interface{}, whereCols []string, whereVals []interface{}) (string, []interface{}) {
	idx := 1
	sets := make([]string, len(setCols))
	for i, col := range setCols {
		sets[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(col), d.BindVar(idx))
		idx++
	}
	conds := make([]string, len(whereCols))
	for i, col := range whereCols {
		conds[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(col), d.BindVar(idx))
		idx++
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		d.QualifiedTable(t.Ref.Schema, t.Ref.Name), strings.Join(sets, ", "), strings.Join(conds, " AND "))
	params := append(append([]interface{}{}, setVals...), whereVals...)
	return sql, params
}

func dropPrimaryKeys(t *catalog.Table, cols []string, vals []interface{}) ([]string, []interface{}) {
	isPK := map[string]bool{}
	for _, pk := range t.PrimaryKeys {
		isPK[pk.Name] = true
	}
	outCols := cols[:0:0]
	outVals := vals[:0:0]
	for i, col := range cols {
		if isPK[col] {
			continue
		}
		outCols = append(outCols, col)
		outVals = append(outVals, vals[i])
	}
	return outCols, outVals
}
