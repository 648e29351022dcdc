package mutate

import (
	"github.com/standardbeagle/BifrostQL-sub008/catalog"
)

// compileUpsert implements spec.md §4.8's upsert rule. When data carries
// every primary key, the first statement attempts an UPDATE; the second is
// the INSERT fallback, tagged RunIfPrevZeroRows so the caller only runs it
// when the UPDATE affected no rows. No dialect in this pack exposes a
// single-statement conditional upsert form (Postgres' ON CONFLICT and
// MySQL's ON DUPLICATE KEY both require a unique/PK constraint target the
// catalog doesn't surface generically across all four dialects), so the
// two statements are compiled together and run as one logical unit by the
// caller rather than as one SQL statement.
func (c *Compiler) compileUpsert(t *catalog.Table, user UserContext, data, where map[string]interface{}) ([]Statement, error) {
	if !dataHasAllPKs(t, data) {
		return c.compileInsert(t, user, data)
	}

	updateWhere := make(map[string]interface{}, len(t.PrimaryKeys))
	for _, pk := range t.PrimaryKeys {
		updateWhere[pk.Name] = data[pk.Name]
	}
	for k, v := range where {
		updateWhere[k] = v
	}

	updateStmts, err := c.compileUpdate(t, user, data, updateWhere)
	if err != nil {
		return nil, err
	}

	insertStmts, err := c.compileInsert(t, user, data)
	if err != nil {
		return nil, err
	}
	for i := range insertStmts {
		insertStmts[i].RunIf = RunIfPrevZeroRows
	}

	return append(updateStmts, insertStmts...), nil
}
