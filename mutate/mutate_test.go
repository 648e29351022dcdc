package mutate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/dialect"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
)

func usersTable() *catalog.Table {
	t := &catalog.Table{Ref: catalog.TableRef{Name: "users"}, Kind: catalog.BaseTable}
	t.AddColumn(&catalog.Column{Name: "id", DBType: "int4", IsPrimaryKey: true, IsIdentity: true, Ordinal: 0})
	t.AddColumn(&catalog.Column{Name: "name", DBType: "varchar", Ordinal: 1})
	t.AddColumn(&catalog.Column{Name: "createdOn", DBType: "timestamp", Ordinal: 2, Populate: catalog.PopulateCreatedOn})
	t.AddColumn(&catalog.Column{Name: "createdBy", DBType: "varchar", Ordinal: 3, Populate: catalog.PopulateCreatedBy})
	t.AddColumn(&catalog.Column{Name: "updatedOn", DBType: "timestamp", Nullable: true, Ordinal: 4, Populate: catalog.PopulateUpdatedOn})
	t.AddColumn(&catalog.Column{Name: "updatedBy", DBType: "varchar", Nullable: true, Ordinal: 5, Populate: catalog.PopulateUpdatedBy})
	return t
}

func softDeleteUsersTable() *catalog.Table {
	t := usersTable()
	t.AddColumn(&catalog.Column{Name: "deletedOn", DBType: "timestamp", Nullable: true, Ordinal: 6})
	t.AddColumn(&catalog.Column{Name: "deletedBy", DBType: "varchar", Nullable: true, Ordinal: 7})
	t.SoftDelete = &catalog.SoftDelete{DeletedOnColumn: "deletedOn", DeletedByColumn: "deletedBy"}
	return t
}

func testCatalog(t *catalog.Table) *catalog.Catalog {
	cat := catalog.New("postgres")
	cat.Put(t)
	return cat
}

func fixedClock(now time.Time) *Compiler {
	c := NewCompiler(dialect.Postgres)
	c.Now = func() time.Time { return now }
	return c
}

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestCompileInsertEmitsInsertThenIdentitySelect(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)

	stmts, err := c.Compile(cat, UserContext{UserID: "alice"}, Request{
		Table:  "users",
		Action: Insert,
		Data:   map[string]interface{}{"name": "X", "id": 999}, // id is identity: dropped silently
	})
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	s := stmts[0]
	assert.True(t, s.ReturnsIdentity)
	assert.Contains(t, s.SQL, `INSERT INTO "users"`)
	assert.Contains(t, s.SQL, "SELECT lastval()")
	assert.NotContains(t, s.SQL, `"id"`, "identity column must never be written by the client")
	assert.Contains(t, s.Params, "X")
	assert.Contains(t, s.Params, testNow)
	assert.Contains(t, s.Params, "alice")
}

func TestCompileInsertRejectsEmptyData(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)
	_, err := c.Compile(cat, UserContext{}, Request{Table: "users", Action: Insert, Data: map[string]interface{}{}})
	require.Error(t, err)
	assert.Equal(t, errs.InvalidQuery, errs.CodeOf(err))
}

func TestCompileUpdateRequiresFullPrimaryKeyInWhere(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)
	_, err := c.Compile(cat, UserContext{}, Request{
		Table:  "users",
		Action: Update,
		Data:   map[string]interface{}{"name": "Y"},
		Where:  map[string]interface{}{},
	})
	require.Error(t, err)
	assert.Equal(t, errs.MissingPK, errs.CodeOf(err))
}

func TestCompileUpdateSetsUpdatedAuditColumnsAndExcludesPK(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)

	stmts, err := c.Compile(cat, UserContext{UserID: "bob"}, Request{
		Table:  "users",
		Action: Update,
		Data:   map[string]interface{}{"name": "Y", "id": 1},
		Where:  map[string]interface{}{"id": 1},
	})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	s := stmts[0]
	assert.Contains(t, s.SQL, `UPDATE "users" SET`)
	assert.Contains(t, s.SQL, `WHERE "id" =`)
	setClause := strings.SplitN(s.SQL, "WHERE", 2)[0]
	assert.NotContains(t, setClause, `"id"`, "pk must not appear in SET")
	assert.Contains(t, s.Params, testNow)
	assert.Contains(t, s.Params, "bob")
	assert.Contains(t, s.Params, 1) // pk bound in WHERE
}

func TestCompileDeleteHardDeletesOrdinaryTable(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)
	stmts, err := c.Compile(cat, UserContext{}, Request{
		Table:  "users",
		Action: Delete,
		Where:  map[string]interface{}{"id": 7},
	})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0].SQL, `DELETE FROM "users" WHERE "id" =`)
}

// TestCompileDeleteRewritesSoftDeleteToUpdate is spec.md §8 scenario S5.
func TestCompileDeleteRewritesSoftDeleteToUpdate(t *testing.T) {
	cat := testCatalog(softDeleteUsersTable())
	c := fixedClock(testNow)
	stmts, err := c.Compile(cat, UserContext{UserID: "carol"}, Request{
		Table:  "users",
		Action: Delete,
		Where:  map[string]interface{}{"id": 7},
	})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	s := stmts[0]
	assert.Contains(t, s.SQL, `UPDATE "users" SET`)
	assert.Contains(t, s.SQL, `"deletedOn"`)
	assert.Contains(t, s.SQL, `"deletedBy"`)
	assert.Contains(t, s.SQL, `WHERE "id" =`)
	assert.Contains(t, s.Params, testNow)
	assert.Contains(t, s.Params, "carol")
}

func TestCompileDeleteMissingPKFails(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)
	_, err := c.Compile(cat, UserContext{}, Request{Table: "users", Action: Delete, Where: map[string]interface{}{}})
	require.Error(t, err)
	assert.Equal(t, errs.MissingPK, errs.CodeOf(err))
}

func TestCompileUpsertWithFullPKEmitsUpdateThenConditionalInsert(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)
	stmts, err := c.Compile(cat, UserContext{UserID: "dave"}, Request{
		Table:  "users",
		Action: Upsert,
		Data:   map[string]interface{}{"id": 5, "name": "Z"},
	})
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0].SQL, "UPDATE")
	assert.Empty(t, stmts[0].RunIf)
	assert.Contains(t, stmts[1].SQL, "INSERT")
	assert.Equal(t, RunIfPrevZeroRows, stmts[1].RunIf)
}

func TestCompileUpsertWithoutFullPKFallsBackToPlainInsert(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)
	stmts, err := c.Compile(cat, UserContext{UserID: "dave"}, Request{
		Table:  "users",
		Action: Upsert,
		Data:   map[string]interface{}{"name": "Z"},
	})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0].SQL, "INSERT")
}

func TestCompileRejectsNonEditableTable(t *testing.T) {
	view := &catalog.Table{Ref: catalog.TableRef{Name: "user_summary"}, Kind: catalog.View}
	view.AddColumn(&catalog.Column{Name: "id", IsPrimaryKey: true})
	cat := testCatalog(view)
	c := fixedClock(testNow)
	_, err := c.Compile(cat, UserContext{}, Request{Table: "user_summary", Action: Insert, Data: map[string]interface{}{"id": 1}})
	require.Error(t, err)
	assert.Equal(t, errs.MutationNotAllowed, errs.CodeOf(err))
}

func TestCompileRejectsUpdateAndUpsertOnUpdateDisabledTable(t *testing.T) {
	t0 := usersTable()
	t0.UpdateDisabled = true
	cat := testCatalog(t0)
	c := fixedClock(testNow)

	_, err := c.Compile(cat, UserContext{}, Request{Table: "users", Action: Update, Data: map[string]interface{}{"name": "x"}, Where: map[string]interface{}{"id": 1}})
	require.Error(t, err)
	assert.Equal(t, errs.MutationNotAllowed, errs.CodeOf(err))

	_, err = c.Compile(cat, UserContext{}, Request{Table: "users", Action: Upsert, Data: map[string]interface{}{"id": 1, "name": "x"}})
	require.Error(t, err)
	assert.Equal(t, errs.MutationNotAllowed, errs.CodeOf(err))

	_, err = c.Compile(cat, UserContext{}, Request{Table: "users", Action: Insert, Data: map[string]interface{}{"name": "x"}})
	assert.NoError(t, err)
}

func TestCompileRejectsUnknownTable(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)
	_, err := c.Compile(cat, UserContext{}, Request{Table: "nope", Action: Insert, Data: map[string]interface{}{}})
	require.Error(t, err)
}

// TestIdempotentUpdateProducesSameParams is spec.md §8 item 4's idempotence
// invariant: applying the same update data twice compiles to the same SET
// values. The updated-on timestamp is part of the compared params; it
// matches because both calls read the same fixed clock.
func TestIdempotentUpdateProducesSameParams(t *testing.T) {
	cat := testCatalog(usersTable())
	c := fixedClock(testNow)
	req := Request{Table: "users", Action: Update, Data: map[string]interface{}{"name": "same"}, Where: map[string]interface{}{"id": 1}}

	first, err := c.Compile(cat, UserContext{UserID: "x"}, req)
	require.NoError(t, err)
	second, err := c.Compile(cat, UserContext{UserID: "x"}, req)
	require.NoError(t, err)

	assert.Equal(t, first[0].SQL, second[0].SQL)
	assert.Equal(t, first[0].Params, second[0].Params)
}
