package core_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/standardbeagle/BifrostQL-sub008/core"
)

// openTestDB builds an in-memory sqlite database with a departments/users
// pair joined by the column-name convention catalog.InferJoins recognizes
// (department_id -> departments.id), mirroring schema_test.go's fixture
// but loaded through the real sqlite Loader instead of hand-built.
func openTestDB(t *testing.T) *sql.DB {
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE departments (id TEXT PRIMARY KEY, name TEXT);
		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, department_id TEXT);
		INSERT INTO departments (id, name) VALUES ('eng', 'Engineering');
		INSERT INTO users (id, name, department_id) VALUES (1, 'alice', 'eng');
		INSERT INTO users (id, name, department_id) VALUES (2, 'bob', 'eng');
	`)
	require.NoError(t, err)
	return db
}

func testEngine(t *testing.T) *core.Engine {
	db := openTestDB(t)
	cfg := core.DefaultConfig()
	cfg.Dialect = "sqlite"
	cfg.RequestTimeout = 5 * time.Second

	e, err := core.New(cfg, db, zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestEngineExecuteQueryJoinsAcrossOneRoundTrip(t *testing.T) {
	e := testEngine(t)

	resp := e.Execute(context.Background(), core.Request{
		Query: `{ departments { id name users { id name } } }`,
	})
	require.Empty(t, resp.Errors)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	depts, ok := data["departments"].([]interface{})
	require.True(t, ok)
	require.Len(t, depts, 1)

	dept := depts[0].(map[string]interface{})
	assert.Equal(t, "Engineering", dept["name"])
	users, ok := dept["users"].([]interface{})
	require.True(t, ok)
	assert.Len(t, users, 2)
}

func TestEngineExecuteInvalidFieldIsInvalidQuery(t *testing.T) {
	e := testEngine(t)

	resp := e.Execute(context.Background(), core.Request{
		Query: `{ departments { notAField } }`,
	})
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "INVALID_QUERY", resp.Errors[0].Extensions["code"])
}

func TestEngineExecuteMutationMissingPKTaxonomy(t *testing.T) {
	e := testEngine(t)

	resp := e.Execute(context.Background(), core.Request{
		Query: `mutation { users(action: delete, where: {}) { rowsAffected } }`,
	})
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "MISSING_PK", resp.Errors[0].Extensions["code"])
}

func TestEngineExecuteInsertReturnsGeneratedIdentity(t *testing.T) {
	e := testEngine(t)

	resp := e.Execute(context.Background(), core.Request{
		Query: `mutation { users(action: insert, data: {name: "carol", department_id: "eng"}) { identity rowsAffected } }`,
	})
	require.Empty(t, resp.Errors)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	result, ok := data["users"].(map[string]interface{})
	require.True(t, ok)

	assert.EqualValues(t, 1, result["rowsAffected"])
	assert.NotNil(t, result["identity"])
}

func TestEngineReloadSwapsInAFreshConsistentSnapshot(t *testing.T) {
	e := testEngine(t)
	before := e.Schema()

	require.NoError(t, e.Reload(context.Background()))

	assert.Len(t, e.Catalog().Tables(), 2)
	assert.NotSame(t, before, e.Schema())
}
