package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifierPerDialect(t *testing.T) {
	assert.Equal(t, `"users"`, Postgres.QuoteIdentifier("users"))
	assert.Equal(t, "`users`", MySQL.QuoteIdentifier("users"))
	assert.Equal(t, `[users]`, SQLServer.QuoteIdentifier("users"))
	assert.Equal(t, `"users"`, SQLite.QuoteIdentifier("users"))
}

func TestQuoteIdentifierEscapesEmbeddedQuote(t *testing.T) {
	assert.Equal(t, `"weird""name"`, Postgres.QuoteIdentifier(`weird"name`))
	assert.Equal(t, "[weird]]name]", SQLServer.QuoteIdentifier("weird]name"))
}

// TestPagingRoundTrip grounds spec.md §8 scenario S1: identical filter,
// sort, and (offset, limit) must be identical in rendered SQL shape across
// calls, and SQL Server must always carry an explicit ORDER BY.
func TestPagingRoundTrip(t *testing.T) {
	sqlServerSQL := SQLServer.RenderPaging([]string{`[id] DESC`}, 2, 0, false)
	assert.Equal(t, " ORDER BY [id] DESC OFFSET 0 ROWS FETCH NEXT 2 ROWS ONLY", sqlServerSQL)

	postgresSQL := Postgres.RenderPaging([]string{`"id" DESC`}, 2, 0, false)
	assert.Equal(t, ` ORDER BY "id" DESC LIMIT 2`, postgresSQL)

	// Determinism: same inputs, same output, every time.
	again := Postgres.RenderPaging([]string{`"id" DESC`}, 2, 0, false)
	assert.Equal(t, postgresSQL, again)
}

func TestRenderLikeContains(t *testing.T) {
	got := Postgres.RenderLike(`"name"`, "$1", LikeContains, false)
	assert.Equal(t, `"name" LIKE ('%' || $1 || '%')`, got)

	got = MySQL.RenderLike("`name`", "?", LikeContains, false)
	assert.Equal(t, "`name` LIKE CONCAT('%', ?, '%')", got)

	got = SQLServer.RenderLike(`[name]`, "@p1", LikeContains, false)
	assert.Equal(t, `[name] LIKE ('%' + @p1 + '%')`, got)
}

func TestRenderOpRejectsLikeFamily(t *testing.T) {
	_, err := Postgres.RenderOp(OpLike)
	require.Error(t, err)
	var target ErrUnsupportedOp
	require.ErrorAs(t, err, &target)
}

func TestLastInsertedIDExprPerDialect(t *testing.T) {
	assert.Equal(t, "SELECT lastval()", Postgres.LastInsertedIDExpr("users", "id"))
	assert.Equal(t, "SELECT LAST_INSERT_ID()", MySQL.LastInsertedIDExpr("users", "id"))
	assert.Equal(t, "SELECT SCOPE_IDENTITY()", SQLServer.LastInsertedIDExpr("users", "id"))
	assert.Equal(t, "SELECT last_insert_rowid()", SQLite.LastInsertedIDExpr("users", "id"))
}

func TestNewUnknownDialect(t *testing.T) {
	_, err := New("oracle")
	require.Error(t, err)
}
