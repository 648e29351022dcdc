package core

import (
	"context"
	"database/sql"
	"strings"

	"github.com/standardbeagle/BifrostQL-sub008/assemble"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
	"github.com/standardbeagle/BifrostQL-sub008/mutate"
	"github.com/standardbeagle/BifrostQL-sub008/schema"
)

// dbExecutor implements schema.Executor against a live *sql.DB. It is the
// only place in this repo that imports a driver-adjacent database/sql call
// outside of catalog's loaders — schema, qplan, sqlgen, and assemble all
// stay driver-agnostic (spec.md §4.7's Reader interface; DESIGN.md's
// schema/assemble entries).
type dbExecutor struct {
	db *sql.DB
}

// Query acquires a pooled connection for the duration of the call (spec.md
// §5 "Database connections") and runs sql as one ";"-concatenated batch,
// returning *sql.Rows directly — it already satisfies assemble.Reader's
// narrow Columns/Next/Scan/NextResultSet/Err surface, so no adapter type is
// needed.
func (e *dbExecutor) Query(ctx context.Context, sqlText string, params []interface{}) (assemble.Reader, error) {
	rows, err := e.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, errs.Wrap(errs.DBError, err, "executing query batch")
	}
	return rows, nil
}

// Exec runs stmts in order inside one transaction, honoring each
// Statement's RunIf condition (mutate.RunIfPrevZeroRows skips a statement
// unless the immediately preceding one affected zero rows — upsert's
// insert-if-the-update-missed fallback, spec.md §4.8). The whole sequence
// commits or rolls back together so a partially applied upsert is never
// observable.
func (e *dbExecutor) Exec(ctx context.Context, stmts []mutate.Statement) (schema.MutationOutcome, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.MutationOutcome{}, errs.Wrap(errs.DBError, err, "starting mutation transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var outcome schema.MutationOutcome
	var prevAffected int64 = -1

	for _, stmt := range stmts {
		if stmt.RunIf == mutate.RunIfPrevZeroRows && prevAffected != 0 {
			continue
		}

		// ReturnsIdentity statements carry a trailing dialect-specific
		// SELECT for the identity value in the same statement text
		// (mutate.compileInsert: "INSERT ...; <LastInsertedIDExpr>"). None of
		// the four drivers this repo opens (pgx, go-sql-driver/mysql,
		// go-mssqldb, go-sqlite3) reliably run a ";"-joined string as two
		// statements over one prepared call, so the INSERT and the identity
		// SELECT are run as two separate calls against the same tx instead —
		// still one round trip's worth of isolation, since both happen
		// inside this function's transaction.
		if stmt.ReturnsIdentity {
			insertSQL, identitySQL, ok := strings.Cut(stmt.SQL, "; ")
			if !ok {
				return schema.MutationOutcome{}, errs.New(errs.Internal, "identity statement missing SELECT clause: %s", stmt.SQL)
			}
			if _, err := tx.ExecContext(ctx, insertSQL, stmt.Params...); err != nil {
				return schema.MutationOutcome{}, errs.Wrap(errs.DBError, err, "executing insert statement")
			}
			var id interface{}
			if err := tx.QueryRowContext(ctx, identitySQL).Scan(&id); err != nil {
				return schema.MutationOutcome{}, errs.Wrap(errs.DBError, err, "reading inserted identity")
			}
			outcome.Identity = id
			outcome.RowsAffected++
			prevAffected = 1
			continue
		}

		res, err := tx.ExecContext(ctx, stmt.SQL, stmt.Params...)
		if err != nil {
			return schema.MutationOutcome{}, errs.Wrap(errs.DBError, err, "executing mutation statement")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return schema.MutationOutcome{}, errs.Wrap(errs.DBError, err, "reading rows affected")
		}
		outcome.RowsAffected += n
		prevAffected = n
	}

	if err := tx.Commit(); err != nil {
		return schema.MutationOutcome{}, errs.Wrap(errs.DBError, err, "committing mutation transaction")
	}
	return outcome, nil
}
