// Package mutate compiles {table, action, data, where} mutation requests
// into SQL statements (spec.md §4.8). Like qplan, a Compiler carries no
// per-request state — every call takes its own catalog snapshot.
package mutate

import (
	"time"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/dialect"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
)

// Action is one of the four mutation verbs spec.md §4.8 defines.
type Action string

const (
	Insert Action = "insert"
	Update Action = "update"
	Upsert Action = "upsert"
	Delete Action = "delete"
)

// Request is the compiler's input: the GraphQL mutation field's arguments,
// already coerced to Go values.
type Request struct {
	Table  string
	Action Action
	Data   map[string]interface{}
	Where  map[string]interface{}
}

// UserContext carries the audit identity a request is compiled under.
// Audit columns are always filled from this, never from Data — spec.md
// §4.8 "they are never taken from the client."
type UserContext struct {
	UserID interface{}
}

// Statement is one SQL unit the caller executes in sequence. A multi-row
// or multi-part mutation (upsert's conditional insert) compiles to more
// than one Statement; the caller runs them in order, using RunIf to decide
// whether to skip a later statement.
type Statement struct {
	SQL             string
	Params          []interface{}
	ReturnsIdentity bool

	// RunIf, when non-empty, names the condition under which this
	// statement should execute: "" means unconditionally, "prev-zero-rows"
	// means only when the immediately preceding statement affected zero
	// rows (upsert's insert-if-the-update-missed fallback).
	RunIf string
}

const RunIfPrevZeroRows = "prev-zero-rows"

// Compiler compiles mutation requests against one dialect.
type Compiler struct {
	Dialect dialect.Dialect

	// Now returns the server clock reading used for `populate: created-on`
	// / `updated-on` columns. Defaults to time.Now; overridable for tests.
	Now func() time.Time
}

// NewCompiler returns a Compiler bound to dial, using the real wall clock.
func NewCompiler(dial dialect.Dialect) *Compiler {
	return &Compiler{Dialect: dial, Now: time.Now}
}

// Compile resolves req.Table against cat and dispatches to the matching
// action compiler, after the universal editability check spec.md §4.8
// and §7 require.
func (c *Compiler) Compile(cat *catalog.Catalog, user UserContext, req Request) ([]Statement, error) {
	table, err := cat.TableByName(req.Table)
	if err != nil {
		return nil, err
	}
	if !table.Editable() {
		return nil, errs.New(errs.MutationNotAllowed, "table %q does not accept mutations", req.Table)
	}

	switch req.Action {
	case Insert:
		return c.compileInsert(table, user, req.Data)
	case Update:
		if table.UpdateDisabled {
			return nil, errs.New(errs.MutationNotAllowed, "table %q does not accept update mutations", req.Table)
		}
		return c.compileUpdate(table, user, req.Data, req.Where)
	case Upsert:
		if table.UpdateDisabled {
			return nil, errs.New(errs.MutationNotAllowed, "table %q does not accept upsert mutations", req.Table)
		}
		return c.compileUpsert(table, user, req.Data, req.Where)
	case Delete:
		return c.compileDelete(table, user, req.Where)
	default:
		return nil, errs.New(errs.InvalidQuery, "unknown mutation action %q", req.Action)
	}
}

// writableColumns splits data into the columns actually written (excluding
// client-supplied values for identity/read-only columns, which are always
// dropped rather than erroring — spec.md §8 S4 "omitting identity/audit/
// read-only columns") plus the audit columns this populate kind requires,
// filled from now/user instead of data.
func writableColumns(t *catalog.Table, data map[string]interface{}, now time.Time, user UserContext, onColumn catalog.Populate, byColumn catalog.Populate) ([]string, []interface{}) {
	var cols []string
	var vals []interface{}
	seen := map[string]bool{}

	for _, col := range t.Columns {
		if col.IsIdentity || col.IsReadOnly {
			continue
		}
		switch col.Populate {
		case onColumn:
			cols = append(cols, col.Name)
			vals = append(vals, now)
			seen[col.Name] = true
			continue
		case byColumn:
			cols = append(cols, col.Name)
			vals = append(vals, user.UserID)
			seen[col.Name] = true
			continue
		}
		if col.Populate != catalog.PopulateNone {
			// Populate rule belongs to the other action (e.g. updated-on
			// during an insert); never write it and never take it from data.
			continue
		}
		if v, ok := data[col.Name]; ok && !seen[col.Name] {
			cols = append(cols, col.Name)
			vals = append(vals, v)
		}
	}
	return cols, vals
}

func pkWhere(t *catalog.Table, where map[string]interface{}) ([]string, []interface{}, error) {
	cols := make([]string, 0, len(t.PrimaryKeys))
	vals := make([]interface{}, 0, len(t.PrimaryKeys))
	for _, pk := range t.PrimaryKeys {
		v, ok := where[pk.Name]
		if !ok {
			return nil, nil, errs.New(errs.MissingPK, "mutation on %s missing primary key column %q in where", t.Ref, pk.Name)
		}
		cols = append(cols, pk.Name)
		vals = append(vals, v)
	}
	return cols, vals, nil
}

func dataHasAllPKs(t *catalog.Table, data map[string]interface{}) bool {
	for _, pk := range t.PrimaryKeys {
		if _, ok := data[pk.Name]; !ok {
			return false
		}
	}
	return true
}
