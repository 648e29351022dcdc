// Package dialect abstracts the SQL-text differences between the four
// supported databases: identifier quoting, pagination clause shape,
// parameter placeholder syntax, LIKE-family operator templating, and the
// expression used to fetch the identity value of a just-inserted row
// (spec.md §4.1). Each implementation is a stateless singleton selected by
// the configured dialect name — there is no per-request dialect state.
package dialect

import "fmt"

// Op is a filter operator, shared by qplan and sqlgen so the planner can
// reject an operator unknown to the column's scalar type (spec.md §4.5)
// before the emitter ever sees it.
type Op int

const (
	OpEq Op = iota
	OpNeq
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn
	OpLike
	OpNotLike
	OpContains   // substring, renders as LIKE '%x%'
	OpStartsWith // renders as LIKE 'x%'
	OpEndsWith   // renders as LIKE '%x'
	OpIsNull
)

// LikeForm selects which wildcard placement RenderLike uses.
type LikeForm int

const (
	LikeContains LikeForm = iota
	LikeStartsWith
	LikeEndsWith
)

// Dialect is the narrow capability set spec.md §4.1 calls for. Every method
// is pure with respect to process state; dialects hold no mutable fields.
type Dialect interface {
	Name() string

	// QuoteIdentifier quotes a single identifier (table, column, or alias).
	QuoteIdentifier(s string) string

	// QualifiedTable renders schema-qualified (or unqualified, if schema is
	// empty) table reference, already quoted.
	QualifiedTable(schema, table string) string

	// BindVar renders the i'th (1-based) bound-parameter placeholder.
	BindVar(i int) string

	// RenderLike renders a LIKE/NOT LIKE predicate template for the given
	// column reference (already quoted) and bound parameter placeholder,
	// with form controlling wildcard placement and negate flipping to
	// NOT LIKE. The returned SQL fragment does not include the parameter
	// value itself — only its placeholder, already passed in as bindVar.
	RenderLike(colRef string, bindVar string, form LikeForm, negate bool) string

	// RenderOp maps a filter Op to its SQL operator text for non-LIKE ops.
	// Returns an error for LikeForm-family ops — callers must use
	// RenderLike for those.
	RenderOp(op Op) (string, error)

	// RenderPaging renders the ORDER BY / LIMIT / OFFSET tail of a SELECT.
	// orderBy is a list of already-quoted "column DIRECTION" fragments;
	// RenderPaging is responsible for dialect-specific clause shape
	// (LIMIT/OFFSET vs OFFSET/FETCH) but never decides whether an ORDER BY
	// is required — the emitter (sqlgen) injects the primary-key tie-break
	// before calling this, per spec.md §9.
	RenderPaging(orderBy []string, limit int, offset int, unbounded bool) string

	// LastInsertedIDExpr returns the statement that retrieves the identity
	// value of the row just inserted into table, using identity column
	// idCol. Called immediately after an INSERT in the same batch.
	LastInsertedIDExpr(table, idCol string) string

	// ParamPrefix is the character the dialect uses to introduce a bound
	// parameter in rendered SQL text (informational — BindVar already
	// applies it; exposed for diagnostics/logging).
	ParamPrefix() byte
}

// ErrUnsupportedOp is returned by RenderOp for an Op that has no plain
// operator rendering (the LIKE family) or that a dialect implementation
// does not support.
type ErrUnsupportedOp struct {
	Dialect string
	Op      Op
}

func (e ErrUnsupportedOp) Error() string {
	return fmt.Sprintf("dialect %s: unsupported filter operator %v", e.Dialect, e.Op)
}

// New returns the Dialect singleton for a configured dialect name, one of
// "postgres", "mysql", "sql-server", "sqlite".
func New(name string) (Dialect, error) {
	switch name {
	case "postgres":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sql-server":
		return SQLServer, nil
	case "sqlite":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

func renderOpCommon(op Op) (string, error) {
	switch op {
	case OpEq:
		return "=", nil
	case OpNeq:
		return "<>", nil
	case OpGt:
		return ">", nil
	case OpGte:
		return ">=", nil
	case OpLt:
		return "<", nil
	case OpLte:
		return "<=", nil
	case OpIn:
		return "IN", nil
	case OpNotIn:
		return "NOT IN", nil
	case OpIsNull:
		return "IS NULL", nil
	default:
		return "", ErrUnsupportedOp{Op: op}
	}
}
