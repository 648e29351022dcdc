// Package schema synthesizes a graphql-go Schema directly from a
// catalog.Catalog — no hand-written SDL or resolver wiring exists anywhere
// in this repo (spec.md OVERVIEW). Every root table field's Resolve
// function runs the full per-request pipeline (qplan.Build → sqlgen.Emit →
// Executor.Query → assemble.Materialize) and returns the materialized
// []assemble.Row as its value; graphql-go's own executor then recurses
// into each row using ordinary nested-field resolvers (resolve.go), so one
// root field's entire subtree costs exactly one round trip and every
// nested resolution afterward is served from memory (spec.md §4.7).
package schema

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/standardbeagle/BifrostQL-sub008/assemble"
	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/dialect"
	"github.com/standardbeagle/BifrostQL-sub008/mutate"
	"github.com/standardbeagle/BifrostQL-sub008/qplan"
	"github.com/standardbeagle/BifrostQL-sub008/sqlgen"
)

// Executor runs the SQL a compiled plan or mutation produces. schema
// depends only on this interface, never on a driver package directly —
// core supplies the concrete implementation bound to a *sql.DB/dialect
// pair.
type Executor interface {
	// Query runs one batched, ";"-concatenated multi-statement SQL text
	// against params and returns a reader over its result sets, in the
	// same order the statements were concatenated.
	Query(ctx context.Context, sql string, params []interface{}) (assemble.Reader, error)

	// Exec runs a mutate.Compiler's compiled statements in order, honoring
	// each Statement's RunIf condition (mutate.RunIfPrevZeroRows skips a
	// statement unless the immediately preceding one affected zero rows —
	// the upsert fallback, spec.md §4.8).
	Exec(ctx context.Context, stmts []mutate.Statement) (MutationOutcome, error)
}

// MutationOutcome is what a mutation field resolver needs back from the
// executor: the identity value of a just-inserted row (when the compiled
// statement carried ReturnsIdentity) and how many rows the mutation
// ultimately affected.
type MutationOutcome struct {
	Identity     interface{}
	RowsAffected int64
}

// UserContextFunc extracts the mutation-audit user context from a
// request's context.Context — core installs the authenticated caller's
// identity there during request setup (spec.md §4.8, §5).
type UserContextFunc func(ctx context.Context) mutate.UserContext

// Hooks are the four request-lifecycle phase callbacks spec.md §5 promises
// external observers, fired in this order around a root field's pipeline:
// Parsed (the AST this resolver is about to plan), Transformed (the SQL and
// params qplan/sqlgen produced), BeforeExecute (about to call Exec),
// AfterExecute (Exec/Materialize finished, err nil on success). A nil field
// is simply skipped — core.Engine is the only caller that installs real
// ones; tests leave Hooks zero.
type Hooks struct {
	Parsed        func(ctx context.Context, requestID string, query string)
	Transformed   func(ctx context.Context, requestID string, sql string, params []interface{})
	BeforeExecute func(ctx context.Context, requestID string)
	AfterExecute  func(ctx context.Context, requestID string, err error)
}

// Deps is everything Build needs to synthesize a schema from one catalog
// snapshot. None of these are held anywhere else; a reload swaps a whole
// new Deps (and thus a whole new *graphql.Schema) into place rather than
// mutating one in line (spec.md §5 "Shared state").
type Deps struct {
	Catalog *catalog.Catalog
	Mapper  catalog.ScalarMapper
	Dialect dialect.Dialect

	Planner *qplan.Planner
	Emitter *sqlgen.Emitter
	Mutator *mutate.Compiler
	Exec    Executor

	UserContext UserContextFunc
	Hooks       Hooks
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx, read back by rootResolve and
// mutationResolve to tag the Hooks callbacks they fire (core.Engine
// generates one per inbound request with rs/xid).
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// builder holds the in-progress type caches for one Build call. It is
// never reused across calls — a fresh builder (and thus a fresh set of
// graphql-go types) is created per catalog snapshot, matching the
// teacher's own "rebuild the whole schema object graph on reload" pattern
// (_examples/wayli-app-fluxbase's regenerateSchema, grounded on directly).
type builder struct {
	deps Deps

	rowTypes          map[string]*graphql.Object
	filterTypes       map[string]*graphql.InputObject
	insertTypes       map[string]*graphql.InputObject
	mutationResults   map[string]*graphql.Object
	scalarFilterTypes map[string]*graphql.InputObject
}

// Build synthesizes a complete *graphql.Schema from deps: one row type,
// filter type, and insert type per visible table; one root query field per
// visible table; one mutation field per editable table; a _dbSchema
// introspection field (spec.md line 138); and whatever standard
// __schema/__type introspection graphql-go's NewSchema wires in for free.
func Build(deps Deps) (*graphql.Schema, error) {
	b := &builder{
		deps:              deps,
		rowTypes:          map[string]*graphql.Object{},
		filterTypes:       map[string]*graphql.InputObject{},
		insertTypes:       map[string]*graphql.InputObject{},
		mutationResults:   map[string]*graphql.Object{},
		scalarFilterTypes: map[string]*graphql.InputObject{},
	}

	queryFields := graphql.Fields{}
	for _, t := range deps.Catalog.VisibleTables() {
		queryFields[t.Ref.Name] = b.queryField(t)
	}
	queryFields["_dbSchema"] = b.dbSchemaField()

	mutationFields := graphql.Fields{}
	for _, t := range deps.Catalog.VisibleTables() {
		if !t.Editable() {
			continue
		}
		mutationFields[t.Ref.Name] = b.mutationField(t)
	}

	cfg := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queryFields}),
	}
	if len(mutationFields) > 0 {
		cfg.Mutation = graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutationFields})
	}

	schema, err := graphql.NewSchema(cfg)
	if err != nil {
		return nil, err
	}
	return &schema, nil
}
