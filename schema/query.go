package schema

import (
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/standardbeagle/BifrostQL-sub008/assemble"
	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
	"github.com/standardbeagle/BifrostQL-sub008/sqlgen"
)

// queryField builds the root Query field for table t: `[T]` with the
// shared filter/sort/limit/offset argument set (spec.md §4.4).
func (b *builder) queryField(t *catalog.Table) *graphql.Field {
	return &graphql.Field{
		Type:    graphql.NewList(b.rowType(t)),
		Args:    b.listArgs(t),
		Resolve: b.rootResolve(),
	}
}

// rootResolve runs the full per-request pipeline for one root table
// field's subtree: plan → emit → execute → materialize → hand graphql-go
// the materialized rows to recurse into (package doc). It reads the table
// straight off the raw field AST rather than a closed-over *catalog.Table,
// so it's shared by every queryField call instead of specialized per
// table.
func (b *builder) rootResolve() graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		reqID := requestIDFrom(p.Context)
		hooks := b.deps.Hooks

		field, err := fieldAST(p.Info)
		if err != nil {
			return nil, err
		}
		if hooks.Parsed != nil {
			hooks.Parsed(p.Context, reqID, field.Name.Value)
		}

		plan, err := b.deps.Planner.Build(b.deps.Catalog, b.deps.Mapper, field, p.Info.VariableValues)
		if err != nil {
			return nil, err
		}

		frags, params, err := b.deps.Emitter.Emit(b.deps.Catalog, plan)
		if err != nil {
			return nil, err
		}

		sqlText, keys := concatFragments(frags)
		if hooks.Transformed != nil {
			hooks.Transformed(p.Context, reqID, sqlText, params)
		}

		if hooks.BeforeExecute != nil {
			hooks.BeforeExecute(p.Context, reqID)
		}
		reader, err := b.deps.Exec.Query(p.Context, sqlText, params)
		if err != nil {
			if hooks.AfterExecute != nil {
				hooks.AfterExecute(p.Context, reqID, err)
			}
			return nil, err
		}

		result, err := assemble.Materialize(p.Context, keys, reader)
		if hooks.AfterExecute != nil {
			hooks.AfterExecute(p.Context, reqID, err)
		}
		if err != nil {
			return nil, err
		}

		return assemble.RootCursor(result, plan).Rows(), nil
	}
}

// fieldAST recovers the raw ast.Field graphql-go parsed for this
// resolution — qplan.Planner.Build works directly off the AST (the same
// way qplan/argval.go's coerceArgs does) rather than off graphql-go's own
// already-coerced p.Args, so it sees the field's alias and its full
// selection set in one pass.
func fieldAST(info graphql.ResolveInfo) (*ast.Field, error) {
	if len(info.FieldASTs) == 0 {
		return nil, errs.New(errs.Internal, "resolver invoked with no field AST")
	}
	return info.FieldASTs[0], nil
}

// concatFragments joins sqlgen's fragments into one ";"-separated batch
// text and returns their result-keys in the same order, ready for
// assemble.Materialize (spec.md §4.6 "fragments concatenate... as one
// round-trip batch").
func concatFragments(frags []sqlgen.Fragment) (string, []string) {
	var sb strings.Builder
	keys := make([]string, len(frags))
	for i, f := range frags {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(f.SQL)
		keys[i] = f.Key
	}
	return sb.String(), keys
}
