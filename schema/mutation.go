package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/mutate"
)

// mutationActionEnum is the `action` argument every editable table's
// mutation field shares (spec.md line 67: "{data: T_Insert, where: T_PK?,
// action: insert|update|upsert|delete}"). One enum, defined once, reused
// by every table — the values match mutate.Action's string constants
// exactly so the resolver can cast the argument straight through.
var mutationActionEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "MutationAction",
	Values: graphql.EnumValueConfigMap{
		"insert": &graphql.EnumValueConfig{Value: string(mutate.Insert)},
		"update": &graphql.EnumValueConfig{Value: string(mutate.Update)},
		"upsert": &graphql.EnumValueConfig{Value: string(mutate.Upsert)},
		"delete": &graphql.EnumValueConfig{Value: string(mutate.Delete)},
	},
})

// mutationField builds table t's single mutation field (spec.md line 67):
// `{data: T_Insert, where: T_PK, action: MutationAction}` → T_MutationResult.
func (b *builder) mutationField(t *catalog.Table) *graphql.Field {
	return &graphql.Field{
		Type: b.mutationResultType(t),
		Args: graphql.FieldConfigArgument{
			"data":   &graphql.ArgumentConfig{Type: b.insertType(t)},
			"where":  &graphql.ArgumentConfig{Type: b.whereType(t)},
			"action": &graphql.ArgumentConfig{Type: graphql.NewNonNull(mutationActionEnum)},
		},
		Resolve: b.mutationResolve(t),
	}
}

func (b *builder) mutationResolve(t *catalog.Table) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		reqID := requestIDFrom(p.Context)
		hooks := b.deps.Hooks

		data, _ := p.Args["data"].(map[string]interface{})
		where, _ := p.Args["where"].(map[string]interface{})
		action, _ := p.Args["action"].(string)
		if hooks.Parsed != nil {
			hooks.Parsed(p.Context, reqID, t.Ref.Name)
		}

		var user mutate.UserContext
		if b.deps.UserContext != nil {
			user = b.deps.UserContext(p.Context)
		}

		stmts, err := b.deps.Mutator.Compile(b.deps.Catalog, user, mutate.Request{
			Table:  t.Ref.Name,
			Action: mutate.Action(action),
			Data:   data,
			Where:  where,
		})
		if err != nil {
			return nil, err
		}
		if hooks.Transformed != nil {
			for _, stmt := range stmts {
				hooks.Transformed(p.Context, reqID, stmt.SQL, stmt.Params)
			}
		}

		if hooks.BeforeExecute != nil {
			hooks.BeforeExecute(p.Context, reqID)
		}
		outcome, err := b.deps.Exec.Exec(p.Context, stmts)
		if hooks.AfterExecute != nil {
			hooks.AfterExecute(p.Context, reqID, err)
		}
		return outcome, err
	}
}
