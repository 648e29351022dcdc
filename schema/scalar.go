package schema

import (
	"github.com/graphql-go/graphql"
)

// gqlScalar resolves a catalog scalar name ("Int", "Float", "Boolean",
// "String" — the only four catalog.ScalarMapper ever produces, per
// catalog/typemap.go) to the corresponding graphql-go leaf type. No custom
// scalar types are registered; every dialect's type map already flattens
// temporal/binary/UUID columns down to one of these four before the schema
// ever sees them.
func gqlScalar(name string) *graphql.Scalar {
	switch name {
	case "Int":
		return graphql.Int
	case "Float":
		return graphql.Float
	case "Boolean":
		return graphql.Boolean
	default:
		return graphql.String
	}
}

// filterOpsByScalar mirrors qplan/filter.go's numericOps/stringOnlyOps
// gating, naming exactly the operators valid for each scalar family so the
// per-scalar FilterOperators input type never offers an operator the
// planner would reject with INVALID_FILTER.
var filterOpsByScalar = map[string][]string{
	"Int":     {"_eq", "_neq", "_gt", "_gte", "_lt", "_lte", "_in", "_nin", "_isNull"},
	"Float":   {"_eq", "_neq", "_gt", "_gte", "_lt", "_lte", "_in", "_nin", "_isNull"},
	"Boolean": {"_eq", "_neq", "_in", "_nin", "_isNull"},
	"String":  {"_eq", "_neq", "_in", "_nin", "_isNull", "_like", "_nlike", "_contains", "_startsWith", "_endsWith"},
}

// filterOperatorsType returns (building once, then caching) the shared
// "<Scalar>FilterOperators" input object for one of the four scalar
// families — one field per operator valid for that family, typed as the
// scalar itself except for `_in`/`_nin` (a list) and `_isNull` (Boolean).
// Shared across every table's per-column filter fields (spec.md §4.5's
// `{col: {_op: value}}` shape), rather than fluxbase's flat `field_op`
// naming, to match the nested object qplan/filter.go's buildColumnFilter
// already expects.
func (b *builder) filterOperatorsType(scalar string) *graphql.InputObject {
	if t, ok := b.scalarFilterTypes[scalar]; ok {
		return t
	}
	base := gqlScalar(scalar)
	fields := graphql.InputObjectConfigFieldMap{}
	for _, op := range filterOpsByScalar[scalar] {
		switch op {
		case "_in", "_nin":
			fields[op] = &graphql.InputObjectFieldConfig{Type: graphql.NewList(base)}
		case "_isNull":
			fields[op] = &graphql.InputObjectFieldConfig{Type: graphql.Boolean}
		default:
			fields[op] = &graphql.InputObjectFieldConfig{Type: base}
		}
	}
	t := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   scalar + "FilterOperators",
		Fields: fields,
	})
	b.scalarFilterTypes[scalar] = t
	return t
}
