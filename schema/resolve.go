package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/standardbeagle/BifrostQL-sub008/assemble"
)

// scalarResolver resolves column col directly off the assemble.Row
// graphql-go's executor hands this field as its Source (spec.md §4.7
// "Resolving a scalar looks up f in columnIndex and returns the raw value
// translated from database-null to response-null").
func scalarResolver(col string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		row, ok := p.Source.(assemble.Row)
		if !ok {
			return nil, nil
		}
		v, _ := row.Scalar(col)
		return v, nil
	}
}

// totalResolver serves the root-only `total` pseudo-field; on any other
// row type it simply resolves to nil, since Cursor.Total only has a slab
// to read at the plan root (see DESIGN.md's §4.4-vs-§8 note).
func totalResolver(p graphql.ResolveParams) (interface{}, error) {
	row, ok := p.Source.(assemble.Row)
	if !ok {
		return nil, nil
	}
	n, ok := row.Cursor.Total()
	if !ok {
		return nil, nil
	}
	return n, nil
}

// singleJoinResolver resolves a `single` join field to the one matching
// destination row, or nil when no match exists (spec.md §4.4 "single
// joins resolve to the destination row type (nullable)").
func singleJoinResolver(fieldKey string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		row, ok := p.Source.(assemble.Row)
		if !ok {
			return nil, nil
		}
		child, err := row.JoinNamed(joinKey(p.Info.FieldName, fieldKey))
		if err != nil {
			return nil, err
		}
		rows := child.Rows()
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	}
}

// manyJoinResolver resolves a `many`/`many-to-many` join field to every
// matching destination row (spec.md §4.4 "many and many-to-many joins
// resolve to [destinationRow]").
func manyJoinResolver(fieldKey string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		row, ok := p.Source.(assemble.Row)
		if !ok {
			return nil, nil
		}
		child, err := row.JoinNamed(joinKey(p.Info.FieldName, fieldKey))
		if err != nil {
			return nil, err
		}
		return child.Rows(), nil
	}
}

// joinKey prefers the response key graphql-go already resolved
// (ResolveInfo.FieldName, which is the query's alias when one was given)
// over the schema's static field name — the qplan.TableJoin this plan
// built for the current request is keyed the same way (TableJoin.Alias
// falling back to TableJoin.Name), so the two must agree for
// assemble.Row.JoinNamed's lookup to find it.
func joinKey(resolved, fallback string) string {
	if resolved != "" {
		return resolved
	}
	return fallback
}

// mutationIdentityResolver and mutationRowsAffectedResolver resolve
// MutationResult's fields off the MutationOutcome a mutation field's own
// Resolve function returns.
func mutationIdentityResolver(p graphql.ResolveParams) (interface{}, error) {
	out, ok := p.Source.(MutationOutcome)
	if !ok {
		return nil, nil
	}
	return out.Identity, nil
}

func mutationRowsAffectedResolver(p graphql.ResolveParams) (interface{}, error) {
	out, ok := p.Source.(MutationOutcome)
	if !ok {
		return nil, nil
	}
	return out.RowsAffected, nil
}
