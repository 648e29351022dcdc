package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
)

// rowType returns table t's GraphQL Object type, building it on first use.
// Fields are supplied through graphql.FieldsThunk so join fields can
// reference a not-yet-finished row type (e.g. Users.department →
// Departments, Departments.members → Users) without ordering the table
// walk — the same lazy-field technique
// _examples/other_examples/4e0182c2_benmeadowcroft-tidb-graphql's resolver
// package uses, and which _examples/other_examples/2f7d3de6_reveald-graphql
// also relies on for its own circular schema. The type is cached in
// b.rowTypes *before* its fields are built (the thunk runs lazily, on
// first field access), so a recursive rowType call for the same table
// during another table's field-building returns the same pointer instead
// of recursing forever.
func (b *builder) rowType(t *catalog.Table) *graphql.Object {
	name := rowTypeName(t.Ref)
	if existing, ok := b.rowTypes[name]; ok {
		return existing
	}
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return b.rowFields(t)
		}),
	})
	b.rowTypes[name] = obj
	return obj
}

// rowFields builds one field per column (spec.md §4.4's "one field per
// column, typed via C3, marked non-null iff the column is non-nullable"),
// the `total` pseudo-field (resolved everywhere but only ever populated at
// the plan root — see DESIGN.md's §4.4-vs-§8 Open Question note), and one
// field per catalog join.
func (b *builder) rowFields(t *catalog.Table) graphql.Fields {
	fields := graphql.Fields{}

	for _, col := range t.Columns {
		scalarName, ok := b.deps.Mapper.ReadScalar(col.DBType)
		if !ok {
			// spec.md §4.4: "types not supported by C3 cause the column to
			// be dropped from the row type rather than failing schema build."
			continue
		}
		var fieldType graphql.Output = gqlScalar(scalarName)
		if !col.Nullable {
			fieldType = graphql.NewNonNull(fieldType)
		}
		col := col
		fields[col.Name] = &graphql.Field{
			Type:    fieldType,
			Resolve: scalarResolver(col.Name),
		}
	}

	fields["total"] = &graphql.Field{Type: graphql.Int, Resolve: totalResolver}

	for _, j := range t.Joins {
		j := j
		dest, ok := b.deps.Catalog.Table(j.Dest)
		if !ok {
			continue
		}
		destType := b.rowType(dest)
		if j.Kind == catalog.Single {
			fields[j.Name] = &graphql.Field{Type: destType, Resolve: singleJoinResolver(j.Name)}
			continue
		}
		fields[j.Name] = &graphql.Field{
			Type:    graphql.NewList(destType),
			Args:    b.listArgs(dest),
			Resolve: manyJoinResolver(j.Name),
		}
	}

	return fields
}

// listArgs is the filter/sort/limit/offset argument set shared by every
// list-shaped field — the root query field and every many/many-to-many
// join field (spec.md §4.4 "many and many-to-many joins... carry the same
// filter/limit/offset/sort arguments").
func (b *builder) listArgs(t *catalog.Table) graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"filter": &graphql.ArgumentConfig{Type: b.filterType(t)},
		"sort":   &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
		"limit":  &graphql.ArgumentConfig{Type: graphql.Int},
		"offset": &graphql.ArgumentConfig{Type: graphql.Int},
	}
}

// filterType returns table t's "<Row>Filter" input type, building it on
// first use. Uses graphql.InputObjectConfigFieldMapThunk for the same
// reason rowType uses FieldsThunk: a table's filter type can reference
// another table's filter type through a join, and that other table's
// filter type can reference this one right back (spec.md §4.4's
// filter-through-join: "one entry per join, value type = destination
// table's filter input").
func (b *builder) filterType(t *catalog.Table) *graphql.InputObject {
	name := filterTypeName(t.Ref)
	if existing, ok := b.filterTypes[name]; ok {
		return existing
	}
	obj := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: name,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			return b.filterFields(t)
		}),
	})
	b.filterTypes[name] = obj
	return obj
}

func (b *builder) filterFields(t *catalog.Table) graphql.InputObjectConfigFieldMap {
	self := b.filterTypes[filterTypeName(t.Ref)]
	fields := graphql.InputObjectConfigFieldMap{}

	for _, col := range t.Columns {
		scalarName, ok := b.deps.Mapper.ReadScalar(col.DBType)
		if !ok {
			continue
		}
		fields[col.Name] = &graphql.InputObjectFieldConfig{Type: b.filterOperatorsType(scalarName)}
	}

	fields["_and"] = &graphql.InputObjectFieldConfig{Type: graphql.NewList(self)}
	fields["_or"] = &graphql.InputObjectFieldConfig{Type: graphql.NewList(self)}
	fields["_not"] = &graphql.InputObjectFieldConfig{Type: self}

	for _, j := range t.Joins {
		dest, ok := b.deps.Catalog.Table(j.Dest)
		if !ok {
			continue
		}
		fields[j.Name] = &graphql.InputObjectFieldConfig{Type: b.filterType(dest)}
	}

	return fields
}

// insertType returns table t's "<Row>Insert" input type: one field per
// column the client is actually allowed to write — identity, read-only,
// and Populate-managed audit columns are never offered, matching
// mutate.writableColumns' own exclusion rules so a value submitted through
// this type is never silently dropped server-side.
func (b *builder) insertType(t *catalog.Table) *graphql.InputObject {
	name := insertTypeName(t.Ref)
	if existing, ok := b.insertTypes[name]; ok {
		return existing
	}
	fields := graphql.InputObjectConfigFieldMap{}
	for _, col := range t.Columns {
		if col.IsIdentity || col.IsReadOnly || col.Populate != catalog.PopulateNone {
			continue
		}
		scalarName, ok := b.deps.Mapper.InsertScalar(col.DBType)
		if !ok {
			continue
		}
		fields[col.Name] = &graphql.InputObjectFieldConfig{Type: gqlScalar(scalarName)}
	}
	obj := graphql.NewInputObject(graphql.InputObjectConfig{Name: name, Fields: fields})
	b.insertTypes[name] = obj
	return obj
}

// whereType is the primary-key-only input used to locate a row for
// update/delete (spec.md §4.4's `T_PK`): one field per primary key,
// typed via the read scalar so a client can pass back exactly what a
// query returned.
func (b *builder) whereType(t *catalog.Table) *graphql.InputObject {
	name := rowTypeName(t.Ref) + "PK"
	fields := graphql.InputObjectConfigFieldMap{}
	for _, col := range t.PrimaryKeys {
		scalarName, ok := b.deps.Mapper.ReadScalar(col.DBType)
		if !ok {
			continue
		}
		fields[col.Name] = &graphql.InputObjectFieldConfig{Type: gqlScalar(scalarName)}
	}
	return graphql.NewInputObject(graphql.InputObjectConfig{Name: name, Fields: fields})
}

// mutationResultType returns table t's "<Row>MutationResult" type. spec.md
// §4.8 only says "identity is returned as the mutation result" — it never
// specifies a concrete GraphQL return shape for the per-table mutation
// field, so this is this repo's Open Question resolution (DESIGN.md): a
// small dedicated result type carrying the identity value and the
// statement's affected-row count, rather than re-querying the full row
// (which §4.8's compiled statements never do — it would cost a second
// round trip the spec's batched-single-round-trip design otherwise avoids
// everywhere else).
func (b *builder) mutationResultType(t *catalog.Table) *graphql.Object {
	name := mutationResultName(t.Ref)
	if existing, ok := b.mutationResults[name]; ok {
		return existing
	}
	identityType := graphql.Output(graphql.String)
	if t.IdentityColumn != nil {
		if scalarName, ok := b.deps.Mapper.ReadScalar(t.IdentityColumn.DBType); ok {
			identityType = gqlScalar(scalarName)
		}
	}
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.Fields{
			"identity":     &graphql.Field{Type: identityType, Resolve: mutationIdentityResolver},
			"rowsAffected": &graphql.Field{Type: graphql.Int, Resolve: mutationRowsAffectedResolver},
		},
	})
	b.mutationResults[name] = obj
	return obj
}
