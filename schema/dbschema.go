package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
)

// dbColumn, dbJoin, and dbTable are the stable DTOs _dbSchema serializes
// (spec.md line 138: "exposes catalog metadata (tables, columns with
// flags, joins) in a stable shape used by front-end table editors"). A
// dedicated shape is used instead of reusing catalog.Table/Column/Join
// directly so the GraphQL surface doesn't change shape if those internal
// types grow fields a table editor has no use for.
type dbColumn struct {
	Name         string
	Type         string
	Nullable     bool
	IsPrimaryKey bool
	IsIdentity   bool
	IsReadOnly   bool
}

type dbJoin struct {
	Name string
	Kind string
	Dest string
}

type dbTable struct {
	Name     string
	Schema   string
	Editable bool
	Columns  []dbColumn
	Joins    []dbJoin
}

var dbColumnType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DbColumn",
	Fields: graphql.Fields{
		"name":         dbField(graphql.String, func(c dbColumn) interface{} { return c.Name }),
		"type":         dbField(graphql.String, func(c dbColumn) interface{} { return c.Type }),
		"nullable":     dbField(graphql.Boolean, func(c dbColumn) interface{} { return c.Nullable }),
		"isPrimaryKey": dbField(graphql.Boolean, func(c dbColumn) interface{} { return c.IsPrimaryKey }),
		"isIdentity":   dbField(graphql.Boolean, func(c dbColumn) interface{} { return c.IsIdentity }),
		"isReadOnly":   dbField(graphql.Boolean, func(c dbColumn) interface{} { return c.IsReadOnly }),
	},
})

var dbJoinType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DbJoin",
	Fields: graphql.Fields{
		"name": dbField(graphql.String, func(j dbJoin) interface{} { return j.Name }),
		"kind": dbField(graphql.String, func(j dbJoin) interface{} { return j.Kind }),
		"dest": dbField(graphql.String, func(j dbJoin) interface{} { return j.Dest }),
	},
})

var dbTableType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DbTable",
	Fields: graphql.Fields{
		"name":     dbField(graphql.String, func(t dbTable) interface{} { return t.Name }),
		"schema":   dbField(graphql.String, func(t dbTable) interface{} { return t.Schema }),
		"editable": dbField(graphql.Boolean, func(t dbTable) interface{} { return t.Editable }),
		"columns":  dbField(graphql.NewList(dbColumnType), func(t dbTable) interface{} { return t.Columns }),
		"joins":    dbField(graphql.NewList(dbJoinType), func(t dbTable) interface{} { return t.Joins }),
	},
})

// dbField wraps a typed accessor as a graphql.Field, saving every DTO
// field above from writing out its own type-assert-or-nil boilerplate.
func dbField[T any](t graphql.Output, get func(T) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			src, ok := p.Source.(T)
			if !ok {
				return nil, nil
			}
			return get(src), nil
		},
	}
}

// dbSchemaField builds the `_dbSchema` root field: every table in the
// catalog (including hidden ones — a table editor needs to see and manage
// what's currently hidden, not just what's queryable today).
func (b *builder) dbSchemaField() *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewList(dbTableType),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return dbTablesFrom(b.deps.Catalog), nil
		},
	}
}

func dbTablesFrom(cat *catalog.Catalog) []dbTable {
	tables := cat.Tables()
	out := make([]dbTable, len(tables))
	for i, t := range tables {
		cols := make([]dbColumn, len(t.Columns))
		for j, c := range t.Columns {
			cols[j] = dbColumn{
				Name: c.Name, Type: c.DBType, Nullable: c.Nullable,
				IsPrimaryKey: c.IsPrimaryKey, IsIdentity: c.IsIdentity, IsReadOnly: c.IsReadOnly,
			}
		}
		joins := make([]dbJoin, len(t.Joins))
		for j, jn := range t.Joins {
			joins[j] = dbJoin{Name: jn.Name, Kind: jn.Kind.String(), Dest: jn.Dest.String()}
		}
		out[i] = dbTable{Name: t.Ref.Name, Schema: t.Ref.Schema, Editable: t.Editable(), Columns: cols, Joins: joins}
	}
	return out
}
