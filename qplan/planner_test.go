package qplan

import (
	"testing"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
)

func plannerTestCatalog(t *testing.T) *catalog.Catalog {
	cat := catalog.New("postgres")
	users := usersTable()
	require.NoError(t, users.AddJoin(&catalog.Join{
		Name:          "department",
		Kind:          catalog.Single,
		Source:        users.Ref,
		Dest:          catalog.TableRef{Name: "departments"},
		SourceColumns: []string{"departmentId"},
		DestColumns:   []string{"id"},
	}))
	depts := deptsTable()
	require.NoError(t, depts.AddJoin(&catalog.Join{
		Name:          "users",
		Kind:          catalog.Many,
		Source:        depts.Ref,
		Dest:          users.Ref,
		SourceColumns: []string{"id"},
		DestColumns:   []string{"departmentId"},
	}))
	cat.Put(users)
	cat.Put(depts)
	return cat
}

func name(v string) *ast.Name { return &ast.Name{Value: v} }

func fieldSet(fields ...*ast.Field) *ast.SelectionSet {
	sels := make([]ast.Selection, len(fields))
	for i, f := range fields {
		sels[i] = f
	}
	return &ast.SelectionSet{Selections: sels}
}

func scalarField(n string) *ast.Field { return &ast.Field{Name: name(n)} }

func intArg(argName string, val string) *ast.Argument {
	return &ast.Argument{Name: name(argName), Value: &ast.IntValue{Value: val}}
}

func listArg(argName string, items ...ast.Value) *ast.Argument {
	return &ast.Argument{Name: name(argName), Value: &ast.ListValue{Values: items}}
}

func TestPlannerBuildsRootWithScalarsAndTotal(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(100)

	root := &ast.Field{
		Name: name("users"),
		Arguments: []*ast.Argument{
			intArg("limit", "2"),
			listArg("sort", &ast.StringValue{Value: "-id"}),
		},
		SelectionSet: fieldSet(scalarField("id"), scalarField("name"), scalarField("total")),
	}

	sel, err := p.Build(cat, mapper, root, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, sel.Paging.Limit)
	require.Len(t, sel.Sort, 1)
	assert.Equal(t, "id", sel.Sort[0].Column)
	assert.Equal(t, Desc, sel.Sort[0].Dir)
	assert.True(t, sel.IncludeTotal)
	assert.Contains(t, sel.Projection, "name")
	assert.Contains(t, sel.Projection, "id")
}

func TestPlannerDefaultsLimitWhenNotSupplied(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(25)

	root := &ast.Field{
		Name:         name("users"),
		SelectionSet: fieldSet(scalarField("id")),
	}

	sel, err := p.Build(cat, mapper, root, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, sel.Paging.Limit)
	assert.False(t, sel.Paging.Unbounded)
}

func TestPlannerUnboundedLimit(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(25)

	root := &ast.Field{
		Name:         name("users"),
		Arguments:    []*ast.Argument{intArg("limit", "-1")},
		SelectionSet: fieldSet(scalarField("id")),
	}

	sel, err := p.Build(cat, mapper, root, nil)
	require.NoError(t, err)
	assert.True(t, sel.Paging.Unbounded)
}

func TestPlannerBuildsSingleJoin(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(100)

	root := &ast.Field{
		Name: name("users"),
		SelectionSet: fieldSet(
			scalarField("id"),
			&ast.Field{
				Name:         name("department"),
				SelectionSet: fieldSet(scalarField("id"), scalarField("name")),
			},
		),
	}

	sel, err := p.Build(cat, mapper, root, nil)
	require.NoError(t, err)
	require.Len(t, sel.Joins, 1)

	j := sel.Joins[0]
	assert.Equal(t, catalog.Single, j.Kind)
	assert.True(t, j.Child.Singular)
	assert.Equal(t, 1, j.Child.Paging.Limit)
	assert.Contains(t, sel.Projection, "departmentId", "join anchor column must be projected on the parent")
}

func TestPlannerBuildsManyJoinWithOwnArgs(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(100)

	root := &ast.Field{
		Name: name("departments"),
		SelectionSet: fieldSet(
			scalarField("id"),
			&ast.Field{
				Name:         name("users"),
				Arguments:    []*ast.Argument{intArg("limit", "5")},
				SelectionSet: fieldSet(scalarField("id"), scalarField("name")),
			},
		),
	}

	sel, err := p.Build(cat, mapper, root, nil)
	require.NoError(t, err)
	require.Len(t, sel.Joins, 1)

	j := sel.Joins[0]
	assert.Equal(t, catalog.Many, j.Kind)
	assert.False(t, j.Child.Singular)
	assert.Equal(t, 5, j.Child.Paging.Limit)
}

func TestPlannerVariableBindingResolvesAtWalkTime(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(100)

	root := &ast.Field{
		Name:         name("users"),
		Arguments:    []*ast.Argument{{Name: name("limit"), Value: &ast.Variable{Name: name("n")}}},
		SelectionSet: fieldSet(scalarField("id")),
	}

	sel, err := p.Build(cat, mapper, root, map[string]interface{}{"n": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, 7, sel.Paging.Limit)
}

func TestPlannerRejectsUnknownTable(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(100)

	root := &ast.Field{Name: name("ghosts")}
	_, err := p.Build(cat, mapper, root, nil)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidQuery, errs.CodeOf(err))
}

func TestPlannerRejectsUnknownFieldInSelection(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(100)

	root := &ast.Field{
		Name:         name("users"),
		SelectionSet: fieldSet(scalarField("nope")),
	}
	_, err := p.Build(cat, mapper, root, nil)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidQuery, errs.CodeOf(err))
}

func TestPlannerRejectsUnknownSortColumn(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(100)

	root := &ast.Field{
		Name:         name("users"),
		Arguments:    []*ast.Argument{listArg("sort", &ast.StringValue{Value: "-nope"})},
		SelectionSet: fieldSet(scalarField("id")),
	}
	_, err := p.Build(cat, mapper, root, nil)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidQuery, errs.CodeOf(err))
}

func TestPlannerAppliesFilterArgument(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(100)

	root := &ast.Field{
		Name: name("users"),
		Arguments: []*ast.Argument{{
			Name: name("filter"),
			Value: &ast.ObjectValue{Fields: []*ast.ObjectField{
				{Name: name("name"), Value: &ast.StringValue{Value: "Ada"}},
			}},
		}},
		SelectionSet: fieldSet(scalarField("id")),
	}

	sel, err := p.Build(cat, mapper, root, nil)
	require.NoError(t, err)
	require.NotNil(t, sel.Filter)
	assert.Equal(t, FilterColumn, sel.Filter.Kind)
	assert.Equal(t, "name", sel.Filter.Column)
}

func TestPlannerTotalOnlyRecognizedAtRoot(t *testing.T) {
	cat := plannerTestCatalog(t)
	mapper := catalog.NewScalarMapper("postgres")
	p := NewPlanner(100)

	root := &ast.Field{
		Name: name("users"),
		SelectionSet: fieldSet(
			scalarField("id"),
			&ast.Field{
				Name:         name("department"),
				SelectionSet: fieldSet(scalarField("id"), scalarField("total")),
			},
		),
	}
	_, err := p.Build(cat, mapper, root, nil)
	require.Error(t, err, "a join's row type has no total field")
	assert.Equal(t, errs.InvalidQuery, errs.CodeOf(err))
}
