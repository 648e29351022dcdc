package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersDeptCatalog() *Catalog {
	cat := New("postgres")

	users := &Table{Ref: TableRef{Name: "users"}, Kind: BaseTable}
	users.AddColumn(&Column{Name: "id", DBType: "int4", IsPrimaryKey: true, IsIdentity: true, Ordinal: 0})
	users.AddColumn(&Column{Name: "name", DBType: "varchar", Ordinal: 1})
	users.AddColumn(&Column{Name: "departmentId", DBType: "int4", Nullable: true, Ordinal: 2})
	cat.Put(users)

	depts := &Table{Ref: TableRef{Name: "departments"}, Kind: BaseTable}
	depts.AddColumn(&Column{Name: "id", DBType: "int4", IsPrimaryKey: true, Ordinal: 0})
	depts.AddColumn(&Column{Name: "name", DBType: "varchar", Ordinal: 1})
	cat.Put(depts)

	return cat
}

func TestInferJoinsSingleAndMany(t *testing.T) {
	cat := usersDeptCatalog()
	InferJoins(cat)

	users, _ := cat.TableByName("users")
	j, ok := users.JoinByName("department")
	require.True(t, ok, "expected inferred single join 'department' on users")
	assert.Equal(t, Single, j.Kind)
	assert.Equal(t, []string{"departmentId"}, j.SourceColumns)
	assert.Equal(t, []string{"id"}, j.DestColumns)
	assert.Equal(t, TableRef{Name: "departments"}, j.Dest)

	depts, _ := cat.TableByName("departments")
	mj, ok := depts.JoinByName("users")
	require.True(t, ok, "expected reciprocal many join 'users' on departments")
	assert.Equal(t, Many, mj.Kind)
	assert.Equal(t, []string{"id"}, mj.SourceColumns)
	assert.Equal(t, []string{"departmentId"}, mj.DestColumns)
}

func TestDeclaredJoinOverridesInference(t *testing.T) {
	cat := usersDeptCatalog()
	users, _ := cat.TableByName("users")
	require.NoError(t, users.AddJoin(&Join{
		Name:          "department",
		Kind:          Single,
		Source:        users.Ref,
		Dest:          TableRef{Name: "departments"},
		SourceColumns: []string{"departmentId"},
		DestColumns:   []string{"id"},
		FKName:        "fk_users_dept",
	}))
	InferJoins(cat)

	j, ok := users.JoinByName("department")
	require.True(t, ok)
	assert.Equal(t, "fk_users_dept", j.FKName, "declared join metadata must survive InferJoins")
}

func TestParseDirectiveTableVisibility(t *testing.T) {
	d, err := ParseDirective(`public.secrets { visibility: hidden }`)
	require.NoError(t, err)
	assert.Equal(t, "public", d.SchemaPat)
	assert.Equal(t, "secrets", d.TablePat)
	assert.Equal(t, "hidden", d.Attrs["visibility"])
}

func TestParseDirectiveColumnWithPredicate(t *testing.T) {
	d, err := ParseDirective(`public.*.deletedOn|has(deletedOn) { populate: created-on }`)
	require.NoError(t, err)
	assert.Equal(t, "public", d.SchemaPat)
	assert.Equal(t, "*", d.TablePat)
	assert.Equal(t, "deletedOn", d.ColPat)
	assert.Equal(t, "has(deletedOn)", d.Predicate)
}

func TestApplyDirectivesHidesTableAndSetsSoftDelete(t *testing.T) {
	cat := usersDeptCatalog()
	users, _ := cat.TableByName("users")
	users.AddColumn(&Column{Name: "deletedOn", DBType: "timestamp", Nullable: true, Ordinal: 3})

	directives, err := ParseDirectives([]string{
		`*.departments { visibility: hidden }`,
		`*.users|has(deletedOn) { delete-type: soft }`,
	})
	require.NoError(t, err)
	require.NoError(t, ApplyDirectives(cat, directives))

	depts, _ := cat.TableByName("departments")
	assert.Equal(t, Hidden, depts.Visibility)
	require.NotNil(t, users.SoftDelete)
	assert.Equal(t, "deletedOn", users.SoftDelete.DeletedOnColumn)
}

func TestApplyDirectivesSoftDeletePrefersExplicitPopulateMarkerOverNamingConvention(t *testing.T) {
	cat := usersDeptCatalog()
	users, _ := cat.TableByName("users")
	users.AddColumn(&Column{Name: "deletedOn", DBType: "timestamp", Nullable: true, Ordinal: 3})
	users.AddColumn(&Column{Name: "removedAt", DBType: "timestamp", Nullable: true, Ordinal: 4})

	directives, err := ParseDirectives([]string{
		`*.users.removedAt { populate: deleted-on }`,
		`*.users|has(deletedOn) { delete-type: soft }`,
	})
	require.NoError(t, err)
	require.NoError(t, ApplyDirectives(cat, directives))

	require.NotNil(t, users.SoftDelete)
	assert.Equal(t, "removedAt", users.SoftDelete.DeletedOnColumn)
}

func TestApplyDirectivesUpdateFalseDisablesUpdateOnly(t *testing.T) {
	cat := usersDeptCatalog()
	users, _ := cat.TableByName("users")

	directives, err := ParseDirectives([]string{`*.users { update: false }`})
	require.NoError(t, err)
	require.NoError(t, ApplyDirectives(cat, directives))

	assert.True(t, users.UpdateDisabled)
	assert.True(t, users.Editable())
}

func TestApplyDirectivesAutoJoinFalseExcludesFromInference(t *testing.T) {
	cat := usersDeptCatalog()
	users, _ := cat.TableByName("users")

	directives, err := ParseDirectives([]string{`*.users { auto-join: false }`})
	require.NoError(t, err)
	require.NoError(t, ApplyDirectives(cat, directives))

	InferJoins(cat)

	_, exists := users.JoinByName("department")
	assert.False(t, exists)
	depts, _ := cat.TableByName("departments")
	_, exists = depts.JoinByName("users")
	assert.False(t, exists)
}

func TestApplyDirectivesLaterOverridesEarlier(t *testing.T) {
	cat := usersDeptCatalog()
	directives, err := ParseDirectives([]string{
		`*.users { visibility: hidden }`,
		`*.users { visibility: visible }`,
	})
	require.NoError(t, err)
	require.NoError(t, ApplyDirectives(cat, directives))

	users, _ := cat.TableByName("users")
	assert.Equal(t, Visible, users.Visibility)
}

func TestVisibleTablesExcludesHidden(t *testing.T) {
	cat := usersDeptCatalog()
	depts, _ := cat.TableByName("departments")
	depts.Visibility = Hidden

	names := make([]string, 0)
	for _, tbl := range cat.VisibleTables() {
		names = append(names, tbl.Ref.Name)
	}
	assert.Equal(t, []string{"users"}, names)
}

func TestEditableRequiresPrimaryKey(t *testing.T) {
	view := &Table{Ref: TableRef{Name: "v_report"}, Kind: View}
	view.AddColumn(&Column{Name: "total", DBType: "int4"})
	assert.False(t, view.Editable())

	tbl := &Table{Ref: TableRef{Name: "widgets"}, Kind: BaseTable}
	tbl.AddColumn(&Column{Name: "id", DBType: "int4", IsPrimaryKey: true})
	assert.True(t, tbl.Editable())
}

func TestScalarMapperReportsUnknownTypeAsUnmapped(t *testing.T) {
	m := NewScalarMapper("postgres")
	s, ok := m.ReadScalar("some_unknown_type")
	assert.False(t, ok)
	assert.Equal(t, "", s)

	s, ok = m.ReadScalar("VARCHAR(255)")
	assert.True(t, ok)
	assert.Equal(t, "String", s)
}

func TestScalarMapperInsertDiffersForTemporal(t *testing.T) {
	m := NewScalarMapper("postgres")
	readType, _ := m.ReadScalar("timestamptz")
	insertType, _ := m.InsertScalar("timestamptz")
	assert.Equal(t, "String", readType)
	assert.Equal(t, "String", insertType)
}
