package assemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/qplan"
)

// fakeReader is a hand-rolled Reader backed by an in-memory slice of result
// sets, standing in for *sql.Rows in tests (spec.md §4.7).
type fakeReader struct {
	sets []fakeSet
	cur  int
	row  int
}

type fakeSet struct {
	cols []string
	rows [][]interface{}
}

func (r *fakeReader) Columns() ([]string, error) { return r.sets[r.cur].cols, nil }

func (r *fakeReader) Next() bool {
	if r.row >= len(r.sets[r.cur].rows) {
		return false
	}
	r.row++
	return true
}

func (r *fakeReader) Scan(dest ...interface{}) error {
	src := r.sets[r.cur].rows[r.row-1]
	for i, d := range dest {
		*(d.(*interface{})) = src[i]
	}
	return nil
}

func (r *fakeReader) NextResultSet() bool {
	r.cur++
	r.row = 0
	return r.cur < len(r.sets)
}

func (r *fakeReader) Err() error { return nil }

func usersDeptsPlan() (*qplan.TableSelection, *qplan.TableJoin) {
	users := &catalog.Table{Ref: catalog.TableRef{Name: "users"}, Kind: catalog.BaseTable}
	users.AddColumn(&catalog.Column{Name: "id", IsPrimaryKey: true})
	dept := &catalog.Table{Ref: catalog.TableRef{Name: "departments"}, Kind: catalog.BaseTable}
	dept.AddColumn(&catalog.Column{Name: "id", IsPrimaryKey: true})

	deptSel := &qplan.TableSelection{Table: dept, Projection: []string{"id", "name"}}
	join := &qplan.TableJoin{Name: "department", Kind: catalog.Single, ParentColumns: []string{"departmentId"}, ChildColumns: []string{"id"}, Child: deptSel}
	deptSel.ParentJoin = join

	root := &qplan.TableSelection{Table: users, Projection: []string{"id", "name", "departmentId"}, Joins: []*qplan.TableJoin{join}, IncludeTotal: true}
	return root, join
}

func TestMaterializeAndScalarResolution(t *testing.T) {
	root, _ := usersDeptsPlan()

	r := &fakeReader{sets: []fakeSet{
		{cols: []string{"id", "name", "departmentId"}, rows: [][]interface{}{
			{int64(1), "alice", int64(10)},
			{int64(2), "bob", nil},
		}},
		{cols: []string{"count"}, rows: [][]interface{}{{int64(2)}}},
		{cols: []string{"src_id", "id", "name"}, rows: [][]interface{}{
			{int64(10), int64(10), "eng"},
		}},
	}}

	res, err := Materialize(context.Background(), []string{root.DataKey(), root.CountKey(), root.ChildKey(root.Joins[0])}, r)
	require.NoError(t, err)

	cur := RootCursor(res, root)
	require.Equal(t, 2, cur.Len())

	rows := cur.Rows()
	name, ok := rows[0].Scalar("name")
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok = rows[1].Scalar("departmentId")
	assert.False(t, ok, "NULL column resolves to (nil, false)")

	total, ok := cur.Total()
	assert.True(t, ok)
	assert.Equal(t, int64(2), total)
}

func TestJoinResolutionSingleMatchesParentKey(t *testing.T) {
	root, join := usersDeptsPlan()

	r := &fakeReader{sets: []fakeSet{
		{cols: []string{"id", "name", "departmentId"}, rows: [][]interface{}{
			{int64(1), "alice", int64(10)},
			{int64(2), "bob", int64(20)},
		}},
		{cols: []string{"src_id", "id", "name"}, rows: [][]interface{}{
			{int64(10), int64(10), "eng"},
			{int64(20), int64(20), "sales"},
		}},
	}}

	res, err := Materialize(context.Background(), []string{root.DataKey(), root.ChildKey(join)}, r)
	require.NoError(t, err)

	cur := RootCursor(res, root)
	rows := cur.Rows()

	deptCur, err := rows[0].Join(join)
	require.NoError(t, err)
	require.Equal(t, 1, deptCur.Len())
	name, _ := deptCur.Rows()[0].Scalar("name")
	assert.Equal(t, "eng", name)

	deptCur2, err := rows[1].Join(join)
	require.NoError(t, err)
	require.Equal(t, 1, deptCur2.Len())
	name2, _ := deptCur2.Rows()[0].Scalar("name")
	assert.Equal(t, "sales", name2)
}

func TestJoinResolutionManyFiltersBySrcID(t *testing.T) {
	dept := &catalog.Table{Ref: catalog.TableRef{Name: "departments"}, Kind: catalog.BaseTable}
	dept.AddColumn(&catalog.Column{Name: "id", IsPrimaryKey: true})
	users := &catalog.Table{Ref: catalog.TableRef{Name: "users"}, Kind: catalog.BaseTable}
	users.AddColumn(&catalog.Column{Name: "id", IsPrimaryKey: true})

	members := &qplan.TableSelection{Table: users, Projection: []string{"id", "name"}}
	join := &qplan.TableJoin{Name: "members", Kind: catalog.Many, ParentColumns: []string{"id"}, ChildColumns: []string{"departmentId"}, Child: members}
	members.ParentJoin = join
	root := &qplan.TableSelection{Table: dept, Projection: []string{"id"}, Joins: []*qplan.TableJoin{join}}

	r := &fakeReader{sets: []fakeSet{
		{cols: []string{"id"}, rows: [][]interface{}{{int64(1)}, {int64(2)}}},
		{cols: []string{"src_id", "id", "name"}, rows: [][]interface{}{
			{int64(1), int64(100), "alice"},
			{int64(1), int64(101), "ann"},
			{int64(2), int64(200), "bob"},
		}},
	}}

	res, err := Materialize(context.Background(), []string{root.DataKey(), root.ChildKey(join)}, r)
	require.NoError(t, err)

	cur := RootCursor(res, root)
	rows := cur.Rows()

	members1, err := rows[0].Join(join)
	require.NoError(t, err)
	assert.Equal(t, 2, members1.Len())

	members2, err := rows[1].Join(join)
	require.NoError(t, err)
	assert.Equal(t, 1, members2.Len())
	n, _ := members2.Rows()[0].Scalar("name")
	assert.Equal(t, "bob", n)
}

func TestJoinResolutionEmptyChildSlabYieldsEmptyCursorNotError(t *testing.T) {
	root, join := usersDeptsPlan()

	r := &fakeReader{sets: []fakeSet{
		{cols: []string{"id", "name", "departmentId"}, rows: [][]interface{}{{int64(1), "alice", int64(10)}}},
	}}

	res, err := Materialize(context.Background(), []string{root.DataKey()}, r)
	require.NoError(t, err)

	cur := RootCursor(res, root)
	child, err := cur.Rows()[0].Join(join)
	require.NoError(t, err)
	assert.Equal(t, 0, child.Len())
}

func TestJoinNamedResolvesByAliasOrName(t *testing.T) {
	root, join := usersDeptsPlan()
	join.Alias = "mgr"

	r := &fakeReader{sets: []fakeSet{
		{cols: []string{"id", "name", "departmentId"}, rows: [][]interface{}{{int64(1), "alice", int64(10)}}},
		{cols: []string{"src_id", "id", "name"}, rows: [][]interface{}{{int64(10), int64(10), "eng"}}},
	}}

	res, err := Materialize(context.Background(), []string{root.DataKey(), root.ChildKey(join)}, r)
	require.NoError(t, err)

	cur := RootCursor(res, root)
	deptCur, err := cur.Rows()[0].JoinNamed("mgr")
	require.NoError(t, err)
	require.Equal(t, 1, deptCur.Len())

	_, err = cur.Rows()[0].JoinNamed("department")
	assert.Error(t, err, "alias shadows the logical name once set")
}

func TestMaterializeSurfacesContextCancellation(t *testing.T) {
	root, _ := usersDeptsPlan()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &fakeReader{sets: []fakeSet{{cols: []string{"id"}, rows: [][]interface{}{{int64(1)}}}}}
	_, err := Materialize(ctx, []string{root.DataKey()}, r)
	require.Error(t, err)
}
