// Package assemble consumes the multi-result-set reader sqlgen's batched
// SQL produces and exposes a lazy traversal API the GraphQL execution
// engine's field resolvers read from directly (spec.md §4.7).
package assemble

import (
	"context"
	"fmt"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
	"github.com/standardbeagle/BifrostQL-sub008/qplan"
)

// Reader is the narrow slice of *sql.Rows this package depends on — every
// supported driver (pgx, go-sql-driver/mysql with multiStatements=true,
// go-mssqldb, mattn/go-sqlite3) satisfies it through the standard
// database/sql wrapper, so assemble never imports a driver package
// directly.
type Reader interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	NextResultSet() bool
	Err() error
}

// Slab is one fragment's materialized result set, keyed by result-key
// (spec.md GLOSSARY "Slab").
type Slab struct {
	Key     string
	Columns []string
	colIdx  map[string]int
	Rows    [][]interface{}
}

func newSlab(key string, cols []string) *Slab {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	return &Slab{Key: key, Columns: cols, colIdx: idx}
}

func (s *Slab) col(name string) (int, bool) {
	i, ok := s.colIdx[name]
	return i, ok
}

// Result holds every slab materialized from one request's batch, in
// fragment order.
type Result struct {
	slabs map[string]*Slab
	order []string
}

// Materialize reads r's result sets in turn, one per entry in keys (which
// must be in the same order sqlgen emitted the fragments), and returns the
// fully materialized Result. The underlying reader is never retained once
// every slab is read (spec.md §4.7 "does not retain the underlying reader
// once all rows are materialized") — the caller closes it.
func Materialize(ctx context.Context, keys []string, r Reader) (*Result, error) {
	res := &Result{slabs: make(map[string]*Slab, len(keys))}

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.Cancelled, err, "assembling %s", key)
		}
		if i > 0 {
			if !r.NextResultSet() {
				return nil, errs.New(errs.Internal, "expected result set for fragment %q, batch ended early", key)
			}
		}
		cols, err := r.Columns()
		if err != nil {
			return nil, errs.Wrap(errs.DBError, err, "reading columns for fragment %q", key)
		}
		slab := newSlab(key, cols)

		for r.Next() {
			if err := ctx.Err(); err != nil {
				return nil, errs.Wrap(errs.Cancelled, err, "assembling %s", key)
			}
			raw := make([]interface{}, len(cols))
			ptrs := make([]interface{}, len(cols))
			for j := range raw {
				ptrs[j] = &raw[j]
			}
			if err := r.Scan(ptrs...); err != nil {
				return nil, errs.Wrap(errs.DBError, err, "scanning row for fragment %q", key)
			}
			slab.Rows = append(slab.Rows, raw)
		}
		if err := r.Err(); err != nil {
			return nil, errs.Wrap(errs.DBError, err, "reading rows for fragment %q", key)
		}

		res.slabs[key] = slab
		res.order = append(res.order, key)
	}
	return res, nil
}

// Row pairs a Cursor with one of its row positions — the value a GraphQL
// field resolver receives as its source.
type Row struct {
	Cursor *Cursor
	Pos    int
}

// Scalar resolves column col on this row, translating database NULL to a
// response null (spec.md §4.7 "translated from database-null to
// response-null").
func (row Row) Scalar(col string) (interface{}, bool) {
	return row.Cursor.scalar(row.Pos, col)
}

// Join resolves join field j for this row, returning the matching child
// Cursor (possibly empty, never nil).
func (row Row) Join(j *qplan.TableJoin) (*Cursor, error) {
	return row.Cursor.join(row.Pos, j)
}

// JoinNamed resolves the TableJoin whose GraphQL response key (alias, or
// name when unaliased) equals key, against the plan node this row belongs
// to. Schema field resolvers don't hold a *qplan.TableJoin directly — the
// plan tree is per-request — so they look it up by the response key
// graphql-go already resolved for them (ResolveInfo.FieldName).
func (row Row) JoinNamed(key string) (*Cursor, error) {
	for _, j := range row.Cursor.selection.Joins {
		if j.AliasOrName() == key {
			return row.Cursor.join(row.Pos, j)
		}
	}
	return nil, errs.New(errs.Internal, "no join %q on plan node %q", key, row.Cursor.selection.AliasOrName())
}

// Cursor is a lazy view over one slab, scoped to the subset of rows that
// belong to one parent row (or, for the root, every row) — spec.md §4.7's
// RowCursor / SubRowCursor.
type Cursor struct {
	result    *Result
	selection *qplan.TableSelection
	slab      *Slab
	rows      []int // indices into slab.Rows
}

// RootCursor returns a Cursor over sel's own data slab, unscoped.
func RootCursor(result *Result, sel *qplan.TableSelection) *Cursor {
	slab := result.slabs[sel.DataKey()]
	if slab == nil {
		return &Cursor{result: result, selection: sel, slab: newSlab(sel.DataKey(), nil)}
	}
	rows := make([]int, len(slab.Rows))
	for i := range rows {
		rows[i] = i
	}
	return &Cursor{result: result, selection: sel, slab: slab, rows: rows}
}

// Len is the number of rows this cursor currently sees.
func (c *Cursor) Len() int { return len(c.rows) }

// Rows returns one Row handle per row this cursor sees, in slab order
// (spec.md §4.7 "field order in the response follows the GraphQL selection
// order" — that ordering is enforced by the caller walking the schema, not
// here; this just exposes the underlying row order).
func (c *Cursor) Rows() []Row {
	out := make([]Row, c.Len())
	for i := range out {
		out[i] = Row{Cursor: c, Pos: i}
	}
	return out
}

// Total reads the slab for the root's COUNT(*) fragment, valid only when
// the selection requested IncludeTotal.
func (c *Cursor) Total() (int64, bool) {
	slab, ok := c.result.slabs[c.selection.CountKey()]
	if !ok || len(slab.Rows) == 0 {
		return 0, false
	}
	n, ok := toInt64(slab.Rows[0][0])
	return n, ok
}

func (c *Cursor) scalar(pos int, col string) (interface{}, bool) {
	idx, ok := c.slab.col(col)
	if !ok || pos >= len(c.rows) {
		return nil, false
	}
	v := c.slab.Rows[c.rows[pos]][idx]
	return v, v != nil
}

// join resolves TableJoin j for the row at pos: it reads the parent key
// tuple off that row, then scans j's child slab for rows whose src_id
// tuple matches by structural equality (spec.md §4.7 "matching uses
// structural equality over the key tuple").
func (c *Cursor) join(pos int, j *qplan.TableJoin) (*Cursor, error) {
	childKey := c.selection.ChildKey(j)
	slab, ok := c.result.slabs[childKey]
	if !ok {
		return &Cursor{result: c.result, selection: j.Child, slab: newSlab(childKey, nil)}, nil
	}

	keyVals := make([]interface{}, len(j.ParentColumns))
	for i, col := range j.ParentColumns {
		v, _ := c.scalar(pos, col)
		keyVals[i] = v
	}

	srcCols, err := srcIDColumns(slab, len(keyVals))
	if err != nil {
		return nil, err
	}

	var matched []int
	for i, row := range slab.Rows {
		if rowMatchesKey(row, srcCols, keyVals) {
			matched = append(matched, i)
			if j.Kind == catalog.Single {
				break
			}
		}
	}

	return &Cursor{result: c.result, selection: j.Child, slab: slab, rows: matched}, nil
}

func srcIDColumns(slab *Slab, n int) ([]int, error) {
	if n == 1 {
		idx, ok := slab.col("src_id")
		if !ok {
			return nil, errs.New(errs.Internal, "join slab %q missing src_id column", slab.Key)
		}
		return []int{idx}, nil
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		idx, ok := slab.col(fmt.Sprintf("src_id%d", i))
		if !ok {
			return nil, errs.New(errs.Internal, "join slab %q missing src_id%d column", slab.Key, i)
		}
		out[i] = idx
	}
	return out, nil
}

func rowMatchesKey(row []interface{}, srcCols []int, key []interface{}) bool {
	for i, idx := range srcCols {
		if !equalScalar(row[idx], key[i]) {
			return false
		}
	}
	return true
}

func equalScalar(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case []byte:
		var out int64
		if _, err := fmt.Sscanf(string(n), "%d", &out); err != nil {
			return 0, false
		}
		return out, true
	default:
		return 0, false
	}
}
