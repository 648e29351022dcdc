// Package sqlgen renders a qplan.TableSelection Plan tree into the ordered,
// batched SQL fragments spec.md §4.6 describes: one command per request,
// sent through the driver's single-round-trip multi-result API, with a
// single globally-ordered parameter list spanning every fragment.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/dialect"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
	"github.com/standardbeagle/BifrostQL-sub008/qplan"
)

// Fragment is one (result-key, sql, params) unit from spec.md §4.6. Params
// holds only the values this fragment itself contributed — the caller
// concatenates every fragment's SQL with ";" and sends the concatenation of
// every fragment's Params, in the same order, as the batch's bound
// parameter list (spec.md §4.6 "parameters accumulate into a single
// ordered list").
type Fragment struct {
	Key    string
	SQL    string
	Params []interface{}
}

// Emitter renders one Plan tree against one catalog snapshot and one
// dialect. It holds no state across calls to Emit and is safe to reuse
// across requests as long as every call passes its own snapshot.
type Emitter struct {
	Dialect dialect.Dialect
}

// NewEmitter returns an Emitter bound to dial.
func NewEmitter(dial dialect.Dialect) *Emitter {
	return &Emitter{Dialect: dial}
}

// Emit walks root and returns the ordered fragment list plus the single
// flat parameter list to bind against the concatenated batch text.
func (e *Emitter) Emit(cat *catalog.Catalog, root *qplan.TableSelection) ([]Fragment, []interface{}, error) {
	idx := 1
	var frags []Fragment
	var all []interface{}
	if err := e.emitNode(cat, root, &idx, &all, &frags); err != nil {
		return nil, nil, err
	}
	return frags, all, nil
}

func (e *Emitter) emitNode(cat *catalog.Catalog, n *qplan.TableSelection, idx *int, all *[]interface{}, frags *[]Fragment) error {
	if n.ParentJoin == nil {
		sql, params, err := e.renderData(cat, n, idx)
		if err != nil {
			return err
		}
		*all = append(*all, params...)
		*frags = append(*frags, Fragment{Key: n.DataKey(), SQL: sql, Params: params})

		if n.IncludeTotal {
			sql, params, err := e.renderCount(cat, n, idx)
			if err != nil {
				return err
			}
			*all = append(*all, params...)
			*frags = append(*frags, Fragment{Key: n.CountKey(), SQL: sql, Params: params})
		}
	}

	for _, j := range n.Joins {
		sql, params, err := e.renderJoin(cat, n, j, idx)
		if err != nil {
			return err
		}
		*all = append(*all, params...)
		*frags = append(*frags, Fragment{Key: n.ChildKey(j), SQL: sql, Params: params})

		if err := e.emitNode(cat, j.Child, idx, all, frags); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) renderData(cat *catalog.Catalog, n *qplan.TableSelection, idx *int) (string, []interface{}, error) {
	d := e.Dialect
	cols := make([]string, len(n.Projection))
	for i, c := range n.Projection {
		cols[i] = d.QuoteIdentifier(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), d.QualifiedTable(n.Table.Ref.Schema, n.Table.Ref.Name))

	where, params, err := renderFilter(n.Filter, cat, n.Table, d, "", idx)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	orderBy := e.renderOrderBy(n.Sort, "")
	if len(orderBy) == 0 && d.Name() == "sql-server" && (n.Paging.Limit > 0 || n.Paging.Offset > 0) {
		orderBy = pkOrderBy(n.Table, "", d)
	}
	b.WriteString(d.RenderPaging(orderBy, n.Paging.Limit, n.Paging.Offset, n.Paging.Unbounded))

	return b.String(), params, nil
}

func (e *Emitter) renderCount(cat *catalog.Catalog, n *qplan.TableSelection, idx *int) (string, []interface{}, error) {
	d := e.Dialect
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT COUNT(*) FROM %s", d.QualifiedTable(n.Table.Ref.Schema, n.Table.Ref.Name))

	where, params, err := renderFilter(n.Filter, cat, n.Table, d, "", idx)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	return b.String(), params, nil
}

// renderJoin renders the join fragment linking parent's own table to
// j.Child, per the template in spec.md §4.6: a DISTINCT key subquery over
// the parent, inner-joined (through an intermediate table for many-to-many)
// to the child, carrying src_id for the assembler.
func (e *Emitter) renderJoin(cat *catalog.Catalog, parent *qplan.TableSelection, j *qplan.TableJoin, idx *int) (string, []interface{}, error) {
	d := e.Dialect
	child := j.Child

	keyCols := make([]string, len(j.ParentColumns))
	for i, c := range j.ParentColumns {
		keyCols[i] = fmt.Sprintf("%s AS joinid%d", d.QuoteIdentifier(c), i)
	}
	parentWhere, parentParams, err := renderFilter(parent.Filter, cat, parent.Table, d, "", idx)
	if err != nil {
		return "", nil, err
	}
	keySubquery := fmt.Sprintf("SELECT DISTINCT %s FROM %s", strings.Join(keyCols, ", "), d.QualifiedTable(parent.Table.Ref.Schema, parent.Table.Ref.Name))
	if parentWhere != "" {
		keySubquery += " WHERE " + parentWhere
	}

	var b strings.Builder
	srcCols := make([]string, len(j.ParentColumns))
	for i := range j.ParentColumns {
		if len(srcCols) == 1 {
			srcCols[i] = fmt.Sprintf("a.joinid%d AS src_id", i)
		} else {
			srcCols[i] = fmt.Sprintf("a.joinid%d AS src_id%d", i, i)
		}
	}
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(srcCols, ", "))
	childCols := make([]string, len(child.Projection))
	for i, c := range child.Projection {
		childCols[i] = "b." + d.QuoteIdentifier(c) + " AS " + d.QuoteIdentifier(c)
	}
	if len(childCols) > 0 {
		b.WriteString(", ")
		b.WriteString(strings.Join(childCols, ", "))
	}
	fmt.Fprintf(&b, " FROM (%s) a", keySubquery)

	switch j.Kind {
	case catalog.ManyToMany:
		join, ok := parent.Table.JoinByName(j.Name)
		if !ok {
			return "", nil, errs.New(errs.Internal, "join %q missing from catalog at render time", j.Name)
		}
		midTable := d.QualifiedTable(join.Intermediate.Schema, join.Intermediate.Name)
		var midOn []string
		for i, c := range join.IntermediateSrc {
			midOn = append(midOn, fmt.Sprintf("a.joinid%d = m.%s", i, d.QuoteIdentifier(c)))
		}
		fmt.Fprintf(&b, " INNER JOIN %s m ON %s", midTable, strings.Join(midOn, " AND "))
		var childOn []string
		for i, c := range join.IntermediateDest {
			childOn = append(childOn, fmt.Sprintf("m.%s = b.%s", d.QuoteIdentifier(c), d.QuoteIdentifier(join.DestColumns[i])))
		}
		fmt.Fprintf(&b, " INNER JOIN %s b ON %s", d.QualifiedTable(child.Table.Ref.Schema, child.Table.Ref.Name), strings.Join(childOn, " AND "))
	default:
		var on []string
		for i, c := range j.ChildColumns {
			on = append(on, fmt.Sprintf("a.joinid%d = b.%s", i, d.QuoteIdentifier(c)))
		}
		fmt.Fprintf(&b, " INNER JOIN %s b ON %s", d.QualifiedTable(child.Table.Ref.Schema, child.Table.Ref.Name), strings.Join(on, " AND "))
	}

	childWhere, childParams, err := renderFilter(child.Filter, cat, child.Table, d, "b.", idx)
	if err != nil {
		return "", nil, err
	}
	if childWhere != "" {
		b.WriteString(" WHERE ")
		b.WriteString(childWhere)
	}

	if j.Kind != catalog.Single {
		orderBy := e.renderOrderBy(child.Sort, "b.")
		if len(orderBy) == 0 && d.Name() == "sql-server" && (child.Paging.Limit > 0 || child.Paging.Offset > 0) {
			orderBy = pkOrderBy(child.Table, "b.", d)
		}
		b.WriteString(d.RenderPaging(orderBy, child.Paging.Limit, child.Paging.Offset, child.Paging.Unbounded))
	}

	params := append(append([]interface{}{}, parentParams...), childParams...)
	return b.String(), params, nil
}

func (e *Emitter) renderOrderBy(sort []qplan.SortKey, alias string) []string {
	out := make([]string, len(sort))
	for i, s := range sort {
		dir := "ASC"
		if s.Dir == qplan.Desc {
			dir = "DESC"
		}
		out[i] = alias + e.Dialect.QuoteIdentifier(s.Column) + " " + dir
	}
	return out
}

func pkOrderBy(t *catalog.Table, alias string, d dialect.Dialect) []string {
	out := make([]string, len(t.PrimaryKeys))
	for i, pk := range t.PrimaryKeys {
		out[i] = alias + d.QuoteIdentifier(pk.Name) + " ASC"
	}
	return out
}
