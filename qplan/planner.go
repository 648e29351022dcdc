package qplan

import (
	"fmt"

	"github.com/graphql-go/graphql/language/ast"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
)

// Planner walks a validated GraphQL document, with variables already bound,
// and produces Plan-tree roots (spec.md §4.5). A Planner is cheap to
// construct and holds no per-request state of its own — every method takes
// the catalog snapshot and variable map explicitly so two requests can run
// the same Planner concurrently against different snapshots.
type Planner struct {
	DefaultLimit int
}

// NewPlanner returns a Planner using fallback defaultLimit (spec.md §4.5
// point 2: "limit default is the table's metadata default (fallback
// 100)").
func NewPlanner(defaultLimit int) *Planner {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &Planner{DefaultLimit: defaultLimit}
}

// Build constructs the root TableSelection for one top-level table field of
// a query/mutation operation. Row-level fields (scalars and joins) are read
// directly off the field's own selection set — spec.md §8's worked examples
// (`{ users(limit: 2, sort: "-id") { id name } }`) never nest row fields
// under a `data` indirection, so that flat shape is what this planner
// builds against; `total` is recognized as a sibling pseudo-field
// requesting spec.md §4.6's COUNT(*) fragment only at the root (see
// DESIGN.md's Open Question note on §4.4 vs. §8).
func (p *Planner) Build(cat *catalog.Catalog, mapper catalog.ScalarMapper, field *ast.Field, variables map[string]interface{}) (*TableSelection, error) {
	tableName := field.Name.Value
	table, err := cat.TableByName(tableName)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidQuery, err, "unknown table field %q", tableName)
	}
	if table.Visibility == catalog.Hidden {
		return nil, errs.New(errs.InvalidQuery, "table %q is not queryable", tableName)
	}

	args, err := coerceArgs(field.Arguments, variables)
	if err != nil {
		return nil, err
	}

	sel := &TableSelection{Table: table, Alias: aliasOf(field)}
	if err := p.applyTableArgs(cat, mapper, sel, args); err != nil {
		return nil, err
	}

	if field.SelectionSet != nil {
		if err := p.walkRowSelections(cat, mapper, sel, field.SelectionSet, variables); err != nil {
			return nil, err
		}
	}

	sel.CloseProjection()
	if err := sel.Validate(); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "invalid plan for %s", tableName)
	}
	return sel, nil
}

// walkRowSelections populates sel.Projection and sel.Joins from a row-type
// selection set — either the root table field's own selection set (row
// fields sit directly under it, with no `data` wrapper), or a join field's
// own selection set (spec.md §4.5 point 3).
func (p *Planner) walkRowSelections(cat *catalog.Catalog, mapper catalog.ScalarMapper, sel *TableSelection, ss *ast.SelectionSet, variables map[string]interface{}) error {
	for _, raw := range ss.Selections {
		f, ok := raw.(*ast.Field)
		if !ok {
			continue // fragments are expanded upstream by the GraphQL validator
		}
		name := f.Name.Value
		if name == "__typename" {
			continue
		}
		if name == "total" && sel.ParentJoin == nil {
			sel.IncludeTotal = true
			continue
		}
		if col, ok := sel.Table.Column(name); ok {
			sel.addProjection(col.Name)
			continue
		}
		join, ok := sel.Table.JoinByName(name)
		if !ok {
			return errs.New(errs.InvalidQuery, "unknown field %q on table %s", name, sel.Table.Ref.Name)
		}
		tj, err := p.buildJoin(cat, mapper, sel, join, f, variables)
		if err != nil {
			return err
		}
		sel.Joins = append(sel.Joins, tj)
	}
	return nil
}

// buildJoin recurses into a join field's own selection set. Unlike the
// root, a join field's return type is never TableResult<T> (spec.md §4.4:
// single joins resolve to the row type; many/many-to-many resolve to
// [row type]) — so its row fields are read directly from the field's
// SelectionSet with no `data` indirection.
func (p *Planner) buildJoin(cat *catalog.Catalog, mapper catalog.ScalarMapper, parentSel *TableSelection, join *catalog.Join, field *ast.Field, variables map[string]interface{}) (*TableJoin, error) {
	destTable, ok := cat.Table(join.Dest)
	if !ok {
		return nil, errs.New(errs.Internal, "join %q on %s references missing table %s", join.Name, parentSel.Table.Ref.Name, join.Dest)
	}

	childSel := &TableSelection{Table: destTable, Alias: aliasOf(field)}
	tj := &TableJoin{
		Name:          join.Name,
		Alias:         aliasOf(field),
		Kind:          join.Kind,
		ParentColumns: join.SourceColumns,
		ChildColumns:  join.DestColumns,
		Child:         childSel,
	}
	childSel.ParentJoin = tj

	if join.Kind == catalog.Single {
		childSel.Singular = true
		childSel.Paging = Paging{Limit: 1}
	} else {
		args, err := coerceArgs(field.Arguments, variables)
		if err != nil {
			return nil, err
		}
		if err := p.applyTableArgs(cat, mapper, childSel, args); err != nil {
			return nil, err
		}
	}

	if field.SelectionSet != nil {
		if err := p.walkRowSelections(cat, mapper, childSel, field.SelectionSet, variables); err != nil {
			return nil, err
		}
	}
	childSel.CloseProjection()
	return tj, nil
}

func (p *Planner) applyTableArgs(cat *catalog.Catalog, mapper catalog.ScalarMapper, sel *TableSelection, args map[string]interface{}) error {
	if raw, ok := args["filter"]; ok {
		f, err := buildFilter(cat, sel.Table, mapper, raw)
		if err != nil {
			return err
		}
		sel.Filter = f
	}

	if raw, ok := args["sort"]; ok {
		keys, err := parseSort(sel.Table, raw)
		if err != nil {
			return err
		}
		sel.Sort = keys
	}

	limit := sel.Table.DefaultLimit
	if limit <= 0 {
		limit = p.DefaultLimit
	}
	if raw, ok := args["limit"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return errs.Wrap(errs.InvalidQuery, err, "invalid limit")
		}
		if n == -1 {
			sel.Paging.Unbounded = true
		} else {
			limit = n
		}
	}
	sel.Paging.Limit = limit

	if raw, ok := args["offset"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return errs.Wrap(errs.InvalidQuery, err, "invalid offset")
		}
		sel.Paging.Offset = n
	}
	return nil
}

// parseSort accepts the MongoDB/Directus-style `[+-]column` strings from
// spec.md §4.5 point 2.
func parseSort(t *catalog.Table, raw interface{}) ([]SortKey, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errs.New(errs.InvalidQuery, "sort must be a list of strings")
	}
	out := make([]SortKey, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, errs.New(errs.InvalidQuery, "sort entries must be non-empty strings")
		}
		dir := Asc
		col := s
		switch s[0] {
		case '-':
			dir = Desc
			col = s[1:]
		case '+':
			col = s[1:]
		}
		if _, ok := t.Column(col); !ok {
			return nil, errs.New(errs.InvalidQuery, "unknown sort column %q on %s", col, t.Ref.Name)
		}
		out = append(out, SortKey{Column: col, Dir: dir})
	}
	return out, nil
}

func aliasOf(f *ast.Field) string {
	if f.Alias != nil {
		return f.Alias.Value
	}
	return ""
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		var out int
		if _, err := fmt.Sscanf(n, "%d", &out); err != nil {
			return 0, err
		}
		return out, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to int", v)
	}
}
