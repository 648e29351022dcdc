package qplan

import (
	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/dialect"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
)

var filterOps = map[string]dialect.Op{
	"_eq":         dialect.OpEq,
	"_neq":        dialect.OpNeq,
	"_gt":         dialect.OpGt,
	"_gte":        dialect.OpGte,
	"_lt":         dialect.OpLt,
	"_lte":        dialect.OpLte,
	"_in":         dialect.OpIn,
	"_nin":        dialect.OpNotIn,
	"_like":       dialect.OpLike,
	"_nlike":      dialect.OpNotLike,
	"_contains":   dialect.OpContains,
	"_startsWith": dialect.OpStartsWith,
	"_endsWith":   dialect.OpEndsWith,
	"_isNull":     dialect.OpIsNull,
}

// numericOps and stringOnlyOps gate which operators are valid for which scalar
// family (spec.md §4.5 "filter operator unknown for the column's scalar
// type → INVALID_FILTER").
var numericOps = map[dialect.Op]bool{
	dialect.OpGt: true, dialect.OpGte: true, dialect.OpLt: true, dialect.OpLte: true,
}

var stringOnlyOps = map[dialect.Op]bool{
	dialect.OpLike: true, dialect.OpNotLike: true, dialect.OpContains: true,
	dialect.OpStartsWith: true, dialect.OpEndsWith: true,
}

// buildFilter translates a coerced `filter` argument value into a Filter
// tree against t, resolving join-name keys through cat (spec.md §4.5
// point 4). cat is passed explicitly, never held in package state, so
// concurrent requests against different catalog snapshots never interfere
// (spec.md §5 "no shared mutable state exists between requests in the
// core").
func buildFilter(cat *catalog.Catalog, t *catalog.Table, mapper catalog.ScalarMapper, raw interface{}) (*Filter, error) {
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errs.New(errs.InvalidFilter, "filter for %s must be an object", t.Ref.Name)
	}

	var children []*Filter
	for key, val := range obj {
		switch key {
		case "_and", "_or":
			list, ok := val.([]interface{})
			if !ok {
				return nil, errs.New(errs.InvalidFilter, "%s must be a list", key)
			}
			var sub []*Filter
			for _, item := range list {
				f, err := buildFilter(cat, t, mapper, item)
				if err != nil {
					return nil, err
				}
				sub = append(sub, f)
			}
			kind := FilterAnd
			if key == "_or" {
				kind = FilterOr
			}
			children = append(children, &Filter{Kind: kind, Children: sub})

		case "_not":
			f, err := buildFilter(cat, t, mapper, val)
			if err != nil {
				return nil, err
			}
			children = append(children, &Filter{Kind: FilterNot, Child: f})

		default:
			if col, ok := t.Column(key); ok {
				f, err := buildColumnFilter(col, mapper, val)
				if err != nil {
					return nil, err
				}
				children = append(children, f)
				continue
			}
			if join, ok := t.JoinByName(key); ok {
				destTable, destOK := cat.Table(join.Dest)
				if !destOK {
					return nil, errs.New(errs.InvalidQuery, "join %q on %s has no resolvable destination table", key, t.Ref.Name)
				}
				sub, err := buildFilter(cat, destTable, mapper, val)
				if err != nil {
					return nil, err
				}
				children = append(children, &Filter{
					Kind:      FilterJoin,
					ParentCol: join.SourceColumns[0],
					ViaJoin:   join.Name,
					Sub:       sub,
				})
				continue
			}
			return nil, errs.New(errs.InvalidQuery, "unknown field %q in filter on %s", key, t.Ref.Name)
		}
	}

	switch len(children) {
	case 0:
		return nil, nil
	case 1:
		return children[0], nil
	default:
		return &Filter{Kind: FilterAnd, Children: children}, nil
	}
}

func buildColumnFilter(col *catalog.Column, mapper catalog.ScalarMapper, val interface{}) (*Filter, error) {
	opsMap, ok := val.(map[string]interface{})
	if !ok {
		// Bare `{col: value}` shorthand means equality.
		return &Filter{Kind: FilterColumn, Column: col.Name, Op: dialect.OpEq, Value: val}, nil
	}

	var children []*Filter
	for opName, opVal := range opsMap {
		op, ok := filterOps[opName]
		if !ok {
			return nil, errs.New(errs.InvalidFilter, "unknown filter operator %q on column %s", opName, col.Name)
		}
		scalar, _ := mapper.ReadScalar(col.DBType)
		if numericOps[op] && scalar != "Int" && scalar != "Float" {
			return nil, errs.New(errs.InvalidFilter, "operator %q not valid for non-numeric column %s", opName, col.Name)
		}
		if stringOnlyOps[op] && scalar != "String" {
			return nil, errs.New(errs.InvalidFilter, "operator %q not valid for non-string column %s", opName, col.Name)
		}
		children = append(children, &Filter{Kind: FilterColumn, Column: col.Name, Op: op, Value: opVal})
	}
	switch len(children) {
	case 0:
		return nil, errs.New(errs.InvalidFilter, "empty operator object for column %s", col.Name)
	case 1:
		return children[0], nil
	default:
		return &Filter{Kind: FilterAnd, Children: children}, nil
	}
}

