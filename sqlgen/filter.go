package sqlgen

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/dialect"
	"github.com/standardbeagle/BifrostQL-sub008/errs"
	"github.com/standardbeagle/BifrostQL-sub008/qplan"
)

// renderFilter renders f as a SQL boolean expression (no leading "WHERE"),
// qualifying column references with alias (e.g. "b.") and drawing bound
// parameters off the shared, globally-increasing idx counter. t is the
// table f's column names resolve against; cat resolves FilterJoin's
// ViaJoin into the related table for its EXISTS subquery.
func renderFilter(f *qplan.Filter, cat *catalog.Catalog, t *catalog.Table, d dialect.Dialect, alias string, idx *int) (string, []interface{}, error) {
	if f == nil {
		return "", nil, nil
	}
	switch f.Kind {
	case qplan.FilterColumn:
		return renderColumnFilter(f, d, alias, idx)

	case qplan.FilterAnd, qplan.FilterOr:
		sep := " AND "
		if f.Kind == qplan.FilterOr {
			sep = " OR "
		}
		var parts []string
		var params []interface{}
		for _, c := range f.Children {
			sql, p, err := renderFilter(c, cat, t, d, alias, idx)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, p...)
		}
		if len(parts) == 1 {
			return parts[0], params, nil
		}
		return "(" + strings.Join(parts, sep) + ")", params, nil

	case qplan.FilterNot:
		sql, params, err := renderFilter(f.Child, cat, t, d, alias, idx)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil

	case qplan.FilterJoin:
		return renderJoinFilter(f, cat, t, d, alias, idx)

	default:
		return "", nil, errs.New(errs.Internal, "unknown filter kind %v", f.Kind)
	}
}

func renderColumnFilter(f *qplan.Filter, d dialect.Dialect, alias string, idx *int) (string, []interface{}, error) {
	colRef := alias + d.QuoteIdentifier(f.Column)

	switch f.Op {
	case dialect.OpIsNull:
		opText, err := d.RenderOp(f.Op)
		if err != nil {
			return "", nil, errs.Wrap(errs.Internal, err, "rendering IS NULL")
		}
		return colRef + " " + opText, nil, nil

	case dialect.OpLike, dialect.OpNotLike, dialect.OpContains, dialect.OpStartsWith, dialect.OpEndsWith:
		form := likeFormOf(f.Op)
		negate := f.Op == dialect.OpNotLike
		bv := d.BindVar(*idx)
		*idx++
		return d.RenderLike(colRef, bv, form, negate), []interface{}{f.Value}, nil

	case dialect.OpIn, dialect.OpNotIn:
		list, ok := f.Value.([]interface{})
		if !ok {
			return "", nil, errs.New(errs.InvalidFilter, "%q expects a list value", f.Column)
		}
		placeholders := make([]string, len(list))
		params := make([]interface{}, len(list))
		for i, v := range list {
			placeholders[i] = d.BindVar(*idx)
			*idx++
			params[i] = v
		}
		opText, err := d.RenderOp(f.Op)
		if err != nil {
			return "", nil, errs.Wrap(errs.Internal, err, "rendering %v", f.Op)
		}
		return fmt.Sprintf("%s %s (%s)", colRef, opText, strings.Join(placeholders, ", ")), params, nil

	default:
		opText, err := d.RenderOp(f.Op)
		if err != nil {
			return "", nil, errs.Wrap(errs.Internal, err, "rendering %v", f.Op)
		}
		bv := d.BindVar(*idx)
		*idx++
		return fmt.Sprintf("%s %s %s", colRef, opText, bv), []interface{}{f.Value}, nil
	}
}

func renderJoinFilter(f *qplan.Filter, cat *catalog.Catalog, t *catalog.Table, d dialect.Dialect, alias string, idx *int) (string, []interface{}, error) {
	join, ok := t.JoinByName(f.ViaJoin)
	if !ok {
		return "", nil, errs.New(errs.Internal, "filter references unknown join %q on %s", f.ViaJoin, t.Ref.Name)
	}
	destTable, ok := cat.Table(join.Dest)
	if !ok {
		return "", nil, errs.New(errs.Internal, "join %q has no resolvable destination table", f.ViaJoin)
	}

	var conds []string
	if join.Kind == catalog.ManyToMany {
		midTable := d.QualifiedTable(join.Intermediate.Schema, join.Intermediate.Name)
		var midOn []string
		for i, pc := range join.SourceColumns {
			midOn = append(midOn, fmt.Sprintf("m.%s = %s%s", d.QuoteIdentifier(join.IntermediateSrc[i]), alias, d.QuoteIdentifier(pc)))
		}
		var destOn []string
		for i, dc := range join.DestColumns {
			destOn = append(destOn, fmt.Sprintf("d.%s = m.%s", d.QuoteIdentifier(dc), d.QuoteIdentifier(join.IntermediateDest[i])))
		}
		subWhere, subParams, err := renderFilter(f.Sub, cat, destTable, d, "d.", idx)
		if err != nil {
			return "", nil, err
		}
		existsSQL := fmt.Sprintf("EXISTS (SELECT 1 FROM %s m INNER JOIN %s d ON %s WHERE %s",
			midTable, d.QualifiedTable(destTable.Ref.Schema, destTable.Ref.Name), strings.Join(destOn, " AND "), strings.Join(midOn, " AND "))
		if subWhere != "" {
			existsSQL += " AND " + subWhere
		}
		existsSQL += ")"
		return existsSQL, subParams, nil
	}

	for i, pc := range join.SourceColumns {
		conds = append(conds, fmt.Sprintf("%s%s = d.%s", alias, d.QuoteIdentifier(pc), d.QuoteIdentifier(join.DestColumns[i])))
	}
	subWhere, subParams, err := renderFilter(f.Sub, cat, destTable, d, "d.", idx)
	if err != nil {
		return "", nil, err
	}
	existsSQL := fmt.Sprintf("EXISTS (SELECT 1 FROM %s d WHERE %s", d.QualifiedTable(destTable.Ref.Schema, destTable.Ref.Name), strings.Join(conds, " AND "))
	if subWhere != "" {
		existsSQL += " AND " + subWhere
	}
	existsSQL += ")"
	return existsSQL, subParams, nil
}

func likeFormOf(op dialect.Op) dialect.LikeForm {
	switch op {
	case dialect.OpStartsWith:
		return dialect.LikeStartsWith
	case dialect.OpEndsWith:
		return dialect.LikeEndsWith
	default:
		return dialect.LikeContains
	}
}
