package qplan

import (
	"strconv"

	"github.com/graphql-go/graphql/language/ast"

	"github.com/standardbeagle/BifrostQL-sub008/errs"
)

// coerceValue turns a raw GraphQL AST value node into a Go value, resolving
// variable references against variables. This is a self-contained
// counterpart to the coercion graphql-go performs for a field's own
// declared arguments — needed here because the planner reads arguments off
// join fields nested inside a selection set, which graphql-go never
// resolves on its own since those fields are never individually invoked
// (spec.md §4.5 point 6: "Planner variable binding substitutes GraphQL
// variables at walk time; no deferred placeholders remain in the plan").
func coerceValue(v ast.Value, variables map[string]interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case *ast.Variable:
		name := n.Name.Value
		val, ok := variables[name]
		if !ok {
			return nil, errs.New(errs.InvalidQuery, "undefined variable $%s", name)
		}
		return val, nil
	case *ast.StringValue:
		return n.Value, nil
	case *ast.IntValue:
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidQuery, err, "invalid integer literal %q", n.Value)
		}
		return f, nil
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidQuery, err, "invalid float literal %q", n.Value)
		}
		return f, nil
	case *ast.BooleanValue:
		return n.Value, nil
	case *ast.EnumValue:
		return n.Value, nil
	case *ast.ListValue:
		out := make([]interface{}, 0, len(n.Values))
		for _, item := range n.Values {
			val, err := coerceValue(item, variables)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(n.Fields))
		for _, f := range n.Fields {
			val, err := coerceValue(f.Value, variables)
			if err != nil {
				return nil, err
			}
			out[f.Name.Value] = val
		}
		return out, nil
	default:
		return nil, errs.New(errs.InvalidQuery, "unsupported argument value type %T", v)
	}
}

// coerceArgs coerces every argument on an AST field into a Go value map,
// keyed by argument name.
func coerceArgs(args []*ast.Argument, variables map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(args))
	for _, a := range args {
		val, err := coerceValue(a.Value, variables)
		if err != nil {
			return nil, err
		}
		out[a.Name.Value] = val
	}
	return out, nil
}
