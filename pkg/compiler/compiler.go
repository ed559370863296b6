// Package compiler lowers a ReizQL pattern tree into the graph-query
// algebra: the "compile" half of the compiler/serializer pair. Compile
// never touches a Connection — it is pure tree-to-tree translation,
// consumed by pkg/engine, which applies the result-shape decoration
// (stats wrapping, location/filename selectors, limit) on top.
package compiler

import (
	"fmt"

	"github.com/reizio/reiz/pkg/gqa"
	"github.com/reizio/reiz/pkg/reizql"
)

// ConstraintError reports a precondition violation on a compiled pattern,
// raised by pkg/engine's result-shape decoration; it is distinct from a
// parse-time *reizql.SyntaxError even though both reach the caller the
// same way.
type ConstraintError struct {
	Kind    string
	Message string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func constraintErr(kind, format string, args ...any) *ConstraintError {
	return &ConstraintError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindMatchingConstraintViolated is the one ConstraintError kind declared
// here; pkg/engine's decoration raises it for an arg root without an
// annotation, and reports non-positional/non-Module roots separately as
// an UnexpectedRoot APIError.
const (
	KindMatchingConstraintViolated = "MatchingConstraintViolated"
)

// collectionFields are the node-kind fields whose declared shape is a
// list rather than a single child, per pkg/pyast's concrete node types —
// a nested Match against one of these compares via CONTAINS, otherwise EQ.
// TODO: pyast.KindInfo.Fields doesn't yet mark which fields are lists;
// once it does, resolve this off pyast.Schema instead of a separate list.
var collectionFields = map[string]bool{
	"body": true, "args": true, "bases": true, "decorators": true,
	"orelse": true, "targets": true, "values": true, "comparators": true,
	"names": true,
}

// enumBaseForField resolves the schema enum type backing one field name,
// so Cast can target it, e.g. Name.ctx -> "ExprContext".
func enumBaseForField(kind, field string) string {
	switch field {
	case "ctx":
		return "ExprContext"
	case "op":
		if kind == "BoolOp" {
			return "BoolOp"
		}
		return "Operator"
	case "ops":
		return "CmpOp"
	default:
		return field
	}
}

// Compile lowers m into a bare Select over m.Name with its filter tree
// built, but no result-shape decoration applied — step 1-5 of spec §4.3.1.
func Compile(m *reizql.Match) (*gqa.Select, error) {
	sel := &gqa.Select{Name: m.Name}

	var filter gqa.FilterExpr
	for _, f := range m.Filters {
		expr, err := compileFilterForKey(m.Name, f.Key, f.Value)
		if err != nil {
			return nil, err
		}
		if expr == nil {
			continue // Wildcard: matches unconditionally, contributes no constraint
		}
		filter = gqa.CombineFilters(gqa.OpAnd, filter, expr)
	}
	sel.Filters = filter
	return sel, nil
}

// compileFilterForKey lowers one filter's value to the FilterExpr it
// contributes for key, recursing through Logical/Negation so that `|`,
// `&`, and `!` become real FilterTree nodes rather than string patching.
// A nil, nil return means "no constraint" (Wildcard).
func compileFilterForKey(rootKind, key string, v reizql.MatchValue) (gqa.FilterExpr, error) {
	switch val := v.(type) {
	case reizql.Wildcard:
		return nil, nil

	case reizql.Negation:
		inner, err := compileFilterForKey(rootKind, key, val.Value)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			return nil, nil
		}
		return gqa.Negate(inner), nil

	case reizql.Logical:
		left, err := compileFilterForKey(rootKind, key, val.Left)
		if err != nil {
			return nil, err
		}
		right, err := compileFilterForKey(rootKind, key, val.Right)
		if err != nil {
			return nil, err
		}
		op := gqa.OpAnd
		if val.Op == reizql.LogicalOr {
			op = gqa.OpOr
		}
		return gqa.CombineFilters(op, left, right), nil

	case *reizql.Match:
		nested, err := Compile(val)
		if err != nil {
			return nil, err
		}
		op := gqa.OpEquals
		if collectionFields[key] {
			op = gqa.OpContains
		}
		return gqa.FilterItem{Key: key, Value: nested, Operator: op}, nil

	case reizql.List:
		items := make([]gqa.Value, 0, len(val.Items))
		allAtomic := true
		for _, item := range val.Items {
			gv, atomic, err := compileListElement(rootKind, key, item)
			if err != nil {
				return nil, err
			}
			items = append(items, gv)
			allAtomic = allAtomic && atomic
		}
		set := gqa.Set{Items: items}
		var value gqa.Value = set
		if !allAtomic {
			value = gqa.CustomList{Elements: set}
		}
		return gqa.FilterItem{Key: key, Value: value, Operator: gqa.OpEquals}, nil

	case reizql.Atom:
		return gqa.FilterItem{Key: key, Value: gqa.Literal{Value: val.Value}, Operator: gqa.OpEquals}, nil

	case reizql.EnumVal:
		cast := gqa.Cast{Type: gqa.ProtectedName(enumBaseForField(rootKind, key), true), Value: gqa.Literal{Value: val.Name}}
		return gqa.FilterItem{Key: key, Value: cast, Operator: gqa.OpEquals}, nil

	default:
		return nil, fmt.Errorf("compiler: unsupported match value %T for key %q", v, key)
	}
}

// compileListElement lowers a single list element to a GQA Value, and
// reports whether it is an atomic/enum element (for the Set-vs-CustomList
// homogeneity decision) as opposed to a nested reference.
func compileListElement(rootKind, key string, v reizql.MatchValue) (gqa.Value, bool, error) {
	switch val := v.(type) {
	case reizql.Atom:
		return gqa.Literal{Value: val.Value}, true, nil
	case reizql.EnumVal:
		return gqa.Cast{Type: gqa.ProtectedName(enumBaseForField(rootKind, key), true), Value: gqa.Literal{Value: val.Name}}, true, nil
	case *reizql.Match:
		nested, err := Compile(val)
		if err != nil {
			return nil, false, err
		}
		return nested, false, nil
	default:
		return nil, false, fmt.Errorf("compiler: unsupported list element %T for key %q", v, key)
	}
}
