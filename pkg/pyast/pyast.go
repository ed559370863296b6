// Package pyast is the node-kind schema: a closed sum of the syntax-tree
// node kinds Reiz indexes, modeled on Python's ast grammar (the language
// the original reiz.io crawler indexed — see original_source/reiz for the
// precedent this schema follows). It plays the role spec.md's "known
// schema of node kinds" assumes exists: every ReizQL Match.Name and every
// serializer dispatch resolves against the registry built here.
package pyast

import (
	"fmt"
	"sort"
)

// FieldValue is one (name, value) pair as produced by Fields()/Locations().
// Value is one of: nil (absent/None), string, int64, bool, Node (a single
// child), []Node (a homogeneous child list), []string (a list of string
// atoms, e.g. Import.names), or an EnumValue.
type FieldValue struct {
	Name  string
	Value any
}

// Node is any concrete syntax-tree node kind.
type Node interface {
	// Kind is the node's schema name, e.g. "Name", "Call", "Module".
	Kind() string
	// Fields iterates the node's declared children in a fixed, stable
	// order — the Go equivalent of ast.iter_fields.
	Fields() []FieldValue
}

// Located is implemented by every node kind the schema marks positional:
// one that carries source locations and can therefore be the root of a
// query that extracts a code fragment.
type Located interface {
	Node
	Locations() []FieldValue
}

// Stmt and Expr are the two abstract bases every statement/expression
// concrete kind belongs to; used by InferBase to pick the narrowest
// common base when selecting a freshly inserted row back out.
type Stmt interface {
	Node
	isStmt()
}

type Expr interface {
	Node
	isExpr()
}

// EnumValue is implemented by every enumerator type (ExprContext,
// Operator, CmpOp, BoolOpKind); the serializer casts these via
// Cast(enumBaseType, 'VariantName') instead of walking them as nodes.
type EnumValue interface {
	EnumBase() string
	Variant() string
}

// Pos carries the four location attributes Python's ast module tracks.
// Embedding it in a concrete node type is what makes that type satisfy
// Located.
type Pos struct {
	Lineno       int
	ColOffset    int
	EndLineno    int
	EndColOffset int
}

func (p Pos) Locations() []FieldValue {
	return []FieldValue{
		{Name: "lineno", Value: int64(p.Lineno)},
		{Name: "col_offset", Value: int64(p.ColOffset)},
		{Name: "end_lineno", Value: int64(p.EndLineno)},
		{Name: "end_col_offset", Value: int64(p.EndColOffset)},
	}
}

// IsAtomic reports whether v is an atomic leaf value — a plain Go
// string/bool/int/int64 — the schema's ATOMIC_TYPES partition. Atomic-ness
// is a property of the Go value's static type, not a lookup table, since
// Go's type system already carries that information at every call site.
func IsAtomic(v any) bool {
	switch v.(type) {
	case string, bool, int, int64:
		return true
	default:
		return false
	}
}

// KindInfo is the schema entry for one node kind.
type KindInfo struct {
	// Fields lists the declared field names, in iteration order, that a
	// Match against this kind is allowed to filter on.
	Fields []string
	// Positional mirrors Located: true iff instances of this kind carry
	// source locations.
	Positional bool
	// Base is the narrowest abstract base this kind upcasts to for
	// post-insert selection ("stmt", "expr", "arg", "Module", or "AST").
	Base string
	// ModuleAnnotated marks kinds that receive a `_module` back-pointer
	// update after ingestion.
	ModuleAnnotated bool
	// PositionalArg names the field an unnamed (non-keyword) ReizQL
	// argument binds to, e.g. Name("x") is sugar for Name(id="x").
	// Empty means the kind only accepts keyword arguments.
	PositionalArg string
}

// Schema is the full closed registry of known node kinds, including the
// abstract bases ("stmt", "expr", "AST") which are themselves valid
// Select/count targets (see GetStats's DEFAULT_NODES) even though no
// concrete Node value ever reports one of them from Kind().
var Schema = map[string]KindInfo{
	"Module": {Fields: []string{"body", "filename", "project"}, Positional: false, Base: "Module", ModuleAnnotated: false},

	"FunctionDef": {Fields: []string{"name", "args", "body", "decorators"}, Positional: true, Base: "stmt", ModuleAnnotated: true, PositionalArg: "name"},
	"ClassDef":    {Fields: []string{"name", "bases", "body"}, Positional: true, Base: "stmt", ModuleAnnotated: true, PositionalArg: "name"},
	"If":          {Fields: []string{"test", "body", "orelse"}, Positional: true, Base: "stmt", ModuleAnnotated: true},
	"For":         {Fields: []string{"target", "iter", "body"}, Positional: true, Base: "stmt", ModuleAnnotated: true},
	"While":       {Fields: []string{"test", "body"}, Positional: true, Base: "stmt", ModuleAnnotated: true},
	"Return":      {Fields: []string{"value"}, Positional: true, Base: "stmt", ModuleAnnotated: true},
	"Assign":      {Fields: []string{"targets", "value"}, Positional: true, Base: "stmt", ModuleAnnotated: true},
	"Import":      {Fields: []string{"names"}, Positional: true, Base: "stmt", ModuleAnnotated: true},
	"ExprStmt":    {Fields: []string{"value"}, Positional: true, Base: "stmt", ModuleAnnotated: true},

	"Name":      {Fields: []string{"id", "ctx"}, Positional: true, Base: "expr", ModuleAnnotated: true, PositionalArg: "id"},
	"Call":      {Fields: []string{"func", "args"}, Positional: true, Base: "expr", ModuleAnnotated: true},
	"Attribute": {Fields: []string{"value", "attr", "ctx"}, Positional: true, Base: "expr", ModuleAnnotated: true, PositionalArg: "attr"},
	"BinOp":     {Fields: []string{"left", "op", "right"}, Positional: true, Base: "expr", ModuleAnnotated: true},
	"Compare":   {Fields: []string{"left", "ops", "comparators"}, Positional: true, Base: "expr", ModuleAnnotated: true},
	"Constant":  {Fields: []string{"value"}, Positional: true, Base: "expr", ModuleAnnotated: true, PositionalArg: "value"},
	"BoolOp":    {Fields: []string{"op", "values"}, Positional: true, Base: "expr", ModuleAnnotated: true},

	"arg": {Fields: []string{"arg", "annotation"}, Positional: true, Base: "arg", ModuleAnnotated: true, PositionalArg: "arg"},

	"Sentinel": {Fields: nil, Positional: false, Base: "AST", ModuleAnnotated: true},

	// Abstract bases: valid Select/count targets, never a concrete
	// Kind() value.
	"stmt": {Base: "stmt"},
	"expr": {Base: "expr"},
	"AST":  {Base: "AST"},
}

// Resolve looks up a node kind by name, the single point RFE and the
// compiler call to validate a Match.Name against the schema.
func Resolve(name string) (KindInfo, bool) {
	info, ok := Schema[name]
	return info, ok
}

// HasField reports whether kind declares field.
func HasField(kind, field string) bool {
	info, ok := Schema[kind]
	if !ok {
		return false
	}
	for _, f := range info.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// IsPositional reports whether kind carries source locations.
func IsPositional(kind string) bool {
	info, ok := Schema[kind]
	return ok && info.Positional
}

// InferBase returns the narrowest abstract base a concrete node upcasts
// to for post-insert selection: the relation parents use to refer to
// children without knowing their exact concrete kind.
func InferBase(n Node) string {
	info, ok := Schema[n.Kind()]
	if !ok {
		panic(fmt.Sprintf("pyast: unknown node kind %q", n.Kind()))
	}
	return info.Base
}

// ModuleAnnotatedKinds returns every concrete kind name that receives a
// `_module` back-pointer update after ingestion — spec.md's
// MODULE_ANNOTATED_TYPES, excluding the abstract bases (an Update targets
// concrete storage types, not the upcast relations).
func ModuleAnnotatedKinds() []string {
	var out []string
	for name, info := range Schema {
		if info.ModuleAnnotated {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
