// Package gqa implements the graph-query algebra that Reiz compiles and
// serializes into: selects, inserts, updates, filters, casts, references,
// and variables, together with a single rendering entry point that turns
// any of them into the textual query language of the backing graph store.
package gqa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Node is any GQA construct that can render itself to a query string.
type Node interface {
	Render() string
}

// Value is any GQA construct usable as a field value: a literal, a cast,
// a reference, a set, a call, the CustomList wrapper, a variable, or a
// nested query (Select/Insert are both legal field values).
type Value interface {
	Node
	isValue()
}

// AsEdgeQL renders any GQA node with canonical spacing. It is the single
// serialization entry point named in spec §4.1.
func AsEdgeQL(node Node) string {
	return node.Render()
}

// reservedWords are identifiers the backing store's grammar would
// otherwise misparse as keywords.
var reservedWords = map[string]bool{
	"filter": true, "select": true, "insert": true, "update": true,
	"set": true, "delete": true, "with": true, "for": true, "in": true,
	"or": true, "and": true, "not": true, "limit": true, "type": true,
	"module": true, "global": true, "alias": true,
}

const schemaNamespace = "reiz"

// ProtectedName routes an identifier through the namespace/escaping rules
// spec §4.1 requires. prefix=true means "name is a node kind", which gets
// the schema module namespace prepended; identifiers colliding with a
// reserved word are always backtick-escaped, regardless of prefix.
func ProtectedName(name string, prefix bool) string {
	escaped := name
	if reservedWords[name] {
		escaped = "`" + name + "`"
	}
	if prefix {
		return schemaNamespace + "::" + escaped
	}
	return escaped
}

func withParens(s string) string {
	return "(" + s + ")"
}

func withBraces(s string) string {
	return "{" + s + "}"
}

// KV is an ordered key/value pair, used anywhere map iteration order would
// otherwise be undefined (insert fields, update assigns, make_filter).
type KV struct {
	Key   string
	Value Value
}

// ---- Operators ----

// LogicOperator combines two FilterExprs.
type LogicOperator int

const (
	OpAnd LogicOperator = iota
	OpOr
	OpIn
	// OpNot is a unary wrapper: Tree.Left is unused, only Tree.Right renders.
	OpNot
)

func (o LogicOperator) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpIn:
		return "IN"
	case OpNot:
		return "NOT"
	default:
		return "AND"
	}
}

// CompareOperator compares a field against a value inside a FilterItem.
type CompareOperator int

const (
	OpEquals CompareOperator = iota
	OpContains
)

func (o CompareOperator) String() string {
	if o == OpContains {
		return "in"
	}
	return "="
}

// ---- Values ----

// Literal is a scalar value rendered through Go's quoting rules (strings
// quoted, integers/bools bare, nil as the empty set).
type Literal struct {
	Value any
}

func (Literal) isValue() {}

func (l Literal) Render() string {
	switch v := l.Value.(type) {
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return "{}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Cast renders <Type>Value, e.g. <reiz::BoolOp>"And".
type Cast struct {
	Type  string
	Value Value
}

func (Cast) isValue() {}

func (c Cast) Render() string {
	return "<" + c.Type + ">" + c.Value.Render()
}

// Ref renders a uuid cast from a row id, <uuid>"<id>".
type Ref struct {
	ID uuid.UUID
}

func (Ref) isValue() {}

func (r Ref) Render() string {
	return "<uuid>" + strconv.Quote(r.ID.String())
}

// Set renders a homogeneous ordered sequence, {a, b, c}.
type Set struct {
	Items []Value
}

func (Set) isValue() {}

func (s Set) Render() string {
	parts := make([]string, len(s.Items))
	for i, item := range s.Items {
		parts[i] = item.Render()
	}
	return withBraces(strings.Join(parts, ", "))
}

// CustomList is the engine-specific wrapper for a heterogeneous ordered
// sequence. It exists purely to work around a backing-store schema quirk
// (see DESIGN.md); isolate every use behind this one construct so that a
// future schema change only touches Render.
type CustomList struct {
	Elements Set
}

func (CustomList) isValue() {}

func (c CustomList) Render() string {
	return "reiz_custom_list(" + c.Elements.Render() + ")"
}

// Call renders func(args...).
type Call struct {
	Func string
	Args []Value
}

func (Call) isValue() {}

func (c Call) Render() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.Render()
	}
	return c.Func + withParens(strings.Join(parts, ", "))
}

// Variable renders $name, a query parameter placeholder.
type Variable struct {
	Name string
}

func (Variable) isValue() {}

func (v Variable) Render() string {
	return "$" + v.Name
}

// ---- Filters ----

// FilterExpr is either a FilterItem or a FilterTree.
type FilterExpr interface {
	Node
	isFilterExpr()
}

// FilterItem compares the currently selected node's field against a value.
type FilterItem struct {
	Key      string
	Value    Value
	Operator CompareOperator
}

func (FilterItem) isFilterExpr() {}

func (f FilterItem) Render() string {
	return "." + f.Key + " " + f.Operator.String() + " " + f.Value.Render()
}

// FilterTree combines two filters with AND/OR/IN, or negates one with NOT.
// Every binary branch is fully parenthesized on render.
type FilterTree struct {
	Left     FilterExpr
	Right    FilterExpr
	Operator LogicOperator
}

func (FilterTree) isFilterExpr() {}

func (f FilterTree) Render() string {
	if f.Operator == OpNot {
		return "NOT " + withParens(f.Right.Render())
	}
	return withParens(f.Left.Render()) + " " + f.Operator.String() + " " + withParens(f.Right.Render())
}

// CombineFilters folds two FilterExprs into a FilterTree with the given
// operator. A nil left or right is treated as "no filter yet" and the
// other side is returned unchanged, so callers can fold over a slice
// without special-casing the first element.
func CombineFilters(op LogicOperator, left, right FilterExpr) FilterExpr {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return FilterTree{Left: left, Right: right, Operator: op}
}

// Negate wraps a filter in a unary NOT, per the "negation of CONTAINS
// means no element equals" resolution in DESIGN.md.
func Negate(expr FilterExpr) FilterExpr {
	return FilterTree{Right: expr, Operator: OpNot}
}

// MakeFilter folds an ordered slice of key/value pairs into a
// left-associative AND-tree of FilterItems, in the caller's declared
// order — never a Go map, so there is no ordering ambiguity to document
// away.
func MakeFilter(pairs ...KV) FilterExpr {
	var acc FilterExpr
	for _, pair := range pairs {
		item := FilterItem{Key: pair.Key, Value: pair.Value, Operator: OpEquals}
		acc = CombineFilters(OpAnd, acc, item)
	}
	return acc
}

// ---- Statements ----

// Selector is a (possibly nested) projection clause inside a Select.
type Selector struct {
	Key           string
	Subselections []Selector
}

func (s Selector) Render() string {
	if len(s.Subselections) == 0 {
		return s.Key
	}
	parts := make([]string, len(s.Subselections))
	for i, sub := range s.Subselections {
		parts[i] = sub.Render()
	}
	return s.Key + " " + withBraces(strings.Join(parts, ", "))
}

// Select is SELECT name { selections } FILTER ... LIMIT ...
type Select struct {
	Name       string
	Selections []Selector
	Filters    FilterExpr
	Limit      *int
}

func (Select) isValue() {}

func (s Select) Render() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(ProtectedName(s.Name, true))
	if len(s.Selections) > 0 {
		parts := make([]string, len(s.Selections))
		for i, sel := range s.Selections {
			parts[i] = sel.Render()
		}
		b.WriteString(" ")
		b.WriteString(withBraces(strings.Join(parts, ", ")))
	}
	if s.Filters != nil {
		b.WriteString(" FILTER ")
		b.WriteString(s.Filters.Render())
	}
	if s.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*s.Limit))
	}
	return b.String()
}

// AddSelector appends a selector in place.
func (s *Select) AddSelector(sel Selector) {
	s.Selections = append(s.Selections, sel)
}

// SetFilter replaces the current filter in place.
func (s *Select) SetFilter(f FilterExpr) {
	s.Filters = f
}

// SetLimit sets the limit in place.
func (s *Select) SetLimit(n int) {
	s.Limit = &n
}

// Insert is INSERT name { k := v, ... }; the brace block is omitted when
// fields is empty.
type Insert struct {
	Name   string
	Fields []KV
}

func (Insert) isValue() {}

func (i Insert) Render() string {
	var b strings.Builder
	b.WriteString("INSERT ")
	b.WriteString(ProtectedName(i.Name, true))
	if len(i.Fields) > 0 {
		parts := make([]string, len(i.Fields))
		for idx, kv := range i.Fields {
			parts[idx] = ProtectedName(kv.Key, false) + " := " + kv.Value.Render()
		}
		b.WriteString(" ")
		b.WriteString(withBraces(strings.Join(parts, ", ")))
	}
	return b.String()
}

// Update is UPDATE name FILTER ... SET { k := v, ... }.
type Update struct {
	Name    string
	Filters FilterExpr
	Assigns []KV
}

func (u Update) Render() string {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(ProtectedName(u.Name, true))
	if u.Filters != nil {
		b.WriteString(" FILTER ")
		b.WriteString(u.Filters.Render())
	}
	b.WriteString(" SET ")
	parts := make([]string, len(u.Assigns))
	for idx, kv := range u.Assigns {
		parts[idx] = ProtectedName(kv.Key, false) + " := " + kv.Value.Render()
	}
	b.WriteString(withBraces(strings.Join(parts, ", ")))
	return b.String()
}
