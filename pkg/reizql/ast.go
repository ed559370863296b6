// Package reizql is the ReizQL front-end: a tokenizer and parser for the
// pattern DSL users write, producing a typed pattern tree. It validates
// structure (grammar, schema membership, list homogeneity) but never
// queries semantics beyond that — compilation is pkg/compiler's job.
package reizql

import (
	"fmt"

	"github.com/reizio/reiz/pkg/pyast"
)

// MatchValue is any value a Match's filter, or a nested matcher, can
// take: Atom, EnumVal, *Match (a nested ref matcher), List, Logical,
// Negation, or Wildcard.
type MatchValue interface {
	isMatchValue()
}

// MatchFilter is one (key, value) filter pair, kept in an ordered slice —
// never a map — so compilation order always matches the query text.
type MatchFilter struct {
	Key   string
	Value MatchValue
}

// Match is a structural matcher against one node kind.
type Match struct {
	Name       string
	Filters    []MatchFilter
	Positional bool
}

func (*Match) isMatchValue() {}

// Filter looks up a filter by key; ok is false if the key wasn't matched.
func (m *Match) Filter(key string) (MatchValue, bool) {
	for _, f := range m.Filters {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Atom is a string, integer, or the None sentinel (Value == nil).
type Atom struct {
	Value any
}

func (Atom) isMatchValue() {}

// EnumVal names a schema-declared enumerator, e.g. "Load" or "Add".
type EnumVal struct {
	Name string
}

func (EnumVal) isMatchValue() {}

// List is a homogeneous sequence of MatchValues.
type List struct {
	Items []MatchValue
}

func (List) isMatchValue() {}

// LogicalOp is AND or OR, combining two MatchValues.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// Logical combines two values with AND/OR. & binds tighter than |, both
// left-associative.
type Logical struct {
	Op          LogicalOp
	Left, Right MatchValue
}

func (Logical) isMatchValue() {}

// Negation negates a value; ! binds tighter than both & and |.
type Negation struct {
	Value MatchValue
}

func (Negation) isMatchValue() {}

// Wildcard matches any value unconditionally.
type Wildcard struct{}

func (Wildcard) isMatchValue() {}

// ---- Errors ----

// ErrorKind enumerates the front-end's error taxonomy (spec.md §4.2).
type ErrorKind string

const (
	ErrUnexpectedToken            ErrorKind = "UnexpectedToken"
	ErrUnknownNodeKind            ErrorKind = "UnknownNodeKind"
	ErrUnknownField               ErrorKind = "UnknownField"
	ErrHomogeneityViolation       ErrorKind = "HomogeneityViolation"
	ErrPositionalNotAllowed       ErrorKind = "PositionalNotAllowed"
	ErrMatchingConstraintViolated ErrorKind = "MatchingConstraintViolated"
)

// Position is a 1-based line/column into the query text.
type Position struct {
	Line   int
	Column int
}

// SyntaxError is the one error type the front end ever returns.
type SyntaxError struct {
	Kind     ErrorKind
	Message  string
	Position *Position
}

func (e *SyntaxError) Error() string {
	if e.Position != nil {
		return fmt.Sprintf("%s: %s (line %d, column %d)", e.Kind, e.Message, e.Position.Line, e.Position.Column)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newSyntaxErr(kind ErrorKind, pos *Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{Kind: kind, Message: fmt.Sprintf(format, args...), Position: pos}
}

// variantFamily classifies a MatchValue for the homogeneity check: List
// elements must all belong to the same family.
func variantFamily(v MatchValue) string {
	switch v.(type) {
	case Atom:
		return "atom"
	case EnumVal:
		return "enum"
	case *Match:
		return "ref"
	case List:
		return "list"
	case Logical:
		return "logical"
	case Negation:
		return "negation"
	case Wildcard:
		return "wildcard"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// knownKind is a thin indirection over pyast.Resolve kept local to this
// package so the front end's schema dependency is a single call site.
func knownKind(name string) (pyast.KindInfo, bool) {
	return pyast.Resolve(name)
}
