package reizql

import "testing"

func TestParseSimpleMatch(t *testing.T) {
	m, err := ParseQuery(`Name(id="x")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "Name" {
		t.Fatalf("got %q want Name", m.Name)
	}
	v, ok := m.Filter("id")
	if !ok {
		t.Fatalf("expected id filter")
	}
	atom, ok := v.(Atom)
	if !ok || atom.Value != "x" {
		t.Fatalf("got %#v want Atom{x}", v)
	}
}

func TestParsePositionalArgumentSugar(t *testing.T) {
	m, err := ParseQuery(`Name("x")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := m.Filter("id")
	if !ok {
		t.Fatalf("expected positional argument to bind to id")
	}
	if atom, ok := v.(Atom); !ok || atom.Value != "x" {
		t.Fatalf("got %#v", v)
	}
}

func TestParseRejectsPositionalWhenNotAllowed(t *testing.T) {
	_, err := ParseQuery(`Call("x")`)
	if err == nil {
		t.Fatalf("expected error")
	}
	serr, ok := err.(*SyntaxError)
	if !ok || serr.Kind != ErrPositionalNotAllowed {
		t.Fatalf("got %#v want PositionalNotAllowed", err)
	}
}

func TestParseUnknownNodeKind(t *testing.T) {
	_, err := ParseQuery(`Bogus(x=1)`)
	if err == nil {
		t.Fatalf("expected error")
	}
	serr, ok := err.(*SyntaxError)
	if !ok || serr.Kind != ErrUnknownNodeKind {
		t.Fatalf("got %#v want UnknownNodeKind", err)
	}
}

func TestParseUnknownField(t *testing.T) {
	_, err := ParseQuery(`Name(bogus="x")`)
	if err == nil {
		t.Fatalf("expected error")
	}
	serr, ok := err.(*SyntaxError)
	if !ok || serr.Kind != ErrUnknownField {
		t.Fatalf("got %#v want UnknownField", err)
	}
}

func TestParseNestedMatch(t *testing.T) {
	m, err := ParseQuery(`Call(func=Name(id="foo"))`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := m.Filter("func")
	if !ok {
		t.Fatalf("expected func filter")
	}
	nested, ok := v.(*Match)
	if !ok || nested.Name != "Name" {
		t.Fatalf("got %#v want nested Name match", v)
	}
}

func TestParseWildcard(t *testing.T) {
	m, err := ParseQuery(`Return(value=*)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := m.Filter("value")
	if _, ok := v.(Wildcard); !ok {
		t.Fatalf("got %#v want Wildcard", v)
	}
}

func TestParseNoneAtom(t *testing.T) {
	m, err := ParseQuery(`Return(value=None)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := m.Filter("value")
	atom, ok := v.(Atom)
	if !ok || atom.Value != nil {
		t.Fatalf("got %#v want Atom{nil}", v)
	}
}

func TestParseEnumVariant(t *testing.T) {
	m, err := ParseQuery(`Name(ctx=Load)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := m.Filter("ctx")
	enum, ok := v.(EnumVal)
	if !ok || enum.Name != "Load" {
		t.Fatalf("got %#v want EnumVal{Load}", v)
	}
}

func TestParseNegation(t *testing.T) {
	m, err := ParseQuery(`Name(id=!"x")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := m.Filter("id")
	neg, ok := v.(Negation)
	if !ok {
		t.Fatalf("got %#v want Negation", v)
	}
	atom, ok := neg.Value.(Atom)
	if !ok || atom.Value != "x" {
		t.Fatalf("got %#v", neg.Value)
	}
}

func TestParseLogicalAndOrPrecedence(t *testing.T) {
	// `&` binds tighter than `|`: a | b & c == a | (b & c)
	m, err := ParseQuery(`Name(id="a" | "b" & "c")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := m.Filter("id")
	outer, ok := v.(Logical)
	if !ok || outer.Op != LogicalOr {
		t.Fatalf("got %#v want outer Or", v)
	}
	left, ok := outer.Left.(Atom)
	if !ok || left.Value != "a" {
		t.Fatalf("got %#v want Atom{a}", outer.Left)
	}
	right, ok := outer.Right.(Logical)
	if !ok || right.Op != LogicalAnd {
		t.Fatalf("got %#v want inner And", outer.Right)
	}
}

func TestParseHomogeneousList(t *testing.T) {
	m, err := ParseQuery(`Import(names=["a", "b"])`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := m.Filter("names")
	list, ok := v.(List)
	if !ok || len(list.Items) != 2 {
		t.Fatalf("got %#v want List of 2 atoms", v)
	}
}

func TestParseHeterogeneousListRejected(t *testing.T) {
	_, err := ParseQuery(`Import(names=["a", Load])`)
	if err == nil {
		t.Fatalf("expected error")
	}
	serr, ok := err.(*SyntaxError)
	if !ok || serr.Kind != ErrHomogeneityViolation {
		t.Fatalf("got %#v want HomogeneityViolation", err)
	}
}

func TestParseArgWithoutAnnotationParsesFine(t *testing.T) {
	// arg()'s annotation requirement is a result-shape decoration concern
	// (pkg/engine), not a parse-time constraint — arg() alone is a
	// perfectly valid pattern tree, just not a selectable root in results
	// mode.
	_, err := ParseQuery(`arg(arg="x")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseArgWithAnnotationAccepted(t *testing.T) {
	_, err := ParseQuery(`arg(annotation=Name(id="int"))`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseSyntaxErrorOnGarbage(t *testing.T) {
	_, err := ParseQuery(`(((`)
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := err.(*SyntaxError); !ok {
		t.Fatalf("got %#v want *SyntaxError", err)
	}
}
