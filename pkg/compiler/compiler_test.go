package compiler

import (
	"strings"
	"testing"

	"github.com/reizio/reiz/pkg/reizql"
)

func mustParse(t *testing.T, query string) *reizql.Match {
	t.Helper()
	m, err := reizql.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse %q: %v", query, err)
	}
	return m
}

func TestCompileSimpleAtomFilter(t *testing.T) {
	m := mustParse(t, `Name(id="x")`)
	sel, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sel.Render()
	want := `SELECT reiz::Name FILTER .id = "x"`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	m := mustParse(t, `Call(func=Name(id="foo") | Attribute(attr="bar"))`)
	a, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Render() != b.Render() {
		t.Fatalf("compile is not deterministic: %q vs %q", a.Render(), b.Render())
	}
}

func TestCompileNestedMatchScalarUsesEquals(t *testing.T) {
	m := mustParse(t, `Return(value=Name(id="x"))`)
	sel, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sel.Render()
	if !strings.Contains(got, ".value = SELECT reiz::Name") {
		t.Fatalf("expected scalar EQ comparison, got %q", got)
	}
}

func TestCompileNestedMatchCollectionUsesContains(t *testing.T) {
	m := mustParse(t, `FunctionDef(body=Return())`)
	sel, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sel.Render()
	if !strings.Contains(got, ".body in SELECT reiz::Return") {
		t.Fatalf("expected CONTAINS comparison, got %q", got)
	}
}

func TestCompileOrProducesParenthesizedTree(t *testing.T) {
	m := mustParse(t, `Name(id="a" | "b")`)
	sel, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sel.Render()
	want := `SELECT reiz::Name FILTER (.id = "a") OR (.id = "b")`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCompileNegationWrapsUnaryNot(t *testing.T) {
	m := mustParse(t, `Name(id=!"x")`)
	sel, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sel.Render()
	want := `SELECT reiz::Name FILTER NOT (.id = "x")`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCompileNegatedContainsReadsAsNoElementEquals(t *testing.T) {
	m := mustParse(t, `FunctionDef(body=!Return())`)
	sel, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sel.Render()
	if !strings.Contains(got, "NOT (.body in SELECT reiz::Return)") {
		t.Fatalf("expected unary NOT around CONTAINS, got %q", got)
	}
}

func TestCompileWildcardContributesNoConstraint(t *testing.T) {
	m := mustParse(t, `Return(value=*)`)
	sel, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Filters != nil {
		t.Fatalf("expected wildcard to contribute no filter, got %v", sel.Filters)
	}
}

func TestCompileEnumLowersToCast(t *testing.T) {
	m := mustParse(t, `Name(ctx=Load)`)
	sel, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sel.Render()
	want := `SELECT reiz::Name FILTER .ctx = <reiz::ExprContext>"Load"`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCompileHomogeneousAtomListRendersSet(t *testing.T) {
	m := mustParse(t, `Import(names=["a", "b"])`)
	sel, err := Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sel.Render()
	want := `SELECT reiz::Import FILTER .names = {"a", "b"}`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
