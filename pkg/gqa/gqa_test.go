package gqa

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSelectNoSelections(t *testing.T) {
	sel := Select{Name: "Name"}
	if got := sel.Render(); got != "SELECT reiz::Name" {
		t.Fatalf("got %q", got)
	}
}

func TestSelectWithFilterAndLimit(t *testing.T) {
	sel := Select{Name: "Name"}
	sel.SetFilter(MakeFilter(KV{Key: "id", Value: Literal{Value: "foo"}}))
	sel.SetLimit(10)
	got := sel.Render()
	if !strings.Contains(got, "FILTER .id = \"foo\"") {
		t.Fatalf("missing filter: %q", got)
	}
	if !strings.HasSuffix(got, "LIMIT 10") {
		t.Fatalf("missing limit: %q", got)
	}
	if strings.Index(got, "FILTER") > strings.Index(got, "LIMIT") {
		t.Fatalf("FILTER must precede LIMIT: %q", got)
	}
}

func TestFilterTreeParenthesization(t *testing.T) {
	left := FilterItem{Key: "a", Value: Literal{Value: 1}}
	right := FilterItem{Key: "b", Value: Literal{Value: 2}}
	tree := CombineFilters(OpOr, left, right)
	got := tree.Render()
	want := `(.a = 1) OR (.b = 2)`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestNegateRendersUnaryNot(t *testing.T) {
	item := FilterItem{Key: "tags", Value: Literal{Value: "x"}, Operator: OpContains}
	got := Negate(item).Render()
	want := `NOT (.tags in "x")`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestInsertEmptyFieldsOmitsBraces(t *testing.T) {
	ins := Insert{Name: "Name"}
	if got := ins.Render(); strings.Contains(got, "{") {
		t.Fatalf("expected no brace block, got %q", got)
	}
}

func TestInsertRendersAssignments(t *testing.T) {
	ins := Insert{Name: "Name", Fields: []KV{{Key: "id", Value: Literal{Value: "x"}}}}
	want := `INSERT reiz::Name {id := "x"}`
	if got := ins.Render(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestUpdateOrdersFilterBeforeSet(t *testing.T) {
	upd := Update{
		Name:    "Module",
		Filters: MakeFilter(KV{Key: "id", Value: Literal{Value: "x"}}),
		Assigns: []KV{{Key: "_module", Value: Literal{Value: "y"}}},
	}
	got := upd.Render()
	if strings.Index(got, "FILTER") > strings.Index(got, "SET") {
		t.Fatalf("FILTER must precede SET: %q", got)
	}
}

func TestCastRender(t *testing.T) {
	c := Cast{Type: "reiz::BoolOp", Value: Literal{Value: "And"}}
	want := `<reiz::BoolOp>"And"`
	if got := c.Render(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRefRender(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	got := Ref{ID: id}.Render()
	want := `<uuid>"00000000-0000-0000-0000-000000000001"`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestVariableRender(t *testing.T) {
	if got := (Variable{Name: "ids"}).Render(); got != "$ids" {
		t.Fatalf("got %q", got)
	}
}

func TestProtectedNameEscapesReservedWords(t *testing.T) {
	if got := ProtectedName("filter", false); got != "`filter`" {
		t.Fatalf("got %q", got)
	}
	if got := ProtectedName("name", false); got != "name" {
		t.Fatalf("expected verbatim, got %q", got)
	}
}

func TestProtectedNamePrefixesNodeKinds(t *testing.T) {
	got := ProtectedName("Name", true)
	want := "reiz::Name"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestMakeFilterIsLeftAssociativeInDeclaredOrder(t *testing.T) {
	f := MakeFilter(
		KV{Key: "a", Value: Literal{Value: 1}},
		KV{Key: "b", Value: Literal{Value: 2}},
		KV{Key: "c", Value: Literal{Value: 3}},
	)
	want := `((.a = 1) AND (.b = 2)) AND (.c = 3)`
	if got := f.Render(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRenderingTotalityNeverEmpty(t *testing.T) {
	nodes := []Node{
		Select{Name: "X"},
		Insert{Name: "X"},
		Update{Name: "X", Assigns: []KV{{Key: "a", Value: Literal{Value: 1}}}},
		Literal{Value: 1},
		Cast{Type: "T", Value: Literal{Value: "v"}},
		Call{Func: "count", Args: []Value{Literal{Value: 1}}},
		Variable{Name: "n"},
		Set{Items: []Value{Literal{Value: 1}}},
		CustomList{Elements: Set{Items: []Value{Literal{Value: 1}}}},
	}
	for _, n := range nodes {
		if AsEdgeQL(n) == "" {
			t.Fatalf("non-total rendering for %T", n)
		}
	}
}
