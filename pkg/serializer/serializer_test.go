package serializer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/reizio/reiz/internal/store"
	"github.com/reizio/reiz/pkg/gqa"
	"github.com/reizio/reiz/pkg/pyast"
	"github.com/reizio/reiz/pkg/serializer"
)

// testConn adapts *store.FakeConnection to serializer.Connection: the
// serializer package declares its own narrow Connection/Row interfaces
// rather than importing internal/store, so a thin wrapper is needed even
// though the method shapes are identical.
type testConn struct{ fc *store.FakeConnection }

func (t testConn) QueryOne(ctx context.Context, text string, vars map[string]any) (serializer.Row, error) {
	return t.fc.QueryOne(ctx, text, vars)
}

func TestInsertLeafNodeHasNoChildren(t *testing.T) {
	fc := store.NewFakeConnection()
	conn := testConn{fc}
	state := serializer.NewQLState(nil)

	name := &pyast.Name{ID: "x", Ctx: pyast.Load}
	id, err := serializer.Insert(context.Background(), conn, state, name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() == "" {
		t.Fatalf("expected a non-empty id")
	}
	if len(fc.Calls) != 1 {
		t.Fatalf("expected exactly one insert call for a leaf node, got %d", len(fc.Calls))
	}
}

func TestInsertHonorsQLStateFieldOverride(t *testing.T) {
	fc := store.NewFakeConnection()
	conn := testConn{fc}
	override := gqa.Literal{Value: "injected-project"}
	state := serializer.NewQLState(map[string]gqa.Value{"project": override})

	module := &pyast.Module{Filename: "a.py"}
	_, err := serializer.Insert(context.Background(), conn, state, module)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fc.Calls) != 1 {
		t.Fatalf("expected exactly one insert call, got %d", len(fc.Calls))
	}
	if !strings.Contains(fc.Calls[0], `project := "injected-project"`) {
		t.Fatalf("expected the override in the insert, got %q", fc.Calls[0])
	}
}

func TestInsertAndSelectAppendsReferencePool(t *testing.T) {
	fc := store.NewFakeConnection()
	conn := testConn{fc}
	state := serializer.NewQLState(nil)

	name := &pyast.Name{ID: "x", Ctx: pyast.Load}
	sel, id, err := serializer.InsertAndSelect(context.Background(), conn, state, name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Name != "expr" {
		t.Fatalf("expected select over abstract base expr, got %q", sel.Name)
	}
	if len(state.ReferencePool) != 1 || state.ReferencePool[0] != id {
		t.Fatalf("expected reference pool to contain the new id, got %v", state.ReferencePool)
	}
}

func TestInsertTreeRecursesAndPopulatesReferencePool(t *testing.T) {
	fc := store.NewFakeConnection()
	conn := testConn{fc}
	state := serializer.NewQLState(nil)

	fn := &pyast.FunctionDef{
		Name: "f",
		Body: []pyast.Stmt{
			&pyast.Return{Value: &pyast.Name{ID: "x", Ctx: pyast.Load}},
		},
	}
	_, err := serializer.Insert(context.Background(), conn, state, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// FunctionDef itself isn't in the pool (Insert, not InsertAndSelect,
	// was called on it directly) but its Return/Name descendants are.
	if len(state.ReferencePool) != 2 {
		t.Fatalf("expected 2 pooled ids (Return, Name), got %d: %v", len(state.ReferencePool), state.ReferencePool)
	}
}

func TestSerializeNilProducesSentinel(t *testing.T) {
	fc := store.NewFakeConnection()
	conn := testConn{fc}
	state := serializer.NewQLState(nil)

	v, err := serializer.Serialize(context.Background(), conn, state, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil {
		t.Fatalf("expected a non-nil GQA value wrapping Sentinel")
	}
}

func TestSerializeHomogeneousAtomListRendersSet(t *testing.T) {
	fc := store.NewFakeConnection()
	conn := testConn{fc}
	state := serializer.NewQLState(nil)

	imp := &pyast.Import{Names: []string{"a", "b"}}
	_, err := serializer.Insert(context.Background(), conn, state, imp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
