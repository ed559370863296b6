// Package serializer is the "serialize" half of the compiler/serializer
// pair: it lowers a concrete pkg/pyast syntax tree into a sequence of GQA
// Inserts that reconstruct the tree as linked database rows, grounded on
// original_source/reiz/serialization/serializer.py's dispatch shape.
package serializer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/reizio/reiz/pkg/gqa"
	"github.com/reizio/reiz/pkg/pyast"
)

// Connection is the narrow slice of internal/store.Connection the
// serializer depends on, declared locally so this package never imports
// internal/store directly (a core package depends only on interfaces it
// defines or pkg/gqa/pkg/pyast, per spec.md §1's "external collaborator"
// boundary).
type Connection interface {
	QueryOne(ctx context.Context, text string, vars map[string]any) (Row, error)
}

// Row is the minimal read surface the serializer needs back from an
// Insert: the new row's id.
type Row interface {
	Get(path string) (any, bool)
}

// QLState is the per-ingestion mutable bag threaded through every
// serialize/insert call: pre-populated fields to inject into the next
// Insert, the current parent (for error messages), and the ordered
// reference pool of every row inserted so far.
type QLState struct {
	Fields        map[string]gqa.Value
	FromParent    pyast.Node
	ReferencePool []uuid.UUID
}

// NewQLState returns a QLState with fields pre-populated, e.g. a project
// back-reference injected before ingesting a file's root Module.
func NewQLState(fields map[string]gqa.Value) *QLState {
	if fields == nil {
		fields = map[string]gqa.Value{}
	}
	return &QLState{Fields: fields}
}

// Serialize lowers an arbitrary field value — an atomic leaf, an
// enumerator, a single child node, a nil (absent) child, or a slice of
// any of those — into the GQA Value its parent Insert assigns. It is the
// single dispatch point every insert() call routes children through,
// mirroring serializer.py's functools.singledispatch registry as a type
// switch, since pkg/pyast is a closed sum (§9 "dispatch by exhaustive
// match, not open registration").
func Serialize(ctx context.Context, conn Connection, state *QLState, v any) (gqa.Value, error) {
	switch val := v.(type) {
	case nil:
		return Serialize(ctx, conn, state, pyast.Sentinel{})

	case string:
		return gqa.Literal{Value: val}, nil

	case bool:
		return gqa.Literal{Value: val}, nil

	case int:
		return gqa.Literal{Value: int64(val)}, nil

	case int64:
		return gqa.Literal{Value: val}, nil

	case pyast.EnumValue:
		return gqa.Cast{
			Type:  gqa.ProtectedName(val.EnumBase(), true),
			Value: gqa.Literal{Value: val.Variant()},
		}, nil

	case []string:
		items := make([]gqa.Value, len(val))
		for i, s := range val {
			items[i] = gqa.Literal{Value: s}
		}
		return gqa.Set{Items: items}, nil

	case []pyast.Node:
		return serializeList(ctx, conn, state, val)

	case pyast.Node:
		sel, _, err := InsertAndSelect(ctx, conn, state, val)
		if err != nil {
			return nil, err
		}
		return sel, nil

	default:
		parent := ""
		if state.FromParent != nil {
			parent = fmt.Sprintf(" flowing from %s", state.FromParent.Kind())
		}
		return nil, fmt.Errorf("serializer: unexpected value %#v%s", v, parent)
	}
}

// serializeList lowers a homogeneous slice of children: a plain Set when
// every element is atomic/enum, a CustomList wrapper otherwise (spec
// §4.3.1's "homogeneity determines Set vs CustomList").
func serializeList(ctx context.Context, conn Connection, state *QLState, nodes []pyast.Node) (gqa.Value, error) {
	items := make([]gqa.Value, 0, len(nodes))
	allLeaf := true
	for _, n := range nodes {
		v, err := Serialize(ctx, conn, state, n)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if !isLeafNode(n) {
			allLeaf = false
		}
	}
	set := gqa.Set{Items: items}
	if allLeaf {
		return set, nil
	}
	return gqa.CustomList{Elements: set}, nil
}

// isLeafNode reports whether n serializes to an atomic literal or enum
// cast rather than an inserted, referenced row.
func isLeafNode(n pyast.Node) bool {
	switch n.(type) {
	case pyast.EnumValue:
		return true
	default:
		return false
	}
}

// InsertAndSelect inserts node as a new row, appends the row's id to
// state.ReferencePool, and returns a one-row Select
// over node's narrowest abstract base filtered by the new row's id — the
// reference a parent Insert embeds in place of the child itself, since
// parents refer to children through the abstract-base relation.
func InsertAndSelect(ctx context.Context, conn Connection, state *QLState, node pyast.Node) (*gqa.Select, uuid.UUID, error) {
	if enum, ok := node.(pyast.EnumValue); ok {
		_ = enum
		return nil, uuid.Nil, fmt.Errorf("serializer: %s is an enumerator, not an insertable node", node.Kind())
	}

	id, err := Insert(ctx, conn, state, node)
	if err != nil {
		return nil, uuid.Nil, err
	}
	state.ReferencePool = append(state.ReferencePool, id)

	base := pyast.InferBase(node)
	sel := &gqa.Select{
		Name:    base,
		Filters: gqa.MakeFilter(gqa.KV{Key: "id", Value: gqa.Ref{ID: id}}),
		Limit:   intPtr(1),
	}
	return sel, id, nil
}

// Insert builds and executes the Insert for node: every declared field
// (and, for a Located node, every location attribute) is serialized in
// turn, honoring any QLState.Fields override, and absent (nil) values are
// skipped entirely — mirroring "skipping attributes that are absent".
func Insert(ctx context.Context, conn Connection, state *QLState, node pyast.Node) (uuid.UUID, error) {
	prevParent := state.FromParent
	state.FromParent = node
	defer func() { state.FromParent = prevParent }()

	fieldValues := node.Fields()
	if located, ok := node.(pyast.Located); ok {
		fieldValues = append(fieldValues, located.Locations()...)
	}

	kvs := make([]gqa.KV, 0, len(fieldValues))
	for _, fv := range fieldValues {
		// An override always wins, even over an absent computed value —
		// this is how a project back-reference reaches a freshly parsed
		// Module whose Project field was never populated by the parser.
		if override, ok := state.Fields[fv.Name]; ok {
			kvs = append(kvs, gqa.KV{Key: fv.Name, Value: override})
			continue
		}
		if fv.Value == nil {
			continue
		}
		gv, err := Serialize(ctx, conn, state, fv.Value)
		if err != nil {
			return uuid.Nil, err
		}
		kvs = append(kvs, gqa.KV{Key: fv.Name, Value: gv})
	}

	insert := gqa.Insert{Name: node.Kind(), Fields: kvs}
	row, err := conn.QueryOne(ctx, gqa.AsEdgeQL(insert), nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("serializer: insert %s: %w", node.Kind(), err)
	}

	rawID, ok := row.Get("id")
	if !ok {
		return uuid.Nil, fmt.Errorf("serializer: insert %s returned no id", node.Kind())
	}
	id, ok := rawID.(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("serializer: insert %s returned non-uuid id %#v", node.Kind(), rawID)
	}
	return id, nil
}

func intPtr(n int) *int { return &n }
