package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reizio/reiz/internal/statscache"
	"github.com/reizio/reiz/internal/store"
	"github.com/reizio/reiz/pkg/compiler"
	"github.com/reizio/reiz/pkg/gqa"
	"github.com/reizio/reiz/pkg/reizql"
)

func mustParse(t *testing.T, q string) *reizql.Match {
	t.Helper()
	m, err := reizql.ParseQuery(q)
	require.NoError(t, err)
	return m
}

func TestDecorateResultsPositionalRootAddsLocationAndModuleSelectors(t *testing.T) {
	tree := mustParse(t, `Name(id="x")`)
	sel, err := compiler.Compile(tree)
	require.NoError(t, err)

	require.NoError(t, decorateResults(sel, tree))

	rendered := sel.Render()
	require.Contains(t, rendered, "lineno")
	require.Contains(t, rendered, "_module")
	require.Contains(t, rendered, "filename")
}

func TestDecorateResultsArgWithoutAnnotationIsConstraintViolated(t *testing.T) {
	tree := mustParse(t, `arg(arg="x")`)
	sel, err := compiler.Compile(tree)
	require.NoError(t, err)

	err = decorateResults(sel, tree)
	require.Error(t, err)
	var cerr *compiler.ConstraintError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, compiler.KindMatchingConstraintViolated, cerr.Kind)
}

func TestDecorateResultsArgWithAnnotationRoutesThroughAnnotation(t *testing.T) {
	tree := mustParse(t, `arg(arg="x", annotation=Name(id="int"))`)
	sel, err := compiler.Compile(tree)
	require.NoError(t, err)

	require.NoError(t, decorateResults(sel, tree))
	rendered := sel.Render()
	require.Contains(t, rendered, "annotation")
	require.True(t, strings.Contains(rendered, "annotation {") || strings.Contains(rendered, "annotation{"))
}

func TestDecorateResultsModuleRootOnlySelectsFilename(t *testing.T) {
	tree := mustParse(t, `Module(filename="a.py")`)
	sel, err := compiler.Compile(tree)
	require.NoError(t, err)

	require.NoError(t, decorateResults(sel, tree))
	require.Equal(t, 1, len(sel.Selections))
	require.Equal(t, "filename", sel.Selections[0].Key)
}

func TestDecorateResultsNonPositionalNonModuleRootIsUnexpectedRoot(t *testing.T) {
	tree := mustParse(t, `stmt()`)
	sel, err := compiler.Compile(tree)
	require.NoError(t, err)

	err = decorateResults(sel, tree)
	require.Error(t, err)
	var aerr *APIError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, CodeUnexpectedRoot, aerr.Code)
}

type fixedRow struct{ fields map[string]any }

func (r fixedRow) Get(path string) (any, bool) {
	v, ok := r.fields[path]
	return v, ok
}

func TestRunQueryStatsModeReturnsCount(t *testing.T) {
	fc := store.NewFakeConnection()
	fc.QueryOneFunc = func(ctx context.Context, text string, vars map[string]any) (store.Row, error) {
		require.Contains(t, text, "SELECT count(")
		return fixedRow{fields: map[string]any{"count": int64(42)}}, nil
	}

	e := New(nil)
	v, err := e.RunQuery(context.Background(), fc, `Name(id="x")`, true, 0)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
}

func TestRunQuerySyntaxErrorPropagates(t *testing.T) {
	fc := store.NewFakeConnection()
	e := New(nil)
	_, err := e.RunQuery(context.Background(), fc, `(((`, false, 10)
	require.Error(t, err)
}

func TestGetStatsMemoizesAcrossCalls(t *testing.T) {
	fc := store.NewFakeConnection()
	calls := 0
	fc.QueryOneFunc = func(ctx context.Context, text string, vars map[string]any) (store.Row, error) {
		calls++
		return fixedRow{fields: map[string]any{"count": int64(7)}}, nil
	}

	e := New(statscache.New(nil, 8, 0))
	kinds := []string{"Module", "stmt"}

	first, err := e.GetStats(context.Background(), fc, kinds)
	require.NoError(t, err)
	require.Equal(t, int64(7), first["Module"])
	require.Equal(t, 2, calls)

	second, err := e.GetStats(context.Background(), fc, kinds)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 2, calls, "second call should hit the cache, not the connection")
}

func TestIngestFileInsertsModuleAndAppliesModuleUpdates(t *testing.T) {
	fc := store.NewFakeConnection()
	e := New(nil)

	src := strings.NewReader("def f():\n    return 1\n")
	projectRef := gqa.Literal{Value: "proj-ref"}

	ok := e.IngestFile(context.Background(), fc, src, "a.py", projectRef)
	require.True(t, ok)

	var sawInsertModule, sawUpdate bool
	for _, call := range fc.Calls {
		if strings.HasPrefix(call, "INSERT reiz::Module") {
			sawInsertModule = true
		}
		if strings.HasPrefix(call, "UPDATE reiz::FunctionDef") {
			sawUpdate = true
		}
	}
	require.True(t, sawInsertModule, "expected a Module insert, calls: %v", fc.Calls)
	require.True(t, sawUpdate, "expected a FunctionDef module-pointer update, calls: %v", fc.Calls)
}

func TestIngestFileReturnsFalseOnParseFailure(t *testing.T) {
	fc := store.NewFakeConnection()
	e := New(nil)

	src := strings.NewReader("def (((: invalid python")
	ok := e.IngestFile(context.Background(), fc, src, "bad.py", gqa.Literal{Value: "p"})
	require.False(t, ok)
}
