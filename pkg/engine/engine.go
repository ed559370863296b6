// Package engine is the query engine: the producer-side API spec.md §6
// exposes to the web layer, carrying the result-shape decoration step
// pkg/compiler deliberately leaves out (stats wrapping, location/filename
// selectors, the root-kind constraint checks) and the module ingestion
// protocol spec.md §4.3.2 describes.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/reizio/reiz/internal/pyparse"
	"github.com/reizio/reiz/internal/sourceslice"
	"github.com/reizio/reiz/internal/statscache"
	"github.com/reizio/reiz/internal/store"
	"github.com/reizio/reiz/pkg/compiler"
	"github.com/reizio/reiz/pkg/gqa"
	"github.com/reizio/reiz/pkg/pyast"
	"github.com/reizio/reiz/pkg/reizql"
	"github.com/reizio/reiz/pkg/serializer"
)

var tracer = otel.Tracer("reiz.engine")

// DefaultLimit mirrors original_source/reiz/fetch.py's DEFAULT_LIMIT.
const DefaultLimit = 10

// DefaultStatsKinds mirrors fetch.py's DEFAULT_NODES: the abstract bases
// plus Module round out the default stats summary.
var DefaultStatsKinds = []string{"Module", "AST", "stmt", "expr"}

// APIError is the one typed error this package raises at the HTTP
// boundary, modeled on the teacher's CLIError (internal/core/errorfmt.go):
// a stable Code for callers to switch on, plus a human Message.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func apiErr(code, format string, args ...any) *APIError {
	return &APIError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error codes surfaced to callers, per spec.md §7's taxonomy.
const (
	CodeSyntaxError        = "ReizQLSyntaxError"
	CodeConstraintViolated = "ConstraintViolated"
	CodeUnexpectedRoot     = "UnexpectedRoot"
	CodeExecutionFailed    = "ExecutionFailed"
)

// Result is one row of a non-stats RunQuery response.
type Result struct {
	Source   *string `json:"source"`
	Filename string  `json:"filename"`
}

// Engine bundles the one piece of cross-request shared state this module
// has: the stats memoization cache. Everything else (QLState, compiler
// output) is stack-local per call, per spec.md §5.
type Engine struct {
	Stats *statscache.Cache
}

// New returns an Engine backed by cache. A nil cache is replaced by an
// in-process-only cache with the default capacity and no Redis tier.
func New(cache *statscache.Cache) *Engine {
	if cache == nil {
		cache = statscache.New(nil, 0, 0)
	}
	return &Engine{Stats: cache}
}

// RunQuery implements spec.md §4.3.3 exactly: parse, compile, decorate for
// stats-or-results, render, execute, and (for results) recover each row's
// source slice. It returns either an int64 (stats mode) or []Result.
func (e *Engine) RunQuery(ctx context.Context, conn store.Connection, reizQL string, stats bool, limit int) (any, error) {
	ctx, span := tracer.Start(ctx, "engine.RunQuery")
	defer span.End()
	span.SetAttributes(attribute.Bool("reiz.stats", stats))

	tree, err := reizql.ParseQuery(reizQL)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sel, err := compiler.Compile(tree)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if stats {
		row, err := conn.QueryOne(ctx, gqa.AsEdgeQL(statsWrap(sel)), nil)
		if err != nil {
			span.RecordError(err)
			return nil, apiErr(CodeExecutionFailed, "%v", err)
		}
		v, ok := row.Get("count")
		if !ok {
			return nil, apiErr(CodeExecutionFailed, "count query returned no value")
		}
		return v, nil
	}

	if err := decorateResults(sel, tree); err != nil {
		span.RecordError(err)
		return nil, err
	}
	sel.SetLimit(limit)

	query := gqa.AsEdgeQL(sel)
	rows, err := conn.Query(ctx, query, nil)
	if err != nil {
		span.RecordError(err)
		return nil, apiErr(CodeExecutionFailed, "%v", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, rowToResult(row, tree))
	}
	return results, nil
}

// statsWrap is SELECT count(inner) as a one-field aggregate row, the Go
// shape of fetch.py's EdgeQLSelect(EdgeQLCall("count", [selection])).
func statsWrap(inner *gqa.Select) gqa.Node {
	return countSelect{inner: *inner}
}

// countSelect renders `SELECT count(<inner>)`, giving the result row a
// stable "count" field name to read back regardless of the inner select's
// own name.
type countSelect struct{ inner gqa.Select }

func (c countSelect) Render() string {
	return "SELECT count(" + c.inner.Render() + ")"
}

// decorateResults applies spec.md §4.3.1's "Result-shape decoration" in
// results mode: positional roots get the four location selectors plus a
// nested _module{filename} (routed through annotation{...} for arg, with
// the MatchingConstraintViolated check), Module gets filename, anything
// else is UnexpectedRoot.
func decorateResults(sel *gqa.Select, tree *reizql.Match) error {
	moduleSelector := gqa.Selector{Key: "_module", Subselections: []gqa.Selector{{Key: "filename"}}}

	switch {
	case tree.Positional:
		sel.AddSelector(gqa.Selector{Key: "lineno"})
		sel.AddSelector(gqa.Selector{Key: "col_offset"})
		sel.AddSelector(gqa.Selector{Key: "end_lineno"})
		sel.AddSelector(gqa.Selector{Key: "end_col_offset"})

		if tree.Name == "arg" {
			if _, ok := tree.Filter("annotation"); !ok {
				return &compiler.ConstraintError{
					Kind:    compiler.KindMatchingConstraintViolated,
					Message: "matching arg() without a valid annotation is not possible right now",
				}
			}
			sel.AddSelector(gqa.Selector{Key: "annotation", Subselections: []gqa.Selector{moduleSelector}})
		} else {
			sel.AddSelector(moduleSelector)
		}

	case tree.Name == "Module":
		sel.AddSelector(gqa.Selector{Key: "filename"})

	default:
		return apiErr(CodeUnexpectedRoot, "unexpected root matcher: %s", tree.Name)
	}
	return nil
}

// rowToResult extracts a row's filename and (for positional roots)
// location, then attempts the source-slice fetch; a slice failure
// downgrades to source=nil rather than failing the whole query, per
// spec.md §7.
func rowToResult(row store.Row, tree *reizql.Match) Result {
	var filename string
	var loc sourceslice.Location
	haveLoc := false

	if tree.Positional {
		path := "_module.filename"
		if tree.Name == "arg" {
			path = "annotation._module.filename"
		}
		if v, ok := row.Get(path); ok {
			filename, _ = v.(string)
		}
		loc, haveLoc = extractLocation(row)
	} else if tree.Name == "Module" {
		if v, ok := row.Get("filename"); ok {
			filename, _ = v.(string)
		}
	}

	result := Result{Filename: filename}
	if !haveLoc || filename == "" {
		return result
	}

	src, err := sourceslice.Fetch(filename, loc)
	if err != nil {
		return result // source stays nil
	}
	result.Source = &src
	return result
}

func extractLocation(row store.Row) (sourceslice.Location, bool) {
	var loc sourceslice.Location
	fields := []*int{&loc.Lineno, &loc.ColOffset, &loc.EndLineno, &loc.EndColOffset}
	names := []string{"lineno", "col_offset", "end_lineno", "end_col_offset"}
	for i, name := range names {
		v, ok := row.Get(name)
		if !ok {
			return loc, false
		}
		n, ok := asInt(v)
		if !ok {
			return loc, false
		}
		*fields[i] = n
	}
	return loc, true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

// GetStats wraps each kind in count(SELECT <kind>) and unions them into
// one result, memoized through internal/statscache keyed by the kind
// tuple — the Go shape of fetch.py's lru_cache(8) get_stats, generalized
// per SPEC_FULL.md §12.
func (e *Engine) GetStats(ctx context.Context, conn store.Connection, kinds []string) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "engine.GetStats")
	defer span.End()

	if cached, ok := e.Stats.Get(ctx, kinds); ok {
		return cached, nil
	}

	out := make(map[string]int64, len(kinds))
	for _, kind := range kinds {
		sel := gqa.Select{Name: kind}
		row, err := conn.QueryOne(ctx, gqa.AsEdgeQL(statsWrap(&sel)), nil)
		if err != nil {
			span.RecordError(err)
			return nil, apiErr(CodeExecutionFailed, "counting %s: %v", kind, err)
		}
		v, ok := row.Get("count")
		if !ok {
			return nil, apiErr(CodeExecutionFailed, "count(%s) returned no value", kind)
		}
		n, _ := asInt64(v)
		out[kind] = n
	}

	e.Stats.Put(ctx, kinds, out)
	return out, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// InsertProjectMetadata inserts a Project-equivalent metadata row keyed by
// name and returns the reference IngestFile stamps onto every ingested
// module, restoring original_source/reiz/serialization/serializer.py's
// insert_project_metadata per SPEC_FULL.md §12. This module's schema
// tracks a project only as an opaque back-reference (pyast.Module.Project
// has no declared concrete type), so the metadata row itself is rendered
// as a bare Insert of the "Project" kind with a single "name" field.
func InsertProjectMetadata(ctx context.Context, conn store.Connection, name string) (gqa.Value, error) {
	insert := gqa.Insert{Name: "Project", Fields: []gqa.KV{{Key: "name", Value: gqa.Literal{Value: name}}}}
	row, err := conn.QueryOne(ctx, gqa.AsEdgeQL(insert), nil)
	if err != nil {
		return nil, fmt.Errorf("engine: insert project metadata %q: %w", name, err)
	}
	rawID, ok := row.Get("id")
	if !ok {
		return nil, fmt.Errorf("engine: insert project metadata %q: no id returned", name)
	}
	id, ok := rawID.(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("engine: insert project metadata %q: non-uuid id %#v", name, rawID)
	}
	return gqa.Select{
		Name:    "Project",
		Filters: gqa.MakeFilter(gqa.KV{Key: "id", Value: gqa.Ref{ID: id}}),
		Limit:   limitPtr(1),
	}, nil
}

func limitPtr(n int) *int { return &n }

// IngestFile implements spec.md §4.3.2's module ingestion protocol: parse
// src with internal/pyparse, stamp filename and projectRef, serialize the
// whole tree inside one transaction, then run the post-insert _module
// back-pointer Updates. Every failure is caught and logged rather than
// propagated, mirroring the @guarded decorator around
// reiz/serialization/serializer.py's ingestion entry point.
func (e *Engine) IngestFile(ctx context.Context, conn store.Connection, src io.Reader, filename string, projectRef gqa.Value) (ok bool) {
	ctx, span := tracer.Start(ctx, "engine.IngestFile")
	defer span.End()
	span.SetAttributes(attribute.String("reiz.filename", filename))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("ingest panicked", "filename", filename, "panic", r)
			ok = false
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		slog.Error("ingest failed reading source", "filename", filename, "error", err)
		return false
	}

	module, err := pyparse.Parse(data, filename)
	if err != nil {
		slog.Error("ingest failed parsing source", "filename", filename, "error", err)
		span.RecordError(err)
		return false
	}
	module.Filename = filename

	txErr := conn.Transaction(ctx, func(tx store.Tx) error {
		state := serializer.NewQLState(map[string]gqa.Value{"project": projectRef})
		moduleID, err := serializer.Insert(ctx, txConn{tx}, state, module)
		if err != nil {
			return err
		}

		moduleBase := gqa.Select{
			Name:    "Module",
			Filters: gqa.MakeFilter(gqa.KV{Key: "id", Value: gqa.Ref{ID: moduleID}}),
			Limit:   limitPtr(1),
		}

		for _, kind := range pyast.ModuleAnnotatedKinds() {
			if err := runModuleUpdate(ctx, tx, kind, state.ReferencePool, moduleBase); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		slog.Error("ingest transaction failed", "filename", filename, "error", txErr)
		span.RecordError(txErr)
		return false
	}
	return true
}

// runModuleUpdate emits one UPDATE <kind> FILTER .id IN array_unpack($ids)
// SET { _module := moduleSelect }, per spec.md §4.3.2 step 3.
func runModuleUpdate(ctx context.Context, tx store.Tx, kind string, pool []uuid.UUID, moduleSelect gqa.Select) error {
	if len(pool) == 0 {
		return nil
	}
	update := gqa.Update{
		Name: kind,
		Filters: gqa.FilterItem{
			Key:      "id",
			Value:    gqa.Call{Func: "array_unpack", Args: []gqa.Value{gqa.Variable{Name: "ids"}}},
			Operator: gqa.OpContains,
		},
		Assigns: []gqa.KV{{Key: "_module", Value: moduleSelect}},
	}
	_, err := tx.Query(ctx, gqa.AsEdgeQL(update), map[string]any{"ids": pool})
	return err
}

// txConn adapts a store.Tx to serializer.Connection — the same narrow-
// interface adaptation serializer_test.go needs for *store.FakeConnection,
// required because Go has no covariant interface method returns.
type txConn struct{ tx store.Tx }

func (t txConn) QueryOne(ctx context.Context, text string, vars map[string]any) (serializer.Row, error) {
	return t.tx.QueryOne(ctx, text, vars)
}
