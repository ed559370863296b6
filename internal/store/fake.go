package store

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FakeConnection is an in-memory Connection good enough to round-trip the
// narrow subset of EdgeQL-shaped text that pkg/serializer and
// engine.IngestFile render: INSERT, SELECT ... FILTER .id = <uuid>"...", and
// UPDATE ... FILTER .id IN array_unpack(...) SET { _module := ... }. Other
// query text (engine.RunQuery's filtered SELECTs, engine.GetStats's count
// queries) is not interpreted unless an override below handles it. It
// never talks to a real graph store — tests inject QueryFunc/QueryOneFunc/
// TransactionFunc to override behavior (mirroring the teacher's
// MockLanguageProvider func-field style) when a scenario needs to force a
// failure the in-memory executor itself can't produce.
type FakeConnection struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*fakeRow

	// Overrides, checked before the built-in executor. Any nil field
	// falls through to the default in-memory behavior.
	QueryFunc       func(ctx context.Context, text string, vars map[string]any) ([]Row, error)
	QueryOneFunc    func(ctx context.Context, text string, vars map[string]any) (Row, error)
	TransactionFunc func(ctx context.Context, fn func(Tx) error) error

	// Calls records every rendered query text, in order, for assertions.
	Calls []string
}

// NewFakeConnection returns an empty fake store.
func NewFakeConnection() *FakeConnection {
	return &FakeConnection{rows: make(map[uuid.UUID]*fakeRow)}
}

type fakeRow struct {
	kind   string
	fields map[string]any
}

func (r *fakeRow) Get(path string) (any, bool) {
	segs := strings.Split(path, ".")
	cur := any(r)
	for _, seg := range segs {
		row, ok := cur.(*fakeRow)
		if !ok {
			return nil, false
		}
		v, ok := row.fields[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

var (
	insertRe   = regexp.MustCompile(`^INSERT ([\w:]+)(?: \{(.*)\})?$`)
	selectByID = regexp.MustCompile(`FILTER \.id = <uuid>"([0-9a-fA-F-]+)"`)
	updateRe   = regexp.MustCompile(`^UPDATE ([\w:]+) FILTER .* SET \{_module := (.*)\}$`)
)

// Query executes text and returns every matching row.
func (c *FakeConnection) Query(ctx context.Context, text string, vars map[string]any) ([]Row, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, text)
	c.mu.Unlock()

	if c.QueryFunc != nil {
		return c.QueryFunc(ctx, text, vars)
	}

	if m := updateRe.FindStringSubmatch(text); m != nil {
		return nil, c.applyUpdate(m[2], vars)
	}

	row, err := c.exec(text)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return []Row{row}, nil
}

// QueryOne executes text and returns its single row.
func (c *FakeConnection) QueryOne(ctx context.Context, text string, vars map[string]any) (Row, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, text)
	c.mu.Unlock()

	if c.QueryOneFunc != nil {
		return c.QueryOneFunc(ctx, text, vars)
	}
	return c.exec(text)
}

// Transaction runs fn against c itself — the fake has no rollback
// support, so a failing fn leaves whatever rows were inserted before the
// failure; callers that need atomicity assertions should pass a
// TransactionFunc override that snapshots and restores c.rows.
func (c *FakeConnection) Transaction(ctx context.Context, fn func(Tx) error) error {
	if c.TransactionFunc != nil {
		return c.TransactionFunc(ctx, fn)
	}
	return fn(c)
}

func (c *FakeConnection) exec(text string) (*fakeRow, error) {
	if m := insertRe.FindStringSubmatch(text); m != nil {
		return c.applyInsert(m[1], m[2])
	}
	if m := selectByID.FindStringSubmatch(text); m != nil {
		id, err := uuid.Parse(m[1])
		if err != nil {
			return nil, fmt.Errorf("fakeconn: bad id in select %q: %w", text, err)
		}
		c.mu.Lock()
		row, ok := c.rows[id]
		c.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("fakeconn: no row with id %s", id)
		}
		return row, nil
	}
	return nil, fmt.Errorf("fakeconn: unrecognized query %q", text)
}

func (c *FakeConnection) applyInsert(kind, fieldBlock string) (*fakeRow, error) {
	fields := map[string]any{}
	for _, assign := range splitTopLevel(fieldBlock, ',') {
		assign = strings.TrimSpace(assign)
		if assign == "" {
			continue
		}
		parts := strings.SplitN(assign, ":=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("fakeconn: bad assignment %q", assign)
		}
		key := strings.TrimSpace(parts[0])
		value, err := c.resolveValue(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
		fields[key] = value
	}

	id := newFakeUUID()
	c.mu.Lock()
	c.rows[id] = &fakeRow{kind: strings.TrimPrefix(kind, "reiz::"), fields: fields}
	c.mu.Unlock()
	fields["id"] = id
	return c.rows[id], nil
}

// resolveValue interprets one INSERT field's rendered value: a quoted
// string, a bare int/bool, a nested one-row SELECT referencing an
// already-inserted child, or a {..}/reiz_custom_list(..) sequence of any
// of the above.
func (c *FakeConnection) resolveValue(text string) (any, error) {
	switch {
	case strings.HasPrefix(text, `"`):
		s, err := strconv.Unquote(text)
		return s, err

	case text == "true" || text == "false":
		return text == "true", nil

	case strings.HasPrefix(text, "SELECT "):
		if m := selectByID.FindStringSubmatch(text); m != nil {
			id, err := uuid.Parse(m[1])
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			row := c.rows[id]
			c.mu.Unlock()
			return row, nil
		}
		return nil, fmt.Errorf("fakeconn: unrecognized nested select %q", text)

	case strings.HasPrefix(text, "reiz_custom_list(") && strings.HasSuffix(text, ")"):
		inner := text[len("reiz_custom_list(") : len(text)-1]
		return c.resolveValue(inner)

	case strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}"):
		inner := text[1 : len(text)-1]
		var out []any
		for _, item := range splitTopLevel(inner, ',') {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			v, err := c.resolveValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case strings.HasPrefix(text, "<"):
		// Cast<Type>value — resolve the underlying literal, drop the cast.
		close := strings.Index(text, ">")
		if close < 0 {
			return nil, fmt.Errorf("fakeconn: malformed cast %q", text)
		}
		return c.resolveValue(text[close+1:])

	default:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
		return text, nil
	}
}

func (c *FakeConnection) applyUpdate(assignText string, vars map[string]any) error {
	assignText = strings.TrimSpace(assignText)
	value, err := c.resolveValue(assignText)
	if err != nil {
		return err
	}
	ids, _ := vars["ids"].([]uuid.UUID)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if row, ok := c.rows[id]; ok {
			row.fields["_module"] = value
		}
	}
	return nil
}

// splitTopLevel splits s on sep, ignoring occurrences nested inside
// (), {}, or "" — good enough for the flat grammar this package renders.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inString = !inString
		case '(', '{':
			if !inString {
				depth++
			}
		case ')', '}':
			if !inString {
				depth--
			}
		default:
			if s[i] == sep && depth == 0 && !inString {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

var fakeUUIDCounter struct {
	mu sync.Mutex
	n  uint64
}

// newFakeUUID returns a deterministic, monotonically increasing UUID so
// fake-backed tests never depend on real randomness (which this module's
// no-toolchain-run policy can't verify anyway).
func newFakeUUID() uuid.UUID {
	fakeUUIDCounter.mu.Lock()
	fakeUUIDCounter.n++
	n := fakeUUIDCounter.n
	fakeUUIDCounter.mu.Unlock()

	var id uuid.UUID
	for i := 15; i >= 8 && n > 0; i-- {
		id[i] = byte(n)
		n >>= 8
	}
	return id
}
