// Package statscache memoizes pkg/engine.GetStats results keyed by the
// tuple of node kinds queried, per spec.md §5's "may be memoized with
// bounded capacity... must be safe to drop and recompute". It is the one
// piece of state shared across requests in this module; everything else
// (QLState, compiler/serializer) is stack-local per call.
package statscache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("reiz.statscache")

// Cache memoizes map[string]int64 results keyed by a joined, sorted kind
// tuple. A *redis.Client, when set, backs the cache across processes; an
// in-process LRU (bounded by maxEntries) always backs it as a fallback so
// the cache works even with no Redis configured, and absorbs Redis errors
// without failing the caller's query.
type Cache struct {
	redis      *redis.Client
	ttl        time.Duration
	maxEntries int

	mu    sync.Mutex
	order *list.List
	index map[string]*list.Element
}

type entry struct {
	key   string
	value map[string]int64
}

// New returns a Cache. rdb may be nil, in which case the cache runs
// entirely in-process. maxEntries bounds the in-process LRU; ttl bounds
// how long a Redis-backed entry is trusted.
func New(rdb *redis.Client, maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &Cache{
		redis:      rdb,
		ttl:        ttl,
		maxEntries: maxEntries,
		order:      list.New(),
		index:      make(map[string]*list.Element),
	}
}

func cacheKey(kinds []string) string {
	sorted := append([]string(nil), kinds...)
	// Kind tuples are short and caller-controlled (pkg/pyast.Schema
	// names); a plain insertion sort keeps this dependency-free.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return "reiz:stats:" + strings.Join(sorted, ",")
}

// Get returns the memoized stats for kinds, if present. In-process entries
// do not expire (only LRU eviction drops them); the TTL applies to Redis.
func (c *Cache) Get(ctx context.Context, kinds []string) (map[string]int64, bool) {
	ctx, span := tracer.Start(ctx, "statscache.get")
	defer span.End()
	key := cacheKey(kinds)
	span.SetAttributes(attribute.String("statscache.key", key))

	c.mu.Lock()
	if el, ok := c.index[key]; ok {
		c.order.MoveToFront(el)
		v := el.Value.(*entry).value
		c.mu.Unlock()
		span.SetAttributes(attribute.Bool("statscache.hit", true))
		return v, true
	}
	c.mu.Unlock()

	if c.redis == nil {
		return nil, false
	}
	vals, err := c.redis.HGetAll(ctx, key).Result()
	if err != nil || len(vals) == 0 {
		if err != nil {
			span.RecordError(err)
		}
		return nil, false
	}
	out := make(map[string]int64, len(vals))
	for k, v := range vals {
		var n int64
		for _, r := range v {
			if r < '0' || r > '9' {
				return nil, false
			}
			n = n*10 + int64(r-'0')
		}
		out[k] = n
	}
	c.put(key, out)
	span.SetAttributes(attribute.Bool("statscache.hit", true))
	return out, true
}

// Put memoizes stats for kinds, writing through to Redis when configured.
func (c *Cache) Put(ctx context.Context, kinds []string, stats map[string]int64) {
	ctx, span := tracer.Start(ctx, "statscache.put")
	defer span.End()
	key := cacheKey(kinds)
	c.put(key, stats)

	if c.redis == nil {
		return
	}
	fields := make(map[string]any, len(stats))
	for k, v := range stats {
		fields[k] = v
	}
	pipe := c.redis.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
	}
}

func (c *Cache) put(key string, stats map[string]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		el.Value.(*entry).value = stats
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&entry{key: key, value: stats})
	c.index[key] = el
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*entry).key)
	}
}

// Reset drops every in-process entry, per spec.md §5's "safe to drop and
// rebuild"; it does not touch Redis, which expires entries on its own TTL.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = list.New()
	c.index = make(map[string]*list.Element)
}
