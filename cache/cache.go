package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
)

// DefaultPrefix namespaces every key this cache writes.
const DefaultPrefix = "farmacias:"

// Cache stores resolution and search results in Redis with class-based TTLs.
//
// The cache is strictly an accelerator: every read error, including a broken
// connection, is reported as a miss so callers fall through to the live
// pipeline. Only writes surface errors, and callers are free to ignore them.
type Cache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a point-in-time snapshot of cache effectiveness counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix overrides the key namespace prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// New creates a cache backed by the given redis client.
func New(client *redis.Client, opts ...Option) (*Cache, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	c := &Cache{
		client: client,
		prefix: DefaultPrefix,
		logger: slog.Default().With("component", "cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// matchKey derives the key for a resolution result. Queries that normalize
// to the same string share an entry regardless of accents or casing.
func (c *Cache) matchKey(rawQuery string) string {
	normalized := core.Normalize(rawQuery)
	return fmt.Sprintf("%smatch:%016x", c.prefix, uint64(core.IDFromContent(normalized)))
}

// resultsKey derives the key for a search result set.
func (c *Cache) resultsKey(localityKey string, filters core.FilterSignature) string {
	return c.prefix + "results:" + localityKey + ":" + filters.String()
}

// GetMatch looks up a cached resolution result for a raw query.
// The boolean is false on a miss, an expired entry, or any redis error.
func (c *Cache) GetMatch(ctx context.Context, rawQuery string) (*core.MatchResult, bool) {
	var result core.MatchResult
	if !c.get(ctx, c.matchKey(rawQuery), &result) {
		return nil, false
	}
	return &result, true
}

// PutMatch stores a resolution result under the query's normalized key.
func (c *Cache) PutMatch(ctx context.Context, rawQuery string, result *core.MatchResult, class TTLClass) error {
	if result == nil {
		return ErrNilResult
	}
	return c.put(ctx, c.matchKey(rawQuery), result, class)
}

// GetResults looks up a cached search result set for a locality and filter
// combination. The boolean is false on a miss or any redis error.
func (c *Cache) GetResults(ctx context.Context, localityKey string, filters core.FilterSignature) (*core.SearchResultSet, bool) {
	var set core.SearchResultSet
	if !c.get(ctx, c.resultsKey(localityKey, filters), &set) {
		return nil, false
	}
	return &set, true
}

// PutResults stores a search result set keyed by its locality and filters.
func (c *Cache) PutResults(ctx context.Context, set *core.SearchResultSet, class TTLClass) error {
	if set == nil || set.Locality == nil {
		return ErrNilResult
	}
	return c.put(ctx, c.resultsKey(set.Locality.Key, set.Filters), set, class)
}

// InvalidateAll removes every key under this cache's prefix.
// Returns the number of keys deleted.
func (c *Cache) InvalidateAll(ctx context.Context) (int64, error) {
	return c.InvalidatePattern(ctx, "*")
}

// InvalidatePattern removes keys matching the glob pattern, relative to the
// cache prefix. Uses SCAN rather than KEYS so a large cache does not stall
// the server. Returns the number of keys deleted.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64

	iter := c.client.Scan(ctx, 0, c.prefix+pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			n, err := c.client.Del(ctx, batch...).Result()
			deleted += n
			if err != nil {
				return deleted, err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if len(batch) > 0 {
		n, err := c.client.Del(ctx, batch...).Result()
		deleted += n
		if err != nil {
			return deleted, err
		}
	}

	c.logger.Info("cache invalidated", "pattern", pattern, "deleted", deleted)
	return deleted, nil
}

// Stats returns a snapshot of the hit and miss counters.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, HitRate: rate}
}

func (c *Cache) get(ctx context.Context, key string, target any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed, treating as miss", "key", key, "err", err)
		}
		c.misses.Add(1)
		return false
	}

	if err := json.Unmarshal(data, target); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss", "key", key, "err", err)
		c.misses.Add(1)
		return false
	}

	c.hits.Add(1)
	return true
}

func (c *Cache) put(ctx context.Context, key string, value any, class TTLClass) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, key, data, class.Duration()).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "class", class, "err", err)
		return err
	}

	c.logger.Debug("cache write", "key", key, "class", class, "ttl", class.Duration())
	return nil
}
