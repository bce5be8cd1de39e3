package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c, err := New(client)
	require.NoError(t, err)
	return c, mr
}

func sampleMatch() *core.MatchResult {
	return &core.MatchResult{
		Locality: &core.Locality{
			Key:         "providencia",
			DisplayName: "Providencia",
			Region:      "Región Metropolitana",
		},
		Confidence: 1.0,
		Method:     core.MethodExact,
		RawQuery:   "Providencia",
	}
}

func sampleResults() *core.SearchResultSet {
	return &core.SearchResultSet{
		Locality: &core.Locality{
			Key:         "providencia",
			DisplayName: "Providencia",
		},
		Filters: core.FilterSignature{OnlyTurno: true},
		Records: []*core.Pharmacy{
			{LocalID: "123", Name: "Farmacia Central", Comuna: "PROVIDENCIA", EsTurno: true},
		},
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestNew(t *testing.T) {
	t.Run("requires client", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrClientRequired)
	})

	t.Run("custom prefix", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })

		c, err := New(client, WithPrefix("other:"))
		require.NoError(t, err)

		require.NoError(t, c.PutMatch(context.Background(), "q", sampleMatch(), High))
		keys := mr.Keys()
		require.Len(t, keys, 1)
		assert.Contains(t, keys[0], "other:match:")
	})
}

func TestMatchRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := testCache(t)

	t.Run("miss before put", func(t *testing.T) {
		_, ok := c.GetMatch(ctx, "Providencia")
		assert.False(t, ok)
	})

	t.Run("hit after put", func(t *testing.T) {
		require.NoError(t, c.PutMatch(ctx, "Providencia", sampleMatch(), High))

		got, ok := c.GetMatch(ctx, "Providencia")
		require.True(t, ok)
		assert.Equal(t, "providencia", got.Locality.Key)
		assert.Equal(t, core.MethodExact, got.Method)
		assert.Equal(t, 1.0, got.Confidence)
	})

	t.Run("key is normalization-insensitive", func(t *testing.T) {
		require.NoError(t, c.PutMatch(ctx, "Providencia", sampleMatch(), High))

		got, ok := c.GetMatch(ctx, "  PROVIDENCIA!!  ")
		require.True(t, ok)
		assert.Equal(t, "providencia", got.Locality.Key)
	})

	t.Run("negative result round trips", func(t *testing.T) {
		miss := &core.MatchResult{Method: core.MethodNone, RawQuery: "narnia"}
		require.NoError(t, c.PutMatch(ctx, "narnia", miss, Critical))

		got, ok := c.GetMatch(ctx, "narnia")
		require.True(t, ok)
		assert.Nil(t, got.Locality)
		assert.False(t, got.Matched())
	})

	t.Run("nil result rejected", func(t *testing.T) {
		assert.ErrorIs(t, c.PutMatch(ctx, "q", nil, High), ErrNilResult)
	})
}

func TestResultsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := testCache(t)

	set := sampleResults()
	require.NoError(t, c.PutResults(ctx, set, Critical))

	t.Run("hit with same filters", func(t *testing.T) {
		got, ok := c.GetResults(ctx, "providencia", core.FilterSignature{OnlyTurno: true})
		require.True(t, ok)
		require.Len(t, got.Records, 1)
		assert.Equal(t, "Farmacia Central", got.Records[0].Name)
		assert.True(t, got.Filters.OnlyTurno)
	})

	t.Run("different filters are a different entry", func(t *testing.T) {
		_, ok := c.GetResults(ctx, "providencia", core.FilterSignature{})
		assert.False(t, ok)
	})

	t.Run("nil set rejected", func(t *testing.T) {
		assert.ErrorIs(t, c.PutResults(ctx, nil, High), ErrNilResult)
	})
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := testCache(t)

	require.NoError(t, c.PutMatch(ctx, "q", sampleMatch(), Critical))

	_, ok := c.GetMatch(ctx, "q")
	require.True(t, ok)

	mr.FastForward(Critical.Duration() + time.Second)

	_, ok = c.GetMatch(ctx, "q")
	assert.False(t, ok)
}

func TestTTLClassDurations(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Critical.Duration())
	assert.Equal(t, 30*time.Minute, High.Duration())
	assert.Equal(t, 6*time.Hour, Medium.Duration())
	assert.Equal(t, 24*time.Hour, Low.Duration())
	assert.Equal(t, Critical.Duration(), TTLClass(99).Duration())

	assert.Equal(t, "critical", Critical.String())
	assert.Equal(t, "unknown", TTLClass(99).String())
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := testCache(t)

	require.NoError(t, c.PutMatch(ctx, "a", sampleMatch(), High))
	require.NoError(t, c.PutMatch(ctx, "b", sampleMatch(), High))
	require.NoError(t, c.PutResults(ctx, sampleResults(), High))

	t.Run("pattern removes only matching keys", func(t *testing.T) {
		deleted, err := c.InvalidatePattern(ctx, "results:*")
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, ok := c.GetMatch(ctx, "a")
		assert.True(t, ok)
	})

	t.Run("all removes everything under the prefix", func(t *testing.T) {
		require.NoError(t, mr.Set("unrelated", "survives"))

		deleted, err := c.InvalidateAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		_, ok := c.GetMatch(ctx, "a")
		assert.False(t, ok)
		assert.True(t, mr.Exists("unrelated"))
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	c, _ := testCache(t)

	_, _ = c.GetMatch(ctx, "missing") // miss
	require.NoError(t, c.PutMatch(ctx, "q", sampleMatch(), High))
	_, ok := c.GetMatch(ctx, "q") // hit
	require.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestReadErrorDegradesToMiss(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c, err := New(client)
	require.NoError(t, err)

	require.NoError(t, c.PutMatch(ctx, "q", sampleMatch(), High))
	mr.Close()

	_, ok := c.GetMatch(ctx, "q")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}
