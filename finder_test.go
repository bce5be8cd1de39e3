package farmacias

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidpenaloza/mvp-farmacias-v2/ai"
	"github.com/davidpenaloza/mvp-farmacias-v2/ai/mock"
	"github.com/davidpenaloza/mvp-farmacias-v2/core"
)

const finderTestFeed = `[
	{"local_id": "1", "local_nombre": "CRUZ VERDE", "local_direccion": "AV. PROVIDENCIA 1072", "comuna_nombre": "PROVIDENCIA"},
	{"local_id": "2", "local_nombre": "AHUMADA", "local_direccion": "AV. PROVIDENCIA 2000", "comuna_nombre": "PROVIDENCIA"},
	{"local_id": "3", "local_nombre": "SALCOBRAND", "local_direccion": "APOQUINDO 3000", "comuna_nombre": "LAS CONDES"}
]`

// finderProvider builds a mock AI provider whose embedder gives every index
// text its own axis and answers queries with nothing, keeping the semantic
// stage quiet so tests exercise the exact, fuzzy, and extraction stages
// deterministically.
func finderProvider() ai.AIProvider {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			vec := make([]float32, len(texts))
			vec[i] = 1
			out[i] = vec
		}
		return out, nil
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{}, nil
	}
	return mock.NewMockProviderWithServices(embedder, mock.NewMockLocalityExtractor())
}

func testFinder(t *testing.T) *Finder {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f, err := NewFinder(ctx, "",
		WithInMemory(),
		WithAIProvider(finderProvider()),
		WithRedis(client),
	)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	loader, err := f.NewLoader()
	require.NoError(t, err)
	_, err = loader.Load(ctx, strings.NewReader(finderTestFeed), true)
	require.NoError(t, err)

	return f
}

func TestFinderResolve(t *testing.T) {
	ctx := context.Background()
	f := testFinder(t)

	t.Run("exact comuna", func(t *testing.T) {
		result, err := f.Resolve(ctx, "Providencia")
		require.NoError(t, err)
		require.True(t, result.Matched())
		assert.Equal(t, "providencia", result.Locality.Key)
		assert.Equal(t, core.MethodExact, result.Method)
	})

	t.Run("typo resolves through fuzzy", func(t *testing.T) {
		result, err := f.Resolve(ctx, "providencya")
		require.NoError(t, err)
		require.True(t, result.Matched())
		assert.Equal(t, "providencia", result.Locality.Key)
		assert.Equal(t, core.MethodFuzzy, result.Method)
	})

	t.Run("sentence resolves through extraction", func(t *testing.T) {
		result, err := f.Resolve(ctx, "necesito una farmacia en providencia")
		require.NoError(t, err)
		require.True(t, result.Matched())
		assert.Equal(t, "providencia", result.Locality.Key)
		assert.True(t, result.Method.Extracted())
	})
}

func TestFinderSearch(t *testing.T) {
	ctx := context.Background()
	f := testFinder(t)

	result, err := f.Resolve(ctx, "providencia")
	require.NoError(t, err)
	require.True(t, result.Matched())

	set, err := f.Search(ctx, result.Locality, core.FilterSignature{})
	require.NoError(t, err)
	assert.Len(t, set.Records, 2)
}

func TestFinderSmartSearch(t *testing.T) {
	ctx := context.Background()
	f := testFinder(t)

	t.Run("resolves and searches in one step", func(t *testing.T) {
		result, set, err := f.SmartSearch(ctx, "farmacias de turno en providencia", core.FilterSignature{OnlyTurno: true})
		require.NoError(t, err)
		require.True(t, result.Matched())
		require.NotNil(t, set)
		assert.Len(t, set.Records, 2)
	})

	t.Run("unresolved query yields no result set", func(t *testing.T) {
		result, set, err := f.SmartSearch(ctx, "dame remedios baratos", core.FilterSignature{})
		require.NoError(t, err)
		assert.False(t, result.Matched())
		assert.Nil(t, set)
	})
}

func TestFinderCache(t *testing.T) {
	ctx := context.Background()
	f := testFinder(t)

	_, err := f.Resolve(ctx, "providencia")
	require.NoError(t, err)
	_, err = f.Resolve(ctx, "providencia")
	require.NoError(t, err)

	stats := f.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)

	deleted, err := f.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.Greater(t, deleted, int64(0))
}
