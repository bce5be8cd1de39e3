package match

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidpenaloza/mvp-farmacias-v2/ai/mock"
	"github.com/davidpenaloza/mvp-farmacias-v2/registry"
)

const semanticTestRegistry = `{
	"localities": [
		{"display_name": "Providencia", "region": "Región Metropolitana"},
		{"display_name": "Las Condes", "region": "Región Metropolitana", "aliases": ["Condes"]},
		{"display_name": "Ñuñoa", "region": "Región Metropolitana"}
	]
}`

// axisEmbedder maps each known text onto its own axis so cosine scores in
// tests are exactly the vector components chosen per query.
func axisEmbedder(queryVec map[string][]float32) *mock.MockEmbedder {
	axes := map[string][]float32{
		"providencia": {1, 0, 0},
		"las condes":  {0, 1, 0},
		"condes":      {0, 1, 0},
		"nunoa":       {0, 0, 1},
	}

	m := mock.NewMockEmbedder()
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = axes[text]
		}
		return out, nil
	}
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if vec, ok := queryVec[text]; ok {
			return vec, nil
		}
		return []float32{0, 0, 0}, nil
	}
	return m
}

func semanticTestReg(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.LoadFrom(strings.NewReader(semanticTestRegistry))
	require.NoError(t, err)
	return reg
}

func TestNewSemantic(t *testing.T) {
	ctx := context.Background()

	t.Run("requires registry", func(t *testing.T) {
		_, err := NewSemantic(ctx, nil, mock.NewMockEmbedder())
		assert.ErrorIs(t, err, ErrRegistryRequired)
	})

	t.Run("requires embedder", func(t *testing.T) {
		_, err := NewSemantic(ctx, semanticTestReg(t), nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("indexes names and aliases", func(t *testing.T) {
		s, err := NewSemantic(ctx, semanticTestReg(t), axisEmbedder(nil))
		require.NoError(t, err)

		assert.False(t, s.Degraded())
		// 3 names + 1 alias
		assert.Len(t, s.entries, 4)
	})

	t.Run("embed failure degrades instead of failing", func(t *testing.T) {
		m := mock.NewMockEmbedder()
		m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("service down")
		}

		s, err := NewSemantic(ctx, semanticTestReg(t), m)
		require.NoError(t, err)
		assert.True(t, s.Degraded())

		_, _, ok := s.Match(ctx, "providencia")
		assert.False(t, ok)
	})
}

func TestSemanticMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("clear winner matches", func(t *testing.T) {
		emb := axisEmbedder(map[string][]float32{
			"provi": {0.9, 0.2, 0},
		})
		s, err := NewSemantic(ctx, semanticTestReg(t), emb)
		require.NoError(t, err)

		loc, score, ok := s.Match(ctx, "provi")
		require.True(t, ok)
		assert.Equal(t, "providencia", loc.Key)
		assert.Greater(t, score, DefaultSemanticThreshold)
	})

	t.Run("below threshold misses", func(t *testing.T) {
		emb := axisEmbedder(map[string][]float32{
			"algo": {0.3, 0.2, 0.1},
		})
		s, err := NewSemantic(ctx, semanticTestReg(t), emb)
		require.NoError(t, err)

		_, _, ok := s.Match(ctx, "algo")
		assert.False(t, ok)
	})

	t.Run("ambiguous runner-up misses", func(t *testing.T) {
		// Both providencia and las condes score high with a tiny gap.
		emb := axisEmbedder(map[string][]float32{
			"cerca": {0.71, 0.70, 0},
		})
		s, err := NewSemantic(ctx, semanticTestReg(t), emb)
		require.NoError(t, err)

		_, _, ok := s.Match(ctx, "cerca")
		assert.False(t, ok)
	})

	t.Run("alias and name of same locality are not ambiguous", func(t *testing.T) {
		// "condes" alias and "las condes" share an axis so both rank at the
		// top. They belong to the same locality, so the margin rule must not
		// reject the match.
		emb := axisEmbedder(map[string][]float32{
			"las condes": {0, 1, 0},
		})
		s, err := NewSemantic(ctx, semanticTestReg(t), emb)
		require.NoError(t, err)

		loc, _, ok := s.Match(ctx, "las condes")
		require.True(t, ok)
		assert.Equal(t, "las condes", loc.Key)
	})

	t.Run("query embed error misses", func(t *testing.T) {
		emb := axisEmbedder(nil)
		s, err := NewSemantic(ctx, semanticTestReg(t), emb)
		require.NoError(t, err)

		emb.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("service down")
		}

		_, _, ok := s.Match(ctx, "providencia")
		assert.False(t, ok)
	})

	t.Run("empty query misses", func(t *testing.T) {
		s, err := NewSemantic(ctx, semanticTestReg(t), axisEmbedder(nil))
		require.NoError(t, err)

		_, _, ok := s.Match(ctx, "")
		assert.False(t, ok)
	})
}

func TestNormalizeVector(t *testing.T) {
	t.Run("unit length", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("zero vector stays zero", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})
}

func TestDotProduct(t *testing.T) {
	assert.InDelta(t, 1.0, dotProduct([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.0, dotProduct([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 0.0, dotProduct([]float32{1}, []float32{1, 0}), 1e-6) // length mismatch
}
