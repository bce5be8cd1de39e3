package match

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/davidpenaloza/mvp-farmacias-v2/ai"
	"github.com/davidpenaloza/mvp-farmacias-v2/core"
	"github.com/davidpenaloza/mvp-farmacias-v2/registry"
)

const (
	// DefaultSemanticThreshold is the minimum cosine similarity for a semantic match.
	DefaultSemanticThreshold = 0.55

	// DefaultSemanticMargin is the minimum score gap required between the best
	// match and the best match belonging to a different locality. A small gap
	// means the query is ambiguous between two localities and should not
	// resolve semantically.
	DefaultSemanticMargin = 0.05

	// defaultEmbedBatchSize bounds the number of texts sent to the embedder
	// in a single request during index construction.
	defaultEmbedBatchSize = 64
)

// semanticEntry pairs a precomputed unit embedding with its locality.
type semanticEntry struct {
	text     string
	vector   []float32
	locality *core.Locality
}

// Semantic ranks localities against a query by embedding cosine similarity.
// All locality names and aliases are embedded once at construction; queries
// only cost a single embedding call.
//
// A Semantic matcher whose index failed to build is degraded rather than
// broken: every Match reports a miss so the resolution pipeline can fall
// through to fuzzy matching and extraction.
type Semantic struct {
	embedder  ai.Embedder
	entries   []semanticEntry
	threshold float64
	margin    float64
	degraded  bool
	logger    *slog.Logger
}

// SemanticOption configures a Semantic matcher.
type SemanticOption func(*semanticConfig)

type semanticConfig struct {
	threshold float64
	margin    float64
	poolSize  int
	batchSize int
	logger    *slog.Logger
}

// WithSemanticThreshold overrides the minimum accepted cosine similarity.
func WithSemanticThreshold(threshold float64) SemanticOption {
	return func(c *semanticConfig) {
		c.threshold = threshold
	}
}

// WithSemanticMargin overrides the required gap to the runner-up locality.
func WithSemanticMargin(margin float64) SemanticOption {
	return func(c *semanticConfig) {
		c.margin = margin
	}
}

// WithSemanticPoolSize sets the worker pool size used to embed the locality
// index at construction time.
func WithSemanticPoolSize(size int) SemanticOption {
	return func(c *semanticConfig) {
		if size > 0 {
			c.poolSize = size
		}
	}
}

// WithSemanticLogger sets a custom logger.
// Default is slog.Default().
func WithSemanticLogger(logger *slog.Logger) SemanticOption {
	return func(c *semanticConfig) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewSemantic creates a semantic matcher and embeds every locality name and
// alias from the registry. Construction is the expensive step; a registry of
// a few hundred entries takes a handful of batched embedding calls.
//
// If the embedding service is unavailable, the matcher is returned in a
// degraded state instead of failing, so callers keep the rest of the
// resolution pipeline.
func NewSemantic(ctx context.Context, reg *registry.Registry, embedder ai.Embedder, opts ...SemanticOption) (*Semantic, error) {
	if reg == nil {
		return nil, ErrRegistryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	cfg := &semanticConfig{
		threshold: DefaultSemanticThreshold,
		margin:    DefaultSemanticMargin,
		poolSize:  poolSize,
		batchSize: defaultEmbedBatchSize,
		logger:    slog.Default().With("component", "semantic-matcher"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Semantic{
		embedder:  embedder,
		threshold: cfg.threshold,
		margin:    cfg.margin,
		logger:    cfg.logger,
	}

	texts, localities := indexTexts(reg)
	vectors, err := embedBatches(ctx, embedder, texts, cfg.poolSize, cfg.batchSize)
	if err != nil {
		s.logger.Warn("failed to build semantic index, matcher degraded", "err", err)
		s.degraded = true
		return s, nil
	}

	s.entries = make([]semanticEntry, 0, len(texts))
	for i, text := range texts {
		if len(vectors[i]) == 0 {
			continue
		}
		s.entries = append(s.entries, semanticEntry{
			text:     text,
			vector:   NormalizeVector(vectors[i]),
			locality: localities[i],
		})
	}

	s.logger.Info("semantic index built", "entries", len(s.entries))
	return s, nil
}

// Degraded reports whether the matcher failed to build its embedding index.
func (s *Semantic) Degraded() bool {
	return s.degraded
}

// Match returns the locality whose name or alias embedding is closest to the
// query, with its cosine similarity. The boolean is false when the matcher is
// degraded, the best score is below the threshold, or the runner-up locality
// is within the ambiguity margin.
//
// Embedding failures at query time are reported as a miss, not an error, so
// the caller's pipeline keeps going.
func (s *Semantic) Match(ctx context.Context, normalizedQuery string) (*core.Locality, float64, bool) {
	if s.degraded || len(s.entries) == 0 || normalizedQuery == "" {
		return nil, 0, false
	}

	vec, err := s.embedder.EmbedText(ctx, normalizedQuery)
	if err != nil {
		s.logger.Warn("query embedding failed", "query", normalizedQuery, "err", err)
		return nil, 0, false
	}
	query := NormalizeVector(vec)

	var best *semanticEntry
	var bestScore float64
	var runnerUp float64 // best score among localities other than the leader

	for i := range s.entries {
		entry := &s.entries[i]
		score := float64(dotProduct(query, entry.vector))

		switch {
		case best == nil:
			best = entry
			bestScore = score
		case entry.locality == best.locality:
			if score > bestScore {
				bestScore = score
			}
		case score > bestScore:
			runnerUp = bestScore
			best = entry
			bestScore = score
		case score > runnerUp:
			runnerUp = score
		}
	}

	if best == nil || bestScore < s.threshold {
		return nil, 0, false
	}
	if runnerUp > 0 && bestScore-runnerUp < s.margin {
		s.logger.Debug("semantic match ambiguous",
			"query", normalizedQuery,
			"best", best.locality.Key,
			"score", bestScore,
			"runnerUp", runnerUp)
		return nil, 0, false
	}

	s.logger.Debug("semantic match",
		"query", normalizedQuery,
		"key", best.locality.Key,
		"score", bestScore)
	return best.locality, bestScore, true
}

// indexTexts collects every normalized display name and alias from the
// registry, parallel to the locality each resolves to.
func indexTexts(reg *registry.Registry) ([]string, []*core.Locality) {
	var texts []string
	var localities []*core.Locality

	for _, loc := range reg.All() {
		texts = append(texts, loc.Key)
		localities = append(localities, loc)
		for _, alias := range loc.Aliases {
			aliasKey := core.Normalize(alias)
			if aliasKey == "" || aliasKey == loc.Key {
				continue
			}
			texts = append(texts, aliasKey)
			localities = append(localities, loc)
		}
	}

	return texts, localities
}

// embedBatches embeds texts in fixed-size batches using a worker pool.
// The returned slice is parallel to texts. The first batch error wins.
func embedBatches(ctx context.Context, embedder ai.Embedder, texts []string, poolSize, batchSize int) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors, nil
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		start, end := start, end
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			batch, err := embedder.EmbedTexts(ctx, texts[start:end])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			for i, vec := range batch {
				vectors[start+i] = vec
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}
