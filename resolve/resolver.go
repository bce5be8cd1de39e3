package resolve

import (
	"context"
	"log/slog"
	"time"

	"github.com/davidpenaloza/mvp-farmacias-v2/ai"
	"github.com/davidpenaloza/mvp-farmacias-v2/cache"
	"github.com/davidpenaloza/mvp-farmacias-v2/core"
	"github.com/davidpenaloza/mvp-farmacias-v2/match"
	"github.com/davidpenaloza/mvp-farmacias-v2/registry"
)

const (
	// DefaultExtractionTimeout bounds the LLM extraction stage. Extraction
	// is a last resort and must never make a query hang on a slow model.
	DefaultExtractionTimeout = 2 * time.Second

	// extractedExactConfidence is the confidence assigned when an extracted
	// phrase hits the registry exactly. Below 1.0 because the extraction
	// itself can be wrong even when the lookup is not.
	extractedExactConfidence = 0.95

	// semanticDiscount and fuzzyDiscount scale matcher scores for phrases
	// that went through extraction first, stacking the uncertainty of both
	// steps.
	semanticDiscount = 0.9
	fuzzyDiscount    = 0.85
)

// Resolver turns free-form location text into a registry locality.
//
// Stages run cheapest first: cache, exact registry lookup, semantic
// similarity, fuzzy string match, then LLM extraction with the survivors
// of that rerun through the same lookups at a confidence discount. The
// first stage to produce a candidate wins.
type Resolver struct {
	registry          *registry.Registry
	semantic          *match.Semantic
	fuzzy             *match.Fuzzy
	extractor         ai.LocalityExtractor
	cache             *cache.Cache
	extractionTimeout time.Duration
	logger            *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithExtractor attaches the LLM extraction fallback. Without one, queries
// that fail the string stages resolve to NONE.
func WithExtractor(extractor ai.LocalityExtractor) Option {
	return func(r *Resolver) error {
		r.extractor = extractor
		return nil
	}
}

// WithCache attaches a resolution result cache.
func WithCache(c *cache.Cache) Option {
	return func(r *Resolver) error {
		r.cache = c
		return nil
	}
}

// WithExtractionTimeout overrides the extraction stage deadline.
func WithExtractionTimeout(d time.Duration) Option {
	return func(r *Resolver) error {
		if d > 0 {
			r.extractionTimeout = d
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New creates a resolver over a registry and its matchers.
func New(reg *registry.Registry, semantic *match.Semantic, fuzzy *match.Fuzzy, opts ...Option) (*Resolver, error) {
	if reg == nil {
		return nil, ErrRegistryRequired
	}
	if semantic == nil {
		return nil, ErrSemanticRequired
	}
	if fuzzy == nil {
		return nil, ErrFuzzyRequired
	}

	r := &Resolver{
		registry:          reg,
		semantic:          semantic,
		fuzzy:             fuzzy,
		extractionTimeout: DefaultExtractionTimeout,
		logger:            slog.Default().With("component", "resolver"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Resolve maps a raw query to a locality. A query that cannot be resolved
// returns a result with MethodNone and a nil Locality; errors are reserved
// for context cancellation.
func (r *Resolver) Resolve(ctx context.Context, rawQuery string) (*core.MatchResult, error) {
	return r.ResolveWithMonitor(ctx, rawQuery, nil)
}

// ResolveWithMonitor resolves a query with per-stage monitoring callbacks.
func (r *Resolver) ResolveWithMonitor(ctx context.Context, rawQuery string, monitor Monitor) (*core.MatchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(rawQuery)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.cache != nil {
		if cached, ok := r.cache.GetMatch(ctx, rawQuery); ok {
			r.logger.Debug("resolution served from cache", "query", rawQuery, "method", cached.Method.String())
			monitor.CacheHit(cached)
			monitor.Finish(cached)
			return cached, nil
		}
	}

	result := r.runPipeline(ctx, rawQuery, monitor)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.cache != nil {
		class := cache.High
		if !result.Matched() {
			// Negative results stay on the shortest TTL so a registry fix
			// becomes visible quickly.
			class = cache.Critical
		}
		if err := r.cache.PutMatch(ctx, rawQuery, result, class); err != nil {
			r.logger.Warn("failed to cache resolution", "query", rawQuery, "err", err)
		}
	}

	monitor.Finish(result)
	return result, nil
}

func (r *Resolver) runPipeline(ctx context.Context, rawQuery string, monitor Monitor) *core.MatchResult {
	normalized := core.Normalize(rawQuery)
	if normalized == "" {
		return r.none(rawQuery)
	}

	// 1. Exact registry lookup
	if loc, ok := r.registry.Lookup(normalized); ok {
		return r.matched(rawQuery, loc, 1.0, core.MethodExact, monitor)
	}

	// 2. Semantic similarity
	if loc, score, ok := r.semantic.Match(ctx, normalized); ok {
		return r.matched(rawQuery, loc, score, core.MethodSemantic, monitor)
	}

	// 3. Fuzzy string match
	if loc, score, ok := r.fuzzy.Match(normalized); ok {
		return r.matched(rawQuery, loc, score, core.MethodFuzzy, monitor)
	}

	// 4. LLM extraction, then the same lookups at a discount
	if r.extractor == nil {
		return r.none(rawQuery)
	}

	extractCtx, cancel := context.WithTimeout(ctx, r.extractionTimeout)
	defer cancel()

	extracted, err := r.extractor.ExtractLocality(extractCtx, rawQuery)
	monitor.ExtractionResult(extracted, err)
	if err != nil {
		r.logger.Warn("extraction failed", "query", rawQuery, "err", err)
		return r.none(rawQuery)
	}

	extractedKey := core.Normalize(extracted)
	if extractedKey == "" || extractedKey == normalized {
		// Nothing extracted, or nothing the earlier stages haven't already
		// tried.
		return r.none(rawQuery)
	}

	if loc, ok := r.registry.Lookup(extractedKey); ok {
		return r.matched(rawQuery, loc, extractedExactConfidence, core.MethodExtractedExact, monitor)
	}
	if loc, score, ok := r.semantic.Match(ctx, extractedKey); ok {
		return r.matched(rawQuery, loc, score*semanticDiscount, core.MethodExtractedSemantic, monitor)
	}
	if loc, score, ok := r.fuzzy.Match(extractedKey); ok {
		return r.matched(rawQuery, loc, score*fuzzyDiscount, core.MethodExtractedFuzzy, monitor)
	}

	return r.none(rawQuery)
}

func (r *Resolver) matched(rawQuery string, loc *core.Locality, confidence float64, method core.MatchMethod, monitor Monitor) *core.MatchResult {
	monitor.StageResolved(method, loc, confidence)
	r.logger.Debug("query resolved",
		"query", rawQuery,
		"locality", loc.Key,
		"method", method.String(),
		"confidence", confidence)
	return &core.MatchResult{
		Locality:   loc,
		Confidence: confidence,
		Method:     method,
		RawQuery:   rawQuery,
	}
}

func (r *Resolver) none(rawQuery string) *core.MatchResult {
	r.logger.Debug("query did not resolve", "query", rawQuery)
	return &core.MatchResult{
		Method:   core.MethodNone,
		RawQuery: rawQuery,
	}
}
