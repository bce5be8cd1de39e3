package farmacias

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/davidpenaloza/mvp-farmacias-v2/ai"
	"github.com/davidpenaloza/mvp-farmacias-v2/ai/openai"
	"github.com/davidpenaloza/mvp-farmacias-v2/cache"
	"github.com/davidpenaloza/mvp-farmacias-v2/core"
	"github.com/davidpenaloza/mvp-farmacias-v2/ingestion"
	"github.com/davidpenaloza/mvp-farmacias-v2/match"
	"github.com/davidpenaloza/mvp-farmacias-v2/registry"
	"github.com/davidpenaloza/mvp-farmacias-v2/resolve"
	"github.com/davidpenaloza/mvp-farmacias-v2/search"
	"github.com/davidpenaloza/mvp-farmacias-v2/storage"
	badgerstore "github.com/davidpenaloza/mvp-farmacias-v2/storage/badger"
)

// SmartSearchMinConfidence is the resolution confidence below which
// SmartSearch refuses to guess and reports the query as unresolved.
const SmartSearchMinConfidence = 0.7

// Finder wires the full stack together: comuna registry, matchers,
// resolver, pharmacy store, search executor, and the optional Redis result
// cache. It is the one type most callers need.
type Finder struct {
	backend  *badgerstore.Backend
	repo     storage.PharmacyRepository
	provider ai.AIProvider
	registry *registry.Registry
	cache    *cache.Cache
	resolver *resolve.Resolver
	executor *search.Executor
	logger   *slog.Logger
}

// FinderOption configures a Finder.
type FinderOption func(*finderOptions)

type finderOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	redisClient *redis.Client
	checker     search.OpenChecker
	inMemory    bool
}

// WithAIConfig sets the configuration for the default OpenAI-compatible
// provider. Ignored when WithAIProvider is also given.
func WithAIConfig(cfg *ai.Config) FinderOption {
	return func(o *finderOptions) {
		o.aiConfig = cfg
	}
}

// WithAIProvider injects a pre-built AI provider. Used by tests to supply
// mocks and by callers who share a provider across components.
func WithAIProvider(provider ai.AIProvider) FinderOption {
	return func(o *finderOptions) {
		o.provider = provider
	}
}

// WithRedis attaches a Redis client for result caching. Without it the
// Finder runs uncached.
func WithRedis(client *redis.Client) FinderOption {
	return func(o *finderOptions) {
		o.redisClient = client
	}
}

// WithOpenChecker overrides the open-hours collaborator used for open-now
// filtering.
func WithOpenChecker(checker search.OpenChecker) FinderOption {
	return func(o *finderOptions) {
		o.checker = checker
	}
}

// WithInMemory uses an in-memory pharmacy store instead of a directory on
// disk. Intended for tests and ephemeral runs.
func WithInMemory() FinderOption {
	return func(o *finderOptions) {
		o.inMemory = true
	}
}

// NewFinder builds a fully wired Finder. The context bounds startup work,
// which includes embedding the comuna registry for the semantic matcher.
func NewFinder(ctx context.Context, dbPath string, opts ...FinderOption) (*Finder, error) {
	options := &finderOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	reg, err := registry.Load()
	if err != nil {
		return nil, err
	}

	backend, err := badgerstore.OpenBackend(dbPath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repo, err := badgerstore.NewPharmacyRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repo.Close()
			backend.Close()
			return nil, err
		}
	}

	var resultCache *cache.Cache
	if options.redisClient != nil {
		resultCache, err = cache.New(options.redisClient)
		if err != nil {
			provider.Close()
			repo.Close()
			backend.Close()
			return nil, err
		}
	}

	semantic, err := match.NewSemantic(ctx, reg, provider.Embedder())
	if err != nil {
		provider.Close()
		repo.Close()
		backend.Close()
		return nil, err
	}

	fuzzy, err := match.NewFuzzy(reg)
	if err != nil {
		provider.Close()
		repo.Close()
		backend.Close()
		return nil, err
	}

	resolverOpts := []resolve.Option{
		resolve.WithExtractor(provider.LocalityExtractor()),
	}
	if resultCache != nil {
		resolverOpts = append(resolverOpts, resolve.WithCache(resultCache))
	}
	resolver, err := resolve.New(reg, semantic, fuzzy, resolverOpts...)
	if err != nil {
		provider.Close()
		repo.Close()
		backend.Close()
		return nil, err
	}

	executorOpts := []search.Option{}
	if resultCache != nil {
		executorOpts = append(executorOpts, search.WithCache(resultCache))
	}
	if options.checker != nil {
		executorOpts = append(executorOpts, search.WithOpenChecker(options.checker))
	}
	executor, err := search.NewExecutor(repo, executorOpts...)
	if err != nil {
		provider.Close()
		repo.Close()
		backend.Close()
		return nil, err
	}

	return &Finder{
		backend:  backend,
		repo:     repo,
		provider: provider,
		registry: reg,
		cache:    resultCache,
		resolver: resolver,
		executor: executor,
		logger:   slog.Default(),
	}, nil
}

// Resolve maps free-form location text to a registry locality.
func (f *Finder) Resolve(ctx context.Context, query string) (*core.MatchResult, error) {
	return f.resolver.Resolve(ctx, query)
}

// ResolveWithMonitor resolves a query while reporting each pipeline stage
// to monitor.
func (f *Finder) ResolveWithMonitor(ctx context.Context, query string, monitor resolve.Monitor) (*core.MatchResult, error) {
	return f.resolver.ResolveWithMonitor(ctx, query, monitor)
}

// Search returns the pharmacies of an already-resolved locality.
func (f *Finder) Search(ctx context.Context, loc *core.Locality, filters core.FilterSignature) (*core.SearchResultSet, error) {
	return f.executor.Search(ctx, loc, filters)
}

// SmartSearch resolves a free-form query and searches in one step. The
// result set is nil when the query does not resolve, or resolves below
// SmartSearchMinConfidence; the match result always reports what happened.
func (f *Finder) SmartSearch(ctx context.Context, query string, filters core.FilterSignature) (*core.MatchResult, *core.SearchResultSet, error) {
	result, err := f.resolver.Resolve(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	if !result.Matched() || result.Confidence < SmartSearchMinConfidence {
		f.logger.Debug("smart search did not resolve confidently",
			"query", query,
			"method", result.Method.String(),
			"confidence", result.Confidence)
		return result, nil, nil
	}

	set, err := f.executor.Search(ctx, result.Locality, filters)
	if err != nil {
		return result, nil, err
	}
	return result, set, nil
}

// NewLoader creates an ingestion loader wired to this Finder's repository
// and cache.
func (f *Finder) NewLoader(opts ...ingestion.Option) (*ingestion.Loader, error) {
	if f.cache != nil {
		opts = append([]ingestion.Option{ingestion.WithInvalidator(f.cache)}, opts...)
	}
	return ingestion.NewLoader(f.repo, opts...)
}

// Registry exposes the comuna registry.
func (f *Finder) Registry() *registry.Registry {
	return f.registry
}

// Repository exposes the pharmacy repository.
func (f *Finder) Repository() storage.PharmacyRepository {
	return f.repo
}

// InvalidateAll flushes the result cache. A Finder without a cache reports
// zero deletions.
func (f *Finder) InvalidateAll(ctx context.Context) (int64, error) {
	if f.cache == nil {
		return 0, nil
	}
	return f.cache.InvalidateAll(ctx)
}

// CacheStats reports cache effectiveness counters. Zero-valued without a
// cache.
func (f *Finder) CacheStats() cache.Stats {
	if f.cache == nil {
		return cache.Stats{}
	}
	return f.cache.Stats()
}

// Close releases every resource the Finder owns.
func (f *Finder) Close() error {
	if err := f.provider.Close(); err != nil {
		f.logger.Error("error closing AI provider", "err", err)
	}

	if err := f.repo.Close(); err != nil {
		f.logger.Error("error closing pharmacy repository", "err", err)
		return err
	}

	if err := f.backend.Close(); err != nil {
		f.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
