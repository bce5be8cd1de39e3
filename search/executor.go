package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/davidpenaloza/mvp-farmacias-v2/cache"
	"github.com/davidpenaloza/mvp-farmacias-v2/core"
	"github.com/davidpenaloza/mvp-farmacias-v2/storage"
)

// Executor runs filtered pharmacy searches for resolved localities.
//
// The executor consults the result cache before the repository and caches
// what it finds. Volatile filter combinations (turno or open-now) land in
// the shortest TTL class since their correct answer changes within hours.
type Executor struct {
	repo    storage.PharmacyRepository
	cache   *cache.Cache
	checker OpenChecker
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor) error

// WithCache attaches a result cache. Without one, every search hits the
// repository.
func WithCache(c *cache.Cache) Option {
	return func(e *Executor) error {
		e.cache = c
		return nil
	}
}

// WithOpenChecker overrides the open-hours collaborator.
// Default is NewHoursChecker().
func WithOpenChecker(checker OpenChecker) Option {
	return func(e *Executor) error {
		if checker != nil {
			e.checker = checker
		}
		return nil
	}
}

// WithClock overrides the time source used for open-now filtering.
// Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) error {
		if now != nil {
			e.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExecutor creates a search executor over the given repository.
func NewExecutor(repo storage.PharmacyRepository, opts ...Option) (*Executor, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	e := &Executor{
		repo:    repo,
		checker: NewHoursChecker(),
		now:     time.Now,
		logger:  slog.Default().With("component", "search-executor"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Search returns the pharmacies of a locality matching the filters.
// A locality with no matching pharmacies yields a set with an empty Records
// slice, never an error.
func (e *Executor) Search(ctx context.Context, loc *core.Locality, filters core.FilterSignature) (*core.SearchResultSet, error) {
	if loc == nil {
		return nil, ErrLocalityRequired
	}

	if e.cache != nil {
		if set, ok := e.cache.GetResults(ctx, loc.Key, filters); ok {
			e.logger.Debug("search served from cache", "locality", loc.Key, "filters", filters.String())
			return set, nil
		}
	}

	records, err := e.repo.FindByLocality(ctx, loc.Key, filters.OnlyTurno)
	if err != nil {
		return nil, err
	}

	if filters.OnlyOpen {
		at := e.now()
		open := records[:0]
		for _, p := range records {
			if e.checker.IsOpen(p, at) {
				open = append(open, p)
			}
		}
		records = open
	}

	set := &core.SearchResultSet{
		Locality:    loc,
		Filters:     filters,
		Records:     records,
		GeneratedAt: e.now().UTC(),
	}

	if e.cache != nil {
		class := cache.High
		if filters.OnlyOpen || filters.OnlyTurno {
			class = cache.Critical
		}
		if err := e.cache.PutResults(ctx, set, class); err != nil {
			e.logger.Warn("failed to cache search results", "locality", loc.Key, "err", err)
		}
	}

	e.logger.Debug("search executed",
		"locality", loc.Key,
		"filters", filters.String(),
		"results", len(set.Records))
	return set, nil
}
