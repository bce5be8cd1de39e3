package match

import (
	"log/slog"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
	"github.com/davidpenaloza/mvp-farmacias-v2/registry"
)

// DefaultFuzzyThreshold is the minimum similarity score for a fuzzy match.
const DefaultFuzzyThreshold = 0.80

// candidate is one comparable string (a normalized display name or alias)
// together with the locality it resolves to.
type candidate struct {
	text     string
	locality *core.Locality
}

// Fuzzy ranks localities against a query by string similarity. It scores
// each candidate with both a Levenshtein ratio and Jaro-Winkler similarity
// and keeps the higher of the two, which tolerates single-character typos
// ("providencya") as well as transposed prefixes.
type Fuzzy struct {
	candidates []candidate
	threshold  float64
	logger     *slog.Logger
}

// FuzzyOption configures a Fuzzy matcher.
type FuzzyOption func(*Fuzzy)

// WithFuzzyThreshold overrides the minimum accepted similarity score.
func WithFuzzyThreshold(threshold float64) FuzzyOption {
	return func(f *Fuzzy) {
		f.threshold = threshold
	}
}

// WithFuzzyLogger sets a custom logger.
// Default is slog.Default().
func WithFuzzyLogger(logger *slog.Logger) FuzzyOption {
	return func(f *Fuzzy) {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
	}
}

// NewFuzzy creates a fuzzy matcher over all localities in the registry.
func NewFuzzy(reg *registry.Registry, opts ...FuzzyOption) (*Fuzzy, error) {
	if reg == nil {
		return nil, ErrRegistryRequired
	}

	f := &Fuzzy{
		threshold: DefaultFuzzyThreshold,
		logger:    slog.Default().With("component", "fuzzy-matcher"),
	}
	for _, opt := range opts {
		opt(f)
	}

	for _, loc := range reg.All() {
		f.candidates = append(f.candidates, candidate{text: loc.Key, locality: loc})
		for _, alias := range loc.Aliases {
			aliasKey := core.Normalize(alias)
			if aliasKey == "" || aliasKey == loc.Key {
				continue
			}
			f.candidates = append(f.candidates, candidate{text: aliasKey, locality: loc})
		}
	}

	return f, nil
}

// Match returns the best-scoring locality for a normalized query, along with
// its similarity score. The boolean is false when no candidate reaches the
// threshold. Ties on score prefer the shorter display name, then the
// lexically smaller key, so repeated calls are deterministic.
func (f *Fuzzy) Match(normalizedQuery string) (*core.Locality, float64, bool) {
	if normalizedQuery == "" {
		return nil, 0, false
	}

	var best *core.Locality
	var bestScore float64

	for _, c := range f.candidates {
		score := similarity(normalizedQuery, c.text)
		if score < f.threshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && preferLocality(c.locality, best)) {
			best = c.locality
			bestScore = score
		}
	}

	if best == nil {
		return nil, 0, false
	}

	f.logger.Debug("fuzzy match",
		"query", normalizedQuery,
		"key", best.Key,
		"score", bestScore)
	return best, bestScore, true
}

// similarity scores two strings in [0,1] as the better of the Levenshtein
// ratio and Jaro-Winkler similarity.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}

	var levRatio float64
	if maxLen > 0 {
		dist := levenshtein.ComputeDistance(a, b)
		levRatio = 1.0 - float64(dist)/float64(maxLen)
	}

	jw := smetrics.JaroWinkler(a, b, 0.7, 4)
	if jw > levRatio {
		return jw
	}
	return levRatio
}

// preferLocality breaks score ties: shorter display names first, then the
// lexically smaller key.
func preferLocality(a, b *core.Locality) bool {
	if a == b {
		return false
	}
	if len(a.DisplayName) != len(b.DisplayName) {
		return len(a.DisplayName) < len(b.DisplayName)
	}
	return a.Key < b.Key
}
