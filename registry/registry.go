package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
)

//go:embed data/comunas.json
var comunasJSON []byte

// sourceEntry mirrors one locality row in the static JSON source.
type sourceEntry struct {
	DisplayName string   `json:"display_name"`
	Region      string   `json:"region"`
	Aliases     []string `json:"aliases"`
}

type sourceFile struct {
	Localities []sourceEntry `json:"localities"`
}

// Registry is the canonical mapping from normalized locality keys to
// localities. It is loaded once at process start and is read-only afterwards,
// so it is safe for concurrent use without locking.
type Registry struct {
	byKey  map[string]*core.Locality
	all    []*core.Locality
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// Load builds the registry from the embedded comuna dataset.
// A load failure is fatal for the process: callers must not serve requests
// without a registry.
func Load(opts ...Option) (*Registry, error) {
	return LoadFrom(bytes.NewReader(comunasJSON), opts...)
}

// LoadFrom builds the registry from an arbitrary JSON source. It fails on
// malformed JSON, an empty locality list, invalid entries, and duplicate
// normalized keys.
func LoadFrom(src io.Reader, opts ...Option) (*Registry, error) {
	r := &Registry{
		byKey:  make(map[string]*core.Locality),
		logger: slog.Default().With("component", "registry"),
	}
	for _, opt := range opts {
		opt(r)
	}

	var file sourceFile
	dec := json.NewDecoder(src)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}

	if len(file.Localities) == 0 {
		return nil, ErrEmptySource
	}

	for _, entry := range file.Localities {
		loc := &core.Locality{
			Key:         core.Normalize(entry.DisplayName),
			DisplayName: entry.DisplayName,
			Region:      entry.Region,
			Aliases:     entry.Aliases,
		}
		if err := core.ValidateLocality(loc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
		}

		if _, exists := r.byKey[loc.Key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, loc.Key)
		}
		r.byKey[loc.Key] = loc
		r.all = append(r.all, loc)

		// Aliases share the canonical entry; an alias colliding with a
		// canonical key of another locality is a source defect.
		for _, alias := range entry.Aliases {
			aliasKey := core.Normalize(alias)
			if aliasKey == "" || aliasKey == loc.Key {
				continue
			}
			if existing, exists := r.byKey[aliasKey]; exists && existing != loc {
				return nil, fmt.Errorf("%w: alias %q", ErrDuplicateKey, aliasKey)
			}
			r.byKey[aliasKey] = loc
		}
	}

	r.logger.Info("registry loaded", "localities", len(r.all), "keys", len(r.byKey))
	return r, nil
}

// Lookup returns the locality for a normalized key. The key must already be
// in normalized form; Lookup does not normalize.
func (r *Registry) Lookup(normalizedKey string) (*core.Locality, bool) {
	loc, ok := r.byKey[normalizedKey]
	return loc, ok
}

// All returns every canonical locality, in source order. Callers must treat
// the returned slice and its entries as read-only.
func (r *Registry) All() []*core.Locality {
	return r.all
}

// Len returns the number of canonical localities.
func (r *Registry) Len() int {
	return len(r.all)
}
