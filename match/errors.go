package match

import "errors"

var (
	// ErrRegistryRequired is returned when a matcher is constructed without a registry.
	ErrRegistryRequired = errors.New("registry is required")

	// ErrEmbedderRequired is returned when a semantic matcher is constructed without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)
