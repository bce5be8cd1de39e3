package resolve

import "errors"

var (
	// ErrRegistryRequired is returned when a Resolver is constructed without a registry.
	ErrRegistryRequired = errors.New("registry is required")

	// ErrSemanticRequired is returned when a Resolver is constructed without a semantic matcher.
	ErrSemanticRequired = errors.New("semantic matcher is required")

	// ErrFuzzyRequired is returned when a Resolver is constructed without a fuzzy matcher.
	ErrFuzzyRequired = errors.New("fuzzy matcher is required")
)
