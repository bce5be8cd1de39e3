package search

import "errors"

var (
	// ErrRepositoryRequired is returned when an Executor is constructed without a repository.
	ErrRepositoryRequired = errors.New("pharmacy repository is required")

	// ErrLocalityRequired is returned when Search is called with a nil locality.
	ErrLocalityRequired = errors.New("locality is required")
)
