package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a Loader is constructed without a repository.
	ErrRepositoryRequired = errors.New("pharmacy repository is required")

	// ErrMalformedFeed is returned when the upstream payload cannot be decoded.
	ErrMalformedFeed = errors.New("malformed feed payload")

	// ErrEmptyFeed is returned when the upstream payload decodes to zero records.
	// Replacing the dataset with nothing is always a feed problem, not a fact.
	ErrEmptyFeed = errors.New("feed contains no records")

	// ErrFeedUnavailable is returned when the feed endpoint cannot be reached
	// or answers with a non-OK status.
	ErrFeedUnavailable = errors.New("feed endpoint unavailable")
)
