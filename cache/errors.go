package cache

import "errors"

var (
	// ErrClientRequired is returned when a Cache is constructed without a redis client.
	ErrClientRequired = errors.New("redis client is required")

	// ErrNilResult is returned when a nil value is offered for caching.
	ErrNilResult = errors.New("cannot cache nil result")
)
