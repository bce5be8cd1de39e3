package registry

import "errors"

var (
	// ErrEmptySource indicates the locality source contained no entries.
	ErrEmptySource = errors.New("registry source is empty")

	// ErrMalformedSource indicates the locality source could not be parsed.
	ErrMalformedSource = errors.New("registry source is malformed")

	// ErrDuplicateKey indicates two entries normalize to the same key.
	ErrDuplicateKey = errors.New("duplicate registry key")
)
