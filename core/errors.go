package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidLocality indicates a Locality failed validation.
	ErrInvalidLocality = errors.New("invalid locality")

	// ErrInvalidPharmacy indicates a Pharmacy failed validation.
	ErrInvalidPharmacy = errors.New("invalid pharmacy record")

	// ErrEmptyKey indicates the locality Key field is empty.
	ErrEmptyKey = errors.New("locality key cannot be empty")

	// ErrKeyNotNormalized indicates a locality key is not in normalized form.
	ErrKeyNotNormalized = errors.New("locality key must be normalized")

	// ErrEmptyDisplayName indicates the DisplayName field is empty.
	ErrEmptyDisplayName = errors.New("display name cannot be empty")

	// ErrEmptyName indicates the pharmacy Name field is empty.
	ErrEmptyName = errors.New("pharmacy name cannot be empty")

	// ErrEmptyComuna indicates the pharmacy Comuna field is empty.
	ErrEmptyComuna = errors.New("pharmacy comuna cannot be empty")

	// ErrInvalidConfidence indicates a confidence value outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be in [0,1]")
)
