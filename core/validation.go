package core

import "fmt"

// ValidateLocality validates a Locality according to domain rules.
//
// Validation rules:
//   - Key must not be empty and must be in normalized form
//   - DisplayName must not be empty
//
// NOT validated:
//   - Region (some source rows genuinely lack it)
//   - Aliases (optional)
func ValidateLocality(loc *Locality) error {
	if loc == nil {
		return fmt.Errorf("%w: locality is nil", ErrInvalidLocality)
	}

	if loc.Key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidLocality, ErrEmptyKey)
	}

	if loc.Key != Normalize(loc.Key) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidLocality, ErrKeyNotNormalized, loc.Key)
	}

	if loc.DisplayName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidLocality, ErrEmptyDisplayName)
	}

	return nil
}

// ValidatePharmacy validates a Pharmacy according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Comuna must not be empty
//
// NOT validated (populated during ingestion):
//   - Id (derived from LocalID when present)
//   - Coordinates (0,0 marks records the source published without them)
func ValidatePharmacy(p *Pharmacy) error {
	if p == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidPharmacy)
	}

	if p.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPharmacy, ErrEmptyName)
	}

	if p.Comuna == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPharmacy, ErrEmptyComuna)
	}

	return nil
}

// ValidateConfidence validates that a confidence score is within [0,1].
func ValidateConfidence(c float64) error {
	if c < 0 || c > 1 {
		return fmt.Errorf("%w: value %v", ErrInvalidConfidence, c)
	}
	return nil
}
