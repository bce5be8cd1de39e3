package storage

import (
	"context"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
)

// PharmacyRepository defines persistence operations for pharmacy records.
// Implementations must be safe for concurrent use.
type PharmacyRepository interface {
	// AddPharmacies stores pharmacy records, replacing any existing record
	// with the same ID. Records failing validation are rejected.
	AddPharmacies(ctx context.Context, pharmacies ...*core.Pharmacy) error

	// GetPharmacy retrieves a pharmacy by ID.
	// Returns ErrNotFound when no record exists.
	GetPharmacy(ctx context.Context, id core.ID) (*core.Pharmacy, error)

	// FindByLocality returns all pharmacies for a normalized locality key.
	// When onlyTurno is true, only records flagged as on turno duty are
	// returned. A locality with no pharmacies yields an empty slice.
	FindByLocality(ctx context.Context, localityKey string, onlyTurno bool) ([]*core.Pharmacy, error)

	// CountAll returns the total number of stored pharmacies.
	CountAll(ctx context.Context) (int, error)

	// CountByLocality returns the number of pharmacies for a locality key.
	CountByLocality(ctx context.Context, localityKey string) (int, error)

	// ReplaceAll atomically swaps the entire dataset for a new one.
	// Used by ingestion when a fresh upstream snapshot arrives.
	ReplaceAll(ctx context.Context, pharmacies []*core.Pharmacy) error

	// Close releases repository resources.
	Close() error
}
