package badger

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
	"github.com/davidpenaloza/mvp-farmacias-v2/storage"
)

// writeBatchSize bounds how many records go into a single transaction so a
// full dataset refresh never hits badger's transaction size limit.
const writeBatchSize = 128

// PharmacyRepository implements storage.PharmacyRepository on BadgerDB.
//
// Records are stored under phrec:<id> with a secondary index phcom:<locality>:<id>
// so locality lookups iterate a single key prefix.
type PharmacyRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.PharmacyRepository = (*PharmacyRepository)(nil)

// NewPharmacyRepository creates a pharmacy repository on the given backend.
//
// Returns storage.PharmacyRepository interface to enforce abstraction.
func NewPharmacyRepository(backend *Backend) (storage.PharmacyRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &PharmacyRepository{
		backend: backend,
		logger:  slog.Default().With("component", "pharmacy-repository"),
	}, nil
}

// prepare validates a record and fills derived fields.
func prepare(p *core.Pharmacy) error {
	if err := core.ValidatePharmacy(p); err != nil {
		return err
	}
	if p.LocalityKey == "" {
		p.LocalityKey = core.Normalize(p.Comuna)
	}
	if p.Id == 0 {
		p.Id = core.IDFromContent(p.LocalID + "|" + p.Name + "|" + p.Address)
	}
	return nil
}

// AddPharmacies stores records in batched transactions.
func (r *PharmacyRepository) AddPharmacies(ctx context.Context, pharmacies ...*core.Pharmacy) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	for _, p := range pharmacies {
		if err := prepare(p); err != nil {
			return err
		}
	}

	for start := 0; start < len(pharmacies); start += writeBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + writeBatchSize
		if end > len(pharmacies) {
			end = len(pharmacies)
		}
		batch := pharmacies[start:end]

		err := r.backend.WithTx(func(tx *badger.Txn) error {
			for _, p := range batch {
				if err := r.writePharmacy(tx, p); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return err
		}
	}

	r.logger.Debug("pharmacies stored", "count", len(pharmacies))
	return nil
}

// writePharmacy writes the record and maintains the locality index. If an
// existing record moved to a different locality, its old index entry is
// removed.
func (r *PharmacyRepository) writePharmacy(tx *badger.Txn, p *core.Pharmacy) error {
	recordKey := makePharmacyKey(p.Id)

	item, err := tx.Get(recordKey)
	if err == nil {
		var old *core.Pharmacy
		verr := item.Value(func(val []byte) error {
			decoded, derr := storage.UnmarshalPharmacy(val)
			old = decoded
			return derr
		})
		if verr == nil && old != nil && old.LocalityKey != p.LocalityKey {
			if derr := tx.Delete(makeLocalityKey(old.LocalityKey, p.Id)); derr != nil {
				return derr
			}
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	data, err := storage.MarshalPharmacy(p)
	if err != nil {
		return err
	}
	if err := tx.Set(recordKey, data); err != nil {
		return err
	}
	return tx.Set(makeLocalityKey(p.LocalityKey, p.Id), nil)
}

// GetPharmacy retrieves a pharmacy by ID.
func (r *PharmacyRepository) GetPharmacy(ctx context.Context, id core.ID) (*core.Pharmacy, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var result *core.Pharmacy
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makePharmacyKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalPharmacy(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FindByLocality returns all pharmacies for a normalized locality key,
// sorted by name then local ID so results are stable across calls.
func (r *PharmacyRepository) FindByLocality(ctx context.Context, localityKey string, onlyTurno bool) ([]*core.Pharmacy, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if localityKey == "" {
		return nil, storage.ErrInvalidQuery
	}

	results := []*core.Pharmacy{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialLocalityKey(localityKey)
		opts.PrefetchValues = false

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			id := idFromLocalityKey(it.Item().Key())
			item, err := tx.Get(makePharmacyKey(id))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					r.logger.Warn("dangling locality index entry", "locality", localityKey, "id", id)
					continue
				}
				return err
			}

			var p *core.Pharmacy
			if err := item.Value(func(val []byte) error {
				p, err = storage.UnmarshalPharmacy(val)
				return err
			}); err != nil {
				return err
			}

			if onlyTurno && !p.EsTurno {
				continue
			}
			results = append(results, p)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Name != results[j].Name {
			return results[i].Name < results[j].Name
		}
		return results[i].LocalID < results[j].LocalID
	})
	return results, nil
}

// CountAll returns the total number of stored pharmacies.
func (r *PharmacyRepository) CountAll(ctx context.Context) (int, error) {
	return r.countPrefix(ctx, []byte(pharmacyRecordPrefix+":"))
}

// CountByLocality returns the number of pharmacies for a locality key.
func (r *PharmacyRepository) CountByLocality(ctx context.Context, localityKey string) (int, error) {
	if localityKey == "" {
		return 0, storage.ErrInvalidQuery
	}
	return r.countPrefix(ctx, makePartialLocalityKey(localityKey))
}

func (r *PharmacyRepository) countPrefix(ctx context.Context, prefix []byte) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ReplaceAll swaps the entire dataset for a new one. The old data is dropped
// before the new records are written; a concurrent reader may briefly observe
// an empty store, which ingestion accepts for a daily refresh.
func (r *PharmacyRepository) ReplaceAll(ctx context.Context, pharmacies []*core.Pharmacy) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	// Validate everything before touching existing data.
	for _, p := range pharmacies {
		if err := prepare(p); err != nil {
			return err
		}
	}

	err := r.backend.DropPrefixes(
		[]byte(pharmacyRecordPrefix+":"),
		[]byte(pharmacyLocalityPrefix+":"),
	)
	if err != nil {
		return err
	}

	return r.AddPharmacies(ctx, pharmacies...)
}

// Close releases repository resources. The backend itself is owned by the
// caller and stays open.
func (r *PharmacyRepository) Close() error {
	return nil
}
