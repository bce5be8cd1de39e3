package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
	"github.com/davidpenaloza/mvp-farmacias-v2/storage"
)

func testRepo(t *testing.T) storage.PharmacyRepository {
	t.Helper()

	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func testPharmacy(localID, name, comuna string, turno bool) *core.Pharmacy {
	return &core.Pharmacy{
		LocalID: localID,
		Name:    name,
		Address: "Av. Siempre Viva 123",
		Comuna:  comuna,
		EsTurno: turno,
	}
}

func TestAddAndGetPharmacy(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	p := testPharmacy("1", "Farmacia Central", "PROVIDENCIA", false)
	require.NoError(t, repo.AddPharmacies(ctx, p))

	t.Run("derives id and locality key", func(t *testing.T) {
		assert.NotZero(t, p.Id)
		assert.Equal(t, "providencia", p.LocalityKey)
	})

	t.Run("round trips the record", func(t *testing.T) {
		got, err := repo.GetPharmacy(ctx, p.Id)
		require.NoError(t, err)
		assert.Equal(t, "Farmacia Central", got.Name)
		assert.Equal(t, "PROVIDENCIA", got.Comuna)
	})

	t.Run("missing id returns not found", func(t *testing.T) {
		_, err := repo.GetPharmacy(ctx, core.ID(9999))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("invalid record rejected", func(t *testing.T) {
		err := repo.AddPharmacies(ctx, &core.Pharmacy{Comuna: "PROVIDENCIA"})
		assert.ErrorIs(t, err, core.ErrInvalidPharmacy)
	})
}

func TestFindByLocality(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	require.NoError(t, repo.AddPharmacies(ctx,
		testPharmacy("1", "Cruz Verde", "PROVIDENCIA", false),
		testPharmacy("2", "Ahumada", "PROVIDENCIA", true),
		testPharmacy("3", "Salcobrand", "LAS CONDES", true),
	))

	t.Run("returns all for locality sorted by name", func(t *testing.T) {
		got, err := repo.FindByLocality(ctx, "providencia", false)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Ahumada", got[0].Name)
		assert.Equal(t, "Cruz Verde", got[1].Name)
	})

	t.Run("turno filter", func(t *testing.T) {
		got, err := repo.FindByLocality(ctx, "providencia", true)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Ahumada", got[0].Name)
	})

	t.Run("unknown locality yields empty slice", func(t *testing.T) {
		got, err := repo.FindByLocality(ctx, "narnia", false)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty key is invalid", func(t *testing.T) {
		_, err := repo.FindByLocality(ctx, "", false)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestLocalityIndexMaintenance(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	p := testPharmacy("1", "Cruz Verde", "PROVIDENCIA", false)
	require.NoError(t, repo.AddPharmacies(ctx, p))

	// Same record moves to another comuna
	moved := &core.Pharmacy{
		Id:      p.Id,
		LocalID: p.LocalID,
		Name:    p.Name,
		Address: p.Address,
		Comuna:  "LAS CONDES",
	}
	require.NoError(t, repo.AddPharmacies(ctx, moved))

	old, err := repo.FindByLocality(ctx, "providencia", false)
	require.NoError(t, err)
	assert.Empty(t, old)

	now, err := repo.FindByLocality(ctx, "las condes", false)
	require.NoError(t, err)
	require.Len(t, now, 1)
	assert.Equal(t, p.Id, now[0].Id)
}

func TestCounts(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	require.NoError(t, repo.AddPharmacies(ctx,
		testPharmacy("1", "Cruz Verde", "PROVIDENCIA", false),
		testPharmacy("2", "Ahumada", "PROVIDENCIA", true),
		testPharmacy("3", "Salcobrand", "LAS CONDES", true),
	))

	total, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	n, err := repo.CountByLocality(ctx, "providencia")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountByLocality(ctx, "narnia")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	require.NoError(t, repo.AddPharmacies(ctx,
		testPharmacy("1", "Cruz Verde", "PROVIDENCIA", false),
		testPharmacy("2", "Ahumada", "PROVIDENCIA", true),
	))

	require.NoError(t, repo.ReplaceAll(ctx, []*core.Pharmacy{
		testPharmacy("10", "Farmacia Nueva", "MAIPU", false),
	}))

	total, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	old, err := repo.FindByLocality(ctx, "providencia", false)
	require.NoError(t, err)
	assert.Empty(t, old)

	now, err := repo.FindByLocality(ctx, "maipu", false)
	require.NoError(t, err)
	require.Len(t, now, 1)
	assert.Equal(t, "Farmacia Nueva", now[0].Name)
}

func TestBatchedWrites(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	// More records than a single write batch
	records := make([]*core.Pharmacy, writeBatchSize*2+7)
	for i := range records {
		records[i] = testPharmacy(fmt.Sprintf("%d", i), fmt.Sprintf("Farmacia %04d", i), "SANTIAGO", i%2 == 0)
	}
	require.NoError(t, repo.AddPharmacies(ctx, records...))

	total, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(records), total)
}

func TestClosedBackend(t *testing.T) {
	ctx := context.Background()

	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	_, err = repo.GetPharmacy(ctx, core.ID(1))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	err = repo.AddPharmacies(ctx, testPharmacy("1", "X", "SANTIAGO", false))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
