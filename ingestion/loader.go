package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
	"github.com/davidpenaloza/mvp-farmacias-v2/storage"
)

// apiRecord mirrors one entry of the MINSAL farmacia feed. Every field
// arrives as a string, coordinates and dates included.
type apiRecord struct {
	LocalID     string `json:"local_id"`
	Name        string `json:"local_nombre"`
	Address     string `json:"local_direccion"`
	Comuna      string `json:"comuna_nombre"`
	Localidad   string `json:"localidad_nombre"`
	Region      string `json:"fk_region"`
	Phone       string `json:"local_telefono"`
	Lat         string `json:"local_lat"`
	Lng         string `json:"local_lng"`
	OpeningHour string `json:"funcionamiento_hora_apertura"`
	ClosingHour string `json:"funcionamiento_hora_cierre"`
	Day         string `json:"funcionamiento_dia"`
	Date        string `json:"fecha"`
}

// toPharmacy converts a feed entry to a domain record. Coordinates that are
// empty, zero, or garbage become 0,0; the feed publishes plenty of each.
func (a *apiRecord) toPharmacy(esTurno bool, now time.Time) *core.Pharmacy {
	updated := a.Date
	if updated == "" {
		updated = now.Format("2006-01-02")
	}

	return &core.Pharmacy{
		LocalID:      a.LocalID,
		Name:         strings.TrimSpace(a.Name),
		Address:      strings.TrimSpace(a.Address),
		Comuna:       strings.TrimSpace(a.Comuna),
		LocalityKey:  core.Normalize(a.Comuna),
		Region:       a.Region,
		Phone:        a.Phone,
		Lat:          parseCoordinate(a.Lat),
		Lng:          parseCoordinate(a.Lng),
		OpeningHour:  a.OpeningHour,
		ClosingHour:  a.ClosingHour,
		OperatingDay: a.Day,
		UpdatedDate:  updated,
		EsTurno:      esTurno,
		InsertedAt:   now.UTC(),
	}
}

func parseCoordinate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Invalidator flushes derived caches after the dataset changes.
// *cache.Cache satisfies this.
type Invalidator interface {
	InvalidateAll(ctx context.Context) (int64, error)
}

// Loader ingests MINSAL feed payloads into the pharmacy repository and
// invalidates the result cache afterwards, so stale search results never
// outlive a refresh.
type Loader struct {
	repo        storage.PharmacyRepository
	invalidator Invalidator
	poolSize    int
	httpClient  *http.Client
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithInvalidator attaches a cache to flush after each load.
func WithInvalidator(inv Invalidator) Option {
	return func(l *Loader) error {
		l.invalidator = inv
		return nil
	}
}

// WithPoolSize sets the worker pool size for record conversion.
func WithPoolSize(size int) Option {
	return func(l *Loader) error {
		if size < 1 {
			return fmt.Errorf("pool size must be at least 1, got %d", size)
		}
		l.poolSize = size
		return nil
	}
}

// WithClock overrides the time source for inserted-at stamps.
// Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) error {
		if now != nil {
			l.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// NewLoader creates a feed loader over the given repository.
func NewLoader(repo storage.PharmacyRepository, opts ...Option) (*Loader, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	l := &Loader{
		repo:       repo,
		poolSize:   poolSize,
		httpClient: &http.Client{Timeout: defaultFetchTimeout},
		now:        time.Now,
		logger:     slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Load ingests a feed payload additively, upserting records over whatever is
// already stored. Returns the number of records stored.
func (l *Loader) Load(ctx context.Context, src io.Reader, esTurno bool) (int, error) {
	records, err := l.decode(ctx, src, esTurno)
	if err != nil {
		return 0, err
	}

	if err := l.repo.AddPharmacies(ctx, records...); err != nil {
		return 0, err
	}
	return len(records), l.finish(ctx, len(records), "load")
}

// Replace ingests a feed payload as a full snapshot, dropping the previous
// dataset. Returns the number of records stored.
func (l *Loader) Replace(ctx context.Context, src io.Reader, esTurno bool) (int, error) {
	records, err := l.decode(ctx, src, esTurno)
	if err != nil {
		return 0, err
	}

	if err := l.repo.ReplaceAll(ctx, records); err != nil {
		return 0, err
	}
	return len(records), l.finish(ctx, len(records), "replace")
}

// LoadFile ingests a feed payload from a file on disk.
func (l *Loader) LoadFile(ctx context.Context, path string, esTurno bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return l.Load(ctx, f, esTurno)
}

// decode parses the payload and converts entries concurrently. Entries that
// fail domain validation are skipped with a warning; one broken row must not
// sink a 3000-record refresh.
func (l *Loader) decode(ctx context.Context, src io.Reader, esTurno bool) ([]*core.Pharmacy, error) {
	var entries []apiRecord
	if err := json.NewDecoder(src).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFeed, err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyFeed
	}

	pool, err := ants.NewPool(l.poolSize)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	now := l.now()
	converted := make([]*core.Pharmacy, len(entries))

	var wg sync.WaitGroup
	for i := range entries {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			converted[i] = entries[i].toPharmacy(esTurno, now)
		}); err != nil {
			wg.Done()
			return nil, err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]*core.Pharmacy, 0, len(converted))
	skipped := 0
	for _, p := range converted {
		if err := core.ValidatePharmacy(p); err != nil {
			skipped++
			l.logger.Warn("skipping invalid feed record", "local_id", p.LocalID, "err", err)
			continue
		}
		records = append(records, p)
	}

	if skipped > 0 {
		l.logger.Info("feed records skipped", "skipped", skipped, "kept", len(records))
	}
	if len(records) == 0 {
		return nil, ErrEmptyFeed
	}
	return records, nil
}

// finish logs the ingest and flushes derived caches.
func (l *Loader) finish(ctx context.Context, count int, mode string) error {
	l.logger.Info("feed ingested", "mode", mode, "records", count)

	if l.invalidator == nil {
		return nil
	}
	deleted, err := l.invalidator.InvalidateAll(ctx)
	if err != nil {
		l.logger.Warn("cache invalidation after ingest failed", "err", err)
		return err
	}
	l.logger.Info("cache invalidated after ingest", "entries", deleted)
	return nil
}
