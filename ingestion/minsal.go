package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// The MINSAL farmanet endpoints the feed is published on. getLocales lists
// every pharmacy; getLocalesTurnos lists the ones on duty rotation.
const (
	DefaultFeedURL      = "https://farmanet.minsal.cl/index.php/ws/getLocales.php"
	DefaultTurnoFeedURL = "https://farmanet.minsal.cl/index.php/ws/getLocalesTurnos.php"
)

const defaultFetchTimeout = 30 * time.Second

// WithHTTPClient overrides the client used by LoadURL and ReplaceURL.
// Intended for tests and callers with their own transport policy.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) error {
		if client != nil {
			l.httpClient = client
		}
		return nil
	}
}

// LoadURL fetches a feed over HTTP and ingests it additively.
// Returns the number of records stored.
func (l *Loader) LoadURL(ctx context.Context, url string, esTurno bool) (int, error) {
	body, err := l.fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()
	return l.Load(ctx, body, esTurno)
}

// ReplaceURL fetches a feed over HTTP and ingests it as a full snapshot.
// Returns the number of records stored.
func (l *Loader) ReplaceURL(ctx context.Context, url string, esTurno bool) (int, error) {
	body, err := l.fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()
	return l.Replace(ctx, body, esTurno)
}

func (l *Loader) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	l.logger.Info("fetching feed", "url", url)
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrFeedUnavailable, url, resp.Status)
	}
	return resp.Body, nil
}
