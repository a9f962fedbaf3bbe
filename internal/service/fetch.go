package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxResponseSize     = 100 << 20
	userAgent           = "plat-map/1.0"
)

// Fetcher retrieves remote documents for url and geojson sources.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PayloadCache is an optional read-through cache in front of HTTPFetcher.
type PayloadCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}

// HTTPError is returned by HTTPFetcher for non-2xx responses.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// HTTPFetcher fetches documents over HTTP, optionally through a PayloadCache.
type HTTPFetcher struct {
	client   *http.Client
	cache    PayloadCache
	cacheTTL int
}

// NewHTTPFetcher creates a fetcher. A zero timeout uses 30s.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// WithCache puts cache in front of network fetches.
func (f *HTTPFetcher) WithCache(cache PayloadCache, ttlSeconds int) *HTTPFetcher {
	f.cache = cache
	f.cacheTTL = ttlSeconds
	return f
}

// Fetch performs a GET and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := "plat-map:fetch:" + url
	if f.cache != nil {
		if data, err := f.cache.Get(ctx, key); err == nil && len(data) > 0 {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url, Message: string(msg)}
	}
	if resp.ContentLength > maxResponseSize {
		return nil, fmt.Errorf("response size %d exceeds maximum allowed size %d", resp.ContentLength, maxResponseSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > maxResponseSize {
		return nil, fmt.Errorf("response exceeds maximum allowed size %d", maxResponseSize)
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, data, f.cacheTTL); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Failed to cache fetched payload")
		}
	}
	return data, nil
}
