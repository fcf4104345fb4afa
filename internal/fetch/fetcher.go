package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/policyscope/policyscope/internal/cache"
	"github.com/policyscope/policyscope/internal/model"
	"github.com/policyscope/policyscope/internal/util"
)

// Fetcher retrieves raw HTML for candidate policy URLs. Every retrieval is
// bounded by the client timeout; oversized bodies are cut at MaxBodyBytes.
// With a content cache attached, repeat fetches of the same URL are served
// locally.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	cache      cache.Cache
	cacheTTL   time.Duration
}

// NewFetcher creates a fetcher with the given HTTP configuration and
// per-request timeout
func NewFetcher(cfg model.HTTPConfig, timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: util.NewHTTPClient(cfg, timeout),
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
	}
}

// WithCache attaches a content cache for fetched documents
func (f *Fetcher) WithCache(c cache.Cache, ttl time.Duration) *Fetcher {
	f.cache = c
	f.cacheTTL = ttl
	return f
}

// Fetch retrieves the body of rawURL. Non-2xx responses are errors; the
// caller decides whether to advance to the next candidate.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.cache != nil {
		if body, found := f.cache.Get(cache.Key(rawURL)); found {
			return string(body), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if f.cache != nil {
		_ = f.cache.Set(cache.Key(rawURL), body, f.cacheTTL)
	}
	return string(body), nil
}
