package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	appLog "voccal/internal/log"
	"voccal/internal/model"
)

const (
	defaultTimeout = 15 * time.Second
	// maxBodyBytes bounds how much of a feed response is read.
	maxBodyBytes = 32 << 20
)

// Options configures a Fetcher.
type Options struct {
	// Timeout for the whole request. If zero, 15s is used.
	Timeout time.Duration
	// CachePath is a bbolt file used for conditional requests
	// (ETag / Last-Modified). Empty disables caching.
	CachePath string
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Result is the outcome of one fetch.
type Result struct {
	URL       string
	Body      []byte
	FromCache bool // true if the body was reused after a 304
}

// Fetcher downloads the event feed. There is no retry: any failure is
// reported to the caller.
type Fetcher struct {
	client *http.Client
	cache  *cache
}

func NewFetcher(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Fetcher{
		client: client,
		cache:  newCache(opts.CachePath),
	}
}

// Fetch performs a single GET of url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Result, error) {
	if url == "" {
		return Result{}, model.FeedErrorf("fetch", "feed URL is empty")
	}

	var cached cacheEntry
	haveCache := false
	if f.cache != nil {
		entry, ok, err := f.cache.load(url)
		if err != nil {
			appLog.Warn("feed cache unavailable", "err", err, "url", redactURL(url))
		}
		cached, haveCache = entry, ok
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, model.FeedError("fetch", err)
	}
	req.Header.Set("Accept", "application/json")
	if haveCache {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	appLog.Info("feed fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, model.FeedError("fetch", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if !haveCache || len(cached.Body) == 0 {
			return Result{}, model.FeedErrorf("fetch", "received 304 Not Modified but no cached body available")
		}
		appLog.Info("feed not modified; using cache", "url", redactURL(url))
		return Result{URL: url, Body: cached.Body, FromCache: true}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
		if err != nil {
			return Result{}, model.FeedError("fetch", err)
		}
		if len(body) > maxBodyBytes {
			return Result{}, model.FeedErrorf("fetch", "response exceeds %d bytes", maxBodyBytes)
		}
		if f.cache != nil {
			entry := cacheEntry{
				URL:          url,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
				Body:         body,
			}
			if err := f.cache.save(entry); err != nil {
				appLog.Error("feed cache save failed", err, "url", redactURL(url))
			}
		}
		appLog.Info("feed fetch success", "url", redactURL(url), "status", resp.StatusCode, "bytes", len(body))
		return Result{URL: url, Body: body}, nil

	default:
		return Result{}, model.FeedError("fetch", fmt.Errorf("unexpected status %s", resp.Status))
	}
}

// redactURL hides path and query of a feed URL for logging purposes.
// Example:
//
//	https://example.com/path/events.json?token=abcd -> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "feed://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
