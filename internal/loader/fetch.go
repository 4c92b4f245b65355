package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPFetcher GETs the payload from a fixed URL, bypassing caches.
type HTTPFetcher struct {
	client    *http.Client
	url       string
	userAgent string
}

// NewHTTPFetcher creates a fetcher for url. A nil client uses a client
// without timeout; the request lives as long as ctx.
func NewHTTPFetcher(client *http.Client, url, userAgent string) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{client: client, url: url, userAgent: userAgent}
}

// Fetch returns the response body of a successful GET.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Cache-Control", "no-cache, no-store, max-age=0")
	req.Header.Set("Pragma", "no-cache")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrFetch, err)
	}

	return body, nil
}
