package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher downloads CBF streams over HTTP(S), retrying transient failures.
type HTTPFetcher struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
}

// NewHTTPFetcher creates an HTTP fetcher with three attempts and a linear
// backoff of one second per attempt.
func NewHTTPFetcher() *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,

		// Compressed frames are unpacked by Opener, not the transport.
		DisableCompression: true,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		attempts: 3,
		backoff:  time.Second,
	}
}

// Open fetches location. The response body is the returned stream; the
// caller's context bounds the whole download.
func (h *HTTPFetcher) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 0; attempt < h.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		req.Header.Set("Accept", "application/octet-stream, */*")
		req.Header.Set("User-Agent", "cbf-tools-mcp/1.0")

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}
		resp.Body.Close()

		// 4xx client errors are non-retryable
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, fmt.Errorf("failed to fetch %s: client error: status code %d", location, resp.StatusCode)
		}
		lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", location, h.attempts, lastErr)
}
