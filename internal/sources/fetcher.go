// Package sources implements book.Source for the supported web-novel
// platforms.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	srcerrors "github.com/lepinkainen/novelseek/internal/errors"
)

const maxBodyBytes = 8 << 20

// Request is one page request.
type Request struct {
	URL    string
	Header http.Header
}

// Fetcher retrieves raw page bytes. Failures are returned as
// *errors.SourceError labelled with platform.
type Fetcher interface {
	Fetch(ctx context.Context, platform string, req Request) ([]byte, error)
}

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPFetcher fetches pages with a plain HTTP client.
type HTTPFetcher struct {
	client HTTPDoer
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client uses a default one.
func NewHTTPFetcher(client HTTPDoer) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, platform string, req Request) ([]byte, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, srcerrors.NewSourceError(platform, srcerrors.KindNetwork, err)
	}
	// Assigned directly so signed header names keep their exact spelling.
	for k, vs := range req.Header {
		r.Header[k] = vs
	}

	resp, err := f.client.Do(r)
	if err != nil {
		return nil, srcerrors.NewSourceError(platform, srcerrors.KindNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, srcerrors.NewStatusError(platform, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, srcerrors.NewSourceError(platform, srcerrors.KindNetwork, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}
