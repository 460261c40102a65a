package tricklehttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/trickle/internal/utils"
)

// StatusError reports a non-success response other than not-found.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

type Fetcher struct {
	client *utils.TrickleHTTPClient
}

func NewFetcher(cfg utils.HTTPClientConfig) *Fetcher {
	return &Fetcher{client: utils.NewTrickleHTTPClient(cfg)}
}

// Open issues a GET and returns the response body. 404 and 410 map to
// utils.ErrNotFound; any other non-2xx status is a *StatusError.
func (f *Fetcher) Open(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}
	req.Header.Set("Connection", "keep-alive")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing GET request: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, fmt.Errorf("%s (%d): %w", uri, resp.StatusCode, utils.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}
	log.Debug().Str("op", "http/fetcher").Int64("contentLength", resp.ContentLength).Msgf("Connected to %s", uri)
	return resp.Body, nil
}
