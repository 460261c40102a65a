package tricklehttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/trickle/internal/utils"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/file.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ua=" + r.UserAgent()))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func open(t *testing.T, f *Fetcher, raw string) (io.ReadCloser, error) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return f.Open(context.Background(), u)
}

func TestFetcherOpen(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(utils.HTTPClientConfig{ConnectTimeout: time.Second, UserAgent: "trickle-test"})

	body, err := open(t, f, srv.URL+"/file.bin")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "ua=trickle-test", string(data))
}

func TestFetcherNotFound(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(utils.HTTPClientConfig{})

	_, err := open(t, f, srv.URL+"/missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = open(t, f, srv.URL+"/gone")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestFetcherStatusError(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(utils.HTTPClientConfig{})

	_, err := open(t, f, srv.URL+"/broken")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.NotErrorIs(t, err, utils.ErrNotFound)
}

func TestFetcherSlowHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	// a short connect timeout does not cut off a slow first byte
	f := NewFetcher(utils.HTTPClientConfig{ConnectTimeout: 100 * time.Millisecond})
	body, err := open(t, f, srv.URL+"/late.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Equal(t, "late", string(data))

	f = NewFetcher(utils.HTTPClientConfig{ConnectTimeout: time.Second, ResponseTimeout: 50 * time.Millisecond})
	_, err = open(t, f, srv.URL+"/late.txt")
	assert.Error(t, err)
}

func TestFetcherConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	f := NewFetcher(utils.HTTPClientConfig{ConnectTimeout: time.Second})

	_, err := open(t, f, addr+"/file.bin")
	require.Error(t, err)
	assert.NotErrorIs(t, err, utils.ErrNotFound)
}
