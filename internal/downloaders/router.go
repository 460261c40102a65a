// Package downloaders dispatches task URIs to the fetcher registered for their scheme.
package downloaders

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/tanq16/trickle/internal/utils"
)

type Router struct {
	fetchers map[string]utils.Fetcher
}

func NewRouter() *Router {
	return &Router{fetchers: make(map[string]utils.Fetcher)}
}

func (r *Router) Register(fetcher utils.Fetcher, schemes ...string) {
	for _, scheme := range schemes {
		r.fetchers[strings.ToLower(scheme)] = fetcher
	}
}

func (r *Router) Supports(scheme string) bool {
	_, ok := r.fetchers[strings.ToLower(scheme)]
	return ok
}

func (r *Router) Schemes() []string {
	schemes := make([]string, 0, len(r.fetchers))
	for scheme := range r.fetchers {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

func (r *Router) Open(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	fetcher, ok := r.fetchers[strings.ToLower(uri.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", utils.ErrUnsupportedScheme, uri.Scheme)
	}
	return fetcher.Open(ctx, uri)
}
