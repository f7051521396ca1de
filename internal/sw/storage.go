// Package sw implements the offline request router that sits between the
// client and the network: network-first for API calls with an offline
// fallback, cache-first for static assets, and a versioned cache lifecycle.
package sw

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

// CachedResponse is a stored response, keyed by its request URL
type CachedResponse struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}

// Response rebuilds an HTTP response for req from the stored entry.
// Each call returns an independent body reader.
func (c *CachedResponse) Response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", c.StatusCode, http.StatusText(c.StatusCode)),
		StatusCode:    c.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        cloneHeader(c.Header),
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}

// Cache is a single named cache of responses
type Cache interface {
	// Put stores or overwrites the entry for entry.URL
	Put(ctx context.Context, entry *CachedResponse) error
	// Match returns the entry for url or an error matching errors.ErrCacheMiss
	Match(ctx context.Context, url string) (*CachedResponse, error)
	// Delete removes the entry for url and reports whether it existed
	Delete(ctx context.Context, url string) (bool, error)
	// Keys returns the stored URLs
	Keys(ctx context.Context) ([]string, error)
}

// CacheStorage holds the named caches, like the browser's CacheStorage
type CacheStorage interface {
	// Open returns the named cache, creating it when missing
	Open(ctx context.Context, name string) (Cache, error)
	Has(ctx context.Context, name string) (bool, error)
	// Keys returns cache names in creation order
	Keys(ctx context.Context) ([]string, error)
	// Delete removes a cache with all its entries
	Delete(ctx context.Context, name string) (bool, error)
	// Match searches every cache in creation order
	Match(ctx context.Context, url string) (*CachedResponse, error)
	Close() error
}
