// Package datasource resolves analytics product keys to tabular datasets.
// It defines a common Source interface and implements sources backed by a
// directory of CSV/XLSX/SQLite files, a SQLite database, and a remote HTTP
// endpoint, plus chaining and caching decorators.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seenimoa/crmreport/internal/dataset"
	"github.com/seenimoa/crmreport/internal/infra"
)

// Source loads the dataset behind a product key.
type Source interface {
	// Name returns a human-readable description of this source.
	Name() string

	// Load returns the product's table or ErrProductNotFound.
	Load(ctx context.Context, product string) (*dataset.Table, error)
}

// --- Sentinel errors ---

// ErrProductNotFound is returned when no dataset exists for a product key.
var ErrProductNotFound = errors.New("product dataset not found")

// ErrUnsupportedFormat is returned for files the loaders cannot read.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "crmreport/1.0"

// HTTPClient is a pre-configured HTTP client with reasonable timeouts.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// doGet performs a GET request and returns the response body.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "text/csv, text/plain, */*")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = HTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	return resp.Body, nil
}

// ════════════════════════════════════════════════════════════════════
// Chain
// ════════════════════════════════════════════════════════════════════

// Chain tries each source in order and returns the first table found.
type Chain []Source

func (c Chain) Name() string {
	name := "chain("
	for i, s := range c {
		if i > 0 {
			name += ", "
		}
		name += s.Name()
	}
	return name + ")"
}

// Load returns the first successful load. When every source fails, the first
// error other than ErrProductNotFound is returned, else ErrProductNotFound.
func (c Chain) Load(ctx context.Context, product string) (*dataset.Table, error) {
	var firstErr error
	for _, s := range c {
		t, err := s.Load(ctx, product)
		if err == nil {
			return t, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if firstErr == nil && !errors.Is(err, ErrProductNotFound) {
			firstErr = fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("%s: %w", product, ErrProductNotFound)
}

// ════════════════════════════════════════════════════════════════════
// Cached
// ════════════════════════════════════════════════════════════════════

// Cached memoizes successful loads of an inner source for the cache's TTL.
// Tables are shared between callers and must not be mutated.
type Cached struct {
	Source Source
	Cache  *infra.Cache
}

// NewCached wraps src with a cache of the given TTL.
func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{Source: src, Cache: infra.NewCache(ttl)}
}

func (c *Cached) Name() string { return "cached " + c.Source.Name() }

func (c *Cached) Load(ctx context.Context, product string) (*dataset.Table, error) {
	if v, ok := c.Cache.Get(product); ok {
		return v.(*dataset.Table), nil
	}
	t, err := c.Source.Load(ctx, product)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(product, t)
	return t, nil
}

// Invalidate drops a cached product.
func (c *Cached) Invalidate(product string) { c.Cache.Invalidate(product) }
