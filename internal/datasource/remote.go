package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/seenimoa/crmreport/internal/dataset"
)

// RemoteSource fetches product CSV files from an HTTP endpoint:
// GET <BaseURL>/<file>.
type RemoteSource struct {
	BaseURL string
	Catalog *Catalog
	Client  *http.Client      // HTTPClient when nil
	Headers map[string]string // extra request headers, e.g. authorization
}

// NewRemoteSource returns a source reading from baseURL.
func NewRemoteSource(baseURL string, cat *Catalog) *RemoteSource {
	return &RemoteSource{BaseURL: strings.TrimRight(baseURL, "/"), Catalog: cat}
}

func (r *RemoteSource) Name() string { return "remote " + r.BaseURL }

// URL returns the address fetched for product.
func (r *RemoteSource) URL(product string) string {
	return strings.TrimRight(r.BaseURL, "/") + "/" + url.PathEscape(r.Catalog.Lookup(product).File)
}

func (r *RemoteSource) Load(ctx context.Context, product string) (*dataset.Table, error) {
	body, err := doGet(ctx, r.Client, r.URL(product), r.Headers)
	if err != nil {
		var httpErr *ErrHTTP
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", product, ErrProductNotFound)
		}
		return nil, err
	}
	defer body.Close()
	return ReadCSV(body)
}
