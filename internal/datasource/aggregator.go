package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/crmreport/internal/config"
	"github.com/seenimoa/crmreport/internal/dataset"
)

// New assembles the configured sources: the data directories first, then
// the SQLite database and the remote endpoint when set, all behind a cache
// when cache_ttl is positive. The returned catalog is the one every source
// resolves product keys with.
func New(cfg config.DataConfig) (Source, *Catalog, error) {
	cat := DefaultCatalog()
	if cfg.Catalog != "" {
		loaded, err := LoadCatalog(cfg.Catalog)
		if err != nil {
			return nil, nil, err
		}
		cat = loaded
	}

	var chain Chain
	if len(cfg.Dirs) > 0 {
		chain = append(chain, NewDirSource(cat, cfg.Dirs...))
	}
	if cfg.SQLite != "" {
		db, err := OpenSQLite(cfg.SQLite, cat)
		if err != nil {
			return nil, nil, err
		}
		chain = append(chain, db)
	}
	if cfg.RemoteURL != "" {
		chain = append(chain, NewRemoteSource(cfg.RemoteURL, cat))
	}

	var src Source = chain
	if len(chain) == 1 {
		src = chain[0]
	}
	if cfg.CacheTTL > 0 {
		src = NewCached(src, time.Duration(cfg.CacheTTL)*time.Second)
	}
	return src, cat, nil
}

// Result is the outcome of loading one product.
type Result struct {
	Product string
	Table   *dataset.Table
	Err     error
}

// LoadAll loads products concurrently with at most limit loads in flight
// (unbounded when limit <= 0). Results keep the order of products; a failed
// load is reported in its Result and does not cancel the others.
func LoadAll(ctx context.Context, src Source, products []string, limit int) []Result {
	results := make([]Result, len(products))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, p := range products {
		g.Go(func() error {
			t, err := src.Load(gctx, p)
			results[i] = Result{Product: p, Table: t, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Missing reports whether err means the product has no dataset.
func Missing(err error) bool { return errors.Is(err, ErrProductNotFound) }

// Describe summarizes a loaded table for listings.
func Describe(t *dataset.Table) string {
	if t == nil {
		return "no data"
	}
	return fmt.Sprintf("%d rows × %d columns", t.Len(), len(t.Columns))
}
