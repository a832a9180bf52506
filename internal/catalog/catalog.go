// Package catalog holds the product domain: filter evaluation, ordering,
// aggregation and the catalog service abstraction.
package catalog

import (
	"context"

	"github.com/angelmondragon/wbdash/pkg/catalogapi"
	"github.com/angelmondragon/wbdash/pkg/config"
)

// Catalog is the remote catalog service as consumed by the dashboard.
type Catalog interface {
	ListProducts(ctx context.Context, q Query) ([]Product, error)
	Categories(ctx context.Context) ([]string, error)
	Statistics(ctx context.Context) (*Statistics, error)
	PriceDistribution(ctx context.Context) ([]HistogramBucket, error)
	Parse(ctx context.Context, query string, limit int) (*ParseResult, error)
}

// FromConfig builds the remote catalog, or a generated in-memory one when the
// service is configured offline.
func FromConfig(cfg config.CatalogConfig) (Catalog, error) {
	if cfg.Offline {
		perCategory := 0
		if cfg.OfflineSeed > 0 {
			perCategory = max(1, cfg.OfflineSeed/len(DemoCategories))
		}
		return NewMemory(nil, WithGenerated(DemoCategories, perCategory)), nil
	}
	client, err := catalogapi.NewClient(cfg.BaseURL, catalogapi.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}
	return NewRemote(client), nil
}
