package catalog

import (
	"context"
	"fmt"

	"github.com/angelmondragon/wbdash/pkg/catalogapi"
	pkgerrors "github.com/angelmondragon/wbdash/pkg/errors"
)

// Remote adapts the catalog service HTTP client to Catalog.
type Remote struct {
	client *catalogapi.Client
}

// NewRemote wraps an HTTP client.
func NewRemote(client *catalogapi.Client) *Remote {
	return &Remote{client: client}
}

func (r *Remote) ListProducts(ctx context.Context, q Query) ([]Product, error) {
	wire, err := r.client.ListProducts(ctx, toProductQuery(q))
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(wire))
	for _, w := range wire {
		out = append(out, fromWireProduct(w))
	}
	return out, nil
}

func (r *Remote) Categories(ctx context.Context) ([]string, error) {
	categories, err := r.client.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (r *Remote) Statistics(ctx context.Context) (*Statistics, error) {
	wire, err := r.client.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	return &Statistics{
		TotalProducts: wire.TotalProducts,
		AvgPrice:      deref(wire.AvgPrice),
		AvgRating:     deref(wire.AvgRating),
		AvgReviews:    deref(wire.AvgReviews),
		MinPrice:      wire.MinPrice,
		MaxPrice:      wire.MaxPrice,
	}, nil
}

func (r *Remote) PriceDistribution(ctx context.Context) ([]HistogramBucket, error) {
	wire, err := r.client.PriceDistribution(ctx)
	if err != nil {
		return nil, err
	}
	// Counts land on the fixed axis; ranges the service omits stay zero.
	out := EmptyBuckets()
	for _, w := range wire {
		idx := bucketIndex(w.Range)
		if idx < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeMalformedResponse, fmt.Sprintf("unknown price range %q", w.Range))
		}
		out[idx].Count += w.Count
	}
	return out, nil
}

func (r *Remote) Parse(ctx context.Context, query string, limit int) (*ParseResult, error) {
	resp, err := r.client.Parse(ctx, catalogapi.ParseRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	return &ParseResult{Count: resp.Count, Message: resp.Message, Category: resp.Category}, nil
}

func toProductQuery(q Query) catalogapi.ProductQuery {
	f := q.Filter.Normalized()
	return catalogapi.ProductQuery{
		MinPrice:   f.MinPrice,
		MaxPrice:   f.MaxPrice,
		MinRating:  f.MinRating,
		MinReviews: f.MinReviews,
		Category:   f.Category,
		Ordering:   q.Sort.Ordering(),
	}
}

func fromWireProduct(w catalogapi.Product) Product {
	p := Product{
		ID:            w.ID,
		Name:          w.Name,
		Price:         w.Price,
		DiscountPrice: w.DiscountPrice,
		Rating:        w.Rating,
		ReviewsCount:  w.ReviewsCount,
		Category:      w.Category,
		CreatedAt:     w.CreatedAt,
	}
	if w.DiscountPercentage != nil {
		p.DiscountPercentage = *w.DiscountPercentage
	} else {
		p.DiscountPercentage = DeriveDiscountPercentage(w.Price, w.DiscountPrice)
	}
	return p
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
