package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/wbdash/pkg/errors"
)

// MaxGeneratedPerParse caps how many products one offline scrape produces.
const MaxGeneratedPerParse = 50

var nameTemplates = []string{
	"Premium", "Standard", "Economy", "Luxury", "Basic",
	"Professional", "Kids", "Adult", "Universal", "Special",
}

// DemoCategories seed the offline catalog.
var DemoCategories = []string{"shoes", "bags", "headphones", "watches"}

// Memory is an in-process Catalog used when the catalog service is offline.
// Filtering and ordering run locally with MatchesNetwork and SortProducts.
type Memory struct {
	mu       sync.RWMutex
	products []Product
	nextID   int64
	rng      *rand.Rand
	now      func() time.Time
}

// MemoryOption configures a Memory catalog.
type MemoryOption func(*Memory)

// WithRand sets the random source used to generate products.
func WithRand(r *rand.Rand) MemoryOption {
	return func(m *Memory) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithGenerated seeds perCategory generated products for each category.
func WithGenerated(categories []string, perCategory int) MemoryOption {
	return func(m *Memory) {
		for _, category := range categories {
			m.products = append(m.products, m.generate(category, perCategory)...)
		}
	}
}

// NewMemory builds an offline catalog over a copy of seed.
func NewMemory(seed []Product, opts ...MemoryOption) *Memory {
	m := &Memory{
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now: time.Now,
	}
	for _, p := range seed {
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
		m.products = append(m.products, p)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Memory) ListProducts(ctx context.Context, q Query) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetworkUnavailable, err, "list products")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		if MatchesNetwork(p, q.Filter) {
			matched = append(matched, p)
		}
	}
	return SortProducts(matched, q.Sort), nil
}

func (m *Memory) Categories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetworkUnavailable, err, "list categories")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range m.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out, nil
}

func (m *Memory) Statistics(ctx context.Context) (*Statistics, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetworkUnavailable, err, "statistics")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Statistics{TotalProducts: len(m.products)}
	if len(m.products) == 0 {
		return stats, nil
	}
	var sumPrice, sumRating float64
	var sumReviews int
	minPrice, maxPrice := m.products[0].DiscountPrice, m.products[0].DiscountPrice
	for _, p := range m.products {
		sumPrice += p.DiscountPrice
		sumRating += p.Rating
		sumReviews += p.ReviewsCount
		minPrice = min(minPrice, p.DiscountPrice)
		maxPrice = max(maxPrice, p.DiscountPrice)
	}
	n := float64(len(m.products))
	stats.AvgPrice = round2(sumPrice / n)
	stats.AvgRating = round2(sumRating / n)
	stats.AvgReviews = round2(float64(sumReviews) / n)
	stats.MinPrice = &minPrice
	stats.MaxPrice = &maxPrice
	return stats, nil
}

func (m *Memory) PriceDistribution(ctx context.Context) ([]HistogramBucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetworkUnavailable, err, "price distribution")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Histogram(m.products), nil
}

// Parse replaces the products of category query with min(limit, 50) generated
// products and reports how many were saved.
func (m *Memory) Parse(ctx context.Context, query string, limit int) (*ParseResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scrape query is required")
	}
	if limit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scrape limit must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetworkUnavailable, err, "parse")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.products[:0:0]
	for _, p := range m.products {
		if p.Category != query {
			kept = append(kept, p)
		}
	}
	generated := m.generate(query, min(limit, MaxGeneratedPerParse))
	m.products = append(kept, generated...)

	return &ParseResult{
		Count:    len(generated),
		Message:  fmt.Sprintf("saved %d products", len(generated)),
		Category: query,
	}, nil
}

// Len returns the number of products held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

// generate must be called with m.mu held or before m is shared.
func (m *Memory) generate(category string, n int) []Product {
	products := GenerateProducts(m.rng, category, n, m.nextID+1, m.now())
	m.nextID += int64(len(products))
	return products
}

// GenerateProducts produces n plausible listings for category with sequential
// ids starting at firstID.
func GenerateProducts(r *rand.Rand, category string, n int, firstID int64, createdAt time.Time) []Product {
	if n <= 0 {
		return []Product{}
	}
	out := make([]Product, 0, n)
	for i := range n {
		price := float64(500 + r.IntN(14501))
		discount := float64(5 + r.IntN(36))
		discountPrice := price * (100 - discount) / 100
		rating := float64(30+r.IntN(21)) / 10
		out = append(out, Product{
			ID:                 firstID + int64(i),
			Name:               fmt.Sprintf("%s %s #%d", category, nameTemplates[r.IntN(len(nameTemplates))], i+1),
			Price:              price,
			DiscountPrice:      discountPrice,
			DiscountPercentage: DeriveDiscountPercentage(price, discountPrice),
			Rating:             rating,
			ReviewsCount:       10 + r.IntN(1991),
			Category:           category,
			CreatedAt:          createdAt,
		})
	}
	return out
}
