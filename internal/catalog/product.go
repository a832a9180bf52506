package catalog

import (
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/wbdash/pkg/enums"
	"github.com/shopspring/decimal"
)

// Product is a single catalog listing.
type Product struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Price              float64   `json:"price"`
	DiscountPrice      float64   `json:"discount_price"`
	DiscountPercentage float64   `json:"discount_percentage"`
	Rating             float64   `json:"rating"`
	ReviewsCount       int       `json:"reviews_count"`
	Category           string    `json:"category"`
	CreatedAt          time.Time `json:"created_at"`
}

// Statistics is the aggregate summary supplied by the catalog service.
type Statistics struct {
	TotalProducts int      `json:"total_products"`
	AvgPrice      float64  `json:"avg_price"`
	AvgRating     float64  `json:"avg_rating"`
	AvgReviews    float64  `json:"avg_reviews"`
	MinPrice      *float64 `json:"min_price"`
	MaxPrice      *float64 `json:"max_price"`
}

// FilterSpec holds the user-chosen filter. A nil bound or blank text leaves that
// clause unconstrained.
type FilterSpec struct {
	MinPrice    *float64 `json:"min_price,omitempty"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
	MinRating   *float64 `json:"min_rating,omitempty"`
	MinReviews  *int     `json:"min_reviews,omitempty"`
	Category    string   `json:"category"`
	SearchQuery string   `json:"search_query"`
}

// Normalized trims the text clauses.
func (f FilterSpec) Normalized() FilterSpec {
	f.Category = strings.TrimSpace(f.Category)
	f.SearchQuery = strings.TrimSpace(f.SearchQuery)
	return f
}

// NetworkEqual reports whether f and other agree on every clause the catalog
// service evaluates, i.e. everything except SearchQuery.
func (f FilterSpec) NetworkEqual(other FilterSpec) bool {
	return floatPtrEqual(f.MinPrice, other.MinPrice) &&
		floatPtrEqual(f.MaxPrice, other.MaxPrice) &&
		floatPtrEqual(f.MinRating, other.MinRating) &&
		intPtrEqual(f.MinReviews, other.MinReviews) &&
		strings.TrimSpace(f.Category) == strings.TrimSpace(other.Category)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SortSpec orders the product list.
type SortSpec struct {
	Field     enums.SortField     `json:"field"`
	Direction enums.SortDirection `json:"direction"`
}

// DefaultSort is newest first.
func DefaultSort() SortSpec {
	return SortSpec{Field: enums.SortFieldCreatedAt, Direction: enums.SortDescending}
}

// Ordering renders the service's ordering parameter: the field name, prefixed
// with "-" when descending.
func (s SortSpec) Ordering() string {
	if s.Field == "" {
		return ""
	}
	if s.Direction == enums.SortDescending {
		return "-" + string(s.Field)
	}
	return string(s.Field)
}

// Toggle flips the direction when field is already the sort key; a new field
// starts ascending.
func (s SortSpec) Toggle(field enums.SortField) SortSpec {
	if s.Field == field {
		return SortSpec{Field: field, Direction: s.Direction.Reverse()}
	}
	return SortSpec{Field: field, Direction: enums.SortAscending}
}

// Query is the network-facing product query.
type Query struct {
	Filter FilterSpec
	Sort   SortSpec
}

// ParseResult is the outcome of a scrape job.
type ParseResult struct {
	Count    int
	Message  string
	Category string
}

// DeriveDiscountPercentage computes round((1 - discountPrice/price) * 100),
// clamped to [0,100]. A non-positive price yields 0.
func DeriveDiscountPercentage(price, discountPrice float64) float64 {
	if !(price > 0) || !finite(price) || !finite(discountPrice) {
		return 0
	}
	hundred := decimal.NewFromInt(100)
	ratio := decimal.NewFromFloat(discountPrice).Div(decimal.NewFromFloat(price))
	pct := decimal.NewFromInt(1).Sub(ratio).Mul(hundred).Round(0)
	switch {
	case pct.IsNegative():
		return 0
	case pct.GreaterThan(hundred):
		return 100
	}
	return pct.InexactFloat64()
}

func round2(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
