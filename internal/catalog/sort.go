package catalog

import (
	"cmp"
	"slices"

	"github.com/angelmondragon/wbdash/pkg/enums"
)

// Ordering is the result of comparing two products.
type Ordering int

const (
	Before Ordering = -1
	Equal  Ordering = 0
	After  Ordering = 1
)

// Compare orders a relative to b under s. Names compare ordinally, numbers
// numerically and created_at chronologically. Descending swaps the operands, so
// ties stay ties. An unknown field compares everything Equal.
func Compare(a, b Product, s SortSpec) Ordering {
	if s.Direction == enums.SortDescending {
		a, b = b, a
	}
	var c int
	switch s.Field {
	case enums.SortFieldName:
		c = cmp.Compare(a.Name, b.Name)
	case enums.SortFieldPrice:
		c = cmp.Compare(a.Price, b.Price)
	case enums.SortFieldDiscountPrice:
		c = cmp.Compare(a.DiscountPrice, b.DiscountPrice)
	case enums.SortFieldRating:
		c = cmp.Compare(a.Rating, b.Rating)
	case enums.SortFieldReviewsCount:
		c = cmp.Compare(a.ReviewsCount, b.ReviewsCount)
	case enums.SortFieldCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	return Ordering(c)
}

// SortProducts returns a stably sorted copy of products.
func SortProducts(products []Product, s SortSpec) []Product {
	out := slices.Clone(products)
	if out == nil {
		out = []Product{}
	}
	slices.SortStableFunc(out, func(a, b Product) int {
		return int(Compare(a, b, s))
	})
	return out
}
