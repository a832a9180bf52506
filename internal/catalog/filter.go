package catalog

import "strings"

// Matches reports whether p satisfies every clause of f.
func Matches(p Product, f FilterSpec) bool {
	return MatchesNetwork(p, f) && containsFold(p.Name, f.SearchQuery)
}

// MatchesNetwork evaluates the clauses the catalog service applies server-side:
// everything except the name search.
func MatchesNetwork(p Product, f FilterSpec) bool {
	// Negated comparisons so a NaN price never satisfies a set bound.
	if f.MinPrice != nil && !(p.DiscountPrice >= *f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && !(p.DiscountPrice <= *f.MaxPrice) {
		return false
	}
	if f.MinRating != nil && !(p.Rating >= *f.MinRating) {
		return false
	}
	if f.MinReviews != nil && p.ReviewsCount < *f.MinReviews {
		return false
	}
	return containsFold(p.Category, f.Category)
}

// Filter returns the products matching f, preserving input order.
func Filter(products []Product, f FilterSpec) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if Matches(p, f) {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	if haystack == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
