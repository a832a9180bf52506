package catalog

// HistogramBucket counts products whose discount price falls in
// [LowerBound, UpperBound). A nil UpperBound is unbounded.
type HistogramBucket struct {
	Label      string   `json:"range"`
	LowerBound float64  `json:"lower_bound"`
	UpperBound *float64 `json:"upper_bound"`
	Count      int      `json:"count"`
}

// Contains reports whether price falls inside the bucket.
func (b HistogramBucket) Contains(price float64) bool {
	if !(price >= b.LowerBound) {
		return false
	}
	return b.UpperBound == nil || price < *b.UpperBound
}

// ScatterPoint pairs a product's rating with its discount.
type ScatterPoint struct {
	Rating             float64 `json:"rating"`
	DiscountPercentage float64 `json:"discount_percentage"`
	ProductID          int64   `json:"product_id"`
	Name               string  `json:"name"`
}

type bucketBounds struct {
	label string
	lower float64
	upper float64
}

// Upper of 0 marks the open-ended last bucket.
var priceBuckets = []bucketBounds{
	{label: "0-5k", lower: 0, upper: 5000},
	{label: "5k-10k", lower: 5000, upper: 10000},
	{label: "10k-20k", lower: 10000, upper: 20000},
	{label: "20k-30k", lower: 20000, upper: 30000},
	{label: "30k+", lower: 30000},
}

// EmptyBuckets returns the fixed partition with zero counts.
func EmptyBuckets() []HistogramBucket {
	out := make([]HistogramBucket, 0, len(priceBuckets))
	for _, b := range priceBuckets {
		out = append(out, b.bucket(0))
	}
	return out
}

// bucketIndex returns the position of label in the fixed partition, or -1.
func bucketIndex(label string) int {
	for i, b := range priceBuckets {
		if b.label == label {
			return i
		}
	}
	return -1
}

func (b bucketBounds) bucket(count int) HistogramBucket {
	hb := HistogramBucket{Label: b.label, LowerBound: b.lower, Count: count}
	if b.upper > 0 {
		upper := b.upper
		hb.UpperBound = &upper
	}
	return hb
}

// Histogram counts discount prices into the fixed buckets. Every bucket is
// emitted in label order; prices below zero land nowhere.
func Histogram(products []Product) []HistogramBucket {
	buckets := EmptyBuckets()
	for _, p := range products {
		for i := range buckets {
			if buckets[i].Contains(p.DiscountPrice) {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// Scatter emits one point per product with a positive discount.
func Scatter(products []Product) []ScatterPoint {
	out := make([]ScatterPoint, 0, len(products))
	for _, p := range products {
		if !(p.DiscountPercentage > 0) {
			continue
		}
		out = append(out, ScatterPoint{
			Rating:             p.Rating,
			DiscountPercentage: p.DiscountPercentage,
			ProductID:          p.ID,
			Name:               p.Name,
		})
	}
	return out
}
