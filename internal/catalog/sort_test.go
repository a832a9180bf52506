package catalog

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/angelmondragon/wbdash/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(products []Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestCompareFields(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := Product{Name: "Alpha", Price: 10, DiscountPrice: 9, Rating: 4, ReviewsCount: 3, CreatedAt: now}
	b := Product{Name: "beta", Price: 20, DiscountPrice: 8, Rating: 5, ReviewsCount: 1, CreatedAt: now.Add(time.Hour)}

	asc := func(f enums.SortField) SortSpec { return SortSpec{Field: f, Direction: enums.SortAscending} }
	assert.Equal(t, Before, Compare(a, b, asc(enums.SortFieldName)))
	assert.Equal(t, Before, Compare(a, b, asc(enums.SortFieldPrice)))
	assert.Equal(t, After, Compare(a, b, asc(enums.SortFieldDiscountPrice)))
	assert.Equal(t, Before, Compare(a, b, asc(enums.SortFieldRating)))
	assert.Equal(t, After, Compare(a, b, asc(enums.SortFieldReviewsCount)))
	assert.Equal(t, Before, Compare(a, b, asc(enums.SortFieldCreatedAt)))
	assert.Equal(t, Equal, Compare(a, b, asc("unknown")))
}

func TestCompareNamesAreOrdinal(t *testing.T) {
	s := SortSpec{Field: enums.SortFieldName, Direction: enums.SortAscending}
	assert.Equal(t, Before, Compare(Product{Name: "Zebra"}, Product{Name: "apple"}, s))
}

func TestCompareDescendingIsSwappedAscending(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		a := Product{Price: float64(r.IntN(5)), Name: string(rune('a' + r.IntN(3)))}
		b := Product{Price: float64(r.IntN(5)), Name: string(rune('a' + r.IntN(3)))}
		for _, field := range []enums.SortField{enums.SortFieldPrice, enums.SortFieldName} {
			desc := Compare(a, b, SortSpec{Field: field, Direction: enums.SortDescending})
			asc := Compare(b, a, SortSpec{Field: field, Direction: enums.SortAscending})
			require.Equal(t, asc, desc)
			require.Equal(t, -Compare(b, a, SortSpec{Field: field, Direction: enums.SortDescending}), desc, "antisymmetry")
		}
	}
}

func TestCompareTransitive(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 9))
	s := SortSpec{Field: enums.SortFieldRating, Direction: enums.SortAscending}
	for i := 0; i < 1000; i++ {
		a := Product{Rating: float64(r.IntN(4))}
		b := Product{Rating: float64(r.IntN(4))}
		c := Product{Rating: float64(r.IntN(4))}
		if Compare(a, b, s) != After && Compare(b, c, s) != After {
			require.NotEqual(t, After, Compare(a, c, s))
		}
	}
}

func TestSortProductsStable(t *testing.T) {
	products := []Product{
		{ID: 1, Price: 200},
		{ID: 2, Price: 100},
		{ID: 3, Price: 200},
		{ID: 4, Price: 100},
	}
	asc := SortProducts(products, SortSpec{Field: enums.SortFieldPrice, Direction: enums.SortAscending})
	assert.Equal(t, []int64{2, 4, 1, 3}, ids(asc))

	desc := SortProducts(products, SortSpec{Field: enums.SortFieldPrice, Direction: enums.SortDescending})
	assert.Equal(t, []int64{1, 3, 2, 4}, ids(desc))

	assert.Equal(t, []int64{1, 2, 3, 4}, ids(products), "input must not be mutated")
	assert.NotNil(t, SortProducts(nil, DefaultSort()))
}

func TestSortSpecOrderingAndToggle(t *testing.T) {
	assert.Equal(t, "-created_at", DefaultSort().Ordering())
	assert.Equal(t, "price", SortSpec{Field: enums.SortFieldPrice, Direction: enums.SortAscending}.Ordering())
	assert.Equal(t, "", SortSpec{}.Ordering())

	s := DefaultSort().Toggle(enums.SortFieldCreatedAt)
	assert.Equal(t, SortSpec{Field: enums.SortFieldCreatedAt, Direction: enums.SortAscending}, s)
	s = s.Toggle(enums.SortFieldRating)
	assert.Equal(t, SortSpec{Field: enums.SortFieldRating, Direction: enums.SortAscending}, s)
	s = s.Toggle(enums.SortFieldRating)
	assert.Equal(t, SortSpec{Field: enums.SortFieldRating, Direction: enums.SortDescending}, s)
}
