package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/wbdash/pkg/catalogapi"
	"github.com/angelmondragon/wbdash/pkg/enums"
	pkgerrors "github.com/angelmondragon/wbdash/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemote(t *testing.T, mux *http.ServeMux) *Remote {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client, err := catalogapi.NewClient(srv.URL + "/api")
	require.NoError(t, err)
	return NewRemote(client)
}

func TestRemoteListProductsMapsQueryAndDerivesDiscount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "category=shoes&max_price=20000&ordering=price", r.URL.RawQuery)
		_, _ = io.WriteString(w, `[{"id":1,"name":"Boots","price":8000,"discount_price":6000,"rating":4.5,"reviews_count":3,"category":"shoes","created_at":"2024-05-01T10:00:00Z"}]`)
	})
	remote := newRemote(t, mux)

	products, err := remote.ListProducts(context.Background(), Query{
		Filter: FilterSpec{MaxPrice: ptr(20000.0), Category: "shoes", SearchQuery: "boots"},
		Sort:   SortSpec{Field: enums.SortFieldPrice, Direction: enums.SortAscending},
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 25.0, products[0].DiscountPercentage)
}

func TestRemoteStatisticsNullsBecomeZero(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/statistics/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total_products":0,"avg_price":null,"avg_rating":null,"avg_reviews":null,"min_price":null,"max_price":null}`)
	})
	stats, err := newRemote(t, mux).Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Statistics{}, *stats)
}

func TestRemotePriceDistribution(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/price-distribution/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"range":"30k+","count":1},{"range":"0-5k","count":3}]`)
	})
	buckets, err := newRemote(t, mux).PriceDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 5)
	assert.Equal(t, "0-5k", buckets[0].Label)
	assert.Equal(t, []int{3, 0, 0, 0, 1}, counts(buckets))
	assert.Nil(t, buckets[4].UpperBound)
}

func TestRemotePriceDistributionUnknownRange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/price-distribution/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"range":"cheap","count":3}]`)
	})
	_, err := newRemote(t, mux).PriceDistribution(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMalformedResponse))
}

func TestRemoteCategoriesAndParse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/categories/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	mux.HandleFunc("/api/parse/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"ok","category":"shoes","count":4}`)
	})
	remote := newRemote(t, mux)

	categories, err := remote.Categories(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)

	res, err := remote.Parse(context.Background(), "shoes", 10)
	require.NoError(t, err)
	assert.Equal(t, ParseResult{Count: 4, Message: "ok", Category: "shoes"}, *res)
}
