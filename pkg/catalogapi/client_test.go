package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/wbdash/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresAbsoluteURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewClient("localhost/api"); err == nil {
		t.Fatal("expected error for relative base url")
	}
	client, err := NewClient("http://catalog.test/api/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.BaseURL() != "http://catalog.test/api" {
		t.Fatalf("unexpected base url %q", client.BaseURL())
	}
}

func TestListProductsSendsOnlySetParams(t *testing.T) {
	minPrice := 5000.0
	minReviews := 10
	var captured string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		captured = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"count":1,"results":[{"id":1,"name":"Boots","price":8000,"discount_price":6000,"discount_percentage":25,"rating":4.5,"reviews_count":12,"category":"shoes","created_at":"2024-05-01T10:00:00Z"}]}`)
	})

	products, err := client.ListProducts(context.Background(), ProductQuery{
		MinPrice:   &minPrice,
		MinReviews: &minReviews,
		Category:   " shoes ",
		Ordering:   "-price",
	})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if captured != "category=shoes&min_price=5000&min_reviews=10&ordering=-price" {
		t.Fatalf("unexpected query %q", captured)
	}
	if len(products) != 1 || products[0].ID != 1 || products[0].DiscountPercentage == nil || *products[0].DiscountPercentage != 25 {
		t.Fatalf("unexpected products %+v", products)
	}
	if products[0].CreatedAt.Year() != 2024 {
		t.Fatalf("created_at not decoded: %v", products[0].CreatedAt)
	}
}

func TestListProductsAcceptsBareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query params, got %q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[{"id":2,"name":"Bag","price":100,"discount_price":90,"rating":4,"reviews_count":1,"category":"bags","created_at":"2024-05-01T10:00:00Z"}]`)
	})
	products, err := client.ListProducts(context.Background(), ProductQuery{})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 1 || products[0].DiscountPercentage != nil {
		t.Fatalf("unexpected products %+v", products)
	}
}

func TestMalformedResponses(t *testing.T) {
	cases := map[string]struct {
		body string
		call func(*Client) error
	}{
		"products object without results": {`{"count":0}`, func(c *Client) error {
			_, err := c.ListProducts(context.Background(), ProductQuery{})
			return err
		}},
		"products garbage": {`<html>`, func(c *Client) error {
			_, err := c.ListProducts(context.Background(), ProductQuery{})
			return err
		}},
		"categories object": {`{"a":1}`, func(c *Client) error {
			_, err := c.Categories(context.Background())
			return err
		}},
		"statistics array": {`[]`, func(c *Client) error {
			_, err := c.Statistics(context.Background())
			return err
		}},
		"distribution null": {`null`, func(c *Client) error {
			_, err := c.PriceDistribution(context.Background())
			return err
		}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			})
			err := tc.call(client)
			if !pkgerrors.IsCode(err, pkgerrors.CodeMalformedResponse) {
				t.Fatalf("expected malformed response, got %v", err)
			}
		})
	}
}

func TestServerErrorCarriesServiceMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"parse failed: upstream blocked"}`)
	})
	_, err := client.Parse(context.Background(), ParseRequest{Query: "shoes", Limit: 10})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeServerError {
		t.Fatalf("expected server error, got %v", err)
	}
	if typed.Message() != "parse failed: upstream blocked" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
	details, _ := typed.Details().(map[string]any)
	if details["status"] != http.StatusInternalServerError {
		t.Fatalf("unexpected details %+v", typed.Details())
	}
}

func TestServerErrorFallsBackToStatusText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.Categories(context.Background())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNetworkUnavailable(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	client, err := NewClient("http://catalog.test/api", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Statistics(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNetworkUnavailable) {
		t.Fatalf("expected network unavailable, got %v", err)
	}
}

func TestParseRequestAndValidation(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost || r.URL.Path != "/api/parse/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req ParseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Query != "shoes" || req.Limit != 50 {
			t.Errorf("unexpected payload %+v", req)
		}
		_, _ = io.WriteString(w, `{"message":"saved 7","category":"shoes","count":7}`)
	})

	if _, err := client.Parse(context.Background(), ParseRequest{Query: "   ", Limit: 50}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("validation must not reach the network")
	}

	resp, err := client.Parse(context.Background(), ParseRequest{Query: " shoes ", Limit: 50})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Count != 7 || resp.Category != "shoes" || !strings.Contains(resp.Message, "7") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestStatisticsNullAverages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total_products":0,"avg_price":null,"avg_rating":null,"min_price":null,"max_price":null,"avg_reviews":null}`)
	})
	stats, err := client.Statistics(context.Background())
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalProducts != 0 || stats.AvgPrice != nil || stats.MaxPrice != nil {
		t.Fatalf("unexpected statistics %+v", stats)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
