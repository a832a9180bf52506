package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/wbdash/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	errorBodyReadLimit    int64 = 4096
	responseBodyReadLimit int64 = 32 << 20
)

var errBaseURLRequired = errors.New("catalog base url is required")

// Client talks to the remote catalog (scraper) service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout of the built-in HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a catalog client rooted at baseURL, e.g. http://localhost:8000/api.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid catalog base url %q", baseURL)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// Product is the wire shape of a catalog product.
type Product struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Price              float64   `json:"price"`
	DiscountPrice      float64   `json:"discount_price"`
	DiscountPercentage *float64  `json:"discount_percentage,omitempty"`
	Rating             float64   `json:"rating"`
	ReviewsCount       int       `json:"reviews_count"`
	Category           string    `json:"category"`
	CreatedAt          time.Time `json:"created_at"`
}

// Statistics is the wire shape of the aggregate statistics endpoint. Averages are
// null when the catalog is empty.
type Statistics struct {
	TotalProducts int      `json:"total_products"`
	AvgPrice      *float64 `json:"avg_price"`
	AvgRating     *float64 `json:"avg_rating"`
	AvgReviews    *float64 `json:"avg_reviews"`
	MinPrice      *float64 `json:"min_price"`
	MaxPrice      *float64 `json:"max_price"`
}

// Bucket is one entry of the price distribution endpoint.
type Bucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// ParseRequest is the scrape submission payload.
type ParseRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// ParseResponse is returned by a successful scrape.
type ParseResponse struct {
	Message  string `json:"message"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ProductQuery carries the server-side filter and ordering parameters. Only set
// fields are sent.
type ProductQuery struct {
	MinPrice   *float64
	MaxPrice   *float64
	MinRating  *float64
	MinReviews *int
	Category   string
	Ordering   string
}

// Values renders the query string parameters.
func (q ProductQuery) Values() url.Values {
	values := url.Values{}
	setFloat := func(key string, v *float64) {
		if v != nil {
			values.Set(key, strconv.FormatFloat(*v, 'f', -1, 64))
		}
	}
	setFloat("min_price", q.MinPrice)
	setFloat("max_price", q.MaxPrice)
	setFloat("min_rating", q.MinRating)
	if q.MinReviews != nil {
		values.Set("min_reviews", strconv.Itoa(*q.MinReviews))
	}
	if category := strings.TrimSpace(q.Category); category != "" {
		values.Set("category", category)
	}
	if ordering := strings.TrimSpace(q.Ordering); ordering != "" {
		values.Set("ordering", ordering)
	}
	return values
}

// ListProducts fetches the products matching q. The service answers either with a
// paginated object carrying "results" or with a bare array.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	raw, err := c.get(ctx, "products/", q.Values())
	if err != nil {
		return nil, err
	}
	return decodeProducts(raw)
}

// Categories lists the known category labels.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	raw, err := c.get(ctx, "categories/", nil)
	if err != nil {
		return nil, err
	}
	var categories []string
	if err := decodeStrict(raw, &categories); err != nil {
		return nil, malformed(err, "decode categories response")
	}
	return categories, nil
}

// Statistics fetches the aggregate statistics.
func (c *Client) Statistics(ctx context.Context) (*Statistics, error) {
	raw, err := c.get(ctx, "statistics/", nil)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, malformed(errors.New("expected object"), "decode statistics response")
	}
	var stats Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, malformed(err, "decode statistics response")
	}
	return &stats, nil
}

// PriceDistribution fetches the server-computed histogram.
func (c *Client) PriceDistribution(ctx context.Context) ([]Bucket, error) {
	raw, err := c.get(ctx, "price-distribution/", nil)
	if err != nil {
		return nil, err
	}
	var buckets []Bucket
	if err := decodeStrict(raw, &buckets); err != nil {
		return nil, malformed(err, "decode price distribution response")
	}
	return buckets, nil
}

// Parse submits a scrape job and returns the saved count.
func (c *Client) Parse(ctx context.Context, req ParseRequest) (*ParseResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scrape query is required")
	}
	if req.Limit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scrape limit must be positive")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal parse request")
	}
	raw, err := c.do(ctx, http.MethodPost, "parse/", nil, payload)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, malformed(errors.New("expected object"), "decode parse response")
	}
	var resp ParseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed(err, "decode parse response")
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}

	endpoint := c.buildURL(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build catalog request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetworkUnavailable, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, serverError(resp.StatusCode, msg)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetworkUnavailable, err, fmt.Sprintf("read %s response", path))
	}
	return raw, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func decodeProducts(raw []byte) ([]Product, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		var products []Product
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, malformed(err, "decode products response")
		}
		return products, nil
	case bytes.HasPrefix(trimmed, []byte("{")):
		var page struct {
			Results *[]Product `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, malformed(err, "decode products response")
		}
		if page.Results == nil {
			return nil, malformed(errors.New("missing results"), "decode products response")
		}
		return *page.Results, nil
	default:
		return nil, malformed(errors.New("expected array or object"), "decode products response")
	}
}

// decodeStrict rejects a JSON null where a collection is expected.
func decodeStrict(raw []byte, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(trimmed, []byte("[")) {
		return errors.New("expected array")
	}
	return json.Unmarshal(trimmed, v)
}

func malformed(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeMalformedResponse, err, msg)
}

func serverError(status int, body []byte) error {
	reason := strings.TrimSpace(string(body))
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			reason = payload.Error
		case payload.Detail != "":
			reason = payload.Detail
		}
	}
	if reason == "" {
		reason = http.StatusText(status)
	}
	return pkgerrors.New(pkgerrors.CodeServerError, reason).WithDetails(map[string]any{
		"status": status,
	})
}
