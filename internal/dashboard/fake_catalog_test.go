package dashboard

import (
	"context"
	"sync"

	"github.com/angelmondragon/wbdash/internal/catalog"
)

type productCall struct {
	query catalog.Query
	reply chan productReply
}

type productReply struct {
	products []catalog.Product
	err      error
}

// fakeCatalog serves canned slices. When gateProducts is set every
// ListProducts call is handed to the test through productCalls and blocks until
// the test replies. statsGate, when set, holds Statistics until closed.
type fakeCatalog struct {
	mu           sync.Mutex
	products     []catalog.Product
	categories   []string
	stats        *catalog.Statistics
	distribution []catalog.HistogramBucket

	productsErr error
	statsErr    error

	gateProducts bool
	productCalls chan productCall

	statsGate    chan struct{}
	statsEntered chan struct{}

	parseResult  *catalog.ParseResult
	parseErr     error
	parseGate    chan struct{}
	parseEntered chan struct{}
	onParse      func(f *fakeCatalog)

	listCalls  int
	parseCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		productCalls: make(chan productCall),
		categories:   []string{},
		stats:        &catalog.Statistics{},
		distribution: catalog.EmptyBuckets(),
		parseResult:  &catalog.ParseResult{Count: 1, Message: "ok"},
	}
}

func (f *fakeCatalog) ListProducts(ctx context.Context, q catalog.Query) ([]catalog.Product, error) {
	f.mu.Lock()
	f.listCalls++
	gated := f.gateProducts
	products, err := f.products, f.productsErr
	f.mu.Unlock()

	if !gated {
		return products, err
	}
	reply := make(chan productReply, 1)
	select {
	case f.productCalls <- productCall{query: q, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.products, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeCatalog) Categories(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories, nil
}

func (f *fakeCatalog) Statistics(ctx context.Context) (*catalog.Statistics, error) {
	if f.statsGate != nil {
		if f.statsEntered != nil {
			f.statsEntered <- struct{}{}
		}
		<-f.statsGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.statsErr
}

func (f *fakeCatalog) PriceDistribution(ctx context.Context) ([]catalog.HistogramBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.distribution, nil
}

func (f *fakeCatalog) Parse(ctx context.Context, query string, limit int) (*catalog.ParseResult, error) {
	f.mu.Lock()
	f.parseCalls++
	f.mu.Unlock()
	if f.parseGate != nil {
		if f.parseEntered != nil {
			f.parseEntered <- struct{}{}
		}
		<-f.parseGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	if f.onParse != nil {
		f.onParse(f)
	}
	return f.parseResult, nil
}

func (f *fakeCatalog) counts() (list, parse int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.parseCalls
}
