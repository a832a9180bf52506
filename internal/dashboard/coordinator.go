package dashboard

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/angelmondragon/wbdash/internal/catalog"
	"github.com/angelmondragon/wbdash/pkg/enums"
	"github.com/angelmondragon/wbdash/pkg/logger"
	"github.com/angelmondragon/wbdash/pkg/metrics"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const defaultFetchTimeout = 10 * time.Second

// CoordinatorParams configure the coordinator.
type CoordinatorParams struct {
	Catalog      catalog.Catalog
	Logger       *logger.Logger
	Metrics      *metrics.DashboardMetrics
	FetchTimeout time.Duration
}

// Coordinator is the single mutator of the dashboard State. Transitions are
// serialized by a mutex; fetches run on their own goroutines and report back
// through tagged transitions, so a superseded response is dropped.
type Coordinator struct {
	mu      sync.Mutex
	state   *State
	catalog catalog.Catalog
	logg    *logger.Logger
	metrics *metrics.DashboardMetrics
	timeout time.Duration
}

// NewCoordinator builds a coordinator over an empty state.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Catalog == nil {
		return nil, errors.New("catalog required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Coordinator{
		state:   NewState(),
		catalog: params.Catalog,
		logg:    logg,
		metrics: params.Metrics,
		timeout: timeout,
	}, nil
}

// Pending tracks fetches dispatched by one call.
type Pending struct {
	done      chan struct{}
	mu        sync.Mutex
	remaining int
	err       error
}

func newPending(n int) *Pending {
	p := &Pending{done: make(chan struct{}), remaining: n}
	if n <= 0 {
		close(p.done)
	}
	return p
}

// Done is closed once every fetch has landed (applied or discarded).
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the fetches land or ctx ends. It returns the combined fetch
// errors, or ctx's error.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pending) finish(err error) {
	p.mu.Lock()
	p.err = multierr.Append(p.err, err)
	p.remaining--
	last := p.remaining == 0
	p.mu.Unlock()
	if last {
		close(p.done)
	}
}

// View returns a snapshot of the current state.
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.View()
}

// Load issues the four initial fetches concurrently; each slice is applied as
// soon as it lands.
func (c *Coordinator) Load(ctx context.Context) *Pending {
	c.mu.Lock()
	query := c.state.Query()
	tags := make([]Tag, 0, len(AllSlices))
	for _, slice := range AllSlices {
		tags = append(tags, c.state.Begin(slice))
	}
	c.mu.Unlock()

	pending := newPending(len(tags))
	for _, tag := range tags {
		c.dispatch(ctx, tag, query, pending)
	}
	return pending
}

// SetFilter replaces the filter and, when a server-side clause changed, fetches
// products. Search-only edits complete immediately.
func (c *Coordinator) SetFilter(ctx context.Context, f catalog.FilterSpec) *Pending {
	c.mu.Lock()
	tag, issued := c.state.SetFilter(f)
	query := c.state.Query()
	c.mu.Unlock()

	if !issued {
		return newPending(0)
	}
	pending := newPending(1)
	c.dispatch(ctx, tag, query, pending)
	return pending
}

// SetSearch updates the local name search without a network round trip.
func (c *Coordinator) SetSearch(query string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SetSearch(query)
	return c.state.View()
}

// SetSort replaces the sort and fetches products.
func (c *Coordinator) SetSort(ctx context.Context, sort catalog.SortSpec) *Pending {
	c.mu.Lock()
	tag := c.state.SetSort(sort)
	query := c.state.Query()
	c.mu.Unlock()

	pending := newPending(1)
	c.dispatch(ctx, tag, query, pending)
	return pending
}

// ToggleSort applies the header-click toggle and fetches products.
func (c *Coordinator) ToggleSort(ctx context.Context, field enums.SortField) *Pending {
	c.mu.Lock()
	tag := c.state.ToggleSort(field)
	query := c.state.Query()
	c.mu.Unlock()

	pending := newPending(1)
	c.dispatch(ctx, tag, query, pending)
	return pending
}

// Refresh re-fetches every slice concurrently and commits them in one
// transition, so no partial refresh is ever visible. Fetch errors are combined.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	batch := c.state.BeginBatch()
	c.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	outcomes := make([]Outcome, len(batch.Tags))
	var g errgroup.Group
	for i, tag := range batch.Tags {
		g.Go(func() error {
			start := time.Now()
			res, err := c.fetch(fetchCtx, tag.Slice, batch.Query)
			c.metrics.ObserveFetch(string(tag.Slice), time.Since(start))
			outcomes[i] = Outcome{Tag: tag, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	applied := c.state.CommitBatch(batch, outcomes)
	c.mu.Unlock()

	var combined error
	for _, o := range outcomes {
		c.record(ctx, o.Tag, slices.Contains(applied, o.Tag.Slice), o.Err)
		combined = multierr.Append(combined, o.Err)
	}
	if combined != nil {
		c.logg.Warn(c.logg.WithError(ctx, combined), "dashboard refresh completed with errors")
	} else {
		c.logg.Info(ctx, "dashboard refresh committed")
	}
	return combined
}

func (c *Coordinator) setScraping(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SetScraping(v)
}

// dispatch runs one fetch detached from the caller's cancellation; the response
// is applied only if tag is still the latest when it lands.
func (c *Coordinator) dispatch(ctx context.Context, tag Tag, query catalog.Query, pending *Pending) {
	go func() {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		start := time.Now()
		res, err := c.fetch(fetchCtx, tag.Slice, query)
		c.metrics.ObserveFetch(string(tag.Slice), time.Since(start))

		c.mu.Lock()
		var applied bool
		if err != nil {
			applied = c.state.OnFetchFailed(tag, err)
		} else {
			applied = c.state.OnFetchSucceeded(tag, res)
		}
		c.mu.Unlock()

		c.record(ctx, tag, applied, err)
		if !applied {
			err = nil
		}
		pending.finish(err)
	}()
}

func (c *Coordinator) fetch(ctx context.Context, slice Slice, query catalog.Query) (Result, error) {
	var (
		res Result
		err error
	)
	switch slice {
	case SliceProducts:
		res.Products, err = c.catalog.ListProducts(ctx, query)
	case SliceCategories:
		res.Categories, err = c.catalog.Categories(ctx)
	case SliceStatistics:
		res.Statistics, err = c.catalog.Statistics(ctx)
	case SliceDistribution:
		res.Distribution, err = c.catalog.PriceDistribution(ctx)
	default:
		err = errors.New("unknown slice " + string(slice))
	}
	return res, err
}

func (c *Coordinator) record(ctx context.Context, tag Tag, applied bool, err error) {
	fields := c.logg.WithFields(ctx, map[string]any{
		"slice": string(tag.Slice),
		"tag":   tag.Seq,
	})
	switch {
	case !applied:
		c.metrics.IncFetch(string(tag.Slice), metrics.OutcomeStale)
		c.logg.Debug(fields, "stale catalog response discarded")
	case err != nil:
		c.metrics.IncFetch(string(tag.Slice), metrics.OutcomeFailure)
		c.logg.Warn(c.logg.WithError(fields, err), "catalog fetch failed")
	default:
		c.metrics.IncFetch(string(tag.Slice), metrics.OutcomeSuccess)
		c.logg.Debug(fields, "catalog fetch applied")
	}
}
