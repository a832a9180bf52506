package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/wbdash/internal/catalog"
	pkgerrors "github.com/angelmondragon/wbdash/pkg/errors"
	"github.com/angelmondragon/wbdash/pkg/logger"
	"github.com/angelmondragon/wbdash/pkg/metrics"
	"github.com/google/uuid"
)

const (
	MinScrapeLimit = 1
	MaxScrapeLimit = 200

	defaultScrapeTimeout = 2 * time.Minute
)

// History records scrape attempts.
type History interface {
	Start(ctx context.Context, query string, limit int) (uuid.UUID, error)
	Finish(ctx context.Context, id uuid.UUID, saved int, scrapeErr error) error
}

// ScraperParams configure a Scraper. Lock and History are optional.
type ScraperParams struct {
	Catalog     catalog.Catalog
	Coordinator *Coordinator
	Lock        Lock
	History     History
	Logger      *logger.Logger
	Metrics     *metrics.DashboardMetrics
	Timeout     time.Duration
}

// ScrapeResult reports a successful scrape. RefreshError is set when the
// follow-up refresh failed; the scrape itself still succeeded.
type ScrapeResult struct {
	RunID        uuid.UUID
	Count        int
	Message      string
	Category     string
	RefreshError error
}

// Scraper submits scrape jobs and refreshes the dashboard when they succeed.
// At most one scrape runs per Scraper at a time.
type Scraper struct {
	catalog  catalog.Catalog
	coord    *Coordinator
	lock     Lock
	history  History
	logg     *logger.Logger
	metrics  *metrics.DashboardMetrics
	timeout  time.Duration
	inFlight atomic.Bool
}

// NewScraper builds a Scraper.
func NewScraper(params ScraperParams) (*Scraper, error) {
	if params.Catalog == nil {
		return nil, errors.New("catalog required")
	}
	if params.Coordinator == nil {
		return nil, errors.New("coordinator required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultScrapeTimeout
	}
	return &Scraper{
		catalog: params.Catalog,
		coord:   params.Coordinator,
		lock:    params.Lock,
		history: params.History,
		logg:    logg,
		metrics: params.Metrics,
		timeout: timeout,
	}, nil
}

// InFlight reports whether a scrape is running.
func (s *Scraper) InFlight() bool { return s.inFlight.Load() }

// ValidateScrape checks the arguments without touching the network.
func ValidateScrape(query string, limit int) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "scrape query is required")
	}
	if limit < MinScrapeLimit || limit > MaxScrapeLimit {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("scrape limit must be within [%d,%d]", MinScrapeLimit, MaxScrapeLimit)).
			WithDetails(map[string]any{"limit": limit})
	}
	return query, nil
}

// Scrape validates the request, runs the scrape and, on success, performs an
// atomic refresh of every slice. On failure the dashboard state is untouched
// and the error is returned as is.
func (s *Scraper) Scrape(ctx context.Context, query string, limit int) (*ScrapeResult, error) {
	query, err := ValidateScrape(query, limit)
	if err != nil {
		return nil, err
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a scrape is already in progress")
	}
	defer s.inFlight.Store(false)

	ctx = s.logg.WithFields(ctx, map[string]any{"scrape_query": query, "scrape_limit": limit})

	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire scrape lock")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a scrape is already in progress on another instance")
		}
		defer func() {
			if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
				s.logg.Error(ctx, "failed to release scrape lock", relErr)
			}
		}()
	}

	s.coord.setScraping(true)
	defer s.coord.setScraping(false)

	runID := s.startRun(ctx, query, limit)
	s.logg.Info(ctx, "scrape started")

	scrapeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	res, err := s.catalog.Parse(scrapeCtx, query, limit)
	cancel()
	if err != nil {
		s.finishRun(ctx, runID, 0, err)
		s.metrics.IncScrape(metrics.OutcomeFailure, 0)
		s.logg.Error(ctx, "scrape failed", err)
		return nil, err
	}

	refreshErr := s.coord.Refresh(ctx)
	s.finishRun(ctx, runID, res.Count, nil)
	s.metrics.IncScrape(metrics.OutcomeSuccess, res.Count)
	s.logg.Info(s.logg.WithField(ctx, "saved_count", res.Count), "scrape completed")

	return &ScrapeResult{
		RunID:        runID,
		Count:        res.Count,
		Message:      res.Message,
		Category:     res.Category,
		RefreshError: refreshErr,
	}, nil
}

func (s *Scraper) startRun(ctx context.Context, query string, limit int) uuid.UUID {
	if s.history == nil {
		return uuid.Nil
	}
	id, err := s.history.Start(ctx, query, limit)
	if err != nil {
		s.logg.Error(ctx, "failed to record scrape start", err)
		return uuid.Nil
	}
	return id
}

func (s *Scraper) finishRun(ctx context.Context, id uuid.UUID, saved int, scrapeErr error) {
	if s.history == nil || id == uuid.Nil {
		return
	}
	if err := s.history.Finish(context.WithoutCancel(ctx), id, saved, scrapeErr); err != nil {
		s.logg.Error(ctx, "failed to record scrape finish", err)
	}
}
