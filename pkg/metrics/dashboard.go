package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeStale   = "stale"
)

// DashboardMetrics records catalog fetches and scrape attempts.
type DashboardMetrics struct {
	fetchDuration *prometheus.HistogramVec
	fetchOutcome  *prometheus.CounterVec
	scrapes       *prometheus.CounterVec
	scrapeSaved   prometheus.Counter
}

// NewDashboardMetrics registers the dashboard collectors on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	if reg == nil {
		return &DashboardMetrics{}
	}
	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_fetch_duration_seconds",
		Help:    "Duration of catalog fetches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"slice"})
	fetchOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_fetch_total",
		Help: "Catalog fetches by slice and outcome.",
	}, []string{"slice", "outcome"})
	scrapes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_scrape_total",
		Help: "Scrape attempts by outcome.",
	}, []string{"outcome"})
	scrapeSaved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_scrape_saved_products_total",
		Help: "Products reported saved by successful scrapes.",
	})
	reg.MustRegister(fetchDuration, fetchOutcome, scrapes, scrapeSaved)
	return &DashboardMetrics{
		fetchDuration: fetchDuration,
		fetchOutcome:  fetchOutcome,
		scrapes:       scrapes,
		scrapeSaved:   scrapeSaved,
	}
}

// ObserveFetch records the duration of a fetch for the named slice.
func (m *DashboardMetrics) ObserveFetch(slice string, d time.Duration) {
	if m == nil || m.fetchDuration == nil {
		return
	}
	m.fetchDuration.WithLabelValues(normalizeLabel(slice)).Observe(d.Seconds())
}

// IncFetch counts a fetch outcome for the named slice.
func (m *DashboardMetrics) IncFetch(slice, outcome string) {
	if m == nil || m.fetchOutcome == nil {
		return
	}
	m.fetchOutcome.WithLabelValues(normalizeLabel(slice), normalizeLabel(outcome)).Inc()
}

// IncScrape counts a scrape attempt; saved is added to the saved-products counter on success.
func (m *DashboardMetrics) IncScrape(outcome string, saved int) {
	if m == nil || m.scrapes == nil {
		return
	}
	m.scrapes.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome == OutcomeSuccess && saved > 0 {
		m.scrapeSaved.Add(float64(saved))
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
