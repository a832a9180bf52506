package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/wbdash/api/controllers"
	"github.com/angelmondragon/wbdash/api/middleware"
	"github.com/angelmondragon/wbdash/internal/scrapes"
	"github.com/angelmondragon/wbdash/pkg/config"
	"github.com/angelmondragon/wbdash/pkg/logger"
	"github.com/angelmondragon/wbdash/pkg/metrics"
)

// RouterParams carries everything the HTTP surface needs. Redis, Limiter,
// History, Metrics and Gatherer are optional.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     controllers.Pinger
	Dashboard controllers.DashboardService
	Scraper   controllers.ScrapeRunner
	History   scrapes.Service
	Limiter   middleware.WindowLimiter
	Metrics   *metrics.HTTPMetrics
	Gatherer  prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if p.Metrics != nil {
		r.Use(middleware.Metrics(p.Metrics))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(p)))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	scrapePolicy := middleware.RateLimitPolicy{
		Name:   "scrape",
		Limit:  cfg.Scrape.RateLimit,
		Window: cfg.Scrape.RateLimitWindow,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", controllers.DashboardView(p.Dashboard))
			r.Put("/filters", controllers.DashboardSetFilter(p.Dashboard, logg))
			r.Put("/search", controllers.DashboardSetSearch(p.Dashboard, logg))
			r.Post("/sort", controllers.DashboardSetSort(p.Dashboard, logg))
			r.Post("/refresh", controllers.DashboardRefresh(p.Dashboard, logg))
		})

		r.Route("/scrapes", func(r chi.Router) {
			r.With(middleware.RateLimit(scrapePolicy, p.Limiter, logg)).
				Post("/", controllers.ScrapeSubmit(p.Scraper, p.Dashboard, cfg.Scrape.DefaultLimit, logg))
			if p.History != nil {
				r.Get("/", controllers.ScrapeHistory(p.History, logg))
				r.Get("/{runId}", controllers.ScrapeDetail(p.History, logg))
			}
		})
	})

	return r
}

func readinessDeps(p RouterParams) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if p.DB != nil {
		deps["db"] = p.DB
	}
	if p.Redis != nil {
		deps["redis"] = p.Redis
	}
	return deps
}
