package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/wbdash/api/routes"
	"github.com/angelmondragon/wbdash/internal/catalog"
	"github.com/angelmondragon/wbdash/internal/dashboard"
	"github.com/angelmondragon/wbdash/internal/scrapes"
	"github.com/angelmondragon/wbdash/pkg/config"
	"github.com/angelmondragon/wbdash/pkg/db"
	"github.com/angelmondragon/wbdash/pkg/instance"
	"github.com/angelmondragon/wbdash/pkg/logger"
	"github.com/angelmondragon/wbdash/pkg/metrics"
	"github.com/angelmondragon/wbdash/pkg/migrate"
	"github.com/angelmondragon/wbdash/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	shutdownTimeout = 15 * time.Second
	initialLoadWait = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Info(ctx, "redis not configured; scrapes serialized in-process only")
	}

	source, err := catalog.FromConfig(cfg.Catalog)
	if err != nil {
		logg.Error(ctx, "failed to build catalog client", err)
		os.Exit(1)
	}
	if cfg.Catalog.Offline {
		logg.Warn(ctx, "catalog offline mode: serving generated products")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dashMetrics := metrics.NewDashboardMetrics(registry)

	coord, err := dashboard.NewCoordinator(dashboard.CoordinatorParams{
		Catalog:      source,
		Logger:       logg,
		Metrics:      dashMetrics,
		FetchTimeout: cfg.Catalog.Timeout,
	})
	if err != nil {
		logg.Error(ctx, "failed to create coordinator", err)
		os.Exit(1)
	}

	history, err := scrapes.NewService(scrapes.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create scrape history", err)
		os.Exit(1)
	}

	scraperParams := dashboard.ScraperParams{
		Catalog:     source,
		Coordinator: coord,
		History:     history,
		Logger:      logg,
		Metrics:     dashMetrics,
		Timeout:     cfg.Catalog.ScrapeTimeout,
	}
	routerParams := routes.RouterParams{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Dashboard: coord,
		History:   history,
		Metrics:   metrics.NewHTTPMetrics(registry),
		Gatherer:  registry,
	}
	if redisClient != nil {
		lock, err := dashboard.NewRedisLock(redisClient, redisClient.LockKey(cfg.Scrape.LockKey), cfg.Scrape.LockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create scrape lock", err)
			os.Exit(1)
		}
		scraperParams.Lock = lock
		routerParams.Redis = redisClient
		routerParams.Limiter = redisClient
	}

	scraper, err := dashboard.NewScraper(scraperParams)
	if err != nil {
		logg.Error(ctx, "failed to create scraper", err)
		os.Exit(1)
	}
	routerParams.Scraper = scraper

	loadCtx, cancelLoad := context.WithTimeout(ctx, initialLoadWait)
	if err := coord.Load(ctx).Wait(loadCtx); err != nil {
		logg.Warn(logg.WithError(ctx, err), "initial dashboard load incomplete")
	}
	cancelLoad()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serveCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"catalog":  cfg.Catalog.BaseURL,
		"offline":  cfg.Catalog.Offline,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(routerParams),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serveCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serveCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serveCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serveCtx, "graceful shutdown failed", err)
		}
	}
}
