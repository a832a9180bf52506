package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/wbdash/internal/catalog"
	"github.com/angelmondragon/wbdash/internal/dashboard"
	"github.com/angelmondragon/wbdash/internal/scrapes"
	"github.com/angelmondragon/wbdash/pkg/config"
	"github.com/angelmondragon/wbdash/pkg/db"
	"github.com/angelmondragon/wbdash/pkg/logger"
	"github.com/angelmondragon/wbdash/pkg/redis"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type output struct {
	RunID        string             `json:"run_id,omitempty"`
	Count        int                `json:"count"`
	Message      string             `json:"message"`
	Category     string             `json:"category"`
	RefreshError string             `json:"refresh_error,omitempty"`
	Statistics   catalog.Statistics `json:"statistics"`
}

// Command scrape submits one scrape job to the catalog service, records it in
// the history table and prints the refreshed statistics.
func main() {
	logg := logger.New(logger.Options{ServiceName: "scrape"})
	_ = godotenv.Load()

	query := flag.String("query", "", "search query / category to scrape (required)")
	limit := flag.Int("limit", 0, "maximum products to scrape (defaults to WBDASH_SCRAPE_DEFAULT_LIMIT)")
	record := flag.Bool("record", true, "record the attempt in scrape history")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "scrape",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if *limit == 0 {
		*limit = cfg.Scrape.DefaultLimit
	}
	if _, err := dashboard.ValidateScrape(*query, *limit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := catalog.FromConfig(cfg.Catalog)
	requireResource(ctx, logg, "catalog", err)

	coord, err := dashboard.NewCoordinator(dashboard.CoordinatorParams{
		Catalog:      source,
		Logger:       logg,
		FetchTimeout: cfg.Catalog.Timeout,
	})
	requireResource(ctx, logg, "coordinator", err)

	params := dashboard.ScraperParams{
		Catalog:     source,
		Coordinator: coord,
		Logger:      logg,
		Timeout:     cfg.Catalog.ScrapeTimeout,
	}

	if *record {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		defer dbClient.Close()

		history, err := scrapes.NewService(scrapes.NewRepository(dbClient.DB()))
		requireResource(ctx, logg, "scrape history", err)
		params.History = history
	}

	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer redisClient.Close()

		lock, err := dashboard.NewRedisLock(redisClient, redisClient.LockKey(cfg.Scrape.LockKey), cfg.Scrape.LockTTL)
		requireResource(ctx, logg, "scrape lock", err)
		params.Lock = lock
	}

	scraper, err := dashboard.NewScraper(params)
	requireResource(ctx, logg, "scraper", err)

	res, err := scraper.Scrape(ctx, *query, *limit)
	if err != nil {
		logg.Error(ctx, "scrape failed", err)
		os.Exit(1)
	}

	out := output{
		Count:      res.Count,
		Message:    res.Message,
		Category:   res.Category,
		Statistics: coord.View().Statistics,
	}
	if res.RunID != uuid.Nil {
		out.RunID = res.RunID.String()
	}
	if res.RefreshError != nil {
		out.RefreshError = res.RefreshError.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
