package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "WBDASH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "WBDASH_APP_ENV"
	EnvPort           = "WBDASH_APP_PORT"
	EnvCatalogBaseURL = "WBDASH_CATALOG_BASE_URL"
	EnvCatalogOffline = "WBDASH_CATALOG_OFFLINE"
	EnvDBDriver       = "WBDASH_DB_DRIVER"
	EnvDBDSN          = "WBDASH_DB_DSN"
	EnvRedisURL       = "WBDASH_REDIS_URL"
	EnvScrapeLimit    = "WBDASH_SCRAPE_DEFAULT_LIMIT"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App          AppConfig
	Catalog      CatalogConfig
	DB           DBConfig
	Redis        RedisConfig
	Scrape       ScrapeConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Catalog.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Scrape.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WBDASH_APP_ENV" default:"dev"`
	Port         string `envconfig:"WBDASH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"WBDASH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WBDASH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CatalogConfig points the dashboard at the remote scraping/catalog service.
type CatalogConfig struct {
	BaseURL       string        `envconfig:"WBDASH_CATALOG_BASE_URL" default:"http://localhost:8000/api"`
	Timeout       time.Duration `envconfig:"WBDASH_CATALOG_TIMEOUT" default:"10s"`
	ScrapeTimeout time.Duration `envconfig:"WBDASH_CATALOG_SCRAPE_TIMEOUT" default:"2m"`
	Offline       bool          `envconfig:"WBDASH_CATALOG_OFFLINE" default:"false"`
	OfflineSeed   int           `envconfig:"WBDASH_CATALOG_OFFLINE_SEED" default:"100"`
}

func (c CatalogConfig) validate() error {
	if c.Offline {
		return nil
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%s is required unless %s is set", EnvCatalogBaseURL, EnvCatalogOffline)
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url, got %q", EnvCatalogBaseURL, c.BaseURL)
	}
	return nil
}

type DBConfig struct {
	Driver string `envconfig:"WBDASH_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"WBDASH_DB_DSN" default:"file:wbdash.db?cache=shared"`

	MaxOpenConns    int           `envconfig:"WBDASH_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"WBDASH_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"WBDASH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WBDASH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch strings.ToLower(db.Driver) {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DriverPostgres, DriverSQLite, db.Driver)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

// RedisConfig is optional; without a URL or address scrapes are only serialized in-process.
type RedisConfig struct {
	URL          string        `envconfig:"WBDASH_REDIS_URL"`
	Address      string        `envconfig:"WBDASH_REDIS_ADDR"`
	Password     string        `envconfig:"WBDASH_REDIS_PASSWORD"`
	DB           int           `envconfig:"WBDASH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WBDASH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WBDASH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WBDASH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WBDASH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WBDASH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type ScrapeConfig struct {
	DefaultLimit    int           `envconfig:"WBDASH_SCRAPE_DEFAULT_LIMIT" default:"50"`
	LockKey         string        `envconfig:"WBDASH_SCRAPE_LOCK_KEY" default:"scrape"`
	LockTTL         time.Duration `envconfig:"WBDASH_SCRAPE_LOCK_TTL" default:"5m"`
	RateLimit       int64         `envconfig:"WBDASH_SCRAPE_RATE_LIMIT" default:"10"`
	RateLimitWindow time.Duration `envconfig:"WBDASH_SCRAPE_RATE_LIMIT_WINDOW" default:"1m"`
}

func (s ScrapeConfig) validate() error {
	if s.DefaultLimit < 1 || s.DefaultLimit > 200 {
		return fmt.Errorf("%s must be within [1,200], got %d", EnvScrapeLimit, s.DefaultLimit)
	}
	return nil
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"WBDASH_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"WBDASH_AUTO_MIGRATE" default:"true"`
}
