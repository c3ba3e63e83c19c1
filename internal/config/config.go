package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// SinkKind selects the output collaborator.
type SinkKind string

const (
	SinkCSV      SinkKind = "csv"
	SinkPostgres SinkKind = "postgres"
)

type AppConfig struct {
	// External endpoints. Empty base URLs fall back to the public services;
	// tests point them at local doubles.
	MarketBaseURL  string
	MarketSymbol   string
	WeatherBaseURL string

	// TimeZone interprets the wall-clock order timestamps and aligns
	// weather date boundaries.
	TimeZone string

	HTTPTimeout time.Duration

	// Weather retry policy.
	RetryMaxAttempts int
	RetryDelay       time.Duration

	// Input CSV directory and output sink.
	DataDir     string
	Sink        SinkKind
	OutputPath  string
	DatabaseURL string

	// RunInterval re-runs the pipeline periodically; 0 runs it once.
	RunInterval time.Duration

	// In-memory run history retention.
	StoreMaxHistory int
	StoreMaxAge     time.Duration

	Port        string
	MetricsPort string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.MarketBaseURL = os.Getenv("MARKET_BASE_URL")
	cfg.MarketSymbol = getenvDefault("MARKET_SYMBOL", "^GSPC")
	cfg.WeatherBaseURL = os.Getenv("WEATHER_BASE_URL")
	cfg.TimeZone = getenvDefault("ORDER_TIME_ZONE", "America/Sao_Paulo")

	timeout, err := getenvDuration("HTTP_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	cfg.RetryMaxAttempts = getenvInt("RETRY_MAX_ATTEMPTS", 3)
	delay, err := getenvDuration("RETRY_DELAY", "5s")
	if err != nil {
		return nil, err
	}
	cfg.RetryDelay = delay

	cfg.DataDir = getenvDefault("DATA_DIR", "data")
	cfg.Sink = SinkKind(getenvDefault("SINK", string(SinkCSV)))
	if cfg.Sink != SinkCSV && cfg.Sink != SinkPostgres {
		return nil, fmt.Errorf("invalid SINK %q: want csv or postgres", cfg.Sink)
	}
	cfg.OutputPath = getenvDefault("OUTPUT_PATH", "enriched_orders.csv")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.Sink == SinkPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("SINK=postgres requires DATABASE_URL")
	}

	interval, err := getenvDuration("RUN_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}
	cfg.RunInterval = interval

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 10)
	maxAge, err := getenvDuration("STORE_MAX_AGE", "24h")
	if err != nil {
		return nil, err
	}
	cfg.StoreMaxAge = maxAge

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.MetricsPort = getenvDefault("METRICS_PORT", "9091")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
