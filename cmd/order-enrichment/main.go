package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	httpapi "github.com/ordercontext/order-enrichment/internal/api/http"
	"github.com/ordercontext/order-enrichment/internal/config"
	"github.com/ordercontext/order-enrichment/internal/enrich"
	"github.com/ordercontext/order-enrichment/internal/geo"
	"github.com/ordercontext/order-enrichment/internal/ingest"
	"github.com/ordercontext/order-enrichment/internal/market"
	"github.com/ordercontext/order-enrichment/internal/metrics"
	"github.com/ordercontext/order-enrichment/internal/pipeline"
	"github.com/ordercontext/order-enrichment/internal/providers"
	"github.com/ordercontext/order-enrichment/internal/scheduler"
	"github.com/ordercontext/order-enrichment/internal/sink"
	"github.com/ordercontext/order-enrichment/internal/store"
	"github.com/ordercontext/order-enrichment/internal/weather"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	reg := metrics.NewRegistry()

	// External sources with circuit breakers, wrapped by the fetchers that
	// own batching, retry and failure absorption.
	marketFetcher := market.NewFetcher(providers.NewIndexChart(httpClient, cfg.MarketBaseURL, cfg.MarketSymbol)).
		WithFailureCounter(reg.MarketFetchFailures)
	weatherFetcher := weather.NewFetcher(
		providers.NewOpenMeteoArchive(httpClient, cfg.WeatherBaseURL),
		weather.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, Delay: cfg.RetryDelay},
		geo.DefaultBounds,
		cfg.TimeZone,
	).WithCounters(reg.WeatherCallAttempts, reg.WeatherGroupsSkipped, reg.WeatherGroupsFailed)

	merger, err := enrich.NewMerger(cfg.TimeZone)
	if err != nil {
		log.Fatalf("failed to build merger: %v", err)
	}

	pipe, err := pipeline.New(geo.NewResolver(geo.DefaultBounds), merger, marketFetcher, weatherFetcher, reg)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	loader := ingest.NewLoader(cfg.DataDir, geo.DefaultBounds)

	out, cleanup, err := buildSink(cfg)
	if err != nil {
		log.Fatalf("failed to build sink: %v", err)
	}
	defer cleanup()

	runs := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	job := func(ctx context.Context) error {
		started := time.Now()

		lines, orders, customers, samples, err := loader.Load()
		if err != nil {
			return err
		}

		result, err := pipe.Run(ctx, pipeline.Inputs{
			Lines:     lines,
			Orders:    orders,
			Customers: customers,
			Samples:   samples,
		})
		if err != nil {
			reg.RunsFailed.Inc()
			return err
		}

		if err := out.Write(ctx, result.Records); err != nil {
			reg.RunsFailed.Inc()
			return err
		}

		runs.SaveRun(store.Run{
			StartedAt: started,
			Duration:  time.Since(started),
			Stats:     result.Stats,
			Records:   result.Records,
		})
		return nil
	}

	// First run is synchronous: a structurally broken setup should fail the
	// process, not linger behind a scheduler.
	if err := job(context.Background()); err != nil {
		log.Fatalf("enrichment run failed: %v", err)
	}

	if cfg.RunInterval <= 0 {
		log.Println("run complete; no RUN_INTERVAL configured, exiting")
		return
	}

	sched := scheduler.New(cfg.RunInterval, job)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Metrics on a separate listener.
	go func() {
		addr := ":" + cfg.MetricsPort
		if err := http.ListenAndServe(addr, reg.Handler()); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "order-enrichment",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "order-enrichment",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, runs)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func buildSink(cfg *config.AppConfig) (sink.Sink, func(), error) {
	switch cfg.Sink {
	case config.SinkPostgres:
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return sink.NewPostgresSink(pool), pool.Close, nil
	default:
		return sink.NewCSVSink(cfg.OutputPath), func() {}, nil
	}
}
