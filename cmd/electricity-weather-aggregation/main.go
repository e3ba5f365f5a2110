package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/electricity-weather-aggregation/internal/api/http"
	"github.com/i474232898/electricity-weather-aggregation/internal/config"
	"github.com/i474232898/electricity-weather-aggregation/internal/energy"
	"github.com/i474232898/electricity-weather-aggregation/internal/logger"
	"github.com/i474232898/electricity-weather-aggregation/internal/scheduler"
	"github.com/i474232898/electricity-weather-aggregation/internal/store"
	"github.com/i474232898/electricity-weather-aggregation/internal/weather"
	"github.com/i474232898/electricity-weather-aggregation/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	if cfg.DotenvFile != "" {
		zl.Info("loaded environment file", zap.String("path", cfg.DotenvFile))
	} else {
		zl.Debug("no environment file found")
	}

	defaultCountry, err := energy.LookupCountry(cfg.Prices.DefaultCountry)
	if err != nil {
		zl.Fatal("invalid default price country", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Price and weather persistence.
	st, err := store.Open(ctx, store.DBConfig{
		Driver:     cfg.Database.Driver,
		DSN:        cfg.Database.DSN,
		SQLitePath: cfg.Database.SQLitePath,
	}, zl)
	if err != nil {
		zl.Fatal("failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer st.Close()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTP.Timeout,
	}

	// Sources with resilience (backoff + circuit breaker), tried in order.
	sources := []weather.Source{
		providers.NewOpenMeteoProvider(httpClient, cfg.Weather.Latitude, cfg.Weather.Longitude),
	}
	if cfg.Weather.WeatherAPIKey != "" {
		sources = append(sources, providers.NewWeatherAPIProvider(httpClient, cfg.Weather.WeatherAPIKey, cfg.Weather.Latitude, cfg.Weather.Longitude))
	}
	weatherClient := weather.NewClient(sources, zl)

	aggregator := energy.NewAggregator(st, st, zl)
	reconciler := energy.NewReconciler(st, st, weatherClient, cfg.Sync.Workers, zl)

	// Scheduler that periodically backfills missing weather data.
	sched := scheduler.New(scheduler.Config{
		Interval:    cfg.Sync.Interval,
		Cron:        cfg.Sync.Cron,
		PassTimeout: cfg.Sync.PassTimeout,
	}, reconciler, zl)
	if err := sched.Start(); err != nil {
		zl.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "electricity-weather-aggregation",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// A manual sync pass may take a while.
		WriteTimeout: cfg.Sync.PassTimeout + 10*time.Second,
		BodyLimit:    32 * 1024 * 1024,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Dependencies{
		Aggregator:     aggregator,
		Reconciler:     reconciler,
		Prices:         st,
		Health:         st,
		DefaultCountry: defaultCountry,
		Log:            zl,
	})

	// Start server with graceful shutdown
	go func() {
		zl.Info("http server listening", zap.String("port", cfg.Server.Port), zap.String("db", cfg.Database.Driver))
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			zl.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Error("error during shutdown", zap.Error(err))
	}
}
