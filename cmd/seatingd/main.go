package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"seating-backend/config"
	"seating-backend/internal/api"
	"seating-backend/internal/db"
	"seating-backend/internal/events"
	"seating-backend/internal/metrics"
	"seating-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "seating-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Printf("database initialized successfully (%s)", cfg.Database.Driver)

	m := metrics.New()
	appStore := store.NewGormStore(gormDB, storeOptions(cfg, m))
	logger.Printf("data store initialized, service duration %s", cfg.Scheduler.ServiceDuration)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		publisher = events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue)
		logger.Printf("publishing reservation events to queue %s", cfg.Events.Queue)
	}

	// Initialize router
	router := api.NewRouter(appStore, api.RouterConfig{
		RateLimit:      rate.Limit(cfg.Server.RateLimitPerSec),
		RateBurst:      cfg.Server.RateLimitBurst,
		CacheTTL:       time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		NormalizePhone: cfg.Customers.NormalizePhone,
		Publisher:      publisher,
		Metrics:        m,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Printf("closing event publisher: %v", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Println("Server gracefully stopped")
}

func storeOptions(cfg *config.Config, m *metrics.Metrics) store.Options {
	const day = 24 * time.Hour
	opts := store.DefaultOptions()
	opts.ServiceDuration = cfg.Scheduler.ServiceDuration
	opts.HorizonPast = time.Duration(cfg.Scheduler.HorizonPastDays) * day
	opts.HorizonFuture = time.Duration(cfg.Scheduler.HorizonFutureDays) * day
	opts.ReadCommitted = cfg.Database.Isolation == "read_committed"
	opts.RetryAttempts = cfg.Scheduler.RetryAttempts
	opts.SlotCacheTTL = time.Duration(cfg.Scheduler.SlotCacheTTLSeconds) * time.Second
	opts.Metrics = m
	return opts
}
