package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"skycast/internal/config"
	"skycast/internal/geocode"
	"skycast/internal/handlers"
	"skycast/internal/locate"
	"skycast/internal/session"
	"skycast/internal/weatherapi"
	"skycast/pkg/httpx"
	"skycast/pkg/logging"
	"skycast/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("skycast-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting skycast session server", logging.Fields{
		"version":         "1.0.0",
		"server_host":     cfg.Server.Host,
		"server_port":     cfg.Server.Port,
		"position_source": cfg.Position.Source,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("skycast")

	// Initialize the shared outbound HTTP client
	httpClient := httpx.NewClient(&httpx.Config{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}, logger, metricsCollector)

	// Initialize provider clients
	weatherClient := weatherapi.NewClient(weatherapi.Config{
		BaseURL: cfg.Weather.BaseURL,
		APIKey:  cfg.Weather.APIKey,
	}, httpClient, logger)

	geocodeClient := geocode.NewClient(geocode.Config{
		BaseURL: cfg.Position.BaseURL,
		APIKey:  cfg.Position.APIKey,
	}, httpClient, logger)

	positionSource, err := locate.NewFromConfig(cfg.LocateConfig(), httpClient, logger)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to build position source", logging.Fields{}, err)
	}

	// Initialize the session
	sess := session.New(session.Config{
		PositionTimeout: cfg.Position.Timeout,
	}, positionSource, weatherClient, geocodeClient, logger, metricsCollector)

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sess, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestIDMiddleware)

	// Register routes
	sessionHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Kick off the initial resolution cycle. Failure leaves the session
	// with a user-facing error awaiting manual search; it never stops
	// the server.
	go sess.Resolve(ctx)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
