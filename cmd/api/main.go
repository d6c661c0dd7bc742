// Package main is the entry point for the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/apexaso/insights/internal/analytics"
	"github.com/apexaso/insights/internal/api"
	"github.com/apexaso/insights/internal/audit"
	"github.com/apexaso/insights/internal/auth"
	"github.com/apexaso/insights/internal/cache"
	"github.com/apexaso/insights/internal/config"
	"github.com/apexaso/insights/internal/db"
	"github.com/apexaso/insights/internal/health"
	"github.com/apexaso/insights/internal/identity"
	"github.com/apexaso/insights/internal/middleware"
	"github.com/apexaso/insights/internal/scope"
	"github.com/apexaso/insights/internal/tenant"
	"github.com/apexaso/insights/internal/tracing"
	"github.com/apexaso/insights/internal/warehouse"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Insights API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, validationErrs := config.Load(*configFile)

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if len(validationErrs) > 0 {
		for _, err := range validationErrs {
			logger.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx := context.Background()

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "insights-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporterType,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Authorization store (Postgres)
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Result cache: Redis when configured, otherwise process memory.
	var resultCache cache.ResultCache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		resultCache = cache.NewRedisCache(redisClient, logger)
		logger.Info("using redis result cache")
	} else {
		resultCache = cache.NewMemoryCache()
		logger.Info("using in-memory result cache")
	}

	// Warehouse
	bqClient, err := bigquery.NewClient(ctx, cfg.BigQueryProjectID)
	if err != nil {
		logger.Error("failed to create bigquery client", "error", err)
		os.Exit(1)
	}
	defer bqClient.Close()

	warehouseClient := warehouse.NewBigQueryClient(bqClient, cfg.BigQueryProjectID, cfg.BigQueryDataset, cfg.BigQueryTable)
	planner := warehouse.NewPlanner(warehouseClient, time.Duration(cfg.WarehouseTimeoutMS)*time.Millisecond)

	// Pipeline components
	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)
	resolver := identity.NewResolver(jwtService, identity.NewPostgresStore(conn))
	expander := scope.NewExpander(tenant.NewPostgresStore(conn), cfg.ScopePolicy)

	sink := audit.NewSink(audit.NewPostgresRepository(conn), logger, 256)

	// Metrics
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	pipelineMetrics := analytics.NewMetrics()
	if err := pipelineMetrics.Register(registry); err != nil {
		logger.Error("failed to register pipeline metrics", "error", err)
		os.Exit(1)
	}

	service := analytics.NewService(
		resolver,
		expander,
		resultCache,
		planner,
		sink,
		pipelineMetrics,
		logger,
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
	)

	analyticsHandlers := api.NewAnalyticsHandlers(service, logger)
	healthConfig := api.HealthHandlersConfig{
		DBChecker:        health.NewDBChecker(conn),
		WarehouseChecker: health.NewWarehouseChecker(bqClient),
	}
	if redisClient != nil {
		healthConfig.CacheChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/analytics/query", analyticsHandlers.Query)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeBadRequest)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeBadRequest, "The requested resource was not found", false)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"insights-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Apply middleware: RequestID -> Tracing -> HTTPMetrics -> Logging
	handler := middleware.RequestID(
		middleware.Tracing("insights-api")(
			middleware.HTTPMetrics(httpMetrics)(
				middleware.Logging(logger)(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Drain buffered audit events before the process exits.
	sink.Close()

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracing", "error", err)
	}

	logger.Info("server stopped")
}
