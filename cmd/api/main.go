package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/leadcentral/leadcentral/internal/api/router"
	appconfig "github.com/leadcentral/leadcentral/internal/config"
	"github.com/leadcentral/leadcentral/internal/directory"
	"github.com/leadcentral/leadcentral/internal/notify"
	"github.com/leadcentral/leadcentral/internal/observability/metrics"
	"github.com/leadcentral/leadcentral/internal/prospects"
	"github.com/leadcentral/leadcentral/internal/stats"
	"github.com/leadcentral/leadcentral/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadcentral API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	m := metrics.NewProspectingMetrics(nil)

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		prospectRepo prospects.Repository
		agentRepo    directory.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		prospectRepo = prospects.NewPostgresRepository(pool)

		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		agentRepo = directory.NewPostgresRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		prospectRepo = prospects.NewInMemoryRepository()
		agentRepo = directory.NewInMemoryRepository()
	}

	// Notifications (disabled without a SendGrid key).
	var emailSender notify.EmailSender
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		emailSender = sender
	}
	notifier := notify.NewService(emailSender, agentRepo, cfg.AdminEmail, logger)

	// Core engines.
	engine := prospects.NewDispositionEngine(prospectRepo, notifier, m, logger)
	assigner := prospects.NewAssigner(prospectRepo, agentRepo, m, logger)

	// Statistics, cached in Redis when configured.
	aggregator := stats.NewAggregator(prospectRepo, agentRepo)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = redisClient.Close() }()
	}
	cached := stats.NewCachedAggregator(aggregator, redisClient, cfg.StatsCacheTTL, logger)

	// Handlers.
	prospectsHandler := prospects.NewHandler(prospectRepo, engine, assigner, agentRepo,
		cached, m, logger, int64(cfg.ImportMaxBytes))
	directoryHandler := directory.NewHandler(agentRepo, notifier, logger)
	statsHandler := stats.NewHandler(cached, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Metrics:            m,
		ProspectsHandler:   prospectsHandler,
		DirectoryHandler:   directoryHandler,
		StatsHandler:       statsHandler,
		MetricsHandler:     promhttp.Handler(),
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
