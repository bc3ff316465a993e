package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hiroki-koketsu/taskwall/internal/auth"
	"github.com/hiroki-koketsu/taskwall/internal/config"
	"github.com/hiroki-koketsu/taskwall/internal/handler"
	"github.com/hiroki-koketsu/taskwall/internal/repository"
	"github.com/hiroki-koketsu/taskwall/internal/service"
	"github.com/hiroki-koketsu/taskwall/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

func main() {
	// Create a basic logger for startup (before OTel is initialized)
	startupLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(".")
	if err != nil {
		startupLogger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	startupLogger.Info("starting application",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	ctx := context.Background()

	providers, logger, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		startupLogger.Error("failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := providers.Shutdown(ctx); err != nil {
			startupLogger.Error("failed to shutdown telemetry", slog.Any("error", err))
		}
	}()

	// Record store
	mongoClient, err := repository.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("failed to connect to record store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error("failed to disconnect record store", slog.Any("error", err))
		}
	}()
	logger.Info("MongoDB connected", slog.String("database", cfg.MongoDatabase))

	db := mongoClient.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Error("failed to create indexes", slog.Any("error", err))
		os.Exit(1)
	}

	var (
		taskStore repository.TaskStore = repository.NewMongoTaskStore(db)
		noteStore repository.NoteStore = repository.NewMongoNoteStore(db)
	)

	// Optional list cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("list cache unavailable, continuing without it", slog.Any("error", err))
		} else {
			taskStore = repository.NewCachedTaskStore(taskStore, rdb, cfg.CacheTTL)
			noteStore = repository.NewCachedNoteStore(noteStore, rdb, cfg.CacheTTL)
			logger.Info("list cache enabled", slog.String("addr", cfg.RedisAddr), slog.Duration("ttl", cfg.CacheTTL))
		}
	}

	meter := otel.Meter(cfg.ServiceName)
	metrics, err := telemetry.NewMetrics(meter, taskStore.Count)
	if err != nil {
		logger.Error("failed to create metrics", slog.Any("error", err))
		os.Exit(1)
	}

	tasks := handler.NewTaskHandler(service.NewTaskService(taskStore, logger), logger, metrics)
	notes := handler.NewNoteHandler(service.NewNoteService(noteStore, logger), logger, metrics)
	r := handler.NewRouter(tasks, notes, auth.NewVerifier(cfg.JWTSecret), logger)

	// Wrap router with OpenTelemetry HTTP instrumentation
	otelHandler := otelhttp.NewHandler(r, "http-server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			// Skip tracing for health checks
			return r.URL.Path != "/health"
		}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      otelHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped")
}
