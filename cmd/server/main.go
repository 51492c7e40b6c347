package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nordform/catalog-admin/internal/audit"
	"github.com/nordform/catalog-admin/internal/catalog"
	"github.com/nordform/catalog-admin/internal/config"
	"github.com/nordform/catalog-admin/internal/importer"
	"github.com/nordform/catalog-admin/internal/jobs"
	"github.com/nordform/catalog-admin/internal/logging"
	"github.com/nordform/catalog-admin/internal/media"
	"github.com/nordform/catalog-admin/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"catalog_url", cfg.Catalog.URL,
		"redis_enabled", cfg.Redis.Addr != "",
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Parse and configure connection pool for the audit log
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		dbName := strings.TrimPrefix(u.Path, "/")
		slog.Info("connected to database", "name", dbName)
	} else {
		slog.Info("connected to database")
	}

	audits := audit.NewService(pool)
	if err := audits.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare audit schema", "error", err)
		os.Exit(1)
	}

	// Job queue is optional: without it every import runs synchronously.
	var queue jobs.Queue
	var redisQueue *jobs.RedisQueue
	if cfg.Redis.Addr != "" {
		redisQueue, err = jobs.NewRedisQueue(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Warn("job queue unavailable, imports will run synchronously", "error", err)
		} else {
			queue = redisQueue
			defer redisQueue.Close()
		}
	} else {
		slog.Info("no REDIS_ADDR configured, imports will run synchronously")
	}

	// Media is optional: without it the upload-URL endpoint returns 503.
	var medias *media.Service
	if cfg.Media.Endpoint != "" {
		medias, err = media.NewService(media.Config{
			Endpoint:  cfg.Media.Endpoint,
			AccessKey: cfg.Media.AccessKey,
			SecretKey: cfg.Media.SecretKey,
			Bucket:    cfg.Media.Bucket,
			UseSSL:    cfg.Media.UseSSL,
			Expiry:    cfg.Media.URLExpiry,
		})
		if err != nil {
			slog.Warn("media storage unavailable, upload URLs disabled", "error", err)
			medias = nil
		} else if err := medias.EnsureBucket(ctx); err != nil {
			slog.Warn("media bucket check failed, upload URLs disabled", "error", err)
			medias = nil
		}
	}

	cms := catalog.NewClient(cfg.Catalog.URL, cfg.Catalog.Timeout)

	retry := jobs.RetryPolicy{
		MaxAttempts: cfg.Import.RetryAttempts,
		Backoff:     cfg.Import.RetryBackoff,
	}
	imports := importer.NewService(cms, queue, retry)

	// Create cancellable context for the background worker
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if redisQueue != nil {
		worker := jobs.NewWorker(redisQueue)
		worker.Handle(importer.TopicProductImport, imports.HandleJob)
		go worker.Run(jobCtx)
		slog.Info("import worker started", "topic", importer.TopicProductImport)
	}

	server := web.NewServer(imports, cms, audits, medias, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop picking up new jobs before closing the listener
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
