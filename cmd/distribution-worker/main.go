// cmd/distribution-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"application-distribution/internal/common/aws"
	"application-distribution/internal/common/camunda"
	"application-distribution/internal/common/config"
	"application-distribution/internal/common/database"
	apphttp "application-distribution/internal/common/http"
	"application-distribution/internal/common/logger"
	"application-distribution/internal/common/observability"
	"application-distribution/internal/distribution/directory"
	"application-distribution/internal/distribution/journal"
	"application-distribution/internal/distribution/models"
	"application-distribution/internal/distribution/series"
	"application-distribution/internal/distribution/submission"
	"application-distribution/pkg/registry"

	ras "application-distribution/internal/workers/distribution/resolve-application-series"
	sd "application-distribution/internal/workers/distribution/submit-distribution"
	va "application-distribution/internal/workers/distribution/validate-allocation"
)

const activityRegistryPath = "configs/activity-registry.json"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting distribution worker...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New("distribution-worker")
	if err != nil {
		zapLog.Warn("otel meter provider unavailable, job metrics limited to prometheus counters", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if dir := cfg.Database.Postgres.MigrationsDir; dir != "" {
		applied, err := pg.Migrate(ctx, os.DirFS(dir))
		if err != nil {
			zapLog.Fatal("journal migration failed", zap.String("dir", dir), zap.Error(err))
		}
		zapLog.Info("journal migrations applied", zap.Strings("files", applied))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Engine ---
	backend := apphttp.NewBackendClient(cfg.Backend)
	typeIDs := issuedToTypeIDs(cfg)

	var cache directory.Cache
	if cfg.Directory.CacheEnabled {
		cache = rdb
	}
	dir := directory.New(backend, cache, directory.Options{
		CacheTTL:        time.Duration(cfg.Directory.CacheTTL) * time.Second,
		IssuedToTypeIDs: typeIDs,
	}, log)

	var notifier submission.Notifier
	if cfg.Notifications.SMS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Notifications.SMS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		notifier = submission.NewSMSNotifier(sns, cfg.Notifications.SMS.CountryCode, log)
	}
	submitter := submission.NewService(backend, journal.New(pg.DB), notifier, log)

	// --- Workers ---
	workers := camunda.NewRegistry(zeebe.GetClient(), log)

	seriesHandler, err := ras.NewHandler(ras.HandlerOptions{
		AppConfig:     cfg,
		Resolver:      series.NewResolver(backend, log),
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		zapLog.Fatal("worker init failed", zap.String("taskType", ras.TaskType), zap.Error(err))
	}
	workers.Start(ras.TaskType, config.GetWorkerConfig(cfg, ras.TaskType), seriesHandler.Handle)

	allocHandler, err := va.NewHandler(va.HandlerOptions{AppConfig: cfg, Logger: log, Observability: obs})
	if err != nil {
		zapLog.Fatal("worker init failed", zap.String("taskType", va.TaskType), zap.Error(err))
	}
	workers.Start(va.TaskType, config.GetWorkerConfig(cfg, va.TaskType), allocHandler.Handle)

	submitHandler, err := sd.NewHandler(sd.HandlerOptions{
		AppConfig:       cfg,
		Submitter:       submitter,
		Mobiles:         dir,
		IssuedToTypeIDs: typeIDs,
		Logger:          log,
		Observability:   obs,
	})
	if err != nil {
		zapLog.Fatal("worker init failed", zap.String("taskType", sd.TaskType), zap.Error(err))
	}
	workers.Start(sd.TaskType, config.GetWorkerConfig(cfg, sd.TaskType), submitHandler.Handle)

	log.Info("distribution workers registered", map[string]interface{}{"running": workers.Running()})
	checkActivityRegistry(zapLog, workers.Running())

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, check := range map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
		} {
			if err := check(checkCtx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Distribution worker stopped")
}

// checkActivityRegistry warns about running workers the modeler catalog does
// not describe.
func checkActivityRegistry(log *zap.Logger, running []string) {
	reg, err := registry.LoadRegistry(activityRegistryPath)
	if err != nil {
		log.Warn("activity registry not loaded", zap.String("path", activityRegistryPath), zap.Error(err))
		return
	}
	if err := reg.Validate(); err != nil {
		log.Warn("activity registry is invalid", zap.Error(err))
	}
	if missing := reg.Missing(running...); len(missing) > 0 {
		log.Warn("workers missing from activity registry", zap.Strings("taskTypes", missing))
	}
}

// issuedToTypeIDs keys the configured audit type ids by recipient kind. Kinds
// left out fall back to the worker defaults.
func issuedToTypeIDs(cfg *config.Config) map[models.RecipientKind]int {
	out := make(map[models.RecipientKind]int, len(models.Kinds))
	for _, kind := range models.Kinds {
		if id, ok := cfg.Distribution.IssuedToTypeIDs[string(kind)]; ok {
			out[kind] = id
		}
	}
	return out
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
