package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"session-handlers/internal/app"
	"session-handlers/internal/common/camunda"
	"session-handlers/internal/common/config"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/common/observability"
	"session-handlers/internal/handlers/routes"
	"session-handlers/pkg/registry"

	"go.uber.org/zap"
)

// defaultJobLock covers the longest scheduled handler default.
const defaultJobLock = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting handler manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New("handler-manager", log)
	defer obs.Shutdown()

	ctx := context.Background()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("dependency setup failed", zap.Error(err))
	}
	defer a.Close()

	if err := retryWithBackoff(func() error { return a.Ready(ctx) }, 15, 2*time.Second, nil, log, "store connection"); err != nil {
		zapLog.Fatal("stores unavailable after retries", zap.Error(err))
	}
	log.Info("stores connected", nil)

	reg, err := routes.Build(a)
	if err != nil {
		zapLog.Fatal("handler registration failed", zap.Error(err))
	}
	log.Info("handlers registered", map[string]interface{}{"handlers": reg.Names()})

	var workers []*camunda.Worker
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(ctx, cfg.Camunda)
			return err
		}, 10, 2*time.Second, camunda.IsRetryable, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		workers = startWorkers(zeebe, cfg, reg, obs, log)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newMux(reg, a.Ready),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			log.Error("error closing Zeebe client", map[string]interface{}{"error": err.Error()})
		}
	}
	log.Info("handler manager stopped", nil)
}

// startWorkers subscribes every scheduled handler under its own name as the
// task type.
func startWorkers(zeebe *camunda.Client, cfg *config.Config, reg *registry.Registry, obs *observability.Observability, log logger.Logger) []*camunda.Worker {
	var workers []*camunda.Worker
	for _, e := range reg.Jobs() {
		if !config.IsHandlerEnabled(cfg, e.Name) {
			log.Info("worker disabled", map[string]interface{}{"taskType": e.Name})
			continue
		}
		lock, maxJobs := jobSettings(cfg, e.Name)
		runner := camunda.NewRunner(e.Name, e.Job, 0, obs, log)
		workers = append(workers, camunda.StartWorker(zeebe.Zeebe(), e.Name, maxJobs, lock, runner.Handle, log))
	}
	return workers
}

// jobSettings returns the broker lock and activation limit for a scheduled
// handler. The handler applies its own run timeout.
func jobSettings(cfg *config.Config, name string) (time.Duration, int) {
	maxJobs := cfg.Camunda.MaxJobsActive
	hc, ok := cfg.Handlers[name]
	if !ok {
		return defaultJobLock, maxJobs
	}
	if hc.MaxJobsActive > 0 {
		maxJobs = hc.MaxJobsActive
	}
	lock := config.GetDuration(hc.Timeout)
	if lock <= 0 {
		lock = defaultJobLock
	}
	return lock, maxJobs
}
