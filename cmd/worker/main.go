package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boobootoo2/medbilldozer-sub001/internal/bootstrap"
	"github.com/boobootoo2/medbilldozer-sub001/internal/config"
	"github.com/boobootoo2/medbilldozer-sub001/internal/observability/logging"
	"github.com/boobootoo2/medbilldozer-sub001/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(os.Stdout, service, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)
	observer := metrics.NewPipelineObserver(workerMetrics, service)

	app, err := bootstrap.NewWorker(ctx, cfg, observer)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "group", cfg.NATSQueueGroup)
	err = app.Queue.SubscribeBatchSubmitted(ctx, func(handlerCtx context.Context, batchID string) error {
		analyzeCtx, cancel := context.WithTimeout(handlerCtx, 15*time.Minute)
		defer cancel()

		start := time.Now()
		workerMetrics.StartBatch()
		if batch, err := app.Batches.GetBatch(analyzeCtx, batchID); err == nil {
			workerMetrics.ObserveQueueLag(service, start.Sub(batch.CreatedAt))
		}

		analyzeErr := app.AnalyzeUC.AnalyzeBatch(analyzeCtx, batchID)
		workerMetrics.FinishBatch(service, time.Since(start), analyzeErr)
		return analyzeErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
