package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/app"
	"github.com/xavierca1/broccoli-leads/internal/config"
	"github.com/xavierca1/broccoli-leads/internal/infra/database"
	"github.com/xavierca1/broccoli-leads/internal/infra/queue"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

// The worker consumes lead-processing jobs from RabbitMQ and runs the lead
// workflow for each one. Prometheus metrics are served on METRICS_PORT.
func main() {
	cfg, cfgErr := config.Load()
	logLevel, logFile := os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")
	if cfg != nil {
		logLevel, logFile = cfg.LogLevel, cfg.LogFile
	}
	if err := logger.Init(logLevel, logFile); err != nil {
		logger.Fatal("Failed to open log file", zap.String("path", logFile), zap.Error(err))
	}
	defer logger.Sync()

	if cfgErr != nil {
		logger.Fatal("Invalid configuration", zap.Error(cfgErr))
	}
	if cfg.Workflow.Engine != "rabbitmq" {
		logger.Fatal("The worker requires WORKFLOW_ENGINE=rabbitmq", zap.String("engine", cfg.Workflow.Engine))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(ctx, cfg.Database.DSN(), database.DefaultPool)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	runner, err := app.NewLeadWorkflow(ctx, cfg, database.NewLeadRepository(db))
	if err != nil {
		logger.Fatal("Failed to build lead workflow", zap.Error(err))
	}

	rabbitMQ, err := app.NewRabbitMQ(cfg.Workflow)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitMQ.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("Worker started",
		zap.String("queue", rabbitMQ.Topology.Queue),
		zap.String("namespace", cfg.Workflow.Namespace),
		zap.String("llm", cfg.LLM.Provider),
	)

	worker := queue.NewWorker(rabbitMQ.Ch, runner)
	workerErr := worker.Start(ctx, rabbitMQ.Topology.Queue)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsServer.Shutdown(shutdownCtx)

	// Start returns nil only on cancellation.
	if workerErr != nil {
		logger.Fatal("Worker stopped", zap.Error(workerErr))
	}

	logger.Info("Worker shut down")
}
