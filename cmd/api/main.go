package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/app"
	"github.com/xavierca1/broccoli-leads/internal/config"
	"github.com/xavierca1/broccoli-leads/internal/email"
	"github.com/xavierca1/broccoli-leads/internal/infra/cache"
	"github.com/xavierca1/broccoli-leads/internal/infra/database"
	"github.com/xavierca1/broccoli-leads/internal/infra/http/handlers"
	"github.com/xavierca1/broccoli-leads/internal/infra/queue"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/usecase"
	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Database
	db, err := database.NewDBConnection(ctx, cfg.Database.DSN(), database.DefaultPool)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	leadRepo := database.NewLeadRepository(db)

	// 2. Workflow engine
	var (
		engine      workflow.Engine
		localEngine *workflow.LocalEngine
		rabbitMQ    *queue.RabbitMQ
		workerDone  = make(chan struct{})
	)
	close(workerDone)

	switch cfg.Workflow.Engine {
	case "local":
		runner, err := app.NewLeadWorkflow(ctx, cfg, leadRepo)
		if err != nil {
			logger.Fatal("Failed to build lead workflow", zap.Error(err))
		}
		localEngine = workflow.NewLocalEngine(ctx, runner)
		engine = localEngine
		logger.Warn("Using in-process workflow engine; runs do not survive restarts")
	default:
		rabbitMQ, err = app.NewRabbitMQ(cfg.Workflow)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbitMQ.Close()
		engine = queue.NewJobProducer(rabbitMQ.Ch, rabbitMQ.Topology)

		if cfg.Workflow.Embedded {
			workerDone = startEmbeddedWorker(ctx, cfg, rabbitMQ, leadRepo)
		}
	}

	// 3. Optional duplicate-delivery guard
	var (
		guard       usecase.EventGuard
		redisClient *redis.Client
		eventGuard  *cache.EventGuard
	)
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable; duplicate deliveries rely on the lead repository", zap.Error(err))
		} else {
			defer redisClient.Close()
			eventGuard = cache.NewEventGuard(redisClient, 0)
			guard = eventGuard
		}
	}

	// 4. UseCases
	normalizer := email.NewNormalizer(email.Mailbox{
		InboxID:        cfg.Inbox.InboxID,
		OrganizationID: cfg.Inbox.OrganizationID,
		PodID:          cfg.Inbox.PodID,
	})
	receiveEmailUC := usecase.NewReceiveEmailUseCase(normalizer, engine, guard)
	leadsUC := usecase.NewLeadsUseCase(leadRepo)

	// 5. Handlers
	health := handlers.NewHealthHandler(db, nil, nil)
	if rabbitMQ != nil {
		health.Broker = rabbitMQ
	}
	if eventGuard != nil {
		health.Cache = eventGuard
	}

	router := newRouter(cfg.FrontendURL, routeHandlers{
		App:       handlers.NewAppHandler(),
		Email:     handlers.NewEmailHandler(receiveEmailUC),
		Lead:      handlers.NewLeadHandler(leadsUC),
		Dashboard: handlers.NewDashboardHandler(leadsUC),
		Health:    health,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API listening",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("engine", cfg.Workflow.Engine),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	if localEngine != nil {
		localEngine.Wait()
	}
	<-workerDone
}

func startEmbeddedWorker(ctx context.Context, cfg *config.Config, rabbitMQ *queue.RabbitMQ, leads *database.LeadRepository) chan struct{} {
	done := make(chan struct{})

	runner, err := app.NewLeadWorkflow(ctx, cfg, leads)
	if err != nil {
		logger.Fatal("Failed to build lead workflow", zap.Error(err))
	}
	ch, err := rabbitMQ.Conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open worker channel", zap.Error(err))
	}

	worker := queue.NewWorker(ch, runner)
	go func() {
		defer close(done)
		defer ch.Close()
		if err := worker.Start(ctx, rabbitMQ.Topology.Queue); err != nil {
			logger.Error("Embedded worker stopped", zap.Error(err))
		}
	}()

	logger.Info("Embedded worker started", zap.String("queue", rabbitMQ.Topology.Queue))
	return done
}
