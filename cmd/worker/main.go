package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/sitecomply/sitecomply/internal/app"
	"github.com/sitecomply/sitecomply/internal/companies"
	"github.com/sitecomply/sitecomply/internal/compliance"
	"github.com/sitecomply/sitecomply/internal/docstore"
	jobmetrics "github.com/sitecomply/sitecomply/internal/jobs"
	"github.com/sitecomply/sitecomply/internal/platform/cache"
	"github.com/sitecomply/sitecomply/internal/platform/db"
	"github.com/sitecomply/sitecomply/internal/requirements"
	"github.com/sitecomply/sitecomply/internal/subcontractors"
	"github.com/sitecomply/sitecomply/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	docs, err := docstore.NewDisk(cfg.StorageDir)
	if err != nil {
		logger.Error("init document store", slog.Any("error", err))
		os.Exit(1)
	}

	companyService := companies.NewService(
		companies.NewRepository(pool),
		companies.NewFlagCache(redisClient, cfg.FlagCacheTTL),
	)
	requirementService := requirements.NewService(requirements.NewRepository(pool), companyService)
	subcontractorService := subcontractors.NewService(subcontractors.NewRepository(pool), companyService)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	complianceService := compliance.NewService(compliance.ServiceConfig{
		Repo:           compliance.NewRepository(pool),
		Gate:           companyService,
		Requirements:   requirementService,
		Subcontractors: subcontractorService,
		Docs:           docs,
		Notifier:       jobs.NewNotifier(asynqClient, logger),
		Logger:         logger,
	})

	pass := jobs.NewPass(jobs.PassConfig{
		Companies:   companyService,
		Engine:      complianceService,
		Metrics:     jobmetrics.NewMetrics(nil),
		Logger:      logger,
		Concurrency: cfg.SchedulerConcurrency,
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.SchedulerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskComplianceDailyPass, Handler: pass.HandleDailyPass},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ComplianceCron, Task: jobs.NewDailyPassTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
