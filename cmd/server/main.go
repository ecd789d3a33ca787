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

	"github.com/hibiken/asynq"

	"github.com/sitecomply/sitecomply/internal/app"
	"github.com/sitecomply/sitecomply/internal/calendar"
	"github.com/sitecomply/sitecomply/internal/companies"
	"github.com/sitecomply/sitecomply/internal/compliance"
	compliancehttp "github.com/sitecomply/sitecomply/internal/compliance/http"
	"github.com/sitecomply/sitecomply/internal/docstore"
	"github.com/sitecomply/sitecomply/internal/platform/cache"
	"github.com/sitecomply/sitecomply/internal/platform/db"
	"github.com/sitecomply/sitecomply/internal/requirements"
	"github.com/sitecomply/sitecomply/internal/subcontractors"
	"github.com/sitecomply/sitecomply/jobs"
)

func main() {
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

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	companyService := companies.NewService(
		companies.NewRepository(pool),
		companies.NewFlagCache(redisClient, cfg.FlagCacheTTL),
	)
	requirementService := requirements.NewService(requirements.NewRepository(pool), companyService)
	subcontractorService := subcontractors.NewService(subcontractors.NewRepository(pool), companyService)
	calendarService := calendar.NewService(calendar.NewRepository(pool), companyService)

	complianceService := compliance.NewService(compliance.ServiceConfig{
		Repo:           compliance.NewRepository(pool),
		Gate:           companyService,
		Requirements:   requirementService,
		Subcontractors: subcontractorService,
		Docs:           docs,
		Notifier:       jobs.NewNotifier(asynqClient, logger),
		Logger:         logger,
	})

	router := app.NewRouter(app.RouterConfig{
		Logger:         logger,
		Config:         cfg,
		Companies:      companies.NewHandler(logger, companyService),
		Subcontractors: subcontractors.NewHandler(logger, subcontractorService),
		Requirements:   requirements.NewHandler(logger, requirementService),
		Calendar:       calendar.NewHandler(logger, calendarService),
		Compliance:     compliancehttp.NewHandler(logger, complianceService),
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      http.TimeoutHandler(router, cfg.AppRequestTimeout, "request timed out"),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
