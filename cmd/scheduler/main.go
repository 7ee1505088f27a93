package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fixmate_backend/internal/bootstrap"
	"fixmate_backend/internal/scheduler"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the scheduler")
	}

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	svc, err := bootstrap.Build(ctx, cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize modules", slog.String("error", err.Error()))
		panic("failed to initialize modules: " + err.Error())
	}
	defer svc.Close()

	dispatcher, err := scheduler.NewOutboxDispatcher(cfg, svc.Outbox, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", slog.String("error", err.Error()))
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	delivery := scheduler.NewOutboxDelivery(svc.Outbox, svc.WhatsApp, svc.Bus, log)
	worker, err := scheduler.NewWorker(cfg, svc.Conversation, svc.Jobs.Service(), delivery, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", slog.String("error", err.Error()))
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	maintenance := svc.Maintenance()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		dispatcher.Run(ctx)
		return nil
	})
	group.Go(func() error {
		maintenance.Run(ctx)
		return nil
	})
	group.Go(func() error {
		worker.Run(ctx)
		return nil
	})
	_ = group.Wait()
}
