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

	"fixmate_backend/internal/bootstrap"
	apphttp "fixmate_backend/internal/http"
	"fixmate_backend/internal/http/router"
	"fixmate_backend/internal/scheduler"
	"fixmate_backend/internal/webhook"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/db"
	"fixmate_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", slog.String("env", cfg.Env), slog.String("addr", cfg.HTTPAddr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := bootstrap.WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", slog.String("error", err.Error()))
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	svc, err := bootstrap.Build(ctx, cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize modules", slog.String("error", err.Error()))
		panic("failed to initialize modules: " + err.Error())
	}
	defer svc.Close()

	group, ctx := errgroup.WithContext(ctx)

	// Without Redis there is no scheduler process: inbound messages, the
	// outbox and housekeeping all run here.
	var (
		dedup      webhook.Deduplicator
		dispatcher webhook.Dispatcher
	)
	if svc.Queue != nil {
		dedup = webhook.NewRedisDeduplicator(svc.Redis)
		dispatcher = svc.Queue
	} else {
		memDedup := webhook.NewMemoryDeduplicator()
		dedup = memDedup
		dispatcher = webhook.NewBackgroundDispatcher(svc.Conversation.HandleInbound, cfg.GetAsynqConcurrency(), log)

		maintenance := svc.Maintenance()
		maintenance.Add("webhook.dedup_sweep", time.Hour, func(context.Context) (int64, error) {
			return int64(memDedup.Sweep()), nil
		})
		delivery := scheduler.NewOutboxDelivery(svc.Outbox, svc.WhatsApp, svc.Bus, log)
		outboxDispatcher := scheduler.NewLocalOutboxDispatcher(svc.Outbox, delivery, log)

		group.Go(func() error {
			maintenance.Run(ctx)
			return nil
		})
		group.Go(func() error {
			outboxDispatcher.Run(ctx)
			return nil
		})
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	modules := []apphttp.Module{
		svc.Auth,
		svc.Clients,
		svc.Fixers,
		svc.Jobs,
		svc.Payments,
		svc.Exports,
		webhook.NewModule(cfg, dedup, dispatcher, log),
	}
	if svc.Maps != nil {
		modules = append(modules, svc.Maps)
	}

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: svc.Bus,
		Modules:  modules,
	}
	if svc.Redis != nil {
		app.Queue = apphttp.HealthFunc(func(ctx context.Context) error {
			return svc.Redis.Ping(ctx).Err()
		})
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group.Go(func() error {
		log.Info("server listening", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		panic("server error: " + err.Error())
	}
}
