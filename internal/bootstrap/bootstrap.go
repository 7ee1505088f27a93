// Package bootstrap builds the service graph shared by the API and the
// scheduler. Both processes run the conversation engine and the job
// lifecycle, so both need every module wired the same way.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"fixmate_backend/internal/auth"
	authrepo "fixmate_backend/internal/auth/repository"
	"fixmate_backend/internal/classifier"
	"fixmate_backend/internal/clients"
	"fixmate_backend/internal/conversation"
	"fixmate_backend/internal/email"
	"fixmate_backend/internal/exports"
	"fixmate_backend/internal/fixers"
	"fixmate_backend/internal/jobs"
	"fixmate_backend/internal/maps"
	"fixmate_backend/internal/matching"
	"fixmate_backend/internal/notification"
	"fixmate_backend/internal/notification/outbox"
	"fixmate_backend/internal/payments"
	"fixmate_backend/internal/scheduler"
	"fixmate_backend/internal/voice"
	"fixmate_backend/internal/whatsapp"
	"fixmate_backend/platform/ai/gemini"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/db"
	"fixmate_backend/platform/events"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Services holds the initialized modules.
type Services struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Log       *logger.Logger
	Bus       *events.InMemoryBus
	Validator *validator.Validator

	// Redis and Queue are nil when REDIS_URL is not set.
	Redis *redis.Client
	Queue *scheduler.Client

	WhatsApp     *whatsapp.Client
	Outbox       *outbox.Repository
	Clients      *clients.Module
	Fixers       *fixers.Module
	Jobs         *jobs.Module
	Auth         *auth.Module
	Payments     *payments.Module
	Exports      *exports.Module
	Conversation *conversation.Service
	Notification *notification.Module

	// Maps is nil when geocoding is disabled.
	Maps *maps.Module

	// LinkStore is set when used links live in Postgres and need purging.
	LinkStore *authrepo.Repo

	closers []func()
}

// Build wires every module. It does not start background loops.
func Build(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) (*Services, error) {
	s := &Services{
		Config:    cfg,
		Pool:      pool,
		Log:       log,
		Bus:       events.NewInMemoryBus(log),
		Validator: validator.New(),
	}

	if cfg.GetRedisURL() != "" {
		rdb, err := NewRedisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("redis client: %w", err)
		}
		s.Redis = rdb
		s.closers = append(s.closers, func() { _ = rdb.Close() })

		queue, err := scheduler.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("scheduler client: %w", err)
		}
		s.Queue = queue
		s.closers = append(s.closers, func() { _ = queue.Close() })
	} else {
		log.Warn("REDIS_URL not configured; offer timeouts disabled and inbound messages handled in-process")
	}

	tx := db.NewTxManager(pool)
	s.WhatsApp = whatsapp.NewClient(cfg, log)
	s.Outbox = outbox.New(pool)

	s.Clients = clients.NewModule(pool, s.Validator, log)
	s.Fixers = fixers.NewModule(pool, s.Validator, log)

	var linkStore authrepo.UsedTokenStore
	if s.Redis != nil {
		linkStore = authrepo.NewRedisStore(s.Redis)
	} else {
		s.LinkStore = authrepo.New(pool)
		linkStore = s.LinkStore
	}
	s.Auth = auth.NewModule(linkStore, s.Clients.Service(), s.Fixers.Service(), s.Bus, cfg, s.Validator, log)

	matcher := matching.NewEngine(matching.NewRepository(pool), log)
	s.Jobs = jobs.NewModule(pool, tx, matcher, s.Fixers.Service(), s.Clients.Service(), s.Auth.Service(), s.Bus, cfg, s.Validator, log)
	s.Payments = payments.NewModule(cfg, s.Jobs.Service(), s.Validator, log)
	s.Exports = exports.NewModule(s.Jobs.Service(), s.Validator)

	gen, external := buildAI(ctx, cfg, log)
	classify := classifier.New(classifier.NewHeuristic(), external, cfg.GetClassifierTimeout(), log)
	var textGen classifier.TextGenerator
	if gen != nil {
		textGen = gen
	}
	sentiment := classifier.NewSentimentAnalyzer(textGen, cfg.GetClassifierTimeout(), log)

	s.Conversation = conversation.New(s.Clients.Repository(), tx, classify, sentiment, s.Jobs.Service(), s.WhatsApp, cfg, cfg, log)
	if gen != nil && s.WhatsApp != nil {
		s.Conversation.SetTranscriber(voice.NewTranscriber(s.WhatsApp, gen, buildArchive(ctx, cfg, log), log))
	}
	if geocoder := maps.NewGeocoder(cfg, log); geocoder != nil {
		s.Conversation.SetAddressResolver(geocoder)
		s.Maps = maps.NewModule(geocoder)
	}

	jobsSvc := s.Jobs.Service()
	jobsSvc.SetRatingPrompter(s.Conversation)
	jobsSvc.SetLinkIssuer(s.Auth.Service())
	jobsSvc.SetPaymentLinker(s.Payments.Linker())
	if s.Queue != nil {
		jobsSvc.SetOfferScheduler(s.Queue)
	}

	s.Notification = notification.New(outbox.NewSender(s.Outbox), email.NewSender(cfg), cfg.GetAdminAlertEmails(), cfg.GetAppBaseURL(), log)
	s.Notification.RegisterHandlers(s.Bus)

	return s, nil
}

// Close waits for in-flight event handlers and releases clients.
func (s *Services) Close() {
	s.Bus.Wait()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildAI(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*gemini.Client, classifier.TextClassifier) {
	if !cfg.IsAIEnabled() {
		log.Info("GEMINI_API_KEY not set; using keyword classifier only")
		return nil, nil
	}

	gen, err := gemini.NewClient(ctx, cfg.GetGeminiAPIKey(), cfg.GetGeminiModel())
	if err != nil {
		log.Warn("gemini client unavailable", slog.String("error", err.Error()))
		return nil, nil
	}

	agent, err := classifier.NewAgentClassifier(ctx, cfg.GetGeminiAPIKey(), gen.Model())
	if err != nil {
		log.Warn("classifier agent unavailable", slog.String("error", err.Error()))
		return gen, nil
	}
	return gen, agent
}

func buildArchive(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger) voice.Archive {
	if !cfg.IsMinIOEnabled() {
		return nil
	}
	archive, err := voice.NewMinIOArchive(cfg)
	if err != nil {
		log.Warn("voice note archive disabled", slog.String("error", err.Error()))
		return nil
	}
	if err := archive.EnsureBucketExists(ctx); err != nil {
		log.Warn("voice note bucket unavailable", slog.String("error", err.Error()))
		return nil
	}
	return archive
}

// NewRedisClient connects go-redis using REDIS_URL.
func NewRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}
