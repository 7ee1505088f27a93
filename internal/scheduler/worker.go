package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// InboundHandler runs the conversation engine for one message.
type InboundHandler interface {
	HandleInbound(ctx context.Context, msg domain.InboundMessage) error
}

// OfferExpirer releases a fixer's unanswered offer.
type OfferExpirer interface {
	ExpireOffer(ctx context.Context, jobID, fixerID int64) error
}

// Deliverer sends one outbox row.
type Deliverer interface {
	Deliver(ctx context.Context, id uuid.UUID) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	inbound  InboundHandler
	offers   OfferExpirer
	delivery Deliverer
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, inbound InboundHandler, offers OfferExpirer, delivery Deliverer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server:   server,
		inbound:  inbound,
		offers:   offers,
		delivery: delivery,
		log:      log,
	}
	w.mux = w.routes()
	return w, nil
}

func (w *Worker) routes() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskInboundMessage, w.handleInboundMessage)
	mux.HandleFunc(TaskWhatsAppOutboxDue, w.handleWhatsAppOutboxDue)
	mux.HandleFunc(TaskOfferTimeout, w.handleOfferTimeout)
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", slog.String("error", err.Error()))
	}
}

// handleInboundMessage never retries: the conversation has already told the
// client to try again, and a retry would answer twice.
func (w *Worker) handleInboundMessage(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseInboundMessagePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := w.inbound.HandleInbound(ctx, payload.Message()); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}

func (w *Worker) handleWhatsAppOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWhatsAppOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.delivery.Deliver(ctx, outboxID)
}

func (w *Worker) handleOfferTimeout(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOfferTimeoutPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.offers.ExpireOffer(ctx, payload.JobID, payload.FixerID)
}
