package scheduler

import (
	"context"
	"log/slog"
	"time"

	"fixmate_backend/internal/notification/outbox"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// OutboxClaimer claims due outbox rows.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string, runAt time.Time) error
}

// OutboxDispatcher polls the outbox and hands due rows on: to the asynq
// queue when Redis is configured, otherwise straight to delivery.
type OutboxDispatcher struct {
	client   *asynq.Client
	queue    string
	repo     OutboxClaimer
	handoff  func(ctx context.Context, rec outbox.Record) error
	interval time.Duration
	log      *logger.Logger
}

func NewOutboxDispatcher(cfg config.SchedulerConfig, repo OutboxClaimer, log *logger.Logger) (*OutboxDispatcher, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	d := &OutboxDispatcher{
		client:   client.client,
		queue:    client.queue,
		repo:     repo,
		interval: 2 * time.Second,
		log:      log,
	}
	d.handoff = d.enqueue
	return d, nil
}

// NewLocalOutboxDispatcher delivers in-process, for deployments without Redis.
func NewLocalOutboxDispatcher(repo OutboxClaimer, delivery Deliverer, log *logger.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		repo: repo,
		handoff: func(ctx context.Context, rec outbox.Record) error {
			return delivery.Deliver(ctx, rec.ID)
		},
		interval: 2 * time.Second,
		log:      log,
	}
}

func (d *OutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.repo == nil || d.handoff == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.poll(ctx)
	}
}

func (d *OutboxDispatcher) poll(ctx context.Context) {
	records, err := d.repo.ClaimPending(ctx, 50)
	if err != nil {
		d.log.Warn("outbox claim failed", slog.String("error", err.Error()))
		return
	}

	for _, rec := range records {
		if err := d.handoff(ctx, rec); err != nil {
			d.requeue(ctx, rec, err)
		}
	}
}

func (d *OutboxDispatcher) enqueue(ctx context.Context, rec outbox.Record) error {
	task, err := NewWhatsAppOutboxDueTask(WhatsAppOutboxDuePayload{OutboxID: rec.ID.String()})
	if err != nil {
		return err
	}
	_, err = d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue), asynq.MaxRetry(0))
	return err
}

func (d *OutboxDispatcher) requeue(ctx context.Context, rec outbox.Record, cause error) {
	msg := cause.Error()
	if err := d.repo.MarkPending(ctx, rec.ID, &msg, time.Now()); err != nil {
		d.log.Warn("outbox requeue failed", slog.String("outbox_id", rec.ID.String()), slog.String("error", err.Error()))
	}
}
