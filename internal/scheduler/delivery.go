package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fixmate_backend/internal/events"
	"fixmate_backend/internal/notification/outbox"
	"fixmate_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	maxDeliveryAttempts = 6
	baseRetryDelay      = 30 * time.Second
	maxRetryDelay       = 30 * time.Minute
)

// OutboxStore is the subset of the outbox repository delivery needs.
type OutboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string, runAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// MessageSender delivers a WhatsApp message to the gateway.
type MessageSender interface {
	SendMessage(ctx context.Context, phone, body string) error
}

// OutboxDelivery sends one outbox row and records the outcome. Failed sends
// go back to pending with exponential backoff until maxDeliveryAttempts,
// after which the row is failed and operators are alerted.
type OutboxDelivery struct {
	store  OutboxStore
	sender MessageSender
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

func NewOutboxDelivery(store OutboxStore, sender MessageSender, bus events.Bus, log *logger.Logger) *OutboxDelivery {
	return &OutboxDelivery{store: store, sender: sender, bus: bus, log: log, now: time.Now}
}

func (d *OutboxDelivery) Deliver(ctx context.Context, id uuid.UUID) error {
	rec, err := d.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load outbox %s: %w", id, err)
	}
	if rec.Status != outbox.StatusEnqueued && rec.Status != outbox.StatusPending {
		// Already handled by an earlier run of the same task.
		return nil
	}

	if err := d.store.MarkProcessing(ctx, id); err != nil {
		return fmt.Errorf("mark outbox %s processing: %w", id, err)
	}
	attempts := rec.Attempts + 1

	sendErr := d.sender.SendMessage(ctx, rec.Phone, rec.Body)
	if sendErr == nil {
		return d.store.MarkSucceeded(ctx, id)
	}

	reason := sendErr.Error()
	log := d.log.WithContext(ctx)
	if attempts >= maxDeliveryAttempts {
		log.DeliveryFailed("whatsapp", rec.Phone, sendErr)
		if err := d.store.MarkFailed(ctx, id, reason); err != nil {
			return fmt.Errorf("mark outbox %s failed: %w", id, err)
		}
		if d.bus != nil {
			d.bus.Publish(ctx, events.WhatsAppDeliveryFailed{
				BaseEvent: events.NewBaseEvent(),
				Phone:     rec.Phone,
				Body:      rec.Body,
				Reason:    reason,
				Attempts:  attempts,
			})
		}
		return nil
	}

	delay := retryDelay(attempts)
	log.Warn("whatsapp delivery will be retried",
		slog.String("outbox_id", id.String()),
		slog.Int("attempt", attempts),
		slog.Duration("retry_in", delay),
		slog.String("error", reason))
	return d.store.MarkPending(ctx, id, &reason, d.now().Add(delay))
}

// retryDelay doubles from baseRetryDelay per attempt, capped at maxRetryDelay.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := baseRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
