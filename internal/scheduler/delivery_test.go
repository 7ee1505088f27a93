package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"fixmate_backend/internal/events"
	"fixmate_backend/internal/notification/outbox"
	"fixmate_backend/platform/logger"

	"github.com/google/uuid"
)

type memOutbox struct {
	rec       outbox.Record
	lastError *string
	runAt     time.Time
}

func (m *memOutbox) GetByID(context.Context, uuid.UUID) (outbox.Record, error) { return m.rec, nil }

func (m *memOutbox) MarkProcessing(context.Context, uuid.UUID) error {
	m.rec.Status = outbox.StatusProcessing
	m.rec.Attempts++
	return nil
}

func (m *memOutbox) MarkSucceeded(context.Context, uuid.UUID) error {
	m.rec.Status = outbox.StatusSucceeded
	return nil
}

func (m *memOutbox) MarkPending(_ context.Context, _ uuid.UUID, lastError *string, runAt time.Time) error {
	m.rec.Status = outbox.StatusPending
	m.lastError = lastError
	m.runAt = runAt
	return nil
}

func (m *memOutbox) MarkFailed(_ context.Context, _ uuid.UUID, lastError string) error {
	m.rec.Status = outbox.StatusFailed
	m.lastError = &lastError
	return nil
}

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) SendMessage(context.Context, string, string) error {
	s.calls++
	return s.err
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newDelivery(store *memOutbox, sender *stubSender, bus *recordingBus) *OutboxDelivery {
	d := NewOutboxDelivery(store, sender, bus, logger.New("development"))
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	return d
}

func TestDeliverMarksSucceeded(t *testing.T) {
	store := &memOutbox{rec: outbox.Record{ID: uuid.New(), Phone: "+27821234567", Body: "hi", Status: outbox.StatusEnqueued}}
	sender := &stubSender{}

	if err := newDelivery(store, sender, &recordingBus{}).Deliver(context.Background(), store.rec.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if store.rec.Status != outbox.StatusSucceeded || sender.calls != 1 {
		t.Fatalf("expected one successful send, got %s after %d calls", store.rec.Status, sender.calls)
	}
}

func TestDeliverBacksOffOnFailure(t *testing.T) {
	store := &memOutbox{rec: outbox.Record{ID: uuid.New(), Status: outbox.StatusEnqueued, Attempts: 1}}
	d := newDelivery(store, &stubSender{err: errors.New("gateway 503")}, &recordingBus{})

	if err := d.Deliver(context.Background(), store.rec.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if store.rec.Status != outbox.StatusPending {
		t.Fatalf("expected message back in pending, got %s", store.rec.Status)
	}
	if want := d.now().Add(time.Minute); !store.runAt.Equal(want) {
		t.Fatalf("expected second attempt to wait a minute, got %v", store.runAt.Sub(d.now()))
	}
	if store.lastError == nil || *store.lastError != "gateway 503" {
		t.Fatalf("expected last error to be recorded")
	}
}

func TestDeliverGivesUpAndAlerts(t *testing.T) {
	store := &memOutbox{rec: outbox.Record{ID: uuid.New(), Phone: "+27821234567", Body: "Job #4", Status: outbox.StatusEnqueued, Attempts: maxDeliveryAttempts - 1}}
	bus := &recordingBus{}

	if err := newDelivery(store, &stubSender{err: errors.New("blocked")}, bus).Deliver(context.Background(), store.rec.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if store.rec.Status != outbox.StatusFailed {
		t.Fatalf("expected failed status, got %s", store.rec.Status)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one delivery failure event, got %d", len(bus.published))
	}
	failed := bus.published[0].(events.WhatsAppDeliveryFailed)
	if failed.Attempts != maxDeliveryAttempts || failed.Body != "Job #4" {
		t.Fatalf("unexpected event %+v", failed)
	}
}

func TestDeliverSkipsFinishedRows(t *testing.T) {
	store := &memOutbox{rec: outbox.Record{ID: uuid.New(), Status: outbox.StatusSucceeded}}
	sender := &stubSender{}

	if err := newDelivery(store, sender, &recordingBus{}).Deliver(context.Background(), store.rec.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("delivered message must not be sent again")
	}
}

func TestRetryDelayIsCapped(t *testing.T) {
	if got := retryDelay(1); got != baseRetryDelay {
		t.Fatalf("expected base delay, got %v", got)
	}
	if got := retryDelay(3); got != 2*time.Minute {
		t.Fatalf("expected 2m, got %v", got)
	}
	if got := retryDelay(20); got != maxRetryDelay {
		t.Fatalf("expected cap, got %v", got)
	}
}

type claimOnce struct {
	records []outbox.Record
	pending []uuid.UUID
}

func (c *claimOnce) ClaimPending(context.Context, int) ([]outbox.Record, error) {
	out := c.records
	c.records = nil
	return out, nil
}

func (c *claimOnce) MarkPending(_ context.Context, id uuid.UUID, _ *string, _ time.Time) error {
	c.pending = append(c.pending, id)
	return nil
}

type failingDeliverer struct{ calls int }

func (f *failingDeliverer) Deliver(context.Context, uuid.UUID) error {
	f.calls++
	return errors.New("db gone")
}

func TestLocalDispatcherRequeuesOnHandoffError(t *testing.T) {
	id := uuid.New()
	claimer := &claimOnce{records: []outbox.Record{{ID: id}}}
	deliverer := &failingDeliverer{}
	d := NewLocalOutboxDispatcher(claimer, deliverer, logger.New("development"))

	d.poll(context.Background())
	if deliverer.calls != 1 {
		t.Fatalf("expected one delivery attempt, got %d", deliverer.calls)
	}
	if len(claimer.pending) != 1 || claimer.pending[0] != id {
		t.Fatalf("expected row to be returned to pending, got %v", claimer.pending)
	}
}
