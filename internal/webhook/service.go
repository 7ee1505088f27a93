package webhook

import (
	"context"
	"log/slog"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/logger"
)

// Dispatcher hands an inbound message to the conversation engine, either by
// enqueueing a task or by processing it in the background.
type Dispatcher interface {
	DispatchInbound(ctx context.Context, msg domain.InboundMessage) error
}

// Service accepts webhook payloads.
type Service struct {
	dedup      Deduplicator
	dispatcher Dispatcher
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates the webhook service.
func NewService(dedup Deduplicator, dispatcher Dispatcher, log *logger.Logger) *Service {
	return &Service{dedup: dedup, dispatcher: dispatcher, log: log, now: time.Now}
}

// Ingest dispatches every new message in p and returns how many were
// accepted. A failing dedup store does not block delivery: a possible
// duplicate reply is preferred over a dropped message.
func (s *Service) Ingest(ctx context.Context, p Payload) int {
	log := s.log.WithContext(ctx)
	s.logFailedStatuses(ctx, p)

	accepted := 0
	for _, msg := range ExtractMessages(p, s.now()) {
		if msg.MessageID != "" {
			first, err := s.dedup.FirstSeen(ctx, msg.MessageID)
			if err != nil {
				log.Warn("webhook dedup unavailable", slog.String("message_id", msg.MessageID), slog.String("error", err.Error()))
			} else if !first {
				log.Debug("duplicate webhook message dropped", slog.String("message_id", msg.MessageID))
				continue
			}
		}

		if err := s.dispatcher.DispatchInbound(ctx, msg); err != nil {
			log.Error("inbound message dispatch failed",
				slog.String("message_id", msg.MessageID),
				slog.String("phone", logger.MaskPhone(msg.Phone)),
				slog.String("error", err.Error()))
			continue
		}
		accepted++
	}
	return accepted
}

func (s *Service) logFailedStatuses(ctx context.Context, p Payload) {
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, st := range change.Value.Statuses {
				if st.Status != "failed" {
					continue
				}
				reason := ""
				if len(st.Errors) > 0 {
					reason = st.Errors[0].Title
				}
				s.log.WithContext(ctx).Warn("whatsapp reported delivery failure",
					slog.String("message_id", st.ID),
					slog.String("phone", logger.MaskPhone(st.RecipientID)),
					slog.String("reason", reason))
			}
		}
	}
}

// BackgroundDispatcher processes messages in detached goroutines. It is the
// fallback when no queue is configured; at most limit messages run at once.
type BackgroundDispatcher struct {
	handle  func(ctx context.Context, msg domain.InboundMessage) error
	slots   chan struct{}
	timeout time.Duration
	log     *logger.Logger
}

// NewBackgroundDispatcher wraps handle, typically the conversation
// service's HandleInbound.
func NewBackgroundDispatcher(handle func(ctx context.Context, msg domain.InboundMessage) error, limit int, log *logger.Logger) *BackgroundDispatcher {
	if limit < 1 {
		limit = 10
	}
	return &BackgroundDispatcher{
		handle:  handle,
		slots:   make(chan struct{}, limit),
		timeout: 2 * time.Minute,
		log:     log,
	}
}

func (d *BackgroundDispatcher) DispatchInbound(ctx context.Context, msg domain.InboundMessage) error {
	detached := context.WithoutCancel(ctx)
	go func() {
		d.slots <- struct{}{}
		defer func() { <-d.slots }()

		runCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if err := d.handle(runCtx, msg); err != nil {
			d.log.WithContext(runCtx).Warn("background inbound handling failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}
