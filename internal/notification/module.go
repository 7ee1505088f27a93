// Package notification turns domain events into WhatsApp messages for
// clients and fixers and email alerts for operators. Domain modules only
// publish events and never talk to the gateways directly.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fixmate_backend/internal/email"
	"fixmate_backend/internal/events"
	"fixmate_backend/platform/logger"
)

// WhatsAppSender sends WhatsApp messages. In production this is the
// outbox, which persists the message and lets the worker deliver it.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// Module handles all notification-related event subscriptions.
type Module struct {
	whatsapp    WhatsAppSender
	mailer      email.Sender
	adminEmails []string
	adminURL    string
	log         *logger.Logger
}

// New creates a new notification module.
func New(whatsapp WhatsAppSender, mailer email.Sender, adminEmails []string, appBaseURL string, log *logger.Logger) *Module {
	if mailer == nil {
		mailer = email.NoopSender{}
	}
	return &Module{
		whatsapp:    whatsapp,
		mailer:      mailer,
		adminEmails: adminEmails,
		adminURL:    strings.TrimRight(appBaseURL, "/") + "/admin/jobs/",
		log:         log,
	}
}

// RegisterHandlers subscribes the module to every event it notifies on.
func (m *Module) RegisterHandlers(bus events.Bus) {
	// Job lifecycle
	bus.Subscribe(events.JobDispatched{}.EventName(), m)
	bus.Subscribe(events.JobUnassigned{}.EventName(), m)
	bus.Subscribe(events.JobAccepted{}.EventName(), m)
	bus.Subscribe(events.JobCompleted{}.EventName(), m)
	bus.Subscribe(events.JobCancelled{}.EventName(), m)

	// Payments and auth
	bus.Subscribe(events.PaymentReceived{}.EventName(), m)
	bus.Subscribe(events.LoginLinkRequested{}.EventName(), m)

	bus.Subscribe(events.WhatsAppDeliveryFailed{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.JobDispatched:
		return m.handleJobDispatched(ctx, e)
	case events.JobUnassigned:
		return m.handleJobUnassigned(ctx, e)
	case events.JobAccepted:
		return m.handleJobAccepted(ctx, e)
	case events.JobCompleted:
		return m.send(ctx, e.FixerPhone, fixerCompletedMessage(e))
	case events.JobCancelled:
		return m.handleJobCancelled(ctx, e)
	case events.PaymentReceived:
		return m.send(ctx, e.ClientPhone, paymentReceivedMessage(e))
	case events.LoginLinkRequested:
		return m.send(ctx, e.Phone, loginLinkMessage(e))
	case events.WhatsAppDeliveryFailed:
		return m.handleDeliveryFailed(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleJobDispatched(ctx context.Context, e events.JobDispatched) error {
	if err := m.send(ctx, e.FixerPhone, fixerOfferMessage(e)); err != nil {
		return err
	}
	if !e.NotifyClient {
		return nil
	}
	return m.send(ctx, e.ClientPhone, clientDispatchedMessage(e))
}

func (m *Module) handleJobUnassigned(ctx context.Context, e events.JobUnassigned) error {
	if e.NotifyClient {
		if err := m.send(ctx, e.ClientPhone, clientUnassignedMessage(e)); err != nil {
			return err
		}
	}

	alert := email.JobAlert{
		JobID:       e.JobID,
		Category:    e.Category,
		Status:      e.Status,
		Description: e.Description,
		ClientPhone: e.ClientPhone,
		Declines:    e.Declines,
	}
	adminURL := fmt.Sprintf("%s%d", m.adminURL, e.JobID)
	return m.alertAdmins(ctx, "job_needs_attention", func(to string) error {
		return m.mailer.SendJobNeedsAttentionEmail(ctx, to, alert, adminURL)
	})
}

func (m *Module) handleJobAccepted(ctx context.Context, e events.JobAccepted) error {
	if err := m.send(ctx, e.ClientPhone, clientAcceptedMessage(e)); err != nil {
		return err
	}
	return m.send(ctx, e.FixerPhone, fixerAcceptedMessage(e))
}

func (m *Module) handleJobCancelled(ctx context.Context, e events.JobCancelled) error {
	if err := m.send(ctx, e.ClientPhone, clientCancelledMessage(e)); err != nil {
		return err
	}
	if e.FixerPhone == nil || *e.FixerPhone == "" {
		return nil
	}
	return m.send(ctx, *e.FixerPhone, fixerCancelledMessage(e))
}

func (m *Module) handleDeliveryFailed(ctx context.Context, e events.WhatsAppDeliveryFailed) error {
	failure := email.DeliveryFailure{
		Recipient: e.Phone,
		Body:      e.Body,
		Reason:    e.Reason,
		Attempts:  e.Attempts,
	}
	return m.alertAdmins(ctx, "delivery_failed", func(to string) error {
		return m.mailer.SendDeliveryFailedEmail(ctx, to, failure)
	})
}

func (m *Module) send(ctx context.Context, phoneNumber, message string) error {
	if m.whatsapp == nil || phoneNumber == "" {
		return nil
	}
	if err := m.whatsapp.SendMessage(ctx, phoneNumber, message); err != nil {
		m.log.WithContext(ctx).DeliveryFailed("whatsapp", phoneNumber, err)
		return err
	}
	return nil
}

func (m *Module) alertAdmins(ctx context.Context, kind string, send func(to string) error) error {
	var firstErr error
	for _, to := range m.adminEmails {
		if err := send(to); err != nil {
			m.log.WithContext(ctx).Error("admin alert failed", slog.String("kind", kind), slog.String("to", to), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
