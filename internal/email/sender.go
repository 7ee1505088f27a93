// Package email sends operator alerts over SMTP.
package email

import (
	"context"

	"fixmate_backend/platform/config"
)

// JobAlert describes a job that needs an operator.
type JobAlert struct {
	JobID       int64
	Category    string
	Status      string
	Description string
	ClientPhone string
	Declines    int
}

// DeliveryFailure describes a WhatsApp message that could not be delivered.
type DeliveryFailure struct {
	Recipient string
	Body      string
	Reason    string
	Attempts  int
}

type Sender interface {
	SendJobNeedsAttentionEmail(ctx context.Context, toEmail string, alert JobAlert, adminURL string) error
	SendDeliveryFailedEmail(ctx context.Context, toEmail string, failure DeliveryFailure) error
}

type NoopSender struct{}

func (NoopSender) SendJobNeedsAttentionEmail(ctx context.Context, toEmail string, alert JobAlert, adminURL string) error {
	return nil
}

func (NoopSender) SendDeliveryFailedEmail(ctx context.Context, toEmail string, failure DeliveryFailure) error {
	return nil
}

// NewSender returns an SMTP sender, or a no-op sender when email is not
// configured.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.IsEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}
