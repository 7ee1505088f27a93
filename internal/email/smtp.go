package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendJobNeedsAttentionEmail(ctx context.Context, toEmail string, alert JobAlert, adminURL string) error {
	content, err := renderEmailTemplate("job_needs_attention.html", jobNeedsAttentionEmailData{
		baseEmailData: baseEmailData{
			Title:    "Job needs a fixer",
			Heading:  fmt.Sprintf("Job #%d needs a fixer", alert.JobID),
			CTALabel: "Open job",
			CTAURL:   adminURL,
		},
		JobID:       alert.JobID,
		Category:    alert.Category,
		Status:      alert.Status,
		Description: alert.Description,
		ClientPhone: alert.ClientPhone,
		Declines:    alert.Declines,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectJobNeedsAttentionFmt, alert.JobID), content)
}

func (s *SMTPSender) SendDeliveryFailedEmail(ctx context.Context, toEmail string, failure DeliveryFailure) error {
	content, err := renderEmailTemplate("delivery_failed.html", deliveryFailedEmailData{
		baseEmailData: baseEmailData{
			Title:   "WhatsApp delivery failed",
			Heading: "WhatsApp delivery failed",
		},
		Recipient: failure.Recipient,
		Body:      failure.Body,
		Reason:    failure.Reason,
		Attempts:  failure.Attempts,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDeliveryFailedFmt, failure.Recipient), content)
}
