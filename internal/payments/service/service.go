// Package service settles call-out fees: it signs checkout redirects and
// applies the gateway's notifications to the job lifecycle.
package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/logger"

	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// Gateway payment_status values.
const (
	StatusComplete  = "COMPLETE"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// JobLifecycle is the slice of the jobs service payments drive.
type JobLifecycle interface {
	GetByID(ctx context.Context, id int64) (domain.Job, error)
	MarkPaid(ctx context.Context, jobID int64) (domain.Job, error)
	MarkPaymentFailed(ctx context.Context, jobID int64, status domain.PaymentStatus) (domain.Job, error)
}

// Service handles payment links and gateway callbacks.
type Service struct {
	builder *Builder
	jobs    JobLifecycle
	log     *logger.Logger
}

// New creates a payments service.
func New(builder *Builder, jobs JobLifecycle, log *logger.Logger) *Service {
	return &Service{builder: builder, jobs: jobs, log: log}
}

// HandleNotify verifies and applies one gateway notification. Repeated
// notifications for a settled job are accepted without side effects.
func (s *Service) HandleNotify(ctx context.Context, values url.Values) (domain.Job, error) {
	if err := s.builder.Verify(values); err != nil {
		s.log.WithContext(ctx).Warn("payment notification rejected", slog.String("reason", err.Error()))
		return domain.Job{}, err
	}

	jobID, err := ParsePaymentID(values.Get(fieldPaymentID))
	if err != nil {
		return domain.Job{}, err
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}

	status := strings.ToUpper(strings.TrimSpace(values.Get(fieldStatus)))
	switch status {
	case StatusComplete:
		gross, err := ParseAmount(values.Get(fieldGross))
		if err != nil {
			return domain.Job{}, err
		}
		if gross != job.AmountCents {
			s.log.WithContext(ctx).Warn("payment amount mismatch",
				slog.Int64("job_id", jobID), slog.Int64("expected_cents", job.AmountCents), slog.Int64("received_cents", gross))
			return domain.Job{}, apperr.Validation("payment amount does not match job")
		}
		return s.jobs.MarkPaid(ctx, jobID)
	case StatusFailed:
		return s.jobs.MarkPaymentFailed(ctx, jobID, domain.PaymentFailed)
	case StatusCancelled:
		return s.jobs.MarkPaymentFailed(ctx, jobID, domain.PaymentCancelled)
	}
	return domain.Job{}, apperr.Validation("unknown payment status")
}

// CheckoutFor returns the checkout URL for a job the client owns.
func (s *Service) CheckoutFor(ctx context.Context, jobID, clientID int64, isAdmin bool) (string, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.ClientID != clientID && !isAdmin {
		return "", apperr.NotFound("job not found")
	}
	if job.PaymentStatus == domain.PaymentPaid {
		return "", apperr.Conflict("job is already paid")
	}
	if job.Status == domain.JobCancelled {
		return "", apperr.Conflict("job is cancelled")
	}
	return s.builder.PaymentURL(job)
}

// CheckoutQR renders the checkout URL as a PNG QR code.
func (s *Service) CheckoutQR(ctx context.Context, jobID, clientID int64, isAdmin bool) ([]byte, error) {
	link, err := s.CheckoutFor(ctx, jobID, clientID, isAdmin)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, apperr.Internal("could not render payment QR code")
	}
	return png, nil
}

// Status returns the job the client is returning to after checkout.
func (s *Service) Status(ctx context.Context, jobID int64) (domain.Job, error) {
	return s.jobs.GetByID(ctx, jobID)
}
