// Package service implements the job lifecycle: creation, fixer dispatch,
// acceptance, completion, cancellation and payment callbacks.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/events"
	"fixmate_backend/internal/jobs/repository"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/db"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	maxDescriptionLength = 2000
	maxCommentLength     = 1000
	maxReasonLength      = 200

	reasonDeclined = "declined"
	reasonTimeout  = "timeout"

	msgCannotAccept   = "job can no longer be accepted"
	msgCannotDecline  = "job can no longer be declined"
	msgCannotComplete = "job cannot be completed"
	msgAlreadyClosed  = "job is already closed"
)

// Matcher selects fixers inside the caller's transaction.
type Matcher interface {
	SelectBestFixer(ctx context.Context, job domain.Job, exclude []int64) (*domain.Fixer, error)
	Reserve(ctx context.Context, fixerID int64) (*domain.Fixer, error)
}

// FixerDirectory reads fixers and charges their platform fee.
type FixerDirectory interface {
	GetByID(ctx context.Context, id int64) (domain.Fixer, error)
	DeductFee(ctx context.Context, fixerID int64, cents int64) error
}

// ClientDirectory reads and locks clients.
type ClientDirectory interface {
	GetByID(ctx context.Context, id int64) (domain.Client, error)
	LockByID(ctx context.Context, id int64) (domain.Client, error)
}

// RatingPrompter moves a client's conversation into the rating flow. It is
// called inside the completion transaction.
type RatingPrompter interface {
	BeginRating(ctx context.Context, clientID, jobID int64) error
}

// LinkIssuer signs single-use fixer action links.
type LinkIssuer interface {
	FixerActionURL(ctx context.Context, jobID, fixerID int64, purpose domain.LinkPurpose) (string, error)
}

// OfferScheduler schedules the expiry of a fixer offer.
type OfferScheduler interface {
	ScheduleOfferTimeout(ctx context.Context, jobID, fixerID int64, after time.Duration) error
}

// PaymentLinker builds the gateway URL a client pays through.
type PaymentLinker interface {
	PaymentURL(job domain.Job) (string, error)
}

// Config is the configuration the lifecycle needs.
type Config interface {
	config.JobsConfig
	config.MatchingConfig
}

// Service manages the job lifecycle.
type Service struct {
	repo    repository.Repository
	tx      db.Transactor
	matcher Matcher
	fixers  FixerDirectory
	clients ClientDirectory
	bus     events.Bus
	cfg     Config
	log     *logger.Logger
	now     func() time.Time
	newRef  func() string

	ratings  RatingPrompter
	links    LinkIssuer
	offers   OfferScheduler
	payments PaymentLinker
}

// New creates a new job lifecycle service.
func New(repo repository.Repository, tx db.Transactor, matcher Matcher, fixers FixerDirectory, clients ClientDirectory, bus events.Bus, cfg Config, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		matcher: matcher,
		fixers:  fixers,
		clients: clients,
		bus:     bus,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		newRef:  newTrackingReference,
	}
}

// SetRatingPrompter sets the conversation hook used on completion.
func (s *Service) SetRatingPrompter(prompter RatingPrompter) {
	s.ratings = prompter
}

// SetLinkIssuer sets the signer for fixer action links.
func (s *Service) SetLinkIssuer(issuer LinkIssuer) {
	s.links = issuer
}

// SetOfferScheduler sets the scheduler for offer timeouts.
func (s *Service) SetOfferScheduler(scheduler OfferScheduler) {
	s.offers = scheduler
}

// SetPaymentLinker sets the payment redirect builder.
func (s *Service) SetPaymentLinker(linker PaymentLinker) {
	s.payments = linker
}

func newTrackingReference() string {
	return "FM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreateAndDispatch records a new job. In immediate dispatch mode the best
// fixer is assigned in the same transaction; in after_payment mode the job
// waits for the payment callback.
func (s *Service) CreateAndDispatch(ctx context.Context, req domain.JobRequest) (domain.DispatchResult, error) {
	description := sanitize.Text(req.Description, maxDescriptionLength)
	if description == "" {
		return domain.DispatchResult{}, apperr.Validation("job description is required")
	}

	params := repository.CreateParams{
		ClientID:            req.ClientID,
		Description:         description,
		Category:            req.Category,
		Status:              domain.JobUnassigned,
		ClientContactNumber: req.ClientContact,
		AmountCents:         req.AmountCents,
	}
	if params.Category == "" {
		params.Category = domain.CategoryGeneral
	}
	if req.Location != nil {
		params.Latitude, params.Longitude = &req.Location.Lat, &req.Location.Lon
	}
	if s.cfg.GetDispatchMode() == config.DispatchAfterPayment {
		params.Status = domain.JobAwaitingPayment
	}

	var result domain.DispatchResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		client, err := s.clients.GetByID(ctx, req.ClientID)
		if err != nil {
			return err
		}

		job, err := s.repo.Create(ctx, params)
		if err != nil {
			return err
		}
		result.Job = job

		if job.Status == domain.JobUnassigned {
			result.Job, result.Fixer, err = s.dispatch(ctx, job, client, nil, false)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.DispatchResult{}, err
	}

	s.log.WithContext(ctx).Info("job created",
		slog.Int64("job_id", result.Job.ID),
		slog.Int64("client_id", result.Job.ClientID),
		slog.String("category", result.Job.Category.String()),
		slog.String("status", string(result.Job.Status)),
	)

	if s.payments != nil && result.Job.AmountCents > 0 {
		url, err := s.payments.PaymentURL(result.Job)
		if err != nil {
			s.log.WithContext(ctx).Warn("payment link unavailable", slog.Int64("job_id", result.Job.ID), slog.String("error", err.Error()))
		} else {
			result.PaymentURL = url
		}
	}
	return result, nil
}

// dispatch runs fixer selection for a job excluding the given fixers. The
// job is assigned to the winner or left waiting for a manual assignment.
func (s *Service) dispatch(ctx context.Context, job domain.Job, client domain.Client, exclude []int64, notifyClient bool) (domain.Job, *domain.Fixer, error) {
	fixer, err := s.matcher.SelectBestFixer(ctx, job, exclude)
	if err != nil {
		return domain.Job{}, nil, err
	}
	if fixer == nil {
		updated, err := s.leaveUnassigned(ctx, job, client, len(exclude), notifyClient)
		return updated, nil, err
	}

	updated, err := s.assign(ctx, job, client, *fixer, notifyClient)
	if err != nil {
		return domain.Job{}, nil, err
	}
	return updated, fixer, nil
}

func (s *Service) assign(ctx context.Context, job domain.Job, client domain.Client, fixer domain.Fixer, notifyClient bool) (domain.Job, error) {
	if !domain.CanTransition(job.Status, domain.JobAssigned) {
		return domain.Job{}, apperr.Conflict(fmt.Sprintf("job in status %s cannot be assigned", job.Status))
	}

	job.Status = domain.JobAssigned
	job.FixerID = &fixer.ID
	updated, err := s.repo.Update(ctx, job)
	if err != nil {
		return domain.Job{}, err
	}

	offerURL, err := s.actionURL(ctx, updated.ID, fixer.ID, domain.LinkFixerOffer)
	if err != nil {
		return domain.Job{}, err
	}

	timeout := s.cfg.GetOfferTimeout()
	event := events.JobDispatched{
		BaseEvent:     events.NewBaseEvent(),
		JobID:         updated.ID,
		ClientPhone:   client.PhoneNumber,
		FixerID:       fixer.ID,
		FixerName:     fixer.FullName,
		FixerPhone:    fixer.PhoneNumber,
		Description:   updated.Description,
		Category:      updated.Category.String(),
		ClientContact: updated.ClientContactNumber,
		OfferURL:      offerURL,
		NotifyClient:  notifyClient,
	}
	db.AfterCommit(ctx, func(ctx context.Context) {
		if s.offers != nil && timeout > 0 {
			if err := s.offers.ScheduleOfferTimeout(ctx, event.JobID, event.FixerID, timeout); err != nil {
				s.log.Error("failed to schedule offer timeout", slog.Int64("job_id", event.JobID), slog.String("error", err.Error()))
			}
		}
		s.bus.Publish(ctx, event)
	})
	return updated, nil
}

func (s *Service) leaveUnassigned(ctx context.Context, job domain.Job, client domain.Client, declines int, notifyClient bool) (domain.Job, error) {
	next := domain.JobUnassigned
	if job.PaymentStatus == domain.PaymentPaid {
		next = domain.JobPaidUnassigned
	}
	if job.Status != next && !domain.CanTransition(job.Status, next) {
		return domain.Job{}, apperr.Conflict(fmt.Sprintf("job in status %s cannot be unassigned", job.Status))
	}

	job.Status = next
	job.FixerID = nil
	updated, err := s.repo.Update(ctx, job)
	if err != nil {
		return domain.Job{}, err
	}

	event := events.JobUnassigned{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        updated.ID,
		ClientPhone:  client.PhoneNumber,
		Description:  updated.Description,
		Category:     updated.Category.String(),
		Status:       string(updated.Status),
		Declines:     declines,
		NotifyClient: notifyClient,
	}
	db.AfterCommit(ctx, func(ctx context.Context) {
		s.bus.Publish(ctx, event)
	})
	return updated, nil
}

func (s *Service) actionURL(ctx context.Context, jobID, fixerID int64, purpose domain.LinkPurpose) (string, error) {
	if s.links == nil {
		return "", nil
	}
	url, err := s.links.FixerActionURL(ctx, jobID, fixerID, purpose)
	if err != nil {
		return "", fmt.Errorf("sign %s link: %w", purpose, err)
	}
	return url, nil
}

// Accept records that the assigned fixer took the job and issues the
// tracking reference.
func (s *Service) Accept(ctx context.Context, jobID, fixerID int64) (domain.Job, error) {
	var out domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		job, err := s.repo.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != domain.JobAssigned || !job.IsAssignedTo(fixerID) {
			return apperr.Conflict(msgCannotAccept)
		}

		fixer, err := s.fixers.GetByID(ctx, fixerID)
		if err != nil {
			return err
		}
		client, err := s.clients.GetByID(ctx, job.ClientID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		ref := s.newRef()
		job.Status = domain.JobAccepted
		job.TrackingReference = &ref
		job.AcceptedAt = &now
		out, err = s.repo.Update(ctx, job)
		if err != nil {
			return err
		}

		completeURL, err := s.actionURL(ctx, job.ID, fixerID, domain.LinkFixerComplete)
		if err != nil {
			return err
		}

		event := events.JobAccepted{
			BaseEvent:         events.NewBaseEvent(),
			JobID:             job.ID,
			ClientPhone:       client.PhoneNumber,
			FixerName:         fixer.FullName,
			FixerPhone:        fixer.PhoneNumber,
			TrackingReference: ref,
			CompleteURL:       completeURL,
		}
		db.AfterCommit(ctx, func(ctx context.Context) {
			s.bus.Publish(ctx, event)
		})
		return nil
	})
	if err != nil {
		return domain.Job{}, err
	}

	s.log.WithContext(ctx).Info("job accepted", slog.Int64("job_id", jobID), slog.Int64("fixer_id", fixerID))
	return out, nil
}

// Decline records that the assigned fixer turned the job down and offers it
// to the next best fixer.
func (s *Service) Decline(ctx context.Context, jobID, fixerID int64) (domain.Job, error) {
	return s.release(ctx, jobID, fixerID, reasonDeclined, true)
}

// ExpireOffer treats an unanswered offer as a decline. It does nothing when
// the job has moved on since the offer was made.
func (s *Service) ExpireOffer(ctx context.Context, jobID, fixerID int64) error {
	_, err := s.release(ctx, jobID, fixerID, reasonTimeout, false)
	return err
}

func (s *Service) release(ctx context.Context, jobID, fixerID int64, reason string, strict bool) (domain.Job, error) {
	var out domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		job, err := s.repo.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != domain.JobAssigned || !job.IsAssignedTo(fixerID) {
			if strict {
				return apperr.Conflict(msgCannotDecline)
			}
			out = job
			return nil
		}

		if err := s.repo.RecordDecline(ctx, job.ID, fixerID, reason); err != nil {
			return err
		}
		declined, err := s.repo.ListDeclinedFixers(ctx, job.ID)
		if err != nil {
			return err
		}
		client, err := s.clients.GetByID(ctx, job.ClientID)
		if err != nil {
			return err
		}

		s.log.WithContext(ctx).Info("fixer released job",
			slog.Int64("job_id", job.ID),
			slog.Int64("fixer_id", fixerID),
			slog.String("reason", reason),
			slog.Int("declines", len(declined)),
		)

		if len(declined) > s.cfg.GetMaxReassignments() {
			out, err = s.leaveUnassigned(ctx, job, client, len(declined), true)
			return err
		}
		out, _, err = s.dispatch(ctx, job, client, declined, true)
		return err
	})
	if err != nil {
		return domain.Job{}, err
	}
	return out, nil
}

// Complete closes an accepted job, deducts the platform fee from the fixer
// and starts the client's rating conversation in the same transaction.
//
// Rows are locked client, then job, then fixer: the order an inbound client
// message takes them in.
func (s *Service) Complete(ctx context.Context, jobID, fixerID int64) (domain.Job, error) {
	var out domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		unlocked, err := s.repo.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if _, err := s.clients.LockByID(ctx, unlocked.ClientID); err != nil {
			return err
		}
		job, err := s.repo.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != domain.JobAccepted || !job.IsAssignedTo(fixerID) {
			return apperr.Conflict(msgCannotComplete)
		}

		fee := s.cfg.GetPlatformFeeCents()
		if err := s.fixers.DeductFee(ctx, fixerID, fee); err != nil {
			return err
		}
		fixer, err := s.fixers.GetByID(ctx, fixerID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		job.Status = domain.JobComplete
		job.FixerFeeStatus = domain.FixerFeeDeducted
		job.CompletedAt = &now
		out, err = s.repo.Update(ctx, job)
		if err != nil {
			return err
		}

		if s.ratings != nil {
			if err := s.ratings.BeginRating(ctx, job.ClientID, job.ID); err != nil {
				return fmt.Errorf("begin rating: %w", err)
			}
		}

		event := events.JobCompleted{
			BaseEvent:  events.NewBaseEvent(),
			JobID:      job.ID,
			FixerPhone: fixer.PhoneNumber,
			FeeCents:   fee,
		}
		if job.TrackingReference != nil {
			event.TrackingReference = *job.TrackingReference
		}
		db.AfterCommit(ctx, func(ctx context.Context) {
			s.bus.Publish(ctx, event)
		})
		return nil
	})
	if err != nil {
		return domain.Job{}, err
	}

	s.log.WithContext(ctx).Info("job completed", slog.Int64("job_id", jobID), slog.Int64("fixer_id", fixerID))
	return out, nil
}

// Cancel closes a job that has not finished yet.
func (s *Service) Cancel(ctx context.Context, jobID int64, reason string) (domain.Job, error) {
	reason = sanitize.Text(reason, maxReasonLength)
	if reason == "" {
		reason = "cancelled by admin"
	}

	var out domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		job, err := s.repo.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return apperr.Conflict(msgAlreadyClosed)
		}
		out, err = s.cancelLocked(ctx, job, reason)
		return err
	})
	if err != nil {
		return domain.Job{}, err
	}
	return out, nil
}

func (s *Service) cancelLocked(ctx context.Context, job domain.Job, reason string) (domain.Job, error) {
	client, err := s.clients.GetByID(ctx, job.ClientID)
	if err != nil {
		return domain.Job{}, err
	}

	var fixerPhone *string
	if job.FixerID != nil {
		fixer, err := s.fixers.GetByID(ctx, *job.FixerID)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return domain.Job{}, err
		}
		if err == nil {
			fixerPhone = &fixer.PhoneNumber
		}
	}

	now := s.now().UTC()
	job.Status = domain.JobCancelled
	job.FixerID = nil
	job.CancelledAt = &now
	updated, err := s.repo.Update(ctx, job)
	if err != nil {
		return domain.Job{}, err
	}

	event := events.JobCancelled{
		BaseEvent:   events.NewBaseEvent(),
		JobID:       updated.ID,
		ClientPhone: client.PhoneNumber,
		FixerPhone:  fixerPhone,
		Reason:      reason,
	}
	db.AfterCommit(ctx, func(ctx context.Context) {
		s.bus.Publish(ctx, event)
	})

	s.log.WithContext(ctx).Info("job cancelled", slog.Int64("job_id", updated.ID), slog.String("reason", reason))
	return updated, nil
}

// MarkPaid records a confirmed payment. Jobs waiting for payment are
// dispatched now. Repeated callbacks are no-ops.
func (s *Service) MarkPaid(ctx context.Context, jobID int64) (domain.Job, error) {
	var out domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		job, err := s.repo.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.PaymentStatus == domain.PaymentPaid {
			out = job
			return nil
		}
		if job.Status == domain.JobCancelled {
			return apperr.Conflict("job was cancelled")
		}

		client, err := s.clients.GetByID(ctx, job.ClientID)
		if err != nil {
			return err
		}

		job.PaymentStatus = domain.PaymentPaid
		switch job.Status {
		case domain.JobAwaitingPayment:
			out, _, err = s.dispatch(ctx, job, client, nil, true)
		case domain.JobUnassigned:
			job.Status = domain.JobPaidUnassigned
			out, err = s.repo.Update(ctx, job)
		default:
			out, err = s.repo.Update(ctx, job)
		}
		if err != nil {
			return err
		}

		event := events.PaymentReceived{
			BaseEvent:   events.NewBaseEvent(),
			JobID:       job.ID,
			ClientPhone: client.PhoneNumber,
			AmountCents: job.AmountCents,
		}
		db.AfterCommit(ctx, func(ctx context.Context) {
			s.bus.Publish(ctx, event)
		})
		return nil
	})
	if err != nil {
		return domain.Job{}, err
	}

	s.log.WithContext(ctx).Info("job paid", slog.Int64("job_id", jobID), slog.String("status", string(out.Status)))
	return out, nil
}

// MarkPaymentFailed records a failed or cancelled payment and cancels the job.
func (s *Service) MarkPaymentFailed(ctx context.Context, jobID int64, status domain.PaymentStatus) (domain.Job, error) {
	if status != domain.PaymentFailed && status != domain.PaymentCancelled {
		return domain.Job{}, apperr.Validation("payment status must be failed or cancelled")
	}

	var out domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		job, err := s.repo.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.PaymentStatus == domain.PaymentPaid {
			return apperr.Conflict("job is already paid")
		}

		job.PaymentStatus = status
		if job.Status.IsTerminal() {
			out, err = s.repo.Update(ctx, job)
			return err
		}
		out, err = s.cancelLocked(ctx, job, "payment "+string(status))
		return err
	})
	if err != nil {
		return domain.Job{}, err
	}
	return out, nil
}

// AssignManually hands an unassigned job to a fixer chosen by an admin.
func (s *Service) AssignManually(ctx context.Context, jobID, fixerID int64) (domain.Job, error) {
	var out domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		job, err := s.repo.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != domain.JobUnassigned && job.Status != domain.JobPaidUnassigned {
			return apperr.Conflict("only unassigned jobs can be assigned manually")
		}

		fixer, err := s.matcher.Reserve(ctx, fixerID)
		if err != nil {
			return err
		}
		client, err := s.clients.GetByID(ctx, job.ClientID)
		if err != nil {
			return err
		}

		out, err = s.assign(ctx, job, client, *fixer, true)
		return err
	})
	if err != nil {
		return domain.Job{}, err
	}

	s.log.WithContext(ctx).Info("job assigned manually", slog.Int64("job_id", jobID), slog.Int64("fixer_id", fixerID))
	return out, nil
}

// RecordRating stores the client's 1-5 rating for a completed job.
func (s *Service) RecordRating(ctx context.Context, clientID, jobID int64, rating int) error {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return apperr.Validation("rating must be between 1 and 5")
	}
	return s.updateRated(ctx, clientID, jobID, func(job *domain.Job) {
		job.Rating = &rating
	})
}

// RecordFeedback stores the client's comment and its sentiment label.
func (s *Service) RecordFeedback(ctx context.Context, clientID, jobID int64, comment, sentiment string) error {
	comment = sanitize.Text(comment, maxCommentLength)
	if sentiment == "" {
		sentiment = domain.SentimentUnknown
	}
	return s.updateRated(ctx, clientID, jobID, func(job *domain.Job) {
		if comment != "" {
			job.RatingComment = &comment
		}
		job.Sentiment = &sentiment
	})
}

func (s *Service) updateRated(ctx context.Context, clientID, jobID int64, apply func(job *domain.Job)) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		job, err := s.repo.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.ClientID != clientID {
			return apperr.NotFound("job not found")
		}
		if job.Status != domain.JobComplete {
			return apperr.Conflict("only completed jobs can be rated")
		}
		apply(&job)
		_, err = s.repo.Update(ctx, job)
		return err
	})
}
