// Package conversation runs the per-client WhatsApp dialogue that turns
// free-text messages into dispatched jobs and collects ratings afterwards.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fixmate_backend/internal/clients/repository"
	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/db"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/phone"
)

// Sender delivers a WhatsApp text to a phone number.
type Sender interface {
	SendMessage(ctx context.Context, phone, body string) error
}

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, msg domain.InboundMessage) (string, error)
}

// Service loads, advances and saves conversations. Every inbound message is
// handled inside one transaction holding the client row lock, so messages
// from the same number are applied strictly one after another.
type Service struct {
	store       repository.ConversationStore
	tx          db.Transactor
	machine     *Machine
	sender      Sender
	transcriber Transcriber
	staleAfter  time.Duration
	log         *logger.Logger
	now         func() time.Time
}

// New creates the conversation service.
func New(
	store repository.ConversationStore,
	tx db.Transactor,
	classifier Classifier,
	sentiment SentimentAnalyzer,
	jobs JobGateway,
	sender Sender,
	fees config.JobsConfig,
	cfg config.ConversationConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		store:      store,
		tx:         tx,
		machine:    NewMachine(classifier, sentiment, jobs, store, fees),
		sender:     sender,
		staleAfter: cfg.GetConversationStaleAfter(),
		log:        log,
		now:        time.Now,
	}
}

// SetTranscriber enables voice notes. Without one, voice notes get a
// "please type" reply.
func (s *Service) SetTranscriber(t Transcriber) {
	s.transcriber = t
}

// SetAddressResolver enables typed addresses in place of location pins.
func (s *Service) SetAddressResolver(r AddressResolver) {
	s.machine.SetAddressResolver(r)
}

// HandleInbound applies one inbound message and sends the resulting replies
// after the new state is committed. On failure the client is asked to try
// again and the stored conversation is left untouched.
func (s *Service) HandleInbound(ctx context.Context, msg domain.InboundMessage) error {
	number := phone.NormalizeE164(msg.Phone)
	if number == "" {
		return apperr.Validation("inbound message has no sender")
	}
	if msg.MessageID != "" {
		ctx = context.WithValue(ctx, logger.MessageIDKey, msg.MessageID)
	}
	log := s.log.WithContext(ctx)

	text := msg.Text
	if msg.IsVoiceNote() {
		transcript, err := s.transcribe(ctx, msg)
		if err != nil {
			log.Warn("voice note transcription failed", slog.String("phone", logger.MaskPhone(number)), slog.String("error", err.Error()))
			s.reply(ctx, number, msgVoiceFailed)
			return nil
		}
		text = transcript
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		client, err := s.store.GetOrCreateForUpdate(ctx, number)
		if err != nil {
			return err
		}

		current := s.current(ctx, client)
		outcome, err := s.machine.Handle(ctx, client, current, Input{Text: text, Location: msg.Location})
		if err != nil {
			return err
		}
		if err := s.save(ctx, client, outcome.Next); err != nil {
			return err
		}

		for _, body := range outcome.Replies {
			db.AfterCommit(ctx, func(ctx context.Context) {
				s.reply(ctx, client.PhoneNumber, body)
			})
		}
		return nil
	})
	if err != nil {
		log.Error("inbound message failed", slog.String("phone", logger.MaskPhone(number)), slog.String("error", err.Error()))
		s.reply(ctx, number, msgTryAgain)
		return fmt.Errorf("handle inbound message: %w", err)
	}
	return nil
}

func (s *Service) transcribe(ctx context.Context, msg domain.InboundMessage) (string, error) {
	if s.transcriber == nil {
		return "", fmt.Errorf("voice notes are not enabled")
	}
	transcript, err := s.transcriber.Transcribe(ctx, msg)
	if err != nil {
		return "", err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", fmt.Errorf("empty transcript")
	}
	return transcript, nil
}

// current decodes the stored step. Undecodable or stale conversations start
// over from idle.
func (s *Service) current(ctx context.Context, client domain.Client) Step {
	if client.ConversationState == nil {
		return Idle{}
	}

	log := s.log.WithContext(ctx)
	if s.staleAfter > 0 && client.ConversationUpdatedAt != nil && s.now().Sub(*client.ConversationUpdatedAt) > s.staleAfter {
		log.Info("stale conversation reset", slog.Int64("client_id", client.ID), slog.String("state", *client.ConversationState))
		return Idle{}
	}

	step, err := Decode(client.ConversationState, client.ConversationPayload)
	if err != nil {
		log.Warn("conversation reset after decode failure", slog.Int64("client_id", client.ID), slog.String("error", err.Error()))
		return Idle{}
	}
	return step
}

func (s *Service) save(ctx context.Context, client domain.Client, next Step) error {
	from := ""
	if client.ConversationState != nil {
		from = *client.ConversationState
	}
	if from == StateIdle && next.State() == StateIdle {
		return nil
	}

	state, payload, err := Encode(next)
	if err != nil {
		return err
	}
	if err := s.store.SaveConversation(ctx, client.ID, state, payload); err != nil {
		return err
	}
	if from != next.State() {
		s.log.WithContext(ctx).StateTransition(client.ID, from, next.State())
	}
	return nil
}

// BeginRating moves the client into the rating prompt for a completed job.
// It joins the caller's transaction so the prompt is only sent once the
// completion commits.
func (s *Service) BeginRating(ctx context.Context, clientID, jobID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		client, err := s.store.LockByID(ctx, clientID)
		if err != nil {
			return err
		}
		if err := s.save(ctx, client, AwaitingRating{JobID: jobID}); err != nil {
			return err
		}
		db.AfterCommit(ctx, func(ctx context.Context) {
			s.reply(ctx, client.PhoneNumber, msgRatePrompt)
		})
		return nil
	})
}

// SweepStale clears every conversation idle for longer than the configured
// window and returns how many were reset.
func (s *Service) SweepStale(ctx context.Context) (int64, error) {
	if s.staleAfter <= 0 {
		return 0, nil
	}
	cleared, err := s.store.ClearStaleConversations(ctx, s.now().Add(-s.staleAfter))
	if err != nil {
		return 0, fmt.Errorf("sweep stale conversations: %w", err)
	}
	if cleared > 0 {
		s.log.WithContext(ctx).Info("stale conversations cleared", slog.Int64("count", cleared))
	}
	return cleared, nil
}

func (s *Service) reply(ctx context.Context, number, body string) {
	if err := s.sender.SendMessage(ctx, number, body); err != nil {
		s.log.WithContext(ctx).DeliveryFailed("whatsapp", number, err)
	}
}
