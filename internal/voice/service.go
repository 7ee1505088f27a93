// Package voice turns WhatsApp voice notes into text for the conversation
// engine and optionally archives the audio.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/sanitize"
)

const maxTranscriptRunes = 1000

// ErrEmptyTranscript is returned when the model heard nothing usable.
var ErrEmptyTranscript = errors.New("voice note transcript is empty")

// Note describes an audio message being processed.
type Note struct {
	MessageID  string
	MimeType   string
	ReceivedAt time.Time
}

// MediaSource downloads media from the WhatsApp gateway.
type MediaSource interface {
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// SpeechToText transcribes audio. The Gemini client satisfies it.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Archive stores the original audio.
type Archive interface {
	Store(ctx context.Context, note Note, audio []byte) (string, error)
}

// Transcriber implements the conversation engine's voice note hook.
type Transcriber struct {
	media   MediaSource
	speech  SpeechToText
	archive Archive
	timeout time.Duration
	log     *logger.Logger
}

// NewTranscriber creates a transcriber. archive may be nil.
func NewTranscriber(media MediaSource, speech SpeechToText, archive Archive, log *logger.Logger) *Transcriber {
	return &Transcriber{
		media:   media,
		speech:  speech,
		archive: archive,
		timeout: 45 * time.Second,
		log:     log,
	}
}

// Transcribe downloads the note referenced by msg and returns its text.
func (t *Transcriber) Transcribe(ctx context.Context, msg domain.InboundMessage) (string, error) {
	if !msg.IsVoiceNote() {
		return "", fmt.Errorf("message %s carries no audio", msg.MessageID)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	audio, contentType, err := t.media.DownloadMedia(ctx, msg.AudioMediaID)
	if err != nil {
		return "", fmt.Errorf("download voice note: %w", err)
	}
	if contentType == "" {
		contentType = msg.AudioMimeType
	}
	if err := ValidateAudio(contentType, len(audio)); err != nil {
		return "", err
	}

	note := Note{MessageID: msg.MessageID, MimeType: baseMimeType(contentType), ReceivedAt: msg.ReceivedAt}
	t.store(ctx, note, audio)

	text, err := t.speech.Transcribe(ctx, audio, note.MimeType)
	if err != nil {
		return "", fmt.Errorf("transcribe voice note: %w", err)
	}
	text = sanitize.Text(text, maxTranscriptRunes)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// store archives best-effort; a storage outage must not block the reply.
func (t *Transcriber) store(ctx context.Context, note Note, audio []byte) {
	if t.archive == nil {
		return
	}
	key, err := t.archive.Store(ctx, note, audio)
	if err != nil {
		t.log.WithContext(ctx).Warn("voice note archive failed", slog.String("error", err.Error()))
		return
	}
	t.log.WithContext(ctx).Debug("voice note archived", slog.String("key", key))
}
