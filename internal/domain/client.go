package domain

import (
	"time"

	"fixmate_backend/platform/geo"
)

// Client is an end user requesting repairs over WhatsApp.
type Client struct {
	ID                    int64
	PhoneNumber           string
	FullName              *string
	ConversationState     *string
	ConversationPayload   []byte
	ConversationUpdatedAt *time.Time
	IsAdmin               bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// DisplayName returns the registered name or a fallback.
func (c Client) DisplayName() string {
	if c.FullName != nil && *c.FullName != "" {
		return *c.FullName
	}
	return "there"
}

// InboundMessage is one normalized message received from the WhatsApp gateway.
type InboundMessage struct {
	MessageID     string     `json:"messageId"`
	Phone         string     `json:"phone"`
	ProfileName   string     `json:"profileName,omitempty"`
	Text          string     `json:"text,omitempty"`
	Location      *geo.Point `json:"location,omitempty"`
	AudioMediaID  string     `json:"audioMediaId,omitempty"`
	AudioMimeType string     `json:"audioMimeType,omitempty"`
	ReceivedAt    time.Time  `json:"receivedAt"`
}

// IsVoiceNote reports whether the message carries audio to transcribe.
func (m InboundMessage) IsVoiceNote() bool {
	return m.AudioMediaID != ""
}
