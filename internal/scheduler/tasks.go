package scheduler

import (
	"encoding/json"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/geo"

	"github.com/hibiken/asynq"
)

const TaskInboundMessage = "conversation.inbound"

const TaskWhatsAppOutboxDue = "notification.whatsapp.send"

const TaskOfferTimeout = "jobs.offer_timeout"

type InboundMessagePayload struct {
	MessageID     string    `json:"messageId"`
	Phone         string    `json:"phone"`
	ProfileName   string    `json:"profileName,omitempty"`
	Text          string    `json:"text,omitempty"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	AudioMediaID  string    `json:"audioMediaId,omitempty"`
	AudioMimeType string    `json:"audioMimeType,omitempty"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

type WhatsAppOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

type OfferTimeoutPayload struct {
	JobID   int64 `json:"jobId"`
	FixerID int64 `json:"fixerId"`
}

func inboundPayloadFrom(msg domain.InboundMessage) InboundMessagePayload {
	p := InboundMessagePayload{
		MessageID:     msg.MessageID,
		Phone:         msg.Phone,
		ProfileName:   msg.ProfileName,
		Text:          msg.Text,
		AudioMediaID:  msg.AudioMediaID,
		AudioMimeType: msg.AudioMimeType,
		ReceivedAt:    msg.ReceivedAt,
	}
	if msg.Location != nil {
		lat, lon := msg.Location.Lat, msg.Location.Lon
		p.Latitude, p.Longitude = &lat, &lon
	}
	return p
}

// Message converts the payload back to an inbound message.
func (p InboundMessagePayload) Message() domain.InboundMessage {
	msg := domain.InboundMessage{
		MessageID:     p.MessageID,
		Phone:         p.Phone,
		ProfileName:   p.ProfileName,
		Text:          p.Text,
		AudioMediaID:  p.AudioMediaID,
		AudioMimeType: p.AudioMimeType,
		ReceivedAt:    p.ReceivedAt,
	}
	if p.Latitude != nil && p.Longitude != nil {
		if point, err := geo.NewPoint(*p.Latitude, *p.Longitude); err == nil {
			msg.Location = &point
		}
	}
	return msg
}

func NewInboundMessageTask(msg domain.InboundMessage) (*asynq.Task, error) {
	data, err := json.Marshal(inboundPayloadFrom(msg))
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInboundMessage, data), nil
}

func ParseInboundMessagePayload(task *asynq.Task) (InboundMessagePayload, error) {
	var payload InboundMessagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return InboundMessagePayload{}, err
	}
	return payload, nil
}

func NewWhatsAppOutboxDueTask(payload WhatsAppOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWhatsAppOutboxDue, data), nil
}

func ParseWhatsAppOutboxDuePayload(task *asynq.Task) (WhatsAppOutboxDuePayload, error) {
	var payload WhatsAppOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WhatsAppOutboxDuePayload{}, err
	}
	return payload, nil
}

func NewOfferTimeoutTask(payload OfferTimeoutPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOfferTimeout, data), nil
}

func ParseOfferTimeoutPayload(task *asynq.Task) (OfferTimeoutPayload, error) {
	var payload OfferTimeoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OfferTimeoutPayload{}, err
	}
	return payload, nil
}
