package webhook

import (
	"strconv"
	"strings"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/geo"
	"fixmate_backend/platform/phone"
)

// ExtractMessages flattens a webhook payload into normalized inbound
// messages, in delivery order. Unsupported message types still produce a
// message with no text so the conversation can re-prompt.
func ExtractMessages(p Payload, now time.Time) []domain.InboundMessage {
	var out []domain.InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "" && change.Field != "messages" {
				continue
			}
			names := profileNames(change.Value.Contacts)
			for _, m := range change.Value.Messages {
				if m.From == "" {
					continue
				}
				out = append(out, toInbound(m, names[m.From], now))
			}
		}
	}
	return out
}

func profileNames(contacts []Contact) map[string]string {
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.WaID] = strings.TrimSpace(c.Profile.Name)
	}
	return names
}

func toInbound(m Message, profileName string, now time.Time) domain.InboundMessage {
	msg := domain.InboundMessage{
		MessageID:   m.ID,
		Phone:       phone.NormalizeE164(m.From),
		ProfileName: profileName,
		ReceivedAt:  parseTimestamp(m.Timestamp, now),
	}

	switch {
	case m.Text != nil:
		msg.Text = m.Text.Body
	case m.Location != nil:
		if point, err := geo.NewPoint(m.Location.Latitude, m.Location.Longitude); err == nil {
			msg.Location = &point
		}
	case m.Audio != nil:
		msg.AudioMediaID = m.Audio.ID
		msg.AudioMimeType = m.Audio.MimeType
	case m.Button != nil:
		msg.Text = m.Button.Text
	case m.Interactive != nil:
		if r := m.Interactive.ButtonReply; r != nil {
			msg.Text = r.Title
		} else if r := m.Interactive.ListReply; r != nil {
			msg.Text = r.Title
		}
	}
	return msg
}

func parseTimestamp(raw string, fallback time.Time) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Unix(secs, 0).UTC()
}
