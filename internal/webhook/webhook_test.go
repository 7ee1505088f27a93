package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "27821234567", "profile": {"name": "Thandi"}}],
        "messages": [
          {"from": "27821234567", "id": "wamid.1", "timestamp": "1760000000", "type": "text", "text": {"body": "My geyser is leaking"}},
          {"from": "27821234567", "id": "wamid.2", "timestamp": "1760000005", "type": "location", "location": {"latitude": -26.2041, "longitude": 28.0473}},
          {"from": "27821234567", "id": "wamid.3", "timestamp": "1760000010", "type": "audio", "audio": {"id": "media-1", "mime_type": "audio/ogg; codecs=opus", "voice": true}}
        ]
      }
    }]
  }]
}`

type recordingDispatcher struct {
	got []domain.InboundMessage
	err error
}

func (d *recordingDispatcher) DispatchInbound(_ context.Context, msg domain.InboundMessage) error {
	if d.err != nil {
		return d.err
	}
	d.got = append(d.got, msg)
	return nil
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func mustPayload(t *testing.T) Payload {
	t.Helper()
	var p Payload
	if err := json.Unmarshal([]byte(samplePayload), &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return p
}

func newEngine(secret string, dispatcher Dispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewHandler(NewService(NewMemoryDeduplicator(), dispatcher, logger.New("development")), "verify-me")
	group := engine.Group("/webhook/whatsapp", SignatureMiddleware(secret))
	group.GET("", handler.HandleVerify)
	group.POST("", handler.HandleInbound)
	return engine
}

func TestExtractMessagesMapsTypes(t *testing.T) {
	msgs := ExtractMessages(mustPayload(t), time.Now())
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Phone != "+27821234567" || msgs[0].ProfileName != "Thandi" || msgs[0].Text != "My geyser is leaking" {
		t.Fatalf("unexpected text message %+v", msgs[0])
	}
	if msgs[0].ReceivedAt.Unix() != 1760000000 {
		t.Fatalf("expected gateway timestamp, got %v", msgs[0].ReceivedAt)
	}
	if msgs[1].Location == nil || msgs[1].Location.Lat != -26.2041 {
		t.Fatalf("expected location, got %+v", msgs[1])
	}
	if !msgs[2].IsVoiceNote() || msgs[2].AudioMediaID != "media-1" {
		t.Fatalf("expected voice note, got %+v", msgs[2])
	}
}

func TestExtractMessagesDropsOutOfRangeLocation(t *testing.T) {
	p := Payload{Entry: []Entry{{Changes: []Change{{Field: "messages", Value: Value{
		Messages: []Message{{From: "27821234567", ID: "x", Type: "location", Location: &Location{Latitude: 123, Longitude: 0}}},
	}}}}}}
	msgs := ExtractMessages(p, time.Now())
	if len(msgs) != 1 || msgs[0].Location != nil {
		t.Fatalf("expected message without location, got %+v", msgs)
	}
}

func TestInboundIsDeduplicated(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	engine := newEngine("", dispatcher)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(samplePayload))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
	if len(dispatcher.got) != 3 {
		t.Fatalf("expected redelivery to be dropped, dispatched %d", len(dispatcher.got))
	}
}

func TestSignatureRequiredWhenSecretSet(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	engine := newEngine("app-secret", dispatcher)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(samplePayload))
	req.Header.Set(signatureHeader, sign("wrong", samplePayload))
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || len(dispatcher.got) != 0 {
		t.Fatalf("expected 401 without dispatch, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(samplePayload))
	req.Header.Set(signatureHeader, sign("app-secret", samplePayload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || len(dispatcher.got) != 3 {
		t.Fatalf("expected signed delivery to pass, got %d with %d messages", rec.Code, len(dispatcher.got))
	}
}

func TestVerifyHandshake(t *testing.T) {
	engine := newEngine("", &recordingDispatcher{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=abc123", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "abc123" {
		t.Fatalf("expected challenge echo, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=abc123", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong token, got %d", rec.Code)
	}
}

func TestRedisDeduplicator(t *testing.T) {
	mr := miniredis.RunT(t)
	dedup := NewRedisDeduplicator(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	first, err := dedup.FirstSeen(ctx, "wamid.1")
	if err != nil || !first {
		t.Fatalf("expected first sighting, got %v %v", first, err)
	}
	again, err := dedup.FirstSeen(ctx, "wamid.1")
	if err != nil || again {
		t.Fatalf("expected duplicate, got %v %v", again, err)
	}
	if ttl := mr.TTL(dedupKeyPrefix + "wamid.1"); ttl != dedupTTL {
		t.Fatalf("expected %v ttl, got %v", dedupTTL, ttl)
	}

	mr.FastForward(dedupTTL + time.Second)
	if fresh, _ := dedup.FirstSeen(ctx, "wamid.1"); !fresh {
		t.Fatalf("expected id to be forgotten after ttl")
	}
}

func TestDedupOutageFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	dispatcher := &recordingDispatcher{}
	svc := NewService(NewRedisDeduplicator(client), dispatcher, logger.New("development"))
	if accepted := svc.Ingest(context.Background(), mustPayload(t)); accepted != 3 {
		t.Fatalf("expected messages to pass while redis is down, accepted %d", accepted)
	}
}

func TestMemoryDeduplicatorSweep(t *testing.T) {
	dedup := NewMemoryDeduplicator()
	now := time.Now()
	dedup.now = func() time.Time { return now }
	_, _ = dedup.FirstSeen(context.Background(), "a")

	now = now.Add(dedupTTL)
	if removed := dedup.Sweep(); removed != 1 {
		t.Fatalf("expected expired id to be swept, removed %d", removed)
	}
}
