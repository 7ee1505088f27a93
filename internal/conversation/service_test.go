package conversation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/db"
	"fixmate_backend/platform/geo"
	"fixmate_backend/platform/logger"
)

type memStore struct {
	clients map[string]*domain.Client
	nextID  int64
	saves   int
}

func newMemStore() *memStore {
	return &memStore{clients: map[string]*domain.Client{}}
}

func (m *memStore) GetOrCreateForUpdate(_ context.Context, number string) (domain.Client, error) {
	if c, ok := m.clients[number]; ok {
		return *c, nil
	}
	m.nextID++
	c := &domain.Client{ID: m.nextID, PhoneNumber: number}
	m.clients[number] = c
	return *c, nil
}

func (m *memStore) byID(id int64) *domain.Client {
	for _, c := range m.clients {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *memStore) LockByID(_ context.Context, id int64) (domain.Client, error) {
	if c := m.byID(id); c != nil {
		return *c, nil
	}
	return domain.Client{}, apperr.NotFound("client not found")
}

func (m *memStore) SaveConversation(_ context.Context, clientID int64, state *string, payload []byte) error {
	c := m.byID(clientID)
	if c == nil {
		return apperr.NotFound("client not found")
	}
	m.saves++
	now := time.Now()
	if state == nil {
		c.ConversationState, c.ConversationPayload = nil, nil
	} else {
		s := *state
		c.ConversationState, c.ConversationPayload = &s, append([]byte(nil), payload...)
	}
	c.ConversationUpdatedAt = &now
	return nil
}

func (m *memStore) SetFullName(_ context.Context, clientID int64, name string) error {
	c := m.byID(clientID)
	if c == nil {
		return apperr.NotFound("client not found")
	}
	c.FullName = &name
	return nil
}

func (m *memStore) ClearStaleConversations(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for _, c := range m.clients {
		if c.ConversationState != nil && c.ConversationUpdatedAt != nil && c.ConversationUpdatedAt.Before(before) {
			c.ConversationState, c.ConversationPayload = nil, nil
			n++
		}
	}
	return n, nil
}

type fakeJobs struct {
	created   []domain.JobRequest
	result    domain.DispatchResult
	createErr error
	ratings   map[int64]int
	comments  map[int64]string
	ratingErr error
}

func (f *fakeJobs) CreateAndDispatch(_ context.Context, req domain.JobRequest) (domain.DispatchResult, error) {
	if f.createErr != nil {
		return domain.DispatchResult{}, f.createErr
	}
	f.created = append(f.created, req)
	result := f.result
	result.Job.ClientID = req.ClientID
	result.Job.AmountCents = req.AmountCents
	return result, nil
}

func (f *fakeJobs) RecordRating(_ context.Context, _, jobID int64, rating int) error {
	if f.ratingErr != nil {
		return f.ratingErr
	}
	if f.ratings == nil {
		f.ratings = map[int64]int{}
	}
	f.ratings[jobID] = rating
	return nil
}

func (f *fakeJobs) RecordFeedback(_ context.Context, _, jobID int64, comment, sentiment string) error {
	if f.comments == nil {
		f.comments = map[int64]string{}
	}
	f.comments[jobID] = comment + "|" + sentiment
	return nil
}

type fixedClassifier domain.Category

func (f fixedClassifier) Classify(context.Context, string) domain.Category {
	return domain.Category(f)
}

type fixedSentiment string

func (f fixedSentiment) Sentiment(context.Context, string) string { return string(f) }

type recordingSender struct {
	sent []string
}

func (r *recordingSender) SendMessage(_ context.Context, _ string, body string) error {
	r.sent = append(r.sent, body)
	return nil
}

func (r *recordingSender) last() string {
	if len(r.sent) == 0 {
		return ""
	}
	return r.sent[len(r.sent)-1]
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, domain.InboundMessage) (string, error) {
	return f.text, f.err
}

type testConfig struct {
	staleAfter time.Duration
}

func (testConfig) GetPlatformFeeCents() int64                 { return 5000 }
func (testConfig) GetCallOutFeeCents(string) int64            { return 35000 }
func (testConfig) GetDispatchMode() string                    { return "immediate" }
func (c testConfig) GetConversationStaleAfter() time.Duration { return c.staleAfter }
func (testConfig) GetStaleSweepInterval() time.Duration       { return time.Minute }

type harness struct {
	svc    *Service
	store  *memStore
	jobs   *fakeJobs
	sender *recordingSender
}

const clientPhone = "+27821234567"

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  newMemStore(),
		jobs:   &fakeJobs{},
		sender: &recordingSender{},
	}
	h.jobs.result = domain.DispatchResult{
		Job:   domain.Job{ID: 11, Status: domain.JobAssigned},
		Fixer: &domain.Fixer{ID: 5, FullName: "Sipho Dlamini"},
	}
	cfg := testConfig{staleAfter: 2 * time.Hour}
	h.svc = New(h.store, db.LocalTransactor{}, fixedClassifier(domain.CategoryPlumbing), fixedSentiment(domain.SentimentPositive),
		h.jobs, h.sender, cfg, cfg, logger.New("development"))
	return h
}

func (h *harness) send(t *testing.T, text string) {
	t.Helper()
	if err := h.svc.HandleInbound(context.Background(), domain.InboundMessage{Phone: "0821234567", Text: text}); err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
}

func (h *harness) sendLocation(t *testing.T, lat, lon float64) {
	t.Helper()
	msg := domain.InboundMessage{Phone: clientPhone, Location: &geo.Point{Lat: lat, Lon: lon}}
	if err := h.svc.HandleInbound(context.Background(), msg); err != nil {
		t.Fatalf("handle location: %v", err)
	}
}

func (h *harness) state() string {
	c := h.store.clients[clientPhone]
	if c == nil || c.ConversationState == nil {
		return StateIdle
	}
	return *c.ConversationState
}

func TestFullRequestCreatesExactlyOneJob(t *testing.T) {
	h := newHarness(t)

	h.send(t, "Hello")
	if h.state() != StateAwaitingServiceRequest || !strings.Contains(h.sender.last(), "1. Request a fixer") {
		t.Fatalf("expected welcome menu, state %q reply %q", h.state(), h.sender.last())
	}
	h.send(t, "My geyser is leaking")
	if h.state() != StateAwaitingLocation {
		t.Fatalf("expected awaiting location, got %q", h.state())
	}
	h.sendLocation(t, -26.2041, 28.0473)
	if h.state() != StateAwaitingContactNumber {
		t.Fatalf("expected awaiting contact number, got %q", h.state())
	}
	h.send(t, "082 555 1234")
	if h.state() != StateAwaitingTermsApproval || !strings.Contains(h.sender.last(), "R350.00") {
		t.Fatalf("expected terms with fee, state %q reply %q", h.state(), h.sender.last())
	}
	h.send(t, "Yes please")

	if h.state() != StateIdle {
		t.Fatalf("expected idle after approval, got %q", h.state())
	}
	if len(h.jobs.created) != 1 {
		t.Fatalf("expected exactly one job, got %d", len(h.jobs.created))
	}
	req := h.jobs.created[0]
	if req.Description != "My geyser is leaking" || req.Category != domain.CategoryPlumbing {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.ClientContact != "+27825551234" || req.AmountCents != 35000 {
		t.Fatalf("unexpected contact or fee %+v", req)
	}
	if req.Location == nil || req.Location.Lat != -26.2041 {
		t.Fatalf("expected location to be carried, got %+v", req.Location)
	}
	if !strings.Contains(h.sender.last(), "Sipho Dlamini") {
		t.Fatalf("expected fixer to be named, got %q", h.sender.last())
	}
}

func TestInvalidContactKeepsStateAndPayload(t *testing.T) {
	h := newHarness(t)
	h.send(t, "Lights keep tripping")
	h.sendLocation(t, -33.9249, 18.4241)

	before := h.store.clients[clientPhone]
	payload := append([]byte(nil), before.ConversationPayload...)

	h.send(t, "call me")
	after := h.store.clients[clientPhone]
	if h.state() != StateAwaitingContactNumber {
		t.Fatalf("expected state to be kept, got %q", h.state())
	}
	if !bytes.Equal(payload, after.ConversationPayload) {
		t.Fatalf("payload changed: %s -> %s", payload, after.ConversationPayload)
	}
	if !strings.Contains(h.sender.last(), "doesn't look like a phone number") {
		t.Fatalf("expected re-prompt, got %q", h.sender.last())
	}
}

func TestLocationWhileIdleAsksForDescription(t *testing.T) {
	h := newHarness(t)
	h.sendLocation(t, -26.2, 28.0)

	if h.state() != StateIdle || h.sender.last() != msgDescribeFirst {
		t.Fatalf("expected describe-first reply, state %q reply %q", h.state(), h.sender.last())
	}
}

func TestDecliningTermsCreatesNoJob(t *testing.T) {
	h := newHarness(t)
	h.send(t, "Door handle broken")
	h.sendLocation(t, -26.2, 28.0)
	h.send(t, "0825551234")
	h.send(t, "no thanks")

	if h.state() != StateIdle || len(h.jobs.created) != 0 {
		t.Fatalf("expected idle without job, state %q jobs %d", h.state(), len(h.jobs.created))
	}
}

func TestTermsApprovalMatchesYesAnywhere(t *testing.T) {
	cases := map[string]int{
		"YESSS":            1,
		"oh yes, go ahead": 1,
		"y":                0,
		"accept":           0,
	}
	for reply, want := range cases {
		h := newHarness(t)
		h.send(t, "Door handle broken")
		h.sendLocation(t, -26.2, 28.0)
		h.send(t, "0825551234")
		h.send(t, reply)

		if h.state() != StateIdle || len(h.jobs.created) != want {
			t.Fatalf("reply %q: expected %d jobs and idle, state %q jobs %d", reply, want, h.state(), len(h.jobs.created))
		}
	}
}

func TestCancelResetsWaitingState(t *testing.T) {
	h := newHarness(t)
	h.send(t, "Tap dripping")
	h.send(t, "cancel")

	if h.state() != StateIdle || h.sender.last() != msgCancelled {
		t.Fatalf("expected cancellation, state %q reply %q", h.state(), h.sender.last())
	}
}

func TestDispatchFailureKeepsConversation(t *testing.T) {
	h := newHarness(t)
	h.send(t, "Geyser leaking")
	h.sendLocation(t, -26.2, 28.0)
	h.send(t, "0825551234")
	h.jobs.createErr = errors.New("database down")

	err := h.svc.HandleInbound(context.Background(), domain.InboundMessage{Phone: clientPhone, Text: "yes"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if h.state() != StateAwaitingTermsApproval {
		t.Fatalf("expected terms state to survive, got %q", h.state())
	}
	if h.sender.last() != msgTryAgain {
		t.Fatalf("expected retry message, got %q", h.sender.last())
	}
}

func TestRatingFlow(t *testing.T) {
	h := newHarness(t)
	h.send(t, "hi")
	client := h.store.clients[clientPhone]

	if err := h.svc.BeginRating(context.Background(), client.ID, 11); err != nil {
		t.Fatalf("begin rating: %v", err)
	}
	if h.state() != StateAwaitingRating || h.sender.last() != msgRatePrompt {
		t.Fatalf("expected rating prompt, state %q reply %q", h.state(), h.sender.last())
	}

	h.send(t, "5")
	if h.jobs.ratings[11] != 5 || h.state() != StateAwaitingRatingComment {
		t.Fatalf("expected rating 5 and comment prompt, got %v %q", h.jobs.ratings, h.state())
	}

	h.send(t, "Great work, very quick")
	if h.jobs.comments[11] != "Great work, very quick|Positive" {
		t.Fatalf("unexpected feedback %q", h.jobs.comments[11])
	}
	if h.state() != StateIdle {
		t.Fatalf("expected idle, got %q", h.state())
	}
}

func TestNonNumericRatingEndsPrompt(t *testing.T) {
	h := newHarness(t)
	h.send(t, "hi")
	_ = h.svc.BeginRating(context.Background(), h.store.clients[clientPhone].ID, 11)

	h.send(t, "thanks")
	if h.state() != StateIdle || len(h.jobs.ratings) != 0 {
		t.Fatalf("expected prompt to end without a rating, state %q", h.state())
	}
}

func TestRatingForClosedJobIsDropped(t *testing.T) {
	h := newHarness(t)
	h.send(t, "hi")
	_ = h.svc.BeginRating(context.Background(), h.store.clients[clientPhone].ID, 11)
	h.jobs.ratingErr = apperr.Conflict("only completed jobs can be rated")

	h.send(t, "4")
	if h.state() != StateIdle || h.sender.last() != msgRatingSkipped {
		t.Fatalf("expected prompt to be dropped, state %q reply %q", h.state(), h.sender.last())
	}
}

func TestRegistrationTitleCasesName(t *testing.T) {
	h := newHarness(t)
	h.send(t, "register")
	h.send(t, "  thandi   mokoena ")

	client := h.store.clients[clientPhone]
	if client.FullName == nil || *client.FullName != "Thandi Mokoena" {
		t.Fatalf("unexpected name %v", client.FullName)
	}
	if h.state() != StateIdle {
		t.Fatalf("expected idle, got %q", h.state())
	}
}

func TestStaleConversationStartsOver(t *testing.T) {
	h := newHarness(t)
	h.send(t, "Geyser leaking")
	h.svc.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	h.sendLocation(t, -26.2, 28.0)
	if h.state() != StateIdle || h.sender.last() != msgDescribeFirst {
		t.Fatalf("expected stale conversation to restart, state %q reply %q", h.state(), h.sender.last())
	}
}

func TestSweepStaleClearsOldConversations(t *testing.T) {
	h := newHarness(t)
	h.send(t, "Geyser leaking")
	h.svc.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	cleared, err := h.svc.SweepStale(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if cleared != 1 || h.state() != StateIdle {
		t.Fatalf("expected one cleared conversation, got %d and %q", cleared, h.state())
	}
}

func TestVoiceNoteIsTranscribed(t *testing.T) {
	h := newHarness(t)
	h.svc.SetTranscriber(fakeTranscriber{text: "my toilet is blocked"})

	err := h.svc.HandleInbound(context.Background(), domain.InboundMessage{Phone: clientPhone, AudioMediaID: "media-1"})
	if err != nil {
		t.Fatalf("handle voice note: %v", err)
	}
	if h.state() != StateAwaitingLocation {
		t.Fatalf("expected transcript to be used as description, got %q", h.state())
	}
}

func TestFailedTranscriptionKeepsState(t *testing.T) {
	h := newHarness(t)
	h.send(t, "hi")
	h.svc.SetTranscriber(fakeTranscriber{err: errors.New("model unavailable")})

	err := h.svc.HandleInbound(context.Background(), domain.InboundMessage{Phone: clientPhone, AudioMediaID: "media-1"})
	if err != nil {
		t.Fatalf("expected failure to be answered, got %v", err)
	}
	if h.state() != StateAwaitingServiceRequest || h.sender.last() != msgVoiceFailed {
		t.Fatalf("expected state kept and type prompt, state %q reply %q", h.state(), h.sender.last())
	}
}

type fakeResolver struct {
	point geo.Point
	label string
	err   error
	calls int
}

func (f *fakeResolver) Resolve(context.Context, string) (geo.Point, string, error) {
	f.calls++
	return f.point, f.label, f.err
}

func TestTypedAddressIsGeocoded(t *testing.T) {
	h := newHarness(t)
	resolver := &fakeResolver{point: geo.Point{Lat: -33.9608, Lon: 18.4716}, label: "12 Main Road, Rondebosch, Cape Town"}
	h.svc.SetAddressResolver(resolver)

	h.send(t, "Blocked drain")
	h.send(t, "12 Main Rd, Rondebosch")
	if h.state() != StateAwaitingContactNumber {
		t.Fatalf("expected awaiting contact number, got %q", h.state())
	}
	if !strings.Contains(h.sender.last(), "Rondebosch") {
		t.Fatalf("expected resolved address to be echoed, got %q", h.sender.last())
	}

	h.send(t, "0825551234")
	h.send(t, "yes")
	if len(h.jobs.created) != 1 || h.jobs.created[0].Location.Lat != -33.9608 {
		t.Fatalf("expected geocoded location on the job, got %+v", h.jobs.created)
	}
}

func TestUnresolvedAddressKeepsAskingForLocation(t *testing.T) {
	h := newHarness(t)
	resolver := &fakeResolver{err: errors.New("address not found")}
	h.svc.SetAddressResolver(resolver)

	h.send(t, "Leaking roof")
	h.send(t, "behind the big tree")
	if h.state() != StateAwaitingLocation || h.sender.last() != msgAddressNotFound {
		t.Fatalf("expected address re-prompt, state %q reply %q", h.state(), h.sender.last())
	}

	h.sendLocation(t, -26.2, 28.0)
	if h.state() != StateAwaitingContactNumber {
		t.Fatalf("expected pin to still be accepted, got %q", h.state())
	}
	if resolver.calls != 1 {
		t.Fatalf("pins must not be geocoded, resolver called %d times", resolver.calls)
	}
}

func TestTypedAddressWithoutResolverAsksForPin(t *testing.T) {
	h := newHarness(t)
	h.send(t, "Leaking roof")
	h.send(t, "5 Long Street")
	if h.state() != StateAwaitingLocation || h.sender.last() != msgAskLocation {
		t.Fatalf("expected pin prompt, state %q reply %q", h.state(), h.sender.last())
	}
}
