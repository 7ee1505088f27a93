package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"fixmate_backend/internal/auth/repository"
	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/events"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/httpkit"
	"fixmate_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testConfig struct{}

func (testConfig) GetJWTAccessSecret() string       { return "access-secret" }
func (testConfig) GetAccessTokenTTL() time.Duration { return time.Hour }
func (testConfig) GetLinkSigningSecret() string     { return "link-secret" }
func (testConfig) GetLoginLinkTTL() time.Duration   { return 15 * time.Minute }
func (testConfig) GetFixerLinkTTL() time.Duration   { return 24 * time.Hour }
func (testConfig) GetAppBaseURL() string            { return "https://app.fixmate.test/" }

type fakeClients struct {
	byPhone map[string]domain.Client
}

func (f fakeClients) GetByPhone(_ context.Context, number string) (domain.Client, error) {
	if c, ok := f.byPhone[number]; ok {
		return c, nil
	}
	return domain.Client{}, apperr.NotFound("client not found")
}

func (f fakeClients) GetByID(_ context.Context, id int64) (domain.Client, error) {
	for _, c := range f.byPhone {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Client{}, apperr.NotFound("client not found")
}

type fakeFixers struct {
	byPhone map[string]domain.Fixer
}

func (f fakeFixers) GetByPhone(_ context.Context, number string) (domain.Fixer, error) {
	if fx, ok := f.byPhone[number]; ok {
		return fx, nil
	}
	return domain.Fixer{}, apperr.NotFound("fixer not found")
}

func (f fakeFixers) GetByID(_ context.Context, id int64) (domain.Fixer, error) {
	for _, fx := range f.byPhone {
		if fx.ID == id {
			return fx, nil
		}
	}
	return domain.Fixer{}, apperr.NotFound("fixer not found")
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(t *testing.T) (*Service, *recordingBus) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := repository.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	bus := &recordingBus{}
	clients := fakeClients{byPhone: map[string]domain.Client{
		"+27821234567": {ID: 3, PhoneNumber: "+27821234567", IsAdmin: true},
	}}
	fixers := fakeFixers{byPhone: map[string]domain.Fixer{
		"+27829876543": {ID: 9, PhoneNumber: "+27829876543", IsActive: true, VettingStatus: domain.VettingApproved},
	}}
	return New(store, clients, fixers, bus, testConfig{}, logger.New("development")), bus
}

func tokenFromURL(t *testing.T, raw string) string {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return parsed.Query().Get("token")
}

func TestLoginLinkRoundTrip(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	if err := svc.RequestLoginLink(ctx, "082 123 4567"); err != nil {
		t.Fatalf("request link: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one login link event, got %d", len(bus.published))
	}
	requested := bus.published[0].(events.LoginLinkRequested)
	if requested.Phone != "+27821234567" || requested.Kind != httpkit.SubjectClient {
		t.Fatalf("unexpected event %+v", requested)
	}
	if !strings.HasPrefix(requested.URL, "https://app.fixmate.test/login?token=") {
		t.Fatalf("unexpected url %q", requested.URL)
	}

	raw := tokenFromURL(t, requested.URL)
	resp, err := svc.Exchange(ctx, raw)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if resp.SubjectID != 3 || resp.AccessToken == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Roles) != 2 || resp.Roles[1] != httpkit.RoleAdmin {
		t.Fatalf("expected admin role for admin client, got %v", resp.Roles)
	}

	if _, err := svc.Exchange(ctx, raw); !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected reused link to be gone, got %v", err)
	}
}

func TestLoginLinkForUnknownPhoneIsSilent(t *testing.T) {
	svc, bus := newTestService(t)

	if err := svc.RequestLoginLink(context.Background(), "0831112222"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("no link may be sent to unknown numbers")
	}
}

func TestFixersLogInAsFixers(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	if err := svc.RequestLoginLink(ctx, "+27829876543"); err != nil {
		t.Fatalf("request link: %v", err)
	}
	requested := bus.published[0].(events.LoginLinkRequested)
	resp, err := svc.Exchange(ctx, tokenFromURL(t, requested.URL))
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if resp.Kind != httpkit.SubjectFixer || resp.SubjectID != 9 || resp.Roles[0] != httpkit.RoleFixer {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestFixerActionLinkIsSingleUseAndScoped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.FixerActionURL(ctx, 42, 9, domain.LinkFixerOffer)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(link, "https://app.fixmate.test/fixer-actions?token=") {
		t.Fatalf("unexpected url %q", link)
	}
	raw := tokenFromURL(t, link)

	inspected, err := svc.InspectFixerLink(ctx, raw)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if inspected.JobID != 42 || inspected.FixerID != 9 || inspected.Purpose != domain.LinkFixerOffer {
		t.Fatalf("unexpected link %+v", inspected)
	}

	if _, err := svc.ConsumeFixerLink(ctx, raw, domain.LinkFixerComplete); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected offer link to be refused for completion, got %v", err)
	}
	if _, err := svc.ConsumeFixerLink(ctx, raw, domain.LinkFixerOffer); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := svc.ConsumeFixerLink(ctx, raw, domain.LinkFixerOffer); !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected second use to be gone, got %v", err)
	}
	if _, err := svc.InspectFixerLink(ctx, raw); !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected inspect after use to be gone, got %v", err)
	}
}

func TestLoginLinkCannotActOnJobs(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()
	_ = svc.RequestLoginLink(ctx, "+27829876543")
	raw := tokenFromURL(t, bus.published[0].(events.LoginLinkRequested).URL)

	if _, err := svc.InspectFixerLink(ctx, raw); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected login link to be rejected as a fixer link, got %v", err)
	}
}
