// Package service implements link based authentication: login links sent
// over WhatsApp, their exchange for access tokens, and signed single-use
// fixer action links.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"fixmate_backend/internal/auth/repository"
	"fixmate_backend/internal/auth/token"
	"fixmate_backend/internal/auth/transport"
	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/events"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/httpkit"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/phone"
)

const (
	msgInvalidLink = "invalid or expired link"
	msgUsedLink    = "link has already been used"
)

// ClientLookup finds clients by phone or id.
type ClientLookup interface {
	GetByPhone(ctx context.Context, number string) (domain.Client, error)
	GetByID(ctx context.Context, id int64) (domain.Client, error)
}

// FixerLookup finds fixers by phone or id.
type FixerLookup interface {
	GetByPhone(ctx context.Context, number string) (domain.Fixer, error)
	GetByID(ctx context.Context, id int64) (domain.Fixer, error)
}

// Service provides link based authentication.
type Service struct {
	signer  *token.LinkSigner
	store   repository.UsedTokenStore
	clients ClientLookup
	fixers  FixerLookup
	bus     events.Bus
	cfg     config.AuthServiceConfig
	log     *logger.Logger
	now     func() time.Time
}

// New creates a new auth service.
func New(store repository.UsedTokenStore, clients ClientLookup, fixers FixerLookup, bus events.Bus, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{
		signer:  token.NewLinkSigner(cfg.GetLinkSigningSecret()),
		store:   store,
		clients: clients,
		fixers:  fixers,
		bus:     bus,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// RequestLoginLink sends a login link to a registered fixer or client. It
// reports success for unknown numbers so callers cannot probe for accounts.
func (s *Service) RequestLoginLink(ctx context.Context, number string) error {
	normalized := phone.NormalizeE164(number)

	kind, subjectID, err := s.resolvePhone(ctx, normalized)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.AuthEvent("login_link", normalized, false, "unknown phone")
			return nil
		}
		return err
	}

	raw, _, err := s.signer.Sign(domain.LinkLogin, kind, subjectID, 0, s.cfg.GetLoginLinkTTL())
	if err != nil {
		return err
	}

	s.bus.Publish(ctx, events.LoginLinkRequested{
		BaseEvent: events.NewBaseEvent(),
		Phone:     normalized,
		Kind:      kind,
		URL:       s.buildURL("/login", raw),
	})
	s.log.AuthEvent("login_link", normalized, true, kind)
	return nil
}

func (s *Service) resolvePhone(ctx context.Context, number string) (string, int64, error) {
	fixer, err := s.fixers.GetByPhone(ctx, number)
	if err == nil {
		return httpkit.SubjectFixer, fixer.ID, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return "", 0, err
	}

	client, err := s.clients.GetByPhone(ctx, number)
	if err != nil {
		return "", 0, err
	}
	return httpkit.SubjectClient, client.ID, nil
}

// Exchange consumes a login link and issues an access token.
func (s *Service) Exchange(ctx context.Context, raw string) (transport.AuthResponse, error) {
	claims, err := s.consume(ctx, raw, domain.LinkLogin)
	if err != nil {
		return transport.AuthResponse{}, err
	}
	subjectID, err := claims.SubjectID()
	if err != nil {
		return transport.AuthResponse{}, apperr.Unauthorized(msgInvalidLink)
	}

	roles, err := s.rolesFor(ctx, claims.Kind, subjectID)
	if err != nil {
		return transport.AuthResponse{}, err
	}

	access, expiresAt, err := token.IssueAccess(s.cfg.GetJWTAccessSecret(), subjectID, claims.Kind, roles, s.cfg.GetAccessTokenTTL(), s.now())
	if err != nil {
		return transport.AuthResponse{}, err
	}

	s.log.WithContext(ctx).Info("access token issued", slog.String("kind", claims.Kind), slog.Int64("subject_id", subjectID))
	return transport.AuthResponse{
		AccessToken: access,
		ExpiresAt:   expiresAt,
		Kind:        claims.Kind,
		SubjectID:   subjectID,
		Roles:       roles,
	}, nil
}

func (s *Service) rolesFor(ctx context.Context, kind string, subjectID int64) ([]string, error) {
	switch kind {
	case httpkit.SubjectFixer:
		fixer, err := s.fixers.GetByID(ctx, subjectID)
		if err != nil {
			return nil, unauthorizedIfMissing(err)
		}
		if !fixer.IsActive || fixer.VettingStatus == domain.VettingRejected {
			return nil, apperr.Forbidden("fixer account is not active")
		}
		return []string{httpkit.RoleFixer}, nil
	case httpkit.SubjectClient:
		client, err := s.clients.GetByID(ctx, subjectID)
		if err != nil {
			return nil, unauthorizedIfMissing(err)
		}
		roles := []string{httpkit.RoleClient}
		if client.IsAdmin {
			roles = append(roles, httpkit.RoleAdmin)
		}
		return roles, nil
	}
	return nil, apperr.Unauthorized(msgInvalidLink)
}

func unauthorizedIfMissing(err error) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.Unauthorized(msgInvalidLink)
	}
	return err
}

// FixerActionURL signs a single-use link letting a fixer act on a job.
func (s *Service) FixerActionURL(_ context.Context, jobID, fixerID int64, purpose domain.LinkPurpose) (string, error) {
	if purpose != domain.LinkFixerOffer && purpose != domain.LinkFixerComplete {
		return "", fmt.Errorf("%w: %s", token.ErrUnknownPurpose, purpose)
	}
	raw, _, err := s.signer.Sign(purpose, httpkit.SubjectFixer, fixerID, jobID, s.cfg.GetFixerLinkTTL())
	if err != nil {
		return "", err
	}
	return s.buildURL("/fixer-actions", raw), nil
}

// InspectFixerLink verifies a fixer action link without consuming it.
func (s *Service) InspectFixerLink(ctx context.Context, raw string) (domain.FixerLink, error) {
	claims, err := s.parseFixerLink(raw)
	if err != nil {
		return domain.FixerLink{}, err
	}
	used, err := s.store.IsUsed(ctx, claims.ID)
	if err != nil {
		return domain.FixerLink{}, err
	}
	if used {
		return domain.FixerLink{}, apperr.Gone(msgUsedLink)
	}
	return toFixerLink(claims)
}

// ConsumeFixerLink verifies a fixer action link for purpose and marks it
// used. A second use of the same link fails with Gone.
func (s *Service) ConsumeFixerLink(ctx context.Context, raw string, purpose domain.LinkPurpose) (domain.FixerLink, error) {
	claims, err := s.consume(ctx, raw, purpose)
	if err != nil {
		return domain.FixerLink{}, err
	}
	return toFixerLink(claims)
}

func (s *Service) parseFixerLink(raw string) (token.LinkClaims, error) {
	claims, err := s.signer.Parse(raw)
	if err != nil {
		return token.LinkClaims{}, apperr.Unauthorized(msgInvalidLink)
	}
	if claims.Purpose != domain.LinkFixerOffer && claims.Purpose != domain.LinkFixerComplete {
		return token.LinkClaims{}, apperr.Unauthorized(msgInvalidLink)
	}
	return claims, nil
}

func (s *Service) consume(ctx context.Context, raw string, purpose domain.LinkPurpose) (token.LinkClaims, error) {
	claims, err := s.signer.Parse(raw)
	if err != nil {
		if errors.Is(err, token.ErrInvalid) {
			return token.LinkClaims{}, apperr.Unauthorized(msgInvalidLink)
		}
		return token.LinkClaims{}, err
	}
	if claims.Purpose != purpose {
		return token.LinkClaims{}, apperr.Forbidden("link cannot be used for this action")
	}

	fresh, err := s.store.MarkUsed(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return token.LinkClaims{}, err
	}
	if !fresh {
		return token.LinkClaims{}, apperr.Gone(msgUsedLink)
	}
	return claims, nil
}

func toFixerLink(claims token.LinkClaims) (domain.FixerLink, error) {
	fixerID, err := claims.SubjectID()
	if err != nil || claims.Kind != httpkit.SubjectFixer || claims.JobID <= 0 {
		return domain.FixerLink{}, apperr.Unauthorized(msgInvalidLink)
	}
	return domain.FixerLink{JobID: claims.JobID, FixerID: fixerID, Purpose: claims.Purpose}, nil
}

func (s *Service) buildURL(path, raw string) string {
	base := strings.TrimRight(s.cfg.GetAppBaseURL(), "/")
	return base + path + "?token=" + url.QueryEscape(raw)
}
