package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"fixmate_backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndParseLink(t *testing.T) {
	signer := NewLinkSigner("master-secret")
	raw, issued, err := signer.Sign(domain.LinkFixerOffer, "fixer", 12, 99, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := signer.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID != issued.ID || claims.JobID != 99 || claims.Purpose != domain.LinkFixerOffer {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if id, err := claims.SubjectID(); err != nil || id != 12 {
		t.Fatalf("expected subject 12, got %d (%v)", id, err)
	}
}

func TestPurposeKeysAreIndependent(t *testing.T) {
	signer := NewLinkSigner("master-secret")
	loginKey, _ := signer.key(domain.LinkLogin)
	offerKey, _ := signer.key(domain.LinkFixerOffer)
	if string(loginKey) == string(offerKey) {
		t.Fatalf("expected different keys per purpose")
	}

	// Re-label a login link as a fixer offer without re-signing it.
	raw, _, err := signer.Sign(domain.LinkLogin, "client", 3, 0, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(raw, ".")
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", Subject: "3", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Type:             TypeLink,
		Purpose:          domain.LinkFixerOffer,
		Kind:             "fixer",
	})
	unsigned, err := forged.SigningString()
	if err != nil {
		t.Fatalf("signing string: %v", err)
	}
	if _, err := signer.Parse(unsigned + "." + parts[2]); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected forged purpose to fail, got %v", err)
	}
}

func TestParseRejectsExpiredAndForeignLinks(t *testing.T) {
	signer := NewLinkSigner("master-secret")
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := signer.Sign(domain.LinkLogin, "client", 3, 0, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	signer.now = time.Now
	if _, err := signer.Parse(expired); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected expired link to fail, got %v", err)
	}

	other := NewLinkSigner("another-secret")
	foreign, _, _ := other.Sign(domain.LinkLogin, "client", 3, 0, time.Hour)
	if _, err := signer.Parse(foreign); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected foreign link to fail, got %v", err)
	}
}

func TestAccessTokenIsNotALink(t *testing.T) {
	signer := NewLinkSigner("master-secret")
	access, _, err := IssueAccess("master-secret", 3, "client", []string{"client"}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := signer.Parse(access); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected access token to be rejected as a link")
	}
}
