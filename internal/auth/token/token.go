// Package token signs and verifies the JWTs used by the link based login
// and by fixer action links.
package token

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"fixmate_backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	// TypeLink is the "type" claim of signed links.
	TypeLink = "link"
	// TypeAccess is the "type" claim of access tokens.
	TypeAccess = "access"

	keyInfoPrefix = "fixmate/link/"
	keySize       = 32
)

var (
	ErrInvalid        = errors.New("token invalid")
	ErrUnknownPurpose = errors.New("unknown link purpose")
)

// LinkClaims are the claims of a signed single-use link.
type LinkClaims struct {
	jwt.RegisteredClaims
	Type    string             `json:"type"`
	Purpose domain.LinkPurpose `json:"purpose"`
	Kind    string             `json:"kind"`
	JobID   int64              `json:"job_id,omitempty"`
}

// SubjectID parses the numeric subject.
func (c LinkClaims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalid
	}
	return id, nil
}

// LinkSigner issues links with a signing key derived per purpose from one
// master secret, so a login link can never verify as a fixer action and
// the other way round.
type LinkSigner struct {
	master []byte
	now    func() time.Time
}

// NewLinkSigner creates a signer from the master secret.
func NewLinkSigner(secret string) *LinkSigner {
	return &LinkSigner{master: []byte(secret), now: time.Now}
}

func (s *LinkSigner) key(purpose domain.LinkPurpose) ([]byte, error) {
	if !purpose.IsKnown() {
		return nil, ErrUnknownPurpose
	}
	key := make([]byte, keySize)
	reader := hkdf.New(sha256.New, s.master, nil, []byte(keyInfoPrefix+string(purpose)))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive link key: %w", err)
	}
	return key, nil
}

// Sign issues a link for the subject valid for ttl.
func (s *LinkSigner) Sign(purpose domain.LinkPurpose, kind string, subjectID, jobID int64, ttl time.Duration) (string, LinkClaims, error) {
	key, err := s.key(purpose)
	if err != nil {
		return "", LinkClaims{}, err
	}

	now := s.now().UTC()
	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type:    TypeLink,
		Purpose: purpose,
		Kind:    kind,
		JobID:   jobID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", LinkClaims{}, fmt.Errorf("sign link: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies a link and returns its claims. The key is chosen by the
// purpose claim, so a tampered purpose fails verification.
func (s *LinkSigner) Parse(raw string) (LinkClaims, error) {
	claims := &LinkClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		c, ok := t.Claims.(*LinkClaims)
		if !ok {
			return nil, ErrInvalid
		}
		return s.key(c.Purpose)
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return LinkClaims{}, ErrInvalid
	}
	if claims.Type != TypeLink || claims.ID == "" {
		return LinkClaims{}, ErrInvalid
	}
	return *claims, nil
}

// IssueAccess signs an access token accepted by the HTTP auth middleware.
func IssueAccess(secret string, subjectID int64, kind string, roles []string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(subjectID, 10),
		"kind":  kind,
		"roles": roles,
		"type":  TypeAccess,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}
