package repository

import (
	"context"
	"time"
)

// UsedTokenStore remembers consumed link IDs until the link would have
// expired anyway.
type UsedTokenStore interface {
	// MarkUsed records jti and reports false when it was already used.
	MarkUsed(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
	// IsUsed reports whether jti was consumed.
	IsUsed(ctx context.Context, jti string) (bool, error)
}
