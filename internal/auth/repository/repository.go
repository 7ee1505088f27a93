package repository

import (
	"context"
	"fmt"
	"time"

	"fixmate_backend/platform/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo stores used link IDs in PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL token store.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements UsedTokenStore.
var _ UsedTokenStore = (*Repo)(nil)

// MarkUsed inserts jti unless it is already present.
func (r *Repo) MarkUsed(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO used_link_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING`, jti, expiresAt)
	if err != nil {
		return false, fmt.Errorf("mark link used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IsUsed reports whether jti was consumed.
func (r *Repo) IsUsed(ctx context.Context, jti string) (bool, error) {
	var used bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM used_link_tokens WHERE jti = $1)`, jti).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check link used: %w", err)
	}
	return used, nil
}

// PurgeExpired deletes rows whose links can no longer verify.
func (r *Repo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM used_link_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge used links: %w", err)
	}
	return tag.RowsAffected(), nil
}
