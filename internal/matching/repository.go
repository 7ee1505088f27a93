package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres FixerStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a matching repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const candidateColumns = `
	f.id, f.full_name, f.phone_number, f.skills, f.is_active, f.vetting_status,
	f.latitude, f.longitude, f.last_assigned_at, f.balance_cents, f.created_at, f.updated_at`

// LockCandidates returns every active, approved fixer not in exclude with
// their average rating. Rows are locked in id order so concurrent
// assignments queue behind each other instead of deadlocking.
func (r *Repository) LockCandidates(ctx context.Context, exclude []int64) ([]Candidate, error) {
	if exclude == nil {
		exclude = []int64{}
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT`+candidateColumns+`,
			(SELECT AVG(j.rating)::float8 FROM jobs j WHERE j.fixer_id = f.id AND j.rating IS NOT NULL)
		FROM fixers f
		WHERE f.is_active AND f.vetting_status = 'approved' AND NOT (f.id = ANY($1))
		ORDER BY f.id
		FOR UPDATE OF f`, exclude)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]Candidate, 0)
	for rows.Next() {
		var c Candidate
		var vetting string
		f := &c.Fixer
		if err := rows.Scan(
			&f.ID, &f.FullName, &f.PhoneNumber, &f.Skills, &f.IsActive, &vetting,
			&f.Latitude, &f.Longitude, &f.LastAssignedAt, &f.BalanceCents, &f.CreatedAt, &f.UpdatedAt,
			&c.AverageRating,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		f.VettingStatus = domain.VettingStatus(vetting)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}

// LockFixer loads one fixer FOR UPDATE.
func (r *Repository) LockFixer(ctx context.Context, fixerID int64) (domain.Fixer, error) {
	var f domain.Fixer
	var vetting string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT`+candidateColumns+`
		FROM fixers f
		WHERE f.id = $1
		FOR UPDATE`, fixerID).Scan(
		&f.ID, &f.FullName, &f.PhoneNumber, &f.Skills, &f.IsActive, &vetting,
		&f.Latitude, &f.Longitude, &f.LastAssignedAt, &f.BalanceCents, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Fixer{}, apperr.NotFound("fixer not found")
	}
	if err != nil {
		return domain.Fixer{}, fmt.Errorf("lock fixer: %w", err)
	}
	f.VettingStatus = domain.VettingStatus(vetting)
	return f, nil
}

// StampAssigned records the time the fixer was last given a job.
func (r *Repository) StampAssigned(ctx context.Context, fixerID int64, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE fixers SET last_assigned_at = $2, updated_at = now() WHERE id = $1`, fixerID, at)
	if err != nil {
		return fmt.Errorf("stamp last_assigned_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("fixer not found")
	}
	return nil
}

var _ FixerStore = (*Repository)(nil)
