package repository

import (
	"context"
	"errors"
	"fmt"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobNotFoundMessage = "job not found"

const jobColumns = `id, client_id, fixer_id, description, category, status, latitude, longitude,
	client_contact_number, amount_cents, payment_status, fixer_fee_status, rating, rating_comment,
	sentiment, tracking_reference, accepted_at, completed_at, cancelled_at, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new jobs repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanJob(row pgx.Row) (domain.Job, error) {
	var j domain.Job
	var category, status, payment, fee string
	var rating *int16
	err := row.Scan(
		&j.ID, &j.ClientID, &j.FixerID, &j.Description, &category, &status, &j.Latitude, &j.Longitude,
		&j.ClientContactNumber, &j.AmountCents, &payment, &fee, &rating, &j.RatingComment,
		&j.Sentiment, &j.TrackingReference, &j.AcceptedAt, &j.CompletedAt, &j.CancelledAt,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return domain.Job{}, err
	}
	j.Category = domain.Category(category)
	j.Status = domain.JobStatus(status)
	j.PaymentStatus = domain.PaymentStatus(payment)
	j.FixerFeeStatus = domain.FixerFeeStatus(fee)
	if rating != nil {
		value := int(*rating)
		j.Rating = &value
	}
	return j, nil
}

func (r *Repo) getOne(ctx context.Context, op, query string, args ...any) (domain.Job, error) {
	j, err := scanJob(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, apperr.NotFound(jobNotFoundMessage)
		}
		return domain.Job{}, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}

// GetByID retrieves a job by ID.
func (r *Repo) GetByID(ctx context.Context, id int64) (domain.Job, error) {
	return r.getOne(ctx, "get job by id", `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
}

// GetForUpdate retrieves a job and locks its row until the transaction ends.
func (r *Repo) GetForUpdate(ctx context.Context, id int64) (domain.Job, error) {
	return r.getOne(ctx, "lock job", `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
}

// List retrieves jobs newest first.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Job, int, error) {
	var status any
	if params.Status != nil {
		status = string(*params.Status)
	}

	const filter = `WHERE ($1::bigint IS NULL OR client_id = $1)
		AND ($2::bigint IS NULL OR fixer_id = $2)
		AND ($3::text IS NULL OR status = $3)
		AND ($4::timestamptz IS NULL OR created_at >= $4)
		AND ($5::timestamptz IS NULL OR created_at < $5)`
	args := []any{params.ClientID, params.FixerID, status, params.CreatedAfter, params.CreatedBefore}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM jobs `+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+jobColumns+` FROM jobs `+filter+` ORDER BY created_at DESC, id DESC LIMIT $6 OFFSET $7`,
		append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate jobs: %w", err)
	}
	return items, total, nil
}

// ListDeclinedFixers returns every fixer that declined or let the offer for
// the job expire.
func (r *Repo) ListDeclinedFixers(ctx context.Context, jobID int64) ([]int64, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT fixer_id FROM job_declines WHERE job_id = $1 ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job declines: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect job declines: %w", err)
	}
	return ids, nil
}

// Create inserts a new job.
func (r *Repo) Create(ctx context.Context, params CreateParams) (domain.Job, error) {
	j, err := scanJob(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO jobs (client_id, description, category, status, latitude, longitude,
			client_contact_number, amount_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+jobColumns,
		params.ClientID, params.Description, string(params.Category), string(params.Status),
		params.Latitude, params.Longitude, params.ClientContactNumber, params.AmountCents,
	))
	if err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}
	return j, nil
}

// Update writes the mutable columns of a job.
func (r *Repo) Update(ctx context.Context, job domain.Job) (domain.Job, error) {
	var rating *int16
	if job.Rating != nil {
		value := int16(*job.Rating)
		rating = &value
	}

	return r.getOne(ctx, "update job", `
		UPDATE jobs SET
			fixer_id = $2, status = $3, payment_status = $4, fixer_fee_status = $5,
			rating = $6, rating_comment = $7, sentiment = $8, tracking_reference = $9,
			accepted_at = $10, completed_at = $11, cancelled_at = $12, updated_at = now()
		WHERE id = $1
		RETURNING `+jobColumns,
		job.ID, job.FixerID, string(job.Status), string(job.PaymentStatus), string(job.FixerFeeStatus),
		rating, job.RatingComment, job.Sentiment, job.TrackingReference,
		job.AcceptedAt, job.CompletedAt, job.CancelledAt,
	)
}

// RecordDecline stores that a fixer turned a job down. Repeated declines by
// the same fixer are ignored.
func (r *Repo) RecordDecline(ctx context.Context, jobID, fixerID int64, reason string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO job_declines (job_id, fixer_id, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_id, fixer_id) DO NOTHING`, jobID, fixerID, reason)
	if err != nil {
		return fmt.Errorf("record job decline: %w", err)
	}
	return nil
}
