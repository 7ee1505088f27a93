package repository

import (
	"context"
	"time"

	"fixmate_backend/internal/domain"
)

// CreateParams contains parameters for inserting a job.
type CreateParams struct {
	ClientID            int64
	Description         string
	Category            domain.Category
	Status              domain.JobStatus
	Latitude            *float64
	Longitude           *float64
	ClientContactNumber string
	AmountCents         int64
}

// ListParams filters job listings. Nil filters are ignored.
type ListParams struct {
	ClientID      *int64
	FixerID       *int64
	Status        *domain.JobStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Offset        int
	Limit         int
}

// JobReader provides read operations for jobs.
type JobReader interface {
	GetByID(ctx context.Context, id int64) (domain.Job, error)
	List(ctx context.Context, params ListParams) ([]domain.Job, int, error)
	ListDeclinedFixers(ctx context.Context, jobID int64) ([]int64, error)
}

// JobWriter provides write operations for jobs. Update persists every
// mutable column of the job in one statement, so a status change and its
// side-effect fields are always written together.
type JobWriter interface {
	Create(ctx context.Context, params CreateParams) (domain.Job, error)
	GetForUpdate(ctx context.Context, id int64) (domain.Job, error)
	Update(ctx context.Context, job domain.Job) (domain.Job, error)
	RecordDecline(ctx context.Context, jobID, fixerID int64, reason string) error
}

// Repository combines all job data operations.
type Repository interface {
	JobReader
	JobWriter
}
