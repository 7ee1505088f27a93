package domain

import (
	"time"

	"fixmate_backend/platform/geo"
)

// JobStatus is the lifecycle status of a job.
type JobStatus string

const (
	JobAwaitingPayment JobStatus = "awaiting_payment"
	JobUnassigned      JobStatus = "unassigned"
	JobPaidUnassigned  JobStatus = "paid_unassigned"
	JobAssigned        JobStatus = "assigned"
	JobAccepted        JobStatus = "accepted"
	JobComplete        JobStatus = "complete"
	JobCancelled       JobStatus = "cancelled"
)

// PaymentStatus tracks the client payment for a job.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// FixerFeeStatus tracks the platform fee owed by the fixer.
type FixerFeeStatus string

const (
	FixerFeePending  FixerFeeStatus = "pending"
	FixerFeeDeducted FixerFeeStatus = "deducted"
)

// Rating bounds for completed jobs.
const (
	MinRating = 1
	MaxRating = 5
)

// Sentiment labels stored on rated jobs.
const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
	SentimentUnknown  = "Unknown"
)

// jobTransitions lists the allowed moves out of each status. assigned ->
// assigned is a reassignment to a different fixer after a decline, and
// unassigned -> paid_unassigned records a payment that arrives while the job
// still waits for a fixer.
var jobTransitions = map[JobStatus][]JobStatus{
	JobAwaitingPayment: {JobAssigned, JobPaidUnassigned, JobCancelled},
	JobUnassigned:      {JobAssigned, JobPaidUnassigned, JobCancelled},
	JobPaidUnassigned:  {JobAssigned, JobCancelled},
	JobAssigned:        {JobAssigned, JobAccepted, JobUnassigned, JobPaidUnassigned, JobCancelled},
	JobAccepted:        {JobComplete, JobCancelled},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobComplete || s == JobCancelled
}

// HasFixer reports whether a job in this status must carry a fixer.
func (s JobStatus) HasFixer() bool {
	return s == JobAssigned || s == JobAccepted || s == JobComplete
}

// IsKnown reports whether s is a valid status value.
func (s JobStatus) IsKnown() bool {
	switch s {
	case JobAwaitingPayment, JobUnassigned, JobPaidUnassigned, JobAssigned, JobAccepted, JobComplete, JobCancelled:
		return true
	}
	return false
}

// Job is one service request.
type Job struct {
	ID                  int64
	ClientID            int64
	FixerID             *int64
	Description         string
	Category            Category
	Status              JobStatus
	Latitude            *float64
	Longitude           *float64
	ClientContactNumber string
	AmountCents         int64
	PaymentStatus       PaymentStatus
	FixerFeeStatus      FixerFeeStatus
	Rating              *int
	RatingComment       *string
	Sentiment           *string
	TrackingReference   *string
	AcceptedAt          *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Location returns the job site, or nil when the client has not shared one.
func (j Job) Location() *geo.Point {
	return geo.FromNullable(j.Latitude, j.Longitude)
}

// IsAssignedTo reports whether fixerID is the job's current fixer.
func (j Job) IsAssignedTo(fixerID int64) bool {
	return j.FixerID != nil && *j.FixerID == fixerID
}

// JobRequest carries everything the conversation collected before dispatch.
type JobRequest struct {
	ClientID      int64
	Description   string
	Category      Category
	Location      *geo.Point
	ClientContact string
	AmountCents   int64
}

// DispatchResult reports what happened when a job was created and matched.
type DispatchResult struct {
	Job        Job
	Fixer      *Fixer
	PaymentURL string
}
