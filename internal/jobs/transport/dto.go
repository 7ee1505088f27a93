package transport

import "time"

// PageRequest is the shared paging query.
type PageRequest struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ListJobsRequest filters the admin job list.
type ListJobsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=awaiting_payment unassigned paid_unassigned assigned accepted complete cancelled"`
	ClientID *int64 `form:"clientId" validate:"omitempty,gt=0"`
	FixerID  *int64 `form:"fixerId" validate:"omitempty,gt=0"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// AssignJobRequest assigns an unassigned job to a fixer.
type AssignJobRequest struct {
	FixerID int64 `json:"fixerId" validate:"required,gt=0"`
}

// CancelJobRequest cancels a job.
type CancelJobRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

// LocationResponse is a job site.
type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// JobResponse is the API shape of a job.
type JobResponse struct {
	ID                  int64             `json:"id"`
	ClientID            int64             `json:"clientId"`
	FixerID             *int64            `json:"fixerId,omitempty"`
	Description         string            `json:"description"`
	Category            string            `json:"category"`
	Status              string            `json:"status"`
	Location            *LocationResponse `json:"location,omitempty"`
	ClientContactNumber string            `json:"clientContactNumber"`
	AmountCents         int64             `json:"amountCents"`
	PaymentStatus       string            `json:"paymentStatus"`
	FixerFeeStatus      string            `json:"fixerFeeStatus"`
	Rating              *int              `json:"rating,omitempty"`
	RatingComment       *string           `json:"ratingComment,omitempty"`
	Sentiment           *string           `json:"sentiment,omitempty"`
	TrackingReference   *string           `json:"trackingReference,omitempty"`
	AcceptedAt          *time.Time        `json:"acceptedAt,omitempty"`
	CompletedAt         *time.Time        `json:"completedAt,omitempty"`
	CancelledAt         *time.Time        `json:"cancelledAt,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// JobListResponse is a page of jobs.
type JobListResponse struct {
	Items    []JobResponse `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// FixerActionResponse is what a fixer sees when opening an action link.
type FixerActionResponse struct {
	Job     JobResponse `json:"job"`
	Actions []string    `json:"actions"`
}

// ActionResultResponse reports the outcome of a fixer action.
type ActionResultResponse struct {
	JobID             int64   `json:"jobId"`
	Status            string  `json:"status"`
	TrackingReference *string `json:"trackingReference,omitempty"`
	Message           string  `json:"message"`
}

// FixerActionRequest carries a signed fixer action link token.
type FixerActionRequest struct {
	Token string `json:"token" form:"token" validate:"required,max=2048"`
}
