package domain

import (
	"time"

	"fixmate_backend/platform/geo"
)

// VettingStatus is the admin-controlled approval gate for fixers.
type VettingStatus string

const (
	VettingPendingReview VettingStatus = "pending_review"
	VettingApproved      VettingStatus = "approved"
	VettingRejected      VettingStatus = "rejected"
)

// IsKnown reports whether v is a valid vetting status.
func (v VettingStatus) IsKnown() bool {
	return v == VettingPendingReview || v == VettingApproved || v == VettingRejected
}

// Fixer is a vetted service provider.
type Fixer struct {
	ID                int64
	FullName          string
	PhoneNumber       string
	Skills            string
	IsActive          bool
	VettingStatus     VettingStatus
	Latitude          *float64
	Longitude         *float64
	LastAssignedAt    *time.Time
	BalanceCents      int64
	BankName          *string
	BankAccountNumber *string
	BankBranchCode    *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsEligible reports whether the fixer may receive automatic job offers.
func (f Fixer) IsEligible() bool {
	return f.IsActive && f.VettingStatus == VettingApproved
}

// Location returns the fixer's last reported position, if any.
func (f Fixer) Location() *geo.Point {
	return geo.FromNullable(f.Latitude, f.Longitude)
}
