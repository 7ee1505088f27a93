package transport

import "time"

// CreateFixerRequest registers a fixer.
type CreateFixerRequest struct {
	FullName          string   `json:"fullName" validate:"required,min=2,max=120"`
	PhoneNumber       string   `json:"phoneNumber" validate:"required,za_phone"`
	Skills            string   `json:"skills" validate:"required,max=255,skill_csv"`
	Approved          bool     `json:"approved"`
	Latitude          *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude         *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	BankName          *string  `json:"bankName,omitempty" validate:"omitempty,max=100"`
	BankAccountNumber *string  `json:"bankAccountNumber,omitempty" validate:"omitempty,max=50,numeric"`
	BankBranchCode    *string  `json:"bankBranchCode,omitempty" validate:"omitempty,max=20"`
}

// ListFixersRequest filters the admin fixer list.
type ListFixersRequest struct {
	IsActive      *bool  `form:"isActive"`
	VettingStatus string `form:"vettingStatus" validate:"omitempty,oneof=pending_review approved rejected"`
	Page          int    `form:"page" validate:"omitempty,min=1"`
	PageSize      int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// SetActiveRequest toggles whether the fixer takes work.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// SetVettingRequest records the vetting decision.
type SetVettingRequest struct {
	VettingStatus string `json:"vettingStatus" validate:"required,oneof=pending_review approved rejected"`
}

// UpdateLocationRequest is sent by the fixer's own device.
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// FixerResponse represents a fixer in API responses. Banking details are
// never returned.
type FixerResponse struct {
	ID             int64      `json:"id"`
	FullName       string     `json:"fullName"`
	PhoneNumber    string     `json:"phoneNumber"`
	Skills         string     `json:"skills"`
	IsActive       bool       `json:"isActive"`
	VettingStatus  string     `json:"vettingStatus"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	LastAssignedAt *time.Time `json:"lastAssignedAt,omitempty"`
	BalanceCents   int64      `json:"balanceCents"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// FixerListResponse wraps a page of fixers.
type FixerListResponse struct {
	Items    []FixerResponse `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}
