package repository

import (
	"context"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/geo"
)

// CreateParams contains parameters for registering a fixer.
type CreateParams struct {
	FullName          string
	PhoneNumber       string
	Skills            string
	VettingStatus     domain.VettingStatus
	Location          *geo.Point
	BankName          *string
	BankAccountNumber *string
	BankBranchCode    *string
}

// ListParams filters the fixer list.
type ListParams struct {
	IsActive      *bool
	VettingStatus *domain.VettingStatus
	Offset        int
	Limit         int
}

// FixerReader provides read operations for fixers.
type FixerReader interface {
	GetByID(ctx context.Context, id int64) (domain.Fixer, error)
	GetByPhone(ctx context.Context, phone string) (domain.Fixer, error)
	List(ctx context.Context, params ListParams) ([]domain.Fixer, int, error)
}

// FixerWriter provides write operations for fixers.
type FixerWriter interface {
	Create(ctx context.Context, params CreateParams) (domain.Fixer, error)
	SetActive(ctx context.Context, id int64, isActive bool) error
	SetVettingStatus(ctx context.Context, id int64, status domain.VettingStatus) error
	UpdateLocation(ctx context.Context, id int64, point geo.Point) error
	// DeductBalance subtracts cents from the balance and returns the new balance.
	DeductBalance(ctx context.Context, id int64, cents int64) (int64, error)
}

// Repository combines all fixer repository operations.
type Repository interface {
	FixerReader
	FixerWriter
}
