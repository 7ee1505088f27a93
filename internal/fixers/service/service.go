package service

import (
	"context"
	"log/slog"
	"strings"

	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/fixers/repository"
	"fixmate_backend/internal/fixers/transport"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/geo"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/phone"
	"fixmate_backend/platform/sanitize"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service provides business logic for fixers.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new fixers service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create registers a fixer. New fixers start pending review unless the
// administrator approves them up front.
func (s *Service) Create(ctx context.Context, req transport.CreateFixerRequest) (transport.FixerResponse, error) {
	params := repository.CreateParams{
		FullName:          sanitize.Text(req.FullName, 120),
		PhoneNumber:       phone.NormalizeE164(req.PhoneNumber),
		Skills:            normalizeSkills(req.Skills),
		VettingStatus:     domain.VettingPendingReview,
		BankName:          sanitize.TextPtr(req.BankName, 100),
		BankAccountNumber: req.BankAccountNumber,
		BankBranchCode:    sanitize.TextPtr(req.BankBranchCode, 20),
	}
	if req.Approved {
		params.VettingStatus = domain.VettingApproved
	}
	if req.Latitude != nil && req.Longitude != nil {
		point, err := geo.NewPoint(*req.Latitude, *req.Longitude)
		if err != nil {
			return transport.FixerResponse{}, apperr.Validation(err.Error())
		}
		params.Location = &point
	}

	fixer, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.FixerResponse{}, err
	}
	s.log.Info("fixer created", slog.Int64("fixer_id", fixer.ID), slog.String("vetting_status", string(fixer.VettingStatus)))
	return ToResponse(fixer), nil
}

// List returns a page of fixers.
func (s *Service) List(ctx context.Context, req transport.ListFixersRequest) (transport.FixerListResponse, error) {
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	params := repository.ListParams{IsActive: req.IsActive, Offset: (page - 1) * pageSize, Limit: pageSize}
	if req.VettingStatus != "" {
		status := domain.VettingStatus(req.VettingStatus)
		params.VettingStatus = &status
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.FixerListResponse{}, err
	}

	resp := transport.FixerListResponse{
		Items:    make([]transport.FixerResponse, 0, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, f := range items {
		resp.Items = append(resp.Items, ToResponse(f))
	}
	return resp, nil
}

// GetByID loads a fixer.
func (s *Service) GetByID(ctx context.Context, id int64) (domain.Fixer, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByPhone finds a fixer by any phone format.
func (s *Service) GetByPhone(ctx context.Context, number string) (domain.Fixer, error) {
	return s.repo.GetByPhone(ctx, phone.NormalizeE164(number))
}

// SetActive activates or deactivates a fixer.
func (s *Service) SetActive(ctx context.Context, id int64, isActive bool) error {
	if err := s.repo.SetActive(ctx, id, isActive); err != nil {
		return err
	}
	s.log.Info("fixer active flag changed", slog.Int64("fixer_id", id), slog.Bool("is_active", isActive))
	return nil
}

// SetVettingStatus records an admin vetting decision.
func (s *Service) SetVettingStatus(ctx context.Context, id int64, status domain.VettingStatus) error {
	if !status.IsKnown() {
		return apperr.Validation("unknown vetting status")
	}
	if err := s.repo.SetVettingStatus(ctx, id, status); err != nil {
		return err
	}
	s.log.Info("fixer vetting changed", slog.Int64("fixer_id", id), slog.String("vetting_status", string(status)))
	return nil
}

// UpdateLocation stores the fixer's reported position.
func (s *Service) UpdateLocation(ctx context.Context, id int64, lat, lon float64) error {
	point, err := geo.NewPoint(lat, lon)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	return s.repo.UpdateLocation(ctx, id, point)
}

// DeductFee charges the platform fee for a completed job.
func (s *Service) DeductFee(ctx context.Context, fixerID int64, cents int64) error {
	if cents <= 0 {
		return nil
	}
	balance, err := s.repo.DeductBalance(ctx, fixerID, cents)
	if err != nil {
		return err
	}
	s.log.WithContext(ctx).Info("platform fee deducted",
		slog.Int64("fixer_id", fixerID),
		slog.Int64("fee_cents", cents),
		slog.Int64("balance_cents", balance),
	)
	return nil
}

func normalizeSkills(skills string) string {
	parts := strings.Split(skills, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// ToResponse maps a fixer to its API shape.
func ToResponse(f domain.Fixer) transport.FixerResponse {
	return transport.FixerResponse{
		ID:             f.ID,
		FullName:       f.FullName,
		PhoneNumber:    f.PhoneNumber,
		Skills:         f.Skills,
		IsActive:       f.IsActive,
		VettingStatus:  string(f.VettingStatus),
		Latitude:       f.Latitude,
		Longitude:      f.Longitude,
		LastAssignedAt: f.LastAssignedAt,
		BalanceCents:   f.BalanceCents,
		CreatedAt:      f.CreatedAt,
	}
}
