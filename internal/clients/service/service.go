package service

import (
	"context"
	"log/slog"

	"fixmate_backend/internal/clients/repository"
	"fixmate_backend/internal/clients/transport"
	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/phone"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service provides administrative operations on clients.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new clients service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List returns a page of clients.
func (s *Service) List(ctx context.Context, req transport.ListClientsRequest) (transport.ClientListResponse, error) {
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

	items, total, err := s.repo.List(ctx, repository.ListParams{
		Search: req.Search,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		return transport.ClientListResponse{}, err
	}

	resp := transport.ClientListResponse{
		Items:    make([]transport.ClientResponse, 0, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, c := range items {
		resp.Items = append(resp.Items, ToResponse(c))
	}
	return resp, nil
}

// GetByID returns a client.
func (s *Service) GetByID(ctx context.Context, id int64) (domain.Client, error) {
	return s.repo.GetByID(ctx, id)
}

// LockByID locks the client row for the rest of the caller's transaction.
func (s *Service) LockByID(ctx context.Context, id int64) (domain.Client, error) {
	return s.repo.LockByID(ctx, id)
}

// GetByPhone finds a client by any phone format.
func (s *Service) GetByPhone(ctx context.Context, number string) (domain.Client, error) {
	return s.repo.GetByPhone(ctx, phone.NormalizeE164(number))
}

// SetAdmin promotes or demotes a client.
func (s *Service) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	if err := s.repo.SetAdmin(ctx, id, isAdmin); err != nil {
		return err
	}
	s.log.Info("client admin flag changed", slog.Int64("client_id", id), slog.Bool("is_admin", isAdmin))
	return nil
}

// Delete removes a client and their jobs.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("client deleted", slog.Int64("client_id", id))
	return nil
}

// ToResponse maps a client to its API shape.
func ToResponse(c domain.Client) transport.ClientResponse {
	return transport.ClientResponse{
		ID:                c.ID,
		PhoneNumber:       c.PhoneNumber,
		FullName:          c.FullName,
		ConversationState: c.ConversationState,
		IsAdmin:           c.IsAdmin,
		CreatedAt:         c.CreatedAt,
	}
}
