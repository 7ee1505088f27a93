package service

import (
	"context"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/jobs/repository"
	"fixmate_backend/internal/jobs/transport"
	"fixmate_backend/platform/apperr"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	exportBatchSize = 500
)

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// GetByID returns a job.
func (s *Service) GetByID(ctx context.Context, id int64) (domain.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// ForFixer returns a job the fixer currently holds or held.
func (s *Service) ForFixer(ctx context.Context, jobID, fixerID int64) (domain.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if !job.IsAssignedTo(fixerID) {
		return domain.Job{}, apperr.Forbidden("job is not assigned to you")
	}
	return job, nil
}

// List returns a filtered page of jobs for administrators.
func (s *Service) List(ctx context.Context, req transport.ListJobsRequest) (transport.JobListResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	params := repository.ListParams{
		ClientID: req.ClientID,
		FixerID:  req.FixerID,
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	}
	if req.Status != "" {
		status := domain.JobStatus(req.Status)
		params.Status = &status
	}
	return s.list(ctx, params, page, pageSize)
}

// ListForClient returns the client's jobs, newest first.
func (s *Service) ListForClient(ctx context.Context, clientID int64, req transport.PageRequest) (transport.JobListResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	return s.list(ctx, repository.ListParams{
		ClientID: &clientID,
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	}, page, pageSize)
}

// ListForFixer returns the jobs currently or previously held by the fixer.
func (s *Service) ListForFixer(ctx context.Context, fixerID int64, req transport.PageRequest) (transport.JobListResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	return s.list(ctx, repository.ListParams{
		FixerID: &fixerID,
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize,
	}, page, pageSize)
}

func (s *Service) list(ctx context.Context, params repository.ListParams, page, pageSize int) (transport.JobListResponse, error) {
	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.JobListResponse{}, err
	}

	resp := transport.JobListResponse{
		Items:    make([]transport.JobResponse, 0, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, job := range items {
		resp.Items = append(resp.Items, ToResponse(job))
	}
	return resp, nil
}

// Export returns every job created in [from, to). Nil bounds are open.
func (s *Service) Export(ctx context.Context, from, to *time.Time) ([]domain.Job, error) {
	out := make([]domain.Job, 0)
	for offset := 0; ; offset += exportBatchSize {
		items, _, err := s.repo.List(ctx, repository.ListParams{
			CreatedAfter:  from,
			CreatedBefore: to,
			Offset:        offset,
			Limit:         exportBatchSize,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) < exportBatchSize {
			return out, nil
		}
	}
}

// ToResponse maps a job to its API shape.
func ToResponse(job domain.Job) transport.JobResponse {
	resp := transport.JobResponse{
		ID:                  job.ID,
		ClientID:            job.ClientID,
		FixerID:             job.FixerID,
		Description:         job.Description,
		Category:            job.Category.String(),
		Status:              string(job.Status),
		ClientContactNumber: job.ClientContactNumber,
		AmountCents:         job.AmountCents,
		PaymentStatus:       string(job.PaymentStatus),
		FixerFeeStatus:      string(job.FixerFeeStatus),
		Rating:              job.Rating,
		RatingComment:       job.RatingComment,
		Sentiment:           job.Sentiment,
		TrackingReference:   job.TrackingReference,
		AcceptedAt:          job.AcceptedAt,
		CompletedAt:         job.CompletedAt,
		CancelledAt:         job.CancelledAt,
		CreatedAt:           job.CreatedAt,
		UpdatedAt:           job.UpdatedAt,
	}
	if loc := job.Location(); loc != nil {
		resp.Location = &transport.LocationResponse{Latitude: loc.Lat, Longitude: loc.Lon}
	}
	return resp
}

// AvailableActions lists what the fixer holding the job may do next.
func AvailableActions(job domain.Job) []string {
	switch job.Status {
	case domain.JobAssigned:
		return []string{"accept", "decline"}
	case domain.JobAccepted:
		return []string{"complete"}
	}
	return []string{}
}
