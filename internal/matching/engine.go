package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/logger"
)

// FixerStore loads and stamps fixers. Implementations must lock the returned
// rows for the rest of the caller's transaction.
type FixerStore interface {
	LockCandidates(ctx context.Context, exclude []int64) ([]Candidate, error)
	LockFixer(ctx context.Context, fixerID int64) (domain.Fixer, error)
	StampAssigned(ctx context.Context, fixerID int64, at time.Time) error
}

// Engine selects fixers for jobs. It must run inside the transaction that
// writes the assignment so selection and stamping are serialized.
//
// Lock order across the service is client, then job, then fixers (in id
// order). Callers must already hold any client or job row they need before
// asking the engine for a fixer.
type Engine struct {
	store FixerStore
	log   *logger.Logger
	now   func() time.Time
}

// NewEngine creates a matching engine.
func NewEngine(store FixerStore, log *logger.Logger) *Engine {
	return &Engine{store: store, log: log, now: time.Now}
}

// SelectBestFixer picks the best eligible fixer not in exclude and stamps
// their last assignment time. It returns nil, nil when nobody qualifies.
func (e *Engine) SelectBestFixer(ctx context.Context, job domain.Job, exclude []int64) (*domain.Fixer, error) {
	pool, err := e.store.LockCandidates(ctx, exclude)
	if err != nil {
		return nil, fmt.Errorf("lock candidates: %w", err)
	}

	now := e.now().UTC()
	best := Best(job, excludeIDs(pool, exclude), now)
	if best == nil {
		e.log.WithContext(ctx).Info("no eligible fixer",
			slog.Int64("job_id", job.ID),
			slog.String("category", job.Category.String()),
			slog.Int("pool", len(pool)),
		)
		return nil, nil
	}

	fixer := best.Candidate.Fixer
	if err := e.store.StampAssigned(ctx, fixer.ID, now); err != nil {
		return nil, fmt.Errorf("stamp fixer: %w", err)
	}
	fixer.LastAssignedAt = &now

	e.log.WithContext(ctx).Info("fixer selected",
		slog.Int64("job_id", job.ID),
		slog.Int64("fixer_id", fixer.ID),
		slog.Float64("score", best.Score.Total),
		slog.Float64("proximity", best.Score.Proximity),
		slog.Float64("reputation", best.Score.Reputation),
		slog.Float64("fairness", best.Score.Fairness),
	)
	return &fixer, nil
}

// Reserve stamps a specific fixer chosen by an administrator.
func (e *Engine) Reserve(ctx context.Context, fixerID int64) (*domain.Fixer, error) {
	fixer, err := e.store.LockFixer(ctx, fixerID)
	if err != nil {
		return nil, err
	}
	if !fixer.IsEligible() {
		return nil, apperr.Conflict("fixer is not active and approved")
	}

	now := e.now().UTC()
	if err := e.store.StampAssigned(ctx, fixer.ID, now); err != nil {
		return nil, fmt.Errorf("stamp fixer: %w", err)
	}
	fixer.LastAssignedAt = &now
	return &fixer, nil
}

func excludeIDs(pool []Candidate, exclude []int64) []Candidate {
	if len(exclude) == 0 {
		return pool
	}
	skip := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	out := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if _, ok := skip[c.Fixer.ID]; !ok {
			out = append(out, c)
		}
	}
	return out
}
