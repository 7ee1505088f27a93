package classifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/logger"
)

const defaultTimeout = 4 * time.Second

// TextClassifier is an external capability that labels text. Its answer is
// advisory; the heuristic is used whenever it fails or answers off-list.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (string, error)
}

// Service classifies descriptions, preferring the external capability when
// one is configured.
type Service struct {
	heuristic *Heuristic
	external  TextClassifier
	timeout   time.Duration
	log       *logger.Logger
}

// New creates a classifier. external may be nil.
func New(heuristic *Heuristic, external TextClassifier, timeout time.Duration, log *logger.Logger) *Service {
	if heuristic == nil {
		heuristic = NewHeuristic()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{heuristic: heuristic, external: external, timeout: timeout, log: log}
}

// Classify never fails: every external error degrades to the heuristic.
func (s *Service) Classify(ctx context.Context, description string) domain.Category {
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.CategoryGeneral
	}
	if s.external == nil {
		return s.heuristic.Classify(description)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	label, err := s.external.ClassifyText(callCtx, description)
	if err == nil {
		if category, ok := domain.ParseCategory(label); ok {
			return category
		}
		err = errors.New("unexpected label " + label)
	}

	fallback := s.heuristic.Classify(description)
	if s.log != nil {
		s.log.WithContext(ctx).Warn("classifier fallback",
			slog.String("error", err.Error()),
			slog.String("category", fallback.String()),
		)
	}
	return fallback
}
