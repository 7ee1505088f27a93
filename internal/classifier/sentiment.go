package classifier

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/logger"
)

const sentimentInstruction = "Classify the sentiment of customer feedback about a home repair job. " +
	"Answer with exactly one word: Positive, Negative or Neutral."

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// SentimentAnalyzer labels rating comments.
type SentimentAnalyzer struct {
	gen     TextGenerator
	timeout time.Duration
	log     *logger.Logger
}

// NewSentimentAnalyzer creates an analyzer. gen may be nil, in which case
// every comment is labelled Unknown.
func NewSentimentAnalyzer(gen TextGenerator, timeout time.Duration, log *logger.Logger) *SentimentAnalyzer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SentimentAnalyzer{gen: gen, timeout: timeout, log: log}
}

// Sentiment returns Positive, Negative, Neutral or Unknown.
func (s *SentimentAnalyzer) Sentiment(ctx context.Context, text string) string {
	if s == nil || s.gen == nil || strings.TrimSpace(text) == "" {
		return domain.SentimentUnknown
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.gen.GenerateText(callCtx, sentimentInstruction, text)
	if err != nil {
		if s.log != nil {
			s.log.WithContext(ctx).Warn("sentiment unavailable", slog.String("error", err.Error()))
		}
		return domain.SentimentUnknown
	}
	return normalizeSentiment(answer)
}

func normalizeSentiment(answer string) string {
	word := strings.ToLower(strings.Trim(strings.TrimSpace(answer), ".!\"'`*"))
	switch word {
	case "positive":
		return domain.SentimentPositive
	case "negative":
		return domain.SentimentNegative
	case "neutral":
		return domain.SentimentNeutral
	}
	return domain.SentimentUnknown
}
