package application

import (
	"context"
	"strings"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/logging"
	"github.com/bnema/smartani/internal/ports"
	"go.uber.org/zap"
)

const optimizerMaxOutputTokens = 64

// QueryOptimizer rewrites a conversational question into a keyword query for
// the scholarly search service.
type QueryOptimizer struct {
	completion ports.CompletionService
	retry      *RetryController
	logger     *zap.Logger
}

func NewQueryOptimizer(completion ports.CompletionService, retry *RetryController, logger *zap.Logger) *QueryOptimizer {
	return &QueryOptimizer{completion: completion, retry: retry, logger: logging.OrNop(logger)}
}

// Optimize never fails: any completion error or empty output yields the
// original question. prior is only blended in for follow-up questions.
func (o *QueryOptimizer) Optimize(ctx context.Context, question string, prior *domain.FirstTurn) string {
	temperature := float32(0.1)
	req := ports.CompletionRequest{
		SystemInstruction: optimizerInstruction,
		Message:           optimizerPrompt(question, prior),
		Temperature:       &temperature,
		MaxOutputTokens:   optimizerMaxOutputTokens,
	}

	keywords, err := Call(ctx, o.retry, func(ctx context.Context, credential domain.Credential) (string, error) {
		return o.completion.Generate(ctx, credential, req)
	})
	if err != nil {
		o.logger.Warn("query optimization failed, using original question", zap.Error(err))
		return question
	}

	keywords = normalizeKeywords(keywords)
	if keywords == "" {
		return question
	}

	return keywords
}

func normalizeKeywords(raw string) string {
	line := strings.TrimSpace(raw)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	return strings.Trim(line, "\"'` ")
}
