package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/ports"
)

var errEmptySynthesis = errors.New("synthesis returned empty text")

const synthesisMaxOutputTokens = 2048

// SynthesisEngine reduces retrieved papers into one answer.
type SynthesisEngine struct {
	completion ports.CompletionService
	retry      *RetryController
}

func NewSynthesisEngine(completion ports.CompletionService, retry *RetryController) *SynthesisEngine {
	return &SynthesisEngine{completion: completion, retry: retry}
}

func (e *SynthesisEngine) Synthesize(ctx context.Context, question string, papers []domain.Paper, recent []domain.Exchange) (string, error) {
	if len(papers) == 0 {
		return "", fmt.Errorf("synthesize answer: %w", domain.ErrNoExternalData)
	}

	temperature := float32(0.7)
	req := ports.CompletionRequest{
		SystemInstruction: synthesisInstruction,
		Message:           synthesisPrompt(question, papers, recent),
		Temperature:       &temperature,
		MaxOutputTokens:   synthesisMaxOutputTokens,
	}

	text, err := Call(ctx, e.retry, func(ctx context.Context, credential domain.Credential) (string, error) {
		return e.completion.Generate(ctx, credential, req)
	})
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptySynthesis
	}

	return strings.TrimSpace(text), nil
}
