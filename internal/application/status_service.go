package application

import (
	"context"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/ports"
)

const DefaultModelListLimit = 5

type StatusService struct {
	completion ports.CompletionService
	retry      *RetryController
	sessions   *SessionManager
	clock      ports.Clock
}

func NewStatusService(completion ports.CompletionService, retry *RetryController, sessions *SessionManager, clock ports.Clock) *StatusService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &StatusService{completion: completion, retry: retry, sessions: sessions, clock: clock}
}

// Status reports pool and session counts plus up to limit available models.
// A model listing failure is reported in the status instead of failing it.
func (s *StatusService) Status(ctx context.Context, limit int) SystemStatus {
	if limit <= 0 {
		limit = DefaultModelListLimit
	}

	pool := s.retry.Pool()
	status := SystemStatus{
		Online:          true,
		CredentialCount: pool.Len(),
		UsableCount:     pool.Size(),
		SessionCount:    s.sessions.Count(),
		Strategy:        string(s.sessions.Strategy()),
		Timestamp:       s.clock.Now(),
	}

	models, err := Call(ctx, s.retry, func(ctx context.Context, credential domain.Credential) ([]ports.ModelInfo, error) {
		return s.completion.ListModels(ctx, credential)
	})
	if err != nil {
		status.ModelsError = err.Error()
		return status
	}
	if len(models) > limit {
		models = models[:limit]
	}
	status.Models = models

	return status
}
