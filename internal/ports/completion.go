package ports

import (
	"context"

	"github.com/bnema/smartani/internal/domain"
)

type CompletionRequest struct {
	SystemInstruction string
	History           []domain.Turn
	Message           string
	Attachment        *domain.Attachment
	Temperature       *float32
	MaxOutputTokens   int32
}

type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// CompletionService is the generative model. Every method takes the
// credential to use for that single attempt so the caller owns rotation.
type CompletionService interface {
	Generate(ctx context.Context, credential domain.Credential, req CompletionRequest) (string, error)
	StartConversation(ctx context.Context, systemInstruction string, history []domain.Turn) (Conversation, error)
	ListModels(ctx context.Context, credential domain.Credential) ([]ModelInfo, error)
}

// Conversation is a stateful exchange seeded from a history. A failed Send
// leaves the history untouched so a retry does not duplicate turns.
type Conversation interface {
	Send(ctx context.Context, credential domain.Credential, message string, attachment *domain.Attachment) (string, error)
	Inject(ctx context.Context, text string) error
	History() []domain.Turn
}
