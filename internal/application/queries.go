package application

import (
	"time"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/ports"
)

// CredentialView is a credential as shown to operators. It never carries the
// token.
type CredentialView struct {
	ID          domain.CredentialID `json:"id"`
	Name        string              `json:"name"`
	SecretRef   string              `json:"secret_ref,omitempty"`
	Source      string              `json:"source"`
	Placeholder bool                `json:"placeholder"`
}

type SystemStatus struct {
	Online          bool              `json:"online"`
	CredentialCount int               `json:"credential_count"`
	UsableCount     int               `json:"usable_credentials"`
	SessionCount    int               `json:"active_sessions"`
	Strategy        string            `json:"grounding_strategy"`
	Models          []ports.ModelInfo `json:"available_models"`
	ModelsError     string            `json:"models_error,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

type SessionHistory struct {
	SessionKey   string            `json:"session_id"`
	Exchanges    []domain.Exchange `json:"history"`
	MemoryLength int               `json:"memory_length"`
}
