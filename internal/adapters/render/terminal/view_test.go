package terminal

import (
	"testing"
	"time"

	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLocalOutcome(t *testing.T) {
	output, err := RenderOutcome(domain.LocalOutcome("Tanam padi saat musim hujan."))

	require.NoError(t, err)
	assert.Contains(t, output, "[dataset]")
	assert.Contains(t, output, "Tanam padi saat musim hujan.")
	assert.NotContains(t, output, "References")
}

func TestRenderExternalOutcomeListsReferences(t *testing.T) {
	output, err := RenderOutcome(domain.ExternalOutcome("Nitrogen boosts tillering.", []domain.Reference{
		{Title: "Paddy nitrogen", Year: "2021", Authors: "Dewi", URL: "https://example.org/1"},
		{Title: "Compost", Year: "n.d.", Authors: "Budi", URL: "https://example.org/2"},
	}))

	require.NoError(t, err)
	assert.Contains(t, output, "[scholar]")
	assert.Contains(t, output, "References")
	assert.Contains(t, output, "1. Paddy nitrogen (2021). Dewi. https://example.org/1")
	assert.Contains(t, output, "2. Compost (n.d.). Budi. https://example.org/2")
}

func TestRenderFallbackAndFailure(t *testing.T) {
	output, err := RenderOutcome(domain.FallbackOutcome("Not from the dataset.", "General advice."))
	require.NoError(t, err)
	assert.Contains(t, output, "[general]")
	assert.Contains(t, output, "Not from the dataset.")
	assert.Contains(t, output, "General advice.")

	output, err = RenderOutcome(domain.FailureOutcome(domain.ErrorKindPoolExhausted, "No usable API key."))
	require.NoError(t, err)
	assert.Contains(t, output, "[error]")
	assert.Contains(t, output, "No usable API key.")
}

func TestRenderStatus(t *testing.T) {
	output, err := RenderStatus(application.SystemStatus{
		Online:          true,
		CredentialCount: 4,
		UsableCount:     2,
		SessionCount:    3,
		Strategy:        "conversation",
		Models:          []ports.ModelInfo{{Name: "models/gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash"}},
		Timestamp:       time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Contains(t, output, "online")
	assert.Contains(t, output, "grounding: conversation | sessions: 3")
	assert.Contains(t, output, "[==========----------]")
	assert.Contains(t, output, "2/4 usable")
	assert.Contains(t, output, "models/gemini-2.5-flash")
	assert.Contains(t, output, "2026-02-14T11:00:00Z")
}

func TestRenderStatusModelsError(t *testing.T) {
	output, err := RenderStatus(application.SystemStatus{Online: true, ModelsError: "quota exceeded"})

	require.NoError(t, err)
	assert.Contains(t, output, "unavailable: quota exceeded")
	assert.Contains(t, output, "0/0 usable")
}

func TestRenderCredentials(t *testing.T) {
	output, err := RenderCredentials([]application.CredentialView{
		{ID: "primary", Name: "Main", Source: "store"},
		{ID: "env-1", Name: "environment", Source: "env", Placeholder: true},
	})
	require.NoError(t, err)
	assert.Contains(t, output, "configured: 2")
	assert.Contains(t, output, "primary")
	assert.Contains(t, output, "[placeholder]")

	output, err = RenderCredentials(nil)
	require.NoError(t, err)
	assert.Contains(t, output, "No credentials configured")
}
