package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestPaperAuthorLabelTruncatesAfterThree(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
		want    string
	}{
		{name: "none", authors: nil, want: "Unknown author"},
		{name: "single", authors: []string{"Sari Dewi"}, want: "Sari Dewi"},
		{name: "three", authors: []string{"A", "B", "C"}, want: "A, B, C"},
		{name: "four adds et al", authors: []string{"A", "B", "C", "D"}, want: "A, B, C et al."},
		{name: "blank names skipped", authors: []string{"A", " ", "B"}, want: "A, B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paper{Authors: tt.authors}.AuthorLabel())
		})
	}
}

func TestPaperReference(t *testing.T) {
	paper := Paper{
		Title:   " Hydroponic lettuce yield ",
		Authors: []string{"Putri", "Wijaya"},
		Year:    intPtr(2021),
		URL:     "https://example.org/p/1",
	}

	ref := paper.Reference()
	assert.Equal(t, Reference{
		Title:   "Hydroponic lettuce yield",
		Year:    "2021",
		Authors: "Putri, Wijaya",
		URL:     "https://example.org/p/1",
	}, ref)
	assert.Equal(t, "Hydroponic lettuce yield (2021). Putri, Wijaya. https://example.org/p/1", ref.String())
	assert.Equal(t, "n.d.", Paper{}.YearLabel())
}

func TestOutcomeText(t *testing.T) {
	local := LocalOutcome("Rice needs flooded paddies.")
	assert.Equal(t, "Rice needs flooded paddies.", local.Text())
	assert.False(t, local.Failed())

	external := ExternalOutcome("Combined finding.", []Reference{
		{Title: "One", Year: "2020", Authors: "A", URL: "u1"},
		{Title: "Two", Year: "n.d.", Authors: "B", URL: "u2"},
	})
	assert.Equal(t, "Combined finding.\n\nReferences:\n1. One (2020). A. u1\n2. Two (n.d.). B. u2", external.Text())

	fallback := FallbackOutcome("Disclaimer.", "General answer.")
	assert.Equal(t, "Disclaimer.\n\nGeneral answer.", fallback.Text())

	failure := FailureOutcome(ErrorKindPoolExhausted, "no usable credential")
	assert.True(t, failure.Failed())
	assert.Equal(t, "no usable credential", failure.Text())
}

func TestSentinelClassify(t *testing.T) {
	const token = "[[NO_LOCAL_DATA]]"

	tests := []struct {
		name     string
		sentinel Sentinel
		response string
		grounded bool
	}{
		{name: "contains absent", sentinel: Sentinel{Token: token, Match: SentinelContains}, response: "Use compost.", grounded: true},
		{name: "contains exact", sentinel: Sentinel{Token: token, Match: SentinelContains}, response: token, grounded: false},
		{name: "contains inside text", sentinel: Sentinel{Token: token, Match: SentinelContains}, response: "Sorry " + token + " here", grounded: false},
		{name: "contains is case sensitive", sentinel: Sentinel{Token: token, Match: SentinelContains}, response: "[[no_local_data]]", grounded: true},
		{name: "exact ignores embedded", sentinel: Sentinel{Token: token, Match: SentinelExact}, response: "Sorry " + token, grounded: true},
		{name: "exact trims", sentinel: Sentinel{Token: token, Match: SentinelExact}, response: "  " + token + "\n", grounded: false},
		{name: "empty token never escalates", sentinel: Sentinel{}, response: token, grounded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sentinel.Classify(tt.response)
			assert.Equal(t, tt.grounded, got.Grounded)
			assert.Equal(t, tt.response, got.Text)
		})
	}
}

func TestKindOf(t *testing.T) {
	quota := NewServiceError(ErrorKindQuotaExceeded, 429, "RESOURCE_EXHAUSTED", errors.New("slow down"))

	assert.Equal(t, ErrorKindQuotaExceeded, KindOf(quota))
	assert.Equal(t, ErrorKindQuotaExceeded, KindOf(fmt.Errorf("send message: %w", quota)))
	assert.True(t, errors.Is(quota, ErrQuotaExceeded))
	assert.Equal(t, ErrorKindPoolExhausted, KindOf(fmt.Errorf("rotate: %w", ErrPoolExhausted)))
	assert.Equal(t, ErrorKindNone, KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKindNone, KindOf(nil))
	assert.Contains(t, quota.Error(), "status 429")
}

func TestGroundingStrategyValidate(t *testing.T) {
	require.NoError(t, GroundingConversation.Validate())
	require.NoError(t, GroundingPrompt.Validate())
	assert.ErrorContains(t, GroundingStrategy("vector").Validate(), "unsupported grounding strategy")
	assert.ErrorContains(t, SentinelMatch("regex").Validate(), "unsupported sentinel match")
}
