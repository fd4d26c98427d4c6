package gemini

import (
	"context"
	"testing"

	"github.com/bnema/smartani/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestConversationReplaysHistory(t *testing.T) {
	t.Parallel()

	models := &fakeModels{replies: []string{"Padi butuh air.", "Sekitar 120 hari."}}
	adapter, _ := newTestAdapter(models)

	seed := []domain.Turn{
		{Role: domain.RoleUser, Content: "DATASET"},
		{Role: domain.RoleModel, Content: "Dataset received."},
	}
	conversation, err := adapter.StartConversation(context.Background(), "Only answer from the dataset.", seed)
	require.NoError(t, err)

	_, err = conversation.Send(context.Background(), primary, "Apa kebutuhan padi?", nil)
	require.NoError(t, err)
	reply, err := conversation.Send(context.Background(), primary, "Berapa lama panen?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sekitar 120 hari.", reply)

	require.Len(t, models.calls, 2)
	assert.Len(t, models.calls[0].contents, 3)
	assert.Len(t, models.calls[1].contents, 5)
	assert.Equal(t, "Padi butuh air.", contentText(models.calls[1].contents[3]))
	assert.Equal(t, "Only answer from the dataset.", contentText(models.calls[1].config.SystemInstruction))

	assert.Len(t, conversation.History(), 6)
	seed[0].Content = "mutated"
	assert.Equal(t, "DATASET", conversation.History()[0].Content)
}

func TestConversationFailedSendKeepsHistory(t *testing.T) {
	t.Parallel()

	models := &fakeModels{
		errs:    []error{genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, nil},
		replies: []string{"ok"},
	}
	adapter, _ := newTestAdapter(models)
	conversation, err := adapter.StartConversation(context.Background(), "", nil)
	require.NoError(t, err)

	_, err = conversation.Send(context.Background(), primary, "first", nil)
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Empty(t, conversation.History())

	_, err = conversation.Send(context.Background(), primary, "first", nil)
	require.NoError(t, err)
	assert.Len(t, conversation.History(), 2)
	assert.Len(t, models.calls[1].contents, 1)
}

func TestConversationInject(t *testing.T) {
	t.Parallel()

	adapter, _ := newTestAdapter(&fakeModels{})
	conversation, err := adapter.StartConversation(context.Background(), "", nil)
	require.NoError(t, err)

	require.NoError(t, conversation.Inject(context.Background(), "Paper summary"))
	require.NoError(t, conversation.Inject(context.Background(), "   "))

	assert.Equal(t, []domain.Turn{
		{Role: domain.RoleUser, Content: "Paper summary"},
		{Role: domain.RoleModel, Content: injectedAcknowledgement},
	}, conversation.History())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, conversation.Inject(ctx, "late"), context.Canceled)
}
