package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/smartani/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeStore(run runFunc) *Store {
	return &Store{run: run, prefix: DefaultPrefix}
}

func TestStorePutUsesPassInsertUnderPrefix(t *testing.T) {
	t.Parallel()

	called := false
	store := fakeStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		called = true
		assert.Equal(t, []string{"insert", "-m", "-f", "smartani/gemini/primary"}, args)
		assert.Equal(t, "AIza-secret\n", input)
		return "", "", nil
	})

	require.NoError(t, store.Put(context.Background(), "gemini/primary", "AIza-secret"))
	assert.True(t, called)
}

func TestStoreGetReturnsFirstLine(t *testing.T) {
	t.Parallel()

	store := fakeStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		assert.Equal(t, []string{"show", "smartani/gemini/primary"}, args)
		assert.Empty(t, input)
		return "AIza-secret\r\nlabel: primary project\n", "", nil
	})

	value, err := store.Get(context.Background(), "gemini/primary")
	require.NoError(t, err)
	assert.Equal(t, "AIza-secret", value)
}

func TestStoreWithoutPrefixUsesKeyAsIs(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", "gemini/primary"}, args)
			return "", "", nil
		},
	}

	require.NoError(t, store.Delete(context.Background(), "/gemini/primary/"))
}

func TestStoreGetMissingEntryIsSecretNotFound(t *testing.T) {
	t.Parallel()

	store := fakeStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		return "", "Error: smartani/gemini/gone is not in the password store.", errors.New("exit status 1")
	})

	_, err := store.Get(context.Background(), "gemini/gone")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
	require.NoError(t, store.Delete(context.Background(), "gemini/gone"))
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := fakeStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		return "", "gpg: decryption failed", errors.New("exit status 2")
	})

	_, err := store.Get(context.Background(), "gemini/primary")
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "gemini/primary")
	assert.ErrorContains(t, err, "gpg: decryption failed")
	assert.NotErrorIs(t, err, domain.ErrSecretNotFound)
}
