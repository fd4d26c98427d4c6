package chain

import (
	"context"
	"errors"
	"testing"

	passstore "github.com/bnema/smartani/internal/adapters/secrets/pass"
	"github.com/bnema/smartani/internal/domain"
	portmocks "github.com/bnema/smartani/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const key = "gemini/primary"

func newChain(t *testing.T) (*Store, *portmocks.MockSecretStore, *portmocks.MockSecretStore) {
	t.Helper()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)
	return store, primary, fallback
}

func TestNewStoreRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, portmocks.NewMockSecretStore(t))
	require.ErrorIs(t, err, errNilPrimaryStore)
	_, err = NewStore(portmocks.NewMockSecretStore(t), nil)
	require.ErrorIs(t, err, errNilFallbackStore)
}

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.EXPECT().Get(mock.Anything, key).Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Get(mock.Anything, key).Return("", passstore.ErrUnavailable).Once()
	fallback.EXPECT().Get(mock.Anything, key).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetMissingEverywhereIsSecretNotFound(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Get(mock.Anything, key).Return("", passstore.ErrUnavailable).Once()
	fallback.EXPECT().Get(mock.Anything, key).Return("", domain.ErrSecretNotFound).Once()

	_, err := store.Get(context.Background(), key)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Get(mock.Anything, key).Return("", errors.New("gpg failed")).Once()
	fallback.EXPECT().Get(mock.Anything, key).Return("", domain.ErrSecretNotFound).Once()

	_, err := store.Get(context.Background(), key)
	assert.ErrorContains(t, err, "primary backend get failed: gpg failed")
	assert.ErrorContains(t, err, "fallback backend")
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Put(mock.Anything, key, "secret").Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Put(mock.Anything, key, "secret").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), key, "secret"))
}

func TestStorePutDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.EXPECT().Put(mock.Anything, key, "secret").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), key, "secret"))
}

func TestStoreDeleteClearsBothBackends(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Delete(mock.Anything, key).Return(nil).Once()
	fallback.EXPECT().Delete(mock.Anything, key).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), key))
}

func TestStoreDeleteIgnoresUnavailablePrimary(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	primary.EXPECT().Delete(mock.Anything, key).Return(passstore.ErrUnavailable).Once()
	fallback.EXPECT().Delete(mock.Anything, key).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), key))
}

func TestStoreDeleteReportsPrimaryFailure(t *testing.T) {
	t.Parallel()

	store, primary, fallback := newChain(t)
	deleteErr := errors.New("pass failed")
	primary.EXPECT().Delete(mock.Anything, key).Return(deleteErr).Once()
	fallback.EXPECT().Delete(mock.Anything, key).Return(nil).Once()

	require.ErrorIs(t, store.Delete(context.Background(), key), deleteErr)
}

func TestStoreGetDoesNotFallbackOnCanceledContextError(t *testing.T) {
	t.Parallel()

	store, primary, _ := newChain(t)
	primary.EXPECT().Get(mock.Anything, key).Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), key)
	require.ErrorIs(t, err, context.Canceled)
}
