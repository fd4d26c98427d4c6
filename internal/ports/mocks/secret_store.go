package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSecretStore struct {
	mock.Mock
}

func NewMockSecretStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSecretStore {
	m := &MockSecretStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

type MockSecretStoreExpecter struct {
	mock *mock.Mock
}

func (m *MockSecretStore) EXPECT() *MockSecretStoreExpecter {
	return &MockSecretStoreExpecter{mock: &m.Mock}
}

func (m *MockSecretStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (e *MockSecretStoreExpecter) Get(ctx interface{}, key interface{}) *mock.Call {
	return e.mock.On("Get", ctx, key)
}

func (m *MockSecretStore) Put(ctx context.Context, key string, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

func (e *MockSecretStoreExpecter) Put(ctx interface{}, key interface{}, value interface{}) *mock.Call {
	return e.mock.On("Put", ctx, key, value)
}

func (m *MockSecretStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (e *MockSecretStoreExpecter) Delete(ctx interface{}, key interface{}) *mock.Call {
	return e.mock.On("Delete", ctx, key)
}
