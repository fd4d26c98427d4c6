// Package mocks holds testify mocks for the ports interfaces.
package mocks

import (
	"context"

	"github.com/bnema/smartani/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockCredentialRepository struct {
	mock.Mock
}

func NewMockCredentialRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCredentialRepository {
	m := &MockCredentialRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

type MockCredentialRepositoryExpecter struct {
	mock *mock.Mock
}

func (m *MockCredentialRepository) EXPECT() *MockCredentialRepositoryExpecter {
	return &MockCredentialRepositoryExpecter{mock: &m.Mock}
}

func (m *MockCredentialRepository) GetByID(ctx context.Context, id domain.CredentialID) (domain.Credential, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Credential), args.Error(1)
}

func (e *MockCredentialRepositoryExpecter) GetByID(ctx interface{}, id interface{}) *mock.Call {
	return e.mock.On("GetByID", ctx, id)
}

func (m *MockCredentialRepository) List(ctx context.Context) ([]domain.Credential, error) {
	args := m.Called(ctx)
	credentials, _ := args.Get(0).([]domain.Credential)
	return credentials, args.Error(1)
}

func (e *MockCredentialRepositoryExpecter) List(ctx interface{}) *mock.Call {
	return e.mock.On("List", ctx)
}

func (m *MockCredentialRepository) Save(ctx context.Context, credential domain.Credential) error {
	return m.Called(ctx, credential).Error(0)
}

func (e *MockCredentialRepositoryExpecter) Save(ctx interface{}, credential interface{}) *mock.Call {
	return e.mock.On("Save", ctx, credential)
}

func (m *MockCredentialRepository) Delete(ctx context.Context, id domain.CredentialID) error {
	return m.Called(ctx, id).Error(0)
}

func (e *MockCredentialRepositoryExpecter) Delete(ctx interface{}, id interface{}) *mock.Call {
	return e.mock.On("Delete", ctx, id)
}
