package ports

import (
	"context"

	"github.com/bnema/smartani/internal/domain"
)

type CredentialRepository interface {
	GetByID(ctx context.Context, id domain.CredentialID) (domain.Credential, error)
	List(ctx context.Context) ([]domain.Credential, error)
	Save(ctx context.Context, credential domain.Credential) error
	Delete(ctx context.Context, id domain.CredentialID) error
}
