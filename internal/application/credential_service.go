package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/ports"
)

const (
	credentialSourceRepository = "repository"
	credentialSourceEnv        = "env"
)

// CredentialService manages stored credential entries and assembles the
// credential pool from them.
type CredentialService struct {
	repo  ports.CredentialRepository
	store ports.SecretStore
}

func NewCredentialService(repo ports.CredentialRepository, store ports.SecretStore) *CredentialService {
	return &CredentialService{repo: repo, store: store}
}

func SecretKeyFor(id domain.CredentialID) string {
	return "gemini/" + string(id)
}

// AddCredential stores the token in the secret store and saves the entry.
// Replacing a credential deletes its previous secret once the new one is
// saved; every failure after the secret write is rolled back.
func (s *CredentialService) AddCredential(ctx context.Context, cmd AddCredentialCommand) error {
	id := domain.CredentialID(strings.TrimSpace(string(cmd.ID)))
	credential, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrCredentialNotFound) {
			return fmt.Errorf("get credential by id: %w", err)
		}
		credential = domain.Credential{ID: id}
	}
	original := credential

	if name := strings.TrimSpace(cmd.Name); name != "" {
		credential.Name = name
	}
	credential.Placeholder = cmd.Placeholder
	credential.Token = ""

	token := strings.TrimSpace(cmd.Token)
	secretKey := ""
	if token != "" {
		secretKey = SecretKeyFor(id)
		if err := s.store.Put(ctx, secretKey, token); err != nil {
			return fmt.Errorf("store credential secret: %w", err)
		}
		credential.SecretRef = secretKey
	}

	if err := credential.Validate(); err != nil {
		return s.rollbackSecret(ctx, secretKey, fmt.Errorf("validate credential: %w", err))
	}

	if err := s.repo.Save(ctx, credential); err != nil {
		return s.rollbackSecret(ctx, secretKey, fmt.Errorf("save credential: %w", err))
	}

	previous := original.SecretRef
	if previous == "" || secretKey == "" || previous == secretKey {
		return nil
	}
	if err := s.store.Delete(ctx, previous); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		var rollbackErr error
		if restoreErr := s.repo.Save(ctx, original); restoreErr != nil {
			rollbackErr = errors.Join(rollbackErr, restoreErr)
		}
		if deleteErr := s.store.Delete(ctx, secretKey); deleteErr != nil {
			rollbackErr = errors.Join(rollbackErr, deleteErr)
		}
		if rollbackErr != nil {
			return fmt.Errorf("delete previous credential secret and rollback update: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("delete previous credential secret: %w", err)
	}

	return nil
}

func (s *CredentialService) rollbackSecret(ctx context.Context, secretKey string, cause error) error {
	if secretKey == "" {
		return cause
	}
	if rollbackErr := s.store.Delete(ctx, secretKey); rollbackErr != nil {
		return fmt.Errorf("%w (rollback stored secret: %w)", cause, rollbackErr)
	}
	return cause
}

// RemoveCredential deletes the entry and then its secret. If the secret
// cannot be deleted the entry is restored.
func (s *CredentialService) RemoveCredential(ctx context.Context, cmd RemoveCredentialCommand) error {
	credential, err := s.repo.GetByID(ctx, cmd.ID)
	if err != nil {
		return fmt.Errorf("get credential by id: %w", err)
	}

	if err := s.repo.Delete(ctx, cmd.ID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	if credential.SecretRef == "" {
		return nil
	}
	if err := s.store.Delete(ctx, credential.SecretRef); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		if restoreErr := s.repo.Save(ctx, credential); restoreErr != nil {
			return fmt.Errorf("delete credential secret and restore entry: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("delete credential secret: %w", err)
	}

	return nil
}

func (s *CredentialService) ListCredentials(ctx context.Context, envKeys []string) ([]CredentialView, error) {
	credentials, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	views := make([]CredentialView, 0, len(credentials)+len(envKeys))
	for _, credential := range credentials {
		views = append(views, CredentialView{
			ID:          credential.ID,
			Name:        credential.Name,
			SecretRef:   credential.SecretRef,
			Source:      credentialSourceRepository,
			Placeholder: credential.Placeholder,
		})
	}
	for _, credential := range envCredentials(envKeys) {
		views = append(views, CredentialView{
			ID:          credential.ID,
			Name:        credential.Name,
			Source:      credentialSourceEnv,
			Placeholder: credential.IsPlaceholder(),
		})
	}

	return views, nil
}

// BuildPool resolves stored credentials through the secret store and appends
// the environment keys. Entries whose secret is missing stay in the pool as
// placeholders.
func (s *CredentialService) BuildPool(ctx context.Context, envKeys []string) (*CredentialPool, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	credentials := make([]domain.Credential, 0, len(stored)+len(envKeys))
	for _, credential := range stored {
		if !credential.Placeholder && credential.Token == "" && credential.SecretRef != "" {
			token, err := s.store.Get(ctx, credential.SecretRef)
			if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
				return nil, fmt.Errorf("resolve secret for credential %s: %w", credential.ID, err)
			}
			credential.Token = token
		}
		credentials = append(credentials, credential)
	}
	credentials = append(credentials, envCredentials(envKeys)...)

	if len(credentials) == 0 {
		return nil, fmt.Errorf("%w: no credentials configured, set GEMINI_API_KEY or run `smartani credentials add`", domain.ErrPoolExhausted)
	}

	return NewCredentialPool(credentials)
}

func envCredentials(keys []string) []domain.Credential {
	credentials := make([]domain.Credential, 0, len(keys))
	for i, key := range keys {
		credentials = append(credentials, domain.Credential{
			ID:    domain.CredentialID(fmt.Sprintf("env-%d", i+1)),
			Name:  "environment",
			Token: key,
		})
	}
	return credentials
}
