package ports

import "context"

// SecretStore resolves credential secret refs such as "gemini/primary" to the
// API key they point at.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
