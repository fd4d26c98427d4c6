package application

import (
	"errors"
	"sync"

	"github.com/bnema/smartani/internal/domain"
)

// CredentialPool is the ordered set of interchangeable completion credentials
// together with the index of the one currently in use.
type CredentialPool struct {
	mu          sync.RWMutex
	credentials []domain.Credential
	index       int
}

func NewCredentialPool(credentials []domain.Credential) (*CredentialPool, error) {
	normalized := domain.NormalizeCredentials(credentials)
	if len(normalized) == 0 {
		return nil, errors.New("credential pool requires at least one credential")
	}

	pool := &CredentialPool{credentials: normalized}
	for i, credential := range normalized {
		if !credential.IsPlaceholder() {
			pool.index = i
			break
		}
	}

	return pool, nil
}

// Active returns the credential currently in use. It fails with
// domain.ErrPoolExhausted only when every credential is a placeholder.
func (p *CredentialPool) Active() (domain.Credential, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	credential := p.credentials[p.index]
	if credential.IsPlaceholder() {
		return domain.Credential{}, domain.ErrPoolExhausted
	}

	return credential, nil
}

// Rotate advances to the next usable credential in pool order, wrapping
// around. With a single usable credential it lands back on that credential.
func (p *CredentialPool) Rotate() (domain.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := len(p.credentials)
	for step := 1; step <= size; step++ {
		next := (p.index + step) % size
		if p.credentials[next].IsPlaceholder() {
			continue
		}
		p.index = next
		return p.credentials[next], nil
	}

	return domain.Credential{}, domain.ErrPoolExhausted
}

// Size reports the number of usable credentials.
func (p *CredentialPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	usable := 0
	for _, credential := range p.credentials {
		if !credential.IsPlaceholder() {
			usable++
		}
	}
	return usable
}

func (p *CredentialPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.credentials)
}

// Labels lists credential labels in pool order, marking the active one.
func (p *CredentialPool) Labels() []CredentialStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	statuses := make([]CredentialStatus, 0, len(p.credentials))
	for i, credential := range p.credentials {
		statuses = append(statuses, CredentialStatus{
			ID:          credential.ID,
			Label:       credential.Label(),
			Active:      i == p.index && !credential.IsPlaceholder(),
			Placeholder: credential.IsPlaceholder(),
		})
	}
	return statuses
}

type CredentialStatus struct {
	ID          domain.CredentialID
	Label       string
	Active      bool
	Placeholder bool
}
