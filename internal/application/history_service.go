package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/ports"
)

type HistoryService struct {
	sessions *SessionManager
	exporter ports.HistoryExporter
}

func NewHistoryService(sessions *SessionManager, exporter ports.HistoryExporter) *HistoryService {
	return &HistoryService{sessions: sessions, exporter: exporter}
}

// History returns the exchange log of a session. An unknown session has an
// empty history.
func (s *HistoryService) History(key string) SessionHistory {
	key = domain.NormalizeSessionKey(key)
	history := SessionHistory{SessionKey: key, Exchanges: []domain.Exchange{}}

	session, err := s.sessions.Get(key)
	if err != nil {
		return history
	}

	history.Exchanges = session.Exchanges()
	history.MemoryLength = len(session.RecentExchanges(recentExchangeLimit))
	return history
}

// Clear drops one session, or every session when key is empty. It returns the
// number of sessions removed.
func (s *HistoryService) Clear(key string) int {
	if key == "" {
		return s.sessions.ClearAll()
	}
	if err := s.sessions.Clear(key); err != nil {
		return 0
	}
	return 1
}

func (s *HistoryService) Export(ctx context.Context, key string) (string, error) {
	key = domain.NormalizeSessionKey(key)

	var exchanges []domain.Exchange
	session, err := s.sessions.Get(key)
	switch {
	case err == nil:
		exchanges = session.Exchanges()
	case errors.Is(err, domain.ErrSessionNotFound):
	default:
		return "", err
	}

	path, err := s.exporter.Export(ctx, key, exchanges)
	if err != nil {
		return "", fmt.Errorf("export history: %w", err)
	}
	return path, nil
}
