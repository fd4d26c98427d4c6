package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/logging"
	"github.com/bnema/smartani/internal/observability"
	"github.com/bnema/smartani/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Session is the per-key conversational state. resolveMu serializes whole
// resolutions on the session; mu guards the fields and is held only briefly so
// background injections never wait on a resolution.
type Session struct {
	resolveMu sync.Mutex

	mu           sync.Mutex
	key          string
	createdAt    time.Time
	dataset      string
	conversation ports.Conversation
	notes        []string
	firstTurn    *domain.FirstTurn
	turnCount    int
	exchanges    []domain.Exchange
	injections   int
}

func (s *Session) Key() string {
	return s.key
}

func (s *Session) Dataset() string {
	return s.dataset
}

// Conversation is nil under the prompt grounding strategy.
func (s *Session) Conversation() ports.Conversation {
	return s.conversation
}

func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.turnCount
}

func (s *Session) FirstTurn() *domain.FirstTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.firstTurn == nil {
		return nil
	}
	first := *s.firstTurn
	return &first
}

// Notes are the injected context texts kept for the prompt strategy.
func (s *Session) Notes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.notes...)
}

func (s *Session) Exchanges() []domain.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.Exchange(nil), s.exchanges...)
}

// RecentExchanges returns at most the last n exchanges, oldest first.
func (s *Session) RecentExchanges(n int) []domain.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.exchanges) - n
	if start < 0 {
		start = 0
	}
	return append([]domain.Exchange(nil), s.exchanges[start:]...)
}

func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := domain.SessionSnapshot{
		Key:        s.key,
		CreatedAt:  s.createdAt,
		TurnCount:  s.turnCount,
		Exchanges:  append([]domain.Exchange(nil), s.exchanges...),
		Injections: s.injections,
	}
	if s.firstTurn != nil {
		first := *s.firstTurn
		snapshot.FirstTurn = &first
	}
	if s.conversation != nil {
		snapshot.History = s.conversation.History()
	} else {
		snapshot.History = seedHistory(s.dataset)
		for _, note := range s.notes {
			snapshot.History = append(snapshot.History,
				domain.Turn{Role: domain.RoleUser, Content: injectedContextMessage(note)},
				domain.Turn{Role: domain.RoleModel, Content: injectedContextAck},
			)
		}
	}

	return snapshot
}

type SessionManagerConfig struct {
	Strategy domain.GroundingStrategy
	Sentinel domain.Sentinel
}

// SessionManager owns the session map. Creation is atomic per key and
// sessions live until explicitly cleared.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	group    singleflight.Group

	dataset    ports.DatasetSource
	completion ports.CompletionService
	config     SessionManagerConfig
	clock      ports.Clock
	logger     *zap.Logger
}

func NewSessionManager(dataset ports.DatasetSource, completion ports.CompletionService, config SessionManagerConfig, clock ports.Clock, logger *zap.Logger) *SessionManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if config.Strategy == "" {
		config.Strategy = domain.GroundingConversation
	}

	return &SessionManager{
		sessions:   map[string]*Session{},
		dataset:    dataset,
		completion: completion,
		config:     config,
		clock:      clock,
		logger:     logging.OrNop(logger),
	}
}

func (m *SessionManager) Strategy() domain.GroundingStrategy {
	return m.config.Strategy
}

// GetOrCreate returns the session for key, creating and seeding it on first
// use. Concurrent first calls for the same key share one creation.
func (m *SessionManager) GetOrCreate(ctx context.Context, key string) (*Session, error) {
	key = domain.NormalizeSessionKey(key)
	if session, ok := m.lookup(key); ok {
		return session, nil
	}

	value, err, _ := m.group.Do(key, func() (any, error) {
		if session, ok := m.lookup(key); ok {
			return session, nil
		}

		session, err := m.create(ctx, key)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.sessions[key] = session
		count := len(m.sessions)
		m.mu.Unlock()
		observability.SetActiveSessions(count)

		m.logger.Info("session created", zap.String("session", key), zap.String("strategy", string(m.config.Strategy)))
		return session, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(*Session), nil
}

func (m *SessionManager) create(ctx context.Context, key string) (*Session, error) {
	dataset, err := m.dataset.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	session := &Session{
		key:       key,
		createdAt: m.clock.Now(),
		dataset:   dataset,
	}

	if m.config.Strategy == domain.GroundingConversation {
		conversation, err := m.completion.StartConversation(ctx, groundingSystemInstruction(m.config.Sentinel.Token), seedHistory(dataset))
		if err != nil {
			return nil, fmt.Errorf("start conversation: %w", err)
		}
		session.conversation = conversation
	}

	return session, nil
}

func (m *SessionManager) lookup(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[key]
	return session, ok
}

func (m *SessionManager) Get(key string) (*Session, error) {
	session, ok := m.lookup(domain.NormalizeSessionKey(key))
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// RecordFirstTurn stores the first question and answer of a session. It only
// takes effect before the first AdvanceTurn and only once.
func (m *SessionManager) RecordFirstTurn(session *Session, question, answer string) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.turnCount != 0 || session.firstTurn != nil {
		return
	}
	session.firstTurn = &domain.FirstTurn{Question: question, Answer: answer}
}

func (m *SessionManager) AdvanceTurn(session *Session) {
	session.mu.Lock()
	defer session.mu.Unlock()

	session.turnCount++
}

// InjectContext appends a synthetic context turn. Failures are logged and
// dropped.
func (m *SessionManager) InjectContext(ctx context.Context, session *Session, text string) {
	if session.conversation != nil {
		if err := session.conversation.Inject(ctx, injectedContextMessage(text)); err != nil {
			m.logger.Warn("context injection failed", zap.String("session", session.key), zap.Error(err))
			return
		}
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.conversation == nil {
		session.notes = append(session.notes, text)
	}
	session.injections++
}

func (m *SessionManager) RecordExchange(session *Session, exchange domain.Exchange) {
	session.mu.Lock()
	defer session.mu.Unlock()

	session.exchanges = append(session.exchanges, exchange)
}

func (m *SessionManager) Clear(key string) error {
	key = domain.NormalizeSessionKey(key)

	m.mu.Lock()
	_, ok := m.sessions[key]
	delete(m.sessions, key)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	observability.SetActiveSessions(count)
	return nil
}

func (m *SessionManager) ClearAll() int {
	m.mu.Lock()
	cleared := len(m.sessions)
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	observability.SetActiveSessions(0)
	return cleared
}

func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

func (m *SessionManager) Snapshots() []domain.SessionSnapshot {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.Unlock()

	snapshots := make([]domain.SessionSnapshot, 0, len(sessions))
	for _, session := range sessions {
		snapshots = append(snapshots, session.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Key < snapshots[j].Key
	})

	return snapshots
}
