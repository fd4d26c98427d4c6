package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/ports"
)

type generateCall struct {
	credential domain.CredentialID
	req        ports.CompletionRequest
}

type fakeCompletion struct {
	mu            sync.Mutex
	generate      func(credential domain.Credential, req ports.CompletionRequest) (string, error)
	send          func(credential domain.Credential, message string) (string, error)
	startErr      error
	models        []ports.ModelInfo
	calls         []generateCall
	conversations []*fakeConversation
}

func (f *fakeCompletion) Generate(_ context.Context, credential domain.Credential, req ports.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, generateCall{credential: credential.ID, req: req})
	generate := f.generate
	f.mu.Unlock()

	if generate == nil {
		return "", errors.New("unexpected generate call")
	}
	return generate(credential, req)
}

func (f *fakeCompletion) StartConversation(_ context.Context, systemInstruction string, history []domain.Turn) (ports.Conversation, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}

	conversation := &fakeConversation{
		owner:             f,
		systemInstruction: systemInstruction,
		history:           append([]domain.Turn(nil), history...),
	}
	f.mu.Lock()
	f.conversations = append(f.conversations, conversation)
	f.mu.Unlock()
	return conversation, nil
}

func (f *fakeCompletion) ListModels(_ context.Context, _ domain.Credential) ([]ports.ModelInfo, error) {
	return f.models, nil
}

func (f *fakeCompletion) generateCalls() []generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]generateCall(nil), f.calls...)
}

// callsWith returns the generate calls made with the given system
// instruction.
func (f *fakeCompletion) callsWith(instruction string) []generateCall {
	var matched []generateCall
	for _, call := range f.generateCalls() {
		if call.req.SystemInstruction == instruction {
			matched = append(matched, call)
		}
	}
	return matched
}

type fakeConversation struct {
	mu                sync.Mutex
	owner             *fakeCompletion
	systemInstruction string
	history           []domain.Turn
	injectErr         error
}

func (c *fakeConversation) Send(_ context.Context, credential domain.Credential, message string, _ *domain.Attachment) (string, error) {
	c.owner.mu.Lock()
	send := c.owner.send
	c.owner.mu.Unlock()
	if send == nil {
		return "", errors.New("unexpected send call")
	}

	reply, err := send(credential, message)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history,
		domain.Turn{Role: domain.RoleUser, Content: message},
		domain.Turn{Role: domain.RoleModel, Content: reply},
	)
	return reply, nil
}

func (c *fakeConversation) Inject(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.injectErr != nil {
		return c.injectErr
	}
	c.history = append(c.history,
		domain.Turn{Role: domain.RoleUser, Content: text},
		domain.Turn{Role: domain.RoleModel, Content: injectedContextAck},
	)
	return nil
}

func (c *fakeConversation) History() []domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]domain.Turn(nil), c.history...)
}

type fakeSearch struct {
	mu      sync.Mutex
	papers  []domain.Paper
	err     error
	queries []string
}

func (s *fakeSearch) Search(_ context.Context, query string) ([]domain.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, query)
	return s.papers, s.err
}

type fakeDataset struct {
	text  string
	err   error
	loads atomic.Int32
	delay time.Duration
}

func (d *fakeDataset) Load(_ context.Context) (string, error) {
	d.loads.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return d.text, d.err
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.delays...)
}

func credentials(tokens ...string) []domain.Credential {
	result := make([]domain.Credential, 0, len(tokens))
	for _, token := range tokens {
		id := token
		if domain.IsPlaceholderToken(token) {
			id = "placeholder-" + strings.ToLower(strings.Trim(token, "<>"))
		}
		result = append(result, domain.Credential{ID: domain.CredentialID(id), Token: token})
	}
	return result
}

func quotaError() error {
	return domain.NewServiceError(domain.ErrorKindQuotaExceeded, 429, "RESOURCE_EXHAUSTED", errors.New("quota exceeded for project"))
}

func transientError() error {
	return domain.NewServiceError(domain.ErrorKindTransient, 503, "UNAVAILABLE", errors.New("model overloaded"))
}
