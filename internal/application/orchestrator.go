package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/logging"
	"github.com/bnema/smartani/internal/observability"
	"github.com/bnema/smartani/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	injectionTimeout        = 30 * time.Second
	groundingMaxTokens      = 2048
	fallbackMaxOutputTokens = 2048
)

type Query struct {
	SessionKey string
	Message    string
	Attachment *domain.Attachment
}

type OrchestratorConfig struct {
	Sentinel      domain.Sentinel
	CleanMarkdown bool
}

// Orchestrator resolves one query by consulting the local dataset, then the
// scholarly search service, then general knowledge.
type Orchestrator struct {
	sessions   *SessionManager
	completion ports.CompletionService
	retry      *RetryController
	optimizer  *QueryOptimizer
	search     ports.ScholarSearch
	synthesis  *SynthesisEngine
	config     OrchestratorConfig
	clock      ports.Clock
	logger     *zap.Logger

	injections sync.WaitGroup
}

type OrchestratorDeps struct {
	Sessions   *SessionManager
	Completion ports.CompletionService
	Retry      *RetryController
	Search     ports.ScholarSearch
	Clock      ports.Clock
	Logger     *zap.Logger
}

func NewOrchestrator(deps OrchestratorDeps, config OrchestratorConfig) *Orchestrator {
	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	logger := logging.OrNop(deps.Logger)

	return &Orchestrator{
		sessions:   deps.Sessions,
		completion: deps.Completion,
		retry:      deps.Retry,
		optimizer:  NewQueryOptimizer(deps.Completion, deps.Retry, logger),
		search:     deps.Search,
		synthesis:  NewSynthesisEngine(deps.Completion, deps.Retry),
		config:     config,
		clock:      clock,
		logger:     logger,
	}
}

// Resolve runs the tier state machine for one query. Infrastructure failures
// of the completion service come back as a Failure outcome, never as a panic
// or a partial answer.
func (o *Orchestrator) Resolve(ctx context.Context, query Query) domain.ResolutionOutcome {
	start := o.clock.Now()
	message := strings.TrimSpace(query.Message)
	if message == "" {
		return domain.FailureOutcome(domain.ErrorKindFatal, domain.ErrEmptyMessage.Error())
	}

	session, err := o.sessions.GetOrCreate(ctx, query.SessionKey)
	if err != nil {
		o.logger.Error("open session", zap.String("session", query.SessionKey), zap.Error(err))
		return failureFromError(err)
	}

	session.resolveMu.Lock()
	defer session.resolveMu.Unlock()

	outcome := o.resolve(ctx, session, message, query.Attachment)
	elapsed := o.clock.Now().Sub(start)
	observability.RecordResolution(string(outcome.Kind), elapsed.Seconds())

	if !outcome.Failed() {
		o.sessions.RecordExchange(session, domain.Exchange{
			ID:             uuid.NewString(),
			Timestamp:      start,
			Question:       message,
			Tier:           outcome.Kind,
			ReferenceCount: len(outcome.References),
			Response:       outcome.Text(),
			ProcessingTime: elapsed.Seconds(),
		})
	}

	o.logger.Info("query resolved",
		zap.String("session", session.Key()),
		zap.String("tier", string(outcome.Kind)),
		zap.Int("references", len(outcome.References)),
		zap.Duration("elapsed", elapsed),
	)

	return outcome
}

func (o *Orchestrator) resolve(ctx context.Context, session *Session, message string, attachment *domain.Attachment) domain.ResolutionOutcome {
	followUp := session.TurnCount() > 0
	prior := session.FirstTurn()

	grounding, err := o.localCheck(ctx, session, message, attachment)
	if err != nil {
		o.logger.Error("local check failed", zap.String("session", session.Key()), zap.Error(err))
		return failureFromError(err)
	}

	if grounding.Grounded {
		answer := grounding.Text
		o.sessions.RecordFirstTurn(session, message, answer)
		o.sessions.AdvanceTurn(session)
		return domain.LocalOutcome(answer)
	}

	o.sessions.RecordFirstTurn(session, message, domain.PendingExternalAnswer)
	o.sessions.AdvanceTurn(session)

	var blend *domain.FirstTurn
	if followUp {
		blend = prior
	}
	keywords := o.optimizer.Optimize(ctx, message, blend)

	recent := session.RecentExchanges(recentExchangeLimit)
	papers, err := o.search.Search(ctx, keywords)
	if err != nil || len(papers) == 0 {
		o.logger.Info("no external data, falling back",
			zap.String("session", session.Key()),
			zap.String("keywords", keywords),
			zap.Error(err),
		)
		return o.fallback(ctx, message, recent)
	}

	synthesis, err := o.synthesis.Synthesize(ctx, message, papers, recent)
	if err != nil {
		o.logger.Warn("synthesis failed, falling back", zap.String("session", session.Key()), zap.Error(err))
		return o.fallback(ctx, message, recent)
	}

	outcome := domain.ExternalOutcome(o.clean(synthesis), domain.References(papers))
	o.injectAsync(ctx, session, outcome.Text())
	return outcome
}

func (o *Orchestrator) localCheck(ctx context.Context, session *Session, message string, attachment *domain.Attachment) (domain.GroundingResult, error) {
	var (
		raw string
		err error
	)

	if conversation := session.Conversation(); conversation != nil {
		raw, err = Call(ctx, o.retry, func(ctx context.Context, credential domain.Credential) (string, error) {
			return conversation.Send(ctx, credential, message, attachment)
		})
	} else {
		req := ports.CompletionRequest{
			SystemInstruction: groundingSystemInstruction(o.config.Sentinel.Token),
			Message:           groundingPrompt(session.Dataset(), session.Notes(), session.RecentExchanges(recentExchangeLimit), message),
			Attachment:        attachment,
			MaxOutputTokens:   groundingMaxTokens,
		}
		raw, err = Call(ctx, o.retry, func(ctx context.Context, credential domain.Credential) (string, error) {
			return o.completion.Generate(ctx, credential, req)
		})
	}
	if err != nil {
		return domain.GroundingResult{}, fmt.Errorf("local check: %w", err)
	}

	return o.config.Sentinel.Classify(raw), nil
}

func (o *Orchestrator) fallback(ctx context.Context, message string, recent []domain.Exchange) domain.ResolutionOutcome {
	temperature := float32(0.7)
	req := ports.CompletionRequest{
		SystemInstruction: fallbackInstruction,
		Message:           strings.TrimSpace(conversationContext(recent) + "\n\nQUESTION: " + message),
		Temperature:       &temperature,
		MaxOutputTokens:   fallbackMaxOutputTokens,
	}

	answer, err := Call(ctx, o.retry, func(ctx context.Context, credential domain.Credential) (string, error) {
		return o.completion.Generate(ctx, credential, req)
	})
	if err != nil {
		o.logger.Error("fallback failed", zap.Error(err))
		return failureFromError(err)
	}

	return domain.FallbackOutcome(FallbackDisclaimer, o.clean(answer))
}

// injectAsync hands the synthesis to the session in the background. The
// caller's cancellation does not abort the injection.
func (o *Orchestrator) injectAsync(ctx context.Context, session *Session, text string) {
	o.injections.Add(1)
	go func() {
		defer o.injections.Done()

		injectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), injectionTimeout)
		defer cancel()
		o.sessions.InjectContext(injectCtx, session, text)
	}()
}

// Wait blocks until background injections have finished.
func (o *Orchestrator) Wait() {
	o.injections.Wait()
}

func (o *Orchestrator) clean(text string) string {
	if !o.config.CleanMarkdown {
		return strings.TrimSpace(text)
	}
	return CleanMarkdown(text)
}

func failureFromError(err error) domain.ResolutionOutcome {
	kind := domain.KindOf(err)
	switch kind {
	case domain.ErrorKindRetryBudgetExceeded:
		return domain.FailureOutcome(kind, "The AI service is busy right now. Please try again in a moment.")
	case domain.ErrorKindPoolExhausted:
		return domain.FailureOutcome(kind, "No usable API credential is configured.")
	}

	if errors.Is(err, context.Canceled) {
		return domain.FailureOutcome(domain.ErrorKindFatal, "The request was cancelled.")
	}
	return domain.FailureOutcome(domain.ErrorKindFatal, "The AI service could not process this request.")
}
