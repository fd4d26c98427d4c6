package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/logging"
	"github.com/bnema/smartani/internal/observability"
	"github.com/bnema/smartani/internal/ports"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay is the backoff before the retry following the given zero-based
// attempt: BaseDelay doubled per attempt, capped by MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if delay >= p.MaxDelay/2 {
			return p.MaxDelay
		}
		delay *= 2
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// RetryController runs every completion call. It rotates credentials on quota
// exhaustion and backs off on transient failures.
type RetryController struct {
	pool   *CredentialPool
	policy RetryPolicy
	sleep  ports.Sleeper
	logger *zap.Logger
}

func NewRetryController(pool *CredentialPool, policy RetryPolicy, sleep ports.Sleeper, logger *zap.Logger) *RetryController {
	if sleep == nil {
		sleep = ports.Sleep
	}

	return &RetryController{
		pool:   pool,
		policy: policy.withDefaults(),
		sleep:  sleep,
		logger: logging.OrNop(logger),
	}
}

func (c *RetryController) Pool() *CredentialPool {
	return c.pool
}

// Execute invokes op with the active credential until it succeeds, fails
// fatally, or MaxAttempts invocations have been spent.
func (c *RetryController) Execute(ctx context.Context, op func(ctx context.Context, credential domain.Credential) error) error {
	var lastErr error
	rotations := 0

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		credential, err := c.pool.Active()
		if err != nil {
			return err
		}

		err = op(ctx, credential)
		if err == nil {
			observability.RecordCompletionAttempt("ok")
			return nil
		}
		lastErr = err

		kind := ClassifyError(err)
		observability.RecordCompletionAttempt(string(kind))

		switch kind {
		case domain.ErrorKindPoolExhausted, domain.ErrorKindRetryBudgetExceeded:
			return err
		case domain.ErrorKindQuotaExceeded:
			if usable := c.pool.Size(); usable > 1 && rotations < usable {
				next, rotateErr := c.pool.Rotate()
				if rotateErr != nil {
					return rotateErr
				}
				rotations++
				observability.RecordRotation()
				c.logger.Warn("credential quota exceeded, rotating",
					zap.String("from", credential.Label()),
					zap.String("to", next.Label()),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
		case domain.ErrorKindTransient:
		default:
			c.logger.Error("completion call failed",
				zap.String("credential", credential.Label()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			return fatalError(err)
		}

		if attempt == c.policy.MaxAttempts-1 {
			break
		}

		delay := c.policy.Delay(attempt)
		c.logger.Warn("completion call failed, backing off",
			zap.String("kind", string(kind)),
			zap.String("credential", credential.Label()),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w: wait before retry: %w", domain.ErrFatal, err)
		}
		rotations = 0
	}

	return fmt.Errorf("%w after %d attempts: %v", domain.ErrRetryBudgetExceeded, c.policy.MaxAttempts, lastErr)
}

// Call is Execute for operations that produce a value.
func Call[T any](ctx context.Context, c *RetryController, op func(ctx context.Context, credential domain.Credential) (T, error)) (T, error) {
	var result T
	err := c.Execute(ctx, func(ctx context.Context, credential domain.Credential) error {
		value, err := op(ctx, credential)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

// ClassifyError maps a completion failure onto the retry taxonomy. Adapter
// service errors win; message inspection is the last resort and anything
// unrecognised is fatal.
func ClassifyError(err error) domain.ErrorKind {
	if err == nil {
		return domain.ErrorKindNone
	}
	if kind := domain.KindOf(err); kind != domain.ErrorKindNone {
		return kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorKindTransient
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrorKindFatal
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.ErrorKindTransient
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "quota", "rate limit", "resource exhausted", "resource_exhausted"} {
		if strings.Contains(msg, marker) {
			return domain.ErrorKindQuotaExceeded
		}
	}

	return domain.ErrorKindFatal
}

func fatalError(err error) error {
	if domain.KindOf(err) == domain.ErrorKindFatal {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrFatal, err)
}
