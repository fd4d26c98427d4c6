package gemini

import (
	"context"
	"strings"
	"sync"

	"github.com/bnema/smartani/internal/domain"
)

const injectedAcknowledgement = "Understood."

// conversation replays its whole history on every Send, so each attempt can
// go out under whichever credential the caller picked. History only grows on
// success.
type conversation struct {
	adapter           *Adapter
	systemInstruction string

	mu      sync.Mutex
	history []domain.Turn
}

func (c *conversation) Send(ctx context.Context, credential domain.Credential, message string, attachment *domain.Attachment) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	contents := toContents(c.history)
	contents = append(contents, userContent(message, attachment))

	reply, err := c.adapter.generate(ctx, credential, contents, c.adapter.config(c.systemInstruction, nil, 0))
	if err != nil {
		return "", err
	}

	c.history = append(c.history,
		domain.Turn{Role: domain.RoleUser, Content: message},
		domain.Turn{Role: domain.RoleModel, Content: reply},
	)
	return reply, nil
}

func (c *conversation) Inject(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history,
		domain.Turn{Role: domain.RoleUser, Content: text},
		domain.Turn{Role: domain.RoleModel, Content: injectedAcknowledgement},
	)
	return nil
}

func (c *conversation) History() []domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]domain.Turn(nil), c.history...)
}
