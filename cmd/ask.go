package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/smartani/internal/adapters/render/terminal"
	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/domain"
	"github.com/spf13/cobra"
)

const thinkingLabel = "Thinking..."

var errResolutionFailed = errors.New("resolution failed")

type outcomeOutput struct {
	Response   string             `json:"response"`
	Tier       domain.OutcomeKind `json:"tier"`
	References []domain.Reference `json:"references"`
	SessionID  string             `json:"session_id"`
	ErrorKind  domain.ErrorKind   `json:"error_kind,omitempty"`
}

func newAskCmd(app *app) *cobra.Command {
	var (
		sessionKey string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return domain.ErrEmptyMessage
			}

			resolver, err := app.wireResolver(cmd.Context())
			if err != nil {
				return err
			}
			defer resolver.orchestrator.Wait()

			outcome := resolveWithSpinner(cmd, resolver, application.Query{SessionKey: sessionKey, Message: question}, !asJSON)
			if err := writeOutcome(cmd, app, domain.NormalizeSessionKey(sessionKey), outcome, asJSON); err != nil {
				return err
			}
			if outcome.Failed() {
				return fmt.Errorf("%w: %s", errResolutionFailed, outcome.ErrorKind)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionKey, "session", domain.DefaultSessionKey, "session id for conversation continuity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	return cmd
}

func resolveWithSpinner(cmd *cobra.Command, resolver *resolver, query application.Query, spin bool) domain.ResolutionOutcome {
	pending := terminal.Track(cmd.Context(), func(ctx context.Context) domain.ResolutionOutcome {
		return resolver.orchestrator.Resolve(ctx, query)
	})
	if !spin {
		return pending.Wait()
	}

	outcome, _ := terminal.WaitWithSpinner(cmd.Context(), cmd.ErrOrStderr(), thinkingLabel, pending)
	return outcome
}

func writeOutcome(cmd *cobra.Command, app *app, sessionKey string, outcome domain.ResolutionOutcome, asJSON bool) error {
	if asJSON {
		references := outcome.References
		if references == nil {
			references = []domain.Reference{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(outcomeOutput{
			Response:   outcome.Text(),
			Tier:       outcome.Kind,
			References: references,
			SessionID:  sessionKey,
			ErrorKind:  outcome.ErrorKind,
		})
	}

	rendered, err := app.render.outcome(outcome)
	if err != nil {
		return fmt.Errorf("render answer: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
