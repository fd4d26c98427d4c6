package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/domain"
	"github.com/spf13/cobra"
)

const chatPrompt = "> "

var (
	chatExitCommands  = map[string]struct{}{"exit": {}, "keluar": {}, "quit": {}}
	chatClearCommands = map[string]struct{}{"clear": {}, "hapus": {}}
)

func newChatCmd(app *app) *cobra.Command {
	var sessionKey string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long:  "chat reads questions from stdin until exit or keluar. clear (or hapus) forgets the session so far.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, err := app.wireResolver(cmd.Context())
			if err != nil {
				return err
			}
			defer resolver.orchestrator.Wait()

			return runChat(cmd, app, resolver, domain.NormalizeSessionKey(sessionKey), cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&sessionKey, "session", domain.DefaultSessionKey, "session id for conversation continuity")

	return cmd
}

func runChat(cmd *cobra.Command, app *app, resolver *resolver, sessionKey string, input io.Reader) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "SmartAni chat. Type exit or keluar to quit.")

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		_, _ = fmt.Fprint(out, chatPrompt)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		command := strings.ToLower(line)
		switch {
		case line == "":
			continue
		case isCommand(chatExitCommands, command):
			_, _ = fmt.Fprintln(out, "Bye.")
			return nil
		case isCommand(chatClearCommands, command):
			resolver.history.Clear(sessionKey)
			_, _ = fmt.Fprintln(out, "Session cleared.")
			continue
		}

		outcome := resolveWithSpinner(cmd, resolver, application.Query{SessionKey: sessionKey, Message: line}, true)
		if err := writeOutcome(cmd, app, sessionKey, outcome, false); err != nil {
			return err
		}
		if err := cmd.Context().Err(); err != nil {
			return err
		}
	}
}

func isCommand(commands map[string]struct{}, line string) bool {
	_, ok := commands[line]
	return ok
}
