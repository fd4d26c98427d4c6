package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/domain"
	"github.com/spf13/cobra"
)

func newCredentialsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Manage Gemini API keys",
	}

	cmd.AddCommand(
		newCredentialsListCmd(app),
		newCredentialsAddCmd(app),
		newCredentialsRemoveCmd(app),
	)

	return cmd
}

func newCredentialsListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored and environment credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			views, err := app.credentials.ListCredentials(cmd.Context(), app.config.EnvKeys)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}

			rendered, err := app.render.credentials(views)
			if err != nil {
				return fmt.Errorf("render credentials: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	return cmd
}

func newCredentialsAddCmd(app *app) *cobra.Command {
	var (
		name        string
		token       string
		placeholder bool
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Store a Gemini API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(token) == "" && !placeholder {
				return errors.New("--token is required unless --placeholder is set")
			}

			id := domain.CredentialID(strings.TrimSpace(args[0]))
			if err := app.credentials.AddCredential(cmd.Context(), application.AddCredentialCommand{
				ID:          id,
				Name:        name,
				Token:       token,
				Placeholder: placeholder,
			}); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "credential %s saved\n", id)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&token, "token", "", "Gemini API key")
	cmd.Flags().BoolVar(&placeholder, "placeholder", false, "keep the entry but never use it")

	return cmd
}

func newCredentialsRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a stored credential and its secret",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.CredentialID(strings.TrimSpace(args[0]))
			if err := app.credentials.RemoveCredential(cmd.Context(), application.RemoveCredentialCommand{ID: id}); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "credential %s removed\n", id)
			return err
		},
	}
}
