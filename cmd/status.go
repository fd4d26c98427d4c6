package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/smartani/internal/application"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show credential pool state and available models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, err := app.wireResolver(cmd.Context())
			if err != nil {
				return err
			}

			status := resolver.status.Status(cmd.Context(), application.DefaultModelListLimit)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			rendered, err := app.render.status(status)
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	return cmd
}
