package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/bnema/smartani/internal/adapters/httpapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			resolver, err := app.wireResolver(ctx)
			if err != nil {
				return err
			}
			defer resolver.orchestrator.Wait()

			if addr == "" {
				addr = app.config.Server.Addr
			}

			handlers := httpapi.NewHandlers(
				resolver.orchestrator,
				resolver.history,
				resolver.status,
				httpapi.Config{
					UploadDir:      app.config.Server.UploadDir,
					MaxUploadBytes: app.config.Server.MaxUploadMB << 20,
				},
				app.logger.Named("http"),
			)
			server := httpapi.NewServer(addr, httpapi.NewRouter(handlers), app.logger.Named("http"))

			app.logger.Info("starting smartani",
				zap.String("addr", server.Addr()),
				zap.String("model", app.config.Model),
				zap.String("grounding", string(app.config.Grounding)),
				zap.Int("credentials", resolver.pool.Len()),
				zap.Int("usable_credentials", resolver.pool.Size()),
			)
			if err := server.Run(ctx); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")

	return cmd
}
