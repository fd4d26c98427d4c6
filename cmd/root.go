package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "smartani",
		Short:         "SmartAni: agriculture Q&A grounded in a local dataset",
		Long:          "smartani answers farming questions from a curated local dataset first, then from scholarly papers, then from general knowledge, rotating Gemini API keys when one runs out of quota.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(newVersionCmd())

	app, err := wireApp()
	if err != nil {
		rootCmd.Args = cobra.ArbitraryArgs
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		_ = app.logger.Sync()
	}

	rootCmd.AddCommand(
		newServeCmd(app),
		newAskCmd(app),
		newChatCmd(app),
		newCredentialsCmd(app),
		newStatusCmd(app),
	)

	return rootCmd
}
