package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags
	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "journalctl",
		Short:         "Manage journal submissions from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (default $HOME/.journalctl.yaml)")
	pf.StringVar(&flags.apiURL, "api-url", "", "Submission API base URL")
	pf.StringVar(&flags.token, "token", "", "Access token")
	pf.StringVar(&flags.locale, "locale", "", "Preferred language (en, uz, ru)")

	rootCmd.AddCommand(newLoginCommand(ctx))
	rootCmd.AddCommand(newWhoamiCommand(ctx))
	rootCmd.AddCommand(newJournalsCommand(ctx))
	rootCmd.AddCommand(newSubscriptionCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newEstimateCommand(ctx))
	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newEditCommand(ctx))
	for _, cmd := range newTransitionCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newCertificateCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))

	return rootCmd
}
