package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "checkrun",
		Short:         "Accounts payable check run planner",
		Long:          "Plans check runs from open vendor invoices, guards check numbers against the payment ledger and voids issued checks.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "Path to config.toml (default: ./config.toml or /etc/payables/config.toml)")
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newPreviewCmd(rt),
		newVoidCmd(rt),
		newMigrateCmd(rt),
	)
	return root
}
