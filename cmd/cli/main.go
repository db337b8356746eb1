package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	api := &apiClient{}

	rootCmd := &cobra.Command{
		Use:           "escrow-cli",
		Short:         "Escrow ledger CLI tool",
		Long:          `A command line interface for operating the escrow ledger through its ops API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&api.baseURL, "url", "http://localhost:8080", "Base URL of the escrow ops API")
	rootCmd.PersistentFlags().DurationVar(&api.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		ledgerCmd(api),
		depositCmd(api),
		payoutAddressCmd(api),
		migrateCmd(),
	)

	return rootCmd
}
