package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	configFile string
	logLevel   string
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "checkout-service",
		Short:         "FOLTZ checkout: payments, pending orders and reconciliation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "optional config file (yaml, json or env)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "overrides LOG_LEVEL")

	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(reconcileCmd(opts))
	rootCmd.AddCommand(migrateCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
