package main

import (
	"fmt"
	"os"

	"github.com/mistriapp/mistri/server/config"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := createRootCmd()

	configManager := config.NewManager(rootCmd)

	rootCmd.AddCommand(createPrepareCmd(configManager))
	rootCmd.AddCommand(createServeCmd(configManager))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mistri",
		Short: "mistri is the hyperlocal services dispatch server",
		Long: `
mistri is the job lifecycle and dispatch engine for the hyperlocal services
marketplace. Customers book or broadcast jobs, workers accept and work them
through OTP-gated checkpoints, and completed jobs settle into worker wallets.
`,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a configuration file")
	return rootCmd
}

// initFatal prints an error and exits with a non-zero exit code.
func initFatal(err error, message string) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", message, err)
	os.Exit(1)
}
