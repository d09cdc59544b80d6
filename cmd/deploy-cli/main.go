package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:           "deploy-cli",
	Short:         "Deploy static sites as immutable versions with atomic promote and rollback",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "staticdeploy.yaml", "Path to the project config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
