package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/staticdeploy/internal/engine"
)

var cleanupFlags struct {
	keep int
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old versions beyond the retention count",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupFlags.keep, "keep", -1, "Versions to keep (defaults to retention.keep from the config)")
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	ws, err := newWorkspace()
	if err != nil {
		return err
	}

	keep := cleanupFlags.keep
	if keep < 0 {
		keep = ws.project.Retention.Keep
	}

	removed, err := ws.engine.Cleanup(cmd.Context(), ws.project.Project.Name, keep)
	if err != nil {
		if errors.Is(err, engine.ErrDeploymentInProgress) {
			return fmt.Errorf("another deployment is in progress for %s; retry later", ws.project.Project.Name)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d old versions (kept %d newest plus the current one)\n", removed, keep)
	return nil
}
