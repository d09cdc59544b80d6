package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/staticdeploy/internal/engine"
)

var rollbackFlags struct {
	version string
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Promote a previous version (instant, no rebuild)",
	RunE:  runRollback,
}

func init() {
	rollbackCmd.Flags().StringVar(&rollbackFlags.version, "version", "", "Target version (defaults to the previous complete version)")
}

func runRollback(cmd *cobra.Command, _ []string) error {
	ws, err := newWorkspace()
	if err != nil {
		return err
	}

	version, err := ws.engine.Rollback(cmd.Context(), ws.project.Project.Name, rollbackFlags.version)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrDeploymentInProgress):
			return fmt.Errorf("another deployment is in progress for %s; retry later", ws.project.Project.Name)
		case errors.Is(err, engine.ErrNoSuchVersion):
			if listErr := printVersionList(cmd, ws); listErr == nil {
				return fmt.Errorf("version %q not available for rollback", rollbackFlags.version)
			}
			return err
		default:
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rolled back to %s\n", version.VersionID)
	fmt.Fprintf(out, "Live URL: %s\n", ws.project.SiteURL())
	return nil
}
