package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/staticdeploy/internal/artifact"
	"github.com/edvin/staticdeploy/internal/engine"
)

var deployFlags struct {
	dir string
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Upload a finished build as a new version and promote it",
	Long: `Deploy uploads the build output directory as a new immutable version,
verifies the upload against the local tree, and atomically promotes it to the
project's live path. The build itself happens upstream: point --dir at the
finished output (dist/, build/, ...).`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployFlags.dir, "dir", "", "Finished build output directory (required)")
	_ = deployCmd.MarkFlagRequired("dir")
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	ws, err := newWorkspace()
	if err != nil {
		return err
	}

	version, err := ws.engine.Deploy(cmd.Context(), ws.project.Project.Name, deployFlags.dir)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrDeploymentInProgress):
			return fmt.Errorf("another deployment is in progress for %s; retry later", ws.project.Project.Name)
		case errors.Is(err, engine.ErrChecksumMismatch):
			return fmt.Errorf("upload verification failed, nothing was promoted: %w", err)
		default:
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Deployed %s\n", version.VersionID)
	fmt.Fprintf(out, "Files:    %d (%s)\n", version.FileCount, artifact.FormatSize(version.SizeBytes))
	fmt.Fprintf(out, "Checksum: %s\n", version.ContentChecksum)
	fmt.Fprintf(out, "Live URL: %s\n", ws.project.SiteURL())
	return nil
}
