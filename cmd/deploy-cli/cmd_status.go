package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/staticdeploy/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the project's live version and URL",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ws, err := newWorkspace()
	if err != nil {
		return err
	}
	project := ws.project.Project.Name

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project:     %s\n", project)
	fmt.Fprintf(out, "Environment: %s\n", ws.project.Project.Environment)
	fmt.Fprintf(out, "Bucket:      %s (%s)\n", ws.project.S3.Bucket, ws.project.S3.Region)

	current, err := ws.engine.CurrentVersion(cmd.Context(), project)
	if err != nil {
		if errors.Is(err, engine.ErrNoActiveVersion) {
			fmt.Fprintln(out, "Deployed:    no")
			return nil
		}
		return err
	}

	fmt.Fprintln(out, "Deployed:    yes")
	fmt.Fprintf(out, "Version:     %s\n", current)
	fmt.Fprintf(out, "Live URL:    %s\n", ws.project.SiteURL())
	return nil
}
