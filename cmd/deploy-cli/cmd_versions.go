package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edvin/staticdeploy/internal/artifact"
	"github.com/edvin/staticdeploy/internal/engine"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the project's versions, newest first",
	RunE:  runVersions,
}

func runVersions(cmd *cobra.Command, _ []string) error {
	ws, err := newWorkspace()
	if err != nil {
		return err
	}
	return printVersionList(cmd, ws)
}

func printVersionList(cmd *cobra.Command, ws *workspace) error {
	ctx := cmd.Context()
	project := ws.project.Project.Name

	versions, err := ws.engine.ListVersions(ctx, project)
	if err != nil {
		return err
	}

	current, err := ws.engine.CurrentVersion(ctx, project)
	if err != nil && !errors.Is(err, engine.ErrNoActiveVersion) {
		return err
	}

	out := cmd.OutOrStdout()
	if len(versions) == 0 {
		fmt.Fprintf(out, "No versions for %s\n", project)
		return nil
	}

	for _, v := range versions {
		marker := " "
		if v.VersionID == current {
			marker = "*"
		}
		created := ""
		if !v.CreatedAt.IsZero() {
			created = v.CreatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(out, "%s %s  %-9s  %4d files  %10s  %s\n",
			marker, v.VersionID, v.Status, v.FileCount, artifact.FormatSize(v.SizeBytes), created)
	}
	return nil
}
