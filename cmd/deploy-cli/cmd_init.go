package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edvin/staticdeploy/internal/cli"
)

var initFlags struct {
	name   string
	bucket string
	region string
	force  bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a staticdeploy.yaml project config",
	RunE:  runInit,
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initFlags.name, "name", "", "Project name, slug form (required)")
	f.StringVar(&initFlags.bucket, "bucket", "", "Deployment bucket (required)")
	f.StringVar(&initFlags.region, "region", "ap-south-1", "Bucket region")
	f.BoolVar(&initFlags.force, "force", false, "Overwrite an existing config file")

	_ = initCmd.MarkFlagRequired("name")
	_ = initCmd.MarkFlagRequired("bucket")
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := rootFlags.configPath

	if !initFlags.force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	cfg := cli.DefaultProjectConfig(initFlags.name, initFlags.bucket, initFlags.region)
	if err := cfg.Save(path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintf(out, "Project:  %s\n", cfg.Project.Name)
	fmt.Fprintf(out, "Bucket:   %s (%s)\n", cfg.S3.Bucket, cfg.S3.Region)
	fmt.Fprintf(out, "Live URL: %s\n", cfg.SiteURL())
	return nil
}
