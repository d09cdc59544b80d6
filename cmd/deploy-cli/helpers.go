package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/staticdeploy/internal/cli"
	"github.com/edvin/staticdeploy/internal/config"
	"github.com/edvin/staticdeploy/internal/engine"
	"github.com/edvin/staticdeploy/internal/lease"
	"github.com/edvin/staticdeploy/internal/registry"
	"github.com/edvin/staticdeploy/internal/store"
)

// workspace bundles everything a command needs against one project.
type workspace struct {
	logger  zerolog.Logger
	project *cli.ProjectConfig
	engine  *engine.Engine
}

func newWorkspace() (*workspace, error) {
	project, err := cli.LoadProjectConfig(rootFlags.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'deploy-cli init' first)", err)
	}

	envCfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := envCfg.Validate("deploy-cli"); err != nil {
		return nil, err
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().
		Str("project", project.Project.Name).Logger()
	if level, err := zerolog.ParseLevel(envCfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	st := store.NewS3Store(logger, store.S3Options{
		Bucket:    project.S3.Bucket,
		Region:    project.S3.Region,
		Endpoint:  project.S3.Endpoint,
		AccessKey: envCfg.S3AccessKey,
		SecretKey: envCfg.S3SecretKey,
	})
	reg := registry.New(logger, st)
	leases := lease.NewArena(logger, st, lease.DefaultTTL)

	return &workspace{
		logger:  logger,
		project: project,
		engine:  engine.New(logger, st, reg, leases),
	}, nil
}
