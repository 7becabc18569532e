package main

import (
	"context"
	"os"

	"github.com/dtbase/dt-deployer/cmd/dt-deployer/commands"
	"github.com/dtbase/dt-deployer/internal/di"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := di.ProvideLogger(false)
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "dt-deployer",
		Usage: "Build-and-publish pipeline for DTBase container images",
		Description: `A unified CLI for the DTBase continuous build pipeline.

This tool provides commands for:
  - Executing the build-and-publish pipeline from a CI trigger event
  - Rendering and checking the required environment template
  - Inspecting run records, build reports, and run locks
  - Provisioning the container registry and repository secrets`,
		Commands: []*cli.Command{
			commands.RunCommand(&logger),
			commands.EnvCommand(&logger),
			commands.BuildsCommand(&logger),
			commands.LocksCommand(&logger),
			commands.SetupRegistryCommand(&logger),
			commands.SecretsCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
