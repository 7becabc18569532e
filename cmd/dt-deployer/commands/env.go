package commands

import (
	"fmt"
	"os"

	"github.com/dtbase/dt-deployer/internal/envtemplate"
	interrors "github.com/dtbase/dt-deployer/internal/errors"
	"github.com/dtbase/dt-deployer/internal/services"
	"github.com/dtbase/dt-deployer/internal/utils"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// EnvCommand returns the env command for working with the required
// environment template.
func EnvCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "Render and check the required environment template",
		Subcommands: []*cli.Command{
			{
				Name:  "template",
				Usage: "Render the environment template",
				Description: `Render the template of required environment variables with placeholder
values. Copy the output to .secrets/dtenv.sh, replace every placeholder,
and source the file before running the test suite or the pipeline.

Examples:
  # Print the template
  dt-deployer env template

  # Write it straight to the conventional location
  dt-deployer env template --output .secrets/dtenv.sh`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the template to a file instead of stdout",
					},
				},
				Action: envTemplateAction,
			},
			{
				Name:  "check",
				Usage: "Check the environment against the template",
				Description: `Verify that every required variable is present, non-empty, and no longer
carries its placeholder value. By default the process environment is
checked; --file checks a dtenv.sh-style file instead.

Examples:
  # Check the current shell environment
  dt-deployer env check

  # Check a rendered env file before sourcing it
  dt-deployer env check --file .secrets/dtenv.sh

  # Also verify the test database accepts the DT_SQL_* credentials
  dt-deployer env check --database`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Check an env file instead of the process environment",
					},
					&cli.BoolFlag{
						Name:  "database",
						Usage: "Ping the test database with the DT_SQL_* credentials",
					},
				},
				Action: envCheckAction,
			},
		},
	}
}

func envTemplateAction(c *cli.Context) error {
	path := c.String("output")
	if path == "" {
		return envtemplate.Render(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := envtemplate.Render(f); err != nil {
		return err
	}
	fmt.Printf("✓ Environment template written to %s\n", path)
	return nil
}

func envCheckAction(c *cli.Context) error {
	lookup := os.LookupEnv
	if path := c.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		entries, err := utils.ParseEnvFile(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		values := utils.EnvMap(entries)
		lookup = func(name string) (string, bool) {
			value, ok := values[name]
			return value, ok
		}
	}

	if problems := envtemplate.Check(lookup); len(problems) > 0 {
		fmt.Printf("Environment is not ready:\n\n")
		for _, p := range problems {
			fmt.Printf("  ✗ %s\n", p)
		}
		fmt.Println()
		return problemsError(problems)
	}
	fmt.Printf("✓ All %d required variables are set\n", len(envtemplate.Registry()))

	if c.Bool("database") {
		cfg := services.TestDatabaseConfigFromLookup(lookup)
		if err := services.PingTestDatabase(c.Context, cfg); err != nil {
			return err
		}
		fmt.Printf("✓ Test database %s/%s is reachable\n", cfg.Host, cfg.DBName)
	}
	return nil
}

// problemsError summarizes failed checks. Surviving placeholders get the
// dedicated sentinel so callers and CI can tell an unedited template from a
// merely incomplete one.
func problemsError(problems []envtemplate.Problem) error {
	total := len(envtemplate.Registry())
	for _, p := range problems {
		if p.Reason == envtemplate.ReasonPlaceholder {
			return fmt.Errorf("%d of %d required variables are not ready: %w", len(problems), total, interrors.ErrPlaceholderValue)
		}
	}
	return fmt.Errorf("%d of %d required variables are not ready", len(problems), total)
}
