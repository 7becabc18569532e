package commands

import (
	"fmt"
	"time"

	"github.com/dtbase/dt-deployer/internal/dao/lockdao"
	"github.com/dtbase/dt-deployer/internal/di"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// LocksCommand returns the locks command for inspecting and clearing run
// locks. Locks expire on their own after an hour; these commands exist for
// the rare run that dies without releasing.
func LocksCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "locks",
		Usage: "Inspect and release run locks",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the lock for an image",
				Description: `Show the run lock for an image in an environment, if one is held.

Examples:
  dt-deployer locks show --env dev --image dtbase`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "env",
						Aliases:  []string{"e"},
						Usage:    "Deployment environment (dev, prd)",
						Required: true,
						EnvVars:  []string{"ENV"},
					},
					&cli.StringFlag{
						Name:     "image",
						Aliases:  []string{"i"},
						Usage:    "Image name the lock covers",
						Required: true,
					},
				},
				Action: showLockAction,
			},
			{
				Name:  "release",
				Usage: "Release the lock for an image",
				Description: `Release a run lock. With --run-id the release only succeeds when that run
holds the lock, matching what the pipeline itself does. Without --run-id
the lock is force-released after confirmation, regardless of holder.

Examples:
  # Release on behalf of the run that holds the lock
  dt-deployer locks release --env dev --image dtbase --run-id 16358967374

  # Force-release a lock left behind by a dead run
  dt-deployer locks release --env dev --image dtbase --force`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "env",
						Aliases:  []string{"e"},
						Usage:    "Deployment environment (dev, prd)",
						Required: true,
						EnvVars:  []string{"ENV"},
					},
					&cli.StringFlag{
						Name:     "image",
						Aliases:  []string{"i"},
						Usage:    "Image name the lock covers",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "run-id",
						Usage: "Run identifier that must hold the lock",
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip the confirmation prompt when force-releasing",
					},
				},
				Action: releaseLockAction,
			},
		},
	}
}

func showLockAction(c *cli.Context) error {
	env := c.String("env")
	image := c.String("image")

	container, err := setupContainer(env, "", false)
	if err != nil {
		return fmt.Errorf("failed to setup DI container: %w", err)
	}
	dao := di.MustGet[*lockdao.DAO](container)

	record, err := dao.Find(c.Context, lockdao.NewID(env, image))
	if err != nil {
		return err
	}
	if record == nil {
		fmt.Printf("No lock held for %s/%s\n", env, image)
		return nil
	}

	fmt.Printf("Lock:        %s\n", record.GetID())
	fmt.Printf("Held by run: %s\n", record.RunID)
	fmt.Printf("Acquired:    %s\n", time.Unix(record.AcquiredAt, 0).UTC().Format(time.RFC3339))
	fmt.Printf("Expires:     %s\n", time.Unix(record.TTL, 0).UTC().Format(time.RFC3339))
	return nil
}

func releaseLockAction(c *cli.Context) error {
	env := c.String("env")
	image := c.String("image")
	runID := c.String("run-id")

	container, err := setupContainer(env, "", false)
	if err != nil {
		return fmt.Errorf("failed to setup DI container: %w", err)
	}
	dao := di.MustGet[*lockdao.DAO](container)

	id := lockdao.NewID(env, image)
	record, err := dao.Find(c.Context, id)
	if err != nil {
		return err
	}
	if record == nil {
		fmt.Printf("No lock held for %s/%s\n", env, image)
		return nil
	}

	if runID != "" {
		if err := dao.Release(c.Context, lockdao.ReleaseInput{ID: id, RunID: runID}); err != nil {
			return err
		}
		fmt.Printf("✓ Released lock for %s/%s\n", env, image)
		return nil
	}

	if !c.Bool("force") {
		fmt.Printf("About to force-release the lock for %s/%s held by run %s.\n", env, image, record.RunID)
		fmt.Print("Are you sure you want to continue? (yes/no): ")

		var response string
		fmt.Scanln(&response)
		if response != "yes" && response != "y" {
			fmt.Println("Release cancelled")
			return nil
		}
	}

	if err := dao.Delete(c.Context, id); err != nil {
		return err
	}
	fmt.Printf("✓ Force-released lock for %s/%s (was held by run %s)\n", env, image, record.RunID)
	return nil
}
