package commands

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dtbase/dt-deployer/internal/dao/builddao"
	"github.com/dtbase/dt-deployer/internal/di"
	interrors "github.com/dtbase/dt-deployer/internal/errors"
	"github.com/dtbase/dt-deployer/internal/services"
	"github.com/rs/zerolog"
	"github.com/savaki/gox/slicex"
	"github.com/urfave/cli/v2"
)

// BuildsCommand returns the builds command for inspecting pipeline run
// records and their build reports.
func BuildsCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "builds",
		Usage: "Inspect pipeline run records",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List pipeline runs",
				Description: `List run records from the run table. Without --image the latest run of
every image in the environment is shown; with --image the full run history
of that image is listed.

Examples:
  # Latest run per image in dev
  dt-deployer builds list --env dev

  # Full history for one image
  dt-deployer builds list --env dev --image dtbase`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "env",
						Aliases:  []string{"e"},
						Usage:    "Deployment environment (dev, prd)",
						Required: true,
						EnvVars:  []string{"ENV"},
					},
					&cli.StringFlag{
						Name:    "image",
						Aliases: []string{"i"},
						Usage:   "Image name to list runs for",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Maximum number of runs to show (0 = all)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
				},
				Action: listBuildsAction,
			},
			{
				Name:  "show",
				Usage: "Show a single pipeline run",
				Description: `Show one run record, or its build report from the state bucket.

Without --sk the latest run of the image is shown. With --report the
uploaded build report is fetched instead of the run record; this requires
a configured state bucket.

Examples:
  # Latest run of an image
  dt-deployer builds show --env dev --image dtbase

  # A specific run by sort key
  dt-deployer builds show --env dev --image dtbase --sk 2iJk3...

  # The uploaded build report
  dt-deployer builds show --env dev --image dtbase --report`,
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
						Usage:    "Image name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "sk",
						Usage: "Sort key of the run; defaults to the latest run",
					},
					&cli.BoolFlag{
						Name:  "report",
						Usage: "Fetch the build report from the state bucket instead",
					},
				},
				Action: showBuildAction,
			},
		},
	}
}

func listBuildsAction(c *cli.Context) error {
	env := c.String("env")
	image := c.String("image")

	container, err := setupContainer(env, "", false)
	if err != nil {
		return fmt.Errorf("failed to setup DI container: %w", err)
	}
	dao := di.MustGet[*builddao.DAO](container)

	var records []builddao.Record
	if image != "" {
		records, err = dao.QueryByImageEnv(c.Context, image, env)
	} else {
		records, err = dao.QueryLatestBuilds(c.Context, env)
	}
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	// Image history comes back in KSUID order, oldest first; show newest
	// first.
	if image != "" {
		slices.Reverse(records)
	}

	if limit := c.Int("limit"); limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	if c.Bool("json") {
		return displayRunsJSON(records)
	}
	displayRuns(records)
	return nil
}

func showBuildAction(c *cli.Context) error {
	env := c.String("env")
	image := c.String("image")
	sk := c.String("sk")

	container, err := setupContainer(env, "", false)
	if err != nil {
		return fmt.Errorf("failed to setup DI container: %w", err)
	}

	if c.Bool("report") {
		return showReport(c, container, image, env, sk)
	}

	dao := di.MustGet[*builddao.DAO](container)
	if sk == "" {
		sk = "latest"
	}
	id := builddao.NewID(builddao.NewPK(image, env), sk)

	record, err := dao.Find(c.Context, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%s: %w", id, interrors.ErrBuildNotFound)
		}
		return err
	}
	return displayRunJSON(record)
}

func showReport(c *cli.Context, container di.Container, image, env, sk string) error {
	reports := di.MustGet[*services.ReportStore](container)
	if reports == nil {
		return fmt.Errorf("no state bucket configured (set STATE_BUCKET or the state-bucket parameter)")
	}

	var report *services.BuildReport
	var err error
	if sk == "" {
		report, err = reports.Latest(c.Context, image, env)
	} else {
		report, err = reports.Get(c.Context, image, env, sk)
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func displayRuns(records []builddao.Record) {
	if len(records) == 0 {
		fmt.Println("No runs found")
		return
	}

	fmt.Printf("%-40s %-12s %-14s %-10s %s\n", "ID", "STATUS", "BRANCH", "REVISION", "UPDATED")
	for _, r := range records {
		fmt.Printf("%-40s %-12s %-14s %-10s %s\n",
			r.GetID(),
			r.Status,
			r.Branch,
			shortRevision(r.Revision),
			time.Unix(r.UpdatedAt, 0).UTC().Format(time.RFC3339),
		)
	}
}

func displayRunsJSON(records []builddao.Record) error {
	output := slicex.Map(records, runOutput)
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal runs: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func displayRunJSON(record builddao.Record) error {
	data, err := json.MarshalIndent(runOutput(record), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runOutput(r builddao.Record) map[string]interface{} {
	output := map[string]interface{}{
		"id":         r.GetID(),
		"image":      r.Image,
		"env":        r.Env,
		"branch":     r.Branch,
		"tag":        r.Tag,
		"revision":   r.Revision,
		"status":     r.Status,
		"created_at": time.Unix(r.CreatedAt, 0).UTC().Format(time.RFC3339),
		"updated_at": time.Unix(r.UpdatedAt, 0).UTC().Format(time.RFC3339),
	}
	if r.ErrorMsg != nil {
		output["error"] = *r.ErrorMsg
	}
	if r.FinishedAt != nil {
		output["finished_at"] = time.Unix(*r.FinishedAt, 0).UTC().Format(time.RFC3339)
	}
	return output
}
