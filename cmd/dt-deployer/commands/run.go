package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dtbase/dt-deployer/internal/constants"
	"github.com/dtbase/dt-deployer/internal/di"
	"github.com/dtbase/dt-deployer/internal/manifest"
	"github.com/dtbase/dt-deployer/internal/models"
	"github.com/dtbase/dt-deployer/internal/registry"
	"github.com/dtbase/dt-deployer/internal/runner"
	"github.com/dtbase/dt-deployer/internal/services"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// RunCommand returns the run command, which maps a trigger event to at most
// one build-and-publish action and executes it.
func RunCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute the build-and-publish pipeline for a trigger event",
		Description: `Map a trigger event to at most one build-and-publish action and execute it.

A push event carries the triggering ref and revision; a manual dispatch
carries the branch to build. Branches declared in the pipeline manifest map
to environment labels (main -> main, develop -> dev, test-actions ->
test-actions) and the label becomes the image tag. Any other ref exits
cleanly without side effects.

The pipeline logs into the registry, fetches the source at the triggering
revision, builds the image from the manifest's build-file, and pushes the
tagged image. The first failure aborts the run with a non-zero exit status;
nothing is retried.

Examples:
  # CI push event (ref and revision come from GitHub Actions)
  dt-deployer run --env dev

  # Manual dispatch for a branch
  dt-deployer run --env dev --dispatch --ref develop

  # Resolve the action without executing anything
  dt-deployer run --ref refs/heads/develop --dry-run`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Deployment environment (dev, prd)",
				Value:   "dev",
				EnvVars: []string{"ENV", "ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "ref",
				Usage:   "Triggering ref (e.g. refs/heads/develop) or branch name for dispatches",
				EnvVars: []string{"GITHUB_REF", "DEPLOYER_REF"},
			},
			&cli.StringFlag{
				Name:    "revision",
				Usage:   "Commit SHA to build; defaults to the tip of the triggering branch",
				EnvVars: []string{"GITHUB_SHA"},
			},
			&cli.BoolFlag{
				Name:    "dispatch",
				Usage:   "Treat the event as a manual dispatch instead of a push",
				EnvVars: []string{"DEPLOYER_DISPATCH"},
			},
			&cli.StringFlag{
				Name:    "manifest",
				Aliases: []string{"m"},
				Usage:   "Path to the pipeline manifest",
				Value:   constants.DefaultManifestPath,
				EnvVars: []string{"DT_PIPELINE_MANIFEST"},
			},
			&cli.StringFlag{
				Name:    "source-url",
				Usage:   "Git URL of the source repository to clone",
				EnvVars: []string{"SOURCE_URL"},
			},
			&cli.StringFlag{
				Name:    "source-dir",
				Usage:   "Existing checkout to build from instead of cloning",
				EnvVars: []string{"GITHUB_WORKSPACE"},
			},
			&cli.StringFlag{
				Name:    "registry",
				Usage:   "Registry host to push to (overrides the manifest)",
				EnvVars: []string{"REGISTRY_HOST"},
			},
			&cli.StringSliceFlag{
				Name:    "allowed-registry",
				Usage:   "Registry allowlist enforced by policy (can be specified multiple times)",
				EnvVars: []string{"ALLOWED_REGISTRIES"},
			},
			&cli.StringFlag{
				Name:    "run-id",
				Usage:   "External run identifier recorded with the run lock",
				EnvVars: []string{"GITHUB_RUN_ID"},
			},
			&cli.StringFlag{
				Name:    "github-token",
				Usage:   "Token for cloning private source repositories",
				EnvVars: []string{"GITHUB_TOKEN"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Stream build tool output to the terminal",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Resolve and print the action without executing anything",
			},
		},
		Action: runAction,
	}
}

func setupContainer(env, githubToken string, verbose bool) (di.Container, error) {
	return di.New(env,
		di.WithGitHubToken(githubToken),
		di.WithVerbose(verbose),
		di.WithProviders(
			di.ProvideLogger,
			di.ProvideDockerClient,
			di.ProvideRegistryService,
			di.ProvideSourceService,
			di.ProvideBuilder,
			di.ProvideValidator,
			di.ProvideECRService,
			di.ProvideCredentialsResolver,
			di.ProvideBuildDAO,
			di.ProvideLockDAO,
			di.ProvideReportStore,
			di.ProvideRunner,
		),
	)
}

func runAction(c *cli.Context) error {
	logger := zerolog.Ctx(c.Context)

	kind := models.EventPush
	if c.Bool("dispatch") {
		kind = models.EventDispatch
	}

	m, err := loadManifest(c)
	if err != nil {
		return err
	}

	if c.Bool("dry-run") {
		return dryRunAction(c, m, kind)
	}

	container, err := setupContainer(c.String("env"), c.String("github-token"), c.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to setup DI container: %w", err)
	}

	config := di.MustGet[*services.Config](container)

	ref := c.String("ref")
	if ref == "" {
		ref = config.SourceRef
	}
	if ref == "" {
		return fmt.Errorf("a triggering ref is required (set --ref or GITHUB_REF)")
	}

	sourceURL := c.String("source-url")
	if sourceURL == "" {
		sourceURL = config.SourceURL
	}
	registryHost := c.String("registry")
	if registryHost == "" {
		registryHost = config.RegistryHost
	}

	registryService := di.MustGet[*registry.Service](container)
	defer registryService.Close()

	pipeline := di.MustGet[*runner.Runner](container)

	result, err := pipeline.Run(c.Context, runner.RunInput{
		Event:             models.Event{Kind: kind, Ref: ref, Revision: c.String("revision")},
		Manifest:          m,
		SourceURL:         sourceURL,
		SourceDir:         c.String("source-dir"),
		Registry:          registryHost,
		AllowedRegistries: c.StringSlice("allowed-registry"),
		RunID:             c.String("run-id"),
	})
	if err != nil {
		return err
	}

	if result.Skipped {
		fmt.Printf("No build action for %s; nothing to do.\n", ref)
		return nil
	}

	logger.Info().
		Str("reference", result.Reference).
		Str("revision", result.Revision).
		Int64("duration_ms", result.DurationMS).
		Msg("Pipeline run complete")

	fmt.Printf("✓ Pushed %s (revision %s)\n", result.Reference, shortRevision(result.Revision))
	return nil
}

// dryRunAction resolves the event against the manifest and prints the action
// without touching the registry, the source repository, or AWS.
func dryRunAction(c *cli.Context, m manifest.Manifest, kind string) error {
	ref := c.String("ref")
	if ref == "" {
		return fmt.Errorf("a triggering ref is required (set --ref or GITHUB_REF)")
	}

	event := models.Event{Kind: kind, Ref: ref, Revision: c.String("revision")}
	action, ok := m.Resolve(event)
	if !ok {
		fmt.Printf("No build action for %s; nothing to do.\n", ref)
		return nil
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(action)
}

// loadManifest finds the pipeline manifest. An explicit --manifest must
// exist; otherwise the default path is tried in the working directory and
// the source checkout before falling back to the stock manifest.
func loadManifest(c *cli.Context) (manifest.Manifest, error) {
	path := c.String("manifest")
	if c.IsSet("manifest") {
		return manifest.Load(path)
	}
	if _, err := os.Stat(path); err == nil {
		return manifest.Load(path)
	}
	if dir := c.String("source-dir"); dir != "" {
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil {
			return manifest.Load(candidate)
		}
	}
	return manifest.Default(), nil
}

func shortRevision(revision string) string {
	if len(revision) > 7 {
		return revision[:7]
	}
	return revision
}
