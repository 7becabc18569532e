package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/dtbase/dt-deployer/internal/envtemplate"
	"github.com/dtbase/dt-deployer/internal/services"
	"github.com/dtbase/dt-deployer/internal/utils"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// SecretsCommand returns the secrets command for pushing the required
// environment variables to GitHub Actions repository secrets.
func SecretsCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "secrets",
		Usage: "Manage GitHub Actions repository secrets",
		Subcommands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Sync an env file to GitHub Actions repository secrets",
				Description: `Push every required environment variable from a dtenv.sh-style file to the
GitHub Actions secrets of a repository, encrypted against the repository's
public key. The file must pass the same checks as 'env check': every
variable present, non-empty, and no placeholder left.

By default this is a dry run showing what would be updated. Use --execute
to actually update the secrets.

Examples:
  # Preview what would be synced
  dt-deployer secrets sync --repo dtbase/dtbase --file .secrets/dtenv.sh

  # Shared values plus an overlay; later files override earlier ones
  dt-deployer secrets sync --repo dtbase/dtbase -f .secrets/dtenv.sh -f .secrets/dtenv.prd.sh

  # Sync for real, without the confirmation prompt
  dt-deployer secrets sync --repo dtbase/dtbase --file .secrets/dtenv.sh --execute --force`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "repo",
						Aliases:  []string{"r"},
						Usage:    "Repository in format 'owner/repo'",
						Required: true,
						EnvVars:  []string{"GITHUB_REPO"},
					},
					&cli.StringSliceFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Env file holding the secret values (repeatable; later files override earlier ones)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "github-token",
						Usage:   "GitHub token with repository admin access",
						EnvVars: []string{"GITHUB_TOKEN"},
					},
					&cli.StringFlag{
						Name:  "github-token-secret",
						Usage: "Secrets Manager path holding the GitHub token, used when no token is given",
					},
					&cli.BoolFlag{
						Name:    "execute",
						Aliases: []string{"x"},
						Usage:   "Actually update the secrets (default is dry-run)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Skip the confirmation prompt",
					},
				},
				Action: syncSecretsAction,
			},
		},
	}
}

func syncSecretsAction(c *cli.Context) error {
	logger := zerolog.Ctx(c.Context)

	owner, repo, err := splitRepo(c.String("repo"))
	if err != nil {
		return err
	}

	paths := c.StringSlice("file")
	files := make([]map[string]string, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		entries, err := utils.ParseEnvFile(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		files = append(files, utils.EnvMap(entries))
	}
	values := utils.MergeEnv(files...)

	// Refuse to upload an incomplete or unedited template.
	if problems := envtemplate.CheckMap(values); len(problems) > 0 {
		fmt.Printf("%s is not ready to sync:\n\n", strings.Join(paths, ", "))
		for _, p := range problems {
			fmt.Printf("  ✗ %s\n", p)
		}
		fmt.Println()
		return problemsError(problems)
	}

	variables := envtemplate.Registry()

	if !c.Bool("execute") {
		fmt.Printf("Would update %d secrets in %s/%s:\n", len(variables), owner, repo)
		for _, v := range variables {
			fmt.Printf("  - %s\n", v.Name)
		}
		fmt.Println()
		fmt.Println("DRY RUN: No secrets were updated. Use --execute to actually update them.")
		return nil
	}

	if !c.Bool("force") {
		fmt.Printf("About to update %d secrets in %s/%s.\n", len(variables), owner, repo)
		fmt.Print("Are you sure you want to continue? (yes/no): ")

		var response string
		fmt.Scanln(&response)
		if response != "yes" && response != "y" {
			fmt.Println("Sync cancelled")
			return nil
		}
	}

	token, err := resolveGitHubToken(c)
	if err != nil {
		return err
	}
	githubService := services.NewGitHubService(token)

	logger.Info().
		Str("repo", owner+"/"+repo).
		Int("secrets", len(variables)).
		Msg("Syncing repository secrets")

	for _, v := range variables {
		if err := githubService.PutSecret(c.Context, owner, repo, v.Name, values[v.Name]); err != nil {
			return fmt.Errorf("failed to update secret %s: %w", v.Name, err)
		}
		fmt.Printf("  ✓ %s\n", v.Name)
	}

	fmt.Printf("\n✓ Synced %d secrets to %s/%s\n", len(variables), owner, repo)
	return nil
}

// resolveGitHubToken prefers an explicit token and falls back to Secrets
// Manager when a secret path is configured.
func resolveGitHubToken(c *cli.Context) (string, error) {
	if token := c.String("github-token"); token != "" {
		return token, nil
	}
	if secretPath := c.String("github-token-secret"); secretPath != "" {
		secretsService, err := services.NewSecretsManagerService()
		if err != nil {
			return "", fmt.Errorf("failed to create secrets manager service: %w", err)
		}
		return secretsService.GetGitHubPAT(c.Context, secretPath)
	}
	return "", fmt.Errorf("a GitHub token is required (set --github-token, GITHUB_TOKEN, or --github-token-secret)")
}

func splitRepo(value string) (owner, repo string, err error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: %q (expected 'owner/repo')", value)
	}
	return parts[0], parts[1], nil
}
