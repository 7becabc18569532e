package commands

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/dtbase/dt-deployer/internal/constants"
	"github.com/dtbase/dt-deployer/internal/services"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// SetupRegistryCommand returns the setup-registry command, which provisions
// the ECR repositories the pipeline pushes to.
func SetupRegistryCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "setup-registry",
		Usage: "Create ECR repositories for the pipeline",
		Description: `Create the ECR repositories the pipeline pushes to, with scan-on-push
enabled and mutable tags so the environment labels (main, dev,
test-actions) move to the newest image on every run.

With --store-config the resolved registry host is written to Parameter
Store where the pipeline reads its configuration. With --role-name and
--github-repo a GitHub Actions OIDC role is created and granted the
pipeline's AWS permissions, so workflows need no long-lived credentials.

Examples:
  # Create the default repository and print the registry host
  dt-deployer setup-registry

  # Create repositories and record the host for the dev pipeline
  dt-deployer setup-registry --image dtbase --image dtbase-docs --env dev --store-config

  # Also provision the workflow role for the source repository
  dt-deployer setup-registry --env dev --github-repo dtbase/dtbase --role-name dt-deployer-dev`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Repository name(s) to create (can be specified multiple times)",
				Value:   cli.NewStringSlice(constants.DefaultImage),
			},
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region for the registry",
				Value:   "us-east-1",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Deployment environment (dev, prd)",
				Value:   "dev",
				EnvVars: []string{"ENV"},
			},
			&cli.StringFlag{
				Name:    "github-repo",
				Usage:   "Source repository in format 'owner/repo', required with --role-name",
				EnvVars: []string{"GITHUB_REPO"},
			},
			&cli.StringFlag{
				Name:    "role-name",
				Aliases: []string{"n"},
				Usage:   "IAM role to create for GitHub Actions OIDC and grant pipeline permissions",
			},
			&cli.StringFlag{
				Name:  "state-bucket",
				Usage: "State bucket to include in the role's permissions",
			},
			&cli.BoolFlag{
				Name:  "store-config",
				Usage: "Write the registry host to Parameter Store for the pipeline",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would be created without creating resources",
			},
		},
		Action: func(c *cli.Context) error {
			return setupRegistryAction(c, logger)
		},
	}
}

func setupRegistryAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx := context.Background()

	images := c.StringSlice("image")
	region := c.String("region")
	env := c.String("env")
	roleName := c.String("role-name")

	if roleName != "" && c.String("github-repo") == "" {
		return fmt.Errorf("--role-name requires --github-repo")
	}

	if c.Bool("dry-run") {
		logger.Info().Msg("DRY RUN: Would create the following ECR repositories:")
		for _, image := range images {
			logger.Info().Msgf("  - %s (region: %s)", image, region)
		}
		logger.Info().Msg("DRY RUN: Would enable:")
		logger.Info().Msg("  - Scan on push")
		logger.Info().Msg("  - Mutable tags (environment labels move on re-run)")
		if roleName != "" {
			logger.Info().Msgf("DRY RUN: Would create GitHub OIDC role %s for %s with pipeline permissions", roleName, c.String("github-repo"))
		}
		if c.Bool("store-config") {
			logger.Info().Msgf("DRY RUN: Would store the registry host in SSM: /%s/dt-deployer/registry-host", env)
		}
		return nil
	}

	logger.Info().Msgf("Initializing ECR service in region %s...", region)
	ecrService, err := services.NewECRService(ctx, region)
	if err != nil {
		return fmt.Errorf("failed to create ECR service: %w", err)
	}

	repositories := make([]*services.RepositoryInfo, 0, len(images))
	for _, image := range images {
		logger.Info().Msgf("Creating repository %s...", image)
		info, err := ecrService.EnsureRepository(ctx, image)
		if err != nil {
			return fmt.Errorf("failed to create repository %s: %w", image, err)
		}
		repositories = append(repositories, info)
	}

	accountID, err := ecrService.GetAccountID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get account ID: %w", err)
	}
	registryHost := ecrService.RegistryHost(accountID)

	var roleARN string
	if roleName != "" {
		roleARN, err = provisionWorkflowRole(ctx, c, logger, accountID, env, roleName, repositories)
		if err != nil {
			return err
		}
	}

	if c.Bool("store-config") {
		if err := storeRegistryHost(ctx, logger, env, region, registryHost); err != nil {
			return err
		}
	}

	logger.Info().Msg("")
	logger.Info().Msg("========================================")
	logger.Info().Msg("Registry Setup Complete!")
	logger.Info().Msg("========================================")
	logger.Info().Msgf("Region:        %s", region)
	logger.Info().Msgf("Registry host: %s", registryHost)
	logger.Info().Msgf("Repositories:  %d created", len(repositories))
	logger.Info().Msg("")
	logger.Info().Msg("Features enabled:")
	logger.Info().Msg("  ✓ Scan on push")
	logger.Info().Msg("  ✓ Mutable tags (environment labels move on re-run)")
	if roleARN != "" {
		logger.Info().Msgf("  ✓ GitHub OIDC role %s has pipeline permissions", roleName)
	}
	logger.Info().Msg("")
	logger.Info().Msg("Repository URIs:")
	for _, repo := range repositories {
		logger.Info().Msgf("  %s", repo.URI)
	}
	logger.Info().Msg("")
	if roleARN != "" {
		logger.Info().Msg("In your workflow, authenticate with:")
		logger.Info().Msgf("  role-to-assume: %s", roleARN)
		logger.Info().Msg("")
	}
	if c.Bool("store-config") {
		logger.Info().Msgf("Registry host stored in SSM: /%s/dt-deployer/registry-host", env)
	} else {
		logger.Info().Msg("To point the pipeline at this registry:")
		logger.Info().Msgf("  export REGISTRY_HOST=%s", registryHost)
		logger.Info().Msg("or re-run with --store-config to record it in Parameter Store.")
	}

	return nil
}

// provisionWorkflowRole creates the GitHub Actions OIDC role and grants it
// the pipeline's AWS permissions over the repositories just created.
func provisionWorkflowRole(ctx context.Context, c *cli.Context, logger *zerolog.Logger, accountID, env, roleName string, repositories []*services.RepositoryInfo) (string, error) {
	owner, repo, err := splitRepo(c.String("github-repo"))
	if err != nil {
		return "", err
	}

	iamService, err := services.NewIAMService(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create IAM service: %w", err)
	}

	logger.Info().Msgf("Ensuring GitHub OIDC role %s for %s/%s...", roleName, owner, repo)
	roleARN, err := iamService.EnsureGitHubOIDCRole(ctx, roleName, owner, repo)
	if err != nil {
		return "", err
	}

	repositoryARNs := make([]string, 0, len(repositories))
	for _, info := range repositories {
		repositoryARNs = append(repositoryARNs, info.ARN)
	}

	err = iamService.AttachPipelinePolicy(ctx, roleName, services.PipelinePolicyInput{
		AccountID:      accountID,
		Env:            env,
		RepositoryARNs: repositoryARNs,
		StateBucket:    c.String("state-bucket"),
	})
	if err != nil {
		return "", err
	}

	return roleARN, nil
}

// storeRegistryHost records the registry host under the pipeline's Parameter
// Store path so runs pick it up without flags.
func storeRegistryHost(ctx context.Context, logger *zerolog.Logger, env, region, registryHost string) error {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	ssmClient := ssm.NewFromConfig(cfg)

	ssmPath := fmt.Sprintf("/%s/dt-deployer/registry-host", env)
	logger.Info().
		Str("ssm_path", ssmPath).
		Str("registry_host", registryHost).
		Msg("storing registry host in SSM")

	_, err = ssmClient.PutParameter(ctx, &ssm.PutParameterInput{
		Name:        aws.String(ssmPath),
		Value:       aws.String(registryHost),
		Type:        types.ParameterTypeString,
		Overwrite:   aws.Bool(true),
		Description: aws.String(fmt.Sprintf("Container registry host for the %s pipeline", env)),
	})
	if err != nil {
		return fmt.Errorf("failed to store registry host in SSM: %w", err)
	}
	return nil
}
