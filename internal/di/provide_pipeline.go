package di

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/dtbase/dt-deployer/internal/builder"
	"github.com/dtbase/dt-deployer/internal/dao/builddao"
	"github.com/dtbase/dt-deployer/internal/dao/lockdao"
	"github.com/dtbase/dt-deployer/internal/policy"
	"github.com/dtbase/dt-deployer/internal/registry"
	"github.com/dtbase/dt-deployer/internal/runner"
	"github.com/dtbase/dt-deployer/internal/services"
	"github.com/dtbase/dt-deployer/internal/source"
)

// ProvideDockerClient connects to the local docker daemon.
func ProvideDockerClient() (registry.DockerClient, error) {
	return registry.NewDockerClient()
}

// ProvideRegistryService provides the registry service. Push progress goes to
// stderr so it shows up in CI logs without polluting stdout.
func ProvideRegistryService(docker registry.DockerClient) *registry.Service {
	return registry.New(docker, os.Stderr)
}

// ProvideSourceService provides the git checkout service.
func ProvideSourceService(token GitHubToken) *source.Service {
	return source.New(string(token))
}

// ProvideBuilder provides the image builder running the external build tool.
func ProvideBuilder(verbose Verbose) *builder.Builder {
	return builder.New(nil, bool(verbose))
}

// ProvideValidator provides the manifest policy validator.
func ProvideValidator() (*policy.Validator, error) {
	return policy.NewValidator()
}

// ProvideECRService provides the ECR service in the configured region.
func ProvideECRService(ctx context.Context) (*services.ECRService, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return services.NewECRService(ctx, region)
}

// ProvideCredentialsResolver provides the registry credential chain used by
// the runner: explicit values, DT_DOCKER_USER/DT_DOCKER_PASS, Secrets
// Manager, then an ECR token for ECR hosts.
func ProvideCredentialsResolver(secrets *services.SecretsManagerService, ecrService *services.ECRService) runner.CredentialsResolver {
	return func(ctx context.Context, env, host string) (registry.Credentials, error) {
		return services.ResolveRegistryCredentials(ctx, services.ResolveCredentialsInput{
			Env:     env,
			Host:    host,
			Secrets: secrets,
			ECR:     ecrService,
		})
	}
}

// ProvideReportStore provides the build report store, or nil when no state
// bucket is configured.
func ProvideReportStore(config *services.Config, client *s3.Client, logger zerolog.Logger) *services.ReportStore {
	if config.StateBucket == "" {
		return nil
	}
	return services.NewReportStore(client, config.StateBucket, logger)
}

// ProvideRunner assembles the pipeline runner. Run records, locks, and
// reports attach only when their backing table or bucket is configured; a
// bare CI run needs none of them.
func ProvideRunner(
	config *services.Config,
	fetcher *source.Service,
	imageBuilder *builder.Builder,
	registryService *registry.Service,
	resolver runner.CredentialsResolver,
	validator *policy.Validator,
	buildDAO *builddao.DAO,
	lockDAO *lockdao.DAO,
	reports *services.ReportStore,
) *runner.Runner {
	deps := runner.Deps{
		Fetcher:   fetcher,
		Builder:   imageBuilder,
		Registry:  registryService,
		Resolver:  resolver,
		Validator: validator,
	}
	if config.BuildTable != "" {
		deps.Runs = buildDAO
	}
	if config.LockTable != "" && !config.DisableLocks {
		deps.Locks = lockDAO
	}
	if reports != nil {
		deps.Reports = reports
	}
	return runner.New(deps)
}
