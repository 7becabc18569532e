package di

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dtbase/dt-deployer/internal/services"
	"github.com/rs/zerolog"
)

// ProvideSSMClient returns an SSM client, or nil when DISABLE_SSM=true. A nil
// client switches configuration to environment variables, which keeps local
// development and bare CI runs off AWS entirely.
func ProvideSSMClient(awsConfig aws.Config) *ssm.Client {
	if os.Getenv("DISABLE_SSM") == "true" {
		return nil
	}

	return ssm.NewFromConfig(awsConfig)
}

// ProvideParameterStore selects where pipeline configuration is read from:
// SSM Parameter Store when a client is available, process environment
// variables otherwise.
func ProvideParameterStore(ctx context.Context, ssmClient *ssm.Client, env string) services.ParameterStore {
	logger := zerolog.Ctx(ctx)

	if ssmClient == nil {
		logger.Info().Msg("Parameter store disabled, reading configuration from environment")
		return services.NewEnvParameterStore(env)
	}

	logger.Info().Msg("Reading configuration from SSM Parameter Store")
	return services.NewSSMParameterStore(ssmClient, env)
}

// ProvideAppConfig loads the pipeline configuration once at container setup.
func ProvideAppConfig(ctx context.Context, store services.ParameterStore) (*services.Config, error) {
	logger := zerolog.Ctx(ctx)

	config, err := store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Info().
		Str("registry_host", config.RegistryHost).
		Bool("has_build_table", config.BuildTable != "").
		Bool("has_lock_table", config.LockTable != "").
		Bool("has_state_bucket", config.StateBucket != "").
		Msg("Loaded pipeline configuration")

	return config, nil
}
