package services

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	interrors "github.com/dtbase/dt-deployer/internal/errors"
	"github.com/dtbase/dt-deployer/internal/registry"
)

// RegistrySecretGetter fetches the registry credential secret for an
// environment.
type RegistrySecretGetter interface {
	GetRegistrySecret(ctx context.Context, env string) (*RegistrySecret, error)
}

// ECRTokenProvider mints docker credentials for the account's ECR registry.
type ECRTokenProvider interface {
	AuthorizationToken(ctx context.Context) (*RegistryAuth, error)
}

// ResolveCredentialsInput configures one credential resolution.
type ResolveCredentialsInput struct {
	// Env is the environment label, used to name the Secrets Manager
	// secret.
	Env string

	// Host is the registry host the credentials must authenticate.
	Host string

	// Username and Password short-circuit resolution when both are set.
	Username string
	Password string

	// Lookup reads environment variables; nil selects os.LookupEnv.
	Lookup func(name string) (string, bool)

	// Secrets is the optional Secrets Manager fallback.
	Secrets RegistrySecretGetter

	// ECR is the optional token fallback for ECR hosts.
	ECR ECRTokenProvider
}

// ResolveRegistryCredentials resolves registry credentials in order: explicit
// values, DT_DOCKER_USER/DT_DOCKER_PASS, the dt-deployer/{env}/secrets
// secret, and finally an ECR authorization token when the host is an ECR
// endpoint.
func ResolveRegistryCredentials(ctx context.Context, input ResolveCredentialsInput) (registry.Credentials, error) {
	logger := zerolog.Ctx(ctx)

	lookup := input.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if input.Username != "" && input.Password != "" {
		logger.Debug().Str("source", "explicit").Msg("resolved registry credentials")
		return registry.Credentials{
			Username:      input.Username,
			Password:      input.Password,
			ServerAddress: input.Host,
		}, nil
	}

	user, _ := lookup("DT_DOCKER_USER")
	pass, _ := lookup("DT_DOCKER_PASS")
	if user != "" && pass != "" {
		logger.Debug().Str("source", "environment").Msg("resolved registry credentials")
		return registry.Credentials{
			Username:      user,
			Password:      pass,
			ServerAddress: input.Host,
		}, nil
	}

	var lastErr error
	if input.Secrets != nil && input.Env != "" {
		secret, err := input.Secrets.GetRegistrySecret(ctx, input.Env)
		if err == nil {
			logger.Debug().Str("source", "secretsmanager").Msg("resolved registry credentials")
			return registry.Credentials{
				Username:      secret.Username,
				Password:      secret.Password,
				ServerAddress: input.Host,
			}, nil
		}
		lastErr = err
		logger.Debug().Err(err).Msg("registry secret unavailable, trying next source")
	}

	if input.ECR != nil && IsECRHost(input.Host) {
		auth, err := input.ECR.AuthorizationToken(ctx)
		if err == nil {
			logger.Debug().Str("source", "ecr").Msg("resolved registry credentials")
			return registry.Credentials{
				Username:      auth.Username,
				Password:      auth.Password,
				ServerAddress: input.Host,
			}, nil
		}
		lastErr = err
		logger.Debug().Err(err).Msg("ecr authorization token unavailable")
	}

	if lastErr != nil {
		return registry.Credentials{}, fmt.Errorf("no registry credentials for %s (last error: %v): %w",
			hostLabel(input.Host), lastErr, interrors.ErrRegistryAuthRequired)
	}
	return registry.Credentials{}, fmt.Errorf("no registry credentials for %s: %w",
		hostLabel(input.Host), interrors.ErrRegistryAuthRequired)
}

func hostLabel(host string) string {
	if host == "" {
		return "docker.io"
	}
	return host
}
