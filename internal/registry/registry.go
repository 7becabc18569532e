package registry

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	registrytypes "github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/rs/zerolog"

	interrors "github.com/dtbase/dt-deployer/internal/errors"
)

// Credentials authenticate one registry host. An empty ServerAddress means
// Docker Hub.
type Credentials struct {
	Username      string
	Password      string
	ServerAddress string
}

// Host returns the registry host the credentials apply to.
func (c Credentials) Host() string {
	if c.ServerAddress == "" {
		return "docker.io"
	}
	return c.ServerAddress
}

// Service performs registry operations through the local docker daemon.
type Service struct {
	docker DockerClient
	out    io.Writer
}

// New constructs a Service. out receives the push progress stream; nil
// discards it.
func New(docker DockerClient, out io.Writer) *Service {
	if out == nil {
		out = io.Discard
	}
	return &Service{
		docker: docker,
		out:    out,
	}
}

// Login verifies the credentials against the registry before any build work
// starts, so bad credentials fail the run up front.
func (s *Service) Login(ctx context.Context, creds Credentials) error {
	logger := zerolog.Ctx(ctx)

	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("failed to login to %s: %w", creds.Host(), interrors.ErrRegistryAuthRequired)
	}

	body, err := s.docker.RegistryLogin(ctx, authConfig(creds))
	if err != nil {
		return fmt.Errorf("failed to login to %s: %w", creds.Host(), err)
	}

	logger.Info().
		Str("registry", creds.Host()).
		Str("status", body.Status).
		Msg("registry login ok")

	return nil
}

// Tag aliases a local image reference under a second name, typically adding
// the registry host prefix before a push.
func (s *Service) Tag(ctx context.Context, source, target string) error {
	if err := s.docker.ImageTag(ctx, source, target); err != nil {
		return fmt.Errorf("failed to tag %s as %s: %w", source, target, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("source", source).
		Str("target", target).
		Msg("tagged image")

	return nil
}

// Push uploads the reference to its registry. Pushing the same reference
// twice overwrites the tag at the registry; the registry treats it as an
// idempotent update.
func (s *Service) Push(ctx context.Context, reference string, creds Credentials) error {
	logger := zerolog.Ctx(ctx)

	encodedAuth, err := registrytypes.EncodeAuthConfig(authConfig(creds))
	if err != nil {
		return fmt.Errorf("failed to encode registry auth: %w", err)
	}

	body, err := s.docker.ImagePush(ctx, reference, image.PushOptions{
		RegistryAuth: encodedAuth,
	})
	if err != nil {
		return fmt.Errorf("image push failed for %s: %w", reference, err)
	}
	defer body.Close()

	// The daemon reports push failures inside the progress stream, not as
	// the ImagePush return value.
	if err := jsonmessage.DisplayJSONMessagesStream(body, s.out, 0, false, nil); err != nil {
		return fmt.Errorf("image push failed for %s: %w", reference, err)
	}

	logger.Info().
		Str("reference", reference).
		Str("registry", creds.Host()).
		Msg("pushed image")

	return nil
}

// Close releases the underlying docker client.
func (s *Service) Close() error {
	return s.docker.Close()
}

func authConfig(creds Credentials) registrytypes.AuthConfig {
	return registrytypes.AuthConfig{
		Username:      creds.Username,
		Password:      creds.Password,
		ServerAddress: creds.ServerAddress,
	}
}
