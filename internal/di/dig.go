// Package di wires the pipeline's collaborators together with uber's dig.
// Commands build a container for an environment, register the providers they
// need, and pull fully constructed services out with MustGet.
package di

import (
	"github.com/dtbase/dt-deployer/internal/services"
	"go.uber.org/dig"
)

// Container is the subset of *dig.Container the commands rely on. Code that
// accepts the interface can be handed a stub container in tests.
type Container interface {
	// Invoke calls function with its arguments resolved from the container.
	Invoke(function any, opts ...dig.InvokeOption) error

	// Provide registers a constructor function in the container.
	Provide(constructor any, opts ...dig.ProvideOption) error

	// Scope creates a scoped sub-container with its own set of values.
	Scope(name string, opts ...dig.ScopeOption) *dig.Scope
}

// MustGet resolves a single dependency from the container, panicking if the
// chain cannot be constructed. Commands use it after setup, where a missing
// provider is a programming error rather than a runtime condition.
//
// Example:
//
//	dao := MustGet[*builddao.DAO](container)
func MustGet[T any](container Container) (want T) {
	callback := func(got T) {
		want = got
	}
	if err := container.Invoke(callback); err != nil {
		panic(err)
	}
	return want
}

// New creates a container for the given environment. The environment name,
// the GitHubToken, and the Verbose setting are registered as injectable
// values; constructors declare them as parameters to receive them.
//
// Example:
//
//	container, err := New("dev",
//	    WithGitHubToken(token),
//	    WithProviders(ProvideLogger, ProvideSourceService),
//	)
func New(env string, opts ...Option) (Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	container := dig.New()
	if err := container.Provide(func() string { return env }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() GitHubToken { return o.githubToken }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() Verbose { return Verbose(o.verbose) }); err != nil {
		return nil, err
	}

	// Core providers shared by every command
	for _, provider := range core {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	// Opt-in providers requested by the caller
	for _, provider := range o.providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}

var core = []any{
	ProvideContext,
	ProvideAWSConfig,
	ProvideSSMClient,
	ProvideParameterStore,
	ProvideAppConfig,
	ProvideDynamoDB,
	ProvideS3Client,
	services.NewSecretsManagerService,
}
