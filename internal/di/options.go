package di

type GitHubToken string
type Verbose bool

// Option is a function that configures the dependency injection container.
type Option func(*options)

func WithGitHubToken(token string) Option {
	return func(opts *options) {
		opts.githubToken = GitHubToken(token)
	}
}

func WithVerbose(verbose bool) Option {
	return func(opts *options) {
		opts.verbose = verbose
	}
}

// WithProviders registers additional constructor functions with the
// container. Each constructor may declare dependencies as parameters; the
// container resolves them when the constructed type is first requested.
//
// Example:
//
//	WithProviders(
//	    ProvideDockerClient,
//	    func(docker registry.DockerClient) *registry.Service {
//	        return registry.New(docker, os.Stdout)
//	    },
//	)
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

type options struct {
	githubToken GitHubToken
	providers   []any
	verbose     bool
}
