package builder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dtbase/dt-deployer/internal/constants"
)

// CommandRunner defines the interface for executing external commands.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
	RunOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner is a concrete implementation of CommandRunner using os/exec.
type ExecRunner struct{}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

func (r ExecRunner) RunOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("run %s: %w", name, err)
	}
	return output, nil
}

// Builder produces container images by delegating to the external docker
// build tool. It never interprets a shell line; arguments are passed as a
// vector.
type Builder struct {
	runner  CommandRunner
	tool    string
	verbose bool
}

// BuildInput describes a single image build.
type BuildInput struct {
	// Dir is the working directory for the build, normally the source
	// checkout.
	Dir string

	// Buildfile names the build file relative to Dir. Defaults to
	// Dockerfile.
	Buildfile string

	// Context is the build context path relative to Dir. Defaults to ".".
	Context string

	// Reference is the image reference to tag, e.g. host/image:label.
	Reference string

	// BuildArgs are forwarded as --build-arg key=value pairs.
	BuildArgs map[string]string
}

// New constructs a Builder. A nil runner selects ExecRunner. verbose streams
// tool output to the terminal; otherwise output is captured and attached to
// the error on failure.
func New(runner CommandRunner, verbose bool) *Builder {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Builder{
		runner:  runner,
		tool:    "docker",
		verbose: verbose,
	}
}

// Build runs the external build tool once for the input and blocks until it
// exits. The first failure aborts; there is no retry.
func (b *Builder) Build(ctx context.Context, input BuildInput) error {
	if input.Reference == "" {
		return fmt.Errorf("image reference is required")
	}

	buildfile := input.Buildfile
	if buildfile == "" {
		buildfile = constants.DefaultBuildfile
	}
	if _, err := os.Stat(filepath.Join(input.Dir, buildfile)); err != nil {
		return fmt.Errorf("build file not found: %w", err)
	}

	args := buildCommandArgs(buildfile, input.Reference, input.Context, input.BuildArgs)
	if b.verbose {
		return b.runner.Run(ctx, input.Dir, b.tool, args...)
	}

	output, err := b.runner.RunOutput(ctx, input.Dir, b.tool, args...)
	if err == nil {
		return nil
	}
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return fmt.Errorf("image build failed: %w", err)
	}
	if hint := registryHint(trimmed); hint != "" {
		return fmt.Errorf("image build failed: %w\n%s\n%s", err, trimmed, hint)
	}
	return fmt.Errorf("image build failed: %w\n%s", err, trimmed)
}

func buildCommandArgs(buildfile, reference, context string, buildArgs map[string]string) []string {
	args := []string{"build", "-f", buildfile, "-t", reference}

	keys := make([]string, 0, len(buildArgs))
	for key := range buildArgs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--build-arg", key+"="+buildArgs[key])
	}

	if context == "" {
		context = "."
	}
	args = append(args, context)
	return args
}

func registryHint(output string) string {
	if output == "" {
		return ""
	}
	normalized := strings.ToLower(output)
	denied := strings.Contains(normalized, "401") ||
		strings.Contains(normalized, "403") ||
		strings.Contains(normalized, "unauthorized") ||
		strings.Contains(normalized, "forbidden") ||
		strings.Contains(normalized, "pull access denied")
	if !denied {
		return ""
	}
	return "Hint: the registry denied a base image pull. Docker credentials may be stale or missing. Check DT_DOCKER_USER/DT_DOCKER_PASS or run 'docker login' for the registry and retry."
}
