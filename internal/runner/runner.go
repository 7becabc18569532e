// Package runner executes the build-and-publish pipeline: one trigger event
// in, at most one image build and push out. Steps run strictly in sequence
// and the first failure aborts the run.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/dtbase/dt-deployer/internal/builder"
	"github.com/dtbase/dt-deployer/internal/dao/builddao"
	"github.com/dtbase/dt-deployer/internal/dao/lockdao"
	interrors "github.com/dtbase/dt-deployer/internal/errors"
	"github.com/dtbase/dt-deployer/internal/manifest"
	"github.com/dtbase/dt-deployer/internal/models"
	"github.com/dtbase/dt-deployer/internal/policy"
	"github.com/dtbase/dt-deployer/internal/registry"
	"github.com/dtbase/dt-deployer/internal/services"
	"github.com/dtbase/dt-deployer/internal/source"
)

// SourceFetcher checks out the triggering revision of the project source.
type SourceFetcher interface {
	Checkout(ctx context.Context, input source.CheckoutInput) (string, string, error)
}

// ImageBuilder builds the image via the external build tool.
type ImageBuilder interface {
	Build(ctx context.Context, input builder.BuildInput) error
}

// RegistryService authenticates to and publishes into the container
// registry.
type RegistryService interface {
	Login(ctx context.Context, creds registry.Credentials) error
	Tag(ctx context.Context, source, target string) error
	Push(ctx context.Context, reference string, creds registry.Credentials) error
}

// CredentialsResolver resolves the registry credentials for a run.
type CredentialsResolver func(ctx context.Context, env, host string) (registry.Credentials, error)

// RunRecorder persists run records. *builddao.DAO satisfies it.
type RunRecorder interface {
	Create(ctx context.Context, input builddao.CreateInput) (builddao.Record, error)
	UpdateStatus(ctx context.Context, input builddao.UpdateInput) error
}

// LockManager guards one {env, image} pair against concurrent runs.
// *lockdao.DAO satisfies it.
type LockManager interface {
	Acquire(ctx context.Context, input lockdao.AcquireInput) (*lockdao.Record, bool, error)
	Release(ctx context.Context, input lockdao.ReleaseInput) error
}

// ReportUploader persists the final build report. *services.ReportStore
// satisfies it.
type ReportUploader interface {
	Put(ctx context.Context, report services.BuildReport) error
}

// Deps carries the runner's collaborators. Runs, Locks, and Reports are
// optional; leaving one nil disables that surface without changing the core
// contract.
type Deps struct {
	Fetcher   SourceFetcher
	Builder   ImageBuilder
	Registry  RegistryService
	Resolver  CredentialsResolver
	Validator *policy.Validator
	Runs      RunRecorder
	Locks     LockManager
	Reports   ReportUploader
}

// Runner executes pipeline runs.
type Runner struct {
	deps Deps
}

// New creates a Runner from its collaborators.
func New(deps Deps) *Runner {
	return &Runner{deps: deps}
}

// RunInput describes one pipeline run request.
type RunInput struct {
	// Event is the trigger delivered by the CI platform.
	Event models.Event

	// Manifest is the parsed pipeline definition.
	Manifest manifest.Manifest

	// SourceURL is the clone URL of the project. Optional when SourceDir
	// names an existing checkout.
	SourceURL string

	// SourceDir is an existing working tree, typically the CI checkout.
	// When SourceURL is also set the clone lands here.
	SourceDir string

	// Registry overrides the manifest's registry host.
	Registry string

	// AllowedRegistries feeds the policy allowlist; empty accepts any
	// host.
	AllowedRegistries []string

	// RunID identifies the CI run for lock ownership, so a platform retry
	// of the same run can re-acquire its own lock. Defaults to the record
	// sort key.
	RunID string
}

// RunResult summarizes a finished or skipped run.
type RunResult struct {
	Skipped    bool           `json:"skipped"`
	Action     *models.Action `json:"action,omitempty"`
	Reference  string         `json:"reference,omitempty"`
	Revision   string         `json:"revision,omitempty"`
	SK         string         `json:"sk,omitempty"`
	DurationMS int64          `json:"durationMs"`
}

// runState carries values produced by earlier steps into later ones.
type runState struct {
	host      string
	creds     registry.Credentials
	dir       string
	revision  string
	localRef  string
	remoteRef string
}

// step is one sequential unit of the run.
type step struct {
	name string
	fn   func(ctx context.Context) error
}

// execFunc runs the full step sequence.
type execFunc func(ctx context.Context) error

// Run maps the event to at most one build-and-publish action and executes
// it. Unrecognized refs return a skipped result with no side effects. Any
// step failure aborts the run and surfaces as a non-nil error.
func (r *Runner) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	started := time.Now()

	action, ok := input.Manifest.Resolve(input.Event)
	if !ok {
		zerolog.Ctx(ctx).Info().
			Str("ref", input.Event.Ref).
			Str("kind", input.Event.Kind).
			Msg("no build action for ref")
		return &RunResult{Skipped: true, DurationMS: time.Since(started).Milliseconds()}, nil
	}

	if err := r.validateManifest(input); err != nil {
		return nil, err
	}

	registryHost := input.Registry
	if registryHost == "" {
		registryHost = input.Manifest.Registry
	}

	sk := ksuid.New().String()
	runID := input.RunID
	if runID == "" {
		runID = sk
	}

	logger := zerolog.Ctx(ctx).With().
		Str("image", action.Image).
		Str("env", action.Env).
		Str("branch", action.Branch).
		Str("sk", sk).
		Logger()
	ctx = logger.WithContext(ctx)

	if r.deps.Locks != nil {
		lock, acquired, err := r.deps.Locks.Acquire(ctx, lockdao.AcquireInput{
			Env:   action.Env,
			Image: action.Image,
			RunID: runID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("%s/%s: %w", action.Env, action.Image, interrors.ErrLockHeld)
		}
		defer func() {
			if releaseErr := r.deps.Locks.Release(ctx, lockdao.ReleaseInput{ID: lock.GetID(), RunID: runID}); releaseErr != nil {
				logger.Error().Err(releaseErr).Msg("failed to release run lock")
			}
		}()
	}

	var record builddao.Record
	if r.deps.Runs != nil {
		created, err := r.deps.Runs.Create(ctx, builddao.CreateInput{
			Image:    action.Image,
			Env:      action.Env,
			SK:       sk,
			Branch:   action.Branch,
			Tag:      action.Tag,
			Revision: action.Revision,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create run record: %w", err)
		}
		record = created
	}

	state := &runState{
		host:      registryHost,
		revision:  action.Revision,
		dir:       input.SourceDir,
		localRef:  action.Reference(""),
		remoteRef: action.Reference(registryHost),
	}

	execute := r.buildExec(action, input, state)
	execute = r.withRunStatus(execute, builddao.NewPK(action.Image, action.Env), sk)

	err := execute(ctx)
	r.uploadReport(ctx, action, record, sk, state, started, &err)
	if err != nil {
		return nil, err
	}

	return &RunResult{
		Action:     &action,
		Reference:  state.remoteRef,
		Revision:   state.revision,
		SK:         sk,
		DurationMS: time.Since(started).Milliseconds(),
	}, nil
}

func (r *Runner) validateManifest(input RunInput) error {
	if r.deps.Validator == nil {
		return nil
	}

	doc, err := input.Manifest.Document()
	if err != nil {
		return err
	}

	result, err := r.deps.Validator.ValidateManifest(doc, input.AllowedRegistries)
	if err != nil {
		return fmt.Errorf("failed to validate manifest: %w", err)
	}
	if !result.Allowed {
		return fmt.Errorf("manifest rejected by policy: %s", strings.Join(result.Violations, "; "))
	}
	return nil
}

// buildExec assembles the sequential step list. Each step reads from and
// writes to the shared runState.
func (r *Runner) buildExec(action models.Action, input RunInput, state *runState) execFunc {
	steps := []step{
		{
			name: "login",
			fn: func(ctx context.Context) error {
				creds, err := r.deps.Resolver(ctx, action.Env, state.host)
				if err != nil {
					return err
				}
				state.creds = creds
				return r.deps.Registry.Login(ctx, creds)
			},
		},
		{
			name: "checkout",
			fn: func(ctx context.Context) error {
				if input.SourceURL == "" {
					if input.SourceDir == "" {
						return fmt.Errorf("no source url and no existing checkout dir")
					}
					// CI platforms hand us a ready checkout; nothing to
					// fetch.
					zerolog.Ctx(ctx).Info().Str("dir", input.SourceDir).Msg("using existing checkout")
					return nil
				}

				dir, revision, err := r.deps.Fetcher.Checkout(ctx, source.CheckoutInput{
					URL:      input.SourceURL,
					Ref:      action.Branch,
					Revision: action.Revision,
					Dir:      input.SourceDir,
				})
				if err != nil {
					return err
				}
				state.dir = dir
				state.revision = revision
				return nil
			},
		},
		{
			name: "build",
			fn: func(ctx context.Context) error {
				return r.deps.Builder.Build(ctx, builder.BuildInput{
					Dir:       state.dir,
					Buildfile: action.Buildfile,
					Context:   action.Context,
					Reference: state.localRef,
				})
			},
		},
		{
			name: "push",
			fn: func(ctx context.Context) error {
				if state.remoteRef != state.localRef {
					if err := r.deps.Registry.Tag(ctx, state.localRef, state.remoteRef); err != nil {
						return err
					}
				}
				return r.deps.Registry.Push(ctx, state.remoteRef, state.creds)
			},
		},
	}

	return func(ctx context.Context) error {
		for _, s := range steps {
			s = withStepLogging(s)
			if err := s.fn(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// withStepLogging attaches the step name to the context logger and records
// the step duration.
func withStepLogging(s step) step {
	return step{
		name: s.name,
		fn: func(ctx context.Context) error {
			logger := zerolog.Ctx(ctx).With().Str("step", s.name).Logger()
			ctx = logger.WithContext(ctx)

			started := time.Now()
			logger.Info().Msg("step started")

			if err := s.fn(ctx); err != nil {
				logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("step failed")
				return fmt.Errorf("%s: %w", s.name, err)
			}

			logger.Info().Dur("elapsed", time.Since(started)).Msg("step completed")
			return nil
		},
	}
}

// withRunStatus brackets the execution with run record transitions:
// IN_PROGRESS before the first step, SUCCESS after the last, FAILED with the
// error message when any step fails.
func (r *Runner) withRunStatus(next execFunc, pk builddao.PK, sk string) execFunc {
	if r.deps.Runs == nil {
		return next
	}

	return func(ctx context.Context) error {
		inProgress := builddao.BuildStatusInProgress
		if err := r.deps.Runs.UpdateStatus(ctx, builddao.UpdateInput{PK: pk, SK: sk, Status: &inProgress}); err != nil {
			return fmt.Errorf("failed to mark run in progress: %w", err)
		}

		if err := next(ctx); err != nil {
			failed := builddao.BuildStatusFailed
			if updateErr := r.deps.Runs.UpdateStatus(ctx, builddao.UpdateInput{
				PK:       pk,
				SK:       sk,
				Status:   &failed,
				ErrorMsg: aws.String(err.Error()),
			}); updateErr != nil {
				zerolog.Ctx(ctx).Error().
					Err(updateErr).
					Stringer("id", builddao.NewID(pk, sk)).
					Msg("failed to update run status to FAILED")
			}
			return err
		}

		success := builddao.BuildStatusSuccess
		if err := r.deps.Runs.UpdateStatus(ctx, builddao.UpdateInput{PK: pk, SK: sk, Status: &success}); err != nil {
			return fmt.Errorf("failed to mark run succeeded: %w", err)
		}
		return nil
	}
}

// uploadReport writes the final build report when a report store is
// configured. A report upload failure fails an otherwise successful run; on
// an already failed run it is logged and the original error wins.
func (r *Runner) uploadReport(ctx context.Context, action models.Action, record builddao.Record, sk string, state *runState, started time.Time, runErr *error) {
	if r.deps.Reports == nil {
		return
	}

	status := string(builddao.BuildStatusSuccess)
	errorMsg := ""
	if *runErr != nil {
		status = string(builddao.BuildStatusFailed)
		errorMsg = (*runErr).Error()
	}

	createdAt := record.CreatedAt
	if createdAt == 0 {
		createdAt = started.Unix()
	}

	report := services.BuildReport{
		Image:      action.Image,
		Env:        action.Env,
		SK:         sk,
		Branch:     action.Branch,
		Tag:        action.Tag,
		Revision:   state.revision,
		Reference:  state.remoteRef,
		Status:     status,
		Error:      errorMsg,
		CreatedAt:  createdAt,
		FinishedAt: time.Now().Unix(),
	}

	if reportErr := r.deps.Reports.Put(ctx, report); reportErr != nil {
		if *runErr == nil {
			*runErr = fmt.Errorf("failed to upload build report: %w", reportErr)
			return
		}
		zerolog.Ctx(ctx).Error().Err(reportErr).Msg("failed to upload build report")
	}
}
