package source

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Service fetches project sources for the pipeline. Clones are shallow in
// spirit but full in practice; go-git shallow clones cannot resolve arbitrary
// revisions, and pipeline repos are small.
type Service struct {
	token string
}

// New constructs a Service. token may be empty for public repositories;
// when set it is passed as an x-access-token credential, which works for
// both GitHub App installation tokens and personal access tokens.
func New(token string) *Service {
	return &Service{token: token}
}

// CheckoutInput describes a single checkout request.
type CheckoutInput struct {
	// URL is the clone URL of the repository.
	URL string

	// Ref is the branch to clone, e.g. "develop". Optional; when empty the
	// remote default branch is used.
	Ref string

	// Revision pins the working tree to a specific commit after cloning.
	// Optional; when empty the tip of Ref is used.
	Revision string

	// Dir is the directory to clone into. When empty a temp directory is
	// created and returned.
	Dir string
}

// Checkout clones the repository and positions the working tree at the
// requested revision. It returns the directory containing the working tree
// and the resolved commit hash.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (string, string, error) {
	if input.URL == "" {
		return "", "", fmt.Errorf("checkout requires a repository url")
	}

	dir := input.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "dt-deployer-src-")
		if err != nil {
			return "", "", fmt.Errorf("failed to create checkout dir: %w", err)
		}
		dir = tmp
	}

	opts := &git.CloneOptions{
		URL: input.URL,
	}
	if input.Ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(input.Ref)
		opts.SingleBranch = true
	}
	if s.token != "" {
		opts.Auth = &githttp.BasicAuth{
			Username: "x-access-token",
			Password: s.token,
		}
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to clone %s: %w", input.URL, err)
	}

	if input.Revision != "" {
		hash, err := repo.ResolveRevision(plumbing.Revision(input.Revision))
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve revision %s: %w", input.Revision, err)
		}

		wt, err := repo.Worktree()
		if err != nil {
			return "", "", fmt.Errorf("failed to open worktree: %w", err)
		}

		if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
			return "", "", fmt.Errorf("failed to checkout revision %s: %w", input.Revision, err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("failed to read HEAD: %w", err)
	}

	return dir, head.Hash().String(), nil
}
