package gitops

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/icdev-run/devagent/pkg/shell"
)

// Client performs the narrow set of git operations the command executor
// supports against one checkout.
type Client struct {
	// Dir is the path of the git checkout.
	Dir string

	// Shell runs git commands whose semantics we delegate to the git
	// tooling itself (push with upstream creation).
	Shell *shell.Runner
}

// NewClient creates a git client for the checkout at dir.
func NewClient(dir string, sh *shell.Runner) *Client {
	return &Client{Dir: dir, Shell: sh}
}

// CreateBranch creates and checks out a new branch, or checks out an
// existing branch of that name.
func (c *Client) CreateBranch(name string) error {
	repo, err := git.PlainOpen(c.Dir)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(name)
	err = worktree.Checkout(&git.CheckoutOptions{Branch: ref})
	if err == nil {
		return nil
	}

	if err := worktree.Checkout(&git.CheckoutOptions{Branch: ref, Create: true}); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	return nil
}

// CommitAll stages every change in the worktree and commits it with the
// given message. Returns the commit hash.
func (c *Client) CommitAll(message string) (string, error) {
	repo, err := git.PlainOpen(c.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	if _, err := worktree.Add("."); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return "", fmt.Errorf("no changes to commit")
	}

	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "devagent",
			Email: "devagent@icdev.run",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return commit.String(), nil
}

// Push pushes the current branch to origin, creating the upstream tracking
// reference if it does not exist yet. Upstream naming is delegated to the
// git tooling; the captured output is returned rather than an error.
func (c *Client) Push(ctx context.Context) string {
	return c.Shell.Run(ctx, "git push -u origin HEAD", c.Dir, 0)
}
