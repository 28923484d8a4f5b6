package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/icdev-run/devagent/pkg/log"
	"github.com/icdev-run/devagent/pkg/shell"
)

// CloneTimeout bounds fresh clones, which are heavier than ordinary
// commands.
const CloneTimeout = 5 * time.Minute

// Manager keeps a root directory of git checkouts, one subdirectory per
// repository named after the last URL path segment.
type Manager struct {
	Root  string
	Shell *shell.Runner
}

// NewManager creates a Manager rooted at root.
func NewManager(root string, sh *shell.Runner) *Manager {
	return &Manager{Root: root, Shell: sh}
}

// EnsureRoot creates the workspace root directory if absent.
func (m *Manager) EnsureRoot() error {
	if err := os.MkdirAll(m.Root, 0755); err != nil {
		return fmt.Errorf("failed to create workspace root %s: %w", m.Root, err)
	}
	return nil
}

// RepoName derives the local directory name from a git URL: the last path
// segment with a trailing .git suffix stripped.
func RepoName(repoURL string) string {
	name := strings.TrimSuffix(repoURL, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

// CloneOrPull guarantees an up-to-date checkout of repoURL under the root
// and returns its local path. An existing checkout is updated in place
// (checkout main, fall back to master, then fast-forward pull; update
// failures are tolerated and only logged). A missing checkout is cloned
// fresh with a longer timeout; clone failures are returned.
func (m *Manager) CloneOrPull(ctx context.Context, repoURL string) (string, error) {
	if err := m.EnsureRoot(); err != nil {
		return "", err
	}

	localPath := filepath.Join(m.Root, RepoName(repoURL))

	if _, err := os.Stat(filepath.Join(localPath, ".git")); err == nil {
		out := m.Shell.Run(ctx, "git checkout main 2>/dev/null || git checkout master", localPath, 0)
		log.Debug("workspace checkout", "repo", repoURL, "output", out)
		out = m.Shell.Run(ctx, "git pull --ff-only", localPath, 0)
		log.Info("workspace updated", "repo", repoURL, "path", localPath, "output", out)
		return localPath, nil
	}

	cloneCtx, cancel := context.WithTimeout(ctx, CloneTimeout)
	defer cancel()
	if _, err := git.PlainCloneContext(cloneCtx, localPath, false, &git.CloneOptions{
		URL: repoURL,
	}); err != nil {
		return "", fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}
	log.Info("workspace cloned", "repo", repoURL, "path", localPath)
	return localPath, nil
}
