package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/icdev-run/devagent/pkg/gitops"
	"github.com/icdev-run/devagent/pkg/log"
	"github.com/icdev-run/devagent/pkg/shell"
)

// blockedPatterns is a best-effort textual filter against obviously
// catastrophic or privilege-escalating commands. It is a heuristic guard,
// not a sandbox or a security boundary.
var blockedPatterns = []string{
	"rm -rf /",
	"rm -fr /",
	"sudo",
	"curl | sh",
	"curl | bash",
	"wget | sh",
	"wget | bash",
	"mkfs",
}

// Executor applies parsed commands against one repo checkout.
type Executor struct {
	RepoDir string
	Shell   *shell.Runner
	Git     *gitops.Client
}

// NewExecutor creates an Executor for the checkout at repoDir.
func NewExecutor(repoDir string, sh *shell.Runner) *Executor {
	return &Executor{
		RepoDir: repoDir,
		Shell:   sh,
		Git:     gitops.NewClient(repoDir, sh),
	}
}

// Execute applies cmds in order and returns one human-readable result
// string per command, in the same order. Individual failures are folded
// into the result strings; execution always continues to the next command.
// Git commands with an unsupported action produce no result entry.
func (e *Executor) Execute(ctx context.Context, cmds []Command) []string {
	var results []string
	for _, cmd := range cmds {
		switch cmd.Kind {
		case KindFile:
			results = append(results, e.writeFile(cmd))
		case KindRun:
			results = append(results, e.runShell(ctx, cmd))
		case KindGit:
			if result, ok := e.runGit(ctx, cmd); ok {
				results = append(results, result)
			}
		case KindDone:
			results = append(results, fmt.Sprintf("done: %s", cmd.Summary))
		}
	}
	return results
}

func (e *Executor) writeFile(cmd Command) string {
	path := filepath.Join(e.RepoDir, cmd.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Sprintf("error writing %s: %v", cmd.Path, err)
	}
	if err := os.WriteFile(path, []byte(cmd.Content), 0644); err != nil {
		return fmt.Sprintf("error writing %s: %v", cmd.Path, err)
	}
	log.Debug("wrote file", "path", cmd.Path, "bytes", len(cmd.Content))
	return fmt.Sprintf("wrote %s (%d bytes)", cmd.Path, len(cmd.Content))
}

func (e *Executor) runShell(ctx context.Context, cmd Command) string {
	lowered := strings.ToLower(cmd.Cmd)
	for _, pattern := range blockedPatterns {
		if strings.Contains(lowered, pattern) {
			log.Warn("blocked command", "cmd", cmd.Cmd, "pattern", pattern)
			return fmt.Sprintf("blocked: refusing to run %q", cmd.Cmd)
		}
	}
	log.Info("running command", "cmd", cmd.Cmd)
	return e.Shell.Run(ctx, cmd.Cmd, e.RepoDir, 0)
}

func (e *Executor) runGit(ctx context.Context, cmd Command) (string, bool) {
	switch cmd.Action {
	case GitBranch:
		if err := e.Git.CreateBranch(cmd.Message); err != nil {
			return fmt.Sprintf("git branch failed: %v", err), true
		}
		return fmt.Sprintf("created branch %s", cmd.Message), true
	case GitCommit:
		hash, err := e.Git.CommitAll(cmd.Message)
		if err != nil {
			return fmt.Sprintf("git commit failed: %v", err), true
		}
		return fmt.Sprintf("committed %s: %s", shortHash(hash), cmd.Message), true
	case GitPush:
		return fmt.Sprintf("push: %s", e.Git.Push(ctx)), true
	default:
		log.Warn("ignoring unknown git action", "action", cmd.Action)
		return "", false
	}
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
