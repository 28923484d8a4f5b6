package runner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/icdev-run/devagent/pkg/actor"
	"github.com/icdev-run/devagent/pkg/command"
	"github.com/icdev-run/devagent/pkg/log"
	"github.com/icdev-run/devagent/pkg/shell"
)

const (
	// MaxTurns bounds the number of round-trips with the remote actor.
	MaxTurns = 12

	// maxListedFiles caps the repository listing in the system context.
	maxListedFiles = 60

	// replyPreviewLen bounds how much of an unstructured reply is echoed
	// back in the clarification prompt.
	replyPreviewLen = 400

	resultSeparator = "\n---\n"
)

// Task is one unit of work: a repository to operate on and a free-form
// instruction for the remote actor.
type Task struct {
	ID     string
	Repo   string
	Prompt string
}

// NewTask creates a Task with a fresh id.
func NewTask(repo, prompt string) Task {
	return Task{
		ID:     uuid.NewString(),
		Repo:   repo,
		Prompt: prompt,
	}
}

// Status classifies how a task ended.
type Status string

const (
	// StatusDone means the actor emitted a done command.
	StatusDone Status = "done"
	// StatusMaxTurns means the turn budget ran out before a done command.
	StatusMaxTurns Status = "max turns reached"
	// StatusFailed means workspace preparation or an actor call failed.
	StatusFailed Status = "failed"
)

// Outcome is the terminal result of a task.
type Outcome struct {
	Status  Status
	Summary string
	Turns   int
}

// WorkspacePreparer supplies a usable checkout for a repository URL.
type WorkspacePreparer interface {
	CloneOrPull(ctx context.Context, repoURL string) (string, error)
}

// Runner drives the multi-turn conversation between the remote actor and
// the command executor for one task at a time.
type Runner struct {
	Actor     actor.Client
	Workspace WorkspacePreparer
	Shell     *shell.Runner
	MaxTurns  int
}

// New creates a Runner with the default turn budget.
func New(client actor.Client, ws WorkspacePreparer, sh *shell.Runner) *Runner {
	return &Runner{
		Actor:     client,
		Workspace: ws,
		Shell:     sh,
		MaxTurns:  MaxTurns,
	}
}

// Run executes one task to its terminal outcome. Actor errors abort the
// task without retry; command failures are fed back to the actor as the
// next turn's input.
func (r *Runner) Run(ctx context.Context, task Task) Outcome {
	taskLog := log.With("task", task.ID, "repo", task.Repo)
	taskLog.Info("task started")

	repoDir, err := r.Workspace.CloneOrPull(ctx, task.Repo)
	if err != nil {
		taskLog.Errorw("workspace preparation failed", "error", err)
		return Outcome{Status: StatusFailed, Summary: err.Error()}
	}

	executor := command.NewExecutor(repoDir, r.Shell)
	conversation := systemContext(repoDir) + "\n\nTask: " + task.Prompt

	maxTurns := r.MaxTurns
	if maxTurns <= 0 {
		maxTurns = MaxTurns
	}

	for turn := 1; turn <= maxTurns; turn++ {
		reply, err := r.Actor.Chat(ctx, conversation)
		if err != nil {
			taskLog.Errorw("actor call failed", "turn", turn, "error", err)
			return Outcome{Status: StatusFailed, Summary: err.Error(), Turns: turn}
		}

		cmds := command.Parse(reply)
		if len(cmds) == 0 {
			taskLog.Infow("reply contained no commands", "turn", turn)
			conversation = clarificationPrompt(reply)
			continue
		}

		results := executor.Execute(ctx, cmds)
		taskLog.Infow("executed commands", "turn", turn, "commands", len(cmds))

		if done, ok := findDone(cmds); ok {
			summary := done.Summary
			taskLog.Infow("task done", "turn", turn, "summary", summary)
			return Outcome{Status: StatusDone, Summary: summary, Turns: turn}
		}

		conversation = strings.Join(results, resultSeparator) +
			"\n\nContinue with the task. Reply with more command blocks, or [DONE]summary[/DONE] when finished."
	}

	taskLog.Warnw("turn budget exhausted", "max_turns", maxTurns)
	return Outcome{Status: StatusMaxTurns, Turns: maxTurns}
}

func findDone(cmds []command.Command) (command.Command, bool) {
	for _, c := range cmds {
		if c.Kind == command.KindDone {
			return c, true
		}
	}
	return command.Command{}, false
}

func clarificationPrompt(reply string) string {
	preview := reply
	if len(preview) > replyPreviewLen {
		preview = preview[:replyPreviewLen]
	}
	return "Your last reply contained no command blocks. Respond using only the command syntax " +
		"([FILE:path]...[/FILE], [RUN]...[/RUN], [GIT:action]...[/GIT], [DONE]summary[/DONE]).\n" +
		"Your reply began: " + preview
}

// systemContext builds the fixed preamble for a task: the agent mode
// description, the command-syntax legend, and a capped listing of the
// checkout's files.
func systemContext(repoDir string) string {
	var b strings.Builder
	b.WriteString("You are a development agent operating on a git checkout. ")
	b.WriteString("You cannot ask the user questions; make reasonable choices and proceed.\n\n")
	b.WriteString("Respond only with command blocks:\n")
	b.WriteString("[FILE:relative/path]file content[/FILE] - write a file (overwrites)\n")
	b.WriteString("[RUN]shell command[/RUN] - run a command in the checkout\n")
	b.WriteString("[GIT:branch]branch name[/GIT] - create and switch to a branch\n")
	b.WriteString("[GIT:commit]commit message[/GIT] - stage everything and commit\n")
	b.WriteString("[GIT:push][/GIT] - push the current branch\n")
	b.WriteString("[DONE]summary[/DONE] - finish the task\n\n")
	b.WriteString("Repository files:\n")
	for _, f := range listFiles(repoDir, maxListedFiles) {
		b.WriteString(f)
		b.WriteString("\n")
	}
	return b.String()
}

// listFiles returns up to max relative file paths under root, skipping VCS
// and dependency directories.
func listFiles(root string, max int) []string {
	skipDirs := map[string]bool{
		".git":         true,
		"node_modules": true,
		"vendor":       true,
		"target":       true,
	}

	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if len(files) >= max {
			return fmt.Errorf("listing capped")
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files
}

// Describe is a short log-friendly rendering of a task.
func (t Task) Describe() string {
	prompt := t.Prompt
	if len(prompt) > 80 {
		prompt = prompt[:80] + "..."
	}
	return fmt.Sprintf("%s (%s): %s", t.ID, t.Repo, prompt)
}
