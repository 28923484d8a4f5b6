package command

// Kind discriminates the command variants parsed from actor replies.
type Kind string

const (
	KindFile Kind = "file"
	KindRun  Kind = "run"
	KindGit  Kind = "git"
	KindDone Kind = "done"
)

// Git actions the executor supports. Anything else parses but is silently
// ignored at execution time.
const (
	GitBranch = "branch"
	GitCommit = "commit"
	GitPush   = "push"
)

// Command is one typed instruction extracted from an actor reply.
type Command struct {
	Kind Kind

	// file
	Path    string
	Content string

	// run
	Cmd string

	// git
	Action  string
	Message string

	// done
	Summary string
}
