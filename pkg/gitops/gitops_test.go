package gitops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/icdev-run/devagent/pkg/shell"
)

// newRepo initializes a git repository with a single commit so branch and
// commit operations have a parent to work from.
func newRepo(t *testing.T) (*Client, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "base.txt"), []byte("base\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("base.txt"); err != nil {
		t.Fatal(err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(dir, shell.NewRunner()), dir
}

func TestCreateBranch(t *testing.T) {
	c, dir := newRepo(t)

	if err := c.CreateBranch("feature/new-thing"); err != nil {
		t.Fatalf("CreateBranch() error = %v", err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatal(err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	if got := head.Name().Short(); got != "feature/new-thing" {
		t.Errorf("HEAD = %q, want feature/new-thing", got)
	}

	// Creating the same branch again checks it out instead of failing.
	if err := c.CreateBranch("feature/new-thing"); err != nil {
		t.Errorf("CreateBranch() second call error = %v", err)
	}
}

func TestCommitAll(t *testing.T) {
	c, dir := newRepo(t)

	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("content\n"), 0644); err != nil {
		t.Fatal(err)
	}
	hash, err := c.CommitAll("add new file")
	if err != nil {
		t.Fatalf("CommitAll() error = %v", err)
	}
	if len(hash) != 40 {
		t.Errorf("CommitAll() hash = %q, want 40-char sha", hash)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatal(err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if commit.Message != "add new file" {
		t.Errorf("commit message = %q, want %q", commit.Message, "add new file")
	}
}

func TestCommitAllCleanTree(t *testing.T) {
	c, _ := newRepo(t)
	if _, err := c.CommitAll("nothing to do"); err == nil {
		t.Fatal("CommitAll() expected error for clean tree")
	}
}
