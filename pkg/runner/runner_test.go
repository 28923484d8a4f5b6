package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/icdev-run/devagent/pkg/actor"
	"github.com/icdev-run/devagent/pkg/shell"
)

// fakeWorkspace hands out a fixed directory instead of cloning.
type fakeWorkspace struct {
	dir string
	err error
}

func (f *fakeWorkspace) CloneOrPull(_ context.Context, _ string) (string, error) {
	return f.dir, f.err
}

func newTestRunner(t *testing.T, mock *actor.MockClient) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	r := New(mock, &fakeWorkspace{dir: dir}, shell.NewRunner())
	return r, dir
}

func TestRunTerminatesOnDone(t *testing.T) {
	mock := &actor.MockClient{
		Responses: []func(string) (string, error){
			actor.StaticReply("[FILE:README.md]# hi[/FILE][DONE]wrote the readme[/DONE]"),
		},
	}
	r, dir := newTestRunner(t, mock)

	outcome := r.Run(context.Background(), NewTask("https://example.com/x/y.git", "add README"))
	if outcome.Status != StatusDone {
		t.Fatalf("Status = %q, want %q", outcome.Status, StatusDone)
	}
	if outcome.Summary != "wrote the readme" {
		t.Errorf("Summary = %q", outcome.Summary)
	}
	if outcome.Turns != 1 {
		t.Errorf("Turns = %d, want 1", outcome.Turns)
	}
	if _, err := os.Stat(filepath.Join(dir, "README.md")); err != nil {
		t.Errorf("file command in the done batch was not executed: %v", err)
	}
}

func TestRunDoneExecutesSiblingCommandsFirst(t *testing.T) {
	mock := &actor.MockClient{
		Responses: []func(string) (string, error){
			actor.StaticReply("[RUN]touch proof.txt[/RUN][DONE]ok[/DONE]"),
		},
	}
	r, dir := newTestRunner(t, mock)

	outcome := r.Run(context.Background(), NewTask("repo", "prompt"))
	if outcome.Status != StatusDone {
		t.Fatalf("Status = %q, want done", outcome.Status)
	}
	if _, err := os.Stat(filepath.Join(dir, "proof.txt")); err != nil {
		t.Errorf("sibling run command did not execute: %v", err)
	}
	if mock.CallCount != 1 {
		t.Errorf("actor called %d times, want 1 (no extra turn after done)", mock.CallCount)
	}
}

func TestRunExhaustsTurnBudget(t *testing.T) {
	var responses []func(string) (string, error)
	for i := 0; i < MaxTurns+3; i++ {
		responses = append(responses, actor.StaticReply("I think we should refactor the module."))
	}
	mock := &actor.MockClient{Responses: responses}
	r, _ := newTestRunner(t, mock)

	outcome := r.Run(context.Background(), NewTask("repo", "prompt"))
	if outcome.Status != StatusMaxTurns {
		t.Fatalf("Status = %q, want %q", outcome.Status, StatusMaxTurns)
	}
	if outcome.Turns != MaxTurns {
		t.Errorf("Turns = %d, want %d", outcome.Turns, MaxTurns)
	}
	if mock.CallCount != MaxTurns {
		t.Errorf("actor called %d times, want exactly %d", mock.CallCount, MaxTurns)
	}
}

func TestRunSendsClarificationAfterProse(t *testing.T) {
	var secondInput string
	mock := &actor.MockClient{
		Responses: []func(string) (string, error){
			actor.StaticReply("Let me think about this for a while."),
			func(text string) (string, error) {
				secondInput = text
				return "[DONE]done now[/DONE]", nil
			},
		},
	}
	r, _ := newTestRunner(t, mock)

	outcome := r.Run(context.Background(), NewTask("repo", "prompt"))
	if outcome.Status != StatusDone {
		t.Fatalf("Status = %q, want done", outcome.Status)
	}
	if !strings.Contains(secondInput, "no command blocks") {
		t.Errorf("second turn input is not a clarification prompt: %q", secondInput)
	}
	if !strings.Contains(secondInput, "Let me think") {
		t.Errorf("clarification does not echo the reply prefix: %q", secondInput)
	}
}

func TestRunFeedsResultsBack(t *testing.T) {
	var secondInput string
	mock := &actor.MockClient{
		Responses: []func(string) (string, error){
			actor.StaticReply("[RUN]echo ping[/RUN]"),
			func(text string) (string, error) {
				secondInput = text
				return "[DONE]ok[/DONE]", nil
			},
		},
	}
	r, _ := newTestRunner(t, mock)

	outcome := r.Run(context.Background(), NewTask("repo", "prompt"))
	if outcome.Status != StatusDone {
		t.Fatalf("Status = %q, want done", outcome.Status)
	}
	if !strings.Contains(secondInput, "ping") {
		t.Errorf("execution results not fed back to the actor: %q", secondInput)
	}
	if !strings.Contains(secondInput, "Continue with the task") {
		t.Errorf("continuation instruction missing: %q", secondInput)
	}
}

func TestRunAbortsOnActorError(t *testing.T) {
	mock := &actor.MockClient{
		Responses: []func(string) (string, error){
			func(string) (string, error) {
				return "", fmt.Errorf("actor error: out of cycles")
			},
		},
	}
	r, _ := newTestRunner(t, mock)

	outcome := r.Run(context.Background(), NewTask("repo", "prompt"))
	if outcome.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", outcome.Status)
	}
	if mock.CallCount != 1 {
		t.Errorf("actor called %d times, want 1 (no retry)", mock.CallCount)
	}
}

func TestRunAbortsOnWorkspaceFailure(t *testing.T) {
	mock := &actor.MockClient{}
	r := New(mock, &fakeWorkspace{err: fmt.Errorf("clone failed")}, shell.NewRunner())

	outcome := r.Run(context.Background(), NewTask("repo", "prompt"))
	if outcome.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", outcome.Status)
	}
	if mock.CallCount != 0 {
		t.Errorf("actor called %d times, want 0", mock.CallCount)
	}
}

func TestSystemContextListsFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "main.go"), "package main\n")
	mustWrite(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustWrite(t, filepath.Join(dir, "node_modules", "pkg", "index.js"), "x\n")

	ctxStr := systemContext(dir)
	if !strings.Contains(ctxStr, "main.go") {
		t.Errorf("system context missing repository file listing: %q", ctxStr)
	}
	if strings.Contains(ctxStr, "HEAD") || strings.Contains(ctxStr, "index.js") {
		t.Errorf("system context lists VCS or dependency files: %q", ctxStr)
	}
	if !strings.Contains(ctxStr, "[FILE:") || !strings.Contains(ctxStr, "[DONE]") {
		t.Errorf("system context missing command legend: %q", ctxStr)
	}
}

func TestListFilesCaps(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 80; i++ {
		mustWrite(t, filepath.Join(dir, fmt.Sprintf("f%03d.txt", i)), "x")
	}
	files := listFiles(dir, maxListedFiles)
	if len(files) != maxListedFiles {
		t.Errorf("listFiles() returned %d entries, want %d", len(files), maxListedFiles)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
