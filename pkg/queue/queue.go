package queue

import (
	"context"
	"sync"

	"github.com/icdev-run/devagent/pkg/log"
	"github.com/icdev-run/devagent/pkg/runner"
)

// TaskRunner executes one task to its terminal outcome.
type TaskRunner interface {
	Run(ctx context.Context, task runner.Task) runner.Outcome
}

// Queue is an in-memory FIFO of pending tasks with a single drain worker.
// At most one task executes at a time; the working flag guards re-entry.
// Nothing is persisted: a restart loses queued and in-flight tasks.
type Queue struct {
	runner TaskRunner

	mu      sync.Mutex
	tasks   []runner.Task
	working bool
	wg      sync.WaitGroup
}

// New creates an empty queue draining into the given runner.
func New(r TaskRunner) *Queue {
	return &Queue{runner: r}
}

// Enqueue appends a task and returns the queue depth after insertion.
// The drain loop is started if it is not already active.
func (q *Queue) Enqueue(ctx context.Context, task runner.Task) int {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	depth := len(q.tasks)
	start := !q.working
	if start {
		q.working = true
	}
	q.wg.Add(1)
	q.mu.Unlock()

	log.Info("task queued", "task", task.Describe(), "depth", depth)
	if start {
		go q.drain(ctx)
	}
	return depth
}

// drain pops tasks in FIFO order until the queue is empty, then clears the
// working flag. A failing or panicking task is logged and the loop moves on.
func (q *Queue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.working = false
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.runTask(ctx, task)
	}
}

func (q *Queue) runTask(ctx context.Context, task runner.Task) {
	defer q.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "task", task.ID, "panic", r)
		}
	}()

	outcome := q.runner.Run(ctx, task)
	log.Info("task finished",
		"task", task.ID,
		"status", string(outcome.Status),
		"turns", outcome.Turns,
		"summary", outcome.Summary,
	)
}

// Depth returns the number of tasks waiting (not counting one mid-run).
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Working reports whether the drain loop is active.
func (q *Queue) Working() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.working
}

// Wait blocks until every task enqueued so far has finished. Used by
// graceful shutdown and tests.
func (q *Queue) Wait() {
	q.wg.Wait()
}
