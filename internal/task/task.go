// Package task defines the contract business logic implements: a pure-ish
// function from execution context to execution context, with an optional
// retry schedule.
package task

import (
	"context"
	"time"

	"github.com/rezkam/taskengine/internal/domain"
)

// Task is a named unit of business logic. Implementations must tolerate
// being invoked more than once on the same job: a crash between the task's
// side effects and the worker's transaction commit redelivers the same
// input (at-least-once semantics).
type Task interface {
	// Name identifies this task in the registry. Must be stable and unique.
	Name() string

	// Execute runs the task body and returns the next execution context.
	// Any error returned aborts the worker's transaction (TaskRaised); it
	// does not consume a retry slot from RetrySchedule.
	Execute(ctx context.Context, in domain.ExecutionContext) (domain.ExecutionContext, error)

	// RetrySchedule returns the ordered list of backoff delays for this
	// task, or nil/empty if the task is not retryable. The length of the
	// schedule is the total number of retries ever granted for one
	// invocation of this task on a given job.
	RetrySchedule() []time.Duration
}

// Func adapts a plain function into a Task. Schedule is its retry schedule;
// leave it nil for a task that is not retryable. Useful for tests and small
// one-off tasks.
type Func struct {
	TaskName string
	Run      func(ctx context.Context, in domain.ExecutionContext) (domain.ExecutionContext, error)
	Schedule []time.Duration
}

func (f Func) Name() string { return f.TaskName }

func (f Func) Execute(ctx context.Context, in domain.ExecutionContext) (domain.ExecutionContext, error) {
	return f.Run(ctx, in)
}

func (f Func) RetrySchedule() []time.Duration { return f.Schedule }
