package domain

import (
	"fmt"
	"time"
)

// ExecutionStatus is the lifecycle stage carried by an ExecutionContext.
type ExecutionStatus string

const (
	// StatusStarted is handed to a task as input; a task must never return it.
	StatusStarted ExecutionStatus = "STARTED"
	// StatusInProgress means the job has more work to do, either a retry of
	// the current task or an advance to the next step.
	StatusInProgress ExecutionStatus = "INPROGRESS"
	// StatusCompleted means the job is finished and its row should be deleted.
	StatusCompleted ExecutionStatus = "COMPLETED"
)

// ExecutionContext is the immutable value passed to and returned from a task.
// Build one with NewStartedContext or NewResultContext, and derive a changed
// copy with WithJobData; there is no way to mutate a context in place.
type ExecutionContext struct {
	status                ExecutionStatus
	jobData               []byte
	assignedTaskName      string
	assignedTaskStartTime time.Time
	shouldRetry           bool
	priority              *int
}

// NewStartedContext builds the STARTED context handed to a task, copied from
// the job fields it was leased with.
func NewStartedContext(job *Job) ExecutionContext {
	priority := job.Priority
	return ExecutionContext{
		status:                StatusStarted,
		jobData:               job.JobData,
		assignedTaskName:      job.AssignedTaskName,
		assignedTaskStartTime: job.AssignedTaskStartTime,
		priority:              &priority,
	}
}

// NewResultContext builds a context as returned by a task implementation and
// validates the construction rule: should_retry=true requires non-absent job
// data, task name and start time.
func NewResultContext(status ExecutionStatus, jobData []byte, assignedTaskName string, assignedTaskStartTime time.Time, shouldRetry bool, priority *int) (ExecutionContext, error) {
	if status == StatusStarted {
		return ExecutionContext{}, fmt.Errorf("%w: a task must not return STARTED", ErrInvalidContext)
	}
	ec := ExecutionContext{
		status:                status,
		jobData:               jobData,
		assignedTaskName:      assignedTaskName,
		assignedTaskStartTime: assignedTaskStartTime,
		shouldRetry:           shouldRetry,
		priority:              priority,
	}
	if err := ec.validate(); err != nil {
		return ExecutionContext{}, err
	}
	return ec, nil
}

func (c ExecutionContext) validate() error {
	if c.shouldRetry {
		if len(c.jobData) == 0 {
			return fmt.Errorf("%w: should_retry requires non-absent job data", ErrInvalidContext)
		}
		if c.assignedTaskName == "" {
			return fmt.Errorf("%w: should_retry requires non-absent task name", ErrInvalidContext)
		}
		if c.assignedTaskStartTime.IsZero() {
			return fmt.Errorf("%w: should_retry requires non-absent start time", ErrInvalidContext)
		}
	}
	return nil
}

// Status returns the execution status.
func (c ExecutionContext) Status() ExecutionStatus { return c.status }

// JobData returns the opaque payload carried between steps.
func (c ExecutionContext) JobData() []byte { return c.jobData }

// AssignedTaskName returns the name of the task to run next.
func (c ExecutionContext) AssignedTaskName() string { return c.assignedTaskName }

// AssignedTaskStartTime returns the earliest time the next step may run.
func (c ExecutionContext) AssignedTaskStartTime() time.Time { return c.assignedTaskStartTime }

// ShouldRetry reports whether the task is asking for a backoff retry of itself.
func (c ExecutionContext) ShouldRetry() bool { return c.shouldRetry }

// Priority returns the context's priority override, if any.
func (c ExecutionContext) Priority() *int { return c.priority }

// WithJobData returns a copy of c with job data replaced.
func (c ExecutionContext) WithJobData(jobData []byte) ExecutionContext {
	c.jobData = jobData
	return c
}
