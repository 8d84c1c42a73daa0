package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/rezkam/taskengine/internal/domain"
	"github.com/rezkam/taskengine/internal/registry"
)

// Worker runs exactly one leased job to its next persisted state. It is
// stateless: all durable state lives in the Store, so a Worker value can be
// reused across jobs and shared across goroutines.
type Worker struct {
	store    Store
	registry *registry.Registry
	clock    Clock
}

// NewWorker constructs a Worker. clock defaults to SystemClock when nil.
func NewWorker(store Store, reg *registry.Registry, clock Clock) *Worker {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Worker{store: store, registry: reg, clock: clock}
}

// Run executes job per the protocol in the component design: look up the
// task, guard against a premature lease, invoke the task inside one
// transaction, and dispatch on its returned status. It never returns an
// error to the caller: per-job failures are logged and compensated
// locally so a Coordinator tick can never be aborted by one bad job.
func (w *Worker) Run(ctx context.Context, job *domain.Job) {
	t, ok := w.registry.Lookup(job.AssignedTaskName)
	if !ok {
		slog.WarnContext(ctx, "task not registered, releasing lease",
			"job_id", job.ID, "task_name", job.AssignedTaskName)
		w.bestEffortRelease(ctx, job.ID)
		return
	}

	now := w.clock.Now()
	if job.AssignedTaskStartTime.After(now) {
		slog.DebugContext(ctx, "premature lease, releasing",
			"job_id", job.ID, "start_time", job.AssignedTaskStartTime)
		w.bestEffortRelease(ctx, job.ID)
		return
	}

	if err := w.runInTransaction(ctx, job, t, now); err != nil {
		if errors.Is(err, domain.ErrStoreFatal) {
			slog.ErrorContext(ctx, "fatal store error, lease left in place",
				"job_id", job.ID, "error", err)
			return
		}
		slog.ErrorContext(ctx, "job attempt failed, rolling back and releasing lease",
			"job_id", job.ID, "error", err)
		w.bestEffortRelease(ctx, job.ID)
	}
}

// runInTransaction implements protocol step 4: invoke the task and dispatch
// on its returned context, all inside one ambient transaction.
func (w *Worker) runInTransaction(ctx context.Context, job *domain.Job, t taskExecutor, now time.Time) (err error) {
	return w.store.Atomic(ctx, func(ctx context.Context, s Store) (txErr error) {
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "task panicked",
					"job_id", job.ID, "panic", r, "stack", string(debug.Stack()))
				txErr = fmt.Errorf("%w: task panic: %v", domain.ErrTaskRaised, r)
			}
		}()

		in := domain.NewStartedContext(job)
		out, execErr := t.Execute(ctx, in)
		if execErr != nil {
			return fmt.Errorf("%w: %w", domain.ErrTaskRaised, execErr)
		}

		return w.applyOutcome(ctx, s, job, t, out, now)
	})
}

// applyOutcome dispatches on the task's returned context: completion deletes
// the row, a retry request reschedules the same task with the next backoff
// delay, anything else advances the task selector.
func (w *Worker) applyOutcome(ctx context.Context, s Store, job *domain.Job, t taskExecutor, out domain.ExecutionContext, now time.Time) error {
	switch out.Status() {
	case domain.StatusCompleted:
		return s.Delete(ctx, job.ID)

	case domain.StatusInProgress:
		if canRetry(out, job, t) {
			delays := t.RetrySchedule()
			delay := delays[len(delays)-job.RetryAttemptsRemaining]
			nextStart := now.Add(delay)
			newRemaining := job.RetryAttemptsRemaining - 1
			if err := s.ScheduleRetry(ctx, job.ID, nextStart, newRemaining); err != nil {
				return err
			}
			return s.Release(ctx, job.ID)
		}

		newRemaining := job.RetryAttemptsRemaining
		if out.AssignedTaskName() != job.AssignedTaskName {
			newRemaining = w.registry.RetryAttemptsFor(out.AssignedTaskName())
		}
		if err := s.UpdateJobData(ctx, job.ID, out.JobData()); err != nil {
			return err
		}
		if err := s.Advance(ctx, job.ID, out.AssignedTaskName(), out.AssignedTaskStartTime(), newRemaining); err != nil {
			return err
		}
		return s.Release(ctx, job.ID)

	default:
		return fmt.Errorf("%w: task returned invalid status %q", domain.ErrInvalidContext, out.Status())
	}
}

// canRetry implements the can-retry predicate: the returned context asks
// for a retry, the job still has attempts left, and the task declares a
// non-empty retry schedule.
func canRetry(out domain.ExecutionContext, job *domain.Job, t taskExecutor) bool {
	return out.ShouldRetry() && job.RetryAttemptsRemaining > 0 && len(t.RetrySchedule()) > 0
}

// bestEffortRelease releases a lease outside of any failed transaction.
// Failures here are logged only: the core must not cascade a release
// failure into a process-level error.
func (w *Worker) bestEffortRelease(ctx context.Context, jobID string) {
	if err := w.store.Release(ctx, jobID); err != nil {
		slog.ErrorContext(ctx, "release after failure also failed", "job_id", jobID, "error", err)
	}
}

// taskExecutor is the subset of task.Task the worker depends on: the two
// capabilities the protocol dispatches over, execute and retry schedule.
type taskExecutor interface {
	Execute(ctx context.Context, in domain.ExecutionContext) (domain.ExecutionContext, error)
	RetrySchedule() []time.Duration
}
