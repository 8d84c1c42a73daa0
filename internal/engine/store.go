// Package engine implements the core execution loop: Worker runs one leased
// job to its next persisted state, Coordinator turns calendar ticks into
// worker invocations.
package engine

import (
	"context"
	"time"

	"github.com/rezkam/taskengine/internal/domain"
)

// Store is the capability set the engine needs from persistence. It is a
// contract, not a schema: any implementation backing a table with the
// columns in the job record can satisfy it.
//
// Every operation participates in the caller's ambient transaction when
// Atomic is used to establish one; otherwise each call is its own
// transaction. Implementations surface contention as domain.ErrTransientConflict,
// which callers treat as "skip this iteration", and missing rows as
// domain.ErrNotFound.
type Store interface {
	// LeaseCandidates returns up to limit rows where worker_id is absent and
	// assigned_task_start_time <= now, ordered by (priority asc,
	// assigned_task_start_time asc), taken under a pessimistic write lock
	// that prevents a concurrent caller from leasing the same rows.
	LeaseCandidates(ctx context.Context, now time.Time, limit int) ([]*domain.Job, error)

	// Assign sets the lease fields on job_id. Returns domain.ErrNotFound if
	// the row is absent.
	Assign(ctx context.Context, jobID, workerID string, now time.Time) (*domain.Job, error)

	// DecrementRetries decrements retry_attempts_remaining by one if it is
	// greater than zero; otherwise it is a no-op. Returns domain.ErrNotFound
	// if the row is absent. Used as compensation when leasing or dispatch
	// fails before the Worker takes over.
	DecrementRetries(ctx context.Context, jobID string) error

	// UpdateJobData replaces job_data on job_id.
	UpdateJobData(ctx context.Context, jobID string, jobData []byte) error

	// Advance rewrites assigned_task_name, assigned_task_start_time and
	// retry_attempts_remaining in one statement.
	Advance(ctx context.Context, jobID, nextTaskName string, nextStartTime time.Time, retryAttemptsRemaining int) error

	// ScheduleRetry rewrites assigned_task_start_time and
	// retry_attempts_remaining without touching assigned_task_name.
	ScheduleRetry(ctx context.Context, jobID string, nextStartTime time.Time, retryAttemptsRemaining int) error

	// Release clears both lease fields.
	Release(ctx context.Context, jobID string) error

	// Delete removes the row. This is the only representation of job
	// completion; there is no "completed" status value.
	Delete(ctx context.Context, jobID string) error

	// Insert persists a new row.
	Insert(ctx context.Context, job *domain.Job) error

	// Atomic runs fn with a Store bound to a single ambient transaction.
	// All operations fn performs through the supplied Store commit or roll
	// back together.
	Atomic(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
