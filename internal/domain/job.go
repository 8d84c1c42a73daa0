// Package domain holds the persisted and transient types shared by the
// scheduler's store, registry, worker and coordinator.
package domain

import (
	"fmt"
	"time"
)

// DefaultPriority is used when a caller does not specify one at submission time.
const DefaultPriority = 10

// MinPriority and MaxPriority bound the valid priority range; 1 is highest.
const (
	MinPriority = 1
	MaxPriority = 10
)

// Job is the sole persisted entity: one row of durable work.
//
// WorkerID and WorkerLockTime are always both set or both absent (the lease
// invariant); callers must not construct a Job that violates it outside of
// the Store's own lease bookkeeping.
type Job struct {
	ID                     string
	AssignedTaskName       string
	AssignedTaskStartTime  time.Time
	JobData                []byte
	RetryAttemptsRemaining int
	Priority               int
	WorkerID               *string
	WorkerLockTime         *time.Time
}

// Leased reports whether the job currently has an active lease.
func (j *Job) Leased() bool {
	return j.WorkerID != nil
}

// Validate checks the invariants that must hold for any Job about to be
// inserted or observed, including the lease-pairing invariant: WorkerID and
// WorkerLockTime must be both set or both nil.
func (j *Job) Validate() error {
	if j.AssignedTaskName == "" {
		return fmt.Errorf("%w: assigned task name is required", ErrInvalidJob)
	}
	if j.AssignedTaskStartTime.IsZero() {
		return fmt.Errorf("%w: assigned task start time is required", ErrInvalidJob)
	}
	if j.Priority < MinPriority || j.Priority > MaxPriority {
		return fmt.Errorf("%w: priority %d outside [%d,%d]", ErrInvalidPriority, j.Priority, MinPriority, MaxPriority)
	}
	if j.RetryAttemptsRemaining < 0 {
		return fmt.Errorf("%w: retry attempts remaining is negative", ErrInvalidJob)
	}
	if (j.WorkerID == nil) != (j.WorkerLockTime == nil) {
		return fmt.Errorf("%w: worker_id and worker_lock_time must be set together", ErrInvalidJob)
	}
	return nil
}

// NewJob builds a Job ready for insertion: unleased, priority defaulted.
func NewJob(id, taskName string, startTime time.Time, jobData []byte, retryAttemptsRemaining, priority int) *Job {
	if priority == 0 {
		priority = DefaultPriority
	}
	return &Job{
		ID:                     id,
		AssignedTaskName:       taskName,
		AssignedTaskStartTime:  startTime,
		JobData:                jobData,
		RetryAttemptsRemaining: retryAttemptsRemaining,
		Priority:               priority,
	}
}
