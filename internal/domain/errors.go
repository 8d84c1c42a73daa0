package domain

import "errors"

// Sentinel errors shared across the store, registry, worker and coordinator.
var (
	// ErrNotFound reports that a store operation targeted a job_id that no
	// longer exists.
	ErrNotFound = errors.New("job not found")

	// ErrTransientConflict reports contention in the store (e.g. a lock wait
	// timeout or a concurrent lease); the caller should just skip this
	// iteration rather than treat it as fatal.
	ErrTransientConflict = errors.New("transient store conflict")

	// ErrStoreFatal is a non-retryable store error. The worker logs it and
	// gives up on the job for this invocation; the lease is left in place.
	ErrStoreFatal = errors.New("fatal store error")

	// ErrTaskNotRegistered reports that the registry has no task under the
	// job's assigned task name.
	ErrTaskNotRegistered = errors.New("task not registered")

	// ErrStartTimeNotReached reports that a candidate was leased whose start
	// time is still in the future (clock skew or batching delay).
	ErrStartTimeNotReached = errors.New("assigned task start time not reached")

	// ErrInvalidJob reports that a Job failed one of its structural invariants.
	ErrInvalidJob = errors.New("invalid job")

	// ErrInvalidPriority reports that a Job's priority fell outside [1,10].
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidContext reports that an ExecutionContext failed its
	// construction rule.
	ErrInvalidContext = errors.New("invalid execution context")

	// ErrTaskRaised reports that the task body returned an error or panicked.
	// Distinct from should_retry=true: a raised error never consumes a retry
	// slot.
	ErrTaskRaised = errors.New("task raised an error")
)
