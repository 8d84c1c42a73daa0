package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rezkam/taskengine/internal/domain"
	"github.com/rezkam/taskengine/internal/registry"
)

// Submitter is the single inbound operation external collaborators use to
// get work into the store: construct a Job from an ExecutionContext and the
// Registry's retry depth for the named task, and insert it. The HTTP/CLI
// layer that accepts user requests and turns them into ExecutionContexts is
// out of scope; Submitter is the boundary it calls into.
type Submitter struct {
	store    Store
	registry *registry.Registry
	clock    Clock
}

// NewSubmitter constructs a Submitter. clock defaults to SystemClock.
func NewSubmitter(store Store, reg *registry.Registry, clock Clock) *Submitter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Submitter{store: store, registry: reg, clock: clock}
}

// Submit builds a Job from in and inserts it. The job's retry counter comes
// from the Registry's retry depth for in's assigned task name: a brand new
// job always starts with a full retry allowance for its first task, it never
// inherits should_retry or a caller-chosen counter. Priority falls back to
// domain.DefaultPriority when in carries none, and a zero start time means
// "run as soon as possible" and is stamped with the current clock reading.
func (s *Submitter) Submit(ctx context.Context, in domain.ExecutionContext) (*domain.Job, error) {
	priority := domain.DefaultPriority
	if p := in.Priority(); p != nil {
		priority = *p
	}

	startTime := in.AssignedTaskStartTime()
	if startTime.IsZero() {
		startTime = s.clock.Now()
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate job id: %w", err)
	}

	retryAttempts := s.registry.RetryAttemptsFor(in.AssignedTaskName())
	job := domain.NewJob(id.String(), in.AssignedTaskName(), startTime, in.JobData(), retryAttempts, priority)

	if err := s.store.Insert(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
