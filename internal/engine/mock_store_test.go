package engine

import (
	"context"
	"time"

	"github.com/rezkam/taskengine/internal/domain"
)

// mockStore implements Store for testing, in the function-field style: each
// method delegates to an optional func field and falls back to a harmless
// default when unset.
type mockStore struct {
	leaseCandidatesFunc func(ctx context.Context, now time.Time, limit int) ([]*domain.Job, error)
	assignFunc          func(ctx context.Context, jobID, workerID string, now time.Time) (*domain.Job, error)
	decrementFunc       func(ctx context.Context, jobID string) error
	updateJobDataFunc   func(ctx context.Context, jobID string, jobData []byte) error
	advanceFunc         func(ctx context.Context, jobID, nextTaskName string, nextStartTime time.Time, retryAttemptsRemaining int) error
	scheduleRetryFunc   func(ctx context.Context, jobID string, nextStartTime time.Time, retryAttemptsRemaining int) error
	releaseFunc         func(ctx context.Context, jobID string) error
	deleteFunc          func(ctx context.Context, jobID string) error
	insertFunc          func(ctx context.Context, job *domain.Job) error
}

func (m *mockStore) LeaseCandidates(ctx context.Context, now time.Time, limit int) ([]*domain.Job, error) {
	if m.leaseCandidatesFunc != nil {
		return m.leaseCandidatesFunc(ctx, now, limit)
	}
	return nil, nil
}

func (m *mockStore) Assign(ctx context.Context, jobID, workerID string, now time.Time) (*domain.Job, error) {
	if m.assignFunc != nil {
		return m.assignFunc(ctx, jobID, workerID, now)
	}
	return nil, nil
}

func (m *mockStore) DecrementRetries(ctx context.Context, jobID string) error {
	if m.decrementFunc != nil {
		return m.decrementFunc(ctx, jobID)
	}
	return nil
}

func (m *mockStore) UpdateJobData(ctx context.Context, jobID string, jobData []byte) error {
	if m.updateJobDataFunc != nil {
		return m.updateJobDataFunc(ctx, jobID, jobData)
	}
	return nil
}

func (m *mockStore) Advance(ctx context.Context, jobID, nextTaskName string, nextStartTime time.Time, retryAttemptsRemaining int) error {
	if m.advanceFunc != nil {
		return m.advanceFunc(ctx, jobID, nextTaskName, nextStartTime, retryAttemptsRemaining)
	}
	return nil
}

func (m *mockStore) ScheduleRetry(ctx context.Context, jobID string, nextStartTime time.Time, retryAttemptsRemaining int) error {
	if m.scheduleRetryFunc != nil {
		return m.scheduleRetryFunc(ctx, jobID, nextStartTime, retryAttemptsRemaining)
	}
	return nil
}

func (m *mockStore) Release(ctx context.Context, jobID string) error {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, jobID)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, jobID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, jobID)
	}
	return nil
}

func (m *mockStore) Insert(ctx context.Context, job *domain.Job) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, job)
	}
	return nil
}

// Atomic runs fn with the same mockStore: tests don't need real transaction
// isolation, only the commit/rollback-shaped control flow.
func (m *mockStore) Atomic(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return fn(ctx, m)
}

// fakeClock is a Clock fixed to a single instant, mutable between calls.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
