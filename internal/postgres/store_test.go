package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/taskengine/internal/config"
	"github.com/rezkam/taskengine/internal/domain"
	"github.com/rezkam/taskengine/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStoreTest opens a real Store against TASKENGINE_DB_DSN, migrates it,
// and truncates the jobs table between tests. Skips when no DSN is
// configured, matching how the rest of the suite treats integration tests
// that need a live PostgreSQL instance.
func setupStoreTest(t *testing.T) *Store {
	t.Helper()

	cfg, err := config.LoadTestConfig()
	if err != nil {
		t.Skipf("failed to load test config: %v (set TASKENGINE_DB_DSN to run postgres store tests)", err)
	}
	if cfg.Database.DSN == "" {
		t.Skip("TASKENGINE_DB_DSN not set, skipping postgres store tests")
	}

	ctx := context.Background()
	store, err := NewStoreWithMigrations(ctx, PoolConfig{DSN: cfg.Database.DSN})
	require.NoError(t, err)

	_, err = store.pool.Exec(ctx, "TRUNCATE TABLE jobs")
	require.NoError(t, err)

	t.Cleanup(store.Close)

	return store
}

func newTestJob(taskName string, priority int, startTime time.Time) *domain.Job {
	return &domain.Job{
		ID:                     mustUUID(),
		Priority:               priority,
		RetryAttemptsRemaining: 2,
		AssignedTaskName:       taskName,
		AssignedTaskStartTime:  startTime,
		JobData:                []byte(`{"k":1}`),
	}
}

func TestStore_InsertAndLeaseCandidates_OrdersByPriorityThenStartTime(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	now := time.Now().UTC()
	low := newTestJob("TASK_A", 5, now)
	high := newTestJob("TASK_A", 1, now.Add(time.Second))
	notYet := newTestJob("TASK_A", 1, now.Add(time.Hour))

	for _, j := range []*domain.Job{low, high, notYet} {
		require.NoError(t, store.Insert(ctx, j))
	}

	candidates, err := store.LeaseCandidates(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, high.ID, candidates[0].ID, "lower priority value leases first")
	assert.Equal(t, low.ID, candidates[1].ID)
}

func TestStore_Assign_IsCompareAndSwap(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	job := newTestJob("TASK_A", 5, time.Now().UTC())
	require.NoError(t, store.Insert(ctx, job))

	leased, err := store.Assign(ctx, job.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, leased.WorkerID)
	assert.Equal(t, "worker-1", *leased.WorkerID)

	_, err = store.Assign(ctx, job.ID, "worker-2", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrTransientConflict)
}

func TestStore_Assign_UnknownJobReturnsNotFound(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	_, err := store.Assign(ctx, mustUUID(), "worker-1", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DecrementRetries(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	job := newTestJob("TASK_A", 5, time.Now().UTC())
	require.NoError(t, store.Insert(ctx, job))

	require.NoError(t, store.DecrementRetries(ctx, job.ID))
	got, err := store.LeaseCandidates(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].RetryAttemptsRemaining)
}

func TestStore_Advance_SetsNextTaskWithoutTouchingLease(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	job := newTestJob("TASK_A", 5, time.Now().UTC())
	require.NoError(t, store.Insert(ctx, job))
	_, err := store.Assign(ctx, job.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)

	next := time.Now().UTC().Add(time.Minute)
	require.NoError(t, store.Advance(ctx, job.ID, "TASK_B", next, job.RetryAttemptsRemaining))

	// Advance rewrites only the task-selection fields; the row stays leased
	// until the worker's separate Release call.
	candidates, err := store.LeaseCandidates(ctx, next.Add(time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, candidates, "an advanced-but-still-leased row must not be a lease candidate")

	require.NoError(t, store.Release(ctx, job.ID))

	candidates, err = store.LeaseCandidates(ctx, next.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "TASK_B", candidates[0].AssignedTaskName)
	assert.Nil(t, candidates[0].WorkerID)
}

func TestStore_ScheduleRetry_KeepsTaskName(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	now := time.Now().UTC()
	job := newTestJob("FLAKY", 5, now)
	require.NoError(t, store.Insert(ctx, job))

	next := now.Add(10 * time.Second)
	require.NoError(t, store.ScheduleRetry(ctx, job.ID, next, 1))

	candidates, err := store.LeaseCandidates(ctx, next.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "FLAKY", candidates[0].AssignedTaskName)
	assert.Equal(t, 1, candidates[0].RetryAttemptsRemaining)
	assert.WithinDuration(t, next, candidates[0].AssignedTaskStartTime, time.Millisecond)
}

func TestStore_UpdateJobData_ReplacesPayload(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	job := newTestJob("TASK_A", 5, time.Now().UTC())
	require.NoError(t, store.Insert(ctx, job))

	require.NoError(t, store.UpdateJobData(ctx, job.ID, []byte(`{"k":2}`)))

	candidates, err := store.LeaseCandidates(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.JSONEq(t, `{"k":2}`, string(candidates[0].JobData))
}

func TestStore_Insert_RejectsPriorityOutOfRange(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	job := newTestJob("TASK_A", 11, time.Now().UTC())
	err := store.Insert(ctx, job)
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)
}

func TestStore_Atomic_RollsBackOnError(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	job := newTestJob("TASK_A", 5, time.Now().UTC())
	require.NoError(t, store.Insert(ctx, job))

	wantErr := domain.ErrTaskRaised
	err := store.Atomic(ctx, func(ctx context.Context, s engine.Store) error {
		if err := s.Delete(ctx, job.ID); err != nil {
			return err
		}
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	candidates, err := store.LeaseCandidates(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, candidates, 1, "the delete inside the failed transaction must be rolled back")
}

func TestStore_Delete_RemovesJob(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	job := newTestJob("TASK_A", 5, time.Now().UTC())
	require.NoError(t, store.Insert(ctx, job))
	_, err := store.Assign(ctx, job.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, job.ID))

	candidates, err := store.LeaseCandidates(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestStore_Release_ClearsLeaseWithoutAdvancing(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	job := newTestJob("TASK_A", 5, time.Now().UTC())
	require.NoError(t, store.Insert(ctx, job))
	_, err := store.Assign(ctx, job.ID, "worker-1", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, store.Release(ctx, job.ID))

	candidates, err := store.LeaseCandidates(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "TASK_A", candidates[0].AssignedTaskName)
}

func mustUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return id.String()
}
