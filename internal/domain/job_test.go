package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_Validate(t *testing.T) {
	now := time.Now().UTC()
	valid := func() *Job {
		return &Job{
			ID:                    "job-1",
			AssignedTaskName:      "TASK_A",
			AssignedTaskStartTime: now,
			Priority:              5,
		}
	}

	t.Run("valid job passes", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("empty task name", func(t *testing.T) {
		j := valid()
		j.AssignedTaskName = ""
		assert.ErrorIs(t, j.Validate(), ErrInvalidJob)
	})

	t.Run("zero start time", func(t *testing.T) {
		j := valid()
		j.AssignedTaskStartTime = time.Time{}
		assert.ErrorIs(t, j.Validate(), ErrInvalidJob)
	})

	t.Run("priority below range", func(t *testing.T) {
		j := valid()
		j.Priority = 0
		assert.ErrorIs(t, j.Validate(), ErrInvalidPriority)
	})

	t.Run("priority above range", func(t *testing.T) {
		j := valid()
		j.Priority = 11
		assert.ErrorIs(t, j.Validate(), ErrInvalidPriority)
	})

	t.Run("negative retry counter", func(t *testing.T) {
		j := valid()
		j.RetryAttemptsRemaining = -1
		assert.ErrorIs(t, j.Validate(), ErrInvalidJob)
	})

	t.Run("lease fields must be paired", func(t *testing.T) {
		j := valid()
		workerID := "w-1"
		j.WorkerID = &workerID
		assert.ErrorIs(t, j.Validate(), ErrInvalidJob)

		j.WorkerID = nil
		j.WorkerLockTime = &now
		assert.ErrorIs(t, j.Validate(), ErrInvalidJob)
	})
}

func TestNewJob_DefaultsPriority(t *testing.T) {
	job := NewJob("job-1", "TASK_A", time.Now().UTC(), []byte(`{}`), 3, 0)
	assert.Equal(t, DefaultPriority, job.Priority)
	assert.False(t, job.Leased())
}

func TestNewJob_KeepsExplicitPriority(t *testing.T) {
	job := NewJob("job-1", "TASK_A", time.Now().UTC(), nil, 0, 1)
	assert.Equal(t, 1, job.Priority)
}
