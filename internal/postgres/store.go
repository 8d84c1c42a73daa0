package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/taskengine/internal/domain"
	"github.com/rezkam/taskengine/internal/engine"
)

// querier is the subset of pgxpool.Pool and pgx.Tx that Store needs. A root
// Store holds a *pgxpool.Pool; a Store handed to an Atomic callback holds
// the pgx.Tx instead, so every method below runs against whichever one is
// current without knowing which it got.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements engine.Store against a PostgreSQL jobs table.
type Store struct {
	pool *pgxpool.Pool // non-nil only on the root Store returned by NewStoreFromPool
	db   querier
}

var _ engine.Store = (*Store)(nil)

// NewStoreFromPool wraps an already-connected pool. Exposed separately from
// NewStore so callers that manage their own pool lifecycle (tests, a shared
// pool across components) can skip the DSN-parsing path.
func NewStoreFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Atomic runs fn against a Store bound to one ambient transaction: every
// operation fn performs through the supplied engine.Store commits or rolls
// back together. Only callable on the root Store (the one holding pool);
// Store values received inside a nested Atomic ignore the call and just
// reuse their existing transaction, since pgx doesn't support true nested
// transactions and the core never needs them.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, st engine.Store) error) error {
	if s.pool == nil {
		return fn(ctx, s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", domain.ErrStoreFatal, err)
	}

	txStore := &Store{db: tx}

	if err := fn(ctx, txStore); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.ErrorContext(ctx, "rollback failed", "original_error", err, "rollback_error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyErr(err, "commit transaction")
	}
	return nil
}

// LeaseCandidates returns up to limit ready jobs, ordered by (priority asc,
// assigned_task_start_time asc), taken under FOR UPDATE SKIP LOCKED so a
// concurrent caller's own SELECT never sees the same rows while this
// statement runs. Called on the root Store, the select is a single statement
// in its own implicit transaction, so its row locks end when it returns;
// called on a Store handed to an Atomic callback, it runs inside that
// transaction and the locks are held until the transaction ends.
func (s *Store) LeaseCandidates(ctx context.Context, now time.Time, limit int) ([]*domain.Job, error) {
	const q = `
		SELECT job_id, assigned_task_name, assigned_task_start_time, job_data,
		       retry_attempts_remaining, priority, worker_id, worker_lock_time
		FROM jobs
		WHERE worker_id IS NULL AND assigned_task_start_time <= $1
		ORDER BY priority ASC, assigned_task_start_time ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	rows, err := s.db.Query(ctx, q, now, limit)
	if err != nil {
		return nil, classifyErr(err, "lease candidates")
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, classifyErr(err, "scan lease candidate")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyErr(err, "iterate lease candidates")
	}
	return jobs, nil
}

// Assign sets the lease fields, but only if the row is still unleased: the
// WHERE clause is the compare-and-swap that makes two concurrent Assign
// calls on the same job race-safe even though LeaseCandidates' lock was
// released once its own transaction committed.
func (s *Store) Assign(ctx context.Context, jobID, workerID string, now time.Time) (*domain.Job, error) {
	const q = `
		UPDATE jobs
		SET worker_id = $2, worker_lock_time = $3
		WHERE job_id = $1 AND worker_id IS NULL
		RETURNING job_id, assigned_task_name, assigned_task_start_time, job_data,
		          retry_attempts_remaining, priority, worker_id, worker_lock_time`

	row := s.db.QueryRow(ctx, q, jobID, workerID, now)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.assignFailureReason(ctx, jobID)
		}
		return nil, classifyErr(err, "assign")
	}
	return job, nil
}

// assignFailureReason distinguishes a missing row from one already leased
// by someone else, so Assign can report domain.ErrNotFound accurately
// instead of always reporting contention.
func (s *Store) assignFailureReason(ctx context.Context, jobID string) error {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE job_id = $1)`, jobID).Scan(&exists)
	if err != nil {
		return classifyErr(err, "check job existence")
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrTransientConflict
}

// DecrementRetries decrements retry_attempts_remaining by one if it is
// greater than zero; a no-op update otherwise. The WHERE clause only checks
// existence, not the retry bound, since the GREATEST floor below already
// makes the decrement itself a no-op at zero.
func (s *Store) DecrementRetries(ctx context.Context, jobID string) error {
	const q = `
		UPDATE jobs
		SET retry_attempts_remaining = GREATEST(retry_attempts_remaining - 1, 0)
		WHERE job_id = $1`

	tag, err := s.db.Exec(ctx, q, jobID)
	if err != nil {
		return classifyErr(err, "decrement retries")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateJobData replaces job_data on job_id.
func (s *Store) UpdateJobData(ctx context.Context, jobID string, jobData []byte) error {
	tag, err := s.db.Exec(ctx, `UPDATE jobs SET job_data = $2 WHERE job_id = $1`, jobID, jobData)
	if err != nil {
		return classifyErr(err, "update job data")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Advance rewrites the three task-selection fields in one statement.
func (s *Store) Advance(ctx context.Context, jobID, nextTaskName string, nextStartTime time.Time, retryAttemptsRemaining int) error {
	const q = `
		UPDATE jobs
		SET assigned_task_name = $2, assigned_task_start_time = $3, retry_attempts_remaining = $4
		WHERE job_id = $1`

	tag, err := s.db.Exec(ctx, q, jobID, nextTaskName, nextStartTime, retryAttemptsRemaining)
	if err != nil {
		return classifyErr(err, "advance")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ScheduleRetry rewrites start time and retry counter without touching the
// task name.
func (s *Store) ScheduleRetry(ctx context.Context, jobID string, nextStartTime time.Time, retryAttemptsRemaining int) error {
	const q = `
		UPDATE jobs
		SET assigned_task_start_time = $2, retry_attempts_remaining = $3
		WHERE job_id = $1`

	tag, err := s.db.Exec(ctx, q, jobID, nextStartTime, retryAttemptsRemaining)
	if err != nil {
		return classifyErr(err, "schedule retry")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Release clears both lease fields.
func (s *Store) Release(ctx context.Context, jobID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE jobs SET worker_id = NULL, worker_lock_time = NULL WHERE job_id = $1`, jobID)
	if err != nil {
		return classifyErr(err, "release")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the row. This is the only representation of completion.
func (s *Store) Delete(ctx context.Context, jobID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return classifyErr(err, "delete")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Insert persists a new row, validating the Job's own invariants first so a
// caller gets domain.ErrInvalidJob / domain.ErrInvalidPriority rather than a
// raw constraint-violation error from the database.
func (s *Store) Insert(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	const q = `
		INSERT INTO jobs (job_id, assigned_task_name, assigned_task_start_time, job_data,
		                   retry_attempts_remaining, priority, worker_id, worker_lock_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, q,
		job.ID, job.AssignedTaskName, job.AssignedTaskStartTime, job.JobData,
		job.RetryAttemptsRemaining, job.Priority, job.WorkerID, job.WorkerLockTime)
	if err != nil {
		return classifyErr(err, "insert")
	}
	return nil
}

// rowScanner covers both pgx.Row (QueryRow) and pgx.Rows (Query) so scanJob
// can serve both LeaseCandidates and Assign.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	err := row.Scan(
		&job.ID, &job.AssignedTaskName, &job.AssignedTaskStartTime, &job.JobData,
		&job.RetryAttemptsRemaining, &job.Priority, &job.WorkerID, &job.WorkerLockTime)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// classifyErr maps a pgx/pgconn error to the store's failure taxonomy:
// lock-wait timeouts and serialization failures are domain.ErrTransientConflict
// (the caller just skips this iteration), everything else is domain.ErrStoreFatal.
func classifyErr(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return fmt.Errorf("%w: %s: %w", domain.ErrTransientConflict, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreFatal, op, err)
}
