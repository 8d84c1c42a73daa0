package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/taskengine/internal/domain"
)

// CoordinatorConfig holds the configuration keys enumerated in the external
// interfaces: poll cadence, pool sizing, batch size, and shutdown policy.
type CoordinatorConfig struct {
	// PollInterval is the fixed delay between ticks; a long tick delays the
	// next one (fixed-delay, not fixed-rate).
	PollInterval time.Duration
	// CorePoolSize is the steady-state number of worker goroutines.
	CorePoolSize int
	// MaxPoolSize is the peak number of worker goroutines under pressure.
	MaxPoolSize int
	// QueueCapacity bounds the buffer between the Coordinator and Workers.
	QueueCapacity int
	// BatchSize is the maximum number of jobs leased per tick.
	BatchSize int
	// ThreadNamePrefix is cosmetic, used only in log fields.
	ThreadNamePrefix string
	// WaitForTasksOnShutdown selects graceful (true) vs abrupt (false) shutdown.
	WaitForTasksOnShutdown bool
	// AwaitTerminationSeconds bounds how long graceful shutdown waits.
	AwaitTerminationSeconds int
}

// DefaultCoordinatorConfig returns reasonable defaults for local development.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		PollInterval:            time.Second,
		CorePoolSize:            4,
		MaxPoolSize:             16,
		QueueCapacity:           256,
		BatchSize:               50,
		ThreadNamePrefix:        "scheduler-worker",
		WaitForTasksOnShutdown:  true,
		AwaitTerminationSeconds: 30,
	}
}

// Coordinator polls the Store for ready jobs in priority order and hands
// each to a Worker running on a bounded pool, compensating when a job
// cannot be assigned. There is exactly one Coordinator loop; it does not
// itself run on multiple goroutines.
type Coordinator struct {
	store  Store
	worker *Worker
	cfg    CoordinatorConfig
	clock  Clock
	pool   *pool

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewCoordinator constructs a Coordinator. clock defaults to SystemClock.
func NewCoordinator(store Store, worker *Worker, cfg CoordinatorConfig, clock Clock) *Coordinator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Coordinator{
		store:  store,
		worker: worker,
		cfg:    cfg,
		clock:  clock,
		pool:   newPool(cfg.CorePoolSize, cfg.MaxPoolSize, cfg.QueueCapacity),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run blocks, ticking every PollInterval (fixed-delay: a slow tick pushes
// the next one back) until ctx is cancelled or Stop is called.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-timer.C:
			c.tick(ctx)
			timer.Reset(c.cfg.PollInterval)
		}
	}
}

// Stop ends the polling loop without touching in-flight workers; call
// Shutdown afterward to drain or abandon the pool.
func (c *Coordinator) Stop() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

// Shutdown stops scheduling new ticks, then either waits up to
// AwaitTerminationSeconds for in-flight workers to finish (graceful) or
// returns immediately, leaving them to finish on their own (abrupt).
// Leased-but-unfinished jobs remain leased in the store either way.
func (c *Coordinator) Shutdown() {
	c.Stop()
	grace := time.Duration(c.cfg.AwaitTerminationSeconds) * time.Second
	if !c.cfg.WaitForTasksOnShutdown {
		grace = 0
	}
	c.pool.Shutdown(grace)
}

// tick implements one Coordinator tick: lease up to BatchSize candidates
// and dispatch each to the pool. A per-job error never aborts the batch; a
// failure of the initial candidate query ends the tick early.
func (c *Coordinator) tick(ctx context.Context) {
	now := c.clock.Now()
	candidates, err := c.store.LeaseCandidates(ctx, now, c.cfg.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch lease candidates, skipping tick",
			"prefix", c.cfg.ThreadNamePrefix, "error", err)
		return
	}

	for _, job := range candidates {
		c.leaseAndDispatch(ctx, job, now)
	}
}

// leaseAndDispatch implements tick step 2: assign a fresh worker identity to
// job, compensating with decrement-retries on assignment failure, and
// submit the leased job to the pool on success.
func (c *Coordinator) leaseAndDispatch(ctx context.Context, job *domain.Job, now time.Time) {
	workerID := uuid.NewString()

	leased, err := c.store.Assign(ctx, job.ID, workerID, now)
	if err != nil {
		slog.WarnContext(ctx, "assign failed, compensating with decrement-retries",
			"job_id", job.ID, "error", err)
		if decErr := c.store.DecrementRetries(ctx, job.ID); decErr != nil && !errors.Is(decErr, domain.ErrNotFound) {
			slog.ErrorContext(ctx, "compensation decrement-retries also failed",
				"job_id", job.ID, "error", decErr)
		}
		return
	}

	// Detach the worker's context from the polling loop's: cancelling the
	// loop on shutdown must not abort transactions already in flight, only
	// stop new ticks. The pool's grace period bounds how long they may run.
	runCtx := context.WithoutCancel(ctx)
	submitted := c.pool.Submit(func() {
		c.worker.Run(runCtx, leased)
	})
	if !submitted {
		slog.WarnContext(ctx, "worker pool saturated, lease left in place",
			"job_id", job.ID, "worker_id", workerID)
	}
}
