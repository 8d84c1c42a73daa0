package config

import "time"

// CoordinatorConfig carries the settings of engine.CoordinatorConfig in a
// form env.Load can populate: the poll period is PollIntervalMS, an int of
// milliseconds that PollInterval converts, and cmd/scheduler copies the
// fields into an engine.CoordinatorConfig one by one. The configuration keys are exactly the ones enumerated in the external
// interfaces: poll cadence, pool sizing, batch size, and shutdown policy.
type CoordinatorConfig struct {
	PollIntervalMS          int    `env:"TASKENGINE_POLL_INTERVAL_MS"`
	CorePoolSize            int    `env:"TASKENGINE_CORE_POOL_SIZE"`
	MaxPoolSize             int    `env:"TASKENGINE_MAX_POOL_SIZE"`
	QueueCapacity           int    `env:"TASKENGINE_QUEUE_CAPACITY"`
	BatchSize               int    `env:"TASKENGINE_BATCH_SIZE"`
	ThreadNamePrefix        string `env:"TASKENGINE_THREAD_NAME_PREFIX"`
	WaitForTasksOnShutdown  bool   `env:"TASKENGINE_WAIT_FOR_TASKS_ON_SHUTDOWN"`
	AwaitTerminationSeconds int    `env:"TASKENGINE_AWAIT_TERMINATION_SECONDS"`
}

// applyDefaults fills in any field the environment left at its zero value
// with the same defaults engine.DefaultCoordinatorConfig uses. A bool field
// can't distinguish "unset" from "false" via reflection alone, so graceful
// shutdown must be requested explicitly by callers that want it; it is not
// defaulted here.
func (c *CoordinatorConfig) applyDefaults() {
	if c.PollIntervalMS == 0 {
		c.PollIntervalMS = 1000
	}
	if c.CorePoolSize == 0 {
		c.CorePoolSize = 4
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 16
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = 256
	}
	if c.BatchSize == 0 {
		c.BatchSize = 50
	}
	if c.ThreadNamePrefix == "" {
		c.ThreadNamePrefix = "scheduler-worker"
	}
	if c.AwaitTerminationSeconds == 0 {
		c.AwaitTerminationSeconds = 30
	}
}

// PollInterval returns the poll period as a time.Duration.
func (c CoordinatorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
