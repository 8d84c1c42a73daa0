// Package config loads the ambient configuration enumerated in the external
// interfaces: database connection, observability, and the Coordinator's
// tuning knobs. None of it is read by the engine itself; engine.Coordinator
// and engine.Worker take plain Go values, and this package only exists to
// get those values out of the environment for cmd/scheduler.
package config

import (
	"fmt"

	"github.com/rezkam/taskengine/internal/env"
)

// Config holds every environment-sourced setting cmd/scheduler needs.
type Config struct {
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Coordinator   CoordinatorConfig
}

// Load parses environment variables into a Config, applies defaults for
// fields the environment left unset, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Coordinator.applyDefaults()

	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
