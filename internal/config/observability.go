package config

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTelEnabled bool `env:"TASKENGINE_OTEL_ENABLED"`
}
