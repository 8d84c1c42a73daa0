// Package registry builds the process-wide, one-time name→task map the
// coordinator and worker consult to run a job's assigned task.
package registry

import (
	"github.com/rezkam/taskengine/internal/task"
)

// Registry is a read-only, concurrency-safe lookup from task name to Task.
// It is built once at startup via Builder and never mutated afterward, so
// concurrent reads from Worker goroutines need no synchronization.
type Registry struct {
	tasks map[string]task.Task
}

// Lookup returns the task registered under name, or (nil, false) if none is.
// O(1); never mutates the registry.
func (r *Registry) Lookup(name string) (task.Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// RetryAttemptsFor returns the length of name's retry schedule, or 0 if the
// name is unknown or the task declares no schedule.
func (r *Registry) RetryAttemptsFor(name string) int {
	t, ok := r.tasks[name]
	if !ok {
		return 0
	}
	return len(t.RetrySchedule())
}

// Builder accumulates tasks before a single, explicit Build call produces
// the immutable Registry. There is no reflection-based or annotation-driven
// discovery: callers register every task they want known by hand.
type Builder struct {
	tasks map[string]task.Task
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{tasks: make(map[string]task.Task)}
}

// Register adds t under its declared name. The first registration for a
// given name wins; later duplicates, and tasks with an empty name, are
// silently ignored.
func (b *Builder) Register(t task.Task) *Builder {
	name := t.Name()
	if name == "" {
		return b
	}
	if _, exists := b.tasks[name]; exists {
		return b
	}
	b.tasks[name] = t
	return b
}

// Build produces the immutable Registry. Call once, before the coordinator
// is allowed to begin polling.
func (b *Builder) Build() *Registry {
	frozen := make(map[string]task.Task, len(b.tasks))
	for name, t := range b.tasks {
		frozen[name] = t
	}
	return &Registry{tasks: frozen}
}
