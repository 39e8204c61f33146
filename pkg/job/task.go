package job

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"sync"
)

// taskExecutor runs a task against its raw JSON payload.
type taskExecutor interface {
	Execute(ctx context.Context, payload json.RawMessage) error
}

// taskRegistry stores registered task executors by name.
type taskRegistry struct {
	executors map[string]taskExecutor
	mu        sync.RWMutex
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{executors: make(map[string]taskExecutor)}
}

func (r *taskRegistry) register(name string, executor taskExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[name] = executor
}

func (r *taskRegistry) get(name string) (taskExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	executor, ok := r.executors[name]
	return executor, ok
}

func (r *taskRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.executors))
}

// typedTask is the structural contract every task satisfies.
type typedTask[P any] interface {
	Name() string
	Handle(context.Context, P) error
}

// taskWrapper decodes the JSON payload into P before calling the task.
type taskWrapper[P any, T typedTask[P]] struct {
	task T
}

func newTaskWrapper[P any, T typedTask[P]](task T) *taskWrapper[P, T] {
	return &taskWrapper[P, T]{task: task}
}

func (w *taskWrapper[P, T]) Execute(ctx context.Context, raw json.RawMessage) error {
	var payload P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			// A payload that cannot decode will never decode; don't retry it.
			return Cancel(errors.Join(ErrInvalidPayload, err))
		}
	}
	return w.task.Handle(ctx, payload)
}

// scheduledExecutor adapts a periodic task's Handle(ctx) to taskExecutor.
type scheduledExecutor struct {
	handler func(context.Context) error
}

func (e *scheduledExecutor) Execute(ctx context.Context, _ json.RawMessage) error {
	return e.handler(ctx)
}
