package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry maps worker-type tags to implementations so the pipeline
// dispatches on a closed set instead of open-ended string handling.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]Worker
	logger  *zap.Logger
}

// NewRegistry creates an empty worker registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{workers: make(map[string]Worker), logger: logger}
}

// Register adds a worker under its type tag, replacing any previous
// registration for the same tag.
func (r *Registry) Register(w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[w.Type()] = w
	r.logger.Info("registered worker", zap.String("type", w.Type()))
}

// Get looks a worker up by type tag.
func (r *Registry) Get(workerType string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[workerType]
	return w, ok
}

// Types returns the registered worker tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.workers))
	for t := range r.workers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// List returns all registered workers in tag order.
func (r *Registry) List() []Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.workers))
	for t := range r.workers {
		types = append(types, t)
	}
	sort.Strings(types)
	out := make([]Worker, 0, len(types))
	for _, t := range types {
		out = append(out, r.workers[t])
	}
	return out
}

// InitializeAll runs every worker's setup once, failing on the first
// error.
func (r *Registry) InitializeAll(ctx context.Context) error {
	for _, w := range r.List() {
		if err := w.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize %s: %w", w.Type(), err)
		}
	}
	return nil
}
