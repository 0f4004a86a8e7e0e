package registry

import (
	"context"
	"fmt"
	"sync"
)

// Handler executes one registered tool invocation.
type Handler func(ctx context.Context, input any) (any, error)

// Registry maps tool names to handlers, preserving registration order
// for listings.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string
}

func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(tool string, handler Handler) error {
	if tool == "" {
		return fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[tool]; exists {
		return fmt.Errorf("tool already registered: %s", tool)
	}
	r.handlers[tool] = handler
	r.order = append(r.order, tool)
	return nil
}

func (r *Registry) HandlerFor(tool string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[tool]
	return h, ok
}

func (r *Registry) Tools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
