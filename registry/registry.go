// Package registry holds the route registrations of the event channel.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/st-keller/employee-client/update"
)

// Handler reacts to an event on its route.
type Handler func(ctx context.Context, ev update.Event) error

// Registration pairs a route with its handler.
type Registration struct {
	Route   string
	Handler Handler
}

// Registry maps routes to handlers. Registrations are never removed.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for route.
func (r *Registry) Register(route string, handler Handler) error {
	if route == "" {
		return fmt.Errorf("route required")
	}
	if handler == nil {
		return fmt.Errorf("handler required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[route]; exists {
		return fmt.Errorf("route %s already registered", route)
	}

	r.handlers[route] = handler
	r.order = append(r.order, route)
	return nil
}

// RegisterAll adds every registration, stopping at the first error.
func (r *Registry) RegisterAll(regs ...Registration) error {
	for _, reg := range regs {
		if err := r.Register(reg.Route, reg.Handler); err != nil {
			return err
		}
	}
	return nil
}

// Routes returns the registered routes in registration order.
func (r *Registry) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Dispatch calls the handler registered for the event's route.
func (r *Registry) Dispatch(ctx context.Context, ev update.Event) error {
	r.mu.RLock()
	handler := r.handlers[ev.Route]
	r.mu.RUnlock()

	if handler == nil {
		return fmt.Errorf("no handler registered for route %s", ev.Route)
	}
	return handler(ctx, ev)
}
