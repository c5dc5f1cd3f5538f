// Package registry maps action names to functions.
//
// Functions are adapted to the canonical api.Action shape exactly once, when
// they are registered, so interpreters never inspect signatures while a plan
// runs.
package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/petrijr/plano/pkg/api"
)

// Registry is a goroutine-safe name to api.Action map.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]api.Action
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{actions: make(map[string]api.Action)}
}

// Register adapts fn to an api.Action and stores it under name.
//
// Accepted shapes:
//
//	api.Action
//	func(context.Context, any) (any, error)
//	func(state, env any) (any, error)
//	func(state, env any) any
//	func(state any) (any, error)
//	func(state any) any
//
// The two-argument forms receive the run environment set with api.WithEnv.
// Any other shape fails with api.ErrUnsupportedSignature. Names must be
// non-empty and unique.
func (r *Registry) Register(name string, fn any) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name must not be empty", api.ErrInvalidAction)
	}
	action, err := Adapt(fn)
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[name]; exists {
		return fmt.Errorf("%w: %q", api.ErrDuplicateAction, name)
	}
	r.actions[name] = action
	return nil
}

// MustRegister is Register for program setup; it panics on error and returns
// r for chaining.
func (r *Registry) MustRegister(name string, fn any) *Registry {
	if err := r.Register(name, fn); err != nil {
		panic("registry: " + err.Error())
	}
	return r
}

// Lookup returns the action registered under name.
func (r *Registry) Lookup(name string) (api.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Len is the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

// Suggest returns up to three registered names close to name.
func (r *Registry) Suggest(name string) []string {
	return closest(name, r.Names(), 3)
}

// Adapt converts one of the accepted function shapes to an api.Action.
func Adapt(fn any) (api.Action, error) {
	switch f := fn.(type) {
	case api.Action:
		if f != nil {
			return f, nil
		}
	case func(context.Context, any) (any, error):
		if f != nil {
			return f, nil
		}
	case func(any, any) (any, error):
		if f != nil {
			return func(ctx context.Context, state any) (any, error) {
				return f(state, api.EnvFromContext(ctx))
			}, nil
		}
	case func(any, any) any:
		if f != nil {
			return func(ctx context.Context, state any) (any, error) {
				return f(state, api.EnvFromContext(ctx)), nil
			}, nil
		}
	case func(any) (any, error):
		if f != nil {
			return func(_ context.Context, state any) (any, error) {
				return f(state)
			}, nil
		}
	case func(any) any:
		if f != nil {
			return func(_ context.Context, state any) (any, error) {
				return f(state), nil
			}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %T", api.ErrUnsupportedSignature, fn)
	}
	return nil, fmt.Errorf("%w: nil function", api.ErrUnsupportedSignature)
}
