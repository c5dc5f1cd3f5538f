package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/petrijr/plano/pkg/api"
)

// EffectAction is a step whose result is wrapped in an effect type M, for
// example an effect.Result or an effect.Writer.
type EffectAction[M any] func(ctx context.Context, a any) M

// Arrows is the registry used by the effectful interpreter.
type Arrows[M any] struct {
	mu     sync.RWMutex
	arrows map[string]EffectAction[M]
}

// NewArrows creates an empty effectful registry.
func NewArrows[M any]() *Arrows[M] {
	return &Arrows[M]{arrows: make(map[string]EffectAction[M])}
}

// Register stores fn under name. Accepted shapes are EffectAction[M],
// func(context.Context, any) M and func(any) M.
func (r *Arrows[M]) Register(name string, fn any) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name must not be empty", api.ErrInvalidAction)
	}
	var arrow EffectAction[M]
	switch f := fn.(type) {
	case EffectAction[M]:
		arrow = f
	case func(context.Context, any) M:
		arrow = f
	case func(any) M:
		if f != nil {
			arrow = func(_ context.Context, a any) M { return f(a) }
		}
	default:
		return fmt.Errorf("register %q: %w: %T", name, api.ErrUnsupportedSignature, fn)
	}
	if arrow == nil {
		return fmt.Errorf("register %q: %w: nil function", name, api.ErrUnsupportedSignature)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.arrows[name]; exists {
		return fmt.Errorf("%w: %q", api.ErrDuplicateAction, name)
	}
	r.arrows[name] = arrow
	return nil
}

// MustRegister panics if Register fails.
func (r *Arrows[M]) MustRegister(name string, fn any) *Arrows[M] {
	if err := r.Register(name, fn); err != nil {
		panic("registry: " + err.Error())
	}
	return r
}

func (r *Arrows[M]) Lookup(name string) (EffectAction[M], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.arrows[name]
	return a, ok
}

func (r *Arrows[M]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.arrows))
	for n := range r.arrows {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (r *Arrows[M]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.arrows)
}

func (r *Arrows[M]) Suggest(name string) []string {
	return closest(name, r.Names(), 3)
}
