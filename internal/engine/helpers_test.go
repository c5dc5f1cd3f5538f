package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/registry"
)

var errBoom = errors.New("boom")

// newTestRegistry registers small string actions used across the tests.
func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	r.MustRegister("denoise", func(s any) any { return strings.ReplaceAll(s.(string), "~", "") })
	r.MustRegister("upper", func(s any) any { return strings.ToUpper(s.(string)) })
	r.MustRegister("lower", func(s any) any { return strings.ToLower(s.(string)) })
	r.MustRegister("len", func(s any) any { return len(s.(string)) })
	r.MustRegister("pad", func(s any) any { return s.(string) + "." })
	r.MustRegister("x", func(any) any { return "X" })
	r.MustRegister("y", func(any) any { return "Y" })
	r.MustRegister("fail", func(any) (any, error) { return nil, errBoom })
	r.MustRegister("panic", func(any) any { panic("kaboom") })
	r.MustRegister("greet", func(s, env any) any { return env.(string) + ", " + s.(string) })
	return r
}

// spy counts invocations.
type spy struct {
	calls atomic.Int64
}

func (s *spy) action() api.Action {
	return func(_ context.Context, state any) (any, error) {
		s.calls.Add(1)
		return state, nil
	}
}

// swap returns the two branch results in reverse order.
func swap(results []any) (any, error) {
	if len(results) != 2 {
		return nil, errors.New("swap needs two results")
	}
	return []any{results[1], results[0]}, nil
}

func pick(i int) api.ChooseFunc {
	return func([]any) (int, error) { return i, nil }
}
