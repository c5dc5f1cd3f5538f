package plan

import (
	"fmt"

	"github.com/petrijr/plano/pkg/api"
)

// Lens focuses on a part of a state. Get extracts the part, Set returns a new
// whole with the part replaced. A Set must not modify its input.
//
// Lenses are expected to obey the usual laws, which the interpreters rely on
// but do not check:
//
//	Set(s, Get(s)) == s
//	Get(Set(s, a)) == a
type Lens struct {
	get func(s any) (any, error)
	set func(s, a any) (any, error)
}

// MakeLens builds a lens from untyped accessors.
func MakeLens(get func(s any) (any, error), set func(s, a any) (any, error)) Lens {
	return Lens{get: get, set: set}
}

// NewLens builds a lens from typed accessors. Using it on a state or part of
// another type fails with api.ErrStateType.
func NewLens[S, A any](get func(S) A, set func(S, A) S) Lens {
	return Lens{
		get: func(s any) (any, error) {
			whole, err := api.Cast[S](s)
			if err != nil {
				return nil, err
			}
			return get(whole), nil
		},
		set: func(s, a any) (any, error) {
			whole, err := api.Cast[S](s)
			if err != nil {
				return nil, err
			}
			part, err := api.Cast[A](a)
			if err != nil {
				return nil, err
			}
			return set(whole, part), nil
		},
	}
}

// IsZero reports whether l was never initialised.
func (l Lens) IsZero() bool { return l.get == nil || l.set == nil }

func (l Lens) Get(s any) (any, error) { return l.get(s) }

func (l Lens) Set(s, a any) (any, error) { return l.set(s, a) }

// Modify returns a function applying f to the focused part of a state.
func (l Lens) Modify(f func(any) (any, error)) func(any) (any, error) {
	return func(s any) (any, error) {
		part, err := l.get(s)
		if err != nil {
			return nil, err
		}
		next, err := f(part)
		if err != nil {
			return nil, err
		}
		return l.set(s, next)
	}
}

// Compose focuses outer first and inner within the result.
func Compose(outer, inner Lens) Lens {
	return Lens{
		get: func(s any) (any, error) {
			mid, err := outer.get(s)
			if err != nil {
				return nil, err
			}
			return inner.get(mid)
		},
		set: func(s, a any) (any, error) {
			mid, err := outer.get(s)
			if err != nil {
				return nil, err
			}
			next, err := inner.set(mid, a)
			if err != nil {
				return nil, err
			}
			return outer.set(s, next)
		},
	}
}

// Key focuses on one entry of a map[string]any. Set copies the map. Setting
// nil on an absent key leaves it absent, so the lens laws hold for missing
// keys too.
func Key(name string) Lens {
	asMap := func(s any) (map[string]any, error) {
		m, ok := s.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: key %q: want map[string]any, got %T", api.ErrStateType, name, s)
		}
		return m, nil
	}
	return Lens{
		get: func(s any) (any, error) {
			m, err := asMap(s)
			if err != nil {
				return nil, err
			}
			return m[name], nil
		},
		set: func(s, a any) (any, error) {
			m, err := asMap(s)
			if err != nil {
				return nil, err
			}
			out := make(map[string]any, len(m)+1)
			for k, v := range m {
				out[k] = v
			}
			if _, present := m[name]; present || a != nil {
				out[name] = a
			}
			return out, nil
		},
	}
}

// Index focuses on element i of a []any. Set copies the slice.
func Index(i int) Lens {
	asSlice := func(s any) ([]any, error) {
		xs, ok := s.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: index %d: want []any, got %T", api.ErrStateType, i, s)
		}
		if i < 0 || i >= len(xs) {
			return nil, fmt.Errorf("index %d out of range [0, %d)", i, len(xs))
		}
		return xs, nil
	}
	return Lens{
		get: func(s any) (any, error) {
			xs, err := asSlice(s)
			if err != nil {
				return nil, err
			}
			return xs[i], nil
		},
		set: func(s, a any) (any, error) {
			xs, err := asSlice(s)
			if err != nil {
				return nil, err
			}
			out := make([]any, len(xs))
			copy(out, xs)
			out[i] = a
			return out, nil
		},
	}
}

// CheckLaws checks the get-set and set-get laws of l on every state in
// states and every (state, value) pair. It returns the first violation.
func CheckLaws(l Lens, states, values []any, eq func(a, b any) bool) error {
	for _, s := range states {
		part, err := l.Get(s)
		if err != nil {
			return fmt.Errorf("get(%v): %w", s, err)
		}
		back, err := l.Set(s, part)
		if err != nil {
			return fmt.Errorf("set(%v, get(s)): %w", s, err)
		}
		if !eq(back, s) {
			return fmt.Errorf("set(s, get(s)) = %v, want %v", back, s)
		}
		for _, a := range values {
			next, err := l.Set(s, a)
			if err != nil {
				return fmt.Errorf("set(%v, %v): %w", s, a, err)
			}
			got, err := l.Get(next)
			if err != nil {
				return fmt.Errorf("get(set(%v, %v)): %w", s, a, err)
			}
			if !eq(got, a) {
				return fmt.Errorf("get(set(s, %v)) = %v", a, got)
			}
		}
	}
	return nil
}
