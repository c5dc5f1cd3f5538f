// Package effect describes the effect types the Kleisli interpreter can run
// plans in.
//
// Go has no higher-kinded types, so an effect is described by a value
// implementing Effect[M] for the concrete wrapped type M. The interpreter
// only talks to that capability and never inspects M itself.
package effect

// Effect is the capability set the Kleisli interpreter needs from an effect
// type M.
type Effect[M any] interface {
	// Pure wraps a plain value.
	Pure(a any) M

	// Bind feeds the value inside m to f. Implementations must call f
	// synchronously and at most once, and may skip it when m carries a
	// failure.
	Bind(m M, f func(a any) M) M

	// Collect evaluates the children and returns an M wrapping their values
	// as a []any in child order. How failures combine is up to the effect.
	Collect(children []func() M) M

	// Unwrap extracts the value of m. The second result is false when m
	// carries a failure or no value.
	Unwrap(m M) (any, bool)
}

// Map applies a pure function inside m.
func Map[M any](eff Effect[M], m M, f func(any) any) M {
	return eff.Bind(m, func(a any) M { return eff.Pure(f(a)) })
}

// Then sequences m and n, keeping n's value.
func Then[M any](eff Effect[M], m, n M) M {
	return eff.Bind(m, func(any) M { return n })
}

// FirstSuccess returns a selector for Choose nodes that keeps the first
// branch whose effect succeeded. When every branch failed it keeps branch 0,
// so its failure is what the node reports.
func FirstSuccess[M any](eff Effect[M]) func([]M) (int, error) {
	return func(results []M) (int, error) {
		for i, m := range results {
			if _, ok := eff.Unwrap(m); ok {
				return i, nil
			}
		}
		return 0, nil
	}
}

// Identity is the effect that adds nothing.
type Identity struct {
	Value any
}

type IdentityEffect struct{}

func (IdentityEffect) Pure(a any) Identity { return Identity{Value: a} }

func (IdentityEffect) Bind(m Identity, f func(any) Identity) Identity { return f(m.Value) }

func (IdentityEffect) Collect(children []func() Identity) Identity {
	values := make([]any, len(children))
	for i, c := range children {
		values[i] = c().Value
	}
	return Identity{Value: values}
}

func (IdentityEffect) Unwrap(m Identity) (any, bool) { return m.Value, true }
