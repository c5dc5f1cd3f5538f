package effect

// Option is a value that may be absent.
type Option struct {
	value any
	ok    bool
}

// Some wraps a present value.
func Some(v any) Option { return Option{value: v, ok: true} }

// None is the absent value.
func None() Option { return Option{} }

// Get returns the value and whether it is present.
func (o Option) Get() (any, bool) { return o.value, o.ok }

func (o Option) IsSome() bool { return o.ok }

// OrElse returns the value, or def when absent.
func (o Option) OrElse(def any) any {
	if o.ok {
		return o.value
	}
	return def
}

// OptionEffect runs plans where a step may produce nothing. Collect keeps the
// present values and drops the absent ones.
type OptionEffect struct{}

func (OptionEffect) Pure(a any) Option { return Some(a) }

func (OptionEffect) Bind(m Option, f func(any) Option) Option {
	if !m.ok {
		return m
	}
	return f(m.value)
}

func (OptionEffect) Collect(children []func() Option) Option {
	values := make([]any, 0, len(children))
	for _, c := range children {
		if v, ok := c().Get(); ok {
			values = append(values, v)
		}
	}
	return Some(values)
}

func (OptionEffect) Unwrap(m Option) (any, bool) { return m.Get() }
