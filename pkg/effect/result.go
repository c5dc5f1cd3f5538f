package effect

import "errors"

var errNilFailure = errors.New("effect: failure without error")

// Result is either a value or an error.
type Result struct {
	value any
	err   error
}

// Ok wraps a successful value.
func Ok(v any) Result { return Result{value: v} }

// Err wraps a failure. A nil err is replaced by a generic one so the result
// still reads as failed.
func Err(err error) Result {
	if err == nil {
		err = errNilFailure
	}
	return Result{err: err}
}

// Get returns the value or the error.
func (r Result) Get() (any, error) { return r.value, r.err }

func (r Result) IsOk() bool { return r.err == nil }

// ResultEffect runs plans where a step may fail without aborting the
// interpreter. The first failure short-circuits the rest of the plan; in
// Collect, children after the first failure are never evaluated.
type ResultEffect struct{}

func (ResultEffect) Pure(a any) Result { return Ok(a) }

func (ResultEffect) Bind(m Result, f func(any) Result) Result {
	if m.err != nil {
		return m
	}
	return f(m.value)
}

func (ResultEffect) Collect(children []func() Result) Result {
	values := make([]any, len(children))
	for i, c := range children {
		r := c()
		if r.err != nil {
			return r
		}
		values[i] = r.value
	}
	return Ok(values)
}

func (ResultEffect) Unwrap(m Result) (any, bool) { return m.value, m.err == nil }
