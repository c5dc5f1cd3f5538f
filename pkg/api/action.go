package api

import (
	"context"
	"fmt"
	"reflect"
)

// Action is the canonical form every registered step is adapted to.
//
// The run environment (the value a caller passes alongside the state) travels
// inside ctx; see WithEnv and EnvFromContext.
type Action func(ctx context.Context, state any) (any, error)

// AggregateFunc folds the ordered results of a Parallel node into one state.
type AggregateFunc func(results []any) (any, error)

// ChooseFunc picks the index of the winning result of a Choose node.
type ChooseFunc func(results []any) (int, error)

type envKey struct{}

// WithEnv returns a copy of ctx carrying env for the actions of a run.
func WithEnv(ctx context.Context, env any) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFromContext returns the environment stored by WithEnv, or nil.
func EnvFromContext(ctx context.Context) any {
	if ctx == nil {
		return nil
	}
	return ctx.Value(envKey{})
}

type runIDKey struct{}

// WithRunID returns a copy of ctx that makes the next run use id instead of
// a generated one. Queued runs use it so the ID handed out at submission is
// the ID of the stored record.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the ID stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// Cast converts an untyped state to T. A nil state converts to T only when
// T's zero value is nil (pointers, maps, slices, interfaces and so on).
func Cast[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var zero T
	if v == nil && nilable(reflect.TypeFor[T]()) {
		return zero, nil
	}
	return zero, fmt.Errorf("%w: want %v, got %T", ErrStateType, reflect.TypeFor[T](), v)
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// TypedAction wraps a strongly-typed function into an Action.
//
//	api.TypedAction(func(ctx context.Context, s string) (int, error) { return len(s), nil })
func TypedAction[I, O any](fn func(context.Context, I) (O, error)) Action {
	return func(ctx context.Context, state any) (any, error) {
		in, err := Cast[I](state)
		if err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
}

// PureAction wraps a typed function that cannot fail.
func PureAction[I, O any](fn func(I) O) Action {
	return func(_ context.Context, state any) (any, error) {
		in, err := Cast[I](state)
		if err != nil {
			return nil, err
		}
		return fn(in), nil
	}
}

// TypedAggregate wraps a typed fold into an AggregateFunc. Every result must
// have type T.
func TypedAggregate[T, O any](fn func([]T) (O, error)) AggregateFunc {
	return func(results []any) (any, error) {
		typed, err := castAll[T](results)
		if err != nil {
			return nil, err
		}
		return fn(typed)
	}
}

// TypedChoose wraps a typed selector into a ChooseFunc.
func TypedChoose[T any](fn func([]T) (int, error)) ChooseFunc {
	return func(results []any) (int, error) {
		typed, err := castAll[T](results)
		if err != nil {
			return 0, err
		}
		return fn(typed)
	}
}

func castAll[T any](results []any) ([]T, error) {
	out := make([]T, len(results))
	for i, r := range results {
		v, err := Cast[T](r)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
