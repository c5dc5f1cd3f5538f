package kleisli

import (
	"context"
	"errors"
	"fmt"

	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/effect"
	"github.com/petrijr/plano/pkg/plan"
	"github.com/petrijr/plano/pkg/registry"
)

type compiler[M any] struct {
	arrows Arrows[M]
	eff    effect.Effect[M]
	cfg    Config[M]
}

func (c *compiler[M]) compile(p plan.Plan, prefix string) Arrow[M] {
	path := plan.NodePath(prefix, p)
	switch n := p.(type) {
	case plan.TaskNode:
		step, _ := c.arrows.Lookup(n.Name())
		return c.task(step, path)
	case plan.SequenceNode:
		return c.sequence(c.group(n.Children(), prefix, plan.KindSequence))
	case plan.ParallelNode:
		return c.parallel(c.group(n.Children(), prefix, plan.KindParallel), path)
	case plan.ChooseNode:
		return c.choose(c.group(n.Children(), prefix, plan.KindChoose), path)
	case plan.FocusNode:
		return c.focus(n.Lens(), c.compile(n.Child(), plan.ScopePrefix(prefix, plan.KindFocus)), path)
	case plan.LoopNode:
		return c.loop(n.Predicate(), c.compile(n.Body(), plan.ScopePrefix(prefix, plan.KindLoopWhile)), path)
	}
	// Unreachable after preflight.
	return func(context.Context, any) (M, error) {
		var zero M
		return zero, api.NewStepError(path, api.ErrInvalidPlan, fmt.Errorf("unknown node %T", p))
	}
}

func (c *compiler[M]) group(children []plan.Plan, prefix string, k plan.Kind) []Arrow[M] {
	arrows := make([]Arrow[M], len(children))
	for i, child := range children {
		arrows[i] = c.compile(child, plan.ChildPrefix(prefix, k, i))
	}
	return arrows
}

func (c *compiler[M]) task(step registry.EffectAction[M], path string) Arrow[M] {
	return func(ctx context.Context, a any) (m M, err error) {
		if err := ctx.Err(); err != nil {
			return m, api.NewStepError(path, api.ErrActionFailure, err)
		}
		defer func() {
			if r := recover(); r != nil {
				err = api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("panic: %v", r))
			}
		}()
		return step(ctx, a), nil
	}
}

// bind feeds the value inside m to f. Bind calls f synchronously, so an
// interpreter fault raised by f can be carried out through the closure.
func (c *compiler[M]) bind(m M, f func(a any) (M, error)) (M, error) {
	var fault error
	out := c.eff.Bind(m, func(a any) M {
		next, err := f(a)
		if err != nil && fault == nil {
			fault = err
		}
		return next
	})
	if fault != nil {
		var zero M
		return zero, fault
	}
	return out, nil
}

func (c *compiler[M]) sequence(children []Arrow[M]) Arrow[M] {
	return func(ctx context.Context, a any) (M, error) {
		m := c.eff.Pure(a)
		for _, child := range children {
			var err error
			m, err = c.bind(m, func(v any) (M, error) { return child(ctx, v) })
			if err != nil {
				return m, err
			}
		}
		return m, nil
	}
}

func (c *compiler[M]) parallel(children []Arrow[M], path string) Arrow[M] {
	aggregate := c.cfg.Aggregate
	return func(ctx context.Context, a any) (M, error) {
		faults := make([]error, len(children))
		thunks := make([]func() M, len(children))
		for i, child := range children {
			thunks[i] = func() M {
				m, err := child(ctx, a)
				faults[i] = err
				return m
			}
		}
		collected := c.eff.Collect(thunks)
		if err := first(faults); err != nil {
			var zero M
			return zero, err
		}
		return c.bind(collected, func(v any) (M, error) {
			results, ok := v.([]any)
			if !ok {
				var zero M
				return zero, api.NewStepError(path, api.ErrStateType, fmt.Errorf("collect produced %T, want []any", v))
			}
			out, err := guard(func() (any, error) { return aggregate(results) })
			if err != nil {
				var zero M
				return zero, api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("aggregate: %w", err))
			}
			return c.eff.Pure(out), nil
		})
	}
}

func (c *compiler[M]) choose(children []Arrow[M], path string) Arrow[M] {
	selector := c.cfg.Choose
	return func(ctx context.Context, a any) (M, error) {
		var zero M
		results := make([]M, len(children))
		faults := make([]error, len(children))
		for i, child := range children {
			results[i], faults[i] = child(ctx, a)
		}
		if err := first(faults); err != nil {
			return zero, err
		}
		idx, err := guard(func() (int, error) { return selector(results) })
		if err != nil {
			return zero, api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("choose: %w", err))
		}
		if idx < 0 || idx >= len(results) {
			return zero, api.NewStepError(path, api.ErrSelectionOutOfRange,
				fmt.Errorf("index %d not in [0, %d)", idx, len(results)))
		}
		return results[idx], nil
	}
}

func (c *compiler[M]) focus(lens plan.Lens, child Arrow[M], path string) Arrow[M] {
	return func(ctx context.Context, a any) (M, error) {
		var zero M
		part, err := guard(func() (any, error) { return lens.Get(a) })
		if err != nil {
			return zero, api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("lens get: %w", err))
		}
		m, err := child(ctx, part)
		if err != nil {
			return zero, err
		}
		return c.bind(m, func(b any) (M, error) {
			whole, err := guard(func() (any, error) { return lens.Set(a, b) })
			if err != nil {
				return zero, api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("lens set: %w", err))
			}
			return c.eff.Pure(whole), nil
		})
	}
}

// loop keeps iterating while the effect carries a value and the predicate
// holds on it. A failed or empty effect ends the loop and is returned as is.
func (c *compiler[M]) loop(pred plan.Predicate, body Arrow[M], path string) Arrow[M] {
	limit := c.cfg.MaxIterations
	return func(ctx context.Context, a any) (M, error) {
		var zero M
		m := c.eff.Pure(a)
		for i := 0; ; i++ {
			v, ok := c.eff.Unwrap(m)
			if !ok {
				return m, nil
			}
			again, err := guard(func() (bool, error) { return pred(v) })
			if err != nil {
				kind := api.ErrActionFailure
				if errors.Is(err, api.ErrStateType) {
					kind = api.ErrStateType
				}
				return zero, api.NewStepError(path, kind, fmt.Errorf("predicate: %w", err))
			}
			if !again {
				return m, nil
			}
			if limit > 0 && i >= limit {
				return zero, api.NewStepError(path, api.ErrIterationLimit,
					fmt.Errorf("predicate still true after %d iterations", limit))
			}
			if err := ctx.Err(); err != nil {
				return zero, api.NewStepError(path, api.ErrActionFailure, err)
			}
			m, err = c.bind(m, func(v any) (M, error) { return body(ctx, v) })
			if err != nil {
				return zero, err
			}
		}
	}
}

func first(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func guard[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
