package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petrijr/plano/internal/snapshot"
	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
)

type compiler struct {
	actions Actions
	cfg     Config
}

func (c *compiler) compile(p plan.Plan, prefix string) node {
	path := plan.NodePath(prefix, p)
	switch n := p.(type) {
	case plan.TaskNode:
		action, _ := c.actions.Lookup(n.Name())
		return c.task(n.Name(), path, action)
	case plan.SequenceNode:
		return c.sequence(c.group(n.Children(), prefix, plan.KindSequence))
	case plan.ParallelNode:
		return c.parallel(c.group(n.Children(), prefix, plan.KindParallel), path)
	case plan.ChooseNode:
		children := c.group(n.Children(), prefix, plan.KindChoose)
		if c.cfg.ChoosePolicy == ChooseFirstCompleted {
			return c.race(children, path)
		}
		return c.choose(children, path)
	case plan.FocusNode:
		return c.focus(n.Lens(), c.compile(n.Child(), plan.ScopePrefix(prefix, plan.KindFocus)), path)
	case plan.LoopNode:
		return c.loop(n.Predicate(), c.compile(n.Body(), plan.ScopePrefix(prefix, plan.KindLoopWhile)), path)
	}
	// Unreachable after preflight.
	return func(context.Context, *api.RunInfo, any) (any, api.Trace, error) {
		return nil, nil, api.NewStepError(path, api.ErrInvalidPlan, fmt.Errorf("unknown node %T", p))
	}
}

func (c *compiler) group(children []plan.Plan, prefix string, k plan.Kind) []node {
	nodes := make([]node, len(children))
	for i, child := range children {
		nodes[i] = c.compile(child, plan.ChildPrefix(prefix, k, i))
	}
	return nodes
}

func (c *compiler) task(name, path string, action api.Action) node {
	obs := c.cfg.Observer
	snapshots := c.cfg.Snapshots
	return func(ctx context.Context, run *api.RunInfo, state any) (any, api.Trace, error) {
		rec := api.StepRecord{Path: path, Name: name, Started: time.Now()}
		if snapshots {
			rec.Input = snapshot.Copy(state)
		}
		obs.OnStepStart(ctx, run, name, path)

		out, err := invoke(ctx, action, state)
		rec.Duration = time.Since(rec.Started)
		obs.OnStepCompleted(ctx, run, name, path, err, rec.Duration)
		if err != nil {
			rec.Err = err.Error()
			return nil, api.Trace{rec}, api.NewStepError(path, api.ErrActionFailure, err)
		}

		rec.OK = true
		if snapshots {
			rec.Snapshot = snapshot.Copy(out)
		}
		return out, api.Trace{rec}, nil
	}
}

func invoke(ctx context.Context, action api.Action, state any) (out any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return action(ctx, state)
}

// guard runs a user function, turning a panic into an error.
func guard[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (c *compiler) sequence(children []node) node {
	return func(ctx context.Context, run *api.RunInfo, state any) (any, api.Trace, error) {
		var trace api.Trace
		cur := state
		for _, child := range children {
			next, t, err := child(ctx, run, cur)
			trace = append(trace, t...)
			if err != nil {
				return nil, trace, err
			}
			cur = next
		}
		return cur, trace, nil
	}
}

// fanOut runs every child on the same input and returns their results in
// child order. All children run to completion; the error of the
// lowest-index failing child is returned.
func (c *compiler) fanOut(ctx context.Context, run *api.RunInfo, children []node, state any) ([]any, api.Trace, error) {
	results := make([]any, len(children))
	traces := make([]api.Trace, len(children))
	errs := make([]error, len(children))

	if c.cfg.Concurrency <= 1 {
		for i, child := range children {
			results[i], traces[i], errs[i] = child(ctx, run, state)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.cfg.Concurrency)
		for i, child := range children {
			g.Go(func() error {
				results[i], traces[i], errs[i] = child(ctx, run, state)
				return nil
			})
		}
		_ = g.Wait()
	}

	trace := concat(traces)
	for _, err := range errs {
		if err != nil {
			return nil, trace, err
		}
	}
	return results, trace, nil
}

func concat(traces []api.Trace) api.Trace {
	var out api.Trace
	for _, t := range traces {
		out = append(out, t...)
	}
	return out
}

func (c *compiler) parallel(children []node, path string) node {
	aggregate := c.cfg.Aggregate
	return func(ctx context.Context, run *api.RunInfo, state any) (any, api.Trace, error) {
		results, trace, err := c.fanOut(ctx, run, children, state)
		if err != nil {
			return nil, trace, err
		}
		out, err := guard(func() (any, error) { return aggregate(results) })
		if err != nil {
			return nil, trace, api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("aggregate: %w", err))
		}
		return out, trace, nil
	}
}

func (c *compiler) choose(children []node, path string) node {
	selector := c.cfg.Choose
	return func(ctx context.Context, run *api.RunInfo, state any) (any, api.Trace, error) {
		results, trace, err := c.fanOut(ctx, run, children, state)
		if err != nil {
			return nil, trace, err
		}
		idx, err := guard(func() (int, error) { return selector(results) })
		if err != nil {
			return nil, trace, api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("choose: %w", err))
		}
		if idx < 0 || idx >= len(results) {
			return nil, trace, api.NewStepError(path, api.ErrSelectionOutOfRange,
				fmt.Errorf("index %d not in [0, %d)", idx, len(results)))
		}
		return results[idx], trace, nil
	}
}

// race runs every branch concurrently and keeps the first success. Losing
// branches see a cancelled context; race waits for them to return so their
// records end up in the trace.
func (c *compiler) race(children []node, path string) node {
	return func(ctx context.Context, run *api.RunInfo, state any) (any, api.Trace, error) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		traces := make([]api.Trace, len(children))
		errs := make([]error, len(children))
		var (
			once   sync.Once
			winner = -1
			out    any
			g      errgroup.Group
		)
		for i, child := range children {
			g.Go(func() error {
				res, t, err := child(ctx, run, state)
				traces[i], errs[i] = t, err
				if err == nil {
					once.Do(func() {
						winner, out = i, res
						cancel()
					})
				}
				return nil
			})
		}
		_ = g.Wait()

		trace := concat(traces)
		if winner >= 0 {
			return out, trace, nil
		}
		for _, err := range errs {
			if err != nil {
				return nil, trace, err
			}
		}
		return nil, trace, api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("no branch completed"))
	}
}

func (c *compiler) focus(lens plan.Lens, child node, path string) node {
	return func(ctx context.Context, run *api.RunInfo, state any) (any, api.Trace, error) {
		part, err := guard(func() (any, error) { return lens.Get(state) })
		if err != nil {
			return nil, nil, api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("lens get: %w", err))
		}
		out, trace, err := child(ctx, run, part)
		if err != nil {
			return nil, trace, err
		}
		whole, err := guard(func() (any, error) { return lens.Set(state, out) })
		if err != nil {
			return nil, trace, api.NewStepError(path, api.ErrActionFailure, fmt.Errorf("lens set: %w", err))
		}
		return whole, trace, nil
	}
}

func (c *compiler) loop(pred plan.Predicate, body node, path string) node {
	limit := c.cfg.MaxIterations
	return func(ctx context.Context, run *api.RunInfo, state any) (any, api.Trace, error) {
		var trace api.Trace
		cur := state
		for i := 0; ; i++ {
			again, err := guard(func() (bool, error) { return pred(cur) })
			if err != nil {
				return nil, trace, predicateError(path, err)
			}
			if !again {
				return cur, trace, nil
			}
			if limit > 0 && i >= limit {
				return nil, trace, api.NewStepError(path, api.ErrIterationLimit,
					fmt.Errorf("predicate still true after %d iterations", limit))
			}
			if err := ctx.Err(); err != nil {
				return nil, trace, api.NewStepError(path, api.ErrActionFailure, err)
			}
			next, t, err := body(ctx, run, cur)
			trace = append(trace, t...)
			if err != nil {
				return nil, trace, err
			}
			cur = next
		}
	}
}

// predicateError tags a failed loop predicate. A state of the wrong type is
// reported as such rather than as a failing user function.
func predicateError(path string, err error) error {
	kind := api.ErrActionFailure
	if errors.Is(err, api.ErrStateType) {
		kind = api.ErrStateType
	}
	return api.NewStepError(path, kind, fmt.Errorf("predicate: %w", err))
}
