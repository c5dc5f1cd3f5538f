// Package engine implements the direct and linear interpreters: it compiles
// a plan against a registry into a Runner that threads a state through the
// registered actions and records a trace of every step.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/plano/internal/preflight"
	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
)

// Actions is the view of a registry the interpreters need.
type Actions interface {
	Lookup(name string) (api.Action, bool)
}

type suggester interface {
	Suggest(name string) []string
}

type catalog struct{ Actions }

func (c catalog) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

func (c catalog) Suggest(name string) []string {
	if s, ok := c.Actions.(suggester); ok {
		return s.Suggest(name)
	}
	return nil
}

// node is a compiled plan node. It returns the new state together with the
// records of the steps it ran, in execution order.
type node func(ctx context.Context, run *api.RunInfo, state any) (any, api.Trace, error)

// Runner is a compiled plan. It is safe for concurrent use; every call to
// Run is an independent run.
type Runner struct {
	cfg  Config
	root node
}

// Compile checks p against actions and the configured combinators and
// returns a Runner. Every defect is reported at once; no action is invoked.
func Compile(actions Actions, p plan.Plan, opts ...Option) (*Runner, error) {
	cfg := newConfig("structured", opts)
	err := preflight.Check(p, preflight.Requirements{
		Catalog:      catalog{actions},
		HasAggregate: cfg.Aggregate != nil,
		HasChoose:    cfg.Choose != nil || cfg.ChoosePolicy == ChooseFirstCompleted,
	})
	if err != nil {
		return nil, err
	}
	c := &compiler{actions: actions, cfg: cfg}
	return &Runner{cfg: cfg, root: c.compile(p, "")}, nil
}

// Name is the runner's name as set with WithName.
func (r *Runner) Name() string { return r.cfg.Name }

// Run evaluates the plan on state.
//
// On failure the returned result is still non-nil: Output is nil and Trace
// holds every step that ran, including the failing one.
func (r *Runner) Run(ctx context.Context, state any) (*api.RunResult, error) {
	id, ok := api.RunIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
	}
	run := &api.RunInfo{ID: id, Plan: r.cfg.Name, Started: time.Now()}
	obs := r.cfg.Observer
	obs.OnRunStart(ctx, run)

	out, trace, err := r.root(ctx, run, state)
	res := &api.RunResult{
		ID:       run.ID,
		Plan:     run.Plan,
		Trace:    trace,
		Started:  run.Started,
		Duration: time.Since(run.Started),
	}
	if err != nil {
		obs.OnRunFailed(ctx, run, err)
		return res, err
	}
	res.Output = out
	obs.OnRunCompleted(ctx, run, res.Duration)
	return res, nil
}
