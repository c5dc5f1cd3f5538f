package plano

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/petrijr/plano/internal/persistence"
)

// Evaluator scores the output of a successful run. Higher is better.
type Evaluator func(output any) (float64, error)

// Report is the outcome of a run made by an Agent.
type Report struct {
	*RunResult
	// Score is set when the agent has an evaluator and the run succeeded.
	Score  float64
	Scored bool
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithEvaluator sets the evaluator used to score outputs.
func WithEvaluator(fn Evaluator) AgentOption {
	return func(a *Agent) { a.eval = fn }
}

// WithRunStore makes the agent save the record of every run, successful or
// not, to store.
func WithRunStore(store RunStore) AgentOption {
	return func(a *Agent) { a.store = store }
}

// WithRunOptions sets the runner options applied to every compile, such
// as the aggregate and choose combinators or snapshots.
func WithRunOptions(opts ...Option) AgentOption {
	return func(a *Agent) { a.opts = append(a.opts, opts...) }
}

// Agent bundles a registry with the defaults used to compile and run plans
// against it.
//
// Typical usage:
//
//	agent := plano.NewAgent(reg,
//	    plano.WithRunOptions(plano.WithAggregate(plano.Concat(""))),
//	    plano.WithEvaluator(score),
//	    plano.WithRunStore(store))
//
//	best, report, err := agent.ChooseBest(ctx, candidates, input)
type Agent struct {
	reg   *Registry
	opts  []Option
	eval  Evaluator
	store RunStore
}

// NewAgent returns an agent for the actions in reg.
func NewAgent(reg *Registry, opts ...AgentOption) *Agent {
	a := &Agent{reg: reg}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Run compiles p with the agent's options and runs it on input.
//
// Compile errors are returned without a report. When the run itself fails
// the report still carries the partial trace.
func (a *Agent) Run(ctx context.Context, p Plan, input any, opts ...Option) (*Report, error) {
	r, err := CompileStructured(a.reg, p, a.options(opts)...)
	if err != nil {
		return nil, err
	}
	return a.execute(ctx, r, input)
}

// RunLinear is Run for a flat list of action names.
func (a *Agent) RunLinear(ctx context.Context, names []string, input any, opts ...Option) (*Report, error) {
	r, err := CompileLinear(a.reg, names, a.options(opts)...)
	if err != nil {
		return nil, err
	}
	return a.execute(ctx, r, input)
}

// ChooseBest runs every candidate on input and returns the index and report
// of the one with the highest score. The first candidate wins ties. It needs
// an evaluator and fails on the first candidate that does not run.
func (a *Agent) ChooseBest(ctx context.Context, candidates []Plan, input any) (int, *Report, error) {
	if a.eval == nil {
		return -1, nil, errors.New("plano: ChooseBest needs an evaluator")
	}
	if len(candidates) == 0 {
		return -1, nil, errors.New("plano: ChooseBest needs at least one candidate")
	}

	best := -1
	var bestReport *Report
	for i, p := range candidates {
		rep, err := a.Run(ctx, p, input)
		if err != nil {
			return -1, rep, fmt.Errorf("candidate %d: %w", i, err)
		}
		if best < 0 || rep.Score > bestReport.Score {
			best, bestReport = i, rep
		}
	}
	return best, bestReport, nil
}

func (a *Agent) options(extra []Option) []Option {
	return append(slices.Clone(a.opts), extra...)
}

func (a *Agent) execute(ctx context.Context, r *Runner, input any) (*Report, error) {
	res, runErr := r.Run(ctx, input)
	rep := &Report{RunResult: res}

	if runErr == nil && a.eval != nil {
		score, err := a.eval(res.Output)
		if err != nil {
			runErr = fmt.Errorf("evaluate run %s: %w", res.ID, err)
		} else {
			rep.Score, rep.Scored = score, true
		}
	}

	if a.store != nil {
		if err := a.store.SaveRun(ctx, persistence.NewRunRecord(res, runErr)); err != nil {
			return rep, errors.Join(runErr, fmt.Errorf("save run %s: %w", res.ID, err))
		}
	}
	return rep, runErr
}
