// Package kleisli interprets plans in an effect type M. Each step returns
// its result wrapped in M, and the plan's combinators are expressed through
// the effect's Pure, Bind and Collect, so the interpreter never needs to
// know which effect it runs in.
package kleisli

import (
	"context"
	"fmt"

	"github.com/petrijr/plano/internal/preflight"
	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/effect"
	"github.com/petrijr/plano/pkg/plan"
	"github.com/petrijr/plano/pkg/registry"
)

// Arrow is a compiled effectful plan. The error result is reserved for
// interpreter faults such as an out-of-range selection or a failing lens;
// failures of the steps themselves travel inside M.
type Arrow[M any] func(ctx context.Context, a any) (M, error)

// Arrows is the view of an effectful registry the interpreter needs.
type Arrows[M any] interface {
	Lookup(name string) (registry.EffectAction[M], bool)
}

type suggester interface {
	Suggest(name string) []string
}

type catalog[M any] struct{ arrows Arrows[M] }

func (c catalog[M]) Has(name string) bool {
	_, ok := c.arrows.Lookup(name)
	return ok
}

func (c catalog[M]) Suggest(name string) []string {
	if s, ok := c.arrows.(suggester); ok {
		return s.Suggest(name)
	}
	return nil
}

// Config holds the combinators of an effectful compile.
type Config[M any] struct {
	Aggregate     api.AggregateFunc
	Choose        func(results []M) (int, error)
	MaxIterations int
}

// Option configures Compile.
type Option[M any] func(*Config[M])

// WithAggregate sets the fold applied to the collected results of Parallel
// nodes.
func WithAggregate[M any](fn api.AggregateFunc) Option[M] {
	return func(c *Config[M]) { c.Aggregate = fn }
}

// WithChoose sets the selector of Choose nodes. It sees the effect-wrapped
// branch results, so it can prefer successful branches.
func WithChoose[M any](fn func(results []M) (int, error)) Option[M] {
	return func(c *Config[M]) { c.Choose = fn }
}

// WithMaxIterations caps every LoopWhile at n iterations; 0 means no cap.
func WithMaxIterations[M any](n int) Option[M] {
	return func(c *Config[M]) { c.MaxIterations = n }
}

// Compile checks p and returns its effectful interpretation.
func Compile[M any](arrows Arrows[M], p plan.Plan, eff effect.Effect[M], opts ...Option[M]) (Arrow[M], error) {
	var cfg Config[M]
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if eff == nil {
		return nil, fmt.Errorf("%w: nil effect", api.ErrInvalidPlan)
	}
	err := preflight.Check(p, preflight.Requirements{
		Catalog:      catalog[M]{arrows},
		HasAggregate: cfg.Aggregate != nil,
		HasChoose:    cfg.Choose != nil,
	})
	if err != nil {
		return nil, err
	}
	c := &compiler[M]{arrows: arrows, eff: eff, cfg: cfg}
	return c.compile(p, ""), nil
}
