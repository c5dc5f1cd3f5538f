package engine

import (
	"log/slog"

	"github.com/petrijr/plano/pkg/api"
)

// ChoosePolicy controls how Choose nodes evaluate their branches.
type ChoosePolicy int

const (
	// ChooseSelect runs every branch to completion and lets the selector
	// pick one result.
	ChooseSelect ChoosePolicy = iota

	// ChooseFirstCompleted races the branches concurrently. The first branch
	// to succeed wins and the others are cancelled through their context.
	// No selector is needed.
	ChooseFirstCompleted
)

func (p ChoosePolicy) String() string {
	switch p {
	case ChooseSelect:
		return "select"
	case ChooseFirstCompleted:
		return "first_completed"
	default:
		return "unknown"
	}
}

// Config holds the settings of a compiled runner.
type Config struct {
	Name          string
	Aggregate     api.AggregateFunc
	Choose        api.ChooseFunc
	Snapshots     bool
	Observer      api.Observer
	Logger        *slog.Logger
	Concurrency   int
	MaxIterations int
	ChoosePolicy  ChoosePolicy
}

// Option configures a runner at compile time.
type Option func(*Config)

// WithAggregate sets the fold used by every Parallel node.
func WithAggregate(fn api.AggregateFunc) Option {
	return func(c *Config) { c.Aggregate = fn }
}

// WithChoose sets the selector used by every Choose node.
func WithChoose(fn api.ChooseFunc) Option {
	return func(c *Config) { c.Choose = fn }
}

// WithSnapshots records deep copies of the state before and after each step.
func WithSnapshots(on bool) Option {
	return func(c *Config) { c.Snapshots = on }
}

// WithObserver attaches an observer. Several calls compose.
func WithObserver(obs api.Observer) Option {
	return func(c *Config) { c.Observer = api.NewCompositeObserver(c.Observer, obs) }
}

// WithLogger logs run and step events to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithConcurrency lets Parallel and Choose nodes run up to n children at
// once. n <= 1 evaluates children one after another.
func WithConcurrency(n int) Option {
	return func(c *Config) { c.Concurrency = n }
}

// WithMaxIterations caps every LoopWhile at n iterations; 0 means no cap.
func WithMaxIterations(n int) Option {
	return func(c *Config) { c.MaxIterations = n }
}

// WithChoosePolicy selects how Choose nodes evaluate their branches.
func WithChoosePolicy(p ChoosePolicy) Option {
	return func(c *Config) { c.ChoosePolicy = p }
}

// WithName names the runner in results, logs and metrics.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

func newConfig(defaultName string, opts []Option) Config {
	cfg := Config{Name: defaultName}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	obs := []api.Observer{cfg.Observer}
	if cfg.Logger != nil {
		obs = append(obs, api.NewLoggingObserver(cfg.Logger))
	}
	cfg.Observer = api.NewCompositeObserver(obs...)
	return cfg
}
