package plano

import (
	"github.com/petrijr/plano/internal/engine"
	"github.com/petrijr/plano/internal/kleisli"
	"github.com/petrijr/plano/internal/persistence"
	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/effect"
	"github.com/petrijr/plano/pkg/plan"
	"github.com/petrijr/plano/pkg/registry"
)

// Re-export key types so users don't need to dig into the sub packages.

type (
	Plan         = plan.Plan
	Kind         = plan.Kind
	Lens         = plan.Lens
	Predicate    = plan.Predicate
	TaskNode     = plan.TaskNode
	SequenceNode = plan.SequenceNode
	ParallelNode = plan.ParallelNode
	ChooseNode   = plan.ChooseNode
	FocusNode    = plan.FocusNode
	LoopNode     = plan.LoopNode

	Action        = api.Action
	AggregateFunc = api.AggregateFunc
	ChooseFunc    = api.ChooseFunc
	StepError     = api.StepError
	StepRecord    = api.StepRecord
	Trace         = api.Trace
	RunResult     = api.RunResult
	RunInfo       = api.RunInfo

	Observer             = api.Observer
	NoopObserver         = api.NoopObserver
	CompositeObserver    = api.CompositeObserver
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot

	Registry = registry.Registry

	Runner       = engine.Runner
	Option       = engine.Option
	ChoosePolicy = engine.ChoosePolicy

	RunStore  = persistence.RunStore
	RunRecord = persistence.RunRecord
	RunFilter = persistence.RunFilter
	RunStatus = persistence.RunStatus
)

// Effectful interpretation.

type (
	Effect[M any]       = effect.Effect[M]
	Arrows[M any]       = registry.Arrows[M]
	Arrow[M any]        = kleisli.Arrow[M]
	EffectOption[M any] = kleisli.Option[M]
)

// Error kinds.

var (
	ErrInvalidPlan          = api.ErrInvalidPlan
	ErrUnregisteredAction   = api.ErrUnregisteredAction
	ErrMissingCombinator    = api.ErrMissingCombinator
	ErrUnsupportedSignature = api.ErrUnsupportedSignature
	ErrSelectionOutOfRange  = api.ErrSelectionOutOfRange
	ErrActionFailure        = api.ErrActionFailure
	ErrIterationLimit       = api.ErrIterationLimit
	ErrStateType            = api.ErrStateType
	ErrRunNotFound          = persistence.ErrRunNotFound
)

// Plan constructors. The short forms panic on invalid input and are meant
// for plan literals; the New* forms return an error.

var (
	Task      = plan.Task
	Sequence  = plan.Sequence
	Parallel  = plan.Parallel
	Choose    = plan.Choose
	Focus     = plan.Focus
	LoopWhile = plan.LoopWhile
	Steps     = plan.Steps

	NewTask      = plan.NewTask
	NewSequence  = plan.NewSequence
	NewParallel  = plan.NewParallel
	NewChoose    = plan.NewChoose
	NewFocus     = plan.NewFocus
	NewLoopWhile = plan.NewLoopWhile

	Key           = plan.Key
	Index         = plan.Index
	MakeLens      = plan.MakeLens
	MakePredicate = plan.MakePredicate
	Validate      = plan.Validate
	TaskNames     = plan.TaskNames
	String        = plan.String
)

// Registries and observers.

var (
	NewRegistry          = registry.New
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	WithEnv              = api.WithEnv
	EnvFromContext       = api.EnvFromContext
)

// Runner options.

var (
	WithAggregate     = engine.WithAggregate
	WithChoose        = engine.WithChoose
	WithSnapshots     = engine.WithSnapshots
	WithObserver      = engine.WithObserver
	WithLogger        = engine.WithLogger
	WithConcurrency   = engine.WithConcurrency
	WithMaxIterations = engine.WithMaxIterations
	WithChoosePolicy  = engine.WithChoosePolicy
	WithName          = engine.WithName
)

const (
	ChooseSelect         = engine.ChooseSelect
	ChooseFirstCompleted = engine.ChooseFirstCompleted

	StatusQueued    = persistence.StatusQueued
	StatusRunning   = persistence.StatusRunning
	StatusCompleted = persistence.StatusCompleted
	StatusFailed    = persistence.StatusFailed
)

// CompileLinear compiles a list of action names applied left to right.
// Every name is checked up front; an empty list is the identity.
func CompileLinear(reg *Registry, names []string, opts ...Option) (*Runner, error) {
	return engine.CompileLinear(reg, names, opts...)
}

// CompileStructured checks p against reg and the configured combinators
// and returns a Runner for it.
func CompileStructured(reg *Registry, p Plan, opts ...Option) (*Runner, error) {
	return engine.Compile(reg, p, opts...)
}

// NewArrows returns an empty registry of effectful actions.
func NewArrows[M any]() *Arrows[M] {
	return registry.NewArrows[M]()
}

// CompileEffectful compiles p into an arrow in the effect eff. Step
// failures travel inside M; the error result of the arrow is reserved for
// interpreter faults.
func CompileEffectful[M any](arrows *Arrows[M], p Plan, eff Effect[M], opts ...EffectOption[M]) (Arrow[M], error) {
	return kleisli.Compile[M](arrows, p, eff, opts...)
}

// WithEffectAggregate sets the fold for Parallel nodes of an effectful plan.
func WithEffectAggregate[M any](fn AggregateFunc) EffectOption[M] {
	return kleisli.WithAggregate[M](fn)
}

// WithEffectChoose sets the selector for Choose nodes of an effectful plan.
func WithEffectChoose[M any](fn func(results []M) (int, error)) EffectOption[M] {
	return kleisli.WithChoose[M](fn)
}

// WithEffectMaxIterations caps every LoopWhile of an effectful plan.
func WithEffectMaxIterations[M any](n int) EffectOption[M] {
	return kleisli.WithMaxIterations[M](n)
}
