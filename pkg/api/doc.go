// Package api contains the shared building blocks of the plano engine: the
// canonical Action shape, combinator function types, the run trace, the
// error taxonomy and the Observer family.
//
// Most users interact with the higher-level plano package, which re-exports
// selected types and helpers from this package. The api package is intended
// for custom integrations and for contributors extending the interpreters.
//
// # Actions
//
// Every step a plan can name is stored as an Action:
//
//	func(ctx context.Context, state any) (any, error)
//
// The registry adapts other function shapes to this form once, at
// registration time. The run environment is carried in ctx; use WithEnv to
// attach it and EnvFromContext to read it.
//
// TypedAction and PureAction wrap strongly typed functions. A state of the
// wrong dynamic type fails with ErrStateType instead of panicking.
//
// # Combinators
//
// A Parallel node needs an AggregateFunc that folds its ordered child results
// into one state; a Choose node needs a ChooseFunc that returns the index of
// the winning child. Concat, Collect and Last are ready-made aggregators;
// First, Argmax and Argmin are ready-made selectors.
//
// # Errors
//
// Interpreters fail with *StepError, which carries the path of the failing
// node and a Kind sentinel (ErrUnregisteredAction, ErrMissingCombinator,
// ErrSelectionOutOfRange, ErrActionFailure, ...). errors.Is matches both the
// kind and the underlying cause.
//
// # Observability
//
// Observers receive run and step lifecycle callbacks. LoggingObserver logs
// them with log/slog, BasicMetrics counts them, and NewCompositeObserver fans
// events out to several observers.
package api
