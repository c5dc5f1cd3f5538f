package api

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPlan reports a structurally broken plan: an empty task name, a
	// Parallel or Choose without children, a nil child and so on.
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrUnregisteredAction is returned at compile time when a Task names an
	// action the registry does not know.
	ErrUnregisteredAction = errors.New("unregistered action")

	// ErrMissingCombinator is returned at compile time when a Parallel node has
	// no aggregate function or a Choose node has no selector.
	ErrMissingCombinator = errors.New("missing combinator")

	// ErrUnsupportedSignature is returned by registration for functions whose
	// shape cannot be adapted to an Action.
	ErrUnsupportedSignature = errors.New("unsupported action signature")

	// ErrSelectionOutOfRange is returned when a selector picks an index outside
	// the list of branch results.
	ErrSelectionOutOfRange = errors.New("selection out of range")

	// ErrActionFailure wraps an error raised by a user function: an action, a
	// lens, a predicate, an aggregator or a selector.
	ErrActionFailure = errors.New("action failed")

	// ErrIterationLimit is returned when a loop runs more iterations than the
	// configured cap.
	ErrIterationLimit = errors.New("loop iteration limit exceeded")

	// ErrStateType is returned by typed adapters when the state has a different
	// dynamic type than the one they were written for.
	ErrStateType = errors.New("unexpected state type")

	ErrInvalidAction   = errors.New("invalid action")
	ErrDuplicateAction = errors.New("duplicate action")
)

// StepError is the error type produced by the interpreters. Path locates the
// node that failed (for example "Sequence[2].Parallel[1].upper"), Kind is one
// of the sentinel errors above and Err is the underlying cause, if any.
//
// errors.Is matches both Kind and anything in the Err chain.
type StepError struct {
	Path string
	Kind error
	Err  error
}

// NewStepError builds a StepError.
func NewStepError(path string, kind, err error) *StepError {
	return &StepError{Path: path, Kind: kind, Err: err}
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
}

func (e *StepError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StepPath returns the path of the first StepError found in err's tree.
func StepPath(err error) (string, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Path, true
	}
	return "", false
}
