// Package preflight checks a plan against a registry and a set of
// combinators before any state flows through it.
package preflight

import (
	"errors"
	"fmt"
	"strings"

	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
)

// Catalog is the view of a registry the check needs.
type Catalog interface {
	Has(name string) bool
	Suggest(name string) []string
}

// Requirements describes what the interpreter being compiled for provides.
type Requirements struct {
	Catalog Catalog

	// HasAggregate is true when Parallel nodes can be folded.
	HasAggregate bool

	// HasChoose is true when Choose nodes can pick a branch.
	HasChoose bool
}

// Check reports every defect of p: structural problems, tasks naming
// unregistered actions and nodes whose combinator is missing. All problems
// are returned together, each as an *api.StepError carrying the node path.
func Check(p plan.Plan, req Requirements) error {
	if err := plan.Validate(p); err != nil {
		return err
	}
	var errs []error
	_ = plan.Walk(p, func(path string, n plan.Plan) error {
		switch n := n.(type) {
		case plan.TaskNode:
			if !req.Catalog.Has(n.Name()) {
				errs = append(errs, Unregistered(path, n.Name(), req.Catalog))
			}
		case plan.ParallelNode:
			if !req.HasAggregate {
				errs = append(errs, api.NewStepError(path, api.ErrMissingCombinator,
					errors.New("parallel needs an aggregate function")))
			}
		case plan.ChooseNode:
			if !req.HasChoose {
				errs = append(errs, api.NewStepError(path, api.ErrMissingCombinator,
					errors.New("choose needs a selector")))
			}
		}
		return nil
	})
	return errors.Join(errs...)
}

// Unregistered builds the error for a task naming an unknown action, with
// close matches as a hint.
func Unregistered(path, name string, c Catalog) error {
	msg := fmt.Sprintf("%q", name)
	if hints := c.Suggest(name); len(hints) > 0 {
		msg += " (did you mean " + strings.Join(hints, ", ") + "?)"
	}
	return api.NewStepError(path, api.ErrUnregisteredAction, errors.New(msg))
}
