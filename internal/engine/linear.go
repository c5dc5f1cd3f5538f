package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/petrijr/plano/internal/preflight"
	"github.com/petrijr/plano/pkg/api"
)

// CompileLinear compiles a flat list of action names into a Runner that
// applies them left to right. There is no plan tree and no combinator; the
// path of the i-th step is "Linear[i].name". An empty list is the identity.
func CompileLinear(actions Actions, names []string, opts ...Option) (*Runner, error) {
	cfg := newConfig("linear", opts)
	c := &compiler{actions: actions, cfg: cfg}

	var errs []error
	steps := make([]node, 0, len(names))
	for i, name := range names {
		path := fmt.Sprintf("Linear[%d].%s", i, name)
		if strings.TrimSpace(name) == "" {
			errs = append(errs, api.NewStepError(path, api.ErrInvalidPlan, errors.New("task name must not be empty")))
			continue
		}
		action, ok := actions.Lookup(name)
		if !ok {
			errs = append(errs, preflight.Unregistered(path, name, catalog{actions}))
			continue
		}
		steps = append(steps, c.task(name, path, action))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, root: c.sequence(steps)}, nil
}
