package plano

import (
	"fmt"
	"slices"
)

// Flow provides a fluent API for linear workflows built from inline
// functions:
//
//	runner := plano.New("clean").
//	    Step("trim", plano.Pure(strings.TrimSpace)).
//	    Step("upper", plano.Pure(strings.ToUpper)).
//	    Then("trim").
//	    MustCompile()
//
//	res, err := runner.Run(ctx, "  hello ")
//
// Steps are registered in a registry private to the flow.
type Flow struct {
	name  string
	reg   *Registry
	steps []string
}

// New creates a new flow with the given name.
func New(name string) *Flow {
	return &Flow{name: name, reg: NewRegistry()}
}

// Name returns the flow name.
func (f *Flow) Name() string {
	return f.name
}

// Step defines an action and appends it to the flow. fn may have any shape
// accepted by Registry.Register.
func (f *Flow) Step(name string, fn any) *Flow {
	if name == "" {
		panic("plano: step name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("plano: step %q has nil function", name))
	}
	if err := f.reg.Register(name, fn); err != nil {
		panic(fmt.Sprintf("plano: step %q: %v", name, err))
	}
	f.steps = append(f.steps, name)
	return f
}

// Then appends an already defined step again.
func (f *Flow) Then(name string) *Flow {
	if _, ok := f.reg.Lookup(name); !ok {
		panic(fmt.Sprintf("plano: step %q is not defined", name))
	}
	f.steps = append(f.steps, name)
	return f
}

// Names returns the step names in execution order.
func (f *Flow) Names() []string {
	return slices.Clone(f.steps)
}

// Registry returns the registry holding the flow's steps.
func (f *Flow) Registry() *Registry {
	return f.reg
}

// Plan returns the flow as a Sequence of tasks, for use with the structured
// interpreter or as part of a larger plan.
func (f *Flow) Plan() Plan {
	return Steps(f.steps...)
}

// Compile returns a linear Runner named after the flow. Options given here
// are applied after the name, so WithName still overrides it.
func (f *Flow) Compile(opts ...Option) (*Runner, error) {
	return CompileLinear(f.reg, f.Names(), append([]Option{WithName(f.name)}, opts...)...)
}

// MustCompile is like Compile but panics on error.
func (f *Flow) MustCompile(opts ...Option) *Runner {
	r, err := f.Compile(opts...)
	if err != nil {
		panic(fmt.Sprintf("plano: compile flow %q: %v", f.name, err))
	}
	return r
}
