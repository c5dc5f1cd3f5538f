// Package planfile reads plan documents: YAML (or JSON) files describing a
// plan tree together with the names of the combinators it runs with.
//
//	name: clean-title
//	plan:
//	  sequence:
//	    - task: denoise
//	    - focus:
//	        lens: key:title
//	        do: { task: upper }
//	    - loop_while:
//	        predicate: len_lt:8
//	        body: pad
//	aggregate: list
//	choose: first
//	input: { title: "~hello~" }
//
// A node is either a bare string, which is a task, or a mapping with exactly
// one of the keys task, sequence, parallel, choose, focus and loop_while.
// Lenses, predicates, aggregators and selectors are referred to by name and
// resolved through Bindings.
package planfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/petrijr/plano/internal/engine"
	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
)

// ErrUnknownBinding is returned when a document names a lens, predicate,
// aggregator or selector the bindings do not know.
var ErrUnknownBinding = errors.New("unknown binding")

// Document is a parsed plan document.
type Document struct {
	Name string
	Plan plan.Plan

	// AggregateName and ChooseName are the names used in the document; the
	// resolved functions are nil when the document names none.
	AggregateName string
	ChooseName    string
	Aggregate     api.AggregateFunc
	Choose        api.ChooseFunc

	// Input is the default input of the plan, if the document has one.
	Input any
}

// rawDocument is the top level of a document before the plan is built.
type rawDocument struct {
	Name      string `mapstructure:"name"`
	Plan      any    `mapstructure:"plan"`
	Aggregate string `mapstructure:"aggregate"`
	Choose    string `mapstructure:"choose"`
	Input     any    `mapstructure:"input"`
}

// Load reads and parses the document at path.
func Load(path string, b Bindings) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan document: %w", err)
	}
	doc, err := Parse(data, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse parses a document. Every problem is reported together with its
// location in the document, e.g. "plan.sequence[1].focus.lens".
func Parse(data []byte, b Bindings) (*Document, error) {
	var top map[string]any
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parse plan document: %w", err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: empty plan document", api.ErrInvalidPlan)
	}

	var raw rawDocument
	if err := decodeStrict(top, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrInvalidPlan, err)
	}
	if raw.Plan == nil {
		return nil, fmt.Errorf("%w: document has no plan", api.ErrInvalidPlan)
	}

	bd := &builder{bindings: b}
	doc := &Document{
		Name:          raw.Name,
		Plan:          bd.node(raw.Plan, "plan"),
		AggregateName: raw.Aggregate,
		ChooseName:    raw.Choose,
		Input:         raw.Input,
	}
	if raw.Aggregate != "" {
		doc.Aggregate = resolve(bd, "aggregate", raw.Aggregate, b.Aggregate)
	}
	if raw.Choose != "" {
		doc.Choose = resolve(bd, "choose", raw.Choose, b.Choose)
	}
	if err := errors.Join(bd.errs...); err != nil {
		return nil, err
	}
	return doc, nil
}

// Options returns the runner options the document asks for: its name and
// its combinators.
func (d *Document) Options() []engine.Option {
	var opts []engine.Option
	if d.Name != "" {
		opts = append(opts, engine.WithName(d.Name))
	}
	if d.Aggregate != nil {
		opts = append(opts, engine.WithAggregate(d.Aggregate))
	}
	if d.Choose != nil {
		opts = append(opts, engine.WithChoose(d.Choose))
	}
	return opts
}

// Compile compiles the document's plan against actions. opts are applied
// after the document's own options.
func (d *Document) Compile(actions engine.Actions, opts ...engine.Option) (*engine.Runner, error) {
	return engine.Compile(actions, d.Plan, append(d.Options(), opts...)...)
}

func decodeStrict(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// locate prefixes err with the document location where it was found.
func locate(at string, err error) error {
	return fmt.Errorf("%s: %w", at, err)
}

func resolve[T any](bd *builder, at, name string, lookup func(string) (T, error)) T {
	var zero T
	if lookup == nil {
		bd.fail(at, fmt.Errorf("%w: %q", ErrUnknownBinding, name))
		return zero
	}
	v, err := lookup(name)
	if err != nil {
		bd.fail(at, err)
		return zero
	}
	return v
}
