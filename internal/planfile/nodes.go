package planfile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
)

var nodeKeys = []string{"task", "sequence", "parallel", "choose", "focus", "loop_while"}

type builder struct {
	bindings Bindings
	errs     []error
}

func (bd *builder) fail(at string, err error) {
	bd.errs = append(bd.errs, locate(at, err))
}

func (bd *builder) invalid(at, format string, args ...any) {
	bd.fail(at, fmt.Errorf("%w: %s", api.ErrInvalidPlan, fmt.Sprintf(format, args...)))
}

// node builds the plan at v. It returns nil after recording an error.
func (bd *builder) node(v any, at string) plan.Plan {
	switch n := v.(type) {
	case string:
		return bd.task(n, at)

	case map[string]any:
		if len(n) != 1 {
			keys := make([]string, 0, len(n))
			for k := range n {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			bd.invalid(at, "a node needs exactly one of %s, got [%s]",
				strings.Join(nodeKeys, ", "), strings.Join(keys, ", "))
			return nil
		}
		var key string
		var body any
		for key, body = range n {
		}
		return bd.keyed(key, body, at+"."+key)

	case nil:
		bd.invalid(at, "empty node")
		return nil
	}
	bd.invalid(at, "unexpected %T, want a task name or a node mapping", v)
	return nil
}

func (bd *builder) keyed(key string, body any, at string) plan.Plan {
	switch key {
	case "task":
		name, ok := body.(string)
		if !ok {
			bd.invalid(at, "task name must be a string")
			return nil
		}
		return bd.task(name, at)

	case "sequence":
		children, ok := bd.children(body, at)
		if !ok {
			return nil
		}
		return bd.built(at)(plan.NewSequence(children...))

	case "parallel":
		children, ok := bd.children(body, at)
		if !ok {
			return nil
		}
		return bd.built(at)(plan.NewParallel(children...))

	case "choose":
		children, ok := bd.children(body, at)
		if !ok {
			return nil
		}
		return bd.built(at)(plan.NewChoose(children...))

	case "focus":
		var f struct {
			Lens string `mapstructure:"lens"`
			Do   any    `mapstructure:"do"`
		}
		if err := decodeStrict(body, &f); err != nil {
			bd.invalid(at, "%v", err)
			return nil
		}
		var lens plan.Lens
		if f.Lens == "" {
			bd.invalid(at+".lens", "focus needs a lens")
		} else if l, err := bd.bindings.lens(f.Lens); err != nil {
			bd.fail(at+".lens", err)
		} else {
			lens = l
		}
		child := bd.node(f.Do, at+".do")
		if child == nil || lens.IsZero() {
			return nil
		}
		return bd.built(at)(plan.NewFocus(lens, child))

	case "loop_while":
		var l struct {
			Predicate string `mapstructure:"predicate"`
			Body      any    `mapstructure:"body"`
		}
		if err := decodeStrict(body, &l); err != nil {
			bd.invalid(at, "%v", err)
			return nil
		}
		var pred plan.Predicate
		if l.Predicate == "" {
			bd.invalid(at+".predicate", "loop_while needs a predicate")
		} else {
			pred = resolve(bd, at+".predicate", l.Predicate, bd.bindings.Predicate)
		}
		child := bd.node(l.Body, at+".body")
		if child == nil || pred == nil {
			return nil
		}
		return bd.built(at)(plan.NewLoopWhile(pred, child))
	}

	bd.invalid(at, "unknown node kind %q, want one of %s", key, strings.Join(nodeKeys, ", "))
	return nil
}

func (bd *builder) task(name string, at string) plan.Plan {
	return bd.built(at)(plan.NewTask(name))
}

// children builds every element of a node list, reporting all failures.
func (bd *builder) children(body any, at string) ([]plan.Plan, bool) {
	if body == nil {
		return nil, true
	}
	items, ok := body.([]any)
	if !ok {
		bd.invalid(at, "want a list of nodes, got %T", body)
		return nil, false
	}
	out := make([]plan.Plan, len(items))
	ok = true
	for i, item := range items {
		out[i] = bd.node(item, fmt.Sprintf("%s[%d]", at, i))
		ok = ok && out[i] != nil
	}
	return out, ok
}

// built records the constructor error, if any, at the node's location.
func (bd *builder) built(at string) func(plan.Plan, error) plan.Plan {
	return func(p plan.Plan, err error) plan.Plan {
		if err != nil {
			bd.fail(at, err)
			return nil
		}
		return p
	}
}
