// Package plan defines the plan algebra: an immutable tree of Task,
// Sequence, Parallel, Choose, Focus and LoopWhile nodes that the
// interpreters compile into runnable programs.
//
// Plans only name actions; they never hold functions other than the lenses
// and predicates that Focus and LoopWhile need. The same plan can therefore
// be compiled against different registries and interpreters.
package plan

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/petrijr/plano/pkg/api"
)

// Kind identifies a node variant.
type Kind int

const (
	KindTask Kind = iota + 1
	KindSequence
	KindParallel
	KindChoose
	KindFocus
	KindLoopWhile
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "Task"
	case KindSequence:
		return "Sequence"
	case KindParallel:
		return "Parallel"
	case KindChoose:
		return "Choose"
	case KindFocus:
		return "Focus"
	case KindLoopWhile:
		return "LoopWhile"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Plan is a node of the plan tree. The set of implementations is closed:
// TaskNode, SequenceNode, ParallelNode, ChooseNode, FocusNode and LoopNode.
type Plan interface {
	Kind() Kind
	sealed()
}

// Predicate decides whether a LoopWhile runs another iteration. An error
// stops the loop.
type Predicate func(state any) (bool, error)

// MakePredicate builds a predicate from an untyped test that cannot fail.
func MakePredicate(fn func(state any) bool) Predicate {
	return func(state any) (bool, error) { return fn(state), nil }
}

// Pred adapts a typed predicate. States of another type fail with
// api.ErrStateType.
func Pred[S any](fn func(S) bool) Predicate {
	return func(state any) (bool, error) {
		s, err := api.Cast[S](state)
		if err != nil {
			return false, err
		}
		return fn(s), nil
	}
}

// TaskNode invokes the action registered under Name.
type TaskNode struct {
	name string
}

func (TaskNode) Kind() Kind { return KindTask }
func (TaskNode) sealed()    {}

// Name is the registry key of the action.
func (n TaskNode) Name() string { return n.name }

type group struct {
	children []Plan
}

// Children returns a copy of the child list.
func (g group) Children() []Plan { return slices.Clone(g.children) }

// Len is the number of children.
func (g group) Len() int { return len(g.children) }

// Child returns the i-th child.
func (g group) Child(i int) Plan { return g.children[i] }

// SequenceNode threads the state through its children left to right.
// An empty sequence is the identity.
type SequenceNode struct{ group }

func (SequenceNode) Kind() Kind { return KindSequence }
func (SequenceNode) sealed()    {}

// ParallelNode gives every child the same input and folds the ordered
// results with an aggregate function.
type ParallelNode struct{ group }

func (ParallelNode) Kind() Kind { return KindParallel }
func (ParallelNode) sealed()    {}

// ChooseNode gives every child the same input and keeps the result picked by
// a selector.
type ChooseNode struct{ group }

func (ChooseNode) Kind() Kind { return KindChoose }
func (ChooseNode) sealed()    {}

// FocusNode runs Child on the part of the state a lens points at.
type FocusNode struct {
	lens  Lens
	child Plan
}

func (FocusNode) Kind() Kind { return KindFocus }
func (FocusNode) sealed()    {}

func (n FocusNode) Lens() Lens  { return n.lens }
func (n FocusNode) Child() Plan { return n.child }

// LoopNode runs Body for as long as the predicate holds on the current state.
type LoopNode struct {
	pred Predicate
	body Plan
}

func (LoopNode) Kind() Kind { return KindLoopWhile }
func (LoopNode) sealed()    {}

func (n LoopNode) Predicate() Predicate { return n.pred }
func (n LoopNode) Body() Plan           { return n.body }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", api.ErrInvalidPlan, fmt.Sprintf(format, args...))
}

// NewTask returns a Task node.
func NewTask(name string) (Plan, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalid("task name must not be empty")
	}
	return TaskNode{name: name}, nil
}

// NewSequence returns a Sequence node. Zero children are allowed.
func NewSequence(children ...Plan) (Plan, error) {
	if err := checkChildren(KindSequence, children); err != nil {
		return nil, err
	}
	return SequenceNode{group{slices.Clone(children)}}, nil
}

// NewParallel returns a Parallel node with at least one child.
func NewParallel(children ...Plan) (Plan, error) {
	if len(children) == 0 {
		return nil, invalid("parallel needs at least one child")
	}
	if err := checkChildren(KindParallel, children); err != nil {
		return nil, err
	}
	return ParallelNode{group{slices.Clone(children)}}, nil
}

// NewChoose returns a Choose node with at least one child.
func NewChoose(children ...Plan) (Plan, error) {
	if len(children) == 0 {
		return nil, invalid("choose needs at least one child")
	}
	if err := checkChildren(KindChoose, children); err != nil {
		return nil, err
	}
	return ChooseNode{group{slices.Clone(children)}}, nil
}

// NewFocus returns a Focus node.
func NewFocus(lens Lens, child Plan) (Plan, error) {
	if lens.IsZero() {
		return nil, invalid("focus needs a lens")
	}
	if child == nil {
		return nil, invalid("focus needs a child")
	}
	return FocusNode{lens: lens, child: child}, nil
}

// NewLoopWhile returns a LoopWhile node.
func NewLoopWhile(pred Predicate, body Plan) (Plan, error) {
	if pred == nil {
		return nil, invalid("loop needs a predicate")
	}
	if body == nil {
		return nil, invalid("loop needs a body")
	}
	return LoopNode{pred: pred, body: body}, nil
}

func checkChildren(k Kind, children []Plan) error {
	for i, c := range children {
		if c == nil {
			return invalid("%s child %d is nil", k, i)
		}
	}
	return nil
}

func must(p Plan, err error) Plan {
	if err != nil {
		panic("plan: " + err.Error())
	}
	return p
}

// Task is NewTask for literal plans; it panics on an empty name.
func Task(name string) Plan { return must(NewTask(name)) }

// Sequence is NewSequence for literal plans.
func Sequence(children ...Plan) Plan { return must(NewSequence(children...)) }

// Parallel is NewParallel for literal plans; it panics without children.
func Parallel(children ...Plan) Plan { return must(NewParallel(children...)) }

// Choose is NewChoose for literal plans; it panics without children.
func Choose(children ...Plan) Plan { return must(NewChoose(children...)) }

// Focus is NewFocus for literal plans.
func Focus(lens Lens, child Plan) Plan { return must(NewFocus(lens, child)) }

// LoopWhile is NewLoopWhile for literal plans.
func LoopWhile(pred Predicate, body Plan) Plan { return must(NewLoopWhile(pred, body)) }

// Steps returns a Sequence of Tasks, one per name.
func Steps(names ...string) Plan {
	children := make([]Plan, len(names))
	for i, n := range names {
		children[i] = Task(n)
	}
	return Sequence(children...)
}

// Validate reports every structural defect of p, for trees assembled from
// zero-value nodes rather than through the constructors.
func Validate(p Plan) error {
	if p == nil {
		return invalid("nil plan")
	}
	var errs []error
	_ = Walk(p, func(path string, n Plan) error {
		if err := validateNode(n); err != nil {
			errs = append(errs, api.NewStepError(path, api.ErrInvalidPlan, err))
		}
		return nil
	})
	return errors.Join(errs...)
}

func validateNode(n Plan) error {
	switch n := n.(type) {
	case nil:
		return errors.New("nil node")
	case TaskNode:
		if strings.TrimSpace(n.name) == "" {
			return errors.New("task name must not be empty")
		}
	case SequenceNode:
		return nilChild(n.children)
	case ParallelNode:
		if len(n.children) == 0 {
			return errors.New("parallel needs at least one child")
		}
		return nilChild(n.children)
	case ChooseNode:
		if len(n.children) == 0 {
			return errors.New("choose needs at least one child")
		}
		return nilChild(n.children)
	case FocusNode:
		if n.lens.IsZero() {
			return errors.New("focus needs a lens")
		}
		if n.child == nil {
			return errors.New("focus needs a child")
		}
	case LoopNode:
		if n.pred == nil {
			return errors.New("loop needs a predicate")
		}
		if n.body == nil {
			return errors.New("loop needs a body")
		}
	default:
		return fmt.Errorf("unknown node type %T", n)
	}
	return nil
}

func nilChild(children []Plan) error {
	for i, c := range children {
		if c == nil {
			return fmt.Errorf("child %d is nil", i)
		}
	}
	return nil
}
