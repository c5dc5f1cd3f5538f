package planfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
)

// Bindings resolves the names a document uses. A nil function resolves
// nothing. The key:<field> and index:<i> lenses are always available.
type Bindings struct {
	Lens      func(name string) (plan.Lens, error)
	Predicate func(name string) (plan.Predicate, error)
	Aggregate func(name string) (api.AggregateFunc, error)
	Choose    func(name string) (api.ChooseFunc, error)
}

// Merge returns bindings that try b first and then other.
func (b Bindings) Merge(other Bindings) Bindings {
	return Bindings{
		Lens:      either(b.Lens, other.Lens),
		Predicate: either(b.Predicate, other.Predicate),
		Aggregate: either(b.Aggregate, other.Aggregate),
		Choose:    either(b.Choose, other.Choose),
	}
}

func either[T any](first, second func(string) (T, error)) func(string) (T, error) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(name string) (T, error) {
		if v, err := first(name); err == nil {
			return v, nil
		}
		return second(name)
	}
}

func (b Bindings) lens(name string) (plan.Lens, error) {
	kind, arg, ok := strings.Cut(name, ":")
	if ok {
		switch kind {
		case "key":
			if arg == "" {
				return plan.Lens{}, fmt.Errorf("lens %q: empty key", name)
			}
			return plan.Key(arg), nil
		case "index":
			i, err := strconv.Atoi(arg)
			if err != nil || i < 0 {
				return plan.Lens{}, fmt.Errorf("lens %q: index must be a non-negative integer", name)
			}
			return plan.Index(i), nil
		}
	}
	if b.Lens == nil {
		return plan.Lens{}, fmt.Errorf("%w: lens %q", ErrUnknownBinding, name)
	}
	return b.Lens(name)
}
