// Package textkit holds the built-in string actions, combinators and
// predicates available to plan documents run by the CLI and the server.
package textkit

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/petrijr/plano/internal/planfile"
	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
	"github.com/petrijr/plano/pkg/registry"
)

// Actions maps the built-in action names to their implementations.
var Actions = map[string]api.Action{
	"denoise": api.PureAction(func(s string) string { return strings.ReplaceAll(s, "~", "") }),
	"upper":   api.PureAction(strings.ToUpper),
	"lower":   api.PureAction(strings.ToLower),
	"trim":    api.PureAction(strings.TrimSpace),
	"reverse": api.PureAction(reverse),
	"exclaim": api.PureAction(func(s string) string { return s + "!" }),
	"pad":     api.PureAction(func(s string) string { return s + "." }),
	"len":     api.PureAction(func(s string) int { return utf8.RuneCountInString(s) }),
}

// Register adds the built-in actions to reg.
func Register(reg *registry.Registry) error {
	for _, name := range Names() {
		if err := reg.Register(name, Actions[name]); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in actions.
func NewRegistry() *registry.Registry {
	reg := registry.New()
	if err := Register(reg); err != nil {
		panic(fmt.Sprintf("textkit: %v", err))
	}
	return reg
}

// Names returns the built-in action names, sorted.
func Names() []string {
	names := make([]string, 0, len(Actions))
	for name := range Actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func reverse(s string) string {
	r := []rune(s)
	slices.Reverse(r)
	return string(r)
}

var aggregates = map[string]api.AggregateFunc{
	"concat": api.Concat(""),
	"join":   api.Concat(" "),
	"list":   api.Collect(),
	"last":   api.Last(),
}

var selectors = map[string]api.ChooseFunc{
	"first":    api.First(),
	"last":     func(results []any) (int, error) { return len(results) - 1, nil },
	"longest":  api.Argmax(length),
	"shortest": api.Argmin(length),
}

// length scores strings and lists by their length; anything else scores 0.
func length(v any) float64 {
	switch v := v.(type) {
	case string:
		return float64(utf8.RuneCountInString(v))
	case []any:
		return float64(len(v))
	case map[string]any:
		return float64(len(v))
	}
	return 0
}

// Bindings resolves the built-in aggregators, selectors and predicates by
// name. Predicates take an argument after a colon: len_lt:8, len_gt:2,
// contains:~ and not_contains:~.
func Bindings() planfile.Bindings {
	return planfile.Bindings{
		Predicate: Predicate,
		Aggregate: lookup("aggregate", aggregates),
		Choose:    lookup("choose", selectors),
	}
}

func lookup[T any](kind string, table map[string]T) func(string) (T, error) {
	return func(name string) (T, error) {
		v, ok := table[name]
		if !ok {
			var zero T
			return zero, fmt.Errorf("%w: %s %q", planfile.ErrUnknownBinding, kind, name)
		}
		return v, nil
	}
}

// Predicate parses a predicate name such as "len_lt:8".
func Predicate(name string) (plan.Predicate, error) {
	op, arg, _ := strings.Cut(name, ":")
	switch op {
	case "len_lt", "len_gt":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("predicate %q: %q is not a number", name, arg)
		}
		if op == "len_lt" {
			return plan.MakePredicate(func(s any) bool { return length(s) < float64(n) }), nil
		}
		return plan.MakePredicate(func(s any) bool { return length(s) > float64(n) }), nil

	case "contains", "not_contains":
		if arg == "" {
			return nil, fmt.Errorf("predicate %q needs a substring", name)
		}
		want := op == "contains"
		return func(s any) (bool, error) {
			str, err := api.Cast[string](s)
			if err != nil {
				return false, err
			}
			return strings.Contains(str, arg) == want, nil
		}, nil
	}
	return nil, fmt.Errorf("%w: predicate %q", planfile.ErrUnknownBinding, name)
}
