package api

import (
	"errors"
	"fmt"
	"strings"
)

var errNoResults = errors.New("no results")

// Concat joins string results with sep.
func Concat(sep string) AggregateFunc {
	return func(results []any) (any, error) {
		if len(results) == 0 {
			return nil, errNoResults
		}
		parts := make([]string, len(results))
		for i, r := range results {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("%w: concat result %d: want string, got %T", ErrStateType, i, r)
			}
			parts[i] = s
		}
		return strings.Join(parts, sep), nil
	}
}

// Collect returns the results as a []any in child order.
func Collect() AggregateFunc {
	return func(results []any) (any, error) {
		if len(results) == 0 {
			return nil, errNoResults
		}
		out := make([]any, len(results))
		copy(out, results)
		return out, nil
	}
}

// Last keeps the result of the last child.
func Last() AggregateFunc {
	return func(results []any) (any, error) {
		if len(results) == 0 {
			return nil, errNoResults
		}
		return results[len(results)-1], nil
	}
}

// First selects the first branch.
func First() ChooseFunc {
	return func(results []any) (int, error) {
		if len(results) == 0 {
			return 0, errNoResults
		}
		return 0, nil
	}
}

// Argmax selects the branch with the highest score. Ties go to the lower index.
func Argmax(score func(any) float64) ChooseFunc {
	return func(results []any) (int, error) {
		return best(results, func(a, b float64) bool { return a > b }, score)
	}
}

// Argmin selects the branch with the lowest score. Ties go to the lower index.
func Argmin(score func(any) float64) ChooseFunc {
	return func(results []any) (int, error) {
		return best(results, func(a, b float64) bool { return a < b }, score)
	}
}

func best(results []any, better func(a, b float64) bool, score func(any) float64) (int, error) {
	if len(results) == 0 {
		return 0, errNoResults
	}
	idx, top := 0, score(results[0])
	for i := 1; i < len(results); i++ {
		if s := score(results[i]); better(s, top) {
			idx, top = i, s
		}
	}
	return idx, nil
}
