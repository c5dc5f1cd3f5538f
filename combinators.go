package plano

import "github.com/petrijr/plano/pkg/api"

// Concat joins string results with sep.
func Concat(sep string) AggregateFunc { return api.Concat(sep) }

// Collect returns the results as a []any in child order.
func Collect() AggregateFunc { return api.Collect() }

// Last returns the result of the last child.
func Last() AggregateFunc { return api.Last() }

// First selects the first child.
func First() ChooseFunc { return api.First() }

// Argmax selects the child with the highest score; ties go to the lower
// index.
func Argmax(score func(any) float64) ChooseFunc { return api.Argmax(score) }

// Argmin selects the child with the lowest score; ties go to the lower
// index.
func Argmin(score func(any) float64) ChooseFunc { return api.Argmin(score) }
