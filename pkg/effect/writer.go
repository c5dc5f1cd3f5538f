package effect

import "slices"

// Monoid combines logs. Combine must be associative and Empty its identity.
type Monoid[W any] interface {
	Empty() W
	Combine(a, b W) W
}

// Writer is a value together with an accumulated log.
type Writer[W any] struct {
	Value any
	Log   W
}

// WriterEffect threads a log through a plan. Collect runs every child and
// concatenates their logs in child order.
type WriterEffect[W any] struct {
	Monoid Monoid[W]
}

// NewWriterEffect returns a WriterEffect over m.
func NewWriterEffect[W any](m Monoid[W]) WriterEffect[W] {
	return WriterEffect[W]{Monoid: m}
}

func (e WriterEffect[W]) Pure(a any) Writer[W] {
	return Writer[W]{Value: a, Log: e.Monoid.Empty()}
}

func (e WriterEffect[W]) Bind(m Writer[W], f func(any) Writer[W]) Writer[W] {
	next := f(m.Value)
	return Writer[W]{Value: next.Value, Log: e.Monoid.Combine(m.Log, next.Log)}
}

func (e WriterEffect[W]) Collect(children []func() Writer[W]) Writer[W] {
	values := make([]any, len(children))
	log := e.Monoid.Empty()
	for i, c := range children {
		w := c()
		values[i] = w.Value
		log = e.Monoid.Combine(log, w.Log)
	}
	return Writer[W]{Value: values, Log: log}
}

func (WriterEffect[W]) Unwrap(m Writer[W]) (any, bool) { return m.Value, true }

// StringLog is the monoid of []string under concatenation.
type StringLog struct{}

func (StringLog) Empty() []string { return nil }

func (StringLog) Combine(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	return append(slices.Clip(a), b...)
}

// Tell returns a Writer carrying v and the given log entries.
func Tell(v any, entries ...string) Writer[[]string] {
	return Writer[[]string]{Value: v, Log: entries}
}
