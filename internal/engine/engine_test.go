package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
)

func TestStructured_SequenceOfTasks(t *testing.T) {
	t.Parallel()

	r, err := Compile(newTestRegistry(t), plan.Steps("denoise", "upper"))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "~ab~c")
	require.NoError(t, err)
	require.Equal(t, "ABC", res.Output)
	require.Equal(t, []string{"denoise", "upper"}, res.Trace.Names())
	require.Equal(t, "Sequence[1].upper", res.Trace[1].Path)
	require.NotEmpty(t, res.ID)
	require.Equal(t, "structured", res.Plan)
}

func TestStructured_ParallelWithSwappingAggregate(t *testing.T) {
	t.Parallel()

	p := plan.Parallel(plan.Task("len"), plan.Task("upper"))
	r, err := Compile(newTestRegistry(t), p, WithAggregate(swap))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "ab")
	require.NoError(t, err)
	require.Equal(t, []any{"AB", 2}, res.Output)
	require.Equal(t, []string{"Parallel[0].len", "Parallel[1].upper"},
		[]string{res.Trace[0].Path, res.Trace[1].Path})
}

func TestStructured_ChooseSecondBranch(t *testing.T) {
	t.Parallel()

	r, err := Compile(newTestRegistry(t), plan.Choose(plan.Task("x"), plan.Task("y")), WithChoose(pick(1)))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, "Y", res.Output)
	require.Len(t, res.Trace, 2, "every branch runs")
}

// joinResults is an order-sensitive aggregate.
func joinResults(results []any) (any, error) {
	return fmt.Sprintf("%v", results), nil
}

func TestParallel_ResultsFollowChildIndex(t *testing.T) {
	t.Parallel()

	children := []plan.Plan{
		plan.Task("len"),
		plan.Task("upper"),
		plan.Steps("denoise", "pad"),
		plan.Task("lower"),
	}
	base, err := Compile(newTestRegistry(t), plan.Parallel(children...), WithAggregate(joinResults))
	require.NoError(t, err)
	want, err := base.Run(context.Background(), "~aB~")
	require.NoError(t, err)

	tests := []struct {
		name        string
		perm        []int
		concurrency int
	}{
		{"identity", []int{0, 1, 2, 3}, 1},
		{"reversed", []int{3, 2, 1, 0}, 1},
		{"rotated", []int{1, 2, 3, 0}, 1},
		{"identity concurrent", []int{0, 1, 2, 3}, 4},
		{"reversed concurrent", []int{3, 2, 1, 0}, 4},
		{"swapped concurrent", []int{2, 0, 3, 1}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reordered := make([]plan.Plan, len(tc.perm))
			for i, j := range tc.perm {
				reordered[i] = children[j]
			}
			// Undo the permutation before folding, so the result must match
			// the unpermuted plan.
			unpermute := func(results []any) (any, error) {
				orig := make([]any, len(results))
				for i, j := range tc.perm {
					orig[j] = results[i]
				}
				return joinResults(orig)
			}

			r, err := Compile(newTestRegistry(t), plan.Parallel(reordered...),
				WithAggregate(unpermute), WithConcurrency(tc.concurrency))
			require.NoError(t, err)
			got, err := r.Run(context.Background(), "~aB~")
			require.NoError(t, err)
			require.Equal(t, want.Output, got.Output)
		})
	}
}

func TestChoose_FirstBranchOfDifferentShapes(t *testing.T) {
	t.Parallel()

	task := plan.Task("upper")
	seq := plan.Steps("denoise", "pad", "pad")

	tests := []struct {
		name        string
		choose      plan.Plan
		alone       plan.Plan
		concurrency int
	}{
		{"task before sequence", plan.Choose(task, seq), task, 1},
		{"sequence before task", plan.Choose(seq, task), seq, 1},
		{"task before sequence concurrent", plan.Choose(task, seq), task, 2},
		{"sequence before task concurrent", plan.Choose(seq, task), seq, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reg := newTestRegistry(t)
			alone, err := Compile(reg, tc.alone)
			require.NoError(t, err)
			r, err := Compile(reg, tc.choose, WithChoose(pick(0)), WithConcurrency(tc.concurrency))
			require.NoError(t, err)

			for _, in := range []string{"", "~ab~", "x~y"} {
				want, err := alone.Run(context.Background(), in)
				require.NoError(t, err)
				got, err := r.Run(context.Background(), in)
				require.NoError(t, err)
				require.Equal(t, want.Output, got.Output, "input %q", in)
			}
		})
	}
}

func TestCompile_MissingAggregateNeverInvokesActions(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	s := &spy{}
	require.NoError(t, reg.Register("spy", s.action()))

	_, err := Compile(reg, plan.Sequence(plan.Task("spy"), plan.Parallel(plan.Task("spy"), plan.Task("upper"))))
	require.ErrorIs(t, err, api.ErrMissingCombinator)
	path, ok := api.StepPath(err)
	require.True(t, ok)
	require.Equal(t, "Sequence[1].Parallel", path)
	require.Zero(t, s.calls.Load())
}

func TestCompile_ReportsAllDefects(t *testing.T) {
	t.Parallel()

	p := plan.Sequence(plan.Task("uper"), plan.Choose(plan.Task("x")), plan.Task("nope"))
	_, err := Compile(newTestRegistry(t), p)
	require.ErrorIs(t, err, api.ErrUnregisteredAction)
	require.ErrorIs(t, err, api.ErrMissingCombinator)
	require.Contains(t, err.Error(), "did you mean upper")
	require.Contains(t, err.Error(), "Sequence[2].nope")

	_, err = Compile(newTestRegistry(t), nil)
	require.ErrorIs(t, err, api.ErrInvalidPlan)
}

func TestLinearMatchesStructuredSequence(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	inputs := []string{"", "~ab~c", "Hello~World", "~~~"}
	pipelines := [][]string{
		{},
		{"upper"},
		{"denoise", "upper"},
		{"denoise", "pad", "upper", "pad"},
	}
	for _, names := range pipelines {
		linear, err := CompileLinear(reg, names)
		require.NoError(t, err)
		structured, err := Compile(reg, plan.Steps(names...))
		require.NoError(t, err)

		for _, in := range inputs {
			a, err := linear.Run(context.Background(), in)
			require.NoError(t, err)
			b, err := structured.Run(context.Background(), in)
			require.NoError(t, err)
			require.Equal(t, b.Output, a.Output, "%v on %q", names, in)
			require.Equal(t, b.Trace.Names(), a.Trace.Names())
		}
	}
}

func TestLinear_PathsAndValidation(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	r, err := CompileLinear(reg, []string{"denoise", "upper"}, WithName("clean"))
	require.NoError(t, err)
	require.Equal(t, "clean", r.Name())

	res, err := r.Run(context.Background(), "~a")
	require.NoError(t, err)
	require.Equal(t, "Linear[1].upper", res.Trace[1].Path)

	_, err = CompileLinear(reg, []string{"upper", "missing", ""})
	require.ErrorIs(t, err, api.ErrUnregisteredAction)
	require.ErrorIs(t, err, api.ErrInvalidPlan)
	require.Contains(t, err.Error(), "Linear[1].missing")
}

func TestSequenceIsAssociative(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	a, b, c := plan.Task("denoise"), plan.Task("pad"), plan.Task("upper")
	shapes := []plan.Plan{
		plan.Sequence(a, b, c),
		plan.Sequence(plan.Sequence(a, b), c),
		plan.Sequence(a, plan.Sequence(b, c)),
	}
	var outputs []any
	for _, p := range shapes {
		r, err := Compile(reg, p)
		require.NoError(t, err)
		res, err := r.Run(context.Background(), "~x~")
		require.NoError(t, err)
		outputs = append(outputs, res.Output)
	}
	require.Equal(t, []any{"X.", "X.", "X."}, outputs)
}

func TestEmptySequenceIsIdentity(t *testing.T) {
	t.Parallel()

	r, err := Compile(newTestRegistry(t), plan.Sequence())
	require.NoError(t, err)
	res, err := r.Run(context.Background(), map[string]any{"k": 1})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"k": 1}, res.Output)
	require.Empty(t, res.Trace)
}

func TestFocus(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	state := map[string]any{"title": "~ab", "body": "keep"}

	r, err := Compile(reg, plan.Focus(plan.Key("title"), plan.Steps("denoise", "upper")))
	require.NoError(t, err)
	res, err := r.Run(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"title": "AB", "body": "keep"}, res.Output)
	require.Equal(t, "~ab", state["title"], "input state is not modified")
	require.Equal(t, "Focus.Sequence[1].upper", res.Trace[1].Path)

	// A focus whose child is the identity leaves the state unchanged.
	r, err = Compile(reg, plan.Focus(plan.Key("title"), plan.Sequence()))
	require.NoError(t, err)
	res, err = r.Run(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, state, res.Output)

	// A lens that cannot read the state fails at the focus path.
	_, err = r.Run(context.Background(), "not a map")
	require.ErrorIs(t, err, api.ErrActionFailure)
	require.ErrorIs(t, err, api.ErrStateType)
	path, _ := api.StepPath(err)
	require.Equal(t, "Focus", path)
}

func TestLoopWhile(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	short := plan.Pred(func(s string) bool { return len(s) < 5 })

	r, err := Compile(reg, plan.LoopWhile(short, plan.Task("pad")))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "ab")
	require.NoError(t, err)
	require.Equal(t, "ab...", res.Output)
	require.Len(t, res.Trace, 3)
	require.Equal(t, "LoopWhile.pad", res.Trace[0].Path)

	// A predicate false on entry runs the body zero times.
	res, err = r.Run(context.Background(), "long enough")
	require.NoError(t, err)
	require.Equal(t, "long enough", res.Output)
	require.Empty(t, res.Trace)
}

func TestLoopWhile_PredicateStateType(t *testing.T) {
	t.Parallel()

	short := plan.Pred(func(s string) bool { return len(s) < 5 })
	r, err := Compile(newTestRegistry(t), plan.Sequence(plan.Task("len"), plan.LoopWhile(short, plan.Task("pad"))))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "abc")
	require.ErrorIs(t, err, api.ErrStateType)
	require.NotErrorIs(t, err, api.ErrActionFailure)
	path, _ := api.StepPath(err)
	require.Equal(t, "Sequence[1].LoopWhile", path)
	require.Nil(t, res.Output)
	require.Len(t, res.Trace, 1)
}

func TestLoopWhile_IterationLimit(t *testing.T) {
	t.Parallel()

	always := plan.MakePredicate(func(any) bool { return true })
	r, err := Compile(newTestRegistry(t), plan.LoopWhile(always, plan.Task("pad")), WithMaxIterations(3))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "")
	require.ErrorIs(t, err, api.ErrIterationLimit)
	require.Nil(t, res.Output)
	require.Len(t, res.Trace, 3)
}

func TestLoopWhile_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	always := plan.MakePredicate(func(any) bool { return true })
	r, err := Compile(newTestRegistry(t), plan.LoopWhile(always, plan.Sequence()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx, "")
	require.ErrorIs(t, err, context.Canceled)
}

func TestFailures_CarryPathAndPartialTrace(t *testing.T) {
	t.Parallel()

	p := plan.Sequence(
		plan.Task("denoise"),
		plan.Task("upper"),
		plan.Parallel(plan.Task("len"), plan.Task("fail")),
		plan.Task("pad"),
	)
	r, err := Compile(newTestRegistry(t), p, WithAggregate(api.Collect()))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "~ab")
	require.ErrorIs(t, err, api.ErrActionFailure)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, "Sequence[2].Parallel[1].fail: action failed: boom", err.Error())

	require.NotNil(t, res)
	require.Nil(t, res.Output)
	require.Equal(t, []string{"denoise", "upper", "len", "fail"}, res.Trace.Names())
	failed, ok := res.Trace.Failed()
	require.True(t, ok)
	require.Equal(t, "boom", failed.Err)
}

func TestParallel_LowestIndexFailureWins(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	p := plan.Parallel(plan.Task("upper"), plan.Task("panic"), plan.Task("fail"))
	for _, n := range []int{1, 4} {
		r, err := Compile(reg, p, WithAggregate(api.Collect()), WithConcurrency(n))
		require.NoError(t, err)

		res, err := r.Run(context.Background(), "a")
		require.ErrorIs(t, err, api.ErrActionFailure)
		require.Contains(t, err.Error(), "Parallel[1].panic")
		require.Contains(t, err.Error(), "kaboom")
		require.Len(t, res.Trace, 3, "siblings run to completion")
	}
}

func TestChoose_SelectionOutOfRange(t *testing.T) {
	t.Parallel()

	r, err := Compile(newTestRegistry(t), plan.Sequence(plan.Choose(plan.Task("x"), plan.Task("y"))), WithChoose(pick(2)))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "")
	require.ErrorIs(t, err, api.ErrSelectionOutOfRange)
	path, _ := api.StepPath(err)
	require.Equal(t, "Sequence[0].Choose", path)
}

func TestAggregateError(t *testing.T) {
	t.Parallel()

	r, err := Compile(newTestRegistry(t), plan.Parallel(plan.Task("x")),
		WithAggregate(func([]any) (any, error) { return nil, errBoom }))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "")
	require.ErrorIs(t, err, api.ErrActionFailure)
	require.ErrorIs(t, err, errBoom)
}

func TestEnvironmentReachesActions(t *testing.T) {
	t.Parallel()

	r, err := Compile(newTestRegistry(t), plan.Task("greet"))
	require.NoError(t, err)

	res, err := r.Run(api.WithEnv(context.Background(), "hello"), "world")
	require.NoError(t, err)
	require.Equal(t, "hello, world", res.Output)
}

func TestCancelledContextFailsBeforeAction(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	s := &spy{}
	require.NoError(t, reg.Register("spy", s.action()))

	r, err := Compile(reg, plan.Task("spy"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Run(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, api.ErrActionFailure)
	require.Zero(t, s.calls.Load())
	require.Len(t, res.Trace, 1)
}

func TestTraceOrderIsDeterministicUnderConcurrency(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	children := make([]plan.Plan, 0, 20)
	want := make([]string, 0, 20)
	for i := range 20 {
		children = append(children, plan.Task("upper"))
		want = append(want, plan.ChildPrefix("", plan.KindParallel, i)+"upper")
	}
	r, err := Compile(reg, plan.Parallel(children...), WithAggregate(api.Concat("")), WithConcurrency(8))
	require.NoError(t, err)

	for range 10 {
		res, err := r.Run(context.Background(), "a")
		require.NoError(t, err)
		require.Equal(t, strings.Repeat("A", 20), res.Output)

		got := make([]string, len(res.Trace))
		for i, rec := range res.Trace {
			got[i] = rec.Path
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("trace order (-want +got):\n%s", diff)
		}
	}
}
