package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/plano/pkg/api"
)

func TestObserverCountsRunsAndSteps(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewObserver(reg)
	ctx := context.Background()
	run := &api.RunInfo{ID: "r1", Plan: "greet"}

	o.OnRunStart(ctx, run)
	require.Equal(t, 1.0, testutil.ToFloat64(o.RunsInFlight.WithLabelValues("greet")))

	o.OnStepStart(ctx, run, "upper", "Sequence[0].upper")
	o.OnStepCompleted(ctx, run, "upper", "Sequence[0].upper", nil, time.Millisecond)
	o.OnStepCompleted(ctx, run, "exclaim", "Sequence[1].exclaim", errors.New("boom"), time.Millisecond)
	o.OnRunFailed(ctx, run, errors.New("boom"))

	require.Equal(t, 1.0, testutil.ToFloat64(o.RunsStarted.WithLabelValues("greet")))
	require.Equal(t, 0.0, testutil.ToFloat64(o.RunsInFlight.WithLabelValues("greet")))
	require.Equal(t, 1.0, testutil.ToFloat64(o.RunsFinished.WithLabelValues("greet", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(o.Steps.WithLabelValues("greet", "upper", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(o.Steps.WithLabelValues("greet", "exclaim", "failed")))
	require.Equal(t, 2, testutil.CollectAndCount(o.StepDuration))
}

func TestObserverRunDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewObserver(reg)
	ctx := context.Background()
	run := &api.RunInfo{ID: "r2", Plan: "p"}

	o.OnRunStart(ctx, run)
	o.OnRunCompleted(ctx, run, 20*time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(o.RunsFinished.WithLabelValues("p", "ok")))
	require.Equal(t, 1, testutil.CollectAndCount(o.RunDuration))

	n, err := testutil.GatherAndCount(reg, "plano_runs_started_total", "plano_run_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestNewObserverRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewObserver(reg)
	require.Panics(t, func() { NewObserver(reg) })
}
