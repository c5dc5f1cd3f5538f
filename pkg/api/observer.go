package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the interpreters for logging and metrics.
//
// Step callbacks of Parallel and Choose children may arrive concurrently, so
// implementations must be safe for concurrent use. Keep them fast; they run
// on the evaluation path.
type Observer interface {
	// OnRunStart is called once before the first step of a run.
	OnRunStart(ctx context.Context, run *RunInfo)

	// OnRunCompleted is called when a run produced an output.
	OnRunCompleted(ctx context.Context, run *RunInfo, d time.Duration)

	// OnRunFailed is called when a run stopped with an error.
	OnRunFailed(ctx context.Context, run *RunInfo, err error)

	// OnStepStart is called before invoking an action. path is the node path
	// of the Task, for example "Sequence[1].upper".
	OnStepStart(ctx context.Context, run *RunInfo, stepName, path string)

	// OnStepCompleted is called after an action returns, for both successes
	// and failures (err != nil).
	OnStepCompleted(ctx context.Context, run *RunInfo, stepName, path string, err error, d time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run *RunInfo)                         {}
func (NoopObserver) OnRunCompleted(ctx context.Context, run *RunInfo, d time.Duration)    {}
func (NoopObserver) OnRunFailed(ctx context.Context, run *RunInfo, err error)             {}
func (NoopObserver) OnStepStart(ctx context.Context, run *RunInfo, stepName, path string) {}
func (NoopObserver) OnStepCompleted(ctx context.Context, run *RunInfo, stepName, path string, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run *RunInfo) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, run *RunInfo, d time.Duration) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, run, d)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run *RunInfo, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, run *RunInfo, stepName, path string) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, run, stepName, path)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, run *RunInfo, stepName, path string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, run, stepName, path, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run and step lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run *RunInfo) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("plan", run.Plan),
		slog.String("run_id", run.ID),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, run *RunInfo, d time.Duration) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("plan", run.Plan),
		slog.String("run_id", run.ID),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run *RunInfo, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("plan", run.Plan),
		slog.String("run_id", run.ID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, run *RunInfo, stepName, path string) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("plan", run.Plan),
		slog.String("run_id", run.ID),
		slog.String("step", stepName),
		slog.String("step_path", path),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, run *RunInfo, stepName, path string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("plan", run.Plan),
		slog.String("run_id", run.ID),
		slog.String("step", stepName),
		slog.String("step_path", path),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsCompleted     atomic.Int64
	runsFailed        atomic.Int64
	stepsCompleted    atomic.Int64
	stepsFailed       atomic.Int64
	totalStepDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	RunsInFlight  int64

	StepsCompleted  int64
	StepsFailed     int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run *RunInfo) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, run *RunInfo, d time.Duration) {
	m.runsCompleted.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run *RunInfo, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, run *RunInfo, stepName, path string, err error, d time.Duration) {
	if err != nil {
		m.stepsFailed.Add(1)
		return
	}
	// Only successful steps count towards the average duration.
	m.stepsCompleted.Add(1)
	m.totalStepDuration.Add(d.Nanoseconds())
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsCompleted:   completed,
		RunsFailed:      failed,
		RunsInFlight:    started - completed - failed,
		StepsCompleted:  steps,
		StepsFailed:     m.stepsFailed.Load(),
		AvgStepDuration: avg,
	}
}
