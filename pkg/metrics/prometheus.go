// Package metrics exports run and step metrics to Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/petrijr/plano/pkg/api"
)

// Observer is an api.Observer that records Prometheus metrics. Combine it
// with a logging observer through api.NewCompositeObserver.
type Observer struct {
	RunsStarted  *prometheus.CounterVec
	RunsFinished *prometheus.CounterVec
	RunsInFlight *prometheus.GaugeVec
	RunDuration  *prometheus.HistogramVec
	Steps        *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
}

var _ api.Observer = (*Observer)(nil)

// NewObserver registers the plano metrics with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewObserver(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)
	return &Observer{
		RunsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plano_runs_started_total",
				Help: "Total number of runs started",
			},
			[]string{"plan"},
		),
		RunsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plano_runs_finished_total",
				Help: "Total number of finished runs by status",
			},
			[]string{"plan", "status"},
		),
		RunsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plano_runs_in_flight",
				Help: "Number of runs currently executing",
			},
			[]string{"plan"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plano_run_duration_seconds",
				Help:    "Duration of successful runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"plan"},
		),
		Steps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plano_steps_total",
				Help: "Total number of executed steps by status",
			},
			[]string{"plan", "step", "status"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plano_step_duration_seconds",
				Help:    "Step duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"plan", "step"},
		),
	}
}

const (
	statusOK     = "ok"
	statusFailed = "failed"
)

func (o *Observer) OnRunStart(_ context.Context, run *api.RunInfo) {
	o.RunsStarted.WithLabelValues(run.Plan).Inc()
	o.RunsInFlight.WithLabelValues(run.Plan).Inc()
}

func (o *Observer) OnRunCompleted(_ context.Context, run *api.RunInfo, d time.Duration) {
	o.RunsInFlight.WithLabelValues(run.Plan).Dec()
	o.RunsFinished.WithLabelValues(run.Plan, statusOK).Inc()
	o.RunDuration.WithLabelValues(run.Plan).Observe(d.Seconds())
}

func (o *Observer) OnRunFailed(_ context.Context, run *api.RunInfo, _ error) {
	o.RunsInFlight.WithLabelValues(run.Plan).Dec()
	o.RunsFinished.WithLabelValues(run.Plan, statusFailed).Inc()
}

func (o *Observer) OnStepStart(context.Context, *api.RunInfo, string, string) {}

func (o *Observer) OnStepCompleted(_ context.Context, run *api.RunInfo, stepName, _ string, err error, d time.Duration) {
	status := statusOK
	if err != nil {
		status = statusFailed
	}
	o.Steps.WithLabelValues(run.Plan, stepName, status).Inc()
	o.StepDuration.WithLabelValues(run.Plan, stepName).Observe(d.Seconds())
}
