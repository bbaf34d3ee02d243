// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus metrics for report runs: run outcomes,
// step durations, and classified pins by type. All methods are safe to call
// on a nil *PipelineMetrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/board-report/pkg/types"
)

// PipelineMetrics holds the report pipeline collectors.
type PipelineMetrics struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	stepsSkipped   *prometheus.CounterVec
	pinsClassified *prometheus.CounterVec
	faultyPins     prometheus.Gauge
}

// NewPipelineMetrics creates the collectors and registers them with
// registry.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		registry: registry,
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "board_report_runs_total",
				Help: "Report runs by final state",
			},
			[]string{"outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "board_report_step_duration_seconds",
				Help:    "Time spent in each pipeline step",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"step"},
		),
		stepsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "board_report_steps_skipped_total",
				Help: "Steps that had nothing to do",
			},
			[]string{"step"},
		),
		pinsClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "board_report_pins_classified_total",
				Help: "Classified pins by pin type",
			},
			[]string{"pin_type"},
		),
		faultyPins: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "board_report_faulty_pins",
			Help: "Faulty pins found by the last run",
		}),
	}
	for _, c := range []prometheus.Collector{m.runs, m.stepDuration, m.stepsSkipped, m.pinsClassified, m.faultyPins} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}
	return m, nil
}

// RecordRun counts a finished run under its final state.
func (m *PipelineMetrics) RecordRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// ObserveStep records a step's duration, or counts it as skipped when it
// did no work.
func (m *PipelineMetrics) ObserveStep(step string, d time.Duration, done bool) {
	if m == nil {
		return
	}
	if !done {
		m.stepsSkipped.WithLabelValues(step).Inc()
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// RecordPins counts records by pin type and sets the faulty gauge.
func (m *PipelineMetrics) RecordPins(records []types.PinRecord, faulty int) {
	if m == nil {
		return
	}
	for _, r := range records {
		m.pinsClassified.WithLabelValues(string(r.Type)).Inc()
	}
	m.faultyPins.Set(float64(faulty))
}

// WriteTextFile writes every registered metric to path in the Prometheus
// text exposition format.
func (m *PipelineMetrics) WriteTextFile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
