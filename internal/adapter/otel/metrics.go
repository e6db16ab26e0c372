package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "factory"

// Metrics holds the orchestration metric instruments.
type Metrics struct {
	RunsTotal         metric.Int64Counter
	UnitsTotal        metric.Int64Counter
	UnitRetries       metric.Int64Counter
	ConflictsDetected metric.Int64Counter
	RunDuration       metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsTotal, err = meter.Int64Counter("factory.runs.total",
		metric.WithDescription("Number of runs finished, by terminal status"))
	if err != nil {
		return nil, err
	}

	m.UnitsTotal, err = meter.Int64Counter("factory.units.total",
		metric.WithDescription("Number of invocation units executed, by outcome"))
	if err != nil {
		return nil, err
	}

	m.UnitRetries, err = meter.Int64Counter("factory.units.retries",
		metric.WithDescription("Number of unit invocation retries"))
	if err != nil {
		return nil, err
	}

	m.ConflictsDetected, err = meter.Int64Counter("factory.conflicts.detected",
		metric.WithDescription("Number of contribution conflicts detected"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("factory.run.duration_seconds",
		metric.WithDescription("Run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
