package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "reportd"

// Metrics holds all reportd metric instruments.
type Metrics struct {
	TasksSubmitted     metric.Int64Counter
	ReportsGenerated   metric.Int64Counter
	ReportsFailed      metric.Int64Counter
	GenerationRetries  metric.Int64Counter
	GenerationDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksSubmitted, err = meter.Int64Counter("reportd.tasks.submitted",
		metric.WithDescription("Number of report tasks accepted"))
	if err != nil {
		return nil, err
	}

	m.ReportsGenerated, err = meter.Int64Counter("reportd.reports.generated",
		metric.WithDescription("Number of reports generated successfully"))
	if err != nil {
		return nil, err
	}

	m.ReportsFailed, err = meter.Int64Counter("reportd.reports.failed",
		metric.WithDescription("Number of report tasks ending in failure"))
	if err != nil {
		return nil, err
	}

	m.GenerationRetries, err = meter.Int64Counter("reportd.generation.retries",
		metric.WithDescription("Number of retried generation attempts"))
	if err != nil {
		return nil, err
	}

	m.GenerationDuration, err = meter.Float64Histogram("reportd.generation.duration_seconds",
		metric.WithDescription("Generation duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
