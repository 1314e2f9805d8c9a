package observability

import (
	"context"
	"time"

	"mortgage-funnel/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the otel meter provider. Its exporter registers with the
// default Prometheus registry, so readings show up on /metrics.
type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	jobCounter         otelmetric.Int64Counter
	jobDuration        otelmetric.Float64Histogram
	submissionCounter  otelmetric.Int64Counter
	submissionDuration otelmetric.Float64Histogram
}

// New never fails; a broken exporter yields a no-op instance.
func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	submissionCounter, _ := meter.Int64Counter(
		"landing.submissions",
		otelmetric.WithDescription("Landing applications processed"),
	)
	submissionDuration, _ := meter.Float64Histogram(
		"landing.submission.duration",
		otelmetric.WithDescription("Time spent storing a landing application"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:      provider,
		meter:              meter,
		jobCounter:         jobCounter,
		jobDuration:        jobDuration,
		submissionCounter:  submissionCounter,
		submissionDuration: submissionDuration,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, taskType string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
	))
}

// RecordSubmission counts one landing submission and its latency.
func (o *Observability) RecordSubmission(ctx context.Context, loanType, outcome string, duration time.Duration) {
	if o == nil || o.submissionCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("loan_type", loanType),
		attribute.String("outcome", outcome),
	)
	o.submissionCounter.Add(ctx, 1, attrs)
	o.submissionDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
