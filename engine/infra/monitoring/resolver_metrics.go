package monitoring

import (
	"context"
	"time"

	"github.com/renovate-resolver/resolver/engine/infra/monitoring/metrics"
	"github.com/renovate-resolver/resolver/engine/preset"
	"github.com/renovate-resolver/resolver/engine/resolve"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// ResolverMetrics records schema, validation, preset and request outcome metrics.
// A nil *ResolverMetrics is valid and records nothing.
type ResolverMetrics struct {
	compiles           metric.Int64Counter
	compileDuration    metric.Float64Histogram
	validations        metric.Int64Counter
	violations         metric.Int64Counter
	validateDuration   metric.Float64Histogram
	requests           metric.Int64Counter
	requestDuration    metric.Float64Histogram
	presetFetches      metric.Int64Counter
	presetFetchLatency metric.Float64Histogram
}

var _ resolve.Observer = (*ResolverMetrics)(nil)

func NewResolverMetrics(meter metric.Meter) (*ResolverMetrics, error) {
	m := &ResolverMetrics{}
	var err error
	if m.compiles, err = meter.Int64Counter(
		metrics.MetricName("schema_compilations_total"),
		metric.WithDescription("Schema compilation attempts by result"),
	); err != nil {
		return nil, err
	}
	if m.compileDuration, err = meter.Float64Histogram(
		metrics.MetricName("schema_compile_duration_seconds"),
		metric.WithDescription("Time spent compiling the Renovate schema"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.FetchDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if m.validations, err = meter.Int64Counter(
		metrics.MetricName("validations_total"),
		metric.WithDescription("Documents validated by verdict"),
	); err != nil {
		return nil, err
	}
	if m.violations, err = meter.Int64Counter(
		metrics.MetricName("validation_violations_total"),
		metric.WithDescription("Schema violations reported to clients"),
	); err != nil {
		return nil, err
	}
	if m.validateDuration, err = meter.Float64Histogram(
		metrics.MetricName("validation_duration_seconds"),
		metric.WithDescription("Time spent validating a document"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.ValidationDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if m.requests, err = meter.Int64Counter(
		metrics.MetricName("resolve_requests_total"),
		metric.WithDescription("Resolve requests by terminal state"),
	); err != nil {
		return nil, err
	}
	if m.requestDuration, err = meter.Float64Histogram(
		metrics.MetricName("resolve_duration_seconds"),
		metric.WithDescription("End to end resolve latency by terminal state"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.HTTPDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if m.presetFetches, err = meter.Int64Counter(
		metrics.MetricName("preset_fetches_total"),
		metric.WithDescription("Remote preset fetches by source and result"),
	); err != nil {
		return nil, err
	}
	if m.presetFetchLatency, err = meter.Float64Histogram(
		metrics.MetricName("preset_fetch_duration_seconds"),
		metric.WithDescription("Remote preset fetch latency by source"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.FetchDurationBuckets...),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func resultOf(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// ObserveCompile matches schema.CompileObserver.
func (m *ResolverMetrics) ObserveCompile(duration time.Duration, err error) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.compiles.Add(ctx, 1, metric.WithAttributes(attribute.String("result", resultOf(err))))
	if err == nil {
		m.compileDuration.Record(ctx, duration.Seconds())
	}
}

func (m *ResolverMetrics) ObserveValidation(ctx context.Context, valid bool, violations int, duration time.Duration) {
	if m == nil {
		return
	}
	verdict := "valid"
	if !valid {
		verdict = "invalid"
	}
	m.validations.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
	if violations > 0 {
		m.violations.Add(ctx, int64(violations))
	}
	m.validateDuration.Record(ctx, duration.Seconds())
}

func (m *ResolverMetrics) ObserveOutcome(ctx context.Context, state resolve.State, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("state", state.String()))
	m.requests.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

// ObservePresetFetch matches preset.FetchObserver.
func (m *ResolverMetrics) ObservePresetFetch(kind preset.Kind, duration time.Duration, err error) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.presetFetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", string(kind)),
		attribute.String("result", resultOf(err)),
	))
	m.presetFetchLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("source", string(kind))))
}
