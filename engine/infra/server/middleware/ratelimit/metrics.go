package ratelimit

import (
	"context"

	"github.com/renovate-resolver/resolver/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type blockMetrics struct {
	blocked metric.Int64Counter
}

func newBlockMetrics(meter metric.Meter) (*blockMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("ratelimit")
	}
	blocked, err := meter.Int64Counter(
		metrics.MetricName("rate_limit_blocks_total"),
		metric.WithDescription("Total number of requests blocked by rate limiting"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}
	return &blockMetrics{blocked: blocked}, nil
}

func (m *blockMetrics) incrementBlocked(ctx context.Context, route string) {
	m.blocked.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}
