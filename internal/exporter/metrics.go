package exporter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// exportMetrics holds the instruments recorded for every export call
type exportMetrics struct {
	exports  metric.Int64Counter
	bytes    metric.Int64Histogram
	duration metric.Float64Histogram
}

func newExportMetrics(meter metric.Meter) (*exportMetrics, error) {
	exports, err := meter.Int64Counter(
		"exports_total",
		metric.WithDescription("Total number of export calls by format and status"),
	)
	if err != nil {
		return nil, err
	}

	bytes, err := meter.Int64Histogram(
		"export_bytes",
		metric.WithDescription("Size of delivered exports"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"export_duration_seconds",
		metric.WithDescription("Time spent encoding and delivering exports"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &exportMetrics{exports: exports, bytes: bytes, duration: duration}, nil
}

func (m *exportMetrics) record(ctx context.Context, result Result, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("format", string(result.Format)),
		attribute.String("status", string(result.Status)),
	)

	m.exports.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if result.Status == StatusDelivered {
		m.bytes.Record(ctx, int64(result.Bytes), metric.WithAttributes(attribute.String("format", string(result.Format))))
	}
}
