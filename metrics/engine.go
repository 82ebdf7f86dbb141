package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type EngineMetrics struct {
	opts metric.MeasurementOption

	startedCounter       metric.Int64Counter
	fulfilledCounter     metric.Int64Counter
	refundedCounter      metric.Int64Counter
	failedCounter        metric.Int64Counter
	fulfillmentHistogram metric.Float64Histogram
}

// NewEngineMetrics initializes metrics tracking the transfer lifecycle
func NewEngineMetrics(meter metric.Meter, env string, id string) (*EngineMetrics, error) {
	opts := metric.WithAttributeSet(attribute.NewSet(
		attribute.String("env", env),
		attribute.String("instance", id),
	))

	startedCounter, err := meter.Int64Counter(
		"engine.TransfersStarted",
		metric.WithDescription("Number of transfers started"),
	)
	if err != nil {
		return nil, err
	}

	fulfilledCounter, err := meter.Int64Counter(
		"engine.TransfersFulfilled",
		metric.WithDescription("Number of transfers fulfilled by a solver"),
	)
	if err != nil {
		return nil, err
	}

	refundedCounter, err := meter.Int64Counter(
		"engine.TransfersRefunded",
		metric.WithDescription("Number of transfers refunded after request expiry"),
	)
	if err != nil {
		return nil, err
	}

	failedCounter, err := meter.Int64Counter(
		"engine.TransfersFailed",
		metric.WithDescription("Number of transfers that ended in an error"),
	)
	if err != nil {
		return nil, err
	}

	fulfillmentHistogram, err := meter.Float64Histogram("engine.FulfillmentTime")
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		opts:                 opts,
		startedCounter:       startedCounter,
		fulfilledCounter:     fulfilledCounter,
		refundedCounter:      refundedCounter,
		failedCounter:        failedCounter,
		fulfillmentHistogram: fulfillmentHistogram,
	}, nil
}

func (m *EngineMetrics) TrackTransferStarted() {
	m.startedCounter.Add(context.Background(), 1, m.opts)
}

func (m *EngineMetrics) TrackFulfillment(duration time.Duration) {
	m.fulfilledCounter.Add(context.Background(), 1, m.opts)
	m.fulfillmentHistogram.Record(context.Background(), duration.Seconds(), m.opts)
}

func (m *EngineMetrics) TrackRefund() {
	m.refundedCounter.Add(context.Background(), 1, m.opts)
}

func (m *EngineMetrics) TrackFailure() {
	m.failedCounter.Add(context.Background(), 1, m.opts)
}
