// Package otelmetrics records world activity as OpenTelemetry counters.
package otelmetrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCollect  = "cachequest.tokens.collected"
	metricDeposit  = "cachequest.tokens.deposited"
	metricRejected = "cachequest.actions.rejected"
	metricSpawned  = "cachequest.caches.spawned"
	metricSaves    = "cachequest.saves"
)

// Recorder implements the world metrics port on top of a metric.Meter.
// Safe for concurrent use.
type Recorder struct {
	collected metric.Int64Counter
	deposited metric.Int64Counter
	rejected  metric.Int64Counter
	spawned   metric.Int64Counter
	saves     metric.Int64Counter
}

func NewRecorder(meter metric.Meter) (*Recorder, error) {
	collected, err := meter.Int64Counter(metricCollect,
		metric.WithDescription("Tokens moved from a cache into the wallet"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}
	deposited, err := meter.Int64Counter(metricDeposit,
		metric.WithDescription("Tokens moved from the wallet into a cache"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter(metricRejected,
		metric.WithDescription("Collect or deposit requests rejected, by reason"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	spawned, err := meter.Int64Counter(metricSpawned,
		metric.WithDescription("Caches materialized by visibility scans"),
		metric.WithUnit("{cache}"),
	)
	if err != nil {
		return nil, err
	}
	saves, err := meter.Int64Counter(metricSaves,
		metric.WithDescription("World save attempts, by outcome"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		collected: collected,
		deposited: deposited,
		rejected:  rejected,
		spawned:   spawned,
		saves:     saves,
	}, nil
}

func (r *Recorder) RecordCollect() {
	r.collected.Add(context.Background(), 1)
}

func (r *Recorder) RecordDeposit() {
	r.deposited.Add(context.Background(), 1)
}

func (r *Recorder) RecordRejected(reason string) {
	r.rejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (r *Recorder) RecordSpawn(caches int) {
	if caches <= 0 {
		return
	}
	r.spawned.Add(context.Background(), int64(caches))
}

func (r *Recorder) RecordSave(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.saves.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
