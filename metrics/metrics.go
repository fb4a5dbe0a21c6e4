// Package metrics wires OpenTelemetry counters/gauges for every tracknet
// component, exported via Prometheus (see prom.go). Every process that reads
// Fleet Store snapshots, publishes observations, or runs fusion calls Init
// once and then records through the package-level functions below.
package metrics

import (
	"context"
	"runtime"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracksAlive atomic.Int64

	meter metric.Meter

	tracksAliveGauge metric.Int64ObservableGauge

	observationsEmitted  metric.Int64Counter
	observationsDropped  metric.Int64Counter
	tracksCreated        metric.Int64Counter
	tracksDropped        metric.Int64Counter
	darkShipsFlagged     metric.Int64Counter
	correlationsByKind   metric.Int64Counter
	messagesSchemaFailed metric.Int64Counter

	goroutinesGauge   metric.Int64ObservableGauge
	memHeapAllocGauge metric.Int64ObservableGauge
	gcNumGauge        metric.Int64ObservableGauge
)

// Init registers every tracknet metric instrument against the process's
// global MeterProvider. Call InitPrometheus first to install that provider.
func Init() error {
	meter = otel.Meter("tracknet")

	var err error
	tracksAliveGauge, err = meter.Int64ObservableGauge(
		"tracknet.tracks.alive",
		metric.WithDescription("Unified tracks currently not dropped"),
		metric.WithUnit("{tracks}"),
	)
	if err != nil {
		return err
	}

	observationsEmitted, err = meter.Int64Counter(
		"tracknet.observations.emitted",
		metric.WithDescription("Observations published to the observation bus, by sensor kind"),
		metric.WithUnit("{observations}"),
	)
	if err != nil {
		return err
	}

	observationsDropped, err = meter.Int64Counter(
		"tracknet.observations.dropped",
		metric.WithDescription("Observations dropped before fusion, by reason"),
		metric.WithUnit("{observations}"),
	)
	if err != nil {
		return err
	}

	tracksCreated, err = meter.Int64Counter(
		"tracknet.tracks.created",
		metric.WithDescription("Unified tracks created from NEW assignments"),
		metric.WithUnit("{tracks}"),
	)
	if err != nil {
		return err
	}

	tracksDropped, err = meter.Int64Counter(
		"tracknet.tracks.dropped",
		metric.WithDescription("Unified tracks transitioned to dropped"),
		metric.WithUnit("{tracks}"),
	)
	if err != nil {
		return err
	}

	darkShipsFlagged, err = meter.Int64Counter(
		"tracknet.dark_ships.flagged",
		metric.WithDescription("Dark-ship alerts appended to fusion:dark_ships"),
		metric.WithUnit("{alerts}"),
	)
	if err != nil {
		return err
	}

	correlationsByKind, err = meter.Int64Counter(
		"tracknet.correlations",
		metric.WithDescription("Observation-to-track assignments, by phase"),
		metric.WithUnit("{assignments}"),
	)
	if err != nil {
		return err
	}

	messagesSchemaFailed, err = meter.Int64Counter(
		"tracknet.messages.schema_failed",
		metric.WithDescription("Bus messages dropped for failing schema validation"),
		metric.WithUnit("{messages}"),
	)
	if err != nil {
		return err
	}

	goroutinesGauge, err = meter.Int64ObservableGauge(
		"go.goroutines",
		metric.WithDescription("Number of goroutines"),
		metric.WithUnit("{goroutines}"),
	)
	if err != nil {
		return err
	}

	memHeapAllocGauge, err = meter.Int64ObservableGauge(
		"go.memory.heap.allocated",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	gcNumGauge, err = meter.Int64ObservableGauge(
		"go.gc.count",
		metric.WithDescription("Number of completed GC cycles"),
		metric.WithUnit("{cycles}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(tracksAliveGauge, tracksAlive.Load())

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			o.ObserveInt64(goroutinesGauge, int64(runtime.NumGoroutine()))
			o.ObserveInt64(memHeapAllocGauge, int64(m.HeapAlloc))
			o.ObserveInt64(gcNumGauge, int64(m.NumGC))

			return nil
		},
		tracksAliveGauge, goroutinesGauge, memHeapAllocGauge, gcNumGauge,
	)

	return err
}

// SetTracksAlive records the size of the current alive-track set (§4.7 step 7).
func SetTracksAlive(count int) { tracksAlive.Store(int64(count)) }

// ObservationEmitted increments the per-sensor emitted counter.
func ObservationEmitted(ctx context.Context, sensorKind string) {
	if observationsEmitted == nil {
		return
	}
	observationsEmitted.Add(ctx, 1, metric.WithAttributes(attrKind(sensorKind)))
}

// ObservationDropped increments the dropped-observation counter for reason;
// a "schema" reason also increments the schema-failure counter (§7).
func ObservationDropped(ctx context.Context, reason string) {
	if observationsDropped == nil {
		return
	}
	observationsDropped.Add(ctx, 1, metric.WithAttributes(attrReason(reason)))
	if messagesSchemaFailed != nil && reason == "schema" {
		messagesSchemaFailed.Add(ctx, 1)
	}
}

// TrackCreated increments the tracks-created counter.
func TrackCreated(ctx context.Context) {
	if tracksCreated != nil {
		tracksCreated.Add(ctx, 1)
	}
}

// TrackDropped increments the tracks-dropped counter.
func TrackDropped(ctx context.Context) {
	if tracksDropped != nil {
		tracksDropped.Add(ctx, 1)
	}
}

// DarkShipFlagged increments the dark-ship alert counter.
func DarkShipFlagged(ctx context.Context) {
	if darkShipsFlagged != nil {
		darkShipsFlagged.Add(ctx, 1)
	}
}

// Correlated increments the per-phase correlation counter ("pinned", "gated", "new").
func Correlated(ctx context.Context, phase string) {
	if correlationsByKind != nil {
		correlationsByKind.Add(ctx, 1, metric.WithAttributes(attrPhase(phase)))
	}
}

func attrKind(kind string) attribute.KeyValue   { return attribute.String("sensor_kind", kind) }
func attrReason(reason string) attribute.KeyValue { return attribute.String("reason", reason) }
func attrPhase(phase string) attribute.KeyValue { return attribute.String("phase", phase) }
