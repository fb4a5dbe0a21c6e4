// Package sensors implements the four Sensor Ingesters (spec §4.3): each
// reads a Fleet Store snapshot, applies its sensor-specific detection and
// error model, and publishes observations to its stream.
package sensors

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/projectqai/tracknet/internal/bus"
	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/status"
	"github.com/projectqai/tracknet/metrics"
)

// publisher is the shared plumbing every ingester uses to write its
// observations and status hash.
type publisher struct {
	bus    *bus.Bus
	topic  string
	maxLen int64
	status *status.Writer
	logger *slog.Logger
	rng    *rand.Rand

	emitted int64
}

func newPublisher(b *bus.Bus, topic string, maxLen int64, st *status.Writer, logger *slog.Logger) *publisher {
	return &publisher{
		bus: b, topic: topic, maxLen: maxLen, status: st, logger: logger,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *publisher) publish(ctx context.Context, kind string, fields map[string]interface{}) {
	if _, err := p.bus.Write(ctx, p.topic, fields, p.maxLen); err != nil {
		p.logger.Error("publish failed", "topic", p.topic, "error", err)
		metrics.ObservationDropped(ctx, "bus_write")
		return
	}
	p.emitted++
	metrics.ObservationEmitted(ctx, kind)
}

func (p *publisher) updateStatus(ctx context.Context, running bool) {
	if err := p.status.Update(ctx, running, map[string]int64{"emitted": p.emitted}); err != nil {
		p.logger.Error("status update failed", "error", err)
	}
}

// fleetSnapshot returns every vessel currently in the Fleet Store.
func fleetSnapshot(ctx context.Context, store *fleet.Store) ([]*fleet.Vessel, error) {
	return store.GetAll(ctx)
}

// jitter returns a uniform random value in [-mag, +mag].
func jitter(rng *rand.Rand, mag float64) float64 {
	return (rng.Float64()*2 - 1) * mag
}

// normalizeDeg wraps a degree value into [0, 360).
func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// metersToDegLat converts a meter offset to a latitude-degree offset.
func metersToDegLat(m float64) float64 {
	const earthRadiusM = 6371000.0
	return m / earthRadiusM * 180 / math.Pi
}

// metersToDegLon converts a meter offset to a longitude-degree offset at
// the given latitude.
func metersToDegLon(m, latDeg float64) float64 {
	const earthRadiusM = 6371000.0
	latRad := latDeg * math.Pi / 180
	cosLat := math.Cos(latRad)
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	return m / (earthRadiusM * cosLat) * 180 / math.Pi
}
