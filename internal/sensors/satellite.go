package sensors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/projectqai/tracknet/internal/bus"
	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/observation"
	"github.com/projectqai/tracknet/internal/status"
)

// SatelliteIngester advances a logical cycle counter and, for each
// satellite whose revisit interval elapses, sweeps a synthetic swath for
// detections (spec §4.3 Satellite ingester).
type SatelliteIngester struct {
	cfg   *config.SatelliteConfig
	pub   *publisher
	store *fleet.Store
	cycle int64
}

// NewSatelliteIngester builds a satellite ingester over the configured
// satellites.
func NewSatelliteIngester(cfg *config.SatelliteConfig, store *fleet.Store, b *bus.Bus, st *status.Writer, logger *slog.Logger) *SatelliteIngester {
	return &SatelliteIngester{
		cfg:   cfg,
		store: store,
		pub:   newPublisher(b, observation.TopicSatellite, cfg.StreamMaxLen, st, logger),
	}
}

// Run ticks the ingester forever at cfg.TickHz until ctx is cancelled.
func (si *SatelliteIngester) Run(ctx context.Context) error {
	ticker := time.NewTicker(config.TickInterval(si.cfg.TickHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			si.pub.updateStatus(ctx, false)
			return nil
		case <-ticker.C:
			si.tick(ctx)
			si.pub.updateStatus(ctx, true)
		}
	}
}

func (si *SatelliteIngester) tick(ctx context.Context) {
	si.cycle++

	vessels, err := fleetSnapshot(ctx, si.store)
	if err != nil {
		si.pub.logger.Error("fleet snapshot failed", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, sat := range si.cfg.Satellites {
		if sat.Revisit <= 0 || si.cycle%int64(sat.Revisit) != 0 {
			continue
		}
		si.pass(ctx, sat, vessels, now)
	}
}

// pass generates a rectangular swath and emits a detection for every
// vessel inside it that survives the detection draw (spec §4.3 steps 1-3).
func (si *SatelliteIngester) pass(ctx context.Context, sat config.Satellite, vessels []*fleet.Vessel, now time.Time) {
	swathDegLat := metersToDegLat(sat.SwathKM * 1000)

	centerLat := si.pub.rng.Float64()*120 - 60
	centerLon := si.pub.rng.Float64()*360 - 180
	northSouth := si.pub.rng.Float64() < 0.5

	halfWidthLat := swathDegLat / 2
	halfWidthLon := metersToDegLon(sat.SwathKM*1000/2, centerLat)

	for _, v := range vessels {
		var inSwath bool
		if northSouth {
			inSwath = absF(v.Lat-centerLat) <= halfWidthLat
		} else {
			inSwath = absF(v.Lon-centerLon) <= halfWidthLon
		}
		if !inSwath {
			continue
		}

		detectProb := 0.85 * (1 - sat.Cloud)
		if sat.SAR {
			detectProb = 0.95
		}
		if si.pub.rng.Float64() >= detectProb {
			continue
		}

		obs := &observation.Satellite{
			DetectionID:     uuid.NewString(),
			SourceSatellite: sat.ID,
			Lat:             v.Lat + metersToDegLat(jitter(si.pub.rng, si.cfg.PositionErrM)),
			Lon:             v.Lon + metersToDegLon(jitter(si.pub.rng, si.cfg.PositionErrM), v.Lat),
			VesselLengthM:   v.LengthM + jitter(si.pub.rng, si.cfg.LengthErrM),
			Confidence:      detectProb,
			IsDarkShip:      !v.AISOn,
			Timestamp:       now,
		}
		si.pub.publish(ctx, string(observation.KindSatellite), observation.EncodeSatellite(obs))
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
