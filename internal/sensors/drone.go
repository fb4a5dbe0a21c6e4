package sensors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/projectqai/tracknet/internal/bus"
	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/geomodel"
	"github.com/projectqai/tracknet/internal/observation"
	"github.com/projectqai/tracknet/internal/status"
)

// DroneIngester sweeps each patrol zone when active and emits detections
// for every vessel inside the zone radius (spec §4.3 Drone ingester). The
// drone is the strongest identity source for a dark vessel: it can supply
// a visual_name even when AIS is off.
type DroneIngester struct {
	cfg   *config.Drone
	pub   *publisher
	store *fleet.Store
}

// NewDroneIngester builds a drone ingester over the configured patrol
// zones.
func NewDroneIngester(cfg *config.Drone, store *fleet.Store, b *bus.Bus, st *status.Writer, logger *slog.Logger) *DroneIngester {
	return &DroneIngester{
		cfg:   cfg,
		store: store,
		pub:   newPublisher(b, observation.TopicDrone, cfg.StreamMaxLen, st, logger),
	}
}

// Run ticks the ingester forever at cfg.TickHz until ctx is cancelled.
func (d *DroneIngester) Run(ctx context.Context) error {
	ticker := time.NewTicker(config.TickInterval(d.cfg.TickHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.pub.updateStatus(ctx, false)
			return nil
		case <-ticker.C:
			d.tick(ctx)
			d.pub.updateStatus(ctx, true)
		}
	}
}

func (d *DroneIngester) tick(ctx context.Context) {
	vessels, err := fleetSnapshot(ctx, d.store)
	if err != nil {
		d.pub.logger.Error("fleet snapshot failed", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, zone := range d.cfg.Zones {
		if d.pub.rng.Float64() >= zone.ActiveProb {
			continue
		}
		d.sweepZone(ctx, zone, vessels, now)
	}
}

func (d *DroneIngester) sweepZone(ctx context.Context, zone config.DroneZone, vessels []*fleet.Vessel, now time.Time) {
	center := geomodel.Point{Lat: zone.CenterLat, Lon: zone.CenterLon}
	radiusM := zone.RadiusNM * 1852.0

	for _, v := range vessels {
		dist := geomodel.DistanceMeters(center, geomodel.Point{Lat: v.Lat, Lon: v.Lon})
		if dist > radiusM {
			continue
		}

		// §4.3 step 1: detection then image capture.
		if d.pub.rng.Float64() >= d.cfg.DetectProb {
			continue
		}
		if d.pub.rng.Float64() >= d.cfg.CaptureProb {
			continue
		}

		visualName := "UNREADABLE"
		if d.pub.rng.Float64() < d.cfg.TrueNameProb {
			visualName = v.Name
		}

		obs := &observation.Drone{
			DetectionID:      uuid.NewString(),
			DroneID:          zone.ID,
			Lat:              v.Lat + metersToDegLat(jitter(d.pub.rng, d.cfg.PositionErrM)),
			Lon:              v.Lon + metersToDegLon(jitter(d.pub.rng, d.cfg.PositionErrM), v.Lat),
			Confidence:       d.cfg.DetectProb * d.cfg.CaptureProb,
			ObjectClass:      string(v.Class),
			EstimatedLengthM: v.LengthM + jitter(d.pub.rng, d.cfg.DimensionErrM),
			EstimatedWidthM:  v.BeamM + jitter(d.pub.rng, d.cfg.DimensionErrM),
			FrameID:          uuid.NewString(),
			VisualName:       visualName,
			Timestamp:        now,
		}
		d.pub.publish(ctx, string(observation.KindDrone), observation.EncodeDrone(obs))
	}
}
