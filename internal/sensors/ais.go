package sensors

import (
	"context"
	"log/slog"
	"time"

	aislib "github.com/BertoldVdb/go-ais"

	"github.com/projectqai/tracknet/internal/bus"
	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/observation"
	"github.com/projectqai/tracknet/internal/status"
)

// AISIngester degrades the ground-truth fleet into ais:positions
// observations (spec §4.3 AIS ingester).
type AISIngester struct {
	cfg *config.AIS
	pub *publisher
	store *fleet.Store
}

// NewAISIngester builds an AIS ingester.
func NewAISIngester(cfg *config.AIS, store *fleet.Store, b *bus.Bus, st *status.Writer, logger *slog.Logger) *AISIngester {
	return &AISIngester{
		cfg:   cfg,
		store: store,
		pub:   newPublisher(b, observation.TopicAIS, cfg.StreamMaxLen, st, logger),
	}
}

// Run ticks the ingester forever at cfg.TickHz until ctx is cancelled.
func (a *AISIngester) Run(ctx context.Context) error {
	ticker := time.NewTicker(config.TickInterval(a.cfg.TickHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.pub.updateStatus(ctx, false)
			return nil
		case <-ticker.C:
			a.tick(ctx)
			a.pub.updateStatus(ctx, true)
		}
	}
}

func (a *AISIngester) tick(ctx context.Context) {
	vessels, err := fleetSnapshot(ctx, a.store)
	if err != nil {
		a.pub.logger.Error("fleet snapshot failed", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, v := range vessels {
		// §4.3 step 1: AIS is the defining capability gap.
		if !v.AISOn {
			continue
		}
		// §4.3 step 2: not every vessel transmits every cycle.
		if a.pub.rng.Float64() >= a.cfg.TransmitProb {
			continue
		}
		// §4.3 step 3: packet loss.
		if a.pub.rng.Float64() < a.cfg.LossProb {
			continue
		}

		// Internal representation mirrors the shape the teacher's AIS
		// decoder produces (ais.PositionReport), exercised here on the
		// encode side.
		report := aislib.PositionReport{
			UserID:    mmsiFromVesselID(v.ID),
			Latitude:  float32(v.Lat + metersToDegLat(jitter(a.pub.rng, a.cfg.PositionErrM))),
			Longitude: float32(v.Lon + metersToDegLon(jitter(a.pub.rng, a.cfg.PositionErrM), v.Lat)),
			Sog:       float32(v.SpeedKn),
			Cog:       float32(v.Course),
		}

		obs := &observation.AIS{
			MMSI:      report.UserID,
			ShipName:  v.Name,
			ShipType:  string(v.Class),
			Lat:       float64(report.Latitude),
			Lon:       float64(report.Longitude),
			SpeedKn:   float64(report.Sog),
			Course:    float64(report.Cog),
			Timestamp: now,
		}
		a.pub.publish(ctx, string(observation.KindAIS), observation.EncodeAIS(obs))
	}
}

// mmsiFromVesselID derives a stable pseudo-MMSI from the vessel's 9-char
// id, since the ground-truth Vessel type carries no separate MMSI field
// (spec §3 identity is just "stable 9-char id"; AIS's mmsi is the wire
// identity the sensor attaches).
func mmsiFromVesselID(id string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return 100000000 + (h % 800000000)
}
