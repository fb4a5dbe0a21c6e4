package sensors

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aep/gasterix/cat62"
	"github.com/alitto/pond"
	"github.com/maypok86/otter"

	"github.com/projectqai/tracknet/internal/bus"
	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/geomodel"
	"github.com/projectqai/tracknet/internal/observation"
	"github.com/projectqai/tracknet/internal/status"
)

// RadarIngester sweeps every (station, vessel) pair each cycle and
// degrades detections into radar:contacts observations (spec §4.3 Radar
// ingester).
type RadarIngester struct {
	cfg   *config.Radar
	pub   *publisher
	store *fleet.Store
	pool  *pond.WorkerPool

	// trackLabels derives a station-local track label deterministically
	// from (station, vessel), the same TTL-cache allocator idiom the
	// teacher's ASTERIX CAT62 adapter uses for track numbers.
	trackLabels  otter.Cache[string, uint16]
	labelCounter atomic.Uint32
}

// NewRadarIngester builds a radar ingester over the configured stations.
func NewRadarIngester(cfg *config.Radar, store *fleet.Store, b *bus.Bus, st *status.Writer, logger *slog.Logger) (*RadarIngester, error) {
	cache, err := otter.MustBuilder[string, uint16](10000).WithVariableTTL().Build()
	if err != nil {
		return nil, fmt.Errorf("build track label cache: %w", err)
	}

	return &RadarIngester{
		cfg:         cfg,
		store:       store,
		pub:         newPublisher(b, observation.TopicRadar, cfg.StreamMaxLen, st, logger),
		pool:        pond.New(16, 1024),
		trackLabels: cache,
	}, nil
}

// Run ticks the ingester forever at cfg.TickHz until ctx is cancelled.
func (r *RadarIngester) Run(ctx context.Context) error {
	ticker := time.NewTicker(config.TickInterval(r.cfg.TickHz))
	defer ticker.Stop()
	defer r.pool.StopAndWait()

	for {
		select {
		case <-ctx.Done():
			r.pub.updateStatus(ctx, false)
			return nil
		case <-ticker.C:
			r.tick(ctx)
			r.pub.updateStatus(ctx, true)
		}
	}
}

func (r *RadarIngester) tick(ctx context.Context) {
	vessels, err := fleetSnapshot(ctx, r.store)
	if err != nil {
		r.pub.logger.Error("fleet snapshot failed", "error", err)
		return
	}

	now := time.Now().UTC()
	var wg sync.WaitGroup

	for _, station := range r.cfg.Stations {
		for _, v := range vessels {
			station, v := station, v
			wg.Add(1)
			r.pool.Submit(func() {
				defer wg.Done()
				r.sweep(ctx, station, v, now)
			})
		}
	}

	wg.Wait()
}

func (r *RadarIngester) sweep(ctx context.Context, s config.RadarStation, v *fleet.Vessel, now time.Time) {
	stationPt := geomodel.Point{Lat: s.Lat, Lon: s.Lon}
	vesselPt := geomodel.Point{Lat: v.Lat, Lon: v.Lon}

	d := geomodel.DistanceMeters(stationPt, vesselPt)
	rangeM := s.RangeNM * 1852.0
	// §4.3 step 1: out of range.
	if d > rangeM {
		return
	}
	// §4.3 step 2: not refreshed this cycle.
	if r.pub.rng.Float64() < r.cfg.SkipProb {
		return
	}

	rcsFactor := clamp(0.5+0.5*v.RCS, 0.5, 1.5)
	detectProb := r.cfg.BaseDetect * (1 - math.Pow(d/rangeM, 2)) * rcsFactor * s.WeatherFact
	if r.pub.rng.Float64() >= detectProb {
		return
	}

	obs := &observation.Radar{
		TrackID:   r.trackLabel(s.ID, v.ID),
		StationID: s.ID,
		Lat:       v.Lat + metersToDegLat(jitter(r.pub.rng, r.cfg.PositionErrM)),
		Lon:       v.Lon + metersToDegLon(jitter(r.pub.rng, r.cfg.PositionErrM), v.Lat),
		SpeedKn:   v.SpeedKn + jitter(r.pub.rng, r.cfg.SpeedErrKn),
		Course:    normalizeDeg(v.Course + jitter(r.pub.rng, r.cfg.CourseErrDeg)),
		Quality:   int(math.Floor(100 * detectProb)),
		Timestamp: now,
	}
	r.pub.publish(ctx, string(observation.KindRadar), observation.EncodeRadar(obs))
}

// trackLabel derives a station-local label deterministically from
// (station, vessel), grounded on the teacher's ASTERIX CAT62
// cacheID2int/otter allocator.
func (r *RadarIngester) trackLabel(stationID, vesselID string) string {
	key := stationID + ":" + vesselID
	if num, ok := r.trackLabels.Get(key); ok {
		return cat62LabelString(stationID, num)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	num := uint16(h.Sum32()%4095) + 1
	r.trackLabels.Set(key, num, 10*time.Minute)
	return cat62LabelString(stationID, num)
}

func cat62LabelString(stationID string, num uint16) string {
	track := &cat62.Track{TrackNumber: &cat62.TrackNumber{Number: num}}
	return fmt.Sprintf("%s-%04d", stationID, track.TrackNumber.Number)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
