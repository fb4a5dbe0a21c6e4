// Package world implements the World Simulator (spec §4.2): it generates
// the initial fleet, advances each vessel along its shipping lane every
// tick, and rewrites the Fleet Store.
package world

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/geomodel"
)

// classRatio is one entry of the §4.2 class-ratio table.
type classRatio struct {
	class    fleet.Class
	pct      float64
	darkRate float64 // class base dark-rate, used with dark_pct (§4.2)
}

// classRatios sums to 100; dark rates are a plausible per-class baseline —
// fishing and naval vessels run dark more often than passenger liners —
// since spec.md only names "class base-dark-rate" without tabulating it.
var classRatios = []classRatio{
	{fleet.ClassCargo, 30, 0.02},
	{fleet.ClassTanker, 25, 0.02},
	{fleet.ClassContainer, 20, 0.01},
	{fleet.ClassFishing, 12, 0.25},
	{fleet.ClassPassenger, 5, 0.01},
	{fleet.ClassNaval, 3, 0.60},
	{fleet.ClassTug, 3, 0.05},
	{fleet.ClassUnknown, 2, 0.30},
}

const nmToMeters = 1852.0
const knotToMS = 0.5144

// Simulator advances the ground-truth fleet.
type Simulator struct {
	cfg    *config.World
	store  *fleet.Store
	mask   *geomodel.OceanMask
	lanes  []Lane
	logger *slog.Logger
	rng    *rand.Rand

	vessels map[string]*fleet.Vessel
}

// New builds a Simulator over the given Fleet Store, ocean mask and lanes.
func New(cfg *config.World, store *fleet.Store, mask *geomodel.OceanMask, lanes []Lane, logger *slog.Logger) *Simulator {
	return &Simulator{
		cfg:     cfg,
		store:   store,
		mask:    mask,
		lanes:   lanes,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		vessels: make(map[string]*fleet.Vessel),
	}
}

// Init generates the initial fleet per the §4.2 class ratios and lane
// placement and performs the first store write.
func (s *Simulator) Init(ctx context.Context) error {
	n := s.cfg.NumVessels
	classes := expandClasses(n)

	for i := 0; i < n; i++ {
		cr := classes[i]
		v := s.spawnVessel(cr)
		s.vessels[v.ID] = v
	}

	s.logger.Info("fleet initialized", "count", len(s.vessels))
	return s.flush(ctx)
}

// expandClasses returns n class assignments distributed per classRatios,
// shuffled so position in the slice isn't correlated with class.
func expandClasses(n int) []classRatio {
	out := make([]classRatio, 0, n)
	for _, cr := range classRatios {
		count := int(math.Round(cr.pct / 100 * float64(n)))
		for i := 0; i < count; i++ {
			out = append(out, cr)
		}
	}
	for len(out) < n {
		out = append(out, classRatios[0])
	}
	out = out[:n]
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (s *Simulator) spawnVessel(cr classRatio) *fleet.Vessel {
	lane := s.lanes[s.rng.Intn(len(s.lanes))]
	pos := s.placeOnLane(lane)

	darkProb := math.Max(cr.darkRate, s.cfg.DarkPct/100)

	v := &fleet.Vessel{
		ID:       uuid.NewString()[:9],
		Name:     fmt.Sprintf("%s-%04d", cr.class, s.rng.Intn(10000)),
		Class:    cr.class,
		Lat:      pos.Lat,
		Lon:      pos.Lon,
		SpeedKn:  8 + s.rng.Float64()*12,
		Course:   s.rng.Float64() * 360,
		Heading:  0,
		LengthM:  classLength(cr.class),
		BeamM:    classLength(cr.class) / 6,
		DraughtM: classLength(cr.class) / 20,
		RCS:      classRCS(cr.class),
		AISOn:    s.rng.Float64() >= darkProb,
		LaneID:   lane.ID,
	}
	v.Heading = v.Course
	v.NextWaypoint = 1 % len(lane.Waypoints)
	target := lane.Waypoints[v.NextWaypoint]
	v.TargetLat, v.TargetLon = target.Lat, target.Lon
	return v
}

// placeOnLane picks a random segment of lane, offsets it slightly, and
// retries until the point lands in ocean, falling back to deep ocean on
// exhaustion (spec §4.2).
func (s *Simulator) placeOnLane(lane Lane) geomodel.Point {
	for attempt := 0; attempt < s.cfg.MaxPlacementTry; attempt++ {
		segIdx := s.rng.Intn(len(lane.Waypoints) - 1)
		a, b := lane.Waypoints[segIdx], lane.Waypoints[segIdx+1]
		t := s.rng.Float64()
		lat := a.Lat + t*(b.Lat-a.Lat)
		lon := a.Lon + t*(b.Lon-a.Lon)

		jitter := 0.2
		p := geomodel.Point{Lat: lat + (s.rng.Float64()*2-1)*jitter, Lon: lon + (s.rng.Float64()*2-1)*jitter}

		if s.mask.IsOcean(p) && s.mask.InBoundsWithMargin(p, s.cfg.BoundaryMargin) {
			return p
		}
	}
	return s.mask.DeepOceanFallback()
}

func classLength(c fleet.Class) float64 {
	switch c {
	case fleet.ClassContainer, fleet.ClassTanker:
		return 250
	case fleet.ClassCargo:
		return 180
	case fleet.ClassPassenger:
		return 150
	case fleet.ClassNaval:
		return 120
	case fleet.ClassFishing:
		return 30
	case fleet.ClassTug:
		return 25
	default:
		return 50
	}
}

func classRCS(c fleet.Class) float64 {
	switch c {
	case fleet.ClassContainer, fleet.ClassTanker:
		return 0.9
	case fleet.ClassCargo:
		return 0.7
	case fleet.ClassNaval:
		return 0.3
	case fleet.ClassFishing, fleet.ClassTug:
		return 0.2
	default:
		return 0.4
	}
}

// Run ticks the simulator forever, at cfg.TickHz (real time), each tick
// advancing simulated time by TimeAccel/TickHz seconds (S·Δt), until ctx is
// cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	interval := config.TickInterval(s.cfg.TickHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(s.cfg.TimeAccel / s.cfg.TickHz)
			if err := s.flush(ctx); err != nil {
				s.logger.Error("flush failed", "error", err)
			}
		}
	}
}

// Tick advances every vessel by simulatedSeconds of simulated time
// (spec §4.2's "Move by S·Δt simulated seconds").
func (s *Simulator) Tick(simulatedSeconds float64) {
	for _, v := range s.vessels {
		s.advanceWaypoint(v)
		s.steer(v, simulatedSeconds)
		s.move(v, simulatedSeconds)
		s.jitterHeading(v)
		s.randomWalkSpeed(v)
		s.toggleAIS(v)
	}
}

const waypointArrivalNM = 5.0

func (s *Simulator) advanceWaypoint(v *fleet.Vessel) {
	lane, ok := lo.Find(s.lanes, func(l Lane) bool { return l.ID == v.LaneID })
	if !ok {
		return
	}
	target := geomodel.Point{Lat: v.TargetLat, Lon: v.TargetLon}
	d := geomodel.DistanceMeters(geomodel.Point{Lat: v.Lat, Lon: v.Lon}, target)
	if d > waypointArrivalNM*nmToMeters {
		return
	}

	if v.NextWaypoint >= len(lane.Waypoints)-1 {
		if s.rng.Float64() < 0.5 {
			reverseLane(&lane)
			v.NextWaypoint = 1
		} else {
			lane = s.lanes[s.rng.Intn(len(s.lanes))]
			v.LaneID = lane.ID
			v.NextWaypoint = 1 % len(lane.Waypoints)
		}
	} else {
		v.NextWaypoint++
	}

	wp := lane.Waypoints[v.NextWaypoint]
	v.TargetLat, v.TargetLon = wp.Lat, wp.Lon
}

func reverseLane(l *Lane) {
	rev := make([]geomodel.Point, len(l.Waypoints))
	for i, p := range l.Waypoints {
		rev[len(l.Waypoints)-1-i] = p
	}
	l.Waypoints = rev
}

const maxTurnRateDegPerSec = 5.0

func (s *Simulator) steer(v *fleet.Vessel, simulatedSeconds float64) {
	targetCourse := geomodel.BearingDegrees(
		geomodel.Point{Lat: v.Lat, Lon: v.Lon},
		geomodel.Point{Lat: v.TargetLat, Lon: v.TargetLon},
	)

	maxDelta := maxTurnRateDegPerSec * simulatedSeconds
	delta := angleDelta(v.Course, targetCourse)
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	v.Course = normalizeDeg(v.Course + delta)
}

// angleDelta returns the signed shortest angular distance from a to b, in
// degrees, positive clockwise.
func angleDelta(a, b float64) float64 {
	d := math.Mod(b-a+540, 360) - 180
	return d
}

func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// move advances v by simulatedSeconds at its current speed, on the flat-
// earth approximation spec §4.2 specifies, reversing course and discarding
// the move if the destination is land.
func (s *Simulator) move(v *fleet.Vessel, simulatedSeconds float64) {
	distM := v.SpeedKn * knotToMS * simulatedSeconds
	courseRad := v.Course * math.Pi / 180
	latRad := v.Lat * math.Pi / 180

	const earthRadiusM = 6371000.0
	dDeg := distM / earthRadiusM * 180 / math.Pi

	dLat := dDeg * math.Cos(courseRad)
	dLon := dDeg * math.Sin(courseRad) / math.Cos(latRad)

	candidate := geomodel.Point{Lat: v.Lat + dLat, Lon: v.Lon + dLon}

	if !s.mask.IsOcean(candidate) {
		v.Course = normalizeDeg(v.Course + 180)
		return
	}

	v.Lat, v.Lon = candidate.Lat, candidate.Lon
}

func (s *Simulator) jitterHeading(v *fleet.Vessel) {
	v.Heading = normalizeDeg(v.Course + (s.rng.Float64()*2-1)*3)
}

func (s *Simulator) randomWalkSpeed(v *fleet.Vessel) {
	if s.rng.Float64() >= 0.01 {
		return
	}
	v.SpeedKn += (s.rng.Float64()*2 - 1) * 2
	if v.SpeedKn < 1 {
		v.SpeedKn = 1
	} else if v.SpeedKn > 30 {
		v.SpeedKn = 30
	}
}

func (s *Simulator) toggleAIS(v *fleet.Vessel) {
	if s.rng.Float64() < s.cfg.ToggleProb {
		v.AISOn = !v.AISOn
	}
}

func (s *Simulator) flush(ctx context.Context) error {
	vessels := lo.Values(s.vessels)
	return s.store.UpsertBatch(ctx, vessels)
}
