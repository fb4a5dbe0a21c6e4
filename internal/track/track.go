// Package track owns the UnifiedTrack type and the Track Manager (spec §3,
// §4.6): kinematic fusion, lifecycle state machine, and dark-ship rules.
package track

import (
	"math"
	"time"

	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/observation"
)

// IdentitySource is where a track's identity attributes came from.
type IdentitySource string

const (
	IdentityAIS         IdentitySource = "ais"
	IdentityDroneVisual IdentitySource = "drone-visual"
	IdentityUnknown     IdentitySource = "unknown"
)

// Status is a track's lifecycle state (spec §3).
type Status string

const (
	StatusTentative Status = "tentative"
	StatusConfirmed Status = "confirmed"
	StatusCoasting  Status = "coasting"
	StatusDropped   Status = "dropped"
)

// Provenance is one sensor's contribution record (spec §3).
type Provenance struct {
	SensorKind   observation.Kind
	InstrumentID string
	LastUpdate   time.Time
	SampleCount  int
	LastLat      float64
	LastLon      float64
	Confidence   float64
}

// UnifiedTrack is the Track Manager's owned mutable entity (spec §3).
type UnifiedTrack struct {
	ID string

	Lat, Lon       float64
	SpeedKn        float64
	Course         float64
	Heading        float64
	VN, VE         float64 // m/s

	SigmaM float64

	IdentitySource IdentitySource
	MMSI           *uint32
	Name           string
	Class          string
	LengthM        float64

	Provenance map[observation.Kind]*Provenance

	IsDark            bool
	DarkConfidence    float64
	AISLastSeen       *time.Time
	AISGapSeconds     *float64
	FlaggedForReview  bool
	AlertReason       string

	Status               Status
	CreatedAt, UpdatedAt time.Time
	UpdateCount          int
	CorrelationConfidence float64
	Quality              int
}

// ContributingSensors returns the set of sensor kinds present in
// provenance (spec §3 invariant).
func (t *UnifiedTrack) ContributingSensors() []observation.Kind {
	kinds := make([]observation.Kind, 0, len(t.Provenance))
	for k := range t.Provenance {
		kinds = append(kinds, k)
	}
	return kinds
}

// Manager owns every live UnifiedTrack in this process (spec §5: the
// fusion runner is single-threaded with respect to track state, so a
// plain map needs no locking).
type Manager struct {
	cfg    *config.TrackManager
	tracks map[string]*UnifiedTrack

	created int64
	dropped int64
	darkFlagged int64
}

// NewManager builds an empty Track Manager.
func NewManager(cfg *config.TrackManager) *Manager {
	return &Manager{cfg: cfg, tracks: make(map[string]*UnifiedTrack)}
}

// Alive returns every track whose status is not dropped.
func (m *Manager) Alive() []*UnifiedTrack {
	out := make([]*UnifiedTrack, 0, len(m.tracks))
	for _, t := range m.tracks {
		if t.Status != StatusDropped {
			out = append(out, t)
		}
	}
	return out
}

// Get returns a track by id, or nil.
func (m *Manager) Get(id string) *UnifiedTrack { return m.tracks[id] }

// Stats returns the Track Manager's running counters (§ SUPPLEMENTED
// FEATURES, grounded on track_manager.py's stats dict).
func (m *Manager) Stats() (created, dropped, darkFlagged int64) {
	return m.created, m.dropped, m.darkFlagged
}

func sigmaForKind(kind observation.Kind, sigmaByKind map[observation.Kind]float64) float64 {
	return sigmaByKind[kind]
}

// Create constructs a new tentative track from a NEW-bucket observation
// (spec §4.6 Create). identityID is the id the caller wants this track to
// carry (assigned once, never reused).
func (m *Manager) Create(identityID string, obs observation.Observation, sigmaByKind map[observation.Kind]float64, t time.Time) *UnifiedTrack {
	lat, lon := obs.Position()
	sigma := sigmaForKind(obs.Kind, sigmaByKind)

	tr := &UnifiedTrack{
		ID:             identityID,
		Lat:            lat,
		Lon:            lon,
		SigmaM:         sigma,
		IdentitySource: IdentityUnknown,
		Status:         StatusTentative,
		CreatedAt:      t,
		UpdatedAt:      t,
		UpdateCount:    1,
		Provenance:     make(map[observation.Kind]*Provenance),
	}

	applyIdentityOnCreate(tr, obs, t)
	recordProvenance(tr, obs, 1.0, t)
	tr.Quality = computeQuality(tr)

	m.tracks[tr.ID] = tr
	m.created++
	return tr
}

// applyIdentityOnCreate sets identity fields on a freshly created track.
// Per spec §4.6's Create note and Open Question #1 (see DESIGN.md): drone
// visual_name never promotes identity_source; only AIS does.
func applyIdentityOnCreate(tr *UnifiedTrack, obs observation.Observation, t time.Time) {
	switch obs.Kind {
	case observation.KindAIS:
		a := obs.AIS
		tr.IdentitySource = IdentityAIS
		tr.MMSI = &a.MMSI
		tr.Name = a.ShipName
		tr.Class = a.ShipType
		seen := t
		tr.AISLastSeen = &seen
	case observation.KindDrone:
		d := obs.Drone
		tr.Class = d.ObjectClass
		tr.LengthM = d.EstimatedLengthM
	case observation.KindSatellite:
		tr.LengthM = obs.Satellite.VesselLengthM
	}
}

func recordProvenance(tr *UnifiedTrack, obs observation.Observation, confidence float64, t time.Time) {
	lat, lon := obs.Position()
	kind := obs.Kind
	instrument := instrumentID(obs)

	p, ok := tr.Provenance[kind]
	if !ok {
		p = &Provenance{SensorKind: kind, InstrumentID: instrument}
		tr.Provenance[kind] = p
	}
	p.LastUpdate = t
	p.SampleCount++
	p.LastLat = lat
	p.LastLon = lon
	p.Confidence = confidence
}

func instrumentID(obs observation.Observation) string {
	switch obs.Kind {
	case observation.KindRadar:
		return obs.Radar.StationID
	case observation.KindSatellite:
		return obs.Satellite.SourceSatellite
	case observation.KindDrone:
		return obs.Drone.DroneID
	default:
		return ""
	}
}

// Update applies one observation to an existing track (spec §4.6 Update).
func (m *Manager) Update(tr *UnifiedTrack, obs observation.Observation, confidence float64, sigmaByKind map[observation.Kind]float64, t time.Time) error {
	if tr.Status == StatusDropped {
		return nil // spec §3 invariant: a dropped track is never mutated again
	}

	sigmaSensor := sigmaForKind(obs.Kind, sigmaByKind)
	lat, lon := obs.Position()

	if err := fusePosition(tr, lat, lon, sigmaSensor); err != nil {
		return err
	}

	if speed, course, ok := observationSpeedCourse(obs); ok {
		tr.SpeedKn = speed
		tr.Course = course
		rad := course * math.Pi / 180
		const knotToMS = 0.5144
		tr.VN = speed * knotToMS * math.Cos(rad)
		tr.VE = speed * knotToMS * math.Sin(rad)
	}

	applyIdentityOnUpdate(tr, obs, m.cfg, t)
	recordProvenance(tr, obs, confidence, t)

	tr.UpdatedAt = t
	tr.UpdateCount++
	if confidence > tr.CorrelationConfidence {
		tr.CorrelationConfidence = confidence
	}

	if tr.Status == StatusTentative && tr.UpdateCount >= m.cfg.ConfirmUpdateCount {
		tr.Status = StatusConfirmed
	} else if tr.Status == StatusCoasting {
		tr.Status = StatusConfirmed
	}

	tr.Quality = computeQuality(tr)
	return nil
}

// fusePosition applies inverse-variance weighting (spec §4.6 Update). σ is
// never clamped here (only after aging); it must strictly decrease or stay
// equal relative to min(old, sensor) (spec §8 property 3).
func fusePosition(tr *UnifiedTrack, obsLat, obsLon, sigmaSensor float64) error {
	if sigmaSensor <= 0 || math.IsNaN(sigmaSensor) {
		return errInvalidSigma
	}

	wt := 1 / (tr.SigmaM * tr.SigmaM)
	wo := 1 / (sigmaSensor * sigmaSensor)

	newLat := (tr.Lat*wt + obsLat*wo) / (wt + wo)
	newLon := (tr.Lon*wt + obsLon*wo) / (wt + wo)
	newSigma := 1 / math.Sqrt(wt+wo)

	if math.IsNaN(newLat) || math.IsNaN(newLon) || math.IsNaN(newSigma) {
		return errInvalidUpdate
	}

	tr.Lat, tr.Lon, tr.SigmaM = newLat, newLon, newSigma
	return nil
}

func observationSpeedCourse(o observation.Observation) (speed, course float64, ok bool) {
	switch o.Kind {
	case observation.KindAIS:
		return o.AIS.SpeedKn, o.AIS.Course, true
	case observation.KindRadar:
		return o.Radar.SpeedKn, o.Radar.Course, true
	default:
		return 0, 0, false
	}
}

// applyIdentityOnUpdate implements spec §4.6's identity-precedence rules.
func applyIdentityOnUpdate(tr *UnifiedTrack, obs observation.Observation, cfg *config.TrackManager, t time.Time) {
	switch obs.Kind {
	case observation.KindAIS:
		a := obs.AIS
		tr.IdentitySource = IdentityAIS
		tr.MMSI = &a.MMSI
		tr.Name = a.ShipName
		tr.Class = a.ShipType
		seen := t
		tr.AISLastSeen = &seen
		clearDark(tr)
	case observation.KindSatellite:
		s := obs.Satellite
		if s.IsDarkShip && tr.IdentitySource != IdentityAIS {
			if tr.DarkConfidence < 0.6 {
				tr.DarkConfidence = 0.6
			}
			tr.IsDark = true
		}
	case observation.KindDrone:
		d := obs.Drone
		if d.ObjectClass != "" {
			tr.Class = d.ObjectClass
		}
		if d.EstimatedLengthM > 0 {
			tr.LengthM = d.EstimatedLengthM
		}
	}
}

func clearDark(tr *UnifiedTrack) {
	tr.IsDark = false
	tr.DarkConfidence = 0
	tr.FlaggedForReview = false
	tr.AlertReason = ""
}

// bucketScore implements spec §4.6's Quality σ bucket: right-open
// intervals [0,100) [100,500) [500,1000) [1000,∞), matching
// track_manager.py's `<` comparisons (see DESIGN.md SUPPLEMENTED FEATURES).
func bucketScore(sigma float64) int {
	switch {
	case sigma < 100:
		return 30
	case sigma < 500:
		return 20
	case sigma < 1000:
		return 10
	default:
		return 0
	}
}

func computeQuality(tr *UnifiedTrack) int {
	sensors := len(tr.Provenance)
	updateTerm := tr.UpdateCount
	if updateTerm > 6 {
		updateTerm = 6
	}
	q := 10*sensors + 5*updateTerm + bucketScore(tr.SigmaM)
	if q > 100 {
		q = 100
	}
	return q
}
