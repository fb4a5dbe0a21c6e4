// Package correlate implements the Correlation Engine (spec §4.5):
// deterministic identity pinning followed by spatial-gated global-nearest-
// neighbor assignment of observations to tracks.
package correlate

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/geomodel"
	"github.com/projectqai/tracknet/internal/observation"
)

// TrackSnapshot is the minimal per-track state the correlator needs: a
// read-only view the Track Manager hands in each fusion tick, decoupling
// this package from the mutable UnifiedTrack type.
type TrackSnapshot struct {
	ID          string
	MMSI        *uint32
	Lat, Lon    float64
	VN, VE      float64 // fused velocity, m/s, north/east
	SigmaM      float64
	UpdatedAt   time.Time
}

// Assigned is one observation bound to an existing track with a
// correlation confidence.
type Assigned struct {
	Obs        observation.Observation
	Confidence float64
}

// Result is the Correlation Engine's output for one batch (spec §4.5):
// per-track assignment lists plus a NEW bucket, and batch statistics
// (§ SUPPLEMENTED FEATURES, grounded on correlation.py's returned stats).
type Result struct {
	ByTrack map[string][]Assigned
	New     []observation.Observation

	PinnedCount  int
	GatedCount   int
	RejectCount  int
	NewCount     int
}

// BatchCorrelate assigns every observation in batch to a track or NEW,
// following the mandatory two-phase ordering of spec §4.5.
func BatchCorrelate(cfg *config.Correlation, sigmaByKind map[observation.Kind]float64, tracks []TrackSnapshot, batch []observation.Observation, t time.Time) Result {
	res := Result{ByTrack: make(map[string][]Assigned)}

	byMMSI := make(map[uint32]string, len(tracks))
	for _, tr := range tracks {
		if tr.MMSI != nil {
			byMMSI[*tr.MMSI] = tr.ID
		}
	}

	var remaining []observation.Observation

	// Phase 1 — deterministic identity pinning (spec §4.5 Phase 1).
	for _, obs := range batch {
		if mmsi, ok := obs.MMSI(); ok {
			if trackID, bound := byMMSI[mmsi]; bound {
				res.ByTrack[trackID] = append(res.ByTrack[trackID], Assigned{Obs: obs, Confidence: 1.0})
				res.PinnedCount++
				continue
			}
		}
		remaining = append(remaining, obs)
	}

	if len(remaining) == 0 {
		return res
	}

	// Phase 2 — spatial gated GNN over what's left, against every track
	// (spec §4.5 Phase 2: "for each remaining observation and each track" —
	// a track already pinned in Phase 1 is still a valid Phase 2 candidate
	// for a *different* observation in the same batch, e.g. a radar contact
	// enriching an AIS-identified track).
	matrix, feasible := buildCostMatrix(cfg, sigmaByKind, tracks, remaining, t)
	assignment := solveAssignmentSafe(matrix, feasible)

	nTracks := len(tracks)
	for obsIdx, colIdx := range assignment {
		obs := remaining[obsIdx]
		if colIdx < nTracks && feasible[obsIdx][colIdx] {
			tr := tracks[colIdx]
			cost := matrix.At(obsIdx, colIdx)
			res.ByTrack[tr.ID] = append(res.ByTrack[tr.ID], Assigned{Obs: obs, Confidence: 1 - cost})
			res.GatedCount++
			continue
		}
		res.New = append(res.New, obs)
		res.NewCount++
	}

	return res
}

// solveAssignmentSafe runs the Hungarian solver and falls back to greedy
// nearest-neighbor within gates on panic (spec §7: "Correlation solver
// failure (impossible under spec, defensive only): fall back to greedy
// nearest-neighbor within gates for that batch").
func solveAssignmentSafe(matrix *mat.Dense, feasible [][]bool) (result []int) {
	defer func() {
		if r := recover(); r != nil {
			result = greedyFallback(matrix, feasible)
		}
	}()
	return SolveAssignment(matrix)
}

// predictPosition extrapolates a track's position to t by constant-
// velocity, clamping Δt to maxTimeDeltaS (spec §4.5).
func predictPosition(tr TrackSnapshot, t time.Time, maxTimeDeltaS float64) geomodel.Point {
	dt := t.Sub(tr.UpdatedAt).Seconds()
	if dt > maxTimeDeltaS {
		dt = maxTimeDeltaS
	} else if dt < 0 {
		dt = 0
	}

	const metersPerDegLat = 111320.0
	dLat := tr.VN * dt / metersPerDegLat
	dLon := tr.VE * dt / (metersPerDegLat * cosDeg(tr.Lat))

	return geomodel.Point{Lat: tr.Lat + dLat, Lon: tr.Lon + dLon}
}

func cosDeg(deg float64) float64 {
	c := math.Cos(deg * math.Pi / 180)
	if c < 1e-6 {
		return 1e-6
	}
	return c
}
