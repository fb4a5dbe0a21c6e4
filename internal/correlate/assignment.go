package correlate

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/geomodel"
	"github.com/projectqai/tracknet/internal/observation"
)

// infeasibleCost stands in for "no edge" in the dense cost matrix the
// solver works over; kept finite so the solver's potential updates stay
// well-defined (spec §9: "any minimum-cost bipartite assignment ... is
// acceptable").
const infeasibleCost = 1e6

// buildCostMatrix builds the |obs| x (|tracks|+|obs|) rectangular cost
// matrix of spec §4.5: columns 0..nTracks-1 are existing tracks, columns
// nTracks..nTracks+nObs-1 are each observation's own "new track"
// pseudo-column at fixed cost new_track_cost.
func buildCostMatrix(cfg *config.Correlation, sigmaByKind map[observation.Kind]float64, tracks []TrackSnapshot, obs []observation.Observation, t time.Time) (*mat.Dense, [][]bool) {
	nObs := len(obs)
	nTracks := len(tracks)
	cols := nTracks + nObs

	matrix := mat.NewDense(nObs, cols, nil)
	feasible := make([][]bool, nObs)
	for i := range feasible {
		feasible[i] = make([]bool, nTracks)
	}

	for i, o := range obs {
		sigmaSensor := sigmaByKind[o.Kind]
		oLat, oLon := o.Position()
		oSpeed, oCourse, hasKinematics := observationSpeedCourse(o)

		for j, tr := range tracks {
			predicted := predictPosition(tr, t, cfg.MaxTimeDeltaS)
			d := geomodel.DistanceMeters(predicted, geomodel.Point{Lat: oLat, Lon: oLon})

			combinedSigma := math.Sqrt(tr.SigmaM*tr.SigmaM + sigmaSensor*sigmaSensor)
			gate := clampF(cfg.SigmaMult*combinedSigma, cfg.MinGateM, cfg.MaxGateM)

			if d > gate {
				matrix.Set(i, j, infeasibleCost)
				continue
			}

			score := d / combinedSigma
			if hasKinematics {
				trackSpeed, trackCourse, trackHasKinematics := trackSpeedCourse(tr)
				if trackHasKinematics {
					score += math.Abs(oSpeed-trackSpeed) / cfg.SpeedPenaltyKn
					score += courseDelta(oCourse, trackCourse) / cfg.CoursePenaltyDeg
				}
			}

			feasible[i][j] = true
			matrix.Set(i, j, score)
		}

		for k := 0; k < nObs; k++ {
			col := nTracks + k
			if k == i {
				matrix.Set(i, col, cfg.NewTrackCost)
			} else {
				matrix.Set(i, col, infeasibleCost)
			}
		}
	}

	return matrix, feasible
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func courseDelta(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 360-d {
		d = 360 - d
	}
	return d
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

func trackSpeedCourse(tr TrackSnapshot) (speed, course float64, ok bool) {
	vn, ve := tr.VN, tr.VE
	if vn == 0 && ve == 0 {
		return 0, 0, false
	}
	speedMS := math.Hypot(vn, ve)
	const msToKnot = 1 / 0.5144
	course = math.Atan2(ve, vn) * 180 / math.Pi
	if course < 0 {
		course += 360
	}
	return speedMS * msToKnot, course, true
}

// SolveAssignment solves the rectangular minimum-cost assignment problem
// (rows <= cols, every row assigned to a distinct column) via the
// classical O(n^2 m) Hungarian algorithm with potentials — a Jonker-
// Volgenrant-equivalent solution, per spec §9's "any minimum-cost
// bipartite assignment ... is acceptable; the key property is global
// optimality given the gates, not the algorithm."
//
// Returns, for each row i, the assigned column index.
func SolveAssignment(cost *mat.Dense) []int {
	n, m := cost.Dims()
	if n == 0 {
		return nil
	}

	const inf = math.MaxFloat64 / 2

	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1)
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	result := make([]int, n)
	for j := 1; j <= m; j++ {
		if p[j] >= 1 && p[j] <= n {
			result[p[j]-1] = j - 1
		}
	}
	return result
}

// greedyFallback implements the §7 defensive policy: "Correlation solver
// failure ... fall back to greedy nearest-neighbor within gates for that
// batch." Not wired into the normal path (the Hungarian solver above
// cannot fail on a well-formed matrix), kept for the recover() branch in
// solveAssignmentSafe.
func greedyFallback(cost *mat.Dense, feasible [][]bool) []int {
	n, m := cost.Dims()
	result := make([]int, n)
	takenCols := make(map[int]bool, m)

	for i := 0; i < n; i++ {
		best := -1
		bestCost := math.Inf(1)
		for j := 0; j < m; j++ {
			if takenCols[j] {
				continue
			}
			if j < len(feasible[i]) && !feasible[i][j] {
				continue
			}
			c := cost.At(i, j)
			if c < bestCost {
				bestCost = c
				best = j
			}
		}
		if best == -1 {
			best = len(feasible[i]) + i // fall to the observation's own pseudo-column
		}
		takenCols[best] = true
		result[i] = best
	}
	return result
}
