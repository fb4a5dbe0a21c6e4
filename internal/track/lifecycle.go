package track

import (
	"fmt"
	"time"

	"github.com/projectqai/tracknet/internal/observation"
)

// CheckDark runs the dark-ship detection policy once per fusion tick,
// before AgeStep so a freshly-updated AIS gap counts this tick (spec
// §4.6 Dark-ship check).
func (m *Manager) CheckDark(t time.Time) {
	for _, tr := range m.tracks {
		if tr.Status == StatusDropped {
			continue
		}
		switch tr.IdentitySource {
		case IdentityAIS:
			m.checkDarkAIS(tr, t)
		default:
			m.checkDarkUnknown(tr, t)
		}
	}
}

func (m *Manager) checkDarkAIS(tr *UnifiedTrack, t time.Time) {
	if tr.AISLastSeen == nil {
		return
	}
	gap := t.Sub(*tr.AISLastSeen).Seconds()
	tr.AISGapSeconds = &gap

	if gap <= m.cfg.DarkAISGapThresholdS {
		return
	}
	if !hasRecentNonAIS(tr, t, m.cfg.NonAISRecencyS) {
		return
	}

	wasDark := tr.IsDark
	tr.IsDark = true
	tr.DarkConfidence = clampF01(gap / 3600)
	tr.AlertReason = fmt.Sprintf("AIS gap: %d minutes", int(gap/60))
	if !wasDark {
		tr.FlaggedForReview = true
		m.darkFlagged++
	}
}

func hasRecentNonAIS(tr *UnifiedTrack, t time.Time, recencyS float64) bool {
	for kind, p := range tr.Provenance {
		if kind == observation.KindAIS {
			continue
		}
		if t.Sub(p.LastUpdate).Seconds() <= recencyS {
			return true
		}
	}
	return false
}

func (m *Manager) checkDarkUnknown(tr *UnifiedTrack, t time.Time) {
	nonAIS := 0
	hasDrone := false
	hasSat := false
	radarSamples := 0

	for kind, p := range tr.Provenance {
		switch kind {
		case observation.KindAIS:
			continue
		case observation.KindDrone:
			hasDrone = true
		case observation.KindSatellite:
			hasSat = true
		case observation.KindRadar:
			radarSamples = p.SampleCount
		}
		nonAIS++
	}

	if tr.IsDark {
		return
	}
	if !(nonAIS >= 2 || hasDrone) {
		return
	}

	confidence := 0.5
	if radarSamples >= m.cfg.RadarSampleMin {
		confidence += 0.2
	}
	if hasSat {
		confidence += 0.1
	}
	if hasDrone {
		confidence += 0.3
	}
	confidence = clampF01(confidence)

	tr.IsDark = true
	tr.DarkConfidence = confidence
	if confidence >= m.cfg.AlertThreshold {
		tr.FlaggedForReview = true
		m.darkFlagged++
	}
}

func clampF01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// AgeStep runs the lifecycle age sweep once per fusion tick (spec §4.6 Age
// step). It must run after CheckDark so a freshly-set AIS gap is counted
// before the track is coasted/dropped.
func (m *Manager) AgeStep(t time.Time) {
	for _, tr := range m.tracks {
		if tr.Status == StatusDropped {
			continue
		}

		gap := t.Sub(tr.UpdatedAt).Seconds()

		if gap > m.cfg.DropTimeoutS {
			tr.Status = StatusDropped
			m.dropped++
			continue
		}

		if gap > m.cfg.CoastTimeoutS && tr.Status != StatusCoasting {
			tr.Status = StatusCoasting
			tr.SigmaM = minF(m.cfg.SigmaMax, m.cfg.CoastSigmaGrowth*tr.SigmaM)
		}

		tr.SigmaM = clampF(tr.SigmaM, m.cfg.SigmaMin, m.cfg.SigmaMax)
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
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
