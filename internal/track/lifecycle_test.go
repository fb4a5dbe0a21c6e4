package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectqai/tracknet/internal/observation"
)

func TestCheckDarkAISFlagsAfterGapWithCorroboration(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-1", aisObs(0, 0, now), testSigmas(), now)
	lastSeen := now.Add(-20 * time.Minute) // exceeds DarkAISGapThresholdS (900s = 15min)
	tr.AISLastSeen = &lastSeen
	// corroborating non-AIS sighting inside the recency window
	tr.Provenance[observation.KindRadar] = &Provenance{SensorKind: observation.KindRadar, LastUpdate: now.Add(-30 * time.Second)}

	m.CheckDark(now)

	assert.True(t, tr.IsDark)
	assert.True(t, tr.FlaggedForReview)
	assert.NotEmpty(t, tr.AlertReason)
}

func TestCheckDarkAISDoesNotFlagWithoutCorroboration(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-2", aisObs(0, 0, now), testSigmas(), now)
	lastSeen := now.Add(-20 * time.Minute)
	tr.AISLastSeen = &lastSeen
	// no other sensor has seen it recently

	m.CheckDark(now)

	assert.False(t, tr.IsDark)
	assert.False(t, tr.FlaggedForReview)
}

func TestCheckDarkAISDoesNotFlagWithinThreshold(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-3", aisObs(0, 0, now), testSigmas(), now)
	lastSeen := now.Add(-5 * time.Minute) // under the 15 min threshold
	tr.AISLastSeen = &lastSeen

	m.CheckDark(now)

	assert.False(t, tr.IsDark)
}

// Open Question #2: the unknown-identity branch can reach is_dark=true
// without flagged_for_review when confidence falls under alert_threshold —
// implemented literally, not patched to auto-flag. The lowest confidence
// the branch can ever produce is 0.6 (radar+satellite corroboration, no
// radar-sample bonus), so a threshold above that is needed to observe it.
func TestCheckDarkUnknownHalfStateNotFlagged(t *testing.T) {
	cfg := testManagerCfg()
	cfg.AlertThreshold = 0.65
	m := NewManager(cfg)
	now := time.Now()

	tr := m.Create("trk-4", droneObs(0, 0, now), testSigmas(), now)
	delete(tr.Provenance, observation.KindDrone)
	tr.IdentitySource = IdentityUnknown
	tr.Provenance[observation.KindRadar] = &Provenance{SensorKind: observation.KindRadar, LastUpdate: now}
	tr.Provenance[observation.KindSatellite] = &Provenance{SensorKind: observation.KindSatellite, LastUpdate: now}

	m.CheckDark(now)

	require.True(t, tr.IsDark)
	assert.InDelta(t, 0.6, tr.DarkConfidence, 1e-9)
	assert.False(t, tr.FlaggedForReview, "confidence below alert_threshold must not flag for review")
}

func TestCheckDarkUnknownFlagsWhenConfidenceMeetsThreshold(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-5", droneObs(0, 0, now), testSigmas(), now)
	tr.IdentitySource = IdentityUnknown
	tr.Provenance[observation.KindRadar] = &Provenance{SensorKind: observation.KindRadar, LastUpdate: now, SampleCount: 5}
	tr.Provenance[observation.KindSatellite] = &Provenance{SensorKind: observation.KindSatellite, LastUpdate: now}
	// hasDrone true (from Create) + radar sample bonus + sat bonus: 0.5+0.3+0.2+0.1 clamped to 1.0

	m.CheckDark(now)

	assert.True(t, tr.IsDark)
	assert.True(t, tr.FlaggedForReview)
}

func TestAgeStepCoastsThenDrops(t *testing.T) {
	cfg := testManagerCfg()
	m := NewManager(cfg)
	now := time.Now()

	tr := m.Create("trk-6", aisObs(0, 0, now), testSigmas(), now)
	priorSigma := tr.SigmaM

	coastTime := now.Add(time.Duration(cfg.CoastTimeoutS+1) * time.Second)
	m.AgeStep(coastTime)
	assert.Equal(t, StatusCoasting, tr.Status)
	assert.Greater(t, tr.SigmaM, priorSigma, "sigma should grow once coasting")

	dropTime := now.Add(time.Duration(cfg.DropTimeoutS+1) * time.Second)
	m.AgeStep(dropTime)
	assert.Equal(t, StatusDropped, tr.Status)
}

func TestAgeStepClampsSigmaIntoBounds(t *testing.T) {
	cfg := testManagerCfg()
	m := NewManager(cfg)
	now := time.Now()

	tr := m.Create("trk-7", aisObs(0, 0, now), testSigmas(), now)
	tr.SigmaM = cfg.SigmaMax * 10 // out of bounds

	m.AgeStep(now)
	assert.Equal(t, cfg.SigmaMax, tr.SigmaM)
}

func TestAliveExcludesDroppedTracks(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	m.Create("trk-8", aisObs(0, 0, now), testSigmas(), now)
	tr2 := m.Create("trk-9", aisObs(1, 1, now), testSigmas(), now)
	tr2.Status = StatusDropped

	alive := m.Alive()
	require.Len(t, alive, 1)
	assert.Equal(t, "trk-8", alive[0].ID)
}
