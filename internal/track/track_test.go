package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/observation"
)

func testManagerCfg() *config.TrackManager {
	return &config.TrackManager{
		SigmaMin:             100,
		SigmaMax:             5000,
		CoastTimeoutS:        300,
		DropTimeoutS:         600,
		CoastSigmaGrowth:     1.5,
		ConfirmUpdateCount:   3,
		DarkAISGapThresholdS: 900,
		AlertThreshold:       0.6,
		NonAISRecencyS:       120,
		RadarSampleMin:       3,
	}
}

func testSigmas() map[observation.Kind]float64 {
	return map[observation.Kind]float64{
		observation.KindAIS:       10,
		observation.KindRadar:     500,
		observation.KindSatellite: 2000,
		observation.KindDrone:     50,
	}
}

func aisObs(lat, lon float64, t time.Time) observation.Observation {
	return observation.Observation{Kind: observation.KindAIS, AIS: &observation.AIS{
		MMSI: 111222333, ShipName: "Test Vessel", ShipType: "cargo",
		Lat: lat, Lon: lon, SpeedKn: 10, Course: 90, Timestamp: t,
	}}
}

func droneObs(lat, lon float64, t time.Time) observation.Observation {
	return observation.Observation{Kind: observation.KindDrone, Drone: &observation.Drone{
		DetectionID: "d1", DroneID: "drone-1", Lat: lat, Lon: lon,
		ObjectClass: "fishing", VisualName: "Test Vessel", Timestamp: t,
	}}
}

func TestCreateFromAISSetsIdentity(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-1", aisObs(10, 20, now), testSigmas(), now)

	assert.Equal(t, IdentityAIS, tr.IdentitySource)
	require.NotNil(t, tr.MMSI)
	assert.Equal(t, uint32(111222333), *tr.MMSI)
	assert.Equal(t, StatusTentative, tr.Status)
}

// Open Question #1: a drone's visual_name must never promote identity_source
// to anything but unknown, even when it matches the vessel's true name.
func TestCreateFromDroneNeverPromotesIdentity(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-2", droneObs(10, 20, now), testSigmas(), now)

	assert.Equal(t, IdentityUnknown, tr.IdentitySource)
	assert.Nil(t, tr.MMSI)
	assert.Equal(t, "fishing", tr.Class)
}

func TestUpdateFusesPositionByInverseVariance(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-3", aisObs(0, 0, now), testSigmas(), now)
	require.InDelta(t, 10.0, tr.SigmaM, 1e-9)

	later := now.Add(time.Second)
	err := m.Update(tr, aisObs(1, 1, later), 1.0, testSigmas(), later)
	require.NoError(t, err)

	// Fused position must land strictly between the prior estimate and the
	// new observation, and sigma must shrink (two independent measurements
	// are more certain than one).
	assert.Greater(t, tr.Lat, 0.0)
	assert.Less(t, tr.Lat, 1.0)
	assert.Less(t, tr.SigmaM, 10.0)
}

func TestUpdateOnDroppedTrackIsNoOp(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-4", aisObs(0, 0, now), testSigmas(), now)
	tr.Status = StatusDropped
	tr.Lat = 99

	err := m.Update(tr, aisObs(1, 1, now), 1.0, testSigmas(), now)
	require.NoError(t, err)
	assert.Equal(t, 99.0, tr.Lat, "a dropped track must never be mutated again")
}

func TestTrackConfirmsAfterEnoughUpdates(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-5", aisObs(0, 0, now), testSigmas(), now)
	require.Equal(t, StatusTentative, tr.Status)

	for i := 0; i < 2; i++ {
		now = now.Add(time.Second)
		require.NoError(t, m.Update(tr, aisObs(0, 0, now), 1.0, testSigmas(), now))
	}

	assert.Equal(t, StatusConfirmed, tr.Status)
}

func TestAISUpdateClearsDarkFlag(t *testing.T) {
	m := NewManager(testManagerCfg())
	now := time.Now()

	tr := m.Create("trk-6", droneObs(0, 0, now), testSigmas(), now)
	tr.IsDark = true
	tr.DarkConfidence = 0.8
	tr.FlaggedForReview = true

	require.NoError(t, m.Update(tr, aisObs(0, 0, now), 1.0, testSigmas(), now))

	assert.False(t, tr.IsDark)
	assert.False(t, tr.FlaggedForReview)
	assert.Equal(t, 0.0, tr.DarkConfidence)
}

func TestBucketScoreRightOpenIntervals(t *testing.T) {
	tests := []struct {
		sigma float64
		want  int
	}{
		{50, 30}, {99.999, 30}, {100, 20}, {499.999, 20}, {500, 10}, {999.999, 10}, {1000, 0}, {5000, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketScore(tt.sigma), "sigma=%v", tt.sigma)
	}
}

func TestComputeQualityCapsAt100(t *testing.T) {
	tr := &UnifiedTrack{
		SigmaM:      50,
		UpdateCount: 100,
		Provenance: map[observation.Kind]*Provenance{
			observation.KindAIS:       {},
			observation.KindRadar:     {},
			observation.KindSatellite: {},
			observation.KindDrone:     {},
		},
	}
	assert.Equal(t, 100, computeQuality(tr))
}

// Property: fused sigma after Update must never exceed the smaller of the
// track's prior sigma and the sensor's sigma (spec §8 monotonicity).
func TestFusePositionSigmaMonotonicity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		priorSigma := rapid.Float64Range(10, 5000).Draw(t, "priorSigma")
		sensorSigma := rapid.Float64Range(10, 5000).Draw(t, "sensorSigma")

		tr := &UnifiedTrack{Lat: 0, Lon: 0, SigmaM: priorSigma}
		err := fusePosition(tr, 0.01, 0.01, sensorSigma)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		smaller := priorSigma
		if sensorSigma < smaller {
			smaller = sensorSigma
		}
		if tr.SigmaM > smaller+1e-9 {
			t.Fatalf("fused sigma %v exceeds smaller input %v", tr.SigmaM, smaller)
		}
	})
}

func TestFusePositionRejectsInvalidSigma(t *testing.T) {
	tr := &UnifiedTrack{SigmaM: 100}
	err := fusePosition(tr, 1, 1, 0)
	assert.ErrorIs(t, err, errInvalidSigma)
}
