package fusion

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/correlate"
	"github.com/projectqai/tracknet/internal/observation"
	"github.com/projectqai/tracknet/internal/track"
)

// The bus-read/ack and Redis-backed publish paths require a live Redis
// instance; they are exercised end to end through Run/tick once wired by
// the CLI. This covers the pure dispatch and in-memory track-manager
// plumbing that doesn't need Redis.

func TestParseByTopicDispatchesToTheRightParser(t *testing.T) {
	now := time.Now().UTC()

	aisFields := observation.EncodeAIS(&observation.AIS{MMSI: 1, Timestamp: now})
	strAIS := stringifyFields(aisFields)
	obs, err := parseByTopic(observation.TopicAIS, strAIS)
	require.NoError(t, err)
	assert.Equal(t, observation.KindAIS, obs.Kind)

	radarFields := observation.EncodeRadar(&observation.Radar{TrackID: "t1", StationID: "s1", Timestamp: now})
	obs, err = parseByTopic(observation.TopicRadar, stringifyFields(radarFields))
	require.NoError(t, err)
	assert.Equal(t, observation.KindRadar, obs.Kind)
}

func TestParseByTopicUnknownTopicErrors(t *testing.T) {
	_, err := parseByTopic("not-a-real-topic", map[string]string{})
	assert.Error(t, err)
}

func testRunner() *Runner {
	cfg := config.Default()
	return &Runner{
		cfg:     &cfg.Fusion,
		corrCfg: &cfg.Correlation,
		sigmaByKind: map[observation.Kind]float64{
			observation.KindAIS:       cfg.AIS.SigmaSensor,
			observation.KindRadar:     cfg.Radar.SigmaSensor,
			observation.KindSatellite: cfg.Satellite.SigmaSensor,
			observation.KindDrone:     cfg.Drone.SigmaSensor,
		},
		manager: track.NewManager(&cfg.TrackManager),
	}
}

func TestApplyNewCreatesOneTrackPerObservation(t *testing.T) {
	r := testRunner()
	now := time.Now().UTC()

	news := []observation.Observation{
		{Kind: observation.KindAIS, AIS: &observation.AIS{MMSI: 1, Lat: 1, Lon: 1, Timestamp: now}},
		{Kind: observation.KindAIS, AIS: &observation.AIS{MMSI: 2, Lat: 2, Lon: 2, Timestamp: now}},
	}

	r.applyNew(context.Background(), news, now)

	assert.Len(t, r.manager.Alive(), 2)
}

func TestApplyUpdatesFusesIntoExistingTrack(t *testing.T) {
	r := testRunner()
	now := time.Now().UTC()

	r.applyNew(context.Background(), []observation.Observation{
		{Kind: observation.KindAIS, AIS: &observation.AIS{MMSI: 1, Lat: 0, Lon: 0, Timestamp: now}},
	}, now)
	require.Len(t, r.manager.Alive(), 1)
	trackID := r.manager.Alive()[0].ID

	later := now.Add(time.Second)
	byTrack := map[string][]correlate.Assigned{
		trackID: {{Obs: observation.Observation{Kind: observation.KindAIS, AIS: &observation.AIS{MMSI: 1, Lat: 1, Lon: 1, Timestamp: later}}, Confidence: 1.0}},
	}

	r.applyUpdates(context.Background(), byTrack, later)

	tr := r.manager.Get(trackID)
	require.NotNil(t, tr)
	assert.Greater(t, tr.UpdateCount, 1)
}

func TestApplyUpdatesIgnoresUnknownTrackID(t *testing.T) {
	r := testRunner()
	now := time.Now().UTC()

	byTrack := map[string][]correlate.Assigned{
		"does-not-exist": {{Obs: observation.Observation{Kind: observation.KindAIS, AIS: &observation.AIS{MMSI: 1, Timestamp: now}}, Confidence: 1.0}},
	}

	assert.NotPanics(t, func() {
		r.applyUpdates(context.Background(), byTrack, now)
	})
}

func TestTrackSnapshotsReflectAliveTracks(t *testing.T) {
	r := testRunner()
	now := time.Now().UTC()

	r.applyNew(context.Background(), []observation.Observation{
		{Kind: observation.KindAIS, AIS: &observation.AIS{MMSI: 1, Lat: 5, Lon: 5, Timestamp: now}},
	}, now)

	snaps := r.trackSnapshots()
	require.Len(t, snaps, 1)
	assert.InDelta(t, 5.0, snaps[0].Lat, 1e-9)
}

// stringifyFields mimics a real bus round trip: every field value, whatever
// its Go type, arrives back out as a string.
func stringifyFields(fields map[string]interface{}) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = fmt.Sprint(v)
	}
	return out
}
