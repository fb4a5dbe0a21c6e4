package world

import (
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/geomodel"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nullWriter{}, nil))
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func testWorldCfg() *config.World {
	return &config.World{
		NumVessels: 10, DarkPct: 5, TickHz: 1, TimeAccel: 60,
		ToggleProb: 0, MaxPlacementTry: 10,
		OceanMinLat: -80, OceanMaxLat: 80, OceanMinLon: -180, OceanMaxLon: 180,
		BoundaryMargin: 0.5,
	}
}

func TestAngleDeltaShortestPath(t *testing.T) {
	assert.InDelta(t, 20.0, angleDelta(350, 10), 1e-9)
	assert.InDelta(t, -20.0, angleDelta(10, 350), 1e-9)
	assert.InDelta(t, 90.0, angleDelta(0, 90), 1e-9)
}

func TestNormalizeDeg(t *testing.T) {
	assert.InDelta(t, 350.0, normalizeDeg(-10), 1e-9)
	assert.InDelta(t, 10.0, normalizeDeg(370), 1e-9)
	assert.InDelta(t, 0.0, normalizeDeg(360), 1e-9)
}

func TestClassLengthKnownClasses(t *testing.T) {
	assert.Equal(t, 250.0, classLength(fleet.ClassTanker))
	assert.Equal(t, 180.0, classLength(fleet.ClassCargo))
	assert.Equal(t, 30.0, classLength(fleet.ClassFishing))
	assert.Equal(t, 50.0, classLength(fleet.ClassUnknown))
}

func TestClassRCSKnownClasses(t *testing.T) {
	assert.Equal(t, 0.9, classRCS(fleet.ClassContainer))
	assert.Equal(t, 0.3, classRCS(fleet.ClassNaval))
	assert.Equal(t, 0.2, classRCS(fleet.ClassTug))
}

func TestExpandClassesMatchesRequestedCount(t *testing.T) {
	n := 1000
	out := expandClasses(n)
	require.Len(t, out, n)

	counts := make(map[fleet.Class]int)
	for _, cr := range out {
		counts[cr.class]++
	}
	// Cargo is 30% of the ratio table; with n=1000 expect it close to 300.
	assert.InDelta(t, 300, counts[fleet.ClassCargo], 5)
}

func TestSteerClampsToMaxTurnRate(t *testing.T) {
	mask := geomodel.NewOceanMask(-80, 80, -180, 180, nil)
	sim := New(testWorldCfg(), nil, mask, DefaultLanes(), discardLogger())

	v := &fleet.Vessel{Lat: 0, Lon: 0, Course: 0, TargetLat: 10, TargetLon: 10}
	sim.steer(v, 1)

	assert.LessOrEqual(t, math.Abs(angleDelta(0, v.Course)), maxTurnRateDegPerSec+1e-9)
}

func TestSteerClampScalesWithSimulatedSeconds(t *testing.T) {
	mask := geomodel.NewOceanMask(-80, 80, -180, 180, nil)
	sim := New(testWorldCfg(), nil, mask, DefaultLanes(), discardLogger())

	v := &fleet.Vessel{Lat: 0, Lon: 0, Course: 0, TargetLat: 10, TargetLon: 10}
	sim.steer(v, 10)

	assert.LessOrEqual(t, math.Abs(angleDelta(0, v.Course)), 10*maxTurnRateDegPerSec+1e-9)
	assert.Greater(t, math.Abs(angleDelta(0, v.Course)), maxTurnRateDegPerSec)
}

func TestMoveAdvancesPositionOverOpenOcean(t *testing.T) {
	mask := geomodel.NewOceanMask(-80, 80, -180, 180, nil)
	sim := New(testWorldCfg(), nil, mask, DefaultLanes(), discardLogger())

	v := &fleet.Vessel{Lat: 10, Lon: 10, Course: 90, SpeedKn: 15}
	sim.move(v, 3600) // one simulated hour

	assert.NotEqual(t, 10.0, v.Lon, "vessel heading east should change longitude")
}

func TestMoveReversesCourseWhenDestinationIsLand(t *testing.T) {
	// A small land square straddling the vessel's path; mask bbox covers it.
	ring := []geomodel.Point{
		{Lat: 9, Lon: 9}, {Lat: 9, Lon: 20}, {Lat: 20, Lon: 20}, {Lat: 20, Lon: 9},
	}
	mask := geomodel.NewOceanMask(-80, 80, -180, 180, [][]geomodel.Point{ring})
	sim := New(testWorldCfg(), nil, mask, DefaultLanes(), discardLogger())

	v := &fleet.Vessel{Lat: 10, Lon: 10, Course: 90, SpeedKn: 15}
	sim.move(v, 3600)

	assert.Equal(t, 10.0, v.Lat, "a blocked move must not change position")
	assert.Equal(t, 10.0, v.Lon, "a blocked move must not change position")
	assert.InDelta(t, 270.0, v.Course, 1e-9, "course should reverse by 180 degrees")
}
