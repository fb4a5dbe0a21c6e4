package sensors

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectqai/tracknet/internal/config"
)

func TestJitterStaysWithinMagnitude(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := jitter(rng, 5)
		assert.GreaterOrEqual(t, v, -5.0)
		assert.LessOrEqual(t, v, 5.0)
	}
}

func TestNormalizeDegWraps(t *testing.T) {
	assert.InDelta(t, 350.0, normalizeDeg(-10), 1e-9)
	assert.InDelta(t, 10.0, normalizeDeg(370), 1e-9)
}

func TestMetersToDegLatSmallOffsetIsSmallDegrees(t *testing.T) {
	d := metersToDegLat(1000)
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 0.02)
}

func TestMetersToDegLonWidensTowardPoles(t *testing.T) {
	atEquator := metersToDegLon(1000, 0)
	atHighLat := metersToDegLon(1000, 80)
	assert.Greater(t, atHighLat, atEquator, "the same meter offset spans more longitude degrees near the poles")
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.5, clamp(0.1, 0.5, 1.5))
	assert.Equal(t, 1.5, clamp(2.0, 0.5, 1.5))
	assert.Equal(t, 1.0, clamp(1.0, 0.5, 1.5))
}

func TestAbsF(t *testing.T) {
	assert.Equal(t, 3.0, absF(-3))
	assert.Equal(t, 3.0, absF(3))
}

func TestMmsiFromVesselIDIsDeterministicAndInRange(t *testing.T) {
	a := mmsiFromVesselID("abc123def")
	b := mmsiFromVesselID("abc123def")
	assert.Equal(t, a, b, "same vessel id must always derive the same mmsi")

	c := mmsiFromVesselID("zzz999xyz")
	assert.NotEqual(t, a, c)

	assert.GreaterOrEqual(t, a, uint32(100000000))
	assert.Less(t, a, uint32(900000000))
}

func TestRadarTrackLabelIsStableForSameStationVessel(t *testing.T) {
	r, err := NewRadarIngester(&config.Radar{}, nil, nil, nil, nil)
	require.NoError(t, err)

	first := r.trackLabel("stn-a", "v-1")
	second := r.trackLabel("stn-a", "v-1")
	assert.Equal(t, first, second, "the same (station, vessel) pair must reuse its allocated track label")

	other := r.trackLabel("stn-a", "v-2")
	assert.NotEqual(t, first, other)
}
