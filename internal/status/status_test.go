package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The hash read/write paths require a live Redis instance and are
// exercised by the fusion runner, sensor ingesters, and world simulator;
// this covers the one piece of pure logic in the package.

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "fusion:status", key("fusion"))
	assert.Equal(t, "sensor-ais:status", key("sensor-ais"))
}
