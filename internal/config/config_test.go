package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickIntervalConvertsHzToDuration(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, TickInterval(2))
	assert.Equal(t, time.Second, TickInterval(1))
}

func TestTickIntervalNonPositiveFallsBackToOneSecond(t *testing.T) {
	assert.Equal(t, time.Second, TickInterval(0))
	assert.Equal(t, time.Second, TickInterval(-5))
}

func TestApplyEnvOverridesOnlyTouchesSetVars(t *testing.T) {
	cfg := Default()
	originalAddr := cfg.Redis.Addr

	t.Setenv("TRACKNET_WORLD_NUM_VESSELS", "42")
	t.Setenv("TRACKNET_WORLD_DARK_PCT", "17.5")
	os.Unsetenv("TRACKNET_REDIS_ADDR")

	applyEnvOverrides(cfg)

	assert.Equal(t, 42, cfg.World.NumVessels)
	assert.InDelta(t, 17.5, cfg.World.DarkPct, 1e-9)
	assert.Equal(t, originalAddr, cfg.Redis.Addr, "unset vars must not touch their field")
}

func TestApplyEnvOverridesIgnoresUnparsableValues(t *testing.T) {
	cfg := Default()
	priorVessels := cfg.World.NumVessels

	t.Setenv("TRACKNET_WORLD_NUM_VESSELS", "not-a-number")
	applyEnvOverrides(cfg)

	assert.Equal(t, priorVessels, cfg.World.NumVessels, "an unparsable override must be silently ignored")
}

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().World.NumVessels, cfg.World.NumVessels)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	assert.Error(t, err)
}
