// Package config loads the tunables every tracknet component starts from:
// tick rates, the world's vessel population shape, correlation gates, and
// dark-ship thresholds (spec §6). Precedence is env > YAML file > built-in
// default; no command-line flag overrides an individual tunable (the CLI's
// only flag, --config, selects the YAML file).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Redis holds the connection parameters for the shared Fleet/Track Store and
// Observation Bus.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Metrics holds the listen address each long-running component binds its
// /metrics and /healthz handlers to.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// World holds the World Simulator's tunables (§4.2).
type World struct {
	NumVessels      int     `yaml:"num_vessels"`
	DarkPct         float64 `yaml:"dark_pct"`
	TickHz          float64 `yaml:"tick_hz"`
	TimeAccel       float64 `yaml:"time_accel"`
	ToggleProb      float64 `yaml:"toggle_prob"`
	MaxPlacementTry int     `yaml:"max_placement_retries"`
	OceanMinLat     float64 `yaml:"ocean_min_lat"`
	OceanMaxLat     float64 `yaml:"ocean_max_lat"`
	OceanMinLon     float64 `yaml:"ocean_min_lon"`
	OceanMaxLon     float64 `yaml:"ocean_max_lon"`
	BoundaryMargin  float64 `yaml:"boundary_margin_deg"`
}

// AIS holds the AIS ingester's tunables (§4.3).
type AIS struct {
	TickHz        float64 `yaml:"tick_hz"`
	TransmitProb  float64 `yaml:"transmit_prob"`
	LossProb      float64 `yaml:"loss_prob"`
	PositionErrM  float64 `yaml:"position_error_m"`
	SigmaSensor   float64 `yaml:"sigma_sensor_m"`
	StreamMaxLen  int64   `yaml:"stream_max_len"`
}

// RadarStation is one fixed coastal radar installation.
type RadarStation struct {
	ID          string  `yaml:"id"`
	Lat         float64 `yaml:"lat"`
	Lon         float64 `yaml:"lon"`
	RangeNM     float64 `yaml:"range_nm"`
	WeatherFact float64 `yaml:"weather_factor"`
}

// Radar holds the radar ingester's tunables.
type Radar struct {
	TickHz       float64        `yaml:"tick_hz"`
	SkipProb     float64        `yaml:"skip_prob"`
	BaseDetect   float64        `yaml:"base_detect_prob"`
	PositionErrM float64        `yaml:"position_error_m"`
	SpeedErrKn   float64        `yaml:"speed_error_kn"`
	CourseErrDeg float64        `yaml:"course_error_deg"`
	SigmaSensor  float64        `yaml:"sigma_sensor_m"`
	StreamMaxLen int64          `yaml:"stream_max_len"`
	Stations     []RadarStation `yaml:"stations"`
}

// Satellite is one satellite's revisit and sensor-type parameters.
type Satellite struct {
	ID       string  `yaml:"id"`
	Revisit  int     `yaml:"revisit_cycles"`
	SAR      bool    `yaml:"sar"`
	SwathKM  float64 `yaml:"swath_km"`
	Cloud    float64 `yaml:"cloud_fraction"`
}

// SatelliteConfig holds the satellite ingester's tunables.
type SatelliteConfig struct {
	TickHz       float64     `yaml:"tick_hz"`
	PositionErrM float64     `yaml:"position_error_m"`
	LengthErrM   float64     `yaml:"length_error_m"`
	SigmaSensor  float64     `yaml:"sigma_sensor_m"`
	StreamMaxLen int64       `yaml:"stream_max_len"`
	Satellites   []Satellite `yaml:"satellites"`
}

// DroneZone is one patrol zone a drone sweeps on each active cycle.
type DroneZone struct {
	ID         string  `yaml:"id"`
	CenterLat  float64 `yaml:"center_lat"`
	CenterLon  float64 `yaml:"center_lon"`
	RadiusNM   float64 `yaml:"radius_nm"`
	ActiveProb float64 `yaml:"active_prob"`
}

// Drone holds the drone ingester's tunables.
type Drone struct {
	TickHz         float64     `yaml:"tick_hz"`
	DetectProb     float64     `yaml:"detect_prob"`
	CaptureProb    float64     `yaml:"capture_prob"`
	PositionErrM   float64     `yaml:"position_error_m"`
	DimensionErrM  float64     `yaml:"dimension_error_m"`
	TrueNameProb   float64     `yaml:"true_name_prob"`
	SigmaSensor    float64     `yaml:"sigma_sensor_m"`
	StreamMaxLen   int64       `yaml:"stream_max_len"`
	Zones          []DroneZone `yaml:"zones"`
}

// Correlation holds the Correlation Engine's gating tunables (§4.5).
type Correlation struct {
	SigmaMult        float64 `yaml:"sigma_mult"`
	MinGateM         float64 `yaml:"min_gate_m"`
	MaxGateM         float64 `yaml:"max_gate_m"`
	MaxTimeDeltaS    float64 `yaml:"max_time_delta_s"`
	NewTrackCost     float64 `yaml:"new_track_cost"` // score above which a new track is preferred over updating
	SpeedPenaltyKn   float64 `yaml:"speed_penalty_kn"`
	CoursePenaltyDeg float64 `yaml:"course_penalty_deg"`
}

// TrackManager holds the Track Manager's lifecycle/dark-ship tunables (§4.6).
type TrackManager struct {
	SigmaMin             float64 `yaml:"sigma_min_m"`
	SigmaMax             float64 `yaml:"sigma_max_m"`
	CoastTimeoutS        float64 `yaml:"coast_timeout_s"`
	DropTimeoutS         float64 `yaml:"drop_timeout_s"`
	CoastSigmaGrowth     float64 `yaml:"coast_sigma_growth"`
	ConfirmUpdateCount   int     `yaml:"confirm_update_count"`
	DarkAISGapThresholdS float64 `yaml:"dark_ais_gap_threshold_s"`
	AlertThreshold       float64 `yaml:"alert_threshold"`
	NonAISRecencyS       float64 `yaml:"non_ais_recency_s"`
	RadarSampleMin       int     `yaml:"radar_sample_min"`
}

// Fusion holds the Fusion Runner's loop tunables (§4.7).
type Fusion struct {
	RateHz           float64 `yaml:"rate_hz"`
	BatchCount       int64   `yaml:"batch_count"`
	BlockMS          int64   `yaml:"block_ms"`
	SnapshotWindowS  float64 `yaml:"snapshot_window_s"`
	TracksStreamMax  int64   `yaml:"tracks_stream_max_len"`
	AlertsStreamMax  int64   `yaml:"alerts_stream_max_len"`
	ConsumerGroup    string  `yaml:"consumer_group"`
}

// Config is the top-level tunable set every tracknet component loads.
type Config struct {
	Redis        Redis           `yaml:"redis"`
	Metrics      Metrics         `yaml:"metrics"`
	World        World           `yaml:"world"`
	AIS          AIS             `yaml:"ais"`
	Radar        Radar           `yaml:"radar"`
	Satellite    SatelliteConfig `yaml:"satellite"`
	Drone        Drone           `yaml:"drone"`
	Correlation  Correlation     `yaml:"correlation"`
	TrackManager TrackManager    `yaml:"track_manager"`
	Fusion       Fusion          `yaml:"fusion"`
}

// Default returns the tunable set with every spec.md §6 default populated.
func Default() *Config {
	return &Config{
		Redis:   Redis{Addr: "localhost:6379", DB: 0},
		Metrics: Metrics{Addr: ":9090"},
		World: World{
			NumVessels:      200,
			DarkPct:         10,
			TickHz:          1,
			TimeAccel:       1,
			ToggleProb:      0.001,
			MaxPlacementTry: 20,
			OceanMinLat:     -60,
			OceanMaxLat:     60,
			OceanMinLon:     -180,
			OceanMaxLon:     180,
			BoundaryMargin:  0.5,
		},
		AIS: AIS{
			TickHz:       1,
			TransmitProb: 0.8,
			LossProb:     0.05,
			PositionErrM: 10,
			SigmaSensor:  10,
			StreamMaxLen: 10000,
		},
		Radar: Radar{
			TickHz:       1,
			SkipProb:     0.3,
			BaseDetect:   0.85,
			PositionErrM: 500,
			SpeedErrKn:   1,
			CourseErrDeg: 5,
			SigmaSensor:  500,
			StreamMaxLen: 10000,
		},
		Satellite: SatelliteConfig{
			TickHz:       1,
			PositionErrM: 2000,
			LengthErrM:   20,
			SigmaSensor:  2000,
			StreamMaxLen: 10000,
		},
		Drone: Drone{
			TickHz:        0.5,
			DetectProb:    0.95,
			CaptureProb:   0.8,
			PositionErrM:  50,
			DimensionErrM: 5,
			TrueNameProb:  0.9,
			SigmaSensor:   50,
			StreamMaxLen:  10000,
		},
		Correlation: Correlation{
			SigmaMult:        4,
			MinGateM:         500,
			MaxGateM:         10000,
			MaxTimeDeltaS:    120,
			NewTrackCost:     0.85,
			SpeedPenaltyKn:   15,
			CoursePenaltyDeg: 120,
		},
		TrackManager: TrackManager{
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
		},
		Fusion: Fusion{
			RateHz:          2,
			BatchCount:      100,
			BlockMS:         100,
			SnapshotWindowS: 5,
			TracksStreamMax: 10000,
			AlertsStreamMax: 1000,
			ConsumerGroup:   "fusion-group",
		},
	}
}

// Load reads defaults, overlays a YAML file if path is non-empty, then
// overlays TRACKNET_-prefixed environment variables. There is no flag
// overlay step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides lets operators override the handful of tunables most
// often tuned per-deployment without editing the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRACKNET_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TRACKNET_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TRACKNET_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("TRACKNET_WORLD_NUM_VESSELS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.World.NumVessels = n
		}
	}
	if v := os.Getenv("TRACKNET_WORLD_DARK_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.World.DarkPct = f
		}
	}
	if v := os.Getenv("TRACKNET_WORLD_TIME_ACCEL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.World.TimeAccel = f
		}
	}
	if v := os.Getenv("TRACKNET_CORRELATION_NEW_TRACK_COST"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Correlation.NewTrackCost = f
		}
	}
}

// TickInterval converts a tick rate in Hz to a time.Duration sleep interval.
func TickInterval(hz float64) time.Duration {
	if hz <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / hz)
}
