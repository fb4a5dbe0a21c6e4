// Package observation defines one tagged variant per sensor kind (spec §9
// Design Notes: "Dynamic dict-shaped observations -> one tagged variant per
// sensor kind, with exhaustive matching"), plus the strict string-typed
// wire encode/decode for each bus topic (spec §6).
package observation

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies which sensor produced an observation.
type Kind string

const (
	KindAIS       Kind = "ais"
	KindRadar     Kind = "radar"
	KindSatellite Kind = "satellite"
	KindDrone     Kind = "drone"
)

// Topics, stable per spec §4.4/§6.
const (
	TopicAIS       = "ais:positions"
	TopicRadar     = "radar:contacts"
	TopicSatellite = "satellite:detections"
	TopicDrone     = "drone:detections"
	TopicTracks    = "fusion:tracks"
	TopicDarkShips = "fusion:dark_ships"
)

// ConsumerGroup is the fusion runner's sole consumer group (§4.4).
const ConsumerGroup = "fusion-group"

// AIS is an AIS position report (§4.3 AIS ingester, §6 ais:positions).
type AIS struct {
	MMSI      uint32
	ShipName  string
	ShipType  string
	Lat       float64
	Lon       float64
	SpeedKn   float64
	Course    float64
	Timestamp time.Time
}

// Radar is a radar contact (§4.3 Radar ingester, §6 radar:contacts). No
// identity fields are carried, per spec.
type Radar struct {
	TrackID   string
	StationID string
	Lat       float64
	Lon       float64
	SpeedKn   float64
	Course    float64
	Quality   int
	Timestamp time.Time
}

// Satellite is a satellite detection (§4.3 Satellite ingester, §6
// satellite:detections). No mmsi, per spec.
type Satellite struct {
	DetectionID     string
	SourceSatellite string
	Lat             float64
	Lon             float64
	VesselLengthM   float64
	Confidence      float64
	IsDarkShip      bool
	Timestamp       time.Time
}

// Drone is a drone detection (§4.3 Drone ingester, §6 drone:detections).
// MMSI is optional; VisualName is the sidecar identity hint §9 discusses.
type Drone struct {
	DetectionID      string
	DroneID          string
	Lat              float64
	Lon              float64
	Confidence       float64
	ObjectClass      string
	EstimatedLengthM float64
	EstimatedWidthM  float64
	FrameID          string
	VisualName       string
	MMSI             *uint32
	Timestamp        time.Time
}

// Observation is any one of the four sensor-kind variants, tagged by Kind.
// Exactly one of the typed fields is non-nil, matching the variant named by
// Kind — callers exhaustively switch on Kind, never on the Go type.
type Observation struct {
	Kind      Kind
	AIS       *AIS
	Radar     *Radar
	Satellite *Satellite
	Drone     *Drone
}

// Timestamp returns the observation's timestamp regardless of kind.
func (o Observation) Timestamp() time.Time {
	switch o.Kind {
	case KindAIS:
		return o.AIS.Timestamp
	case KindRadar:
		return o.Radar.Timestamp
	case KindSatellite:
		return o.Satellite.Timestamp
	case KindDrone:
		return o.Drone.Timestamp
	default:
		return time.Time{}
	}
}

// Position returns the observation's lat/lon regardless of kind.
func (o Observation) Position() (lat, lon float64) {
	switch o.Kind {
	case KindAIS:
		return o.AIS.Lat, o.AIS.Lon
	case KindRadar:
		return o.Radar.Lat, o.Radar.Lon
	case KindSatellite:
		return o.Satellite.Lat, o.Satellite.Lon
	case KindDrone:
		return o.Drone.Lat, o.Drone.Lon
	default:
		return 0, 0
	}
}

// MMSI returns the bound mmsi, if any, regardless of kind.
func (o Observation) MMSI() (mmsi uint32, ok bool) {
	switch o.Kind {
	case KindAIS:
		return o.AIS.MMSI, true
	case KindDrone:
		if o.Drone.MMSI != nil {
			return *o.Drone.MMSI, true
		}
	}
	return 0, false
}

// EncodeAIS renders an AIS observation as wire fields (§6).
func EncodeAIS(o *AIS) map[string]interface{} {
	return map[string]interface{}{
		"mmsi":        o.MMSI,
		"ship_name":   o.ShipName,
		"ship_type":   o.ShipType,
		"latitude":    f(o.Lat),
		"longitude":   f(o.Lon),
		"speed_knots": f(o.SpeedKn),
		"course":      f(o.Course),
		"timestamp":   ts(o.Timestamp),
	}
}

// EncodeRadar renders a radar observation as wire fields (§6).
func EncodeRadar(o *Radar) map[string]interface{} {
	return map[string]interface{}{
		"track_id":    o.TrackID,
		"station_id":  o.StationID,
		"latitude":    f(o.Lat),
		"longitude":   f(o.Lon),
		"speed_knots": f(o.SpeedKn),
		"course":      f(o.Course),
		"quality":     o.Quality,
		"timestamp":   ts(o.Timestamp),
	}
}

// EncodeSatellite renders a satellite observation as wire fields (§6).
func EncodeSatellite(o *Satellite) map[string]interface{} {
	return map[string]interface{}{
		"detection_id":     o.DetectionID,
		"source_satellite": o.SourceSatellite,
		"latitude":         f(o.Lat),
		"longitude":        f(o.Lon),
		"vessel_length_m":  f(o.VesselLengthM),
		"confidence":       f(o.Confidence),
		"is_dark_ship":     boolStr(o.IsDarkShip),
		"timestamp":        ts(o.Timestamp),
	}
}

// EncodeDrone renders a drone observation as wire fields (§6).
func EncodeDrone(o *Drone) map[string]interface{} {
	fields := map[string]interface{}{
		"detection_id":       o.DetectionID,
		"drone_id":           o.DroneID,
		"latitude":           f(o.Lat),
		"longitude":          f(o.Lon),
		"confidence":         f(o.Confidence),
		"object_class":       o.ObjectClass,
		"estimated_length_m": f(o.EstimatedLengthM),
		"estimated_width_m":  f(o.EstimatedWidthM),
		"frame_id":           o.FrameID,
		"visual_name":        o.VisualName,
		"timestamp":          ts(o.Timestamp),
	}
	if o.MMSI != nil {
		fields["mmsi"] = *o.MMSI
	}
	return fields
}

// ParseAIS parses wire fields read off ais:positions into an Observation.
// Malformed messages return an error; the caller is expected to count and
// drop them (§7: "Message schema failure ... Never retry parsing").
func ParseAIS(fields map[string]string) (*Observation, error) {
	mmsi, err := parseUint(fields["mmsi"])
	if err != nil {
		return nil, fmt.Errorf("ais: mmsi: %w", err)
	}
	lat, lon, err := parseLatLon(fields)
	if err != nil {
		return nil, fmt.Errorf("ais: %w", err)
	}
	speed, err := parseFloat(fields["speed_knots"])
	if err != nil {
		return nil, fmt.Errorf("ais: speed_knots: %w", err)
	}
	course, err := parseFloat(fields["course"])
	if err != nil {
		return nil, fmt.Errorf("ais: course: %w", err)
	}
	timestamp, err := parseTimestamp(fields["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("ais: %w", err)
	}
	return &Observation{Kind: KindAIS, AIS: &AIS{
		MMSI: uint32(mmsi), ShipName: fields["ship_name"], ShipType: fields["ship_type"],
		Lat: lat, Lon: lon, SpeedKn: speed, Course: course, Timestamp: timestamp,
	}}, nil
}

// ParseRadar parses wire fields read off radar:contacts into an Observation.
func ParseRadar(fields map[string]string) (*Observation, error) {
	lat, lon, err := parseLatLon(fields)
	if err != nil {
		return nil, fmt.Errorf("radar: %w", err)
	}
	speed, err := parseFloat(fields["speed_knots"])
	if err != nil {
		return nil, fmt.Errorf("radar: speed_knots: %w", err)
	}
	course, err := parseFloat(fields["course"])
	if err != nil {
		return nil, fmt.Errorf("radar: course: %w", err)
	}
	quality, err := parseInt(fields["quality"])
	if err != nil {
		return nil, fmt.Errorf("radar: quality: %w", err)
	}
	timestamp, err := parseTimestamp(fields["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("radar: %w", err)
	}
	if fields["track_id"] == "" || fields["station_id"] == "" {
		return nil, fmt.Errorf("radar: missing track_id/station_id")
	}
	return &Observation{Kind: KindRadar, Radar: &Radar{
		TrackID: fields["track_id"], StationID: fields["station_id"],
		Lat: lat, Lon: lon, SpeedKn: speed, Course: course, Quality: quality, Timestamp: timestamp,
	}}, nil
}

// ParseSatellite parses wire fields read off satellite:detections.
func ParseSatellite(fields map[string]string) (*Observation, error) {
	lat, lon, err := parseLatLon(fields)
	if err != nil {
		return nil, fmt.Errorf("satellite: %w", err)
	}
	length, err := parseFloat(fields["vessel_length_m"])
	if err != nil {
		return nil, fmt.Errorf("satellite: vessel_length_m: %w", err)
	}
	confidence, err := parseFloat(fields["confidence"])
	if err != nil {
		return nil, fmt.Errorf("satellite: confidence: %w", err)
	}
	isDark, err := parseBoolStr(fields["is_dark_ship"])
	if err != nil {
		return nil, fmt.Errorf("satellite: is_dark_ship: %w", err)
	}
	timestamp, err := parseTimestamp(fields["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("satellite: %w", err)
	}
	if fields["detection_id"] == "" {
		return nil, fmt.Errorf("satellite: missing detection_id")
	}
	return &Observation{Kind: KindSatellite, Satellite: &Satellite{
		DetectionID: fields["detection_id"], SourceSatellite: fields["source_satellite"],
		Lat: lat, Lon: lon, VesselLengthM: length, Confidence: confidence,
		IsDarkShip: isDark, Timestamp: timestamp,
	}}, nil
}

// ParseDrone parses wire fields read off drone:detections.
func ParseDrone(fields map[string]string) (*Observation, error) {
	lat, lon, err := parseLatLon(fields)
	if err != nil {
		return nil, fmt.Errorf("drone: %w", err)
	}
	confidence, err := parseFloat(fields["confidence"])
	if err != nil {
		return nil, fmt.Errorf("drone: confidence: %w", err)
	}
	length, err := parseFloat(fields["estimated_length_m"])
	if err != nil {
		return nil, fmt.Errorf("drone: estimated_length_m: %w", err)
	}
	width, err := parseFloat(fields["estimated_width_m"])
	if err != nil {
		return nil, fmt.Errorf("drone: estimated_width_m: %w", err)
	}
	timestamp, err := parseTimestamp(fields["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("drone: %w", err)
	}
	if fields["detection_id"] == "" {
		return nil, fmt.Errorf("drone: missing detection_id")
	}
	d := &Drone{
		DetectionID: fields["detection_id"], DroneID: fields["drone_id"],
		Lat: lat, Lon: lon, Confidence: confidence, ObjectClass: fields["object_class"],
		EstimatedLengthM: length, EstimatedWidthM: width, FrameID: fields["frame_id"],
		VisualName: fields["visual_name"], Timestamp: timestamp,
	}
	if raw, ok := fields["mmsi"]; ok && raw != "" {
		mmsi, err := parseUint(raw)
		if err != nil {
			return nil, fmt.Errorf("drone: mmsi: %w", err)
		}
		m := uint32(mmsi)
		d.MMSI = &m
	}
	return &Observation{Kind: KindDrone, Drone: d}, nil
}

func parseLatLon(fields map[string]string) (lat, lon float64, err error) {
	lat, err = parseFloat(fields["latitude"])
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lon, err = parseFloat(fields["longitude"])
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	return lat, lon, nil
}

func f(v float64) string     { return strconv.FormatFloat(v, 'f', -1, 64) }
func ts(t time.Time) string  { return strconv.FormatInt(t.UnixMilli(), 10) }
func boolStr(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
func parseInt(s string) (int, error)       { v, err := strconv.ParseInt(s, 10, 64); return int(v), err }
func parseUint(s string) (uint64, error)   { return strconv.ParseUint(s, 10, 64) }

func parseBoolStr(s string) (bool, error) {
	switch s {
	case "True", "true", "1":
		return true, nil
	case "False", "false", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool %q", s)
	}
}

func parseTimestamp(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp: %w", err)
	}
	return time.UnixMilli(ms), nil
}
