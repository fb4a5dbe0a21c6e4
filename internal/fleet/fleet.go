// Package fleet owns the ground-truth Vessel type and the Fleet Store
// (spec §3, §4.1): a Redis-backed map of vessel id to vessel fields plus a
// set of ids, written only by the World Simulator and read by everyone
// else.
package fleet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Class is a vessel's type, fixed at creation.
type Class string

const (
	ClassCargo     Class = "cargo"
	ClassTanker    Class = "tanker"
	ClassContainer Class = "container"
	ClassFishing   Class = "fishing"
	ClassPassenger Class = "passenger"
	ClassNaval     Class = "naval"
	ClassTug       Class = "tug"
	ClassUnknown   Class = "unknown"
)

// Vessel is the ground-truth state of one simulated ship (spec §3).
type Vessel struct {
	ID      string
	Name    string
	Class   Class

	Lat     float64
	Lon     float64
	SpeedKn float64
	Course  float64 // degrees, 0=N, clockwise
	Heading float64

	LengthM  float64
	BeamM    float64
	DraughtM float64
	RCS      float64 // relative, >=0

	AISOn          bool
	LaneID         string
	NextWaypoint   int
	TargetLat      float64
	TargetLon      float64
}

const (
	keyVesselPrefix = "fleet:vessel:"
	keyIDs          = "fleet:ids"
	keyMetadata     = "fleet:metadata"
)

func vesselKey(id string) string { return keyVesselPrefix + id }

// Store is the Redis-backed Fleet Store.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps an existing Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// UpsertBatch writes every vessel's hash and adds its id to the id set in a
// single pipelined round trip — spec §4.1: "writes are batched as a single
// atomic multi-key update per tick."
func (s *Store) UpsertBatch(ctx context.Context, vessels []*Vessel) error {
	if len(vessels) == 0 {
		return nil
	}

	pipe := s.rdb.TxPipeline()
	ids := make([]interface{}, 0, len(vessels))
	for _, v := range vessels {
		pipe.HSet(ctx, vesselKey(v.ID), vesselFields(v))
		ids = append(ids, v.ID)
	}
	pipe.SAdd(ctx, keyIDs, ids...)
	pipe.HSet(ctx, keyMetadata, "vessel_count", len(vessels))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

// GetAll returns every vessel currently in the store.
func (s *Store) GetAll(ctx context.Context) ([]*Vessel, error) {
	ids, err := s.rdb.SMembers(ctx, keyIDs).Result()
	if err != nil {
		return nil, fmt.Errorf("get all ids: %w", err)
	}

	vessels := make([]*Vessel, 0, len(ids))
	for _, id := range ids {
		v, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if v != nil {
			vessels = append(vessels, v)
		}
	}
	return vessels, nil
}

// Get returns one vessel by id, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Vessel, error) {
	fields, err := s.rdb.HGetAll(ctx, vesselKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get vessel %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return vesselFromFields(id, fields), nil
}

func vesselFields(v *Vessel) map[string]interface{} {
	return map[string]interface{}{
		"name":          v.Name,
		"class":         string(v.Class),
		"lat":           v.Lat,
		"lon":           v.Lon,
		"speed_kn":      v.SpeedKn,
		"course":        v.Course,
		"heading":       v.Heading,
		"length_m":      v.LengthM,
		"beam_m":        v.BeamM,
		"draught_m":     v.DraughtM,
		"rcs":           v.RCS,
		"ais_on":        v.AISOn,
		"lane_id":       v.LaneID,
		"next_waypoint": v.NextWaypoint,
		"target_lat":    v.TargetLat,
		"target_lon":    v.TargetLon,
	}
}

func vesselFromFields(id string, f map[string]string) *Vessel {
	v := &Vessel{ID: id}
	v.Name = f["name"]
	v.Class = Class(f["class"])
	v.Lat = parseFloat(f["lat"])
	v.Lon = parseFloat(f["lon"])
	v.SpeedKn = parseFloat(f["speed_kn"])
	v.Course = parseFloat(f["course"])
	v.Heading = parseFloat(f["heading"])
	v.LengthM = parseFloat(f["length_m"])
	v.BeamM = parseFloat(f["beam_m"])
	v.DraughtM = parseFloat(f["draught_m"])
	v.RCS = parseFloat(f["rcs"])
	v.AISOn = f["ais_on"] == "1" || f["ais_on"] == "true"
	v.LaneID = f["lane_id"]
	v.NextWaypoint = int(parseFloat(f["next_waypoint"]))
	v.TargetLat = parseFloat(f["target_lat"])
	v.TargetLon = parseFloat(f["target_lon"])
	return v
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
