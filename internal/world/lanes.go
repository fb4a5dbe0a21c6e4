package world

import "github.com/projectqai/tracknet/internal/geomodel"

// Lane is a named shipping lane: an ordered list of waypoints vessels
// follow, reversing or switching lanes at either end (spec §4.2).
type Lane struct {
	ID        string
	Waypoints []geomodel.Point
}

// DefaultLanes returns a small built-in set of shipping lanes spanning the
// default ocean bounding box, standing in for a real chart-derived lane
// table — there is no lane dataset in the retrieval pack, so this is the
// simplest synthetic set that exercises waypoint-following, lane-reversal,
// and lane-switching (§4.2) without requiring external input.
func DefaultLanes() []Lane {
	return []Lane{
		{
			ID: "lane-atlantic-east-west",
			Waypoints: []geomodel.Point{
				{Lat: 40.0, Lon: -70.0},
				{Lat: 38.0, Lon: -40.0},
				{Lat: 36.0, Lon: -10.0},
				{Lat: 35.0, Lon: 10.0},
			},
		},
		{
			ID: "lane-suez-corridor",
			Waypoints: []geomodel.Point{
				{Lat: 31.5, Lon: 32.3},
				{Lat: 27.0, Lon: 34.0},
				{Lat: 15.0, Lon: 42.0},
				{Lat: 12.5, Lon: 50.0},
			},
		},
		{
			ID: "lane-malacca-strait",
			Waypoints: []geomodel.Point{
				{Lat: 5.5, Lon: 95.3},
				{Lat: 3.0, Lon: 100.0},
				{Lat: 1.3, Lon: 103.8},
				{Lat: 1.0, Lon: 108.0},
			},
		},
		{
			ID: "lane-gulf-of-mexico",
			Waypoints: []geomodel.Point{
				{Lat: 29.0, Lon: -94.8},
				{Lat: 26.0, Lon: -90.0},
				{Lat: 24.5, Lon: -83.0},
				{Lat: 25.8, Lon: -80.2},
			},
		},
	}
}
