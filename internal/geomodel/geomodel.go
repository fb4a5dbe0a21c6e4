// Package geomodel provides the geodesy and ocean/land containment helpers
// shared by the world simulator, sensor ingesters, and correlation engine:
// haversine distance and bearing (grounded on the teacher's checkGeoFilter,
// which calls orb/geo.Distance) and an s2-polygon ocean mask.
package geomodel

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Point is a WGS84 lat/lon pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

func (p Point) orbPoint() orb.Point { return orb.Point{p.Lon, p.Lat} }

// DistanceMeters returns the great-circle distance between two points, the
// same function the teacher's AIS geo-filter uses (orb/geo.Distance).
func DistanceMeters(a, b Point) float64 {
	return geo.Distance(a.orbPoint(), b.orbPoint())
}

// BearingDegrees returns the initial bearing from a to b, 0=N, clockwise.
func BearingDegrees(a, b Point) float64 {
	brng := geo.Bearing(a.orbPoint(), b.orbPoint())
	if brng < 0 {
		brng += 360
	}
	return brng
}

// PointAtBearingDistance projects a point distanceM meters along bearingDeg
// (0=N, clockwise) from the origin, using the spherical great-circle
// destination formula on a 6371 km sphere. This is not the flat-earth
// degree approximation the world package's move step uses, so the two give
// slightly different results for the same bearing and distance.
func PointAtBearingDistance(origin Point, bearingDeg, distanceM float64) Point {
	const earthRadiusM = 6371000.0
	brngRad := bearingDeg * math.Pi / 180
	angularDist := distanceM / earthRadiusM

	latRad := origin.Lat * math.Pi / 180
	lonRad := origin.Lon * math.Pi / 180

	newLat := math.Asin(math.Sin(latRad)*math.Cos(angularDist) +
		math.Cos(latRad)*math.Sin(angularDist)*math.Cos(brngRad))
	newLon := lonRad + math.Atan2(
		math.Sin(brngRad)*math.Sin(angularDist)*math.Cos(latRad),
		math.Cos(angularDist)-math.Sin(latRad)*math.Sin(newLat),
	)

	return Point{Lat: newLat * 180 / math.Pi, Lon: newLon * 180 / math.Pi}
}

// OceanMask answers whether a point lies over water, given a configured
// bounding box (the "deep ocean" default region) minus a set of land
// exclusion polygons. Land is modeled as s2 loops; a point inside any of
// them is land, everything else inside the bounding box is ocean.
type OceanMask struct {
	minLat, maxLat, minLon, maxLon float64
	land                           []*s2.Polygon
}

// NewOceanMask builds a mask over the given bounding box with the given
// land polygons (each a simple closed ring of lat/lon points, exterior
// ring only — no holes, which is sufficient for the coastline silhouettes
// this simulator needs).
func NewOceanMask(minLat, maxLat, minLon, maxLon float64, landRings [][]Point) *OceanMask {
	m := &OceanMask{minLat: minLat, maxLat: maxLat, minLon: minLon, maxLon: maxLon}
	for _, ring := range landRings {
		if len(ring) < 3 {
			continue
		}
		points := make([]s2.Point, len(ring))
		for i, p := range ring {
			points[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))
		}
		loop := s2.LoopFromPoints(points)
		m.land = append(m.land, s2.PolygonFromLoops([]*s2.Loop{loop}))
	}
	return m
}

// IsOcean reports whether p is within the configured bounding box and not
// inside any land polygon.
func (m *OceanMask) IsOcean(p Point) bool {
	if p.Lat < m.minLat || p.Lat > m.maxLat || p.Lon < m.minLon || p.Lon > m.maxLon {
		return false
	}
	ll := s2.LatLngFromDegrees(p.Lat, p.Lon)
	s2pt := s2.PointFromLatLng(ll)
	for _, poly := range m.land {
		if poly.ContainsPoint(s2pt) {
			return false
		}
	}
	return true
}

// InBoundsWithMargin reports whether p is within the bounding box shrunk by
// marginDeg on every side (spec §3: "lat/lon within the configured ocean
// bounding box with ≥0.5° margin").
func (m *OceanMask) InBoundsWithMargin(p Point, marginDeg float64) bool {
	return p.Lat >= m.minLat+marginDeg && p.Lat <= m.maxLat-marginDeg &&
		p.Lon >= m.minLon+marginDeg && p.Lon <= m.maxLon-marginDeg
}

// DeepOceanFallback returns the center of the configured bounding box, used
// when placement retries are exhausted (§4.2).
func (m *OceanMask) DeepOceanFallback() Point {
	return Point{Lat: (m.minLat + m.maxLat) / 2, Lon: (m.minLon + m.maxLon) / 2}
}
