// Package geo holds the one location representation used across the API:
// a GeoJSON point with coordinates in [longitude, latitude] order.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Point is a WGS84 position. Lng comes first everywhere it is serialized.
type Point struct {
	Lng float64
	Lat float64
}

func NewPoint(lat, lng float64) Point { return Point{Lng: lng, Lat: lat} }

// IsZero reports the [0,0] placeholder that marks an unset location.
func (p Point) IsZero() bool { return p.Lng == 0 && p.Lat == 0 }

// Validate checks coordinate ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", p.Lat)
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", p.Lng)
	}
	return nil
}

type geoJSON struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(geoJSON{Type: "Point", Coordinates: [2]float64{p.Lng, p.Lat}})
}

// UnmarshalJSON accepts only the GeoJSON form. Bare {lat,lng} objects are
// converted by the request types that accept them.
func (p *Point) UnmarshalJSON(b []byte) error {
	var g geoJSON
	if err := json.Unmarshal(b, &g); err != nil {
		return err
	}
	if g.Type != "" && g.Type != "Point" {
		return errors.New("geo: expected GeoJSON Point")
	}
	p.Lng, p.Lat = g.Coordinates[0], g.Coordinates[1]
	return nil
}

// LatLng is the request-side shape {lat, lng}.
type LatLng struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Point returns the canonical point, or false if either half is missing.
func (l *LatLng) Point() (Point, bool) {
	if l == nil || l.Lat == nil || l.Lng == nil {
		return Point{}, false
	}
	return NewPoint(*l.Lat, *l.Lng), true
}

// DistanceKm is the haversine great-circle distance between a and b.
func DistanceKm(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
