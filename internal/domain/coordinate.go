// Package domain contains the core entities and value objects of the result map.
package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Coordinate is a geographic position in WGS84 degrees with an optional altitude in meters.
type Coordinate struct {
	Lon float64 `json:"lon" yaml:"lon"`                     // Longitude
	Lat float64 `json:"lat" yaml:"lat"`                     // Latitude
	Alt float64 `json:"alt,omitempty" yaml:"alt,omitempty"` // Altitude (optional)
}

// NewCoordinate creates a coordinate at ground level.
func NewCoordinate(lon, lat float64) Coordinate {
	return Coordinate{Lon: lon, Lat: lat}
}

// CoordinateFromSlice builds a coordinate from a [lon, lat(, alt)] array.
func CoordinateFromSlice(v []float64) (Coordinate, error) {
	if len(v) < 2 {
		return Coordinate{}, &ValidationError{
			Field:      "coordinates",
			Value:      v,
			Constraint: "[lon, lat(, alt)]",
			Message:    "position needs at least two values",
		}
	}
	c := Coordinate{Lon: v[0], Lat: v[1]}
	if len(v) > 2 {
		c.Alt = v[2]
	}
	return c, nil
}

// Validate checks that the coordinate lies within WGS84 bounds.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return &ValidationError{
			Field:      "longitude",
			Value:      c.Lon,
			Constraint: "[-180, 180]",
			Message:    "longitude must be between -180 and 180",
		}
	}
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{
			Field:      "latitude",
			Value:      c.Lat,
			Constraint: "[-90, 90]",
			Message:    "latitude must be between -90 and 90",
		}
	}
	return nil
}

// Point returns the planar orb representation (altitude is dropped).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// CoordinateFromPoint converts an orb point to a ground-level coordinate.
func CoordinateFromPoint(p orb.Point) Coordinate {
	return Coordinate{Lon: p.Lon(), Lat: p.Lat()}
}

// String returns a string representation of the coordinate.
func (c Coordinate) String() string {
	if c.Alt != 0 {
		return fmt.Sprintf("(%f %f %f)", c.Lon, c.Lat, c.Alt)
	}
	return fmt.Sprintf("(%f %f)", c.Lon, c.Lat)
}

// Extent represents a geographic bounding box in WGS84 degrees.
type Extent struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// IsValid checks if the extent has valid dimensions.
func (e Extent) IsValid() bool {
	return e.MinLon <= e.MaxLon && e.MinLat <= e.MaxLat
}

// Width returns the longitudinal span of the extent.
func (e Extent) Width() float64 {
	return math.Abs(e.MaxLon - e.MinLon)
}

// Height returns the latitudinal span of the extent.
func (e Extent) Height() float64 {
	return math.Abs(e.MaxLat - e.MinLat)
}

// Bound returns the orb bound of the extent.
func (e Extent) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.MinLon, e.MinLat},
		Max: orb.Point{e.MaxLon, e.MaxLat},
	}
}
