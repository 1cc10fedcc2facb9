package globe

import (
	"math"

	"github.com/jobrunner/atlas/internal/domain"
)

// WGS84 ellipsoid.
const (
	semiMajorAxis = 6378137.0
	eccentricity2 = 6.69437999014e-3
)

// FromDegrees converts a geodetic position to earth-fixed Cartesian coordinates.
func FromDegrees(lon, lat, height float64) Cartesian3 {
	lambda := lon * math.Pi / 180
	phi := lat * math.Pi / 180
	sinPhi := math.Sin(phi)
	n := semiMajorAxis / math.Sqrt(1-eccentricity2*sinPhi*sinPhi)

	return Cartesian3{
		X: (n + height) * math.Cos(phi) * math.Cos(lambda),
		Y: (n + height) * math.Cos(phi) * math.Sin(lambda),
		Z: (n*(1-eccentricity2) + height) * sinPhi,
	}
}

// Distance returns the straight-line distance between two positions.
func Distance(a, b Cartesian3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// RectangleFromDegrees builds a radian rectangle from a WGS84 extent.
func RectangleFromDegrees(e domain.Extent) Rectangle {
	const r = math.Pi / 180
	return Rectangle{West: e.MinLon * r, South: e.MinLat * r, East: e.MaxLon * r, North: e.MaxLat * r}
}
