package geometry

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/jobrunner/atlas/internal/domain"
)

// ConvexHull computes the convex hull of points with Andrew's monotone chain.
//
// The result is counter-clockwise and closed by repeating its first point. Degenerate inputs
// are returned as-is: one distinct point yields a single-point ring, collinear points yield
// the two extremes closed back to the start.
func ConvexHull(points []orb.Point) orb.Ring {
	pts := distinct(points)
	switch len(pts) {
	case 0:
		return nil
	case 1:
		return orb.Ring{pts[0]}
	}

	hull := make([]orb.Point, 0, 2*len(pts))

	// lower
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// upper
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// The last point equals the first, which closes the ring.
	return orb.Ring(hull)
}

// cross is the z component of (a->b) x (a->c); positive means c is left of a->b.
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func distinct(points []orb.Point) []orb.Point {
	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	out := pts[:0]
	for i, p := range pts {
		if i > 0 && p == pts[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// HullPoints reports how many distinct points a closed hull ring has.
func HullPoints(r orb.Ring) int {
	if len(r) <= 1 {
		return len(r)
	}
	return len(r) - 1
}

// Centroid is the arithmetic mean of coords, taken independently per axis.
// It is not geodesically exact and misbehaves across the antimeridian.
func Centroid(coords []domain.Coordinate) domain.Coordinate {
	if len(coords) == 0 {
		return domain.Coordinate{}
	}
	var c domain.Coordinate
	for _, v := range coords {
		c.Lon += v.Lon
		c.Lat += v.Lat
		c.Alt += v.Alt
	}
	n := float64(len(coords))
	c.Lon /= n
	c.Lat /= n
	c.Alt /= n
	return c
}

// Points converts coordinates into planar orb points.
func Points(coords []domain.Coordinate) []orb.Point {
	out := make([]orb.Point, 0, len(coords))
	for _, c := range coords {
		out = append(out, c.Point())
	}
	return out
}

// RingCoordinates converts a hull ring back into coordinates.
func RingCoordinates(r orb.Ring) []domain.Coordinate {
	out := make([]domain.Coordinate, 0, len(r))
	for _, p := range r {
		out = append(out, domain.CoordinateFromPoint(p))
	}
	return out
}
