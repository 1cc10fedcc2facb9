package geometry

import (
	"math/rand"
	"testing"

	"github.com/paulmach/orb"

	"github.com/jobrunner/atlas/internal/domain"
)

func TestConvexHullSquare(t *testing.T) {
	points := []orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}, {1, 0}}
	hull := ConvexHull(points)

	if HullPoints(hull) != 4 {
		t.Fatalf("expected 4 hull points, got %d (%v)", HullPoints(hull), hull)
	}
	if !hull.Closed() {
		t.Error("hull should be closed")
	}
	if hull.Orientation() != orb.CCW {
		t.Error("hull should be counter-clockwise")
	}
}

func TestConvexHullDegenerate(t *testing.T) {
	tests := []struct {
		name       string
		points     []orb.Point
		wantPoints int
	}{
		{"empty", nil, 0},
		{"single", []orb.Point{{1, 1}}, 1},
		{"coincident", []orb.Point{{1, 1}, {1, 1}, {1, 1}}, 1},
		{"two points", []orb.Point{{0, 0}, {1, 1}}, 2},
		{"collinear", []orb.Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hull := ConvexHull(tt.points)
			if got := HullPoints(hull); got != tt.wantPoints {
				t.Errorf("HullPoints() = %d, want %d (%v)", got, tt.wantPoints, hull)
			}
			for _, p := range tt.points {
				if !hullContains(hull, p, 1e-9) {
					t.Errorf("hull %v does not contain %v", hull, p)
				}
			}
		})
	}
}

func TestConvexHullContainsAllPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		n := 3 + rng.Intn(40)
		points := make([]orb.Point, n)
		for i := range points {
			points[i] = orb.Point{rng.Float64()*2 - 1 + 13.4, rng.Float64()*2 - 1 + 52.5}
		}

		hull := ConvexHull(points)
		if hull[0] != hull[len(hull)-1] {
			t.Fatalf("round %d: hull not closed", round)
		}
		for _, p := range points {
			if !hullContains(hull, p, 1e-9) {
				t.Fatalf("round %d: point %v outside hull %v", round, p, hull)
			}
		}
	}
}

func TestHullContainsRejectsOutside(t *testing.T) {
	hull := ConvexHull([]orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}})

	if hullContains(hull, orb.Point{2, 2}, 1e-9) {
		t.Error("(2 2) should be outside")
	}
	if !hullContains(hull, orb.Point{1, 0.5}, 1e-9) {
		t.Error("(1 0.5) lies on the boundary")
	}

	segment := ConvexHull([]orb.Point{{0, 0}, {2, 0}})
	if hullContains(segment, orb.Point{3, 0}, 1e-9) {
		t.Error("(3 0) lies beyond the segment")
	}
}

func TestCentroid(t *testing.T) {
	got := Centroid([]domain.Coordinate{
		{Lon: 0, Lat: 0, Alt: 0},
		{Lon: 2, Lat: 4, Alt: 10},
	})
	if got != (domain.Coordinate{Lon: 1, Lat: 2, Alt: 5}) {
		t.Errorf("Centroid() = %v", got)
	}

	shared := domain.NewCoordinate(13.5, 52.25)
	if got := Centroid([]domain.Coordinate{shared, shared, shared}); got != shared {
		t.Errorf("Centroid of coincident points = %v, want %v", got, shared)
	}

	if got := Centroid(nil); got != (domain.Coordinate{}) {
		t.Errorf("Centroid(nil) = %v", got)
	}
}

func TestRingCoordinates(t *testing.T) {
	ring := orb.Ring{{0, 0}, {1, 0}, {0, 0}}
	coords := RingCoordinates(ring)
	if len(coords) != 3 || coords[1] != domain.NewCoordinate(1, 0) {
		t.Errorf("RingCoordinates() = %v", coords)
	}
	if pts := Points(coords); len(pts) != 3 || pts[1] != (orb.Point{1, 0}) {
		t.Errorf("Points() = %v", pts)
	}
}

// hullContains reports whether p lies inside or on the boundary of the closed convex ring r,
// within tolerance eps.
func hullContains(r orb.Ring, p orb.Point, eps float64) bool {
	switch HullPoints(r) {
	case 0:
		return false
	case 1:
		return near(r[0], p, eps)
	case 2:
		return onSegment(r[0], r[1], p, eps)
	}
	for i := 0; i+1 < len(r); i++ {
		if cross(r[i], r[i+1], p) < -eps {
			return false
		}
	}
	return true
}

func near(a, b orb.Point, eps float64) bool {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx+dy*dy <= eps*eps
}

func onSegment(a, b, p orb.Point, eps float64) bool {
	if c := cross(a, b, p); c > eps || c < -eps {
		return false
	}
	return p[0] >= min(a[0], b[0])-eps && p[0] <= max(a[0], b[0])+eps &&
		p[1] >= min(a[1], b[1])-eps && p[1] <= max(a[1], b[1])+eps
}
