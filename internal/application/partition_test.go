package application

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/paulmach/orb/geo"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/geometry"
)

func groupIDs(groups [][]*domain.Result) [][]string {
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		ids := make([]string, 0, len(g))
		for _, r := range g {
			ids = append(ids, r.ID)
		}
		out = append(out, ids)
	}
	return out
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name      string
		results   []*domain.Result
		threshold float64
		want      [][]string
	}{
		{
			name:      "empty",
			threshold: 100,
			want:      [][]string{},
		},
		{
			name: "coincident points",
			results: []*domain.Result{
				pointResult("a", 13.4, 52.5),
				pointResult("b", 13.4, 52.5),
				pointResult("c", 13.4, 52.5),
			},
			threshold: 0,
			want:      [][]string{{"a", "b", "c"}},
		},
		{
			name: "near and far",
			results: []*domain.Result{
				pointResult("a", 0, 0),
				pointResult("far", 10, 10),
				pointResult("b", 0, 0.001),
			},
			threshold: 200,
			want:      [][]string{{"a", "b"}, {"far"}},
		},
		{
			name: "below threshold distance",
			results: []*domain.Result{
				pointResult("a", 0, 0),
				pointResult("b", 0, 0.001),
			},
			threshold: 50,
			want:      [][]string{{"a"}, {"b"}},
		},
		{
			name: "unanchored results keep their position",
			results: []*domain.Result{
				{ID: "none", Color: testColor},
				pointResult("a", 0, 0),
				pointResult("b", 0, 0),
			},
			threshold: 10,
			want:      [][]string{{"none"}, {"a", "b"}},
		},
		{
			name: "leaders are not transitive",
			results: []*domain.Result{
				pointResult("a", 0, 0),
				pointResult("b", 0, 0.0015),
				pointResult("c", 0, 0.003),
			},
			threshold: 200,
			want:      [][]string{{"a", "b"}, {"c"}},
		},
		{
			name: "across the antimeridian",
			results: []*domain.Result{
				pointResult("east", 179.9995, 0),
				pointResult("west", -179.9995, 0),
			},
			threshold: 200,
			want:      [][]string{{"east", "west"}},
		},
		{
			name: "near the pole",
			results: []*domain.Result{
				pointResult("a", 0, 89.9999),
				pointResult("b", 180, 89.9999),
			},
			threshold: 50,
			want:      [][]string{{"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := groupIDs(Partition(tt.results, tt.threshold))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Partition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPartitionLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var rs []*domain.Result
	for i := range 300 {
		lon := 8 + rng.Float64()*0.05
		lat := 50 + rng.Float64()*0.05
		if i%10 == 0 {
			rs = append(rs, &domain.Result{
				ID:       fmt.Sprintf("poly-%d", i),
				Geometry: domain.NewPolygon([]domain.Coordinate{{Lon: lon, Lat: lat}, {Lon: lon + 0.001, Lat: lat}, {Lon: lon, Lat: lat + 0.001}}),
				Color:    testColor,
			})
			continue
		}
		rs = append(rs, pointResult(fmt.Sprintf("p-%d", i), lon, lat))
	}
	const threshold = 300.0

	groups := Partition(rs, threshold)

	seen := make(map[string]int)
	for _, g := range groups {
		leader, _ := geometry.Anchor(g[0].Geometry)
		for _, r := range g {
			seen[r.ID]++
			at, _ := geometry.Anchor(r.Geometry)
			if d := geo.DistanceHaversine(leader.Point(), at.Point()); d > threshold {
				t.Errorf("%s is %.1f m from its leader %s", r.ID, d, g[0].ID)
			}
		}
	}
	for _, r := range rs {
		if seen[r.ID] != 1 {
			t.Errorf("%s appears in %d groups, want 1", r.ID, seen[r.ID])
		}
	}

	// No later leader lies within the threshold of an earlier one.
	for i := range groups {
		li, _ := geometry.Anchor(groups[i][0].Geometry)
		for j := i + 1; j < len(groups); j++ {
			lj, _ := geometry.Anchor(groups[j][0].Geometry)
			if geo.DistanceHaversine(li.Point(), lj.Point()) <= threshold {
				t.Errorf("leader %s should have been absorbed by %s", groups[j][0].ID, groups[i][0].ID)
			}
		}
	}

	if again := groupIDs(Partition(rs, threshold)); fmt.Sprint(again) != fmt.Sprint(groupIDs(groups)) {
		t.Error("Partition() is not deterministic")
	}
}
