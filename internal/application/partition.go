package application

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/geometry"
)

const anchorTolerance = 1e-9

// anchored is a result placed at its anchor point in the R-tree.
type anchored struct {
	index  int
	result *domain.Result
	at     orb.Point
}

// Bounds implements rtreego.Spatial.
func (a *anchored) Bounds() rtreego.Rect {
	return rtreego.Point{a.at.Lon(), a.at.Lat()}.ToRect(anchorTolerance)
}

// Partition groups results whose anchors lie within thresholdMeters of a group leader.
//
// Leaders are taken in input order; each leader collects every not yet grouped result within
// the threshold. Results without an anchor form singleton groups. Every input result appears
// in exactly one group and groups keep input order.
func Partition(results []*domain.Result, thresholdMeters float64) [][]*domain.Result {
	items := make([]*anchored, 0, len(results))
	var groups [][]*domain.Result

	tree := rtreego.NewTree(2, 25, 50)
	for i, r := range results {
		c, ok := anchorOf(r)
		if !ok {
			continue
		}
		a := &anchored{index: i, result: r, at: c.Point()}
		items = append(items, a)
		tree.Insert(a)
	}

	grouped := make(map[int]bool, len(items))
	leaders := make(map[int][]*domain.Result, len(items))
	for _, leader := range items {
		if grouped[leader.index] {
			continue
		}
		grouped[leader.index] = true
		group := []*domain.Result{leader.result}

		var candidates []*anchored
		for _, window := range searchWindows(leader.at, thresholdMeters) {
			for _, s := range tree.SearchIntersect(window) {
				candidates = append(candidates, s.(*anchored))
			}
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].index < candidates[j].index })

		for _, c := range candidates {
			// Windows may overlap, so a candidate can show up twice.
			if grouped[c.index] {
				continue
			}
			if geo.DistanceHaversine(leader.at, c.at) <= thresholdMeters {
				grouped[c.index] = true
				group = append(group, c.result)
			}
		}
		leaders[leader.index] = group
	}

	// Emit groups in leader order, interleaving unanchored singletons at their positions.
	for i, r := range results {
		if g, ok := leaders[i]; ok {
			groups = append(groups, g)
			continue
		}
		if !grouped[i] && r != nil {
			groups = append(groups, []*domain.Result{r})
		}
	}
	return groups
}

func anchorOf(r *domain.Result) (domain.Coordinate, bool) {
	if !r.HasGeometry() {
		return domain.Coordinate{}, false
	}
	return geometry.Anchor(r.Geometry)
}

// searchWindows returns lon/lat boxes that together contain every point within m meters of
// p. A box crossing the antimeridian is repeated shifted by 360 degrees.
func searchWindows(p orb.Point, m float64) []rtreego.Rect {
	d := m / orb.EarthRadius
	lat := p.Lat() * math.Pi / 180
	minLat, maxLat := lat-d, lat+d

	dLon := math.Pi
	if minLat > -math.Pi/2 && maxLat < math.Pi/2 {
		if s := math.Sin(d) / math.Cos(lat); s < 1 {
			dLon = math.Asin(s)
		}
	}

	toDeg := 180 / math.Pi
	lo := rtreego.Point{p.Lon() - dLon*toDeg - anchorTolerance, minLat*toDeg - anchorTolerance}
	hi := rtreego.Point{p.Lon() + dLon*toDeg + anchorTolerance, maxLat*toDeg + anchorTolerance}

	windows := []rtreego.Rect{mustRect(lo, hi)}
	if lo[0] < -180 {
		windows = append(windows, mustRect(rtreego.Point{lo[0] + 360, lo[1]}, rtreego.Point{hi[0] + 360, hi[1]}))
	}
	if hi[0] > 180 {
		windows = append(windows, mustRect(rtreego.Point{lo[0] - 360, lo[1]}, rtreego.Point{hi[0] - 360, hi[1]}))
	}
	return windows
}

func mustRect(lo, hi rtreego.Point) rtreego.Rect {
	rect, err := rtreego.NewRectFromPoints(lo, hi)
	if err != nil {
		// lo <= hi always holds; fall back to the whole world.
		rect, _ = rtreego.NewRectFromPoints(rtreego.Point{-540, -180}, rtreego.Point{540, 180})
	}
	return rect
}
