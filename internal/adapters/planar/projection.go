package planar

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/jobrunner/atlas/internal/domain"
)

// maxLat is the latitude limit of the square Web Mercator world.
const maxLat = 85.0511287798066

func clampLat(lat float64) float64 {
	return math.Max(-maxLat, math.Min(maxLat, lat))
}

// Project converts WGS84 degrees to Web Mercator meters.
// Latitudes beyond the Mercator limit are clamped.
func Project(lon, lat float64) [2]float64 {
	return [2]float64(project.WGS84.ToMercator(orb.Point{lon, clampLat(lat)}))
}

// Unproject converts Web Mercator meters to WGS84 degrees.
func Unproject(p [2]float64) (lon, lat float64) {
	g := project.Mercator.ToWGS84(orb.Point(p))
	return g.Lon(), g.Lat()
}

// ProjectExtent projects a WGS84 extent to a [minX, minY, maxX, maxY] box.
func ProjectExtent(e domain.Extent) [4]float64 {
	b := e.Bound()
	b.Min[1], b.Max[1] = clampLat(b.Min[1]), clampLat(b.Max[1])
	m := project.Bound(b, project.WGS84.ToMercator)
	return [4]float64{m.Min[0], m.Min[1], m.Max[0], m.Max[1]}
}
