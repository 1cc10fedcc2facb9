// Package geometry turns geometry records into renderable primitives and computes the
// aggregate shapes used for clusters.
package geometry

import "github.com/jobrunner/atlas/internal/domain"

// Decode flattens g into point and line primitives.
//
// Lines and rings emit an anchor point at their first vertex followed by the line itself.
// Rings are always closed by repeating their first vertex. Unknown geometry types decode to
// an empty list.
func Decode(g *domain.Geometry) []domain.Primitive {
	if g == nil {
		return nil
	}
	return appendDecoded(nil, g)
}

func appendDecoded(out []domain.Primitive, g *domain.Geometry) []domain.Primitive {
	switch g.Type {
	case domain.GeomPoint:
		if len(g.Coordinates) > 0 {
			out = append(out, domain.PointPrimitive(g.Coordinates[0]))
		}
	case domain.GeomMultiPoint:
		for _, c := range g.Coordinates {
			out = append(out, domain.PointPrimitive(c))
		}
	case domain.GeomLineString:
		out = appendLine(out, g.Coordinates)
	case domain.GeomMultiLineString:
		for _, line := range g.Lines {
			out = appendLine(out, line)
		}
	case domain.GeomPolygon:
		out = appendPolygon(out, g.Lines)
	case domain.GeomMultiPolygon:
		for _, rings := range g.Polygons {
			out = appendPolygon(out, rings)
		}
	case domain.GeomGeometryCollection:
		for i := range g.Geometries {
			out = appendDecoded(out, &g.Geometries[i])
		}
	}
	return out
}

func appendLine(out []domain.Primitive, coords []domain.Coordinate) []domain.Primitive {
	if len(coords) == 0 {
		return out
	}
	line := make([]domain.Coordinate, len(coords))
	copy(line, coords)
	return append(out,
		domain.PointPrimitive(coords[0]),
		domain.LinePrimitive(line, false),
	)
}

// appendPolygon emits every ring as an independent outline; interior rings are not holes.
func appendPolygon(out []domain.Primitive, rings [][]domain.Coordinate) []domain.Primitive {
	for _, ring := range rings {
		if len(ring) == 0 {
			continue
		}
		out = append(out,
			domain.PointPrimitive(ring[0]),
			domain.LinePrimitive(CloseRing(ring), true),
		)
	}
	return out
}

// CloseRing returns a copy of ring with its first vertex appended.
func CloseRing(ring []domain.Coordinate) []domain.Coordinate {
	if len(ring) == 0 {
		return nil
	}
	closed := make([]domain.Coordinate, len(ring), len(ring)+1)
	copy(closed, ring)
	return append(closed, ring[0])
}

// Anchor returns the first point primitive of g, which is where a result is placed for
// clustering.
func Anchor(g *domain.Geometry) (domain.Coordinate, bool) {
	for _, p := range Decode(g) {
		if p.Kind == domain.PrimitivePoint {
			return p.Coords[0], true
		}
	}
	return domain.Coordinate{}, false
}
