package domain

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// GeometryType is the tag of a geometry record.
type GeometryType string

// Geometry type constants.
const (
	GeomPoint              GeometryType = "Point"
	GeomLineString         GeometryType = "LineString"
	GeomPolygon            GeometryType = "Polygon"
	GeomMultiPoint         GeometryType = "MultiPoint"
	GeomMultiLineString    GeometryType = "MultiLineString"
	GeomMultiPolygon       GeometryType = "MultiPolygon"
	GeomGeometryCollection GeometryType = "GeometryCollection"
)

// Geometry is a tagged geometry record. Which coordinate field is populated depends on
// Type:
//
//	Point                      Coordinates[0]
//	LineString, MultiPoint     Coordinates
//	Polygon, MultiLineString   Lines (polygon: rings, first is exterior)
//	MultiPolygon               Polygons
//	GeometryCollection         Geometries
//
// Records with an unrecognized Type are kept as-is so that consumers can skip them.
type Geometry struct {
	Type        GeometryType
	Coordinates []Coordinate
	Lines       [][]Coordinate
	Polygons    [][][]Coordinate
	Geometries  []Geometry
}

// NewPoint creates a Point geometry.
func NewPoint(c Coordinate) *Geometry {
	return &Geometry{Type: GeomPoint, Coordinates: []Coordinate{c}}
}

// NewLineString creates a LineString geometry.
func NewLineString(coords ...Coordinate) *Geometry {
	return &Geometry{Type: GeomLineString, Coordinates: coords}
}

// NewMultiPoint creates a MultiPoint geometry.
func NewMultiPoint(coords ...Coordinate) *Geometry {
	return &Geometry{Type: GeomMultiPoint, Coordinates: coords}
}

// NewPolygon creates a Polygon geometry from its rings.
func NewPolygon(rings ...[]Coordinate) *Geometry {
	return &Geometry{Type: GeomPolygon, Lines: rings}
}

// NewMultiLineString creates a MultiLineString geometry.
func NewMultiLineString(lines ...[]Coordinate) *Geometry {
	return &Geometry{Type: GeomMultiLineString, Lines: lines}
}

// NewMultiPolygon creates a MultiPolygon geometry.
func NewMultiPolygon(polygons ...[][]Coordinate) *Geometry {
	return &Geometry{Type: GeomMultiPolygon, Polygons: polygons}
}

// NewCollection creates a GeometryCollection.
func NewCollection(geometries ...Geometry) *Geometry {
	return &Geometry{Type: GeomGeometryCollection, Geometries: geometries}
}

// IsKnown reports whether the geometry carries one of the seven supported tags.
func (g *Geometry) IsKnown() bool {
	switch g.Type {
	case GeomPoint, GeomLineString, GeomPolygon, GeomMultiPoint,
		GeomMultiLineString, GeomMultiPolygon, GeomGeometryCollection:
		return true
	}
	return false
}

// Vertices returns every coordinate of the geometry, recursing into collections.
func (g *Geometry) Vertices() []Coordinate {
	if g == nil {
		return nil
	}
	var out []Coordinate
	switch g.Type {
	case GeomPoint, GeomLineString, GeomMultiPoint:
		out = append(out, g.Coordinates...)
	case GeomPolygon, GeomMultiLineString:
		for _, line := range g.Lines {
			out = append(out, line...)
		}
	case GeomMultiPolygon:
		for _, poly := range g.Polygons {
			for _, ring := range poly {
				out = append(out, ring...)
			}
		}
	case GeomGeometryCollection:
		for i := range g.Geometries {
			out = append(out, g.Geometries[i].Vertices()...)
		}
	}
	return out
}

// geometryJSON is the wire form of a geometry record.
type geometryJSON struct {
	Type        GeometryType      `json:"type"`
	Coordinates json.RawMessage   `json:"coordinates,omitempty"`
	Geometries  []json.RawMessage `json:"geometries,omitempty"`
}

// UnmarshalJSON decodes a GeoJSON-style geometry object.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw geometryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*g = Geometry{Type: raw.Type}

	switch raw.Type {
	case GeomPoint:
		var v []float64
		if err := json.Unmarshal(raw.Coordinates, &v); err != nil {
			return fmt.Errorf("point coordinates: %w", err)
		}
		c, err := CoordinateFromSlice(v)
		if err != nil {
			return err
		}
		g.Coordinates = []Coordinate{c}

	case GeomLineString, GeomMultiPoint:
		var v [][]float64
		if err := json.Unmarshal(raw.Coordinates, &v); err != nil {
			return fmt.Errorf("%s coordinates: %w", raw.Type, err)
		}
		coords, err := toCoordinates(v)
		if err != nil {
			return err
		}
		g.Coordinates = coords

	case GeomPolygon, GeomMultiLineString:
		var v [][][]float64
		if err := json.Unmarshal(raw.Coordinates, &v); err != nil {
			return fmt.Errorf("%s coordinates: %w", raw.Type, err)
		}
		lines, err := toLines(v)
		if err != nil {
			return err
		}
		g.Lines = lines

	case GeomMultiPolygon:
		var v [][][][]float64
		if err := json.Unmarshal(raw.Coordinates, &v); err != nil {
			return fmt.Errorf("%s coordinates: %w", raw.Type, err)
		}
		g.Polygons = make([][][]Coordinate, 0, len(v))
		for _, poly := range v {
			rings, err := toLines(poly)
			if err != nil {
				return err
			}
			g.Polygons = append(g.Polygons, rings)
		}

	case GeomGeometryCollection:
		g.Geometries = make([]Geometry, 0, len(raw.Geometries))
		for _, member := range raw.Geometries {
			var sub Geometry
			if err := json.Unmarshal(member, &sub); err != nil {
				return err
			}
			g.Geometries = append(g.Geometries, sub)
		}
	}

	return nil
}

func toCoordinates(v [][]float64) ([]Coordinate, error) {
	coords := make([]Coordinate, 0, len(v))
	for _, pos := range v {
		c, err := CoordinateFromSlice(pos)
		if err != nil {
			return nil, err
		}
		coords = append(coords, c)
	}
	return coords, nil
}

func toLines(v [][][]float64) ([][]Coordinate, error) {
	lines := make([][]Coordinate, 0, len(v))
	for _, line := range v {
		coords, err := toCoordinates(line)
		if err != nil {
			return nil, err
		}
		lines = append(lines, coords)
	}
	return lines, nil
}

// FromOrb converts an orb geometry into a geometry record. A bare ring or bound becomes
// a single-ring polygon.
func FromOrb(g orb.Geometry) (*Geometry, error) {
	switch v := g.(type) {
	case nil:
		return nil, nil
	case orb.Point:
		return NewPoint(CoordinateFromPoint(v)), nil
	case orb.MultiPoint:
		return NewMultiPoint(fromPoints(v)...), nil
	case orb.LineString:
		return NewLineString(fromPoints(v)...), nil
	case orb.MultiLineString:
		lines := make([][]Coordinate, 0, len(v))
		for _, ls := range v {
			lines = append(lines, fromPoints(ls))
		}
		return NewMultiLineString(lines...), nil
	case orb.Ring:
		return NewPolygon(fromPoints(v)), nil
	case orb.Polygon:
		return NewPolygon(fromRings(v)...), nil
	case orb.MultiPolygon:
		polys := make([][][]Coordinate, 0, len(v))
		for _, p := range v {
			polys = append(polys, fromRings(p))
		}
		return NewMultiPolygon(polys...), nil
	case orb.Bound:
		return FromOrb(v.ToPolygon())
	case orb.Collection:
		members := make([]Geometry, 0, len(v))
		for _, sub := range v {
			m, err := FromOrb(sub)
			if err != nil {
				return nil, err
			}
			if m != nil {
				members = append(members, *m)
			}
		}
		return NewCollection(members...), nil
	default:
		return nil, fmt.Errorf("%T: %w", g, ErrUnsupportedGeometry)
	}
}

func fromPoints[P ~[]orb.Point](points P) []Coordinate {
	coords := make([]Coordinate, 0, len(points))
	for _, p := range points {
		coords = append(coords, CoordinateFromPoint(p))
	}
	return coords
}

func fromRings(p orb.Polygon) [][]Coordinate {
	rings := make([][]Coordinate, 0, len(p))
	for _, r := range p {
		rings = append(rings, fromPoints(r))
	}
	return rings
}

// Orb converts the record into an orb geometry. Altitudes are dropped; unknown types yield
// nil.
func (g *Geometry) Orb() orb.Geometry {
	if g == nil {
		return nil
	}
	switch g.Type {
	case GeomPoint:
		if len(g.Coordinates) == 0 {
			return nil
		}
		return g.Coordinates[0].Point()
	case GeomMultiPoint:
		return orb.MultiPoint(toPoints(g.Coordinates))
	case GeomLineString:
		return orb.LineString(toPoints(g.Coordinates))
	case GeomMultiLineString:
		mls := make(orb.MultiLineString, 0, len(g.Lines))
		for _, line := range g.Lines {
			mls = append(mls, toPoints(line))
		}
		return mls
	case GeomPolygon:
		return toPolygon(g.Lines)
	case GeomMultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(g.Polygons))
		for _, rings := range g.Polygons {
			mp = append(mp, toPolygon(rings))
		}
		return mp
	case GeomGeometryCollection:
		c := make(orb.Collection, 0, len(g.Geometries))
		for i := range g.Geometries {
			if sub := g.Geometries[i].Orb(); sub != nil {
				c = append(c, sub)
			}
		}
		return c
	}
	return nil
}

func toPoints(coords []Coordinate) []orb.Point {
	points := make([]orb.Point, 0, len(coords))
	for _, c := range coords {
		points = append(points, c.Point())
	}
	return points
}

func toPolygon(rings [][]Coordinate) orb.Polygon {
	p := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		p = append(p, toPoints(r))
	}
	return p
}
