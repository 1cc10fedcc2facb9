package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func TestGeometryUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantType     GeometryType
		wantVertices int
		wantErr      bool
	}{
		{
			name:         "point",
			input:        `{"type":"Point","coordinates":[9.9,52.5]}`,
			wantType:     GeomPoint,
			wantVertices: 1,
		},
		{
			name:         "line string",
			input:        `{"type":"LineString","coordinates":[[0,0],[1,1],[2,0]]}`,
			wantType:     GeomLineString,
			wantVertices: 3,
		},
		{
			name:         "polygon with hole",
			input:        `{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,4]],[[1,1],[2,1],[2,2]]]}`,
			wantType:     GeomPolygon,
			wantVertices: 7,
		},
		{
			name:         "multi point",
			input:        `{"type":"MultiPoint","coordinates":[[0,0],[1,1]]}`,
			wantType:     GeomMultiPoint,
			wantVertices: 2,
		},
		{
			name:         "multi line string",
			input:        `{"type":"MultiLineString","coordinates":[[[0,0],[1,1]],[[2,2],[3,3],[4,4]]]}`,
			wantType:     GeomMultiLineString,
			wantVertices: 5,
		},
		{
			name:         "multi polygon",
			input:        `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1]]],[[[5,5],[6,5],[6,6]]]]}`,
			wantType:     GeomMultiPolygon,
			wantVertices: 6,
		},
		{
			name:         "collection",
			input:        `{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[1,2]},{"type":"LineString","coordinates":[[0,0],[1,1]]}]}`,
			wantType:     GeomGeometryCollection,
			wantVertices: 3,
		},
		{
			name:         "unknown type is kept",
			input:        `{"type":"Circle","coordinates":[1,2]}`,
			wantType:     GeometryType("Circle"),
			wantVertices: 0,
		},
		{
			name:    "position with one value",
			input:   `{"type":"Point","coordinates":[1]}`,
			wantErr: true,
		},
		{
			name:    "arity mismatch",
			input:   `{"type":"LineString","coordinates":[1,2]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Geometry
			err := json.Unmarshal([]byte(tt.input), &g)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if g.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", g.Type, tt.wantType)
			}
			if n := len(g.Vertices()); n != tt.wantVertices {
				t.Errorf("len(Vertices()) = %d, want %d", n, tt.wantVertices)
			}
		})
	}
}

func TestGeometryAltitudeDefaultsToZero(t *testing.T) {
	var g Geometry
	if err := json.Unmarshal([]byte(`{"type":"LineString","coordinates":[[1,2],[3,4,50]]}`), &g); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if g.Coordinates[0].Alt != 0 {
		t.Errorf("expected altitude 0, got %f", g.Coordinates[0].Alt)
	}
	if g.Coordinates[1].Alt != 50 {
		t.Errorf("expected altitude 50, got %f", g.Coordinates[1].Alt)
	}
}

func TestGeometryIsKnown(t *testing.T) {
	if !NewPoint(NewCoordinate(0, 0)).IsKnown() {
		t.Error("Point should be known")
	}
	if (&Geometry{Type: "Circle"}).IsKnown() {
		t.Error("Circle should not be known")
	}
}

func TestVerticesNil(t *testing.T) {
	var g *Geometry
	if v := g.Vertices(); v != nil {
		t.Errorf("expected nil vertices, got %v", v)
	}
}

func TestFromOrb(t *testing.T) {
	tests := []struct {
		name         string
		input        orb.Geometry
		wantType     GeometryType
		wantVertices int
	}{
		{"point", orb.Point{1, 2}, GeomPoint, 1},
		{"multi point", orb.MultiPoint{{1, 2}, {3, 4}}, GeomMultiPoint, 2},
		{"line string", orb.LineString{{0, 0}, {1, 1}}, GeomLineString, 2},
		{"multi line string", orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}}, GeomMultiLineString, 4},
		{"ring", orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, GeomPolygon, 4},
		{"polygon", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, GeomPolygon, 4},
		{"multi polygon", orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, GeomMultiPolygon, 4},
		{"bound", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, GeomPolygon, 5},
		{"collection", orb.Collection{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}}, GeomGeometryCollection, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := FromOrb(tt.input)
			if err != nil {
				t.Fatalf("FromOrb() error = %v", err)
			}
			if g.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", g.Type, tt.wantType)
			}
			if n := len(g.Vertices()); n != tt.wantVertices {
				t.Errorf("len(Vertices()) = %d, want %d", n, tt.wantVertices)
			}
		})
	}
}

func TestFromOrbNil(t *testing.T) {
	g, err := FromOrb(nil)
	if err != nil || g != nil {
		t.Errorf("FromOrb(nil) = %v, %v", g, err)
	}
}

func TestFromOrbUnsupported(t *testing.T) {
	_, err := FromOrb(unsupportedGeometry{})
	if !errors.Is(err, ErrUnsupportedGeometry) {
		t.Errorf("expected ErrUnsupportedGeometry, got %v", err)
	}
}

// unsupportedGeometry satisfies orb.Geometry through embedding without being one of orb's own types.
type unsupportedGeometry struct {
	orb.Point
}

func TestOrbRestoresType(t *testing.T) {
	inputs := []orb.Geometry{
		orb.Point{1, 2},
		orb.MultiPoint{{1, 2}, {3, 4}},
		orb.LineString{{0, 0}, {1, 1}},
		orb.MultiLineString{{{0, 0}, {1, 1}}},
		orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}},
		orb.Collection{orb.Point{1, 2}},
	}

	for _, in := range inputs {
		g, err := FromOrb(in)
		if err != nil {
			t.Fatalf("FromOrb(%s) error = %v", in.GeoJSONType(), err)
		}
		out := g.Orb()
		if out == nil || out.GeoJSONType() != in.GeoJSONType() {
			t.Errorf("Orb() of %s = %v", in.GeoJSONType(), out)
		}
	}

	if (&Geometry{Type: "Curve"}).Orb() != nil {
		t.Error("unknown type should convert to nil")
	}
}
