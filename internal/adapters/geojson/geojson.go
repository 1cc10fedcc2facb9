// Package geojson reads result documents and writes scenes as GeoJSON.
package geojson

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jobrunner/atlas/internal/domain"
)

// Decoder implements output.ResultDecoder for GeoJSON documents.
type Decoder struct {
	defaultColor domain.Color
}

// NewDecoder creates a decoder. Features without a usable color get defaultColor.
func NewDecoder(defaultColor domain.Color) *Decoder {
	return &Decoder{defaultColor: defaultColor}
}

type document struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// feature keeps the geometry in the domain form so altitudes and unknown types survive.
type feature struct {
	ID         any                `json:"id"`
	Geometry   *domain.Geometry   `json:"geometry"`
	Properties geojson.Properties `json:"properties"`
}

// Decode parses a FeatureCollection or a single Feature. The result id comes from the
// feature id or the "id" property; features without one are skipped.
func (d *Decoder) Decode(data []byte) ([]*domain.Result, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	var raw []json.RawMessage
	switch doc.Type {
	case "FeatureCollection":
		raw = doc.Features
	case "Feature":
		raw = []json.RawMessage{data}
	default:
		return nil, &domain.ValidationError{
			Field:      "type",
			Value:      doc.Type,
			Constraint: "FeatureCollection or Feature",
			Message:    "unsupported document type",
		}
	}

	out := make([]*domain.Result, 0, len(raw))
	for i, msg := range raw {
		var f feature
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		id := featureID(f)
		if id == "" {
			continue
		}
		out = append(out, &domain.Result{
			ID:       id,
			Geometry: f.Geometry,
			Color:    d.color(f.Properties),
		})
	}
	return out, nil
}

func featureID(f feature) string {
	switch v := f.ID.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	switch v := f.Properties["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (d *Decoder) color(props geojson.Properties) domain.Color {
	s, ok := props["color"].(string)
	if !ok {
		return d.defaultColor
	}
	c, err := domain.ParseColor(s)
	if err != nil {
		return d.defaultColor
	}
	return c
}

// EncodeScene writes the results and the clusters of a scene as a FeatureCollection.
// Results carry their color and selection state; clusters contribute a centroid feature and,
// when present, a hull feature.
func EncodeScene(results []*domain.Result, scene domain.Scene) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	selected := make(map[string]bool, len(scene.Selected))
	for _, id := range scene.Selected {
		selected[id] = true
	}
	clustered := make(map[string]bool)
	for _, c := range scene.Clusters {
		for _, id := range c.Members {
			clustered[id] = true
		}
	}

	for _, r := range results {
		g := r.Geometry.Orb()
		if g == nil {
			continue
		}
		f := geojson.NewFeature(g)
		f.ID = r.ID
		f.Properties["kind"] = "result"
		f.Properties["color"] = r.Color.Hex()
		f.Properties["selected"] = selected[r.ID]
		f.Properties["clustered"] = clustered[r.ID]
		fc.Append(f)
	}

	for i, c := range scene.Clusters {
		marker := geojson.NewFeature(c.Centroid.Point())
		marker.ID = fmt.Sprintf("cluster-%d", i)
		marker.Properties["kind"] = "cluster"
		marker.Properties["members"] = c.Members
		marker.Properties["count"] = len(c.Members)
		marker.Properties["state"] = c.State
		fc.Append(marker)

		if hull := hullGeometry(c.Hull); hull != nil {
			f := geojson.NewFeature(hull)
			f.ID = fmt.Sprintf("cluster-%d-hull", i)
			f.Properties["kind"] = "hull"
			f.Properties["visible"] = c.HullVisible
			fc.Append(f)
		}
	}

	return json.MarshalIndent(fc, "", "  ")
}

func hullGeometry(coords []domain.Coordinate) orb.Geometry {
	points := make([]orb.Point, 0, len(coords))
	for _, c := range coords {
		points = append(points, c.Point())
	}
	switch {
	case len(points) >= 4:
		return orb.Polygon{points}
	case len(points) >= 2:
		return orb.LineString(points[:2])
	}
	return nil
}
