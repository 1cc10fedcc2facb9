// Package planar adapts a 2D tile map engine in Web Mercator to the map provider port.
//
// The engine itself is external. Runtime describes the part of its surface the adapter
// drives; Headless is an in-memory implementation used by the CLI and tests.
package planar

// Source kinds understood by the engine.
const (
	SourceOSM            = "OSM"
	SourceXYZ            = "XYZ"
	SourceTileWMS        = "TileWMS"
	SourceWMTS           = "WMTS"
	SourceTileArcGISRest = "TileArcGISRest"
	SourceBingMaps       = "BingMaps"
	SourceImageStatic    = "ImageStatic"
)

// Projection is the view projection of the engine.
const Projection = "EPSG:3857"

// SourceOptions are the constructor options of a tile or image source.
type SourceOptions struct {
	Kind        string
	URL         string
	Params      map[string]string
	MatrixSet   string
	Layer       string
	Key         string
	ImagerySet  string
	ImageExtent [4]float64 // minX, minY, maxX, maxY in Projection
	Projection  string
}

// Source is a constructed tile or image source.
type Source struct {
	Options SourceOptions
}

// Layer is a tile or image layer in the map's layer group.
type Layer struct {
	Source  *Source
	Opacity float64
	Visible bool
	ZIndex  int
}

// Geometry types of vector features.
const (
	GeometryPoint      = "Point"
	GeometryLineString = "LineString"
	GeometryLinearRing = "LinearRing"
)

// FeatureGeometry holds projected coordinates.
type FeatureGeometry struct {
	Type   string
	Coords [][2]float64
}

// FeatureStyle is the rendered style of a feature. Colors are CSS rgba() strings.
type FeatureStyle struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Radius      float64
	Text        string
	TextFill    string
	Visible     bool
}

// Feature is a vector feature in the overlay source.
type Feature struct {
	ID         uint64
	Geometry   FeatureGeometry
	Style      FeatureStyle
	Properties map[string]any
}

// Pointer event types.
const (
	PointerSingleClick = "singleclick"
	PointerMove        = "pointermove"
)

// PointerEvent carries the projected pointer position.
type PointerEvent struct {
	Type       string
	Coordinate [2]float64
	ShiftKey   bool
}

// Runtime is the engine surface used by the adapter.
type Runtime interface {
	// NewSource constructs a tile or image source. It fails for options the engine rejects.
	NewSource(opts SourceOptions) (*Source, error)

	AddLayer(l *Layer)
	RemoveLayer(l *Layer)

	AddFeature(f *Feature)
	RemoveFeature(f *Feature)
	// Changed tells the engine that a feature's style or geometry was modified.
	Changed(f *Feature)
	// FeaturesAt returns the visible point features within the hit tolerance of a projected
	// position, nearest and then topmost first. It reads feature styles, so callers serialize
	// it with their own feature mutations.
	FeaturesAt(at [2]float64) []*Feature

	// OnReady registers fn to run once the first render completed.
	OnReady(fn func())
	// OnPointer registers fn for pointer events.
	OnPointer(fn func(PointerEvent))

	Dispose()
}
