// Package globe adapts a 3D globe engine to the map provider port.
//
// Runtime is the engine surface the adapter drives. Positions are earth-fixed Cartesian
// coordinates on the WGS84 ellipsoid; rectangles are in radians. Headless is an in-memory
// implementation used by the CLI and tests.
package globe

// Imagery provider kinds understood by the engine.
const (
	ProviderOpenStreetMap     = "OpenStreetMap"
	ProviderURLTemplate       = "UrlTemplate"
	ProviderWebMapService     = "WebMapService"
	ProviderWebMapTileService = "WebMapTileService"
	ProviderArcGisMapServer   = "ArcGisMapServer"
	ProviderBingMaps          = "BingMaps"
	ProviderSingleTile        = "SingleTile"
	ProviderTileMapService    = "TileMapService"
)

// Rectangle is a geographic rectangle in radians.
type Rectangle struct {
	West, South, East, North float64
}

// ProviderOptions are the constructor options of an imagery provider.
type ProviderOptions struct {
	Kind            string
	URL             string
	Layers          string
	Parameters      map[string]string
	Layer           string
	Style           string
	TileMatrixSetID string
	Key             string
	MapStyle        string
	Subdomains      string
	Rectangle       Rectangle
}

// ImageryProvider is a constructed imagery provider.
type ImageryProvider struct {
	Options ProviderOptions
}

// ImageryLayer wraps a provider in the globe's layer stack.
type ImageryLayer struct {
	Provider *ImageryProvider
	Alpha    float64
	Show     bool
}

// ImageryLayerCollection is the ordered layer stack; index 0 is the base layer.
type ImageryLayerCollection interface {
	Add(l *ImageryLayer)
	Remove(l *ImageryLayer) bool
	// Raise moves l one position up the stack.
	Raise(l *ImageryLayer)
	// Lower moves l one position down the stack.
	Lower(l *ImageryLayer)
	IndexOf(l *ImageryLayer) int
	Len() int
	Get(i int) *ImageryLayer
}

// Cartesian3 is an earth-fixed position in meters.
type Cartesian3 struct {
	X, Y, Z float64
}

// Color has float channels in [0,1].
type Color struct {
	Red, Green, Blue, Alpha float64
}

// PointPrimitive is a screen-facing point marker.
type PointPrimitive struct {
	Position     Cartesian3
	Color        Color
	OutlineColor Color
	OutlineWidth float64
	PixelSize    float64
	Show         bool
	ID           any
}

// Polyline is a line through positions.
type Polyline struct {
	Positions []Cartesian3
	Width     float64
	Color     Color
	Show      bool
	ID        any
}

// Label is a text label anchored at a position.
type Label struct {
	Position  Cartesian3
	Text      string
	FillColor Color
	Show      bool
	ID        any
}

// PrimitiveCollection holds primitives of one kind.
type PrimitiveCollection[T any] interface {
	Add(p T)
	Remove(p T) bool
	Len() int
}

// Screen space event types.
const (
	LeftClick = "LEFT_CLICK"
	MouseMove = "MOUSE_MOVE"
)

// PointerEvent carries the pointer position on the ellipsoid.
type PointerEvent struct {
	Type     string
	Position Cartesian3
	Shift    bool
}

// Runtime is the engine surface used by the adapter.
type Runtime interface {
	// NewImageryProvider constructs an imagery provider. It fails for options the engine rejects.
	NewImageryProvider(opts ProviderOptions) (*ImageryProvider, error)

	ImageryLayers() ImageryLayerCollection
	Points() PrimitiveCollection[*PointPrimitive]
	Polylines() PrimitiveCollection[*Polyline]
	Labels() PrimitiveCollection[*Label]

	// Pick returns the id of the topmost shown point primitive within the pick tolerance of
	// at, or nil. It reads primitive state, so callers serialize it with their own updates.
	Pick(at Cartesian3) any

	// OnReady registers fn to run once the globe finished loading.
	OnReady(fn func())
	// OnPointer registers fn for screen space events.
	OnPointer(fn func(PointerEvent))

	Destroy()
}
