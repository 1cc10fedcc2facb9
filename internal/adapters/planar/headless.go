package planar

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// DefaultHitTolerance is the pick radius in projected meters.
const DefaultHitTolerance = 50.0

// Headless is an in-memory Runtime. It keeps layers and features, validates sources the way
// the engine constructors do, and hit-tests point features for simulated pointer input.
type Headless struct {
	mu        sync.Mutex
	ready     bool
	disposed  bool
	onReady   []func()
	onPointer []func(PointerEvent)
	layers    []*Layer
	features  []*Feature
	tolerance float64
}

// NewHeadless creates a headless runtime. The runtime is not ready until MarkReady is called.
func NewHeadless() *Headless {
	return &Headless{tolerance: DefaultHitTolerance}
}

// SetHitTolerance changes the pick radius in projected meters.
func (h *Headless) SetHitTolerance(m float64) {
	h.mu.Lock()
	h.tolerance = m
	h.mu.Unlock()
}

// NewSource implements Runtime.
func (h *Headless) NewSource(opts SourceOptions) (*Source, error) {
	switch opts.Kind {
	case SourceOSM:
		if opts.URL != "" {
			if err := checkURL(opts.URL); err != nil {
				return nil, err
			}
		}
	case SourceXYZ, SourceTileArcGISRest:
		if err := checkURL(opts.URL); err != nil {
			return nil, err
		}
	case SourceTileWMS:
		if err := checkURL(opts.URL); err != nil {
			return nil, err
		}
		if opts.Params["LAYERS"] == "" {
			return nil, errors.New("TileWMS requires the LAYERS param")
		}
	case SourceWMTS:
		if err := checkURL(opts.URL); err != nil {
			return nil, err
		}
		if opts.Layer == "" || opts.MatrixSet == "" {
			return nil, errors.New("WMTS requires layer and matrixSet")
		}
	case SourceBingMaps:
		if opts.Key == "" {
			return nil, errors.New("BingMaps requires a key")
		}
	case SourceImageStatic:
		if err := checkURL(opts.URL); err != nil {
			return nil, err
		}
		e := opts.ImageExtent
		if !(e[2] > e[0] && e[3] > e[1]) {
			return nil, fmt.Errorf("ImageStatic requires a non-empty imageExtent, got %v", e)
		}
	default:
		return nil, fmt.Errorf("unsupported source %q", opts.Kind)
	}
	if opts.Projection == "" {
		opts.Projection = Projection
	}
	return &Source{Options: opts}, nil
}

func checkURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	// Template placeholders are not valid URL characters.
	u, err := url.Parse(strings.NewReplacer("{", "", "}", "").Replace(raw))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}

// AddLayer implements Runtime.
func (h *Headless) AddLayer(l *Layer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layers = append(h.layers, l)
}

// RemoveLayer implements Runtime.
func (h *Headless) RemoveLayer(l *Layer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, x := range h.layers {
		if x == l {
			h.layers = append(h.layers[:i], h.layers[i+1:]...)
			return
		}
	}
}

// AddFeature implements Runtime.
func (h *Headless) AddFeature(f *Feature) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.features = append(h.features, f)
}

// RemoveFeature implements Runtime.
func (h *Headless) RemoveFeature(f *Feature) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, x := range h.features {
		if x == f {
			h.features = append(h.features[:i], h.features[i+1:]...)
			return
		}
	}
}

// Changed implements Runtime.
func (h *Headless) Changed(*Feature) {}

// OnReady implements Runtime.
func (h *Headless) OnReady(fn func()) {
	h.mu.Lock()
	if !h.ready {
		h.onReady = append(h.onReady, fn)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	fn()
}

// OnPointer implements Runtime.
func (h *Headless) OnPointer(fn func(PointerEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPointer = append(h.onPointer, fn)
}

// Dispose implements Runtime.
func (h *Headless) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposed = true
	h.layers = nil
	h.features = nil
	h.onPointer = nil
	h.onReady = nil
}

// MarkReady signals that the first render completed.
func (h *Headless) MarkReady() {
	h.mu.Lock()
	if h.ready || h.disposed {
		h.mu.Unlock()
		return
	}
	h.ready = true
	fns := h.onReady
	h.onReady = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Layers returns the layers sorted by z-index, in insertion order for equal indexes.
func (h *Headless) Layers() []*Layer {
	h.mu.Lock()
	out := make([]*Layer, len(h.layers))
	copy(out, h.layers)
	h.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// Features returns the features in insertion order.
func (h *Headless) Features() []*Feature {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Feature, len(h.features))
	copy(out, h.features)
	return out
}

// Disposed reports whether Dispose was called.
func (h *Headless) Disposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}

// Click simulates a single click at a WGS84 position.
func (h *Headless) Click(lon, lat float64, shift bool) {
	h.dispatch(PointerSingleClick, lon, lat, shift)
}

// Hover simulates a pointer move to a WGS84 position.
func (h *Headless) Hover(lon, lat float64) {
	h.dispatch(PointerMove, lon, lat, false)
}

func (h *Headless) dispatch(typ string, lon, lat float64, shift bool) {
	ev := PointerEvent{Type: typ, Coordinate: Project(lon, lat), ShiftKey: shift}

	h.mu.Lock()
	fns := make([]func(PointerEvent), len(h.onPointer))
	copy(fns, h.onPointer)
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// FeaturesAt implements Runtime.
func (h *Headless) FeaturesAt(at [2]float64) []*Feature {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hitTest(at)
}

// hitTest returns visible point features within tolerance, nearest and then topmost first.
// Caller holds mu.
func (h *Headless) hitTest(at [2]float64) []*Feature {
	type hit struct {
		f    *Feature
		d    float64
		rank int
	}
	var hits []hit
	for i, f := range h.features {
		if !f.Style.Visible || f.Geometry.Type != GeometryPoint || len(f.Geometry.Coords) == 0 {
			continue
		}
		p := f.Geometry.Coords[0]
		d := math.Hypot(p[0]-at[0], p[1]-at[1])
		if d <= h.tolerance {
			hits = append(hits, hit{f: f, d: d, rank: -i})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].d != hits[j].d {
			return hits[i].d < hits[j].d
		}
		return hits[i].rank < hits[j].rank
	})

	out := make([]*Feature, 0, len(hits))
	for _, x := range hits {
		out = append(out, x.f)
	}
	return out
}
