package globe

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// DefaultPickTolerance is the pick radius in meters.
const DefaultPickTolerance = 50.0

// Headless is an in-memory Runtime.
type Headless struct {
	mu        sync.Mutex
	ready     bool
	destroyed bool
	onReady   []func()
	onPointer []func(PointerEvent)
	tolerance float64

	layers    *layerStack
	points    *collection[*PointPrimitive]
	polylines *collection[*Polyline]
	labels    *collection[*Label]
}

// NewHeadless creates a headless globe that is not ready until MarkReady is called.
func NewHeadless() *Headless {
	return &Headless{
		tolerance: DefaultPickTolerance,
		layers:    &layerStack{},
		points:    &collection[*PointPrimitive]{},
		polylines: &collection[*Polyline]{},
		labels:    &collection[*Label]{},
	}
}

// NewImageryProvider implements Runtime.
func (h *Headless) NewImageryProvider(opts ProviderOptions) (*ImageryProvider, error) {
	switch opts.Kind {
	case ProviderOpenStreetMap:
		if opts.URL != "" {
			if err := checkURL(opts.URL); err != nil {
				return nil, err
			}
		}
	case ProviderURLTemplate, ProviderArcGisMapServer, ProviderTileMapService:
		if err := checkURL(opts.URL); err != nil {
			return nil, err
		}
	case ProviderWebMapService:
		if err := checkURL(opts.URL); err != nil {
			return nil, err
		}
		if opts.Layers == "" {
			return nil, errors.New("layers is required")
		}
	case ProviderWebMapTileService:
		if err := checkURL(opts.URL); err != nil {
			return nil, err
		}
		if opts.Layer == "" || opts.TileMatrixSetID == "" {
			return nil, errors.New("layer and tileMatrixSetID are required")
		}
	case ProviderBingMaps:
		if opts.Key == "" {
			return nil, errors.New("key is required")
		}
	case ProviderSingleTile:
		if err := checkURL(opts.URL); err != nil {
			return nil, err
		}
		r := opts.Rectangle
		if !(r.East > r.West && r.North > r.South) {
			return nil, fmt.Errorf("rectangle is empty: %+v", r)
		}
	default:
		return nil, fmt.Errorf("unknown imagery provider %q", opts.Kind)
	}
	return &ImageryProvider{Options: opts}, nil
}

func checkURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(strings.NewReplacer("{", "", "}", "").Replace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("url %q is not absolute", raw)
	}
	return nil
}

// ImageryLayers implements Runtime.
func (h *Headless) ImageryLayers() ImageryLayerCollection { return h.layers }

// Points implements Runtime.
func (h *Headless) Points() PrimitiveCollection[*PointPrimitive] { return h.points }

// Polylines implements Runtime.
func (h *Headless) Polylines() PrimitiveCollection[*Polyline] { return h.polylines }

// Labels implements Runtime.
func (h *Headless) Labels() PrimitiveCollection[*Label] { return h.labels }

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

// Destroy implements Runtime.
func (h *Headless) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = true
	h.onReady = nil
	h.onPointer = nil
}

// IsDestroyed reports whether Destroy was called.
func (h *Headless) IsDestroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// MarkReady signals that the globe finished loading.
func (h *Headless) MarkReady() {
	h.mu.Lock()
	if h.ready || h.destroyed {
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

// PointList returns the live point primitives.
func (h *Headless) PointList() []*PointPrimitive { return h.points.items() }

// PolylineList returns the live polylines.
func (h *Headless) PolylineList() []*Polyline { return h.polylines.items() }

// LabelList returns the live labels.
func (h *Headless) LabelList() []*Label { return h.labels.items() }

// Click simulates a left click at a geodetic position.
func (h *Headless) Click(lon, lat float64, shift bool) {
	h.dispatch(LeftClick, lon, lat, shift)
}

// Hover simulates a mouse move to a geodetic position.
func (h *Headless) Hover(lon, lat float64) {
	h.dispatch(MouseMove, lon, lat, false)
}

func (h *Headless) dispatch(typ string, lon, lat float64, shift bool) {
	ev := PointerEvent{Type: typ, Position: FromDegrees(lon, lat, 0), Shift: shift}

	h.mu.Lock()
	fns := make([]func(PointerEvent), len(h.onPointer))
	copy(fns, h.onPointer)
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Pick implements Runtime.
func (h *Headless) Pick(at Cartesian3) any {
	h.mu.Lock()
	best := h.tolerance
	h.mu.Unlock()

	var picked any
	// Later primitives are drawn on top and win ties.
	for _, p := range h.points.items() {
		if !p.Show {
			continue
		}
		if d := Distance(p.Position, at); d <= best {
			best = d
			picked = p.ID
		}
	}
	return picked
}

// layerStack is the headless ImageryLayerCollection.
type layerStack struct {
	mu     sync.Mutex
	layers []*ImageryLayer
	moves  int
}

func (s *layerStack) Add(l *ImageryLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = append(s.layers, l)
}

func (s *layerStack) Remove(l *ImageryLayer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(l)
	if i < 0 {
		return false
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	return true
}

func (s *layerStack) Raise(l *ImageryLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(l)
	if i < 0 || i == len(s.layers)-1 {
		return
	}
	s.layers[i], s.layers[i+1] = s.layers[i+1], s.layers[i]
	s.moves++
}

func (s *layerStack) Lower(l *ImageryLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(l)
	if i <= 0 {
		return
	}
	s.layers[i], s.layers[i-1] = s.layers[i-1], s.layers[i]
	s.moves++
}

func (s *layerStack) IndexOf(l *ImageryLayer) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(l)
}

func (s *layerStack) indexOf(l *ImageryLayer) int {
	for i, x := range s.layers {
		if x == l {
			return i
		}
	}
	return -1
}

func (s *layerStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.layers)
}

func (s *layerStack) Get(i int) *ImageryLayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.layers) {
		return nil
	}
	return s.layers[i]
}

// Moves returns how many single-step raise/lower operations were applied.
func (h *Headless) Moves() int {
	h.layers.mu.Lock()
	defer h.layers.mu.Unlock()
	return h.layers.moves
}

// collection is the headless PrimitiveCollection.
type collection[T comparable] struct {
	mu   sync.Mutex
	list []T
}

func (c *collection[T]) Add(p T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = append(c.list, p)
}

func (c *collection[T]) Remove(p T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.list {
		if x == p {
			c.list = append(c.list[:i], c.list[i+1:]...)
			return true
		}
	}
	return false
}

func (c *collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.list)
}

func (c *collection[T]) items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.list))
	copy(out, c.list)
	return out
}
