package planar

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/observer"
	"github.com/jobrunner/atlas/internal/ports/output"
)

// Marker radius in pixels at scale 1.
const baseRadius = 6.0

// layerEntry keeps the creation sequence for stable ordering of equal z-indexes.
type layerEntry struct {
	layer *Layer
	seq   uint64
}

// Adapter implements output.MapProvider on top of a planar Runtime.
type Adapter struct {
	rt Runtime

	mu        sync.Mutex
	ready     bool
	destroyed bool
	pending   []func()
	nextID    uint64
	layers    map[domain.LayerHandle]*layerEntry
	features  map[domain.PrimitiveHandle]*Feature
	events    observer.List[output.MapEvent]
}

// NewAdapter wraps rt.
func NewAdapter(rt Runtime) *Adapter {
	a := &Adapter{
		rt:       rt,
		layers:   make(map[domain.LayerHandle]*layerEntry),
		features: make(map[domain.PrimitiveHandle]*Feature),
	}
	rt.OnPointer(a.handlePointer)
	rt.OnReady(a.markReady)
	return a
}

// Engine implements output.MapProvider.
func (a *Adapter) Engine() domain.EngineKind {
	return domain.EnginePlanar
}

func (a *Adapter) markReady() {
	a.mu.Lock()
	if a.ready || a.destroyed {
		a.mu.Unlock()
		return
	}
	a.ready = true
	fns := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnReady implements output.MapProvider.
func (a *Adapter) OnReady(fn func()) {
	a.mu.Lock()
	if !a.ready {
		a.pending = append(a.pending, fn)
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()
	fn()
}

// IsReady implements output.MapProvider.
func (a *Adapter) IsReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready && !a.destroyed
}

// CreateLayer implements output.MapProvider.
func (a *Adapter) CreateLayer(spec domain.LayerSpec) (domain.LayerHandle, error) {
	opts, err := sourceOptions(spec)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownLayerType) {
			return 0, err
		}
		return 0, &domain.LayerInitError{Type: spec.Type, Order: spec.StackOrder(), Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return 0, domain.ErrEngineDestroyed
	}

	src, err := a.rt.NewSource(opts)
	if err != nil {
		return 0, &domain.LayerInitError{Type: spec.Type, Order: spec.StackOrder(), Err: err}
	}

	l := &Layer{
		Source:  src,
		Opacity: spec.Alpha,
		Visible: spec.Show,
		ZIndex:  spec.StackOrder(),
	}
	a.rt.AddLayer(l)

	a.nextID++
	h := domain.LayerHandle(a.nextID)
	a.layers[h] = &layerEntry{layer: l, seq: a.nextID}
	return h, nil
}

func (a *Adapter) layer(h domain.LayerHandle) (*Layer, error) {
	if a.destroyed {
		return nil, domain.ErrEngineDestroyed
	}
	e, ok := a.layers[h]
	if !ok {
		return nil, fmt.Errorf("layer handle %d: %w", h, domain.ErrLayerNotFound)
	}
	return e.layer, nil
}

// SetAlpha implements output.MapProvider.
func (a *Adapter) SetAlpha(h domain.LayerHandle, alpha float64) error {
	if alpha < 0 || alpha > 1 {
		return &domain.ValidationError{Field: "alpha", Value: alpha, Constraint: "[0, 1]", Message: "alpha must be between 0 and 1"}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	l, err := a.layer(h)
	if err != nil {
		return err
	}
	l.Opacity = alpha
	return nil
}

// SetVisible implements output.MapProvider.
func (a *Adapter) SetVisible(h domain.LayerHandle, show bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, err := a.layer(h)
	if err != nil {
		return err
	}
	l.Visible = show
	return nil
}

// Reindex implements output.MapProvider by assigning every layer its position as z-index.
func (a *Adapter) Reindex(order []domain.LayerHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return domain.ErrEngineDestroyed
	}
	if err := checkPermutation(order, len(a.layers), func(h domain.LayerHandle) bool {
		_, ok := a.layers[h]
		return ok
	}); err != nil {
		return err
	}

	for i, h := range order {
		a.layers[h].layer.ZIndex = i
	}
	return nil
}

func checkPermutation(order []domain.LayerHandle, n int, known func(domain.LayerHandle) bool) error {
	if len(order) != n {
		return &domain.ValidationError{
			Field:      "order",
			Value:      len(order),
			Constraint: fmt.Sprintf("%d layers", n),
			Message:    "order must list every layer exactly once",
		}
	}
	seen := make(map[domain.LayerHandle]bool, n)
	for _, h := range order {
		if !known(h) {
			return fmt.Errorf("layer handle %d: %w", h, domain.ErrLayerNotFound)
		}
		if seen[h] {
			return &domain.ValidationError{
				Field:      "order",
				Value:      h,
				Constraint: "unique",
				Message:    "layer listed twice",
			}
		}
		seen[h] = true
	}
	return nil
}

// LayerOrder implements output.MapProvider.
func (a *Adapter) LayerOrder() []domain.LayerHandle {
	a.mu.Lock()
	defer a.mu.Unlock()

	hs := make([]domain.LayerHandle, 0, len(a.layers))
	for h := range a.layers {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool {
		li, lj := a.layers[hs[i]], a.layers[hs[j]]
		if li.layer.ZIndex != lj.layer.ZIndex {
			return li.layer.ZIndex < lj.layer.ZIndex
		}
		return li.seq < lj.seq
	})
	return hs
}

// RemoveLayer implements output.MapProvider.
func (a *Adapter) RemoveLayer(h domain.LayerHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, err := a.layer(h)
	if err != nil {
		return err
	}
	a.rt.RemoveLayer(l)
	delete(a.layers, h)
	return nil
}

// AddPrimitive implements output.MapProvider.
func (a *Adapter) AddPrimitive(p domain.Primitive, tag domain.Tag, style domain.Style) (domain.PrimitiveHandle, error) {
	if len(p.Coords) == 0 {
		return 0, &domain.ValidationError{Field: "coords", Constraint: "non-empty", Message: "primitive has no coordinates"}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return 0, domain.ErrEngineDestroyed
	}
	if !a.ready {
		return 0, domain.ErrNotReady
	}

	f := &Feature{
		Geometry: featureGeometry(p),
		Style:    featureStyle(p.Kind, style),
		Properties: map[string]any{
			"ids":   append([]string(nil), tag.IDs...),
			"color": tag.Color.Hex(),
		},
	}
	a.nextID++
	f.ID = a.nextID
	a.rt.AddFeature(f)

	h := domain.PrimitiveHandle(f.ID)
	a.features[h] = f
	return h, nil
}

func featureGeometry(p domain.Primitive) FeatureGeometry {
	coords := make([][2]float64, 0, len(p.Coords))
	for _, c := range p.Coords {
		coords = append(coords, Project(c.Lon, c.Lat))
	}

	switch {
	case p.Kind == domain.PrimitivePoint:
		return FeatureGeometry{Type: GeometryPoint, Coords: coords[:1]}
	case p.Closed:
		return FeatureGeometry{Type: GeometryLinearRing, Coords: coords}
	default:
		return FeatureGeometry{Type: GeometryLineString, Coords: coords}
	}
}

func featureStyle(kind domain.PrimitiveKind, s domain.Style) FeatureStyle {
	fs := FeatureStyle{
		Stroke:      cssColor(s.Outline),
		StrokeWidth: s.Width,
		Visible:     s.Show,
	}
	if kind == domain.PrimitivePoint {
		fs.Fill = cssColor(s.Fill)
		fs.Radius = baseRadius * s.Scale
		fs.Text = s.Label
		fs.TextFill = cssColor(s.Text)
		// Point outlines are drawn as a thin ring around the marker.
		fs.StrokeWidth = s.Width / 2
	} else {
		// Lines are stroked in the fill color; the outline color has no meaning for them.
		fs.Stroke = cssColor(s.Fill)
	}
	return fs
}

func cssColor(c domain.Color) string {
	return fmt.Sprintf("rgba(%d,%d,%d,%.3g)", c.R, c.G, c.B, float64(c.A)/255)
}

func (a *Adapter) feature(h domain.PrimitiveHandle, op string) (*Feature, error) {
	if a.destroyed {
		return nil, domain.ErrEngineDestroyed
	}
	f, ok := a.features[h]
	if !ok {
		return nil, &domain.StaleHandleError{Operation: op}
	}
	return f, nil
}

// SetStyle implements output.MapProvider.
func (a *Adapter) SetStyle(h domain.PrimitiveHandle, style domain.Style) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := a.feature(h, "set style")
	if err != nil {
		return err
	}
	kind := domain.PrimitiveLine
	if f.Geometry.Type == GeometryPoint {
		kind = domain.PrimitivePoint
	}
	f.Style = featureStyle(kind, style)
	a.rt.Changed(f)
	return nil
}

// SetShow implements output.MapProvider.
func (a *Adapter) SetShow(h domain.PrimitiveHandle, show bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := a.feature(h, "set show")
	if err != nil {
		return err
	}
	f.Style.Visible = show
	a.rt.Changed(f)
	return nil
}

// RemovePrimitive implements output.MapProvider.
func (a *Adapter) RemovePrimitive(h domain.PrimitiveHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := a.feature(h, "remove")
	if err != nil {
		return err
	}
	a.rt.RemoveFeature(f)
	delete(a.features, h)
	return nil
}

// PrimitiveCount implements output.MapProvider.
func (a *Adapter) PrimitiveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.features)
}

// Subscribe implements output.MapProvider.
func (a *Adapter) Subscribe(fn func(output.MapEvent)) func() {
	return a.events.Subscribe(fn)
}

func (a *Adapter) handlePointer(ev PointerEvent) {
	var kind output.EventKind
	switch ev.Type {
	case PointerSingleClick:
		kind = output.EventClick
	case PointerMove:
		kind = output.EventHover
	default:
		return
	}

	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	var ids []string
	for _, f := range a.rt.FeaturesAt(ev.Coordinate) {
		if v, ok := f.Properties["ids"].([]string); ok && len(v) > 0 {
			ids = append([]string(nil), v...)
			break
		}
	}
	a.mu.Unlock()

	a.events.Notify(output.MapEvent{Kind: kind, IDs: ids, Additive: ev.ShiftKey})
}

// Destroy implements output.MapProvider.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return
	}
	a.destroyed = true
	for _, f := range a.features {
		a.rt.RemoveFeature(f)
	}
	for _, e := range a.layers {
		a.rt.RemoveLayer(e.layer)
	}
	a.features = make(map[domain.PrimitiveHandle]*Feature)
	a.layers = make(map[domain.LayerHandle]*layerEntry)
	a.pending = nil
	a.rt.Dispose()
}

var _ output.MapProvider = (*Adapter)(nil)
