package globe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/observer"
	"github.com/jobrunner/atlas/internal/ports/output"
)

// Point size in pixels at scale 1.
const basePixelSize = 10.0

// entry is the set of engine objects behind one primitive handle.
type entry struct {
	point    *PointPrimitive
	label    *Label
	polyline *Polyline
}

// Adapter implements output.MapProvider on top of a globe Runtime.
type Adapter struct {
	rt Runtime

	mu        sync.Mutex
	ready     bool
	destroyed bool
	pending   []func()
	nextID    uint64
	layers    map[domain.LayerHandle]*ImageryLayer
	prims     map[domain.PrimitiveHandle]*entry
	events    observer.List[output.MapEvent]
}

// NewAdapter wraps rt.
func NewAdapter(rt Runtime) *Adapter {
	a := &Adapter{
		rt:     rt,
		layers: make(map[domain.LayerHandle]*ImageryLayer),
		prims:  make(map[domain.PrimitiveHandle]*entry),
	}
	rt.OnPointer(a.handlePointer)
	rt.OnReady(a.markReady)
	return a
}

// Engine implements output.MapProvider.
func (a *Adapter) Engine() domain.EngineKind {
	return domain.EngineGlobe
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
	opts, err := providerOptions(spec)
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

	provider, err := a.rt.NewImageryProvider(opts)
	if err != nil {
		return 0, &domain.LayerInitError{Type: spec.Type, Order: spec.StackOrder(), Err: err}
	}

	l := &ImageryLayer{Provider: provider, Alpha: spec.Alpha, Show: spec.Show}
	a.rt.ImageryLayers().Add(l)

	a.nextID++
	h := domain.LayerHandle(a.nextID)
	a.layers[h] = l
	return h, nil
}

func (a *Adapter) layer(h domain.LayerHandle) (*ImageryLayer, error) {
	if a.destroyed {
		return nil, domain.ErrEngineDestroyed
	}
	l, ok := a.layers[h]
	if !ok {
		return nil, fmt.Errorf("layer handle %d: %w", h, domain.ErrLayerNotFound)
	}
	return l, nil
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
	l.Alpha = alpha
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
	l.Show = show
	return nil
}

// Reindex implements output.MapProvider. Layers are moved one step at a time from the
// bottom up, so layers already in place are never touched.
func (a *Adapter) Reindex(order []domain.LayerHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return domain.ErrEngineDestroyed
	}
	if len(order) != len(a.layers) {
		return &domain.ValidationError{
			Field:      "order",
			Value:      len(order),
			Constraint: fmt.Sprintf("%d layers", len(a.layers)),
			Message:    "order must list every layer exactly once",
		}
	}
	seen := make(map[domain.LayerHandle]bool, len(order))
	for _, h := range order {
		if _, ok := a.layers[h]; !ok {
			return fmt.Errorf("layer handle %d: %w", h, domain.ErrLayerNotFound)
		}
		if seen[h] {
			return &domain.ValidationError{Field: "order", Value: h, Constraint: "unique", Message: "layer listed twice"}
		}
		seen[h] = true
	}

	stack := a.rt.ImageryLayers()
	for target, h := range order {
		l := a.layers[h]
		for i := stack.IndexOf(l); i > target; i-- {
			stack.Lower(l)
		}
		for i := stack.IndexOf(l); i < target; i++ {
			stack.Raise(l)
		}
	}
	return nil
}

// LayerOrder implements output.MapProvider.
func (a *Adapter) LayerOrder() []domain.LayerHandle {
	a.mu.Lock()
	defer a.mu.Unlock()

	byLayer := make(map[*ImageryLayer]domain.LayerHandle, len(a.layers))
	for h, l := range a.layers {
		byLayer[l] = h
	}

	stack := a.rt.ImageryLayers()
	out := make([]domain.LayerHandle, 0, len(a.layers))
	for i := 0; i < stack.Len(); i++ {
		if h, ok := byLayer[stack.Get(i)]; ok {
			out = append(out, h)
		}
	}
	return out
}

// RemoveLayer implements output.MapProvider.
func (a *Adapter) RemoveLayer(h domain.LayerHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, err := a.layer(h)
	if err != nil {
		return err
	}
	a.rt.ImageryLayers().Remove(l)
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

	id := domain.Tag{IDs: append([]string(nil), tag.IDs...), Color: tag.Color}
	e := &entry{}

	switch p.Kind {
	case domain.PrimitivePoint:
		c := p.Coords[0]
		e.point = &PointPrimitive{Position: FromDegrees(c.Lon, c.Lat, c.Alt), ID: id}
		applyPointStyle(e.point, style)
		a.rt.Points().Add(e.point)
		if style.Label != "" {
			e.label = &Label{Position: e.point.Position, ID: id}
			applyLabelStyle(e.label, style)
			a.rt.Labels().Add(e.label)
		}
	default:
		positions := make([]Cartesian3, 0, len(p.Coords))
		for _, c := range p.Coords {
			positions = append(positions, FromDegrees(c.Lon, c.Lat, c.Alt))
		}
		e.polyline = &Polyline{Positions: positions, ID: id}
		applyLineStyle(e.polyline, style)
		a.rt.Polylines().Add(e.polyline)
	}

	a.nextID++
	h := domain.PrimitiveHandle(a.nextID)
	a.prims[h] = e
	return h, nil
}

func toColor(c domain.Color) Color {
	return Color{
		Red:   float64(c.R) / 255,
		Green: float64(c.G) / 255,
		Blue:  float64(c.B) / 255,
		Alpha: float64(c.A) / 255,
	}
}

func applyPointStyle(p *PointPrimitive, s domain.Style) {
	p.Color = toColor(s.Fill)
	p.OutlineColor = toColor(s.Outline)
	p.OutlineWidth = s.Width / 2
	p.PixelSize = basePixelSize * s.Scale
	p.Show = s.Show
}

func applyLabelStyle(l *Label, s domain.Style) {
	l.Text = s.Label
	l.FillColor = toColor(s.Text)
	l.Show = s.Show
}

func applyLineStyle(l *Polyline, s domain.Style) {
	l.Color = toColor(s.Fill)
	l.Width = s.Width
	l.Show = s.Show
}

func (a *Adapter) entry(h domain.PrimitiveHandle, op string) (*entry, error) {
	if a.destroyed {
		return nil, domain.ErrEngineDestroyed
	}
	e, ok := a.prims[h]
	if !ok {
		return nil, &domain.StaleHandleError{Operation: op}
	}
	return e, nil
}

// SetStyle implements output.MapProvider.
func (a *Adapter) SetStyle(h domain.PrimitiveHandle, style domain.Style) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := a.entry(h, "set style")
	if err != nil {
		return err
	}

	if e.polyline != nil {
		applyLineStyle(e.polyline, style)
		return nil
	}

	applyPointStyle(e.point, style)
	switch {
	case e.label != nil:
		applyLabelStyle(e.label, style)
	case style.Label != "":
		e.label = &Label{Position: e.point.Position, ID: e.point.ID}
		applyLabelStyle(e.label, style)
		a.rt.Labels().Add(e.label)
	}
	return nil
}

// SetShow implements output.MapProvider.
func (a *Adapter) SetShow(h domain.PrimitiveHandle, show bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := a.entry(h, "set show")
	if err != nil {
		return err
	}
	if e.point != nil {
		e.point.Show = show
	}
	if e.label != nil {
		e.label.Show = show
	}
	if e.polyline != nil {
		e.polyline.Show = show
	}
	return nil
}

// RemovePrimitive implements output.MapProvider.
func (a *Adapter) RemovePrimitive(h domain.PrimitiveHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := a.entry(h, "remove")
	if err != nil {
		return err
	}
	a.release(e)
	delete(a.prims, h)
	return nil
}

func (a *Adapter) release(e *entry) {
	if e.point != nil {
		a.rt.Points().Remove(e.point)
	}
	if e.label != nil {
		a.rt.Labels().Remove(e.label)
	}
	if e.polyline != nil {
		a.rt.Polylines().Remove(e.polyline)
	}
}

// PrimitiveCount implements output.MapProvider.
func (a *Adapter) PrimitiveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.prims)
}

// Subscribe implements output.MapProvider.
func (a *Adapter) Subscribe(fn func(output.MapEvent)) func() {
	return a.events.Subscribe(fn)
}

func (a *Adapter) handlePointer(ev PointerEvent) {
	var kind output.EventKind
	switch ev.Type {
	case LeftClick:
		kind = output.EventClick
	case MouseMove:
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
	if tag, ok := a.rt.Pick(ev.Position).(domain.Tag); ok && len(tag.IDs) > 0 {
		ids = append([]string(nil), tag.IDs...)
	}
	a.mu.Unlock()

	a.events.Notify(output.MapEvent{Kind: kind, IDs: ids, Additive: ev.Shift})
}

// Destroy implements output.MapProvider.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return
	}
	a.destroyed = true
	for _, e := range a.prims {
		a.release(e)
	}
	stack := a.rt.ImageryLayers()
	for _, l := range a.layers {
		stack.Remove(l)
	}
	a.prims = make(map[domain.PrimitiveHandle]*entry)
	a.layers = make(map[domain.LayerHandle]*ImageryLayer)
	a.pending = nil
	a.rt.Destroy()
}

var _ output.MapProvider = (*Adapter)(nil)
