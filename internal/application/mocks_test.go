package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/ports/output"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockLayer struct {
	spec  domain.LayerSpec
	alpha float64
	show  bool
}

type mockPrimitive struct {
	prim  domain.Primitive
	tag   domain.Tag
	style domain.Style
}

// mockProvider implements output.MapProvider and records the scene.
type mockProvider struct {
	mu        sync.Mutex
	engine    domain.EngineKind
	ready     bool
	destroyed bool
	readyFns  []func()
	events    []func(output.MapEvent)

	nextID  uint64
	layers  map[domain.LayerHandle]*mockLayer
	order   []domain.LayerHandle
	prims   map[domain.PrimitiveHandle]*mockPrimitive
	created int
	removed int
	styled  int

	failLayers map[string]error
	failAdd    func(p domain.Primitive) error
}

func newMockProvider(ready bool) *mockProvider {
	return &mockProvider{
		engine: domain.EnginePlanar,
		ready:  ready,
		layers: make(map[domain.LayerHandle]*mockLayer),
		prims:  make(map[domain.PrimitiveHandle]*mockPrimitive),
	}
}

func (m *mockProvider) Engine() domain.EngineKind { return m.engine }

func (m *mockProvider) OnReady(fn func()) {
	m.mu.Lock()
	if !m.ready {
		m.readyFns = append(m.readyFns, fn)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	fn()
}

func (m *mockProvider) markReady() {
	m.mu.Lock()
	m.ready = true
	fns := m.readyFns
	m.readyFns = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *mockProvider) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready && !m.destroyed
}

func (m *mockProvider) CreateLayer(spec domain.LayerSpec) (domain.LayerHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failLayers[spec.NormalizedType()]; ok {
		return 0, err
	}
	m.nextID++
	h := domain.LayerHandle(m.nextID)
	m.layers[h] = &mockLayer{spec: spec, alpha: spec.Alpha, show: spec.Show}
	m.order = append(m.order, h)
	return h, nil
}

func (m *mockProvider) SetAlpha(h domain.LayerHandle, alpha float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.layers[h]
	if !ok {
		return domain.ErrLayerNotFound
	}
	l.alpha = alpha
	return nil
}

func (m *mockProvider) SetVisible(h domain.LayerHandle, show bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.layers[h]
	if !ok {
		return domain.ErrLayerNotFound
	}
	l.show = show
	return nil
}

func (m *mockProvider) Reindex(order []domain.LayerHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(order) != len(m.layers) {
		return domain.ErrInvalidInput
	}
	for _, h := range order {
		if _, ok := m.layers[h]; !ok {
			return domain.ErrLayerNotFound
		}
	}
	m.order = slices.Clone(order)
	return nil
}

func (m *mockProvider) LayerOrder() []domain.LayerHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}

func (m *mockProvider) RemoveLayer(h domain.LayerHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[h]; !ok {
		return domain.ErrLayerNotFound
	}
	delete(m.layers, h)
	m.order = slices.DeleteFunc(m.order, func(x domain.LayerHandle) bool { return x == h })
	return nil
}

func (m *mockProvider) AddPrimitive(p domain.Primitive, tag domain.Tag, style domain.Style) (domain.PrimitiveHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return 0, domain.ErrNotReady
	}
	if m.failAdd != nil {
		if err := m.failAdd(p); err != nil {
			return 0, err
		}
	}
	m.nextID++
	h := domain.PrimitiveHandle(m.nextID)
	m.prims[h] = &mockPrimitive{prim: p, tag: tag, style: style}
	m.created++
	return h, nil
}

func (m *mockProvider) SetStyle(h domain.PrimitiveHandle, style domain.Style) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prims[h]
	if !ok {
		return &domain.StaleHandleError{Operation: "style"}
	}
	p.style = style
	m.styled++
	return nil
}

func (m *mockProvider) SetShow(h domain.PrimitiveHandle, show bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prims[h]
	if !ok {
		return &domain.StaleHandleError{Operation: "show"}
	}
	p.style.Show = show
	return nil
}

func (m *mockProvider) RemovePrimitive(h domain.PrimitiveHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prims[h]; !ok {
		return &domain.StaleHandleError{Operation: "remove"}
	}
	delete(m.prims, h)
	m.removed++
	return nil
}

func (m *mockProvider) PrimitiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prims)
}

func (m *mockProvider) Subscribe(fn func(output.MapEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, fn)
	idx := len(m.events) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.events[idx] = nil
	}
}

func (m *mockProvider) emit(ev output.MapEvent) {
	m.mu.Lock()
	fns := slices.Clone(m.events)
	m.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn(ev)
		}
	}
}

func (m *mockProvider) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = true
	clear(m.prims)
}

func (m *mockProvider) primitive(h domain.PrimitiveHandle) (*mockPrimitive, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prims[h]
	return p, ok
}

// primitivesFor returns the live primitives tagged with exactly ids.
func (m *mockProvider) primitivesFor(ids ...string) []*mockPrimitive {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*mockPrimitive
	for _, p := range m.prims {
		if slices.Equal(p.tag.IDs, ids) {
			out = append(out, p)
		}
	}
	return out
}

// mockStorage implements output.ObjectStorage for testing.
type mockStorage struct {
	objects map[string][]byte
	listErr error
	getErr  map[string]error
}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]output.StorageObject, 0, len(keys))
	for _, k := range keys {
		out = append(out, output.StorageObject{Key: k, Size: int64(len(m.objects[k]))})
	}
	return out, nil
}

func (m *mockStorage) Download(_ context.Context, _, _ string) error {
	return errors.New("not supported")
}

func (m *mockStorage) GetReader(_ context.Context, key string) (io.ReadCloser, error) {
	if err, ok := m.getErr[key]; ok {
		return nil, err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

// mockDecoder reads each document as whitespace separated result ids.
type mockDecoder struct {
	fail map[string]error
}

func (m *mockDecoder) Decode(data []byte) ([]*domain.Result, error) {
	if err, ok := m.fail[string(data)]; ok {
		return nil, err
	}
	var out []*domain.Result
	for _, id := range bytes.Fields(data) {
		out = append(out, pointResult(string(id), 0, 0))
	}
	return out, nil
}

// mockSource implements output.ResultSource for testing.
type mockSource struct {
	name    string
	results []*domain.Result
	err     error
	calls   int
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Load(_ context.Context) ([]*domain.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

var testColor = domain.MustParseColor("#3388ff")

func pointResult(id string, lon, lat float64) *domain.Result {
	return &domain.Result{
		ID:       id,
		Geometry: domain.NewPoint(domain.NewCoordinate(lon, lat)),
		Color:    testColor,
	}
}
