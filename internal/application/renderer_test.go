package application

import (
	"errors"
	"testing"

	"github.com/jobrunner/atlas/internal/domain"
)

func square() []domain.Coordinate {
	return []domain.Coordinate{
		domain.NewCoordinate(0, 0),
		domain.NewCoordinate(1, 0),
		domain.NewCoordinate(1, 1),
		domain.NewCoordinate(0, 1),
	}
}

func TestRenderShapes(t *testing.T) {
	tests := []struct {
		name       string
		geometry   *domain.Geometry
		wantPoints int
		wantLines  int
	}{
		{"no geometry", nil, 0, 0},
		{"point", domain.NewPoint(domain.NewCoordinate(8, 50)), 1, 0},
		{"line", domain.NewLineString(square()...), 1, 1},
		{"polygon", domain.NewPolygon(square()), 1, 1},
		{"polygon with hole", domain.NewPolygon(square(), square()), 2, 2},
		{"multipoint", domain.NewMultiPoint(square()...), 4, 0},
		{"unknown type", &domain.Geometry{Type: "Curve"}, 0, 0},
		{
			"collection",
			domain.NewCollection(
				*domain.NewPoint(domain.NewCoordinate(1, 1)),
				*domain.NewPolygon(square()),
			),
			2, 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newMockProvider(true)
			r := NewGeometryRenderer(provider, nil, testLogger(), false)

			set, err := r.Render(&domain.Result{ID: "a", Geometry: tt.geometry, Color: testColor})
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			points, lines := set.Shape()
			if points != tt.wantPoints || lines != tt.wantLines {
				t.Errorf("Shape() = (%d, %d), want (%d, %d)", points, lines, tt.wantPoints, tt.wantLines)
			}
			if provider.PrimitiveCount() != set.Len() {
				t.Errorf("provider has %d primitives, set has %d", provider.PrimitiveCount(), set.Len())
			}
		})
	}
}

func TestRenderPolygonRingIsClosed(t *testing.T) {
	provider := newMockProvider(true)
	r := NewGeometryRenderer(provider, nil, testLogger(), false)

	set, err := r.Render(&domain.Result{ID: "a", Geometry: domain.NewPolygon(square()), Color: testColor})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	line, ok := provider.primitive(set.Lines[0])
	if !ok {
		t.Fatal("line primitive missing")
	}
	if len(line.prim.Coords) != 5 {
		t.Errorf("ring has %d vertices, want 5", len(line.prim.Coords))
	}
	if !line.prim.Closed {
		t.Error("ring should be closed")
	}
	if got := line.tag.IDs; len(got) != 1 || got[0] != "a" {
		t.Errorf("tag ids = %v, want [a]", got)
	}
}

func TestRenderDisposeRenderIsIdempotent(t *testing.T) {
	provider := newMockProvider(true)
	r := NewGeometryRenderer(provider, nil, testLogger(), false)
	res := &domain.Result{ID: "a", Geometry: domain.NewMultiPolygon([][]domain.Coordinate{square()}, [][]domain.Coordinate{square()}), Color: testColor}

	first, err := r.Render(res)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := r.Dispose(first); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	if provider.PrimitiveCount() != 0 {
		t.Fatalf("primitives after dispose = %d, want 0", provider.PrimitiveCount())
	}

	second, err := r.Render(res)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	p1, l1 := first.Shape()
	p2, l2 := second.Shape()
	if p1 != p2 || l1 != l2 {
		t.Errorf("shape changed: (%d, %d) then (%d, %d)", p1, l1, p2, l2)
	}
	if provider.PrimitiveCount() != second.Len() {
		t.Errorf("provider has %d primitives, want %d", provider.PrimitiveCount(), second.Len())
	}
}

func TestRestyle(t *testing.T) {
	provider := newMockProvider(true)
	r := NewGeometryRenderer(provider, nil, testLogger(), false)
	set, _ := r.Render(pointResult("a", 1, 1))

	p, _ := provider.primitive(set.Points[0])
	if p.style.Scale != domain.UnselectedScale || p.style.Outline != domain.White {
		t.Errorf("initial style = %+v, want unselected", p.style)
	}

	if err := r.Restyle(set, true); err != nil {
		t.Fatalf("Restyle() error = %v", err)
	}
	p, _ = provider.primitive(set.Points[0])
	if p.style.Scale != domain.SelectedScale || p.style.Outline != domain.Black || p.style.Fill != testColor {
		t.Errorf("selected style = %+v", p.style)
	}
	if !set.Selected() {
		t.Error("set should report selected")
	}
}

func TestRestyleKeepsVisibility(t *testing.T) {
	provider := newMockProvider(true)
	r := NewGeometryRenderer(provider, nil, testLogger(), false)
	set, _ := r.Render(pointResult("a", 1, 1))

	if err := r.Hide(set); err != nil {
		t.Fatalf("Hide() error = %v", err)
	}
	if err := r.Restyle(set, true); err != nil {
		t.Fatalf("Restyle() error = %v", err)
	}
	p, _ := provider.primitive(set.Points[0])
	if p.style.Show {
		t.Error("restyle should not show a hidden set")
	}

	if err := r.Show(set); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	p, _ = provider.primitive(set.Points[0])
	if !p.style.Show || !set.Visible() {
		t.Error("set should be visible after Show")
	}
}

func TestDisposeTwice(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		wantErr bool
	}{
		{"lenient", false, false},
		{"strict", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newMockProvider(true)
			r := NewGeometryRenderer(provider, nil, testLogger(), tt.strict)
			set, _ := r.Render(pointResult("a", 1, 1))

			if err := r.Dispose(set); err != nil {
				t.Fatalf("first Dispose() error = %v", err)
			}
			err := r.Dispose(set)
			if (err != nil) != tt.wantErr {
				t.Fatalf("second Dispose() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrStaleHandle) {
				t.Errorf("error should wrap ErrStaleHandle, got %v", err)
			}

			err = r.Restyle(set, true)
			if (err != nil) != tt.wantErr {
				t.Errorf("Restyle() on disposed set error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDisposeNil(t *testing.T) {
	r := NewGeometryRenderer(newMockProvider(true), nil, testLogger(), true)
	if err := r.Dispose(nil); err != nil {
		t.Errorf("Dispose(nil) error = %v", err)
	}
}

func TestRenderPartialFailure(t *testing.T) {
	provider := newMockProvider(true)
	provider.failAdd = func(p domain.Primitive) error {
		if p.Kind == domain.PrimitiveLine {
			return errors.New("line rejected")
		}
		return nil
	}
	r := NewGeometryRenderer(provider, nil, testLogger(), false)

	set, err := r.Render(&domain.Result{ID: "a", Geometry: domain.NewPolygon(square()), Color: testColor})
	if err == nil {
		t.Fatal("Render() should report the rejected line")
	}
	points, lines := set.Shape()
	if points != 1 || lines != 0 {
		t.Errorf("Shape() = (%d, %d), want (1, 0)", points, lines)
	}
}

func TestEraseStaleHandle(t *testing.T) {
	lenient := NewGeometryRenderer(newMockProvider(true), nil, testLogger(), false)
	if err := lenient.Erase(42, domain.PrimitivePoint); err != nil {
		t.Errorf("lenient Erase() error = %v", err)
	}

	strict := NewGeometryRenderer(newMockProvider(true), nil, testLogger(), true)
	if err := strict.Erase(42, domain.PrimitivePoint); !errors.Is(err, domain.ErrStaleHandle) {
		t.Errorf("strict Erase() error = %v, want ErrStaleHandle", err)
	}
}
