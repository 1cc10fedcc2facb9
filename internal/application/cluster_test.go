package application

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/results"
)

type clusterFixture struct {
	provider  *mockProvider
	active    *results.ActiveSet
	selection *results.Selection
	sync      *SelectionSynchronizer
	engine    *ClusterEngine
}

func newClusterFixture(threshold float64, rs ...*domain.Result) *clusterFixture {
	provider := newMockProvider(true)
	active := results.NewActiveSet(rs...)
	selection := results.NewSelection()
	renderer := NewGeometryRenderer(provider, nil, testLogger(), true)
	sync := NewSelectionSynchronizer(renderer, active, selection, nil, testLogger())
	engine := NewClusterEngine(renderer, sync, active, selection, ClusterOptions{
		Enabled:         true,
		ThresholdMeters: threshold,
	}, nil, testLogger())
	return &clusterFixture{
		provider:  provider,
		active:    active,
		selection: selection,
		sync:      sync,
		engine:    engine,
	}
}

func (f *clusterFixture) recompute(t *testing.T) {
	t.Helper()
	if err := f.engine.Recompute(context.Background(), f.active.Results(), f.engine.Threshold()); err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
}

func TestClusterCoincidentPoints(t *testing.T) {
	f := newClusterFixture(10,
		pointResult("a", 13.5, 52.25),
		pointResult("b", 13.5, 52.25),
		pointResult("c", 13.5, 52.25),
	)
	f.recompute(t)

	clusters := f.engine.Clusters()
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	c := clusters[0]
	if !slices.Equal(c.Members, []string{"a", "b", "c"}) {
		t.Errorf("Members = %v", c.Members)
	}
	if c.Centroid.Lon != 13.5 || c.Centroid.Lat != 52.25 {
		t.Errorf("Centroid = %v, want the shared point", c.Centroid)
	}
	if c.HasHull() {
		t.Error("a single distinct point should not draw a hull")
	}
	if got := f.sync.TrackedIDs(); len(got) != 0 {
		t.Errorf("clustered results rendered individually: %v", got)
	}
	if f.provider.PrimitiveCount() != 1 {
		t.Errorf("PrimitiveCount() = %d, want 1 marker", f.provider.PrimitiveCount())
	}

	marker, _ := f.provider.primitive(c.marker)
	if marker.style.Label != "3" {
		t.Errorf("marker label = %q, want 3", marker.style.Label)
	}
	if !slices.Equal(marker.tag.IDs, []string{"a", "b", "c"}) {
		t.Errorf("marker tag = %v", marker.tag.IDs)
	}
}

func TestClusterTwoPointsDrawOpenSegment(t *testing.T) {
	f := newClusterFixture(200, pointResult("a", 0, 0), pointResult("b", 0, 0.001))
	f.recompute(t)

	clusters := f.engine.Clusters()
	if len(clusters) != 1 || !clusters[0].HasHull() {
		t.Fatalf("want one cluster with a hull, got %d", len(clusters))
	}
	hull, _ := f.provider.primitive(clusters[0].hull)
	if hull.prim.Closed || len(hull.prim.Coords) != 2 {
		t.Errorf("hull = %d coords closed=%v, want open segment", len(hull.prim.Coords), hull.prim.Closed)
	}
	if hull.style.Show {
		t.Error("hull should start hidden")
	}
}

func TestClusterSingletonsRenderIndividually(t *testing.T) {
	f := newClusterFixture(100,
		pointResult("a", 8, 50),
		pointResult("far", 9, 51),
		pointResult("b", 8, 50),
		&domain.Result{ID: "nogeom", Color: testColor},
	)
	f.recompute(t)

	if len(f.engine.Clusters()) != 1 {
		t.Fatalf("got %d clusters, want 1", len(f.engine.Clusters()))
	}
	if got := f.sync.TrackedIDs(); !slices.Equal(got, []string{"far"}) {
		t.Errorf("TrackedIDs() = %v, want [far]", got)
	}
	if !f.engine.IsClustered("a") || f.engine.IsClustered("far") {
		t.Error("IsClustered() mismatch")
	}
}

func TestClusterHover(t *testing.T) {
	f := newClusterFixture(1000,
		pointResult("a", 8, 50),
		pointResult("b", 8.001, 50),
		pointResult("c", 8, 50.001),
		pointResult("far", 9, 51),
	)
	f.recompute(t)

	c := f.engine.Clusters()[0]
	if !c.HasHull() {
		t.Fatal("triangle cluster should have a hull")
	}
	hull, _ := f.provider.primitive(c.hull)
	if !hull.prim.Closed || len(hull.prim.Coords) != 4 {
		t.Errorf("hull = %d coords closed=%v, want closed triangle", len(hull.prim.Coords), hull.prim.Closed)
	}

	steps := []struct {
		hover string
		want  bool
	}{
		{"b", true},
		{"far", false},
		{"c", true},
		{"", false},
	}
	for _, s := range steps {
		f.engine.HandleHover(s.hover)
		hull, _ := f.provider.primitive(c.hull)
		if hull.style.Show != s.want || c.HullVisible() != s.want {
			t.Errorf("hover %q: hull shown = %v, want %v", s.hover, hull.style.Show, s.want)
		}
	}
}

func TestClusterSelectionStates(t *testing.T) {
	f := newClusterFixture(10, pointResult("a", 8, 50), pointResult("b", 8, 50))
	f.recompute(t)
	c := f.engine.Clusters()[0]

	tests := []struct {
		selected    []string
		wantState   domain.SelectionState
		wantFill    domain.Color
		wantOutline domain.Color
		wantText    domain.Color
	}{
		{nil, domain.SelectionNone, testColor, domain.White, domain.White},
		{[]string{"a"}, domain.SelectionPartial, testColor, domain.Black, domain.White},
		{[]string{"a", "b"}, domain.SelectionFull, DefaultEmphasisColor, domain.Black, domain.Black},
		{[]string{"b"}, domain.SelectionPartial, testColor, domain.Black, domain.White},
		{[]string{"other"}, domain.SelectionNone, testColor, domain.White, domain.White},
	}

	for _, tt := range tests {
		f.selection.Reset(tt.selected...)
		if err := f.engine.OnSelectionChanged(); err != nil {
			t.Fatalf("OnSelectionChanged() error = %v", err)
		}
		marker, _ := f.provider.primitive(c.marker)
		if c.State() != tt.wantState {
			t.Errorf("selected %v: state = %v, want %v", tt.selected, c.State(), tt.wantState)
		}
		if marker.style.Fill != tt.wantFill || marker.style.Outline != tt.wantOutline || marker.style.Text != tt.wantText {
			t.Errorf("selected %v: style = %+v", tt.selected, marker.style)
		}
	}
}

func TestClusterToggleActive(t *testing.T) {
	f := newClusterFixture(10, pointResult("a", 8, 50), pointResult("b", 8, 50), pointResult("c", 9, 51))
	f.recompute(t)
	ctx := context.Background()

	if err := f.engine.ToggleActive(ctx, false); err != nil {
		t.Fatalf("ToggleActive(false) error = %v", err)
	}
	if len(f.engine.Clusters()) != 0 {
		t.Error("clusters should be disposed")
	}
	if got := f.sync.TrackedIDs(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("TrackedIDs() = %v, want all results", got)
	}
	if f.provider.PrimitiveCount() != 3 {
		t.Errorf("PrimitiveCount() = %d, want 3", f.provider.PrimitiveCount())
	}

	if err := f.engine.ToggleActive(ctx, true); err != nil {
		t.Fatalf("ToggleActive(true) error = %v", err)
	}
	if len(f.engine.Clusters()) != 1 {
		t.Errorf("got %d clusters, want 1", len(f.engine.Clusters()))
	}
	if got := f.sync.TrackedIDs(); !slices.Equal(got, []string{"c"}) {
		t.Errorf("TrackedIDs() = %v, want [c]", got)
	}
	if f.provider.PrimitiveCount() != 2 {
		t.Errorf("PrimitiveCount() = %d, want marker plus c", f.provider.PrimitiveCount())
	}
}

func TestClusterRecomputeCancelled(t *testing.T) {
	f := newClusterFixture(10, pointResult("a", 8, 50), pointResult("b", 8, 50))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.engine.Recompute(ctx, f.active.Results(), 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Recompute() error = %v, want context.Canceled", err)
	}
	if len(f.engine.Clusters()) != 0 {
		t.Error("cancelled recompute should leave no clusters")
	}
	if got := f.sync.TrackedIDs(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("TrackedIDs() = %v, want every result rendered individually", got)
	}
	if f.provider.PrimitiveCount() != 2 {
		t.Errorf("PrimitiveCount() = %d, want 2", f.provider.PrimitiveCount())
	}
}

func TestClusterMarkerFailureFallsBack(t *testing.T) {
	f := newClusterFixture(10, pointResult("a", 8, 50), pointResult("b", 8, 50))
	calls := 0
	f.provider.failAdd = func(domain.Primitive) error {
		calls++
		if calls == 1 {
			return errors.New("marker rejected")
		}
		return nil
	}
	f.recompute(t)

	if len(f.engine.Clusters()) != 0 {
		t.Error("cluster without a marker should not be kept")
	}
	if got := f.sync.TrackedIDs(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("TrackedIDs() = %v, want [a b]", got)
	}
}

func TestRecomputeReplacesClusters(t *testing.T) {
	f := newClusterFixture(10, pointResult("a", 8, 50), pointResult("b", 8, 50))
	f.recompute(t)
	f.recompute(t)

	if len(f.engine.Clusters()) != 1 || f.provider.PrimitiveCount() != 1 {
		t.Errorf("clusters = %d, primitives = %d, want 1 and 1", len(f.engine.Clusters()), f.provider.PrimitiveCount())
	}
	if err := f.engine.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	if f.provider.PrimitiveCount() != 0 {
		t.Errorf("PrimitiveCount() = %d after teardown, want 0", f.provider.PrimitiveCount())
	}
}
