package application

import (
	"context"
	"errors"
	"testing"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/results"
)

func TestHealthServiceIsHealthy(t *testing.T) {
	service := NewHealthService(newMockProvider(false), results.NewActiveSet(), nil, nil)

	if !service.IsHealthy(context.Background()) {
		t.Error("IsHealthy should return true")
	}
}

func TestHealthServiceIsReady(t *testing.T) {
	tests := []struct {
		name  string
		ready bool
		want  bool
	}{
		{"engine not ready", false, false},
		{"engine ready", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewHealthService(newMockProvider(tt.ready), results.NewActiveSet(), nil, nil)
			if got := service.IsReady(context.Background()); got != tt.want {
				t.Errorf("IsReady() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthServiceGetHealthDetails(t *testing.T) {
	provider := newMockProvider(true)
	layers := NewLayerService(provider, nil, testLogger())
	if _, err := layers.Load([]domain.LayerSpec{{ID: "osm", Type: "OSM", Alpha: 1}}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	active := results.NewActiveSet(pointResult("a", 0, 0), pointResult("b", 1, 1))

	details := NewHealthService(provider, active, layers, nil).GetHealthDetails(context.Background())

	if !details.Healthy || !details.Ready || !details.EngineReady {
		t.Errorf("details = %+v, want healthy and ready", details)
	}
	if details.ActiveResults != 2 {
		t.Errorf("ActiveResults = %d, want 2", details.ActiveResults)
	}
	if details.LayersLoaded != 1 {
		t.Errorf("LayersLoaded = %d, want 1", details.LayersLoaded)
	}
	if details.Components["engine"] != "ready" || details.Components["kind"] != "planar" {
		t.Errorf("Components = %v", details.Components)
	}
}

type stubRenderStatus struct{ err error }

func (s stubRenderStatus) LastError() error { return s.err }

func TestHealthServiceRenderStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		component string
		message   string
	}{
		{"clean", nil, "ok", ""},
		{"failed update", errors.New("marker: stale handle"), "degraded", "marker: stale handle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewHealthService(newMockProvider(true), results.NewActiveSet(), nil, stubRenderStatus{err: tt.err})
			details := service.GetHealthDetails(context.Background())
			if details.Components["render"] != tt.component {
				t.Errorf("render component = %q, want %q", details.Components["render"], tt.component)
			}
			if details.RenderError != tt.message {
				t.Errorf("RenderError = %q, want %q", details.RenderError, tt.message)
			}
			if !details.Healthy {
				t.Error("a failed scene update should not mark the service unhealthy")
			}
		})
	}
}
