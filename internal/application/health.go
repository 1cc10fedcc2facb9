package application

import (
	"context"
	"strconv"

	"github.com/jobrunner/atlas/internal/ports/input"
	"github.com/jobrunner/atlas/internal/ports/output"
)

// RenderStatus reports the outcome of the latest scene update.
type RenderStatus interface {
	LastError() error
}

// HealthService provides health check functionality.
type HealthService struct {
	provider output.MapProvider
	active   input.ResultCollection
	layers   *LayerService
	render   RenderStatus
}

// NewHealthService creates a new health service. layers and render may be nil.
func NewHealthService(provider output.MapProvider, active input.ResultCollection, layers *LayerService, render RenderStatus) *HealthService {
	return &HealthService{
		provider: provider,
		active:   active,
		layers:   layers,
		render:   render,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(ctx context.Context) bool {
	return true // Basic health check
}

// IsReady returns true once the rendering engine signalled readiness.
func (s *HealthService) IsReady(ctx context.Context) bool {
	return s.provider.IsReady()
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	engine := "not_ready"
	if s.provider.IsReady() {
		engine = "ready"
	}

	layers := 0
	if s.layers != nil {
		layers = s.layers.Len()
	}

	components := map[string]string{
		"engine":     engine,
		"kind":       string(s.provider.Engine()),
		"primitives": strconv.Itoa(s.provider.PrimitiveCount()),
	}

	var renderErr string
	if s.render != nil {
		components["render"] = "ok"
		if err := s.render.LastError(); err != nil {
			components["render"] = "degraded"
			renderErr = err.Error()
		}
	}

	return input.HealthDetails{
		RenderError:   renderErr,
		Healthy:       s.IsHealthy(ctx),
		Ready:         s.IsReady(ctx),
		EngineReady:   s.provider.IsReady(),
		ActiveResults: len(s.active.Results()),
		LayersLoaded:  layers,
		Components:    components,
	}
}
