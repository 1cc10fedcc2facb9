package input

import (
	"context"
	"time"

	"github.com/jobrunner/atlas/internal/domain"
)

// MapService defines the primary port for driving the map scene.
type MapService interface {
	// Snapshot returns what the map currently shows.
	Snapshot() domain.Scene

	// Select changes the selection. With additive set, ids are toggled instead of replacing
	// the selection.
	Select(ids []string, additive bool)

	// ClearSelection deselects everything.
	ClearSelection()

	// SetClustering switches between clustered and per-result rendering.
	SetClustering(ctx context.Context, enabled bool) error

	// SetThreshold changes the clustering distance in meters.
	SetThreshold(ctx context.Context, meters float64) error

	// Hover reports the id under the pointer; an empty id clears the hover.
	Hover(id string)

	// Click handles a click on the given ids as if it came from the engine.
	Click(ids []string, additive bool)
}

// LayerManager defines the primary port for imagery layer management.
type LayerManager interface {
	// List returns the layers bottom to top.
	List() []domain.LayerState

	// Update changes alpha and/or visibility of a layer.
	Update(id string, alpha *float64, show *bool) error

	// Reorder applies a new bottom-to-top order given by layer ids.
	Reorder(ids []string) error
}

// ReloadTrigger defines the primary port for reloading results.
type ReloadTrigger interface {
	// TriggerReload reloads results now, subject to rate limiting.
	TriggerReload(ctx context.Context) (ReloadResult, error)
}

// ReloadResult contains the outcome of a reload.
type ReloadResult struct {
	Loaded          int       `json:"loaded"`
	Added           int       `json:"added"`
	Removed         int       `json:"removed"`
	ReloadedAt      time.Time `json:"reloaded_at"`
	NextScheduledAt time.Time `json:"next_scheduled_at,omitempty"`
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy       bool              // Overall health status
	Ready         bool              // Ready to accept requests
	EngineReady   bool              // Rendering engine signalled readiness
	ActiveResults int               // Number of active results
	LayersLoaded  int               // Number of imagery layers
	Components    map[string]string // Component statuses
	RenderError   string            // Last scene update error, empty when clean
}
