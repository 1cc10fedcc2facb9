package application

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/geometry"
	"github.com/jobrunner/atlas/internal/observer"
	"github.com/jobrunner/atlas/internal/ports/input"
	"github.com/jobrunner/atlas/internal/ports/output"
)

// ResultStore is the active result set as mutated by the controller.
type ResultStore interface {
	input.ResultCollection
	Reset(rs ...*domain.Result)
}

// SelectionStore is the selection set as mutated by the controller.
type SelectionStore interface {
	input.SelectionCollection
	Add(ids ...string)
	Reset(ids ...string)
	Toggle(id string) bool
}

// ControllerOptions configures a MapController.
type ControllerOptions struct {
	Clustering    ClusterOptions
	StrictHandles bool
}

// MapController owns the renderer, synchronizer and cluster engine of one map and
// serializes every entry point into them.
//
// Collection notifications only mark work as pending; the work runs once per tick, active
// changes before selection changes. Work that arrives before the engine is ready stays
// pending until the ready signal.
type MapController struct {
	mu        sync.Mutex
	provider  output.MapProvider
	layers    *LayerService
	active    ResultStore
	selection SelectionStore
	metrics   output.MetricsCollector
	logger    *slog.Logger

	renderer *GeometryRenderer
	sync     *SelectionSynchronizer
	clusters *ClusterEngine

	dirtyMu        sync.Mutex
	activeDirty    bool
	selectionDirty bool

	activations observer.List[[]string]
	unsubscribe []func()
	lastErr     error
	closed      bool
}

// NewMapController creates a controller. Start must be called before it reacts to changes.
func NewMapController(
	provider output.MapProvider,
	layers *LayerService,
	active ResultStore,
	selection SelectionStore,
	opts ControllerOptions,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *MapController {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	renderer := NewGeometryRenderer(provider, metrics, logger, opts.StrictHandles)
	synchronizer := NewSelectionSynchronizer(renderer, active, selection, metrics, logger)
	clusters := NewClusterEngine(renderer, synchronizer, active, selection, opts.Clustering, metrics, logger)

	return &MapController{
		provider:  provider,
		layers:    layers,
		active:    active,
		selection: selection,
		metrics:   metrics,
		logger:    logger,
		renderer:  renderer,
		sync:      synchronizer,
		clusters:  clusters,
	}
}

// Start subscribes to the collections and the engine and schedules the initial render.
func (c *MapController) Start() {
	c.unsubscribe = append(c.unsubscribe,
		c.active.Subscribe(c.onActiveChanged),
		c.selection.Subscribe(c.onSelectionChanged),
		c.provider.Subscribe(c.HandleEvent),
	)
	c.markDirty(true, true)
	c.provider.OnReady(func() {
		c.logger.Info("map engine ready", "engine", c.provider.Engine())
		c.markDirty(true, true)
		c.kick()
	})
	c.kick()
}

func (c *MapController) onActiveChanged(domain.Change) {
	c.markDirty(true, false)
	c.kick()
}

func (c *MapController) onSelectionChanged(domain.Change) {
	c.markDirty(false, true)
	c.kick()
}

func (c *MapController) markDirty(active, selection bool) {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	c.activeDirty = c.activeDirty || active
	c.selectionDirty = c.selectionDirty || selection
}

func (c *MapController) takeDirty() (active, selection bool) {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	active, selection = c.activeDirty, c.selectionDirty
	c.activeDirty, c.selectionDirty = false, false
	return active, selection
}

func (c *MapController) hasDirty() bool {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	return c.activeDirty || c.selectionDirty
}

// kick flushes pending work unless another caller holds the lock, in which case that
// caller flushes before returning.
func (c *MapController) kick() {
	for c.hasDirty() && c.mu.TryLock() {
		flushed := c.flushLocked()
		c.mu.Unlock()
		if !flushed {
			return
		}
	}
}

// run executes fn under the lock and flushes whatever fn caused.
func (c *MapController) run(fn func()) {
	c.mu.Lock()
	if fn != nil && !c.closed {
		fn()
	}
	c.flushLocked()
	c.mu.Unlock()
	c.kick()
}

// flushLocked reports false when pending work has to wait for the engine.
func (c *MapController) flushLocked() bool {
	if c.closed || !c.provider.IsReady() {
		return false
	}
	active, selection := c.takeDirty()

	var errs []error
	if active {
		if c.clusters.Enabled() {
			// Recompute reconciles both individual results and selection styling.
			errs = append(errs, c.clusters.Recompute(context.Background(), c.active.Results(), c.clusters.Threshold()))
			selection = false
		} else {
			errs = append(errs, c.sync.OnActiveResultsChanged())
			selection = true
		}
	}
	if selection {
		errs = append(errs, c.sync.OnSelectionChanged(), c.clusters.OnSelectionChanged())
	}

	if !active && !selection {
		return true
	}
	err := errors.Join(errs...)
	c.lastErr = err
	if err != nil {
		c.logger.Warn("scene update incomplete", "error", err)
	}
	return true
}

// Batch runs fn as a single tick. Collection changes made by fn are reconciled once when it
// returns, active changes first.
func (c *MapController) Batch(fn func()) {
	c.run(fn)
}

// ReplaceResults resets the active set to rs.
func (c *MapController) ReplaceResults(rs []*domain.Result) {
	c.run(func() { c.active.Reset(rs...) })
}

// Select implements input.MapService.
func (c *MapController) Select(ids []string, additive bool) {
	c.run(func() { c.selectLocked(ids, additive) })
}

func (c *MapController) selectLocked(ids []string, additive bool) {
	if !additive {
		c.selection.Reset(ids...)
		return
	}
	for _, id := range ids {
		c.selection.Toggle(id)
	}
}

// ClearSelection implements input.MapService.
func (c *MapController) ClearSelection() {
	c.run(func() { c.selection.Reset() })
}

// SetClustering implements input.MapService. Before the engine is ready only the flag
// changes; the first render honors it.
func (c *MapController) SetClustering(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		c.kick()
	}()

	if c.closed {
		return domain.ErrEngineDestroyed
	}
	if !c.provider.IsReady() {
		c.clusters.SetEnabled(enabled)
		return nil
	}
	c.flushLocked()
	c.logger.Info("clustering toggled", "enabled", enabled)
	return c.clusters.ToggleActive(ctx, enabled)
}

// SetThreshold changes the cluster threshold and recomputes when clustering is active.
func (c *MapController) SetThreshold(ctx context.Context, meters float64) error {
	if meters <= 0 {
		return &domain.ValidationError{
			Field:      "threshold_meters",
			Value:      meters,
			Constraint: "> 0",
			Message:    "threshold must be positive",
		}
	}

	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		c.kick()
	}()

	c.clusters.SetThreshold(meters)
	if c.closed || !c.provider.IsReady() || !c.clusters.Enabled() {
		return nil
	}
	c.flushLocked()
	return c.clusters.Recompute(ctx, c.active.Results(), meters)
}

// Hover implements input.MapService.
func (c *MapController) Hover(id string) {
	c.run(func() { c.clusters.HandleHover(id) })
}

// Click implements input.MapService. A click on nothing clears the selection unless it is
// additive; a click on a cluster marker carries every member id.
func (c *MapController) Click(ids []string, additive bool) {
	ids = slices.Clone(ids)
	c.run(func() {
		switch {
		case len(ids) == 0:
			if !additive {
				c.selection.Reset()
			}
		case len(ids) > 1 && additive:
			c.selection.Add(ids...)
		default:
			c.selectLocked(ids, additive)
		}
	})
	if len(ids) > 0 {
		c.activations.Notify(ids)
	}
}

// OnActivate registers fn to receive the ids of every click that hit something.
func (c *MapController) OnActivate(fn func(ids []string)) func() {
	return c.activations.Subscribe(fn)
}

// HandleEvent dispatches an engine pointer event.
func (c *MapController) HandleEvent(ev output.MapEvent) {
	c.metrics.IncMapEvents(string(ev.Kind))
	switch ev.Kind {
	case output.EventClick:
		c.Click(ev.IDs, ev.Additive)
	case output.EventHover:
		id := ""
		if len(ev.IDs) > 0 {
			id = ev.IDs[0]
		}
		c.Hover(id)
	}
}

// Clustering reports whether clustering is enabled and its threshold.
func (c *MapController) Clustering() (bool, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clusters.Enabled(), c.clusters.Threshold()
}

// LastError returns the error of the most recent tick that did work, or nil when it
// reconciled cleanly.
func (c *MapController) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Snapshot implements input.MapService.
func (c *MapController) Snapshot() domain.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()

	scene := domain.Scene{
		Engine:     c.provider.Engine(),
		Ready:      c.provider.IsReady(),
		Clustering: c.clusters.Enabled(),
		Threshold:  c.clusters.Threshold(),
		Selected:   c.selection.IDs(),
		Active:     len(c.active.Results()),
		Primitives: c.provider.PrimitiveCount(),
		Results:    []domain.RenderedResult{},
		Clusters:   []domain.ClusterView{},
		Layers:     []domain.LayerState{},
	}
	if c.layers != nil {
		scene.Layers = c.layers.List()
	}

	for _, id := range c.sync.TrackedIDs() {
		set, _ := c.sync.Set(id)
		points, lines := set.Shape()
		scene.Results = append(scene.Results, domain.RenderedResult{
			ID:       id,
			Points:   points,
			Lines:    lines,
			Selected: set.Selected(),
			Color:    set.Color.Hex(),
			Visible:  set.Visible(),
		})
	}
	scene.Unclustered = len(scene.Results)

	for _, cl := range c.clusters.Clusters() {
		view := domain.ClusterView{
			Members:     slices.Clone(cl.Members),
			Centroid:    cl.Centroid,
			State:       cl.State().String(),
			HullVisible: cl.HullVisible(),
		}
		if cl.HasHull() {
			view.Hull = geometry.RingCoordinates(cl.Hull)
		}
		scene.Clusters = append(scene.Clusters, view)
	}
	return scene
}

// Close unsubscribes from every source and disposes all primitives. The provider itself is
// left to its owner.
func (c *MapController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	for _, unsub := range c.unsubscribe {
		unsub()
	}
	c.unsubscribe = nil

	return errors.Join(c.clusters.Teardown(), c.sync.DisposeAll())
}
