package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/geometry"
	"github.com/jobrunner/atlas/internal/ports/input"
	"github.com/jobrunner/atlas/internal/ports/output"
)

// DefaultEmphasisColor fills fully selected cluster markers.
var DefaultEmphasisColor = domain.MustParseColor("#f5a623")

// Cluster is an aggregate of nearby results. Clusters are rebuilt on every recompute and
// never modified in place, apart from their styling state.
type Cluster struct {
	Members  []string
	Color    domain.Color
	Centroid domain.Coordinate
	Hull     orb.Ring

	marker      domain.PrimitiveHandle
	hull        domain.PrimitiveHandle
	state       domain.SelectionState
	hullVisible bool
}

// State returns the selection state last applied to the marker.
func (c *Cluster) State() domain.SelectionState { return c.state }

// HullVisible reports whether the hull outline is shown.
func (c *Cluster) HullVisible() bool { return c.hullVisible }

// HasHull reports whether a hull outline was drawn.
func (c *Cluster) HasHull() bool { return c.hull != 0 }

// Contains reports whether id is a member of the cluster.
func (c *Cluster) Contains(id string) bool {
	return slices.Contains(c.Members, id)
}

// ClusterOptions configures the cluster engine.
type ClusterOptions struct {
	Enabled         bool
	ThresholdMeters float64
	Emphasis        domain.Color
}

// ClusterEngine partitions active results into clusters and renders one marker plus a
// hidden hull per cluster. Singletons are left to the SelectionSynchronizer.
type ClusterEngine struct {
	renderer  *GeometryRenderer
	sync      *SelectionSynchronizer
	active    input.ResultCollection
	selection input.SelectionCollection
	metrics   output.MetricsCollector
	logger    *slog.Logger

	enabled   bool
	threshold float64
	emphasis  domain.Color
	clusters  []*Cluster
	memberOf  map[string]*Cluster
	hovered   string
}

// NewClusterEngine creates a cluster engine and registers it as the synchronizer's
// exclusion, so clustered results are never rendered individually.
func NewClusterEngine(
	renderer *GeometryRenderer,
	sync *SelectionSynchronizer,
	active input.ResultCollection,
	selection input.SelectionCollection,
	opts ClusterOptions,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *ClusterEngine {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	if opts.Emphasis == (domain.Color{}) {
		opts.Emphasis = DefaultEmphasisColor
	}
	e := &ClusterEngine{
		renderer:  renderer,
		sync:      sync,
		active:    active,
		selection: selection,
		metrics:   metrics,
		logger:    logger,
		enabled:   opts.Enabled,
		threshold: opts.ThresholdMeters,
		emphasis:  opts.Emphasis,
		memberOf:  make(map[string]*Cluster),
	}
	sync.SetExclusion(e.IsClustered)
	return e
}

// Enabled reports whether clustering is active.
func (e *ClusterEngine) Enabled() bool { return e.enabled }

// Threshold returns the proximity threshold in meters.
func (e *ClusterEngine) Threshold() float64 { return e.threshold }

// IsClustered reports whether id is currently a member of a cluster.
func (e *ClusterEngine) IsClustered(id string) bool {
	_, ok := e.memberOf[id]
	return ok
}

// Clusters returns the current clusters.
func (e *ClusterEngine) Clusters() []*Cluster {
	return slices.Clone(e.clusters)
}

// Recompute tears down all clusters and rebuilds them from active with the given threshold,
// then reconciles individually rendered results. If ctx is cancelled midway, everything
// built so far is disposed and all results fall back to individual rendering.
func (e *ClusterEngine) Recompute(ctx context.Context, active []*domain.Result, thresholdMeters float64) error {
	start := time.Now()
	defer func() { e.metrics.ObserveRecomputeDuration(time.Since(start)) }()

	errs := []error{e.teardown()}
	e.threshold = thresholdMeters

	if e.enabled {
		var built []*Cluster
		for _, group := range Partition(active, thresholdMeters) {
			if len(group) < 2 {
				continue
			}
			if err := ctx.Err(); err != nil {
				for _, c := range built {
					errs = append(errs, e.dispose(c))
				}
				errs = append(errs, e.sync.OnActiveResultsChanged(), e.sync.OnSelectionChanged())
				e.metrics.SetClusters(0)
				return errors.Join(append(errs, fmt.Errorf("cluster recompute: %w", err))...)
			}

			c, err := e.build(group)
			if err != nil {
				e.logger.Warn("cluster not drawn, members rendered individually",
					"members", len(group),
					"error", err,
				)
				continue
			}
			built = append(built, c)
		}

		e.clusters = built
		for _, c := range built {
			for _, id := range c.Members {
				e.memberOf[id] = c
			}
		}
	}

	errs = append(errs,
		e.sync.OnActiveResultsChanged(),
		e.sync.OnSelectionChanged(),
		e.OnSelectionChanged(),
	)
	e.HandleHover(e.hovered)
	e.metrics.SetClusters(len(e.clusters))

	e.logger.Debug("clusters recomputed",
		"clusters", len(e.clusters),
		"threshold_m", thresholdMeters,
		"duration", time.Since(start),
	)
	return errors.Join(errs...)
}

func (e *ClusterEngine) build(group []*domain.Result) (*Cluster, error) {
	c := &Cluster{
		Members: make([]string, 0, len(group)),
		Color:   group[0].Color,
	}
	var vertices []domain.Coordinate
	for _, r := range group {
		c.Members = append(c.Members, r.ID)
		vertices = append(vertices, r.Geometry.Vertices()...)
	}
	c.Centroid = geometry.Centroid(vertices)
	c.Hull = geometry.ConvexHull(geometry.Points(vertices))

	tag := domain.Tag{IDs: c.Members, Color: c.Color}
	label := strconv.Itoa(len(c.Members))

	marker, err := e.renderer.Draw(
		domain.PointPrimitive(c.Centroid),
		tag,
		domain.ClusterStyle(c.Color, e.emphasis, domain.SelectionNone, label),
	)
	if err != nil {
		return nil, err
	}
	c.marker = marker

	var outline *domain.Primitive
	switch n := geometry.HullPoints(c.Hull); {
	case n == 2:
		p := domain.LinePrimitive(geometry.RingCoordinates(c.Hull[:2]), false)
		outline = &p
	case n >= 3:
		p := domain.LinePrimitive(geometry.RingCoordinates(c.Hull), true)
		outline = &p
	}
	if outline != nil {
		h, err := e.renderer.Draw(*outline, tag, domain.HullStyle(c.Color, false))
		if err != nil {
			// A cluster without a hull is still usable.
			e.logger.Warn("cluster hull not drawn", "members", len(c.Members), "error", err)
		} else {
			c.hull = h
		}
	}

	return c, nil
}

func (e *ClusterEngine) dispose(c *Cluster) error {
	var errs []error
	if c.marker != 0 {
		errs = append(errs, e.renderer.Erase(c.marker, domain.PrimitivePoint))
		c.marker = 0
	}
	if c.hull != 0 {
		errs = append(errs, e.renderer.Erase(c.hull, domain.PrimitiveLine))
		c.hull = 0
	}
	return errors.Join(errs...)
}

func (e *ClusterEngine) teardown() error {
	var errs []error
	for _, c := range e.clusters {
		errs = append(errs, e.dispose(c))
	}
	e.clusters = nil
	clear(e.memberOf)
	return errors.Join(errs...)
}

// Teardown disposes every cluster primitive without re-rendering members.
func (e *ClusterEngine) Teardown() error {
	err := e.teardown()
	e.metrics.SetClusters(0)
	return err
}

// SetEnabled changes the clustering flag without touching the scene.
func (e *ClusterEngine) SetEnabled(enabled bool) { e.enabled = enabled }

// SetThreshold changes the threshold used by the next recompute.
func (e *ClusterEngine) SetThreshold(m float64) { e.threshold = m }

// ToggleActive switches clustering on or off and recomputes the scene.
func (e *ClusterEngine) ToggleActive(ctx context.Context, enabled bool) error {
	e.enabled = enabled
	return e.Recompute(ctx, e.active.Results(), e.threshold)
}

// HandleHover shows the hull of the cluster containing id and hides all others.
func (e *ClusterEngine) HandleHover(id string) {
	e.hovered = id
	for _, c := range e.clusters {
		show := id != "" && c.Contains(id)
		if c.hull == 0 || show == c.hullVisible {
			continue
		}
		if err := e.renderer.SetVisible(c.hull, show); err != nil {
			e.logger.Warn("toggling cluster hull failed", "error", err)
			continue
		}
		c.hullVisible = show
	}
}

// OnSelectionChanged recomputes the tri-state styling of every cluster marker.
func (e *ClusterEngine) OnSelectionChanged() error {
	var errs []error
	for _, c := range e.clusters {
		state := domain.ResolveSelection(c.Members, e.selection.Has)
		if state == c.state {
			continue
		}
		style := domain.ClusterStyle(c.Color, e.emphasis, state, strconv.Itoa(len(c.Members)))
		if err := e.renderer.Paint(c.marker, style); err != nil {
			errs = append(errs, err)
			continue
		}
		c.state = state
	}
	return errors.Join(errs...)
}
