// Package application contains the application services.
package application

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/geometry"
	"github.com/jobrunner/atlas/internal/ports/output"
)

// PrimitiveSet owns the engine handles created for one result.
// It must be disposed exactly once.
type PrimitiveSet struct {
	ResultID string
	Color    domain.Color
	Points   []domain.PrimitiveHandle
	Lines    []domain.PrimitiveHandle

	selected bool
	visible  bool
	disposed bool
}

// Shape returns the number of point and line primitives in the set.
func (s *PrimitiveSet) Shape() (points, lines int) {
	return len(s.Points), len(s.Lines)
}

// Len returns the number of primitives in the set.
func (s *PrimitiveSet) Len() int {
	return len(s.Points) + len(s.Lines)
}

// Selected reports the selection styling last applied.
func (s *PrimitiveSet) Selected() bool { return s.selected }

// Visible reports whether the set is shown.
func (s *PrimitiveSet) Visible() bool { return s.visible }

// Disposed reports whether the set was released.
func (s *PrimitiveSet) Disposed() bool { return s.disposed }

func (s *PrimitiveSet) handles() []domain.PrimitiveHandle {
	out := make([]domain.PrimitiveHandle, 0, s.Len())
	out = append(out, s.Points...)
	return append(out, s.Lines...)
}

// GeometryRenderer draws results on the map provider and tracks the created handles.
type GeometryRenderer struct {
	provider output.MapProvider
	metrics  output.MetricsCollector
	logger   *slog.Logger
	strict   bool
}

// NewGeometryRenderer creates a renderer. With strict set, operations on released handles
// fail with a StaleHandleError instead of being ignored.
func NewGeometryRenderer(provider output.MapProvider, metrics output.MetricsCollector, logger *slog.Logger, strict bool) *GeometryRenderer {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &GeometryRenderer{
		provider: provider,
		metrics:  metrics,
		logger:   logger,
		strict:   strict,
	}
}

// Render decodes the result's geometry and adds its primitives to the scene with unselected
// styling. A result without geometry yields an empty set. Primitives the engine rejects are
// skipped; their errors are joined into the returned error while the set holds the rest.
func (r *GeometryRenderer) Render(res *domain.Result) (*PrimitiveSet, error) {
	set := &PrimitiveSet{ResultID: res.ID, Color: res.Color, visible: true}
	if !res.HasGeometry() {
		return set, nil
	}
	if !res.Geometry.IsKnown() {
		r.logger.Debug("skipping unsupported geometry",
			"id", res.ID,
			"type", res.Geometry.Type,
		)
		return set, nil
	}

	tag := domain.Tag{IDs: []string{res.ID}, Color: res.Color}
	style := domain.ResultStyle(res.Color, false)

	var errs []error
	for i, p := range geometry.Decode(res.Geometry) {
		h, err := r.provider.AddPrimitive(p, tag, style)
		if err != nil {
			errs = append(errs, fmt.Errorf("result %s primitive %d (%s): %w", res.ID, i, p.Kind, err))
			continue
		}
		r.metrics.IncPrimitivesCreated(p.Kind.String())
		if p.Kind == domain.PrimitivePoint {
			set.Points = append(set.Points, h)
		} else {
			set.Lines = append(set.Lines, h)
		}
	}

	return set, errors.Join(errs...)
}

func (r *GeometryRenderer) stale(op string, set *PrimitiveSet) error {
	err := &domain.StaleHandleError{Operation: op, ResultID: set.ResultID}
	if r.strict {
		return err
	}
	r.logger.Debug("ignoring operation on released primitives", "operation", op, "id", set.ResultID)
	return nil
}

// Restyle applies selected or unselected styling to every primitive of the set.
func (r *GeometryRenderer) Restyle(set *PrimitiveSet, selected bool) error {
	if set.disposed {
		return r.stale("restyle", set)
	}

	style := domain.ResultStyle(set.Color, selected)
	style.Show = set.visible

	var errs []error
	for _, h := range set.handles() {
		if err := r.provider.SetStyle(h, style); err != nil {
			errs = append(errs, err)
		}
	}
	set.selected = selected
	return errors.Join(errs...)
}

// Show makes the set visible.
func (r *GeometryRenderer) Show(set *PrimitiveSet) error {
	return r.setShow(set, true)
}

// Hide hides the set without releasing it.
func (r *GeometryRenderer) Hide(set *PrimitiveSet) error {
	return r.setShow(set, false)
}

func (r *GeometryRenderer) setShow(set *PrimitiveSet, show bool) error {
	if set.disposed {
		return r.stale("show", set)
	}

	var errs []error
	for _, h := range set.handles() {
		if err := r.provider.SetShow(h, show); err != nil {
			errs = append(errs, err)
		}
	}
	set.visible = show
	return errors.Join(errs...)
}

// Dispose removes every primitive of the set from the scene.
func (r *GeometryRenderer) Dispose(set *PrimitiveSet) error {
	if set == nil {
		return nil
	}
	if set.disposed {
		return r.stale("dispose", set)
	}

	var errs []error
	for _, h := range set.Points {
		errs = append(errs, r.Erase(h, domain.PrimitivePoint))
	}
	for _, h := range set.Lines {
		errs = append(errs, r.Erase(h, domain.PrimitiveLine))
	}
	set.disposed = true
	return errors.Join(errs...)
}

// Draw adds a single primitive, as used for cluster markers and hulls.
func (r *GeometryRenderer) Draw(p domain.Primitive, tag domain.Tag, style domain.Style) (domain.PrimitiveHandle, error) {
	h, err := r.provider.AddPrimitive(p, tag, style)
	if err != nil {
		return 0, err
	}
	r.metrics.IncPrimitivesCreated(p.Kind.String())
	return h, nil
}

// Paint restyles a single primitive.
func (r *GeometryRenderer) Paint(h domain.PrimitiveHandle, style domain.Style) error {
	return r.handleErr("paint", r.provider.SetStyle(h, style))
}

// SetVisible shows or hides a single primitive.
func (r *GeometryRenderer) SetVisible(h domain.PrimitiveHandle, show bool) error {
	return r.handleErr("show", r.provider.SetShow(h, show))
}

// Erase removes a single primitive.
func (r *GeometryRenderer) Erase(h domain.PrimitiveHandle, kind domain.PrimitiveKind) error {
	if err := r.provider.RemovePrimitive(h); err != nil {
		return r.handleErr("erase", err)
	}
	r.metrics.IncPrimitivesRemoved(kind.String())
	return nil
}

func (r *GeometryRenderer) handleErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStaleHandle) && !r.strict {
		r.logger.Debug("ignoring operation on released primitive", "operation", op, "error", err)
		return nil
	}
	return err
}
