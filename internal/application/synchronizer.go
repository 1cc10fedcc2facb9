package application

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/ports/input"
	"github.com/jobrunner/atlas/internal/ports/output"
)

// tracked is the side-table entry of an individually rendered result.
type tracked struct {
	result *domain.Result
	set    *PrimitiveSet
}

// SelectionSynchronizer keeps one primitive set per active, geometry-bearing, unclustered
// result and keeps its styling in line with the selection.
type SelectionSynchronizer struct {
	renderer  *GeometryRenderer
	active    input.ResultCollection
	selection input.SelectionCollection
	metrics   output.MetricsCollector
	logger    *slog.Logger

	tracked map[string]*tracked
	exclude func(id string) bool
}

// NewSelectionSynchronizer creates a synchronizer over the given collections.
func NewSelectionSynchronizer(
	renderer *GeometryRenderer,
	active input.ResultCollection,
	selection input.SelectionCollection,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *SelectionSynchronizer {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &SelectionSynchronizer{
		renderer:  renderer,
		active:    active,
		selection: selection,
		metrics:   metrics,
		logger:    logger,
		tracked:   make(map[string]*tracked),
	}
}

// SetExclusion registers a predicate for results rendered elsewhere, such as cluster members.
func (s *SelectionSynchronizer) SetExclusion(fn func(id string) bool) {
	s.exclude = fn
}

func (s *SelectionSynchronizer) wanted(r *domain.Result) bool {
	if !r.HasGeometry() {
		return false
	}
	return s.exclude == nil || !s.exclude(r.ID)
}

// OnActiveResultsChanged reconciles the rendered sets with the active collection.
// Removed results are disposed, new ones rendered, results whose value was replaced are
// re-rendered, and everything else is left untouched.
func (s *SelectionSynchronizer) OnActiveResultsChanged() error {
	current := s.active.Results()
	want := make(map[string]*domain.Result, len(current))
	for _, r := range current {
		if s.wanted(r) {
			want[r.ID] = r
		}
	}

	var errs []error
	for _, id := range s.trackedIDs() {
		if _, ok := want[id]; ok {
			continue
		}
		errs = append(errs, s.renderer.Dispose(s.tracked[id].set))
		delete(s.tracked, id)
	}

	for _, r := range current {
		if want[r.ID] != r {
			continue
		}
		if t, ok := s.tracked[r.ID]; ok {
			if t.result == r {
				continue
			}
			errs = append(errs, s.renderer.Dispose(t.set))
			delete(s.tracked, r.ID)
		}

		set, err := s.renderer.Render(r)
		if err != nil {
			s.logger.Warn("result rendered partially", "id", r.ID, "error", err)
		}
		s.tracked[r.ID] = &tracked{result: r, set: set}
		if s.selection.Has(r.ID) {
			errs = append(errs, s.renderer.Restyle(set, true))
		}
	}

	s.metrics.SetTrackedResults(len(s.tracked))
	return errors.Join(errs...)
}

// OnSelectionChanged restyles tracked sets whose selection flag flipped.
func (s *SelectionSynchronizer) OnSelectionChanged() error {
	var errs []error
	for _, id := range s.trackedIDs() {
		t := s.tracked[id]
		selected := s.selection.Has(id)
		if selected == t.set.Selected() {
			continue
		}
		errs = append(errs, s.renderer.Restyle(t.set, selected))
	}
	return errors.Join(errs...)
}

// DisposeAll releases every tracked set.
func (s *SelectionSynchronizer) DisposeAll() error {
	var errs []error
	for _, id := range s.trackedIDs() {
		errs = append(errs, s.renderer.Dispose(s.tracked[id].set))
		delete(s.tracked, id)
	}
	s.metrics.SetTrackedResults(0)
	return errors.Join(errs...)
}

// Set returns the primitive set of a tracked result.
func (s *SelectionSynchronizer) Set(id string) (*PrimitiveSet, bool) {
	t, ok := s.tracked[id]
	if !ok {
		return nil, false
	}
	return t.set, true
}

// TrackedIDs returns the ids of individually rendered results in lexical order.
func (s *SelectionSynchronizer) TrackedIDs() []string {
	return s.trackedIDs()
}

func (s *SelectionSynchronizer) trackedIDs() []string {
	ids := make([]string, 0, len(s.tracked))
	for id := range s.tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
