package application

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/ports/output"
)

type layerEntry struct {
	spec   domain.LayerSpec
	handle domain.LayerHandle
	order  int // current stack position

	// load-time sort keys
	explicit bool
	index    int
}

// LayerService manages the imagery layers of a map provider.
type LayerService struct {
	mu       sync.RWMutex
	provider output.MapProvider
	metrics  output.MetricsCollector
	logger   *slog.Logger

	layers []*layerEntry // bottom to top
}

// NewLayerService creates a layer service.
func NewLayerService(provider output.MapProvider, metrics output.MetricsCollector, logger *slog.Logger) *LayerService {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &LayerService{
		provider: provider,
		metrics:  metrics,
		logger:   logger,
	}
}

// Load creates a layer per spec and stacks them by order. A spec without an order takes its
// list position; on equal orders an explicit order stacks below an implied one, then list
// position decides. Layers that fail are skipped; the returned error joins their failures
// while every other layer is loaded.
func (s *LayerService) Load(specs []domain.LayerSpec) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i, spec := range specs {
		explicit := spec.Order != nil
		if !explicit {
			spec.Order = domain.OrderAt(i)
		}
		if spec.ID == "" {
			spec.ID = fmt.Sprintf("layer-%d", i)
		}
		if s.find(spec.ID) != nil {
			errs = append(errs, &domain.ValidationError{
				Field:      "id",
				Value:      spec.ID,
				Constraint: "unique",
				Message:    "duplicate layer id",
			})
			continue
		}

		err := spec.Validate()
		var h domain.LayerHandle
		if err == nil {
			h, err = s.provider.CreateLayer(spec)
		}
		if err != nil {
			s.logger.Warn("skipping imagery layer",
				"id", spec.ID,
				"type", spec.Type,
				"order", spec.StackOrder(),
				"error", err,
			)
			s.metrics.IncLayerInitFailures(spec.NormalizedType())
			errs = append(errs, err)
			continue
		}

		s.layers = append(s.layers, &layerEntry{
			spec:     spec,
			handle:   h,
			order:    spec.StackOrder(),
			explicit: explicit,
			index:    i,
		})
	}

	sort.SliceStable(s.layers, func(i, j int) bool {
		a, b := s.layers[i], s.layers[j]
		if a.order != b.order {
			return a.order < b.order
		}
		if a.explicit != b.explicit {
			return a.explicit
		}
		return a.index < b.index
	})
	if err := s.applyOrder(); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("imagery layers loaded", "loaded", len(s.layers), "failed", len(errs))
	return len(s.layers), errors.Join(errs...)
}

func (s *LayerService) find(id string) *layerEntry {
	for _, l := range s.layers {
		if l.spec.ID == id {
			return l
		}
	}
	return nil
}

// applyOrder pushes the current stack order to the provider. Caller holds mu.
func (s *LayerService) applyOrder() error {
	order := make([]domain.LayerHandle, 0, len(s.layers))
	for i, l := range s.layers {
		l.order = i
		order = append(order, l.handle)
	}
	return s.provider.Reindex(order)
}

// List implements input.LayerManager.
func (s *LayerService) List() []domain.LayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LayerState, 0, len(s.layers))
	for _, l := range s.layers {
		out = append(out, domain.LayerState{
			ID:     l.spec.ID,
			Type:   l.spec.NormalizedType(),
			Order:  l.order,
			Alpha:  l.spec.Alpha,
			Show:   l.spec.Show,
			Handle: l.handle,
		})
	}
	return out
}

// Len returns the number of loaded layers.
func (s *LayerService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.layers)
}

// Update implements input.LayerManager.
func (s *LayerService) Update(id string, alpha *float64, show *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.find(id)
	if l == nil {
		return fmt.Errorf("layer %q: %w", id, domain.ErrLayerNotFound)
	}
	if alpha != nil {
		if *alpha < 0 || *alpha > 1 {
			return &domain.ValidationError{
				Field:      "alpha",
				Value:      *alpha,
				Constraint: "[0, 1]",
				Message:    "alpha must be between 0 and 1",
			}
		}
		if err := s.provider.SetAlpha(l.handle, *alpha); err != nil {
			return err
		}
		l.spec.Alpha = *alpha
	}
	if show != nil {
		if err := s.provider.SetVisible(l.handle, *show); err != nil {
			return err
		}
		l.spec.Show = *show
	}
	return nil
}

// Reorder implements input.LayerManager. ids must name every loaded layer exactly once.
func (s *LayerService) Reorder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) != len(s.layers) {
		return &domain.ValidationError{
			Field:      "order",
			Value:      len(ids),
			Constraint: fmt.Sprintf("exactly %d layer ids", len(s.layers)),
			Message:    "order must list every layer",
		}
	}

	next := make([]*layerEntry, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		l := s.find(id)
		if l == nil {
			return fmt.Errorf("layer %q: %w", id, domain.ErrLayerNotFound)
		}
		if seen[id] {
			return &domain.ValidationError{
				Field:      "order",
				Value:      id,
				Constraint: "unique",
				Message:    "layer listed twice",
			}
		}
		seen[id] = true
		next = append(next, l)
	}

	prev := s.layers
	s.layers = next
	if err := s.applyOrder(); err != nil {
		s.layers = prev
		for i, l := range prev {
			l.order = i
		}
		return err
	}
	return nil
}

// Move places a layer at position order in the stack, shifting the others.
func (s *LayerService) Move(id string, order int) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.layers))
	idx := -1
	for i, l := range s.layers {
		ids = append(ids, l.spec.ID)
		if l.spec.ID == id {
			idx = i
		}
	}
	s.mu.RUnlock()

	if idx < 0 {
		return fmt.Errorf("layer %q: %w", id, domain.ErrLayerNotFound)
	}
	if order < 0 || order >= len(ids) {
		return &domain.ValidationError{
			Field:      "order",
			Value:      order,
			Constraint: fmt.Sprintf("[0, %d]", len(ids)-1),
			Message:    "order out of range",
		}
	}

	ids = append(ids[:idx], ids[idx+1:]...)
	ids = append(ids[:order], append([]string{id}, ids[order:]...)...)
	return s.Reorder(ids)
}

// Clear removes every layer from the provider.
func (s *LayerService) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, l := range s.layers {
		errs = append(errs, s.provider.RemoveLayer(l.handle))
	}
	s.layers = nil
	return errors.Join(errs...)
}
