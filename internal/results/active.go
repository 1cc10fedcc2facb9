// Package results holds the in-memory result and selection collections shared between the
// map subsystem and the rest of the application.
package results

import (
	"sync"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/observer"
)

// ActiveSet is the ordered set of active search results.
type ActiveSet struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*domain.Result
	subs  observer.List[domain.Change]
}

// NewActiveSet creates an active set holding the given results.
func NewActiveSet(rs ...*domain.Result) *ActiveSet {
	s := &ActiveSet{byID: make(map[string]*domain.Result)}
	s.insert(rs)
	return s
}

// insert adds results not yet present and returns their ids. Caller holds mu.
func (s *ActiveSet) insert(rs []*domain.Result) []string {
	var added []string
	for _, r := range rs {
		if r == nil || r.ID == "" {
			continue
		}
		if _, ok := s.byID[r.ID]; ok {
			continue
		}
		s.byID[r.ID] = r
		s.order = append(s.order, r.ID)
		added = append(added, r.ID)
	}
	return added
}

// Add appends results. Results whose id is already present are ignored.
func (s *ActiveSet) Add(rs ...*domain.Result) {
	s.mu.Lock()
	added := s.insert(rs)
	s.mu.Unlock()

	if len(added) > 0 {
		s.subs.Notify(domain.Change{Kind: domain.ChangeAdd, IDs: added})
	}
}

// Remove drops results by id.
func (s *ActiveSet) Remove(ids ...string) {
	s.mu.Lock()
	var removed []string
	for _, id := range ids {
		if _, ok := s.byID[id]; !ok {
			continue
		}
		delete(s.byID, id)
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			if _, ok := s.byID[id]; ok {
				kept = append(kept, id)
			}
		}
		s.order = kept
	}
	s.mu.Unlock()

	if len(removed) > 0 {
		s.subs.Notify(domain.Change{Kind: domain.ChangeRemove, IDs: removed})
	}
}

// Reset replaces the whole content of the set.
func (s *ActiveSet) Reset(rs ...*domain.Result) {
	s.mu.Lock()
	s.order = nil
	s.byID = make(map[string]*domain.Result, len(rs))
	s.insert(rs)
	s.mu.Unlock()

	s.subs.Notify(domain.Change{Kind: domain.ChangeReset})
}

// Update replaces the value of a result that is already present.
func (s *ActiveSet) Update(r *domain.Result) error {
	if r == nil {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	if _, ok := s.byID[r.ID]; !ok {
		s.mu.Unlock()
		return domain.ErrResultNotFound
	}
	s.byID[r.ID] = r
	s.mu.Unlock()

	s.subs.Notify(domain.Change{Kind: domain.ChangeUpdate, IDs: []string{r.ID}})
	return nil
}

// Results returns the active results in insertion order.
func (s *ActiveSet) Results() []*domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Result, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Get returns the result with the given id.
func (s *ActiveSet) Get(id string) (*domain.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

// Len returns the number of active results.
func (s *ActiveSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Subscribe registers fn for change notifications.
func (s *ActiveSet) Subscribe(fn func(domain.Change)) func() {
	return s.subs.Subscribe(fn)
}
