package results

import (
	"sort"
	"sync"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/observer"
)

// Selection is the set of selected result ids.
type Selection struct {
	mu   sync.RWMutex
	ids  map[string]struct{}
	subs observer.List[domain.Change]
}

// NewSelection creates a selection containing ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Add selects ids.
func (s *Selection) Add(ids ...string) {
	s.mu.Lock()
	var added []string
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			continue
		}
		s.ids[id] = struct{}{}
		added = append(added, id)
	}
	s.mu.Unlock()

	if len(added) > 0 {
		s.subs.Notify(domain.Change{Kind: domain.ChangeAdd, IDs: added})
	}
}

// Remove deselects ids.
func (s *Selection) Remove(ids ...string) {
	s.mu.Lock()
	var removed []string
	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			continue
		}
		delete(s.ids, id)
		removed = append(removed, id)
	}
	s.mu.Unlock()

	if len(removed) > 0 {
		s.subs.Notify(domain.Change{Kind: domain.ChangeRemove, IDs: removed})
	}
}

// Reset replaces the selection with ids.
func (s *Selection) Reset(ids ...string) {
	s.mu.Lock()
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()

	s.subs.Notify(domain.Change{Kind: domain.ChangeReset})
}

// Toggle flips the selection of id and reports whether it is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected ids in lexical order.
func (s *Selection) IDs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Subscribe registers fn for change notifications.
func (s *Selection) Subscribe(fn func(domain.Change)) func() {
	return s.subs.Subscribe(fn)
}
