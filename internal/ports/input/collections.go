// Package input defines the primary/driving ports of the application.
package input

import "github.com/jobrunner/atlas/internal/domain"

// ResultCollection is the read side of the active result set.
type ResultCollection interface {
	// Results returns the active results in their collection order.
	Results() []*domain.Result

	// Get returns the result with the given id.
	Get(id string) (*domain.Result, bool)

	// Subscribe registers fn for change notifications and returns an unsubscribe function.
	Subscribe(fn func(domain.Change)) func()
}

// SelectionCollection is the read side of the selection set.
type SelectionCollection interface {
	// Has reports whether id is selected.
	Has(id string) bool

	// IDs returns the selected ids.
	IDs() []string

	// Subscribe registers fn for change notifications and returns an unsubscribe function.
	Subscribe(fn func(domain.Change)) func()
}
