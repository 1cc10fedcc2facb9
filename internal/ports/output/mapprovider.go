package output

import "github.com/jobrunner/atlas/internal/domain"

// EventKind is the kind of pointer event reported by an engine.
type EventKind string

// Pointer event kinds.
const (
	EventClick EventKind = "click"
	EventHover EventKind = "hover"
)

// MapEvent is a pointer event after engine hit-testing. IDs holds the result ids tagged on the
// picked primitive; it is empty when nothing was hit.
type MapEvent struct {
	Kind     EventKind
	IDs      []string
	Additive bool
}

// MapProvider defines the secondary port for a rendering engine.
// All other components depend on this interface, never on engine types.
type MapProvider interface {
	// Engine returns the kind of the underlying engine.
	Engine() domain.EngineKind

	// OnReady runs fn once the engine has finished initializing.
	// If the engine is already ready, fn runs immediately.
	OnReady(fn func())

	// IsReady reports whether the engine signalled readiness.
	IsReady() bool

	// CreateLayer instantiates the engine-native imagery layer for spec.
	CreateLayer(spec domain.LayerSpec) (domain.LayerHandle, error)

	// SetAlpha sets the opacity of a layer.
	SetAlpha(h domain.LayerHandle, alpha float64) error

	// SetVisible shows or hides a layer.
	SetVisible(h domain.LayerHandle, show bool) error

	// Reindex makes the engine layer stack match order (bottom to top).
	// order must be a permutation of the current layers.
	Reindex(order []domain.LayerHandle) error

	// LayerOrder returns the current layer stack, bottom to top.
	LayerOrder() []domain.LayerHandle

	// RemoveLayer removes a layer from the engine.
	RemoveLayer(h domain.LayerHandle) error

	// AddPrimitive materializes a point or line in the scene.
	AddPrimitive(p domain.Primitive, tag domain.Tag, style domain.Style) (domain.PrimitiveHandle, error)

	// SetStyle restyles a primitive.
	SetStyle(h domain.PrimitiveHandle, style domain.Style) error

	// SetShow toggles primitive visibility without changing its style otherwise.
	SetShow(h domain.PrimitiveHandle, show bool) error

	// RemovePrimitive removes a primitive from the scene.
	RemovePrimitive(h domain.PrimitiveHandle) error

	// PrimitiveCount returns the number of live primitives.
	PrimitiveCount() int

	// Subscribe registers fn for pointer events and returns an unsubscribe function.
	Subscribe(fn func(MapEvent)) func()

	// Destroy releases every engine resource. It is safe to call more than once.
	Destroy()
}
