package domain

// PrimitiveKind distinguishes renderable primitives.
type PrimitiveKind int

// Primitive kinds.
const (
	PrimitivePoint PrimitiveKind = iota
	PrimitiveLine
)

// String returns the kind name.
func (k PrimitiveKind) String() string {
	switch k {
	case PrimitivePoint:
		return "point"
	case PrimitiveLine:
		return "line"
	default:
		return "unknown"
	}
}

// Primitive is a single drawable element decoded from a geometry.
// A point uses Coords[0]; a line uses all of Coords and is a ring when Closed is set.
type Primitive struct {
	Kind   PrimitiveKind
	Coords []Coordinate
	Closed bool
}

// PointPrimitive creates a point primitive.
func PointPrimitive(c Coordinate) Primitive {
	return Primitive{Kind: PrimitivePoint, Coords: []Coordinate{c}}
}

// LinePrimitive creates a line primitive.
func LinePrimitive(coords []Coordinate, closed bool) Primitive {
	return Primitive{Kind: PrimitiveLine, Coords: coords, Closed: closed}
}

// PrimitiveHandle identifies a primitive in the engine scene. Zero is invalid.
type PrimitiveHandle uint64

// Tag travels with every primitive so engine hit-testing can report which results it
// belongs to. Cluster markers carry all member ids.
type Tag struct {
	IDs   []string
	Color Color
}

// Style is the visual state applied to a primitive.
type Style struct {
	Fill    Color
	Outline Color
	Text    Color
	Label   string
	Scale   float64
	Width   float64
	Show    bool
}

// SelectionState is the tri-state selection of an aggregate.
type SelectionState int

// Selection states.
const (
	SelectionNone SelectionState = iota
	SelectionPartial
	SelectionFull
)

// String returns the state name.
func (s SelectionState) String() string {
	switch s {
	case SelectionPartial:
		return "partial"
	case SelectionFull:
		return "full"
	default:
		return "none"
	}
}

// ResolveSelection computes the tri-state of a group of ids against a membership test.
// An empty group resolves to none.
func ResolveSelection(ids []string, selected func(string) bool) SelectionState {
	n := 0
	for _, id := range ids {
		if selected(id) {
			n++
		}
	}
	switch {
	case n == 0:
		return SelectionNone
	case n == len(ids):
		return SelectionFull
	default:
		return SelectionPartial
	}
}

// Style parameters for individually rendered results.
const (
	SelectedScale   = 1.5
	UnselectedScale = 1.0
	SelectedWidth   = 4.0
	UnselectedWidth = 2.0
	UnselectedAlpha = 0.6
)

// ResultStyle returns the style of a result primitive.
func ResultStyle(base Color, selected bool) Style {
	if selected {
		return Style{
			Fill:    base,
			Outline: Black,
			Scale:   SelectedScale,
			Width:   SelectedWidth,
			Show:    true,
		}
	}
	return Style{
		Fill:    base.WithAlpha(UnselectedAlpha),
		Outline: White,
		Scale:   UnselectedScale,
		Width:   UnselectedWidth,
		Show:    true,
	}
}

// ClusterStyle returns the style of a cluster marker for the given selection state.
func ClusterStyle(base, emphasis Color, state SelectionState, label string) Style {
	s := Style{
		Fill:    base,
		Outline: White,
		Text:    White,
		Label:   label,
		Scale:   SelectedScale,
		Width:   UnselectedWidth,
		Show:    true,
	}
	switch state {
	case SelectionFull:
		s.Fill = emphasis
		s.Outline = Black
		s.Text = Black
	case SelectionPartial:
		s.Outline = Black
	}
	return s
}

// HullStyle returns the style of a cluster hull outline.
func HullStyle(base Color, show bool) Style {
	return Style{
		Fill:    base,
		Outline: base,
		Width:   UnselectedWidth,
		Show:    show,
	}
}
