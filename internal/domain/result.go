package domain

// Result is a single search result as produced by the result pipeline.
// Selection is not stored here; it is derived from the selection set.
type Result struct {
	ID       string    `json:"id"`
	Geometry *Geometry `json:"geometry,omitempty"`
	Color    Color     `json:"color"`
}

// HasGeometry reports whether the result can be drawn.
func (r *Result) HasGeometry() bool {
	return r != nil && r.Geometry != nil
}
