package domain

// ChangeKind is the kind of a collection mutation.
type ChangeKind int

// Collection mutation kinds.
const (
	ChangeAdd ChangeKind = iota
	ChangeRemove
	ChangeReset
	ChangeUpdate
)

// String returns the kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeReset:
		return "reset"
	case ChangeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Change is delivered to collection subscribers after a mutation.
// IDs lists the affected ids; it is empty for a reset.
type Change struct {
	Kind ChangeKind
	IDs  []string
}
