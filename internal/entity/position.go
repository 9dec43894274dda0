package entity

// PositionKind enumerates the abstract insertion points for ordered objects.
type PositionKind int

const (
	// PositionEnd appends at the current end of the order. The zero value,
	// so unspecified positions append.
	PositionEnd PositionKind = iota
	PositionStart
	PositionBefore
	PositionAfter
)

// Position describes an intended insertion point independent of current
// indexes. Before/After reference another object by id; when the referenced
// object is absent (e.g. concurrently deleted) insertion falls back to
// append-at-end.
type Position struct {
	Kind     PositionKind `json:"kind"`
	ObjectID string       `json:"object_id,omitempty"`
}

// AtStart positions at index 0.
func AtStart() Position { return Position{Kind: PositionStart} }

// AtEnd positions at the current length.
func AtEnd() Position { return Position{Kind: PositionEnd} }

// Before positions immediately before the object with the given id.
func Before(objectID string) Position {
	return Position{Kind: PositionBefore, ObjectID: objectID}
}

// After positions immediately after the object with the given id.
func After(objectID string) Position {
	return Position{Kind: PositionAfter, ObjectID: objectID}
}
