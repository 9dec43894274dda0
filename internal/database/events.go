package database

import "github.com/quiltdb/quilt/internal/entity"

// ViewChangeKind classifies a view-level change event.
type ViewChangeKind int

const (
	// ViewCreated announces a new view; View carries its full state.
	ViewCreated ViewChangeKind = iota
	// ViewDeleted announces a removed view.
	ViewDeleted
	// ViewUpdated announces a settings-level change (name, layout, filters,
	// sorts, groups, calculations, layout or field settings).
	ViewUpdated
	// RowOrdersChanged announces a row-order diff; see Inserts and
	// DeleteIndexes.
	RowOrdersChanged
	// FieldOrdersChanged announces a field-order diff.
	FieldOrdersChanged
)

// RowOrderInsert is one inserted row stand-in and the index it was aimed at.
type RowOrderInsert struct {
	Order entity.RowOrder
	Index int
}

// FieldOrderInsert is one inserted field stand-in and its target index.
type FieldOrderInsert struct {
	Order entity.FieldOrder
	Index int
}

// ViewChange is one view-level change. For order diffs, both the delete
// indexes and the insert indexes are expressed against the order as it stood
// before the mutation; consumers apply inserts first, then deletes from the
// highest index down.
type ViewChange struct {
	Kind   ViewChangeKind
	ViewID string

	// View is set for ViewCreated.
	View *entity.DatabaseView

	// Row order diff, set for RowOrdersChanged.
	Inserts       []RowOrderInsert
	DeleteIndexes []int

	// Field order diff, set for FieldOrdersChanged.
	FieldInserts       []FieldOrderInsert
	FieldDeleteIndexes []int
}

// FieldChangeKind classifies a field-level change event.
type FieldChangeKind int

const (
	FieldCreated FieldChangeKind = iota
	FieldUpdated
	FieldDeleted
)

// FieldChange is one change to the shared field definitions.
type FieldChange struct {
	Kind  FieldChangeKind
	Field entity.Field
}
