package entity

// Layout enumerates the visual layouts a view can use.
type Layout int64

const (
	LayoutGrid Layout = iota
	LayoutBoard
	LayoutCalendar
)

// String returns the layout's settings key.
func (l Layout) String() string {
	switch l {
	case LayoutBoard:
		return "board"
	case LayoutCalendar:
		return "calendar"
	default:
		return "grid"
	}
}

// FieldOrder is the stand-in referencing a field definition held in the
// database's field map.
type FieldOrder struct {
	ID string `json:"id"`
}

// OrderID implements view ordering identity.
func (f FieldOrder) OrderID() string { return f.ID }

// Field is a column definition shared by every view of a database.
type Field struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	FieldType   int64          `json:"field_type"`
	Primary     bool           `json:"is_primary"`
	TypeOptions map[string]any `json:"type_options,omitempty"`
}

// NewField creates a non-primary field with a generated id.
func NewField(name string, fieldType int64) Field {
	return Field{ID: GenFieldID(), Name: name, FieldType: fieldType}
}

// RecordMap is an id-keyed map record stored in a view's record collections
// (filters, sorts, group settings, calculations). The "id" key is required.
type RecordMap = map[string]any

// LayoutSettings maps a layout to its settings map.
type LayoutSettings map[Layout]map[string]any

// FieldSettings maps a field id to its per-view settings map.
type FieldSettings map[string]map[string]any

// DatabaseView is the materialized state of one view.
type DatabaseView struct {
	ID             string         `json:"id"`
	DatabaseID     string         `json:"database_id"`
	Name           string         `json:"name"`
	Layout         Layout         `json:"layout"`
	LayoutSettings LayoutSettings `json:"layout_settings,omitempty"`
	Filters        []RecordMap    `json:"filters,omitempty"`
	GroupSettings  []RecordMap    `json:"group_settings,omitempty"`
	Sorts          []RecordMap    `json:"sorts,omitempty"`
	Calculations   []RecordMap    `json:"calculations,omitempty"`
	FieldSettings  FieldSettings  `json:"field_settings,omitempty"`
	RowOrders      []RowOrder     `json:"row_orders"`
	FieldOrders    []FieldOrder   `json:"field_orders"`
	CreatedAt      int64          `json:"created_at"`
	ModifiedAt     int64          `json:"modified_at"`
}

// ViewDescription is the id/name pair used for listings.
type ViewDescription struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DatabaseMeta is the registry entry mapping a database to its views.
type DatabaseMeta struct {
	DatabaseID   string   `json:"database_id"`
	InlineViewID string   `json:"inline_view_id"`
	CreatedAt    int64    `json:"created_at"`
	LinkedViews  []string `json:"linked_views"`
}

// CreateViewParams describes a view to create.
type CreateViewParams struct {
	DatabaseID     string         `json:"database_id"`
	ViewID         string         `json:"view_id"`
	Name           string         `json:"name"`
	Layout         Layout         `json:"layout"`
	LayoutSettings LayoutSettings `json:"layout_settings,omitempty"`
	Filters        []RecordMap    `json:"filters,omitempty"`
	GroupSettings  []RecordMap    `json:"group_settings,omitempty"`
	Sorts          []RecordMap    `json:"sorts,omitempty"`
	FieldSettings  FieldSettings  `json:"field_settings,omitempty"`
	// DeducedFields are field definitions the view depends on that may not
	// exist yet in the database; missing ones are created on view creation.
	DeducedFields []Field `json:"deduced_fields,omitempty"`
}

// NewCreateViewParams returns params for an empty view.
func NewCreateViewParams(databaseID, viewID, name string, layout Layout) CreateViewParams {
	return CreateViewParams{
		DatabaseID: databaseID,
		ViewID:     viewID,
		Name:       name,
		Layout:     layout,
	}
}

// Validate rejects empty database and view ids.
func (p CreateViewParams) Validate() (CreateViewParams, error) {
	if p.DatabaseID == "" || p.ViewID == "" {
		return p, ErrInvalidID
	}
	return p, nil
}

// CreateDatabaseParams describes a database plus its inline view, initial
// fields, and initial rows.
type CreateDatabaseParams struct {
	DatabaseID     string            `json:"database_id"`
	InlineViewID   string            `json:"inline_view_id"`
	Name           string            `json:"name"`
	Layout         Layout            `json:"layout"`
	LayoutSettings LayoutSettings    `json:"layout_settings,omitempty"`
	Filters        []RecordMap       `json:"filters,omitempty"`
	GroupSettings  []RecordMap       `json:"group_settings,omitempty"`
	Sorts          []RecordMap       `json:"sorts,omitempty"`
	FieldSettings  FieldSettings     `json:"field_settings,omitempty"`
	Fields         []Field           `json:"fields,omitempty"`
	Rows           []CreateRowParams `json:"rows,omitempty"`
}

// DatabaseData is the read-only full snapshot used for export and
// duplication.
type DatabaseData struct {
	DatabaseID string         `json:"database_id"`
	Fields     []Field        `json:"fields"`
	Views      []DatabaseView `json:"views"`
	Rows       []Row          `json:"rows"`
}
