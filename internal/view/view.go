// Package view manages a database view's document state: the ordered row and
// field stand-ins, the id-keyed record collections (filters, sorts, group
// settings, calculations), and per-layout and per-field settings. Views never
// store row payloads, only orderings over them.
package view

import (
	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
)

const (
	keyViewID         = "id"
	keyDatabaseID     = "database_id"
	keyName           = "name"
	keyLayout         = "layout"
	keyCreatedAt      = "created_at"
	keyModifiedAt     = "modified_at"
	keyRowOrders      = "row_orders"
	keyFieldOrders    = "field_orders"
	keyFilters        = "filters"
	keySorts          = "sorts"
	keyGroupSettings  = "group_settings"
	keyCalculations   = "calculations"
	keyLayoutSettings = "layout_settings"
	keyFieldSettings  = "field_settings"
)

// View wraps one view's map inside the database document. It is only valid
// inside the transaction scope its methods receive.
type View struct {
	m *doc.Map
}

// Wrap adapts a view map. The map belongs to the database document's views
// container.
func Wrap(m *doc.Map) *View { return &View{m: m} }

// Fill initializes the view map from creation params plus the initial field
// and row orders. Must run inside a write transaction.
func (v *View) Fill(tx *doc.Tx, params entity.CreateViewParams, fieldOrders []entity.FieldOrder, rowOrders []entity.RowOrder) {
	now := entity.Timestamp()
	v.m.Set(tx, keyViewID, params.ViewID)
	v.m.Set(tx, keyDatabaseID, params.DatabaseID)
	v.m.Set(tx, keyName, params.Name)
	v.m.Set(tx, keyLayout, int64(params.Layout))
	v.m.Set(tx, keyCreatedAt, now)
	v.m.Set(tx, keyModifiedAt, now)

	v.FieldOrderArray(tx).ReplaceAll(tx, fieldOrders)
	v.RowOrderArray(tx).ReplaceAll(tx, rowOrders)
	v.Filters(tx).ReplaceAll(tx, params.Filters)
	v.Sorts(tx).ReplaceAll(tx, params.Sorts)
	v.GroupSettings(tx).ReplaceAll(tx, params.GroupSettings)
	v.m.GetOrCreateArray(tx, keyCalculations)

	ls := v.m.GetOrCreateMap(tx, keyLayoutSettings)
	for layout, settings := range params.LayoutSettings {
		ls.Set(tx, layout.String(), settings)
	}
	fs := v.m.GetOrCreateMap(tx, keyFieldSettings)
	for fieldID, settings := range params.FieldSettings {
		fs.Set(tx, fieldID, settings)
	}
}

// ID returns the view id.
func (v *View) ID(tx *doc.Tx) string {
	id, _ := v.m.GetString(tx, keyViewID)
	return id
}

// Name returns the view name.
func (v *View) Name(tx *doc.Tx) string {
	name, _ := v.m.GetString(tx, keyName)
	return name
}

// SetName renames the view and refreshes its modification time.
func (v *View) SetName(tx *doc.Tx, name string) {
	v.m.Set(tx, keyName, name)
	v.touch(tx)
}

// Layout returns the view layout.
func (v *View) Layout(tx *doc.Tx) entity.Layout {
	l, _ := v.m.GetInt(tx, keyLayout)
	return entity.Layout(l)
}

// SetLayout switches the layout and refreshes the modification time.
// Settings of other layouts are kept, so switching back is lossless.
func (v *View) SetLayout(tx *doc.Tx, layout entity.Layout) {
	v.m.Set(tx, keyLayout, int64(layout))
	v.touch(tx)
}

// RowOrderArray returns the typed row order list, creating it if absent.
func (v *View) RowOrderArray(tx *doc.Tx) *OrderArray[entity.RowOrder] {
	return newOrderArray(v.m.GetOrCreateArray(tx, keyRowOrders), encodeRowOrder, decodeRowOrder)
}

// FieldOrderArray returns the typed field order list, creating it if absent.
func (v *View) FieldOrderArray(tx *doc.Tx) *OrderArray[entity.FieldOrder] {
	return newOrderArray(v.m.GetOrCreateArray(tx, keyFieldOrders), encodeFieldOrder, decodeFieldOrder)
}

// RowOrders returns the current row order front to back.
func (v *View) RowOrders(tx *doc.Tx) []entity.RowOrder {
	arr, ok := v.m.GetArray(tx, keyRowOrders)
	if !ok {
		return nil
	}
	return newOrderArray(arr, encodeRowOrder, decodeRowOrder).All(tx)
}

// FieldOrders returns the current field order front to back.
func (v *View) FieldOrders(tx *doc.Tx) []entity.FieldOrder {
	arr, ok := v.m.GetArray(tx, keyFieldOrders)
	if !ok {
		return nil
	}
	return newOrderArray(arr, encodeFieldOrder, decodeFieldOrder).All(tx)
}

// Filters returns the view's filter records, creating the collection if
// absent.
func (v *View) Filters(tx *doc.Tx) *RecordArray {
	return newRecordArray(v.m.GetOrCreateArray(tx, keyFilters))
}

// Sorts returns the view's sort records.
func (v *View) Sorts(tx *doc.Tx) *RecordArray {
	return newRecordArray(v.m.GetOrCreateArray(tx, keySorts))
}

// GroupSettings returns the view's grouping records.
func (v *View) GroupSettings(tx *doc.Tx) *RecordArray {
	return newRecordArray(v.m.GetOrCreateArray(tx, keyGroupSettings))
}

// Calculations returns the view's calculation records.
func (v *View) Calculations(tx *doc.Tx) *RecordArray {
	return newRecordArray(v.m.GetOrCreateArray(tx, keyCalculations))
}

// LayoutSetting returns the settings map for one layout, or nil.
func (v *View) LayoutSetting(tx *doc.Tx, layout entity.Layout) map[string]any {
	ls, ok := v.m.GetMap(tx, keyLayoutSettings)
	if !ok {
		return nil
	}
	m, ok := ls.GetMap(tx, layout.String())
	if !ok {
		return nil
	}
	return m.ToGo(tx)
}

// SetLayoutSetting replaces the settings map for one layout.
func (v *View) SetLayoutSetting(tx *doc.Tx, layout entity.Layout, settings map[string]any) {
	v.m.GetOrCreateMap(tx, keyLayoutSettings).Set(tx, layout.String(), settings)
	v.touch(tx)
}

// FieldSetting returns one field's per-view settings, or nil.
func (v *View) FieldSetting(tx *doc.Tx, fieldID string) map[string]any {
	fs, ok := v.m.GetMap(tx, keyFieldSettings)
	if !ok {
		return nil
	}
	m, ok := fs.GetMap(tx, fieldID)
	if !ok {
		return nil
	}
	return m.ToGo(tx)
}

// SetFieldSetting replaces one field's per-view settings.
func (v *View) SetFieldSetting(tx *doc.Tx, fieldID string, settings map[string]any) {
	v.m.GetOrCreateMap(tx, keyFieldSettings).Set(tx, fieldID, settings)
	v.touch(tx)
}

// RemoveFieldSetting drops one field's per-view settings.
func (v *View) RemoveFieldSetting(tx *doc.Tx, fieldID string) {
	if fs, ok := v.m.GetMap(tx, keyFieldSettings); ok {
		fs.Delete(tx, fieldID)
	}
}

// Touch refreshes the view's modification time.
func (v *View) Touch(tx *doc.Tx) { v.touch(tx) }

func (v *View) touch(tx *doc.Tx) {
	v.m.Set(tx, keyModifiedAt, entity.Timestamp())
}

// Materialize reads the whole view into its entity form.
func (v *View) Materialize(tx *doc.Tx) entity.DatabaseView {
	out := entity.DatabaseView{
		ID:          v.ID(tx),
		Name:        v.Name(tx),
		Layout:      v.Layout(tx),
		RowOrders:   v.RowOrders(tx),
		FieldOrders: v.FieldOrders(tx),
	}
	out.DatabaseID, _ = v.m.GetString(tx, keyDatabaseID)
	out.CreatedAt, _ = v.m.GetInt(tx, keyCreatedAt)
	out.ModifiedAt, _ = v.m.GetInt(tx, keyModifiedAt)

	if arr, ok := v.m.GetArray(tx, keyFilters); ok {
		out.Filters = newRecordArray(arr).All(tx)
	}
	if arr, ok := v.m.GetArray(tx, keySorts); ok {
		out.Sorts = newRecordArray(arr).All(tx)
	}
	if arr, ok := v.m.GetArray(tx, keyGroupSettings); ok {
		out.GroupSettings = newRecordArray(arr).All(tx)
	}
	if arr, ok := v.m.GetArray(tx, keyCalculations); ok {
		out.Calculations = newRecordArray(arr).All(tx)
	}
	if ls, ok := v.m.GetMap(tx, keyLayoutSettings); ok && ls.Len(tx) > 0 {
		out.LayoutSettings = entity.LayoutSettings{}
		for _, key := range ls.Keys(tx) {
			if m, found := ls.GetMap(tx, key); found {
				out.LayoutSettings[layoutFromKey(key)] = m.ToGo(tx)
			}
		}
	}
	if fs, ok := v.m.GetMap(tx, keyFieldSettings); ok && fs.Len(tx) > 0 {
		out.FieldSettings = entity.FieldSettings{}
		for _, fieldID := range fs.Keys(tx) {
			if m, found := fs.GetMap(tx, fieldID); found {
				out.FieldSettings[fieldID] = m.ToGo(tx)
			}
		}
	}
	return out
}

// Description returns the id/name listing entry.
func (v *View) Description(tx *doc.Tx) entity.ViewDescription {
	return entity.ViewDescription{ID: v.ID(tx), Name: v.Name(tx)}
}

func layoutFromKey(key string) entity.Layout {
	switch key {
	case "board":
		return entity.LayoutBoard
	case "calendar":
		return entity.LayoutCalendar
	default:
		return entity.LayoutGrid
	}
}
