package database

import (
	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/view"
)

// CreateField defines a new field and inserts its stand-in into every view.
// When viewID is given only that view resolves the requested position and
// the rest append, so a field's visual placement can differ per view while
// staying universally visible. An empty viewID applies the position
// everywhere.
func (db *Database) CreateField(viewID string, f entity.Field, pos entity.Position) (entity.Field, error) {
	if f.ID == "" {
		return entity.Field{}, entity.ErrInvalidID
	}
	var changes []ViewChange
	db.doc.Update(func(tx *doc.Tx) {
		db.fields.Set(tx, f.ID, fieldToMap(f))
		order := entity.FieldOrder{ID: f.ID}
		db.eachView(tx, func(id string, v *view.View) {
			p := pos
			if viewID != "" && id != viewID {
				p = entity.AtEnd()
			}
			index := v.FieldOrderArray(tx).InsertAt(tx, order, p)
			changes = append(changes, ViewChange{
				Kind:         FieldOrdersChanged,
				ViewID:       id,
				FieldInserts: []FieldOrderInsert{{Order: order, Index: index}},
			})
		})
	})
	if err := db.flush(); err != nil {
		return entity.Field{}, err
	}
	db.fieldEvents.Send(FieldChange{Kind: FieldCreated, Field: f})
	db.emitViewChanges(changes)
	return f, nil
}

// GetField returns one field definition.
func (db *Database) GetField(fieldID string) (entity.Field, error) {
	var out entity.Field
	err := ErrFieldNotFound
	db.doc.View(func(tx *doc.Tx) {
		if fm, ok := db.fields.GetMap(tx, fieldID); ok {
			if f, decoded := fieldFromMap(tx, fm); decoded {
				out = f
				err = nil
			}
		}
	})
	return out, err
}

// GetFields returns the field definitions in the given view's order. Orders
// referencing undefined fields are skipped.
func (db *Database) GetFields(viewID string) ([]entity.Field, error) {
	var out []entity.Field
	err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		for _, order := range v.FieldOrders(tx) {
			if fm, ok := db.fields.GetMap(tx, order.ID); ok {
				if f, decoded := fieldFromMap(tx, fm); decoded {
					out = append(out, f)
				}
			}
		}
	})
	return out, err
}

// GetPrimaryField returns the field marked primary, if any.
func (db *Database) GetPrimaryField() (entity.Field, bool) {
	var out entity.Field
	var found bool
	db.doc.View(func(tx *doc.Tx) {
		for _, fieldID := range db.fields.Keys(tx) {
			fm, ok := db.fields.GetMap(tx, fieldID)
			if !ok {
				continue
			}
			if f, decoded := fieldFromMap(tx, fm); decoded && f.Primary {
				out = f
				found = true
				return
			}
		}
	})
	return out, found
}

// UpdateField applies fn to a copy of the field and writes the result back.
// The field id cannot change.
func (db *Database) UpdateField(fieldID string, fn func(*entity.Field)) (entity.Field, error) {
	var out entity.Field
	err := ErrFieldNotFound
	db.doc.Update(func(tx *doc.Tx) {
		fm, ok := db.fields.GetMap(tx, fieldID)
		if !ok {
			return
		}
		f, decoded := fieldFromMap(tx, fm)
		if !decoded {
			return
		}
		fn(&f)
		f.ID = fieldID
		db.fields.Set(tx, fieldID, fieldToMap(f))
		out = f
		err = nil
	})
	if err != nil {
		return entity.Field{}, err
	}
	if err := db.flush(); err != nil {
		return entity.Field{}, err
	}
	db.fieldEvents.Send(FieldChange{Kind: FieldUpdated, Field: out})
	return out, nil
}

// DeleteField removes a field definition, its stand-in from every view's
// order, and its per-view settings. Cells keyed by the field stay in the row
// documents and are simply never projected again.
func (db *Database) DeleteField(fieldID string) error {
	var deleted entity.Field
	var found bool
	var changes []ViewChange
	db.doc.Update(func(tx *doc.Tx) {
		fm, ok := db.fields.GetMap(tx, fieldID)
		if !ok {
			return
		}
		deleted, found = fieldFromMap(tx, fm)
		db.fields.Delete(tx, fieldID)
		db.eachView(tx, func(viewID string, v *view.View) {
			if i, removed := v.FieldOrderArray(tx).RemoveByID(tx, fieldID); removed {
				changes = append(changes, ViewChange{
					Kind:               FieldOrdersChanged,
					ViewID:             viewID,
					FieldDeleteIndexes: []int{i},
				})
			}
			v.RemoveFieldSetting(tx, fieldID)
		})
	})
	if !found {
		return ErrFieldNotFound
	}
	if err := db.flush(); err != nil {
		return err
	}
	db.fieldEvents.Send(FieldChange{Kind: FieldDeleted, Field: deleted})
	db.emitViewChanges(changes)
	return nil
}

// MoveField repositions a field inside one view only. The emitted diff
// expresses both indexes against the pre-move order.
func (db *Database) MoveField(viewID, fieldID string, pos entity.Position) error {
	var change *ViewChange
	err := db.withView(viewID, func(tx *doc.Tx, v *view.View) error {
		from, to, ok := v.FieldOrderArray(tx).Move(tx, fieldID, pos)
		if !ok {
			return nil
		}
		change = &ViewChange{
			Kind:               FieldOrdersChanged,
			ViewID:             viewID,
			FieldInserts:       []FieldOrderInsert{{Order: entity.FieldOrder{ID: fieldID}, Index: to}},
			FieldDeleteIndexes: []int{from},
		}
		return nil
	})
	if err != nil {
		return err
	}
	if change == nil {
		return nil
	}
	db.emitViewChanges([]ViewChange{*change})
	return nil
}
