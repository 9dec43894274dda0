package database

import (
	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/view"
)

// withViewRead runs fn against a view under a read snapshot.
func (db *Database) withViewRead(viewID string, fn func(tx *doc.Tx, v *view.View)) error {
	err := ErrViewNotFound
	db.doc.View(func(tx *doc.Tx) {
		vm, ok := db.views.GetMap(tx, viewID)
		if !ok {
			return
		}
		err = nil
		fn(tx, view.Wrap(vm))
	})
	return err
}

// withView runs fn against a view inside a write transaction and flushes on
// success.
func (db *Database) withView(viewID string, fn func(tx *doc.Tx, v *view.View) error) error {
	err := ErrViewNotFound
	db.doc.Update(func(tx *doc.Tx) {
		vm, ok := db.views.GetMap(tx, viewID)
		if !ok {
			return
		}
		err = fn(tx, view.Wrap(vm))
	})
	if err != nil {
		return err
	}
	return db.flush()
}

// CreateLinkedView adds a view over the same records. The new view inherits
// the inline view's row and field orders; fields named in DeducedFields that
// do not exist yet are created first and appended to every view's order, the
// same way CreateField fans a new field out.
func (db *Database) CreateLinkedView(params entity.CreateViewParams) (entity.DatabaseView, error) {
	params.DatabaseID = db.id
	params, err := params.Validate()
	if err != nil {
		return entity.DatabaseView{}, err
	}

	var created entity.DatabaseView
	var newFields []entity.Field
	var changes []ViewChange
	db.doc.Update(func(tx *doc.Tx) {
		var rowOrders []entity.RowOrder
		var fieldOrders []entity.FieldOrder
		if inline, ok := db.inlineView(tx); ok {
			rowOrders = inline.RowOrders(tx)
			fieldOrders = inline.FieldOrders(tx)
		} else {
			for _, fieldID := range db.fields.Keys(tx) {
				fieldOrders = append(fieldOrders, entity.FieldOrder{ID: fieldID})
			}
		}

		for _, f := range params.DeducedFields {
			if _, exists := db.fields.GetMap(tx, f.ID); !exists {
				db.fields.Set(tx, f.ID, fieldToMap(f))
				newFields = append(newFields, f)
			}
		}

		// The new view is not registered yet, so this reaches only the
		// pre-existing views. The seed orders pick the fields up for the
		// view being created.
		for _, f := range newFields {
			order := entity.FieldOrder{ID: f.ID}
			fieldOrders = append(fieldOrders, order)
			db.eachView(tx, func(id string, v *view.View) {
				index := v.FieldOrderArray(tx).InsertAt(tx, order, entity.AtEnd())
				changes = append(changes, ViewChange{
					Kind:         FieldOrdersChanged,
					ViewID:       id,
					FieldInserts: []FieldOrderInsert{{Order: order, Index: index}},
				})
			})
		}

		vm := db.views.GetOrCreateMap(tx, params.ViewID)
		v := view.Wrap(vm)
		v.Fill(tx, params, fieldOrders, rowOrders)
		created = v.Materialize(tx)
	})
	if err := db.flush(); err != nil {
		return entity.DatabaseView{}, err
	}
	for _, f := range newFields {
		db.fieldEvents.Send(FieldChange{Kind: FieldCreated, Field: f})
	}
	db.emitViewChanges(changes)
	db.viewEvents.Send(ViewChange{Kind: ViewCreated, ViewID: created.ID, View: &created})
	db.logger.Info("linked view created", "view_id", created.ID, "name", created.Name)
	return created, nil
}

// DeleteView removes a linked view. Deleting the inline view deletes every
// view, since linked views cannot outlive the records container they were
// linked to.
func (db *Database) DeleteView(viewID string) error {
	var deleted []string
	db.doc.Update(func(tx *doc.Tx) {
		inlineID, _ := db.metas.GetString(tx, keyInlineView)
		if viewID == inlineID {
			deleted = db.views.Keys(tx)
			db.views.Clear(tx)
			return
		}
		if _, ok := db.views.GetMap(tx, viewID); ok {
			db.views.Delete(tx, viewID)
			deleted = []string{viewID}
		}
	})
	if len(deleted) == 0 {
		return ErrViewNotFound
	}
	if err := db.flush(); err != nil {
		return err
	}
	for _, id := range deleted {
		db.viewEvents.Send(ViewChange{Kind: ViewDeleted, ViewID: id})
	}
	return nil
}

// DuplicateLinkedView copies a linked view under a fresh id with a "-copy"
// name suffix. The inline view cannot be duplicated this way.
func (db *Database) DuplicateLinkedView(viewID string) (entity.DatabaseView, error) {
	if viewID == db.InlineViewID() {
		return entity.DatabaseView{}, ErrInlineViewRequired
	}
	var src entity.DatabaseView
	if err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		src = v.Materialize(tx)
	}); err != nil {
		return entity.DatabaseView{}, err
	}

	params := entity.CreateViewParams{
		DatabaseID:     db.id,
		ViewID:         entity.GenViewID(),
		Name:           src.Name + "-copy",
		Layout:         src.Layout,
		LayoutSettings: src.LayoutSettings,
		Filters:        src.Filters,
		GroupSettings:  src.GroupSettings,
		Sorts:          src.Sorts,
		FieldSettings:  src.FieldSettings,
	}
	var created entity.DatabaseView
	db.doc.Update(func(tx *doc.Tx) {
		vm := db.views.GetOrCreateMap(tx, params.ViewID)
		v := view.Wrap(vm)
		v.Fill(tx, params, src.FieldOrders, src.RowOrders)
		v.Calculations(tx).ReplaceAll(tx, src.Calculations)
		created = v.Materialize(tx)
	})
	if err := db.flush(); err != nil {
		return entity.DatabaseView{}, err
	}
	db.viewEvents.Send(ViewChange{Kind: ViewCreated, ViewID: created.ID, View: &created})
	return created, nil
}

// GetView materializes one view.
func (db *Database) GetView(viewID string) (entity.DatabaseView, error) {
	var out entity.DatabaseView
	err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		out = v.Materialize(tx)
	})
	return out, err
}

// GetAllViews materializes every view.
func (db *Database) GetAllViews() []entity.DatabaseView {
	var out []entity.DatabaseView
	db.doc.View(func(tx *doc.Tx) {
		db.eachView(tx, func(_ string, v *view.View) {
			out = append(out, v.Materialize(tx))
		})
	})
	return out
}

// ViewDescriptions lists every view's id and name.
func (db *Database) ViewDescriptions() []entity.ViewDescription {
	var out []entity.ViewDescription
	db.doc.View(func(tx *doc.Tx) {
		db.eachView(tx, func(_ string, v *view.View) {
			out = append(out, v.Description(tx))
		})
	})
	return out
}

// UpdateViewName renames a view.
func (db *Database) UpdateViewName(viewID, name string) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.SetName(tx, name)
	})
}

// UpdateViewLayout switches a view's layout. Other layouts' settings are
// retained.
func (db *Database) UpdateViewLayout(viewID string, layout entity.Layout) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.SetLayout(tx, layout)
	})
}

// UpdateLayoutSetting replaces one layout's settings map for a view.
func (db *Database) UpdateLayoutSetting(viewID string, layout entity.Layout, settings map[string]any) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.SetLayoutSetting(tx, layout, settings)
	})
}

// GetLayoutSetting returns one layout's settings map for a view.
func (db *Database) GetLayoutSetting(viewID string, layout entity.Layout) (map[string]any, error) {
	var out map[string]any
	err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		out = v.LayoutSetting(tx, layout)
	})
	return out, err
}

// UpsertFilter inserts or replaces a filter record in a view.
func (db *Database) UpsertFilter(viewID string, record entity.RecordMap) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.Filters(tx).Upsert(tx, record)
	})
}

// RemoveFilter deletes a filter record from a view.
func (db *Database) RemoveFilter(viewID, filterID string) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.Filters(tx).RemoveByID(tx, filterID)
	})
}

// GetFilters returns a view's filter records.
func (db *Database) GetFilters(viewID string) ([]entity.RecordMap, error) {
	var out []entity.RecordMap
	err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		out = v.Filters(tx).All(tx)
	})
	return out, err
}

// UpsertSort inserts or replaces a sort record in a view.
func (db *Database) UpsertSort(viewID string, record entity.RecordMap) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.Sorts(tx).Upsert(tx, record)
	})
}

// MoveSort repositions a sort record inside a view.
func (db *Database) MoveSort(viewID, sortID string, pos entity.Position) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.Sorts(tx).Move(tx, sortID, pos)
	})
}

// RemoveSort deletes a sort record from a view.
func (db *Database) RemoveSort(viewID, sortID string) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.Sorts(tx).RemoveByID(tx, sortID)
	})
}

// RemoveAllSorts clears a view's sort records.
func (db *Database) RemoveAllSorts(viewID string) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.Sorts(tx).Clear(tx)
	})
}

// GetSorts returns a view's sort records.
func (db *Database) GetSorts(viewID string) ([]entity.RecordMap, error) {
	var out []entity.RecordMap
	err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		out = v.Sorts(tx).All(tx)
	})
	return out, err
}

// UpsertGroupSetting inserts or replaces a grouping record in a view.
func (db *Database) UpsertGroupSetting(viewID string, record entity.RecordMap) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.GroupSettings(tx).Upsert(tx, record)
	})
}

// UpdateGroupSetting applies fn to a grouping record in place.
func (db *Database) UpdateGroupSetting(viewID, groupID string, fn func(entity.RecordMap)) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.GroupSettings(tx).UpdateByID(tx, groupID, fn)
	})
}

// RemoveGroupSetting deletes a grouping record from a view.
func (db *Database) RemoveGroupSetting(viewID, groupID string) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.GroupSettings(tx).RemoveByID(tx, groupID)
	})
}

// GetGroupSettings returns a view's grouping records.
func (db *Database) GetGroupSettings(viewID string) ([]entity.RecordMap, error) {
	var out []entity.RecordMap
	err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		out = v.GroupSettings(tx).All(tx)
	})
	return out, err
}

// UpsertCalculation inserts or replaces a calculation record in a view.
func (db *Database) UpsertCalculation(viewID string, record entity.RecordMap) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.Calculations(tx).Upsert(tx, record)
	})
}

// RemoveCalculation deletes a calculation record from a view.
func (db *Database) RemoveCalculation(viewID, calculationID string) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.Calculations(tx).RemoveByID(tx, calculationID)
	})
}

// GetCalculations returns a view's calculation records.
func (db *Database) GetCalculations(viewID string) ([]entity.RecordMap, error) {
	var out []entity.RecordMap
	err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		out = v.Calculations(tx).All(tx)
	})
	return out, err
}

// UpdateFieldSetting replaces one field's per-view settings.
func (db *Database) UpdateFieldSetting(viewID, fieldID string, settings map[string]any) error {
	return db.updateView(viewID, func(tx *doc.Tx, v *view.View) {
		v.SetFieldSetting(tx, fieldID, settings)
	})
}

// GetFieldSetting returns one field's per-view settings.
func (db *Database) GetFieldSetting(viewID, fieldID string) (map[string]any, error) {
	var out map[string]any
	err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		out = v.FieldSetting(tx, fieldID)
	})
	return out, err
}

// updateView is withView plus a ViewUpdated event on success.
func (db *Database) updateView(viewID string, fn func(tx *doc.Tx, v *view.View)) error {
	err := db.withView(viewID, func(tx *doc.Tx, v *view.View) error {
		fn(tx, v)
		return nil
	})
	if err != nil {
		return err
	}
	db.viewEvents.Send(ViewChange{Kind: ViewUpdated, ViewID: viewID})
	return nil
}
