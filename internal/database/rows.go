package database

import (
	"fmt"

	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/row"
	"github.com/quiltdb/quilt/internal/view"
)

// CreateRow persists a new row and inserts its stand-in into every view.
// The inline view is treated as the originating view for the requested
// position.
func (db *Database) CreateRow(params entity.CreateRowParams) (entity.RowOrder, error) {
	order, _, err := db.CreateRowInView(db.InlineViewID(), params)
	return order, err
}

// CreateRowInView persists a new row and inserts its stand-in into every
// view. Only the originating view resolves the caller's position; every
// other view appends at the end. Returns the resolved index within the
// originating view.
func (db *Database) CreateRowInView(viewID string, params entity.CreateRowParams) (entity.RowOrder, int, error) {
	params.DatabaseID = db.id
	order, err := db.block.CreateRow(params)
	if err != nil {
		return entity.RowOrder{}, 0, err
	}

	originIndex := 0
	var changes []ViewChange
	db.doc.Update(func(tx *doc.Tx) {
		db.eachView(tx, func(id string, v *view.View) {
			pos := entity.AtEnd()
			if id == viewID {
				pos = params.Position
			}
			index := v.RowOrderArray(tx).InsertAt(tx, order, pos)
			if id == viewID {
				originIndex = index
			}
			changes = append(changes, ViewChange{
				Kind:    RowOrdersChanged,
				ViewID:  id,
				Inserts: []RowOrderInsert{{Order: order, Index: index}},
			})
		})
	})
	if err := db.flush(); err != nil {
		return entity.RowOrder{}, 0, err
	}
	db.emitViewChanges(changes)
	return order, originIndex, nil
}

// CreateRows persists a batch of rows and appends their stand-ins to every
// view in input order.
func (db *Database) CreateRows(params []entity.CreateRowParams) ([]entity.RowOrder, error) {
	for i := range params {
		params[i].DatabaseID = db.id
	}
	orders, err := db.block.CreateRows(params)
	if err != nil {
		return orders, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	var changes []ViewChange
	db.doc.Update(func(tx *doc.Tx) {
		db.eachView(tx, func(viewID string, v *view.View) {
			oa := v.RowOrderArray(tx)
			inserts := make([]RowOrderInsert, 0, len(orders))
			for _, order := range orders {
				oa.Push(tx, order)
				inserts = append(inserts, RowOrderInsert{Order: order, Index: oa.Len(tx) - 1})
			}
			changes = append(changes, ViewChange{Kind: RowOrdersChanged, ViewID: viewID, Inserts: inserts})
		})
	})
	if err := db.flush(); err != nil {
		return orders, err
	}
	db.emitViewChanges(changes)
	return orders, nil
}

// RemoveRow deletes a row everywhere: from every view's order and from the
// row store. Removing an unknown row is a no-op.
func (db *Database) RemoveRow(rowID string) error {
	return db.RemoveRows([]string{rowID})
}

// RemoveRows deletes a batch of rows. Each emitted diff carries the removed
// indexes as they stood before any removal, ascending.
func (db *Database) RemoveRows(rowIDs []string) error {
	if len(rowIDs) == 0 {
		return nil
	}
	var changes []ViewChange
	db.doc.Update(func(tx *doc.Tx) {
		db.eachView(tx, func(viewID string, v *view.View) {
			indexes := v.RowOrderArray(tx).RemoveIDs(tx, rowIDs)
			if len(indexes) == 0 {
				return
			}
			changes = append(changes, ViewChange{Kind: RowOrdersChanged, ViewID: viewID, DeleteIndexes: indexes})
		})
	})
	for _, rowID := range rowIDs {
		if err := db.block.DeleteRow(rowID); err != nil {
			return fmt.Errorf("remove row %q: %w", rowID, err)
		}
	}
	if err := db.flush(); err != nil {
		return err
	}
	db.emitViewChanges(changes)
	return nil
}

// MoveRow repositions a row inside one view only. The emitted diff expresses
// both indexes against the pre-move order.
func (db *Database) MoveRow(viewID, rowID string, pos entity.Position) error {
	var change *ViewChange
	err := db.withView(viewID, func(tx *doc.Tx, v *view.View) error {
		from, to, ok := v.RowOrderArray(tx).Move(tx, rowID, pos)
		if !ok {
			return nil
		}
		order, _ := v.RowOrderArray(tx).Get(tx, rowID)
		change = &ViewChange{
			Kind:          RowOrdersChanged,
			ViewID:        viewID,
			Inserts:       []RowOrderInsert{{Order: order, Index: to}},
			DeleteIndexes: []int{from},
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

// UpdateRow applies fn to the row's data document.
func (db *Database) UpdateRow(rowID string, fn func(*row.Update)) error {
	return db.block.UpdateRow(rowID, fn)
}

// UpdateRowMeta applies fn to the row's metadata sub-document.
func (db *Database) UpdateRowMeta(rowID string, fn func(*row.MetaUpdate)) error {
	return db.block.UpdateRowMeta(rowID, fn)
}

// GetRow returns the materialized row, or block.ErrRowPending when it is
// still being fetched.
func (db *Database) GetRow(rowID string) (entity.Row, error) {
	return db.block.GetRow(rowID)
}

// GetOrInitRow returns the row or an empty placeholder when pending.
func (db *Database) GetOrInitRow(rowID string) (entity.Row, error) {
	return db.block.GetOrInitRow(rowID)
}

// GetRowMeta returns the row's metadata.
func (db *Database) GetRowMeta(rowID string) (entity.RowMeta, error) {
	return db.block.GetRowMeta(rowID)
}

// GetCell returns one row's cell for the given field.
func (db *Database) GetCell(rowID, fieldID string) (entity.RowCell, error) {
	return db.block.GetCell(rowID, fieldID)
}

// GetCells returns the given field's cell for every row of a view, in view
// order. Rows without a value carry a nil cell.
func (db *Database) GetCells(viewID, fieldID string) ([]entity.RowCell, error) {
	orders, err := db.GetRowOrders(viewID)
	if err != nil {
		return nil, err
	}
	cells := make([]entity.RowCell, 0, len(orders))
	for _, order := range orders {
		rc, err := db.block.GetCell(order.ID, fieldID)
		if err != nil {
			rc = entity.RowCell{RowID: order.ID}
		}
		cells = append(cells, rc)
	}
	return cells, nil
}

// GetRowOrders returns a view's row order list.
func (db *Database) GetRowOrders(viewID string) ([]entity.RowOrder, error) {
	var orders []entity.RowOrder
	err := db.withViewRead(viewID, func(tx *doc.Tx, v *view.View) {
		orders = v.RowOrders(tx)
	})
	return orders, err
}

// GetRowsForView materializes every row of a view in view order, warming
// the cache in one batch first. Unresolved rows come back as placeholders.
func (db *Database) GetRowsForView(viewID string) ([]entity.Row, error) {
	orders, err := db.GetRowOrders(viewID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	db.block.BatchLoadRows(ids)
	return db.block.RowsFromOrders(orders), nil
}

// DuplicateRow copies a row's payload into a fresh row placed directly after
// the original in the given view; other views append it. Pending rows cannot
// be duplicated.
func (db *Database) DuplicateRow(viewID, rowID string) (entity.RowOrder, error) {
	src, err := db.block.GetRow(rowID)
	if err != nil {
		return entity.RowOrder{}, err
	}
	params := entity.NewCreateRowParams(entity.GenRowID(), db.id)
	params.Cells = cloneCells(src.Cells)
	params.Height = src.Height
	params.Visibility = src.Visibility
	params.Position = entity.After(rowID)
	order, _, err := db.CreateRowInView(viewID, params)
	return order, err
}

func cloneCells(cells entity.Cells) entity.Cells {
	out := make(entity.Cells, len(cells))
	for fieldID, cell := range cells {
		c := make(entity.Cell, len(cell))
		for k, v := range cell {
			c[k] = v
		}
		out[fieldID] = c
	}
	return out
}

func (db *Database) emitViewChanges(changes []ViewChange) {
	for _, c := range changes {
		db.viewEvents.Send(c)
	}
}
