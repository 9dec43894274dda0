// Package row materializes a single record: it wraps the row's own document
// with typed reads and updates, persists it through the owning store, and
// republishes raw document mutations as typed change events.
package row

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quiltdb/quilt/internal/broadcast"
	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/storage"
)

const (
	keyData     = "data"
	keyMeta     = "meta"
	keyComments = "comments"

	keyRowID        = "id"
	keyDatabaseID   = "database_id"
	keyHeight       = "height"
	keyVisibility   = "visibility"
	keyCreatedAt    = "created_at"
	keyLastModified = "last_modified"
	keyCells        = "cells"

	keyIconURL         = "icon_url"
	keyCoverURL        = "cover_url"
	keyIsDocumentEmpty = "is_document_empty"
)

// DatabaseRow wraps one row's document. All reads and writes go through the
// document's transactions; the owning store is reached only through a
// revocable handle so a torn-down store degrades to ErrStoreClosed.
type DatabaseRow struct {
	rowID      string
	databaseID string
	doc        *doc.Doc
	data       *doc.Map
	meta       *doc.Map
	comments   *doc.Array
	store      *storage.Handle
	changes    *broadcast.Broadcaster[Change]
	cancelSub  func()
	logger     *slog.Logger
}

// New wraps an existing row document. The document's structure is created if
// missing. changes may be nil when no observer is interested.
func New(databaseID, rowID string, d *doc.Doc, store *storage.Handle, changes *broadcast.Broadcaster[Change], logger *slog.Logger) *DatabaseRow {
	r := &DatabaseRow{
		rowID:      rowID,
		databaseID: databaseID,
		doc:        d,
		store:      store,
		changes:    changes,
		logger:     logger,
	}
	d.Update(func(tx *doc.Tx) {
		r.data = d.Root().GetOrCreateMap(tx, keyData)
		r.meta = d.Root().GetOrCreateMap(tx, keyMeta)
		r.comments = d.Root().GetOrCreateArray(tx, keyComments)
	})
	if changes != nil {
		r.cancelSub = d.Subscribe(r.translate)
	}
	return r
}

// Create builds a fresh document for the given row, persists it, and returns
// the wrapped row.
func Create(r entity.Row, store *storage.Handle, changes *broadcast.Broadcaster[Change], logger *slog.Logger) (*DatabaseRow, error) {
	dr := New(r.DatabaseID, r.ID, doc.New(), store, changes, logger)
	dr.doc.Update(func(tx *doc.Tx) {
		u := &Update{tx: tx, data: dr.data, meta: dr.meta}
		u.SetRowID(r.ID, r.DatabaseID).
			SetHeight(r.Height).
			SetVisibility(r.Visibility).
			SetCreatedAt(r.CreatedAt).
			SetLastModified(r.ModifiedAt).
			SetCells(r.Cells)
	})
	if err := dr.flush(); err != nil {
		return nil, err
	}
	return dr, nil
}

// FromBytes decodes a persisted or fetched document and wraps it.
func FromBytes(databaseID, rowID string, data []byte, store *storage.Handle, changes *broadcast.Broadcaster[Change], logger *slog.Logger) (*DatabaseRow, error) {
	d, err := doc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("row %s: %w", rowID, err)
	}
	return New(databaseID, rowID, d, store, changes, logger), nil
}

// ID returns the row id.
func (r *DatabaseRow) ID() string { return r.rowID }

// Row materializes the full row under a read snapshot. ok is false when the
// document carries no row id.
func (r *DatabaseRow) Row() (entity.Row, bool) {
	var out entity.Row
	var ok bool
	r.doc.View(func(tx *doc.Tx) {
		out, ok = rowFromData(tx, r.data)
	})
	return out, ok
}

// Meta returns the row's metadata sub-document, including the derived
// document id.
func (r *DatabaseRow) Meta() entity.RowMeta {
	var out entity.RowMeta
	r.doc.View(func(tx *doc.Tx) {
		out.IconURL, _ = r.meta.GetString(tx, keyIconURL)
		out.CoverURL, _ = r.meta.GetString(tx, keyCoverURL)
		out.IsDocumentEmpty, _ = r.meta.GetBool(tx, keyIsDocumentEmpty)
	})
	out.DocumentID = entity.RowMetaID(r.rowID, entity.MetaDocumentID)
	return out
}

// Detail bundles the row with its metadata for fetch-completed events.
func (r *DatabaseRow) Detail() (entity.RowDetail, bool) {
	row, ok := r.Row()
	if !ok {
		return entity.RowDetail{}, false
	}
	meta := r.Meta()
	return entity.RowDetail{Row: row, Meta: meta, DocumentID: meta.DocumentID}, true
}

// Order returns the row's lightweight stand-in.
func (r *DatabaseRow) Order() entity.RowOrder {
	order := entity.RowOrder{ID: r.rowID, Height: entity.DefaultRowHeight}
	r.doc.View(func(tx *doc.Tx) {
		if h, ok := r.data.GetInt(tx, keyHeight); ok {
			order.Height = h
		}
	})
	return order
}

// Cell returns the cell entered for fieldID, if any.
func (r *DatabaseRow) Cell(fieldID string) (entity.Cell, bool) {
	var out entity.Cell
	var ok bool
	r.doc.View(func(tx *doc.Tx) {
		cells, found := r.data.GetMap(tx, keyCells)
		if !found {
			return
		}
		cm, found := cells.GetMap(tx, fieldID)
		if !found {
			return
		}
		out = cellFromMap(tx, cm)
		ok = true
	})
	return out, ok
}

// ApplyUpdate opens one write transaction, refreshes last_modified, applies
// the caller's setters, and flushes the document to the owning store. All
// setters in one call are observed as a single event batch.
func (r *DatabaseRow) ApplyUpdate(fn func(*Update)) error {
	r.doc.Update(func(tx *doc.Tx) {
		u := &Update{tx: tx, data: r.data, meta: r.meta}
		u.SetLastModified(entity.Timestamp())
		fn(u)
	})
	return r.flush()
}

// ApplyMetaUpdate applies setters to the metadata sub-document and flushes.
func (r *DatabaseRow) ApplyMetaUpdate(fn func(*MetaUpdate)) error {
	r.doc.Update(func(tx *doc.Tx) {
		fn(&MetaUpdate{tx: tx, meta: r.meta})
	})
	return r.flush()
}

// Delete removes the row's persisted document. No-ops when the owning store
// has already been torn down.
func (r *DatabaseRow) Delete() error {
	store, err := r.store.Get()
	if err != nil {
		r.logger.Warn("store torn down while deleting row", "row_id", r.rowID)
		return nil
	}
	if err := store.Delete(context.Background(), r.databaseID, r.rowID); err != nil {
		return fmt.Errorf("delete row %s: %w", r.rowID, err)
	}
	return nil
}

// Close cancels the change subscription.
func (r *DatabaseRow) Close() {
	if r.cancelSub != nil {
		r.cancelSub()
		r.cancelSub = nil
	}
}

// Flush persists the current document through the owning store.
func (r *DatabaseRow) Flush() error { return r.flush() }

func (r *DatabaseRow) flush() error {
	store, err := r.store.Get()
	if err != nil {
		return err
	}
	data, err := r.doc.Encode()
	if err != nil {
		return err
	}
	if err := store.Save(context.Background(), r.databaseID, r.rowID, data); err != nil {
		return fmt.Errorf("flush row %s: %w", r.rowID, err)
	}
	return nil
}

func rowFromData(tx *doc.Tx, data *doc.Map) (entity.Row, bool) {
	id, ok := data.GetString(tx, keyRowID)
	if !ok {
		return entity.Row{}, false
	}
	out := entity.Row{ID: id, Cells: entity.Cells{}, Height: entity.DefaultRowHeight, Visibility: true}
	out.DatabaseID, _ = data.GetString(tx, keyDatabaseID)
	if h, found := data.GetInt(tx, keyHeight); found {
		out.Height = h
	}
	if v, found := data.GetBool(tx, keyVisibility); found {
		out.Visibility = v
	}
	out.CreatedAt, _ = data.GetInt(tx, keyCreatedAt)
	out.ModifiedAt, _ = data.GetInt(tx, keyLastModified)
	if cells, found := data.GetMap(tx, keyCells); found {
		for _, fieldID := range cells.Keys(tx) {
			if cm, isMap := cells.GetMap(tx, fieldID); isMap {
				out.Cells[fieldID] = cellFromMap(tx, cm)
			}
		}
	}
	return out, true
}

func cellFromMap(tx *doc.Tx, m *doc.Map) entity.Cell {
	cell := entity.Cell{}
	for k, v := range m.ToGo(tx) {
		cell[k] = v
	}
	return cell
}
