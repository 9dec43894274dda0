// Package database coordinates one database: the shared field definitions,
// the views ordering its rows, the row store, and the document everything
// except rows lives in. All multi-structure invariants (a row appears in
// every view, a field order references a defined field) are enforced here.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quiltdb/quilt/internal/block"
	"github.com/quiltdb/quilt/internal/broadcast"
	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/fetch"
	"github.com/quiltdb/quilt/internal/storage"
	"github.com/quiltdb/quilt/internal/view"
)

const (
	keyDatabaseID = "id"
	keyFields     = "fields"
	keyViews      = "views"
	keyMetas      = "metas"
	keyInlineView = "iid"
)

var (
	// ErrSchemaInvalid is returned when a persisted database document is
	// missing its structural markers.
	ErrSchemaInvalid = errors.New("database document schema is invalid")

	// ErrViewNotFound is returned when a view id resolves to nothing.
	ErrViewNotFound = errors.New("view not found")

	// ErrFieldNotFound is returned when a field id resolves to nothing.
	ErrFieldNotFound = errors.New("field not found")

	// ErrInlineViewRequired rejects operations that would orphan the inline
	// view, such as duplicating it as a linked view.
	ErrInlineViewRequired = errors.New("operation requires a linked view, not the inline view")
)

// Database is the coordinator for one database.
type Database struct {
	id     string
	doc    *doc.Doc
	fields *doc.Map
	views  *doc.Map
	metas  *doc.Map

	block  *block.Block
	store  *storage.Handle
	logger *slog.Logger

	viewEvents  *broadcast.Broadcaster[ViewChange]
	fieldEvents *broadcast.Broadcaster[FieldChange]

	flushMu sync.Mutex
}

// Create builds a new database document with its inline view, initial fields,
// and initial rows, persists everything, and returns the coordinator.
func Create(params entity.CreateDatabaseParams, store *storage.Handle, fetcher *fetch.Controller, logger *slog.Logger) (*Database, error) {
	if params.DatabaseID == "" || params.InlineViewID == "" {
		return nil, entity.ErrInvalidID
	}
	db := newDatabase(params.DatabaseID, doc.New(), store, fetcher, logger)
	db.doc.Update(func(tx *doc.Tx) {
		root := db.doc.Root()
		root.Set(tx, keyDatabaseID, params.DatabaseID)
		db.fields = root.GetOrCreateMap(tx, keyFields)
		db.views = root.GetOrCreateMap(tx, keyViews)
		db.metas = root.GetOrCreateMap(tx, keyMetas)
		db.metas.Set(tx, keyInlineView, params.InlineViewID)
		for _, f := range params.Fields {
			db.fields.Set(tx, f.ID, fieldToMap(f))
		}
	})

	rowOrders, err := db.seedRows(params.Rows)
	if err != nil {
		return nil, err
	}

	viewParams := entity.CreateViewParams{
		DatabaseID:     params.DatabaseID,
		ViewID:         params.InlineViewID,
		Name:           params.Name,
		Layout:         params.Layout,
		LayoutSettings: params.LayoutSettings,
		Filters:        params.Filters,
		GroupSettings:  params.GroupSettings,
		Sorts:          params.Sorts,
		FieldSettings:  params.FieldSettings,
	}
	fieldOrders := fieldOrdersOf(params.Fields)
	db.doc.Update(func(tx *doc.Tx) {
		vm := db.views.GetOrCreateMap(tx, params.InlineViewID)
		view.Wrap(vm).Fill(tx, viewParams, fieldOrders, rowOrders)
	})

	if err := db.flush(); err != nil {
		return nil, err
	}
	db.logger.Info("database created",
		"inline_view_id", params.InlineViewID,
		"fields", len(params.Fields),
		"rows", len(params.Rows))
	return db, nil
}

// Open loads a persisted database document and validates its structure.
// Unknown databases surface storage.ErrDocNotFound.
func Open(databaseID string, store *storage.Handle, fetcher *fetch.Controller, logger *slog.Logger) (*Database, error) {
	s, err := store.Get()
	if err != nil {
		return nil, err
	}
	data, err := s.Load(context.Background(), databaseID, databaseID)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", databaseID, err)
	}
	d, err := doc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", databaseID, err)
	}
	db := newDatabase(databaseID, d, store, fetcher, logger)
	if err := db.validateSchema(); err != nil {
		return nil, fmt.Errorf("open database %s: %w", databaseID, err)
	}
	return db, nil
}

func newDatabase(databaseID string, d *doc.Doc, store *storage.Handle, fetcher *fetch.Controller, logger *slog.Logger) *Database {
	dbLogger := logger.With("database_id", databaseID)
	return &Database{
		id:          databaseID,
		doc:         d,
		block:       block.New(databaseID, store, fetcher, dbLogger),
		store:       store,
		logger:      dbLogger,
		viewEvents:  broadcast.New[ViewChange](64),
		fieldEvents: broadcast.New[FieldChange](32),
	}
}

// validateSchema binds the structural containers, rejecting documents that
// lack any of them or whose stored id disagrees.
func (db *Database) validateSchema() error {
	var err error
	db.doc.View(func(tx *doc.Tx) {
		root := db.doc.Root()
		id, ok := root.GetString(tx, keyDatabaseID)
		if !ok || id != db.id {
			err = ErrSchemaInvalid
			return
		}
		fields, ok := root.GetMap(tx, keyFields)
		if !ok {
			err = ErrSchemaInvalid
			return
		}
		views, ok := root.GetMap(tx, keyViews)
		if !ok {
			err = ErrSchemaInvalid
			return
		}
		metas, ok := root.GetMap(tx, keyMetas)
		if !ok {
			err = ErrSchemaInvalid
			return
		}
		if _, ok := metas.GetString(tx, keyInlineView); !ok {
			err = ErrSchemaInvalid
			return
		}
		db.fields = fields
		db.views = views
		db.metas = metas
	})
	return err
}

// ID returns the database id.
func (db *Database) ID() string { return db.id }

// InlineViewID returns the id of the database's inline view.
func (db *Database) InlineViewID() string {
	var id string
	db.doc.View(func(tx *doc.Tx) {
		id, _ = db.metas.GetString(tx, keyInlineView)
	})
	return id
}

// Meta returns the registry entry describing this database.
func (db *Database) Meta() entity.DatabaseMeta {
	meta := entity.DatabaseMeta{DatabaseID: db.id}
	db.doc.View(func(tx *doc.Tx) {
		meta.InlineViewID, _ = db.metas.GetString(tx, keyInlineView)
		for _, viewID := range db.views.Keys(tx) {
			if viewID != meta.InlineViewID {
				meta.LinkedViews = append(meta.LinkedViews, viewID)
			}
		}
	})
	return meta
}

// Block exposes the row store, mainly for event subscriptions.
func (db *Database) Block() *block.Block { return db.block }

// SubscribeViewChanges returns a channel of view-level change events.
func (db *Database) SubscribeViewChanges() (<-chan ViewChange, func()) {
	return db.viewEvents.Subscribe()
}

// SubscribeFieldChanges returns a channel of field-level change events.
func (db *Database) SubscribeFieldChanges() (<-chan FieldChange, func()) {
	return db.fieldEvents.Subscribe()
}

// GetDatabaseData snapshots the whole database for export or duplication.
// Rows not yet resolvable come back as empty placeholders.
func (db *Database) GetDatabaseData() entity.DatabaseData {
	data := entity.DatabaseData{DatabaseID: db.id}
	var orders []entity.RowOrder
	db.doc.View(func(tx *doc.Tx) {
		data.Fields = db.readFields(tx)
		for _, viewID := range db.views.Keys(tx) {
			if vm, ok := db.views.GetMap(tx, viewID); ok {
				data.Views = append(data.Views, view.Wrap(vm).Materialize(tx))
			}
		}
		if inline, ok := db.inlineView(tx); ok {
			orders = inline.RowOrders(tx)
		}
	})
	data.Rows = db.block.RowsFromOrders(orders)
	return data
}

// Close tears down the event streams and the row cache. Persisted data is
// untouched.
func (db *Database) Close() {
	db.viewEvents.Close()
	db.fieldEvents.Close()
	db.block.Close()
}

// flush persists the database document. Every mutating operation writes
// through so a crash never loses committed structure.
func (db *Database) flush() error {
	db.flushMu.Lock()
	defer db.flushMu.Unlock()
	s, err := db.store.Get()
	if err != nil {
		return err
	}
	data, err := db.doc.Encode()
	if err != nil {
		return err
	}
	if err := s.Save(context.Background(), db.id, db.id, data); err != nil {
		return fmt.Errorf("flush database %s: %w", db.id, err)
	}
	return nil
}

// seedRows creates the database's initial rows and returns their orders.
func (db *Database) seedRows(rows []entity.CreateRowParams) ([]entity.RowOrder, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	for i := range rows {
		rows[i].DatabaseID = db.id
	}
	orders, err := db.block.CreateRows(rows)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// inlineView resolves the inline view inside an open transaction.
func (db *Database) inlineView(tx *doc.Tx) (*view.View, bool) {
	id, ok := db.metas.GetString(tx, keyInlineView)
	if !ok {
		return nil, false
	}
	vm, ok := db.views.GetMap(tx, id)
	if !ok {
		return nil, false
	}
	return view.Wrap(vm), true
}

// eachView visits every view inside an open transaction.
func (db *Database) eachView(tx *doc.Tx, fn func(viewID string, v *view.View)) {
	for _, viewID := range db.views.Keys(tx) {
		if vm, ok := db.views.GetMap(tx, viewID); ok {
			fn(viewID, view.Wrap(vm))
		}
	}
}

// readFields decodes every field definition inside an open transaction.
func (db *Database) readFields(tx *doc.Tx) []entity.Field {
	var out []entity.Field
	for _, fieldID := range db.fields.Keys(tx) {
		if fm, ok := db.fields.GetMap(tx, fieldID); ok {
			if f, decoded := fieldFromMap(tx, fm); decoded {
				out = append(out, f)
			}
		}
	}
	return out
}

func fieldToMap(f entity.Field) map[string]any {
	m := map[string]any{
		"id":         f.ID,
		"name":       f.Name,
		"field_type": f.FieldType,
		"is_primary": f.Primary,
	}
	if len(f.TypeOptions) > 0 {
		m["type_options"] = f.TypeOptions
	}
	return m
}

func fieldFromMap(tx *doc.Tx, m *doc.Map) (entity.Field, bool) {
	id, ok := m.GetString(tx, "id")
	if !ok {
		return entity.Field{}, false
	}
	f := entity.Field{ID: id}
	f.Name, _ = m.GetString(tx, "name")
	f.FieldType, _ = m.GetInt(tx, "field_type")
	f.Primary, _ = m.GetBool(tx, "is_primary")
	if opts, found := m.GetMap(tx, "type_options"); found {
		f.TypeOptions = opts.ToGo(tx)
	}
	return f, true
}

func fieldOrdersOf(fields []entity.Field) []entity.FieldOrder {
	orders := make([]entity.FieldOrder, 0, len(fields))
	for _, f := range fields {
		orders = append(orders, entity.FieldOrder{ID: f.ID})
	}
	return orders
}
