package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/fetch"
	"github.com/quiltdb/quilt/internal/storage"
)

// The workspace registry is itself a document, stored under a reserved
// database id so it travels through the same persistence layer as
// everything else.
const (
	workspaceID  = "workspace"
	registryDoc  = "databases"
	keyRegistry  = "metas"
	keyCreatedAt = "created_at"
)

// ErrDatabaseNotFound is returned when a database id is not registered.
var ErrDatabaseNotFound = errors.New("database not found")

// Manager owns the workspace: which databases exist, and the open
// coordinator for each. Databases are opened lazily and cached.
type Manager struct {
	store    *storage.Handle
	fetcher  *fetch.Controller
	logger   *slog.Logger
	registry *doc.Doc

	mu   sync.Mutex
	open map[string]*Database
}

// NewManager loads or creates the workspace registry document.
func NewManager(store *storage.Handle, fetcher *fetch.Controller, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		open:    make(map[string]*Database),
	}
	s, err := store.Get()
	if err != nil {
		return nil, err
	}
	data, err := s.Load(context.Background(), workspaceID, registryDoc)
	switch {
	case errors.Is(err, storage.ErrDocNotFound):
		m.registry = doc.New()
		m.registry.Update(func(tx *doc.Tx) {
			m.registry.Root().GetOrCreateMap(tx, keyRegistry)
		})
	case err != nil:
		return nil, fmt.Errorf("load workspace registry: %w", err)
	default:
		m.registry, err = doc.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode workspace registry: %w", err)
		}
	}
	return m, nil
}

// CreateDatabase builds a new database and registers it in the workspace.
func (m *Manager) CreateDatabase(params entity.CreateDatabaseParams) (*Database, error) {
	if params.DatabaseID == "" {
		params.DatabaseID = entity.GenDatabaseID()
	}
	if params.InlineViewID == "" {
		params.InlineViewID = entity.GenViewID()
	}
	db, err := Create(params, m.store, m.fetcher, m.logger)
	if err != nil {
		return nil, err
	}
	m.registry.Update(func(tx *doc.Tx) {
		metas := m.registry.Root().GetOrCreateMap(tx, keyRegistry)
		entry := metas.GetOrCreateMap(tx, params.DatabaseID)
		entry.Set(tx, "iid", params.InlineViewID)
		entry.Set(tx, keyCreatedAt, entity.Timestamp())
	})
	if err := m.flushRegistry(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.open[params.DatabaseID] = db
	m.mu.Unlock()
	return db, nil
}

// GetDatabase returns the open coordinator for a registered database,
// opening it from persistence on first access.
func (m *Manager) GetDatabase(databaseID string) (*Database, error) {
	m.mu.Lock()
	if db, ok := m.open[databaseID]; ok {
		m.mu.Unlock()
		return db, nil
	}
	m.mu.Unlock()

	if !m.registered(databaseID) {
		return nil, ErrDatabaseNotFound
	}
	db, err := Open(databaseID, m.store, m.fetcher, m.logger)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.open[databaseID]; ok {
		db.Close()
		return existing, nil
	}
	m.open[databaseID] = db
	return db, nil
}

// DeleteDatabase unregisters a database, closes its coordinator, and deletes
// its documents: the rows named by the inline view, then the main document.
func (m *Manager) DeleteDatabase(databaseID string) error {
	db, err := m.GetDatabase(databaseID)
	if err != nil {
		return err
	}
	var rowIDs []string
	if orders, oerr := db.GetRowOrders(db.InlineViewID()); oerr == nil {
		for _, o := range orders {
			rowIDs = append(rowIDs, o.ID)
		}
	}
	m.mu.Lock()
	delete(m.open, databaseID)
	m.mu.Unlock()
	db.Close()

	s, err := m.store.Get()
	if err != nil {
		return err
	}
	ctx := context.Background()
	for _, rowID := range rowIDs {
		if derr := s.Delete(ctx, databaseID, rowID); derr != nil {
			m.logger.Error("deleting row document failed", "database_id", databaseID, "row_id", rowID, "error", derr)
		}
	}
	if err := s.Delete(ctx, databaseID, databaseID); err != nil {
		return fmt.Errorf("delete database %s: %w", databaseID, err)
	}

	m.registry.Update(func(tx *doc.Tx) {
		if metas, ok := m.registry.Root().GetMap(tx, keyRegistry); ok {
			metas.Delete(tx, databaseID)
		}
	})
	return m.flushRegistry()
}

// ListDatabases returns the registered database metas.
func (m *Manager) ListDatabases() []entity.DatabaseMeta {
	var out []entity.DatabaseMeta
	m.registry.View(func(tx *doc.Tx) {
		metas, ok := m.registry.Root().GetMap(tx, keyRegistry)
		if !ok {
			return
		}
		for _, id := range metas.Keys(tx) {
			entry, found := metas.GetMap(tx, id)
			if !found {
				continue
			}
			meta := entity.DatabaseMeta{DatabaseID: id}
			meta.InlineViewID, _ = entry.GetString(tx, "iid")
			meta.CreatedAt, _ = entry.GetInt(tx, keyCreatedAt)
			out = append(out, meta)
		}
	})
	return out
}

// Close closes every open coordinator. Persisted data is untouched.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, db := range m.open {
		db.Close()
		delete(m.open, id)
	}
}

func (m *Manager) registered(databaseID string) bool {
	var ok bool
	m.registry.View(func(tx *doc.Tx) {
		metas, found := m.registry.Root().GetMap(tx, keyRegistry)
		if !found {
			return
		}
		_, ok = metas.GetMap(tx, databaseID)
	})
	return ok
}

func (m *Manager) flushRegistry() error {
	s, err := m.store.Get()
	if err != nil {
		return err
	}
	data, err := m.registry.Encode()
	if err != nil {
		return err
	}
	if err := s.Save(context.Background(), workspaceID, registryDoc, data); err != nil {
		return fmt.Errorf("flush workspace registry: %w", err)
	}
	return nil
}
