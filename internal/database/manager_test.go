package database

import (
	"context"
	"errors"
	"testing"

	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/storage"
)

func newTestManager(t *testing.T, store *storage.MemoryStore) *Manager {
	t.Helper()
	m, err := NewManager(storage.NewHandle(store), nil, testLogger())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestManager_CreateAndGet(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(t, store)

	db, err := m.CreateDatabase(testParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same coordinator instance comes back while it stays open.
	again, err := m.GetDatabase(db.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again != db {
		t.Error("expected the cached coordinator")
	}

	if _, err := m.GetDatabase("ghost"); !errors.Is(err, ErrDatabaseNotFound) {
		t.Errorf("unknown id: got %v, want ErrDatabaseNotFound", err)
	}
}

func TestManager_GeneratesMissingIDs(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(t, store)

	db, err := m.CreateDatabase(entity.CreateDatabaseParams{Name: "untitled"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if db.ID() == "" || db.InlineViewID() == "" {
		t.Errorf("ids not generated: %q / %q", db.ID(), db.InlineViewID())
	}
}

func TestManager_RegistrySurvivesRestart(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(t, store)
	db, err := m.CreateDatabase(testParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	databaseID := db.ID()
	m.Close()

	// A fresh manager over the same store sees the registration and can
	// lazily reopen the database.
	m2 := newTestManager(t, store)
	listed := m2.ListDatabases()
	if len(listed) != 1 || listed[0].DatabaseID != databaseID {
		t.Fatalf("registry after restart: %+v", listed)
	}
	if listed[0].CreatedAt == 0 {
		t.Error("registry entry missing created_at")
	}

	reopened, err := m2.GetDatabase(databaseID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	orders, err := reopened.GetRowOrders(reopened.InlineViewID())
	if err != nil || len(orders) != 2 {
		t.Errorf("reopened rows: %v, %v", orders, err)
	}
}

func TestManager_DeleteDatabase(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(t, store)
	db, err := m.CreateDatabase(testParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	databaseID := db.ID()
	orders, _ := db.GetRowOrders(db.InlineViewID())

	if err := m.DeleteDatabase(databaseID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ctx := context.Background()
	if exists, _ := store.Exists(ctx, databaseID, databaseID); exists {
		t.Error("database document still persisted")
	}
	for _, o := range orders {
		if exists, _ := store.Exists(ctx, databaseID, o.ID); exists {
			t.Errorf("row document %s still persisted", o.ID)
		}
	}
	if _, err := m.GetDatabase(databaseID); !errors.Is(err, ErrDatabaseNotFound) {
		t.Errorf("after delete: got %v, want ErrDatabaseNotFound", err)
	}
	if err := m.DeleteDatabase(databaseID); !errors.Is(err, ErrDatabaseNotFound) {
		t.Errorf("second delete: got %v, want ErrDatabaseNotFound", err)
	}
	if listed := m.ListDatabases(); len(listed) != 0 {
		t.Errorf("registry after delete: %+v", listed)
	}
}

func TestManager_ListMultiple(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(t, store)
	for i := 0; i < 3; i++ {
		if _, err := m.CreateDatabase(testParams()); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if listed := m.ListDatabases(); len(listed) != 3 {
		t.Errorf("listed: %d, want 3", len(listed))
	}
}
