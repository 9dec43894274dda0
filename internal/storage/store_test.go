package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Load(ctx, "db", "obj"); !errors.Is(err, ErrDocNotFound) {
		t.Errorf("load absent: got %v, want ErrDocNotFound", err)
	}
	exists, err := s.Exists(ctx, "db", "obj")
	if err != nil || exists {
		t.Errorf("exists absent: got %v, %v", exists, err)
	}

	if err := s.Save(ctx, "db", "obj", []byte("payload")); err != nil {
		t.Fatalf("save: %v", err)
	}
	exists, _ = s.Exists(ctx, "db", "obj")
	if !exists {
		t.Error("exists after save: got false")
	}
	data, err := s.Load(ctx, "db", "obj")
	if err != nil || string(data) != "payload" {
		t.Errorf("load: got %q, %v", data, err)
	}

	if err := s.Save(ctx, "db", "obj", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, _ = s.Load(ctx, "db", "obj")
	if string(data) != "v2" {
		t.Errorf("load after overwrite: got %q", data)
	}

	if err := s.Delete(ctx, "db", "obj"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(ctx, "db", "obj"); !errors.Is(err, ErrDocNotFound) {
		t.Errorf("load after delete: got %v", err)
	}
	// Deleting again is a no-op.
	if err := s.Delete(ctx, "db", "obj"); err != nil {
		t.Errorf("double delete: %v", err)
	}
}

func TestMemoryStore_LoadCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Save(ctx, "db", "obj", []byte("abc"))

	data, _ := s.Load(ctx, "db", "obj")
	data[0] = 'X'

	again, _ := s.Load(ctx, "db", "obj")
	if string(again) != "abc" {
		t.Errorf("mutating a loaded copy changed the store: got %q", again)
	}
}

func TestHandle_GetAndClose(t *testing.T) {
	s := NewMemoryStore()
	h := NewHandle(s)

	got, err := h.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != DocStore(s) {
		t.Error("get returned a different store")
	}

	h.Close()
	if _, err := h.Get(); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("get after close: got %v, want ErrStoreClosed", err)
	}
}
