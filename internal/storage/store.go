// Package storage persists row and database documents as opaque blobs keyed
// by (database id, object id).
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrDocNotFound is returned when no document exists for the given id.
var ErrDocNotFound = errors.New("document not found")

// ErrStoreClosed is returned when the owning store has been torn down.
var ErrStoreClosed = errors.New("document store is closed")

// DocStore is the persistence interface for documents. A row's payload is
// its own document, separate from the structural document holding views,
// fields, and metas.
type DocStore interface {
	// Exists reports whether a document is present locally.
	Exists(ctx context.Context, databaseID, objectID string) (bool, error)

	// Load returns the encoded document bytes.
	Load(ctx context.Context, databaseID, objectID string) ([]byte, error)

	// Save writes the encoded document, replacing any previous version.
	Save(ctx context.Context, databaseID, objectID string, data []byte) error

	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, databaseID, objectID string) error
}

// Handle is a revocable reference to a DocStore. Row stores and materialized
// rows hold the owning store only through a Handle, so tearing the store
// down makes in-flight operations fail with ErrStoreClosed instead of
// keeping the store alive or touching invalid state.
type Handle struct {
	mu     sync.RWMutex
	store  DocStore
	closed bool
}

// NewHandle wraps a store in a revocable reference.
func NewHandle(store DocStore) *Handle {
	return &Handle{store: store}
}

// Get returns the store, or ErrStoreClosed after Close.
func (h *Handle) Get() (DocStore, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrStoreClosed
	}
	return h.store, nil
}

// Close revokes the reference. The underlying store is not closed here;
// ownership stays with the caller that opened it.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.store = nil
}
