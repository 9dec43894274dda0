package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory DocStore used in tests and for throwaway
// databases.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func memKey(databaseID, objectID string) string {
	return databaseID + "/" + objectID
}

func (s *MemoryStore) Exists(ctx context.Context, databaseID, objectID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[memKey(databaseID, objectID)]
	return ok, nil
}

func (s *MemoryStore) Load(ctx context.Context, databaseID, objectID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[memKey(databaseID, objectID)]
	if !ok {
		return nil, ErrDocNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, databaseID, objectID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.docs[memKey(databaseID, objectID)] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, databaseID, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, memKey(databaseID, objectID))
	return nil
}
