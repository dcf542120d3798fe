package storage

import (
	"context"
	"sync"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"github.com/docintake/backend/internal/domain/shared"
)

// Ensure MemoryBlobStore satisfies both storage surfaces
var (
	_ BlobStore                = (*MemoryBlobStore)(nil)
	_ intakeapp.QuarantineStore = (*MemoryBlobStore)(nil)
)

// MemoryBlobStore implements BlobStore with an in-memory map. This is
// suitable for tests and local development without an object store.
type MemoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory blob store
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		objects: make(map[string][]byte),
	}
}

// Put writes content under key
func (m *MemoryBlobStore) Put(ctx context.Context, key string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(content))
	copy(stored, content)
	m.objects[key] = stored
	return nil
}

// Get reads the content stored under key
func (m *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.objects[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// Delete removes the object under key. Missing keys are not an error.
func (m *MemoryBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Exists checks if an object exists under key
func (m *MemoryBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Len returns the number of stored objects (for testing)
func (m *MemoryBlobStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
