package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"davgate/internal/dav"
)

// MemoryStore is an in-memory implementation of dav.BlobStore, useful for
// testing. It is safe for concurrent use.
type MemoryStore struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put stores the content of r under key.
func (m *MemoryStore) Put(_ context.Context, key string, r io.Reader, size int64) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read content: %w", readError(err))
	}
	if size >= 0 && int64(len(data)) != size {
		return 0, fmt.Errorf("expected %d bytes, got %d: %w", size, len(data), dav.ErrSizeMismatch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return int64(len(data)), nil
}

// Open returns a reader over the blob.
func (m *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, 0, fmt.Errorf("%s: %w", key, dav.ErrBlobNotFound)
	}
	// Stored slices are never mutated, only replaced.
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Stat returns the size of the blob.
func (m *MemoryStore) Stat(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, dav.ErrBlobNotFound)
	}
	return int64(len(data)), nil
}

// Delete removes the blob.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; !ok {
		return fmt.Errorf("%s: %w", key, dav.ErrBlobNotFound)
	}
	delete(m.blobs, key)
	return nil
}

// Copy duplicates the blob at srcKey under dstKey.
func (m *MemoryStore) Copy(_ context.Context, srcKey string, dstKey string) error {
	if err := validateKey(dstKey); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[srcKey]
	if !ok {
		return fmt.Errorf("%s: %w", srcKey, dav.ErrBlobNotFound)
	}
	m.blobs[dstKey] = data
	return nil
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(context.Context) error {
	return nil
}

// Keys returns the stored keys. Tests use it to check for leaked blobs.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	return keys
}

// Compile-time check that MemoryStore implements dav.BlobStore
var _ dav.BlobStore = (*MemoryStore)(nil)
