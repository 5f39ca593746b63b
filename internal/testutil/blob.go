package testutil

import (
	"context"
	"io"
	"testing"

	"davgate/internal/blob"
	"davgate/internal/dav"
)

// NewTestBlobStore creates an empty in-memory blob store.
func NewTestBlobStore(t *testing.T) *blob.MemoryStore {
	t.Helper()
	return blob.NewMemoryStore()
}

// ReadBlob returns the content stored under key, failing the test if it is
// missing.
func ReadBlob(t *testing.T, store dav.BlobStore, key string) string {
	t.Helper()

	rc, _, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading blob %s: %v", key, err)
	}
	return string(data)
}
