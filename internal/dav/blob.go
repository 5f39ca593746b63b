package dav

import (
	"context"
	"io"
)

// BlobStore provides access to file contents by storage key.
// All operations stream through io.Reader so large uploads and downloads
// are never held in memory. Missing keys produce errors wrapping
// ErrBlobNotFound.
type BlobStore interface {
	// Put stores the content of r under key and returns the number of bytes
	// written. size is the expected length, or -1 when unknown; a mismatch is
	// an error. The blob only becomes visible once r has been fully consumed.
	Put(ctx context.Context, key string, r io.Reader, size int64) (int64, error)

	// Open returns a reader for the blob and its size. The caller must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Stat returns the size of the blob.
	Stat(ctx context.Context, key string) (int64, error)

	// Delete removes the blob.
	Delete(ctx context.Context, key string) error

	// Copy duplicates the blob at srcKey under dstKey.
	Copy(ctx context.Context, srcKey string, dstKey string) error

	// ValidateSetup verifies that the store is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
