package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"davgate/internal/dav"
)

// FileSystemStore keeps blobs as files in a single flat directory, the same
// upload directory the web application serves from:
//
//	<dir>/
//	  <uuid><ext>
//	  .tmp-*        (uploads in progress)
type FileSystemStore struct {
	dir string
}

// NewFileSystemStore creates a store over dir, creating it if needed.
func NewFileSystemStore(dir string) (*FileSystemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileSystemStore{dir: dir}, nil
}

// Dir returns the directory holding the blobs.
func (s *FileSystemStore) Dir() string {
	return s.dir
}

func (s *FileSystemStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}

// Put stores the content of r under key. The data is written to a temp file
// and renamed into place, so the key never names a partial blob.
func (s *FileSystemStore) Put(_ context.Context, key string, r io.Reader, size int64) (int64, error) {
	dest, err := s.path(key)
	if err != nil {
		return 0, err
	}
	return s.writeFile(dest, r, size)
}

// Open returns the blob's content and size. The caller must close it.
func (s *FileSystemStore) Open(_ context.Context, key string) (io.ReadCloser, int64, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, notFound(key, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat blob: %w", err)
	}
	return f, info.Size(), nil
}

// Stat returns the size of the blob.
func (s *FileSystemStore) Stat(_ context.Context, key string) (int64, error) {
	p, err := s.path(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, notFound(key, err)
	}
	return info.Size(), nil
}

// Delete removes the blob.
func (s *FileSystemStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return notFound(key, err)
	}
	return nil
}

// Copy duplicates the blob at srcKey under dstKey.
func (s *FileSystemStore) Copy(ctx context.Context, srcKey string, dstKey string) error {
	dest, err := s.path(dstKey)
	if err != nil {
		return err
	}
	src, size, err := s.Open(ctx, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()

	if _, err := s.writeFile(dest, src, size); err != nil {
		return fmt.Errorf("copying %s to %s: %w", srcKey, dstKey, err)
	}
	return nil
}

// ValidateSetup verifies that the directory exists and is writable.
func (s *FileSystemStore) ValidateSetup(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("blob directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob path is not a directory: %s", s.dir)
	}

	probe, err := os.CreateTemp(s.dir, ".tmp-probe-*")
	if err != nil {
		return fmt.Errorf("blob directory not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// writeFile writes data from r to destPath using atomic write (temp file + rename).
// expectedSize of -1 skips the size check.
func (s *FileSystemStore) writeFile(destPath string, r io.Reader, expectedSize int64) (int64, error) {
	// Same directory so the rename cannot cross filesystems.
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return 0, fmt.Errorf("failed to write data: %w", readError(err))
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	if expectedSize >= 0 && written != expectedSize {
		return 0, fmt.Errorf("expected %d bytes, got %d: %w", expectedSize, written, dav.ErrSizeMismatch)
	}

	// The web application serves these files directly.
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return 0, fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return written, nil
}

func notFound(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", key, dav.ErrBlobNotFound)
	}
	return fmt.Errorf("blob %s: %w", key, err)
}

// Compile-time check that FileSystemStore implements dav.BlobStore
var _ dav.BlobStore = (*FileSystemStore)(nil)
