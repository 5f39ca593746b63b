// Package blob holds the dav.BlobStore implementations: a flat directory
// shared with the FileCloud web application, S3-compatible object storage,
// and an in-memory store for tests.
package blob

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"davgate/internal/dav"
)

// validateKey rejects keys that could escape the flat blob namespace.
// Keys minted by the gateway are "<uuid><ext>"; rows written by the web
// application follow the same shape.
func validateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return fmt.Errorf("invalid blob key %q", key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("invalid blob key %q: contains a path separator", key)
	}
	return nil
}

// readError classifies a failure reading an upload body. A body that ends
// before its announced length is the client's fault.
func readError(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", dav.ErrSizeMismatch, err)
	}
	return err
}
