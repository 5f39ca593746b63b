package blob

import (
	"context"
	"fmt"

	"davgate/internal/config"
	"davgate/internal/dav"
)

// NewBlobStoreFromConfig creates a dav.BlobStore based on the blob config type.
func NewBlobStoreFromConfig(ctx context.Context, cfg config.BlobConfig) (dav.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem blob store requires dir to be set")
		}
		fs, err := NewFileSystemStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "s3":
		store, err := NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
