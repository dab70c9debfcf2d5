package storage

import (
	"context"
	"fmt"

	"sgxfeed/internal/config"
)

const (
	BackendMinIO  = "minio"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// New builds the backend selected by cfg.Backend and verifies the bucket is reachable.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "", BackendMinIO:
		return NewMinIO(ctx, cfg.MinIO)
	case BackendS3:
		return NewS3(ctx, cfg.S3)
	case BackendGCS:
		return NewGCS(ctx, cfg.GCS)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
