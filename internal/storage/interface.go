package storage

import (
	"context"
	"io"
)

// Storage holds raw upload blobs opaquely, keyed by draft id. The pipeline
// never interprets a blob here; parsing happens downstream.
type Storage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data io.Reader) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// BlobKey derives the canonical object key for a draft's raw file.
func BlobKey(draftID string) string {
	return "imports/" + draftID + ".xlsx"
}
