package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	ContentType string
	Size        int64
}

// BlobStore holds attachment bytes under opaque keys.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by stores that can hand out short-lived direct URLs.
type Presigner interface {
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
