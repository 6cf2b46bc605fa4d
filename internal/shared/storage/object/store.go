package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrInvalidKey is returned for keys that escape the store root or are empty.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore defines the contract for saving, retrieving and sharing binary objects.
type ObjectStore interface {
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
	// SignedURL returns a URL that grants read access to storageKey until ttl elapses.
	SignedURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error)
}
