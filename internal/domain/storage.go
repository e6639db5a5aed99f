package domain

import (
	"context"
	"io"
)

// FileStore abstracts the object storage backend used for review image
// uploads, remote image imports and batch import working files.
type FileStore interface {
	// Upload stores the body under key and returns its public URL
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)

	// Download opens a streamed read of the object at key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key
	Delete(ctx context.Context, key string) error
}
