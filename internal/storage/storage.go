// Package storage distributes challenge files. Two backends: a local
// content-addressed directory, and an S3 bucket serving presigned URLs.
package storage

import (
	"context"
	"io"
)

type Store interface {
	// Save streams r to the backend and returns the storage key and the
	// number of bytes written.
	Save(ctx context.Context, name string, r io.Reader) (key string, size int64, err error)

	// Open returns the file contents for streaming to the client.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// URL returns a direct download URL when the backend supports one;
	// ok is false when the caller should stream via Open.
	URL(ctx context.Context, key, name string) (url string, ok bool, err error)
}
