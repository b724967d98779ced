// Package storage holds the blob backends behind file attachments.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Get when no blob is stored under the key.
var ErrNotExist = errors.New("blob does not exist")

// Blobs stores opaque byte streams under slash-separated keys such as
// "projects/12/0b7c....pdf".
type Blobs interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes a blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
