// Package storage lists and reads extract files in object storage.
package storage

import (
	"context"
	"io"
	"path"

	"github.com/rotisserie/eris"
)

// ErrObjectNotFound is returned by Open for a missing key.
var ErrObjectNotFound = eris.New("storage: object not found")

// Object is a listed blob.
type Object struct {
	Key  string
	Size int64
}

// Name returns the last path element of the key.
func (o Object) Name() string {
	return path.Base(o.Key)
}

// Store enumerates and reads objects in one bucket.
type Store interface {
	// List returns every object whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Open returns a reader over the object's content.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// URI returns the fully-qualified name recorded in lineage for key.
	URI(key string) string
}

func objectURI(scheme, bucket, key string) string {
	return scheme + "://" + bucket + "/" + key
}
