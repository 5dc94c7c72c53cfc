package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// LocalStore implements Store over a directory, for development and tests.
// Keys are slash-separated paths relative to the root.
type LocalStore struct {
	root   string
	bucket string
	scheme string
}

// NewLocalStore creates a LocalStore rooted at root. When bucket is set,
// URIs are rendered as scheme://bucket/key so lineage names match the
// bucket the files were copied from; otherwise file:// paths are used.
func NewLocalStore(root, bucket, scheme string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: resolve %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: stat %s", abs)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("storage: %s is not a directory", abs)
	}
	if scheme == "" {
		scheme = "gs"
	}
	return &LocalStore{root: abs, bucket: bucket, scheme: scheme}, nil
}

// List walks the root and returns regular files whose key has prefix.
func (l *LocalStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "storage: list %s", l.root)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Open opens the file for key.
func (l *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, eris.Wrapf(err, "storage: open %s", key)
	}
	return f, nil
}

// URI returns scheme://bucket/key, or a file:// URI without a bucket.
func (l *LocalStore) URI(key string) string {
	if l.bucket == "" {
		return "file://" + filepath.ToSlash(l.path(key))
	}
	return objectURI(l.scheme, l.bucket, key)
}

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(filepath.Clean("/"+key)))
}
