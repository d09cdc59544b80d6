package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// Object is one listing entry of the artifact store.
type Object struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// Meta carries optional metadata applied when an object is written.
type Meta struct {
	ContentType  string
	CacheControl string
}

// Store is a versioned, prefix-addressed object store. Keys follow the layout
// in paths.go: immutable version trees under {project}/versions/{id}/, the
// mutable live tree under {project}/current/, and bookkeeping objects under
// {project}/meta/.
//
// Put must be idempotent under retry with the same key and bytes. CopyTree is
// not atomic: it copies object by object and aborts on the first failure,
// leaving already-copied objects in place for the next promote to overwrite.
type Store interface {
	Put(ctx context.Context, key string, body []byte, meta Meta) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Object, error)
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)
	CopyTree(ctx context.Context, srcPrefix, dstPrefix string) (int, error)
	DeletePrefix(ctx context.Context, prefix string) error
}
