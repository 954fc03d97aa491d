package storage

import (
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Object is an open blob. Callers must Close it.
type Object struct {
	io.ReadSeekCloser
	Size    int64
	ModTime time.Time
}

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (*Object, error)
	Delete(key string) error
	// Sweep deletes blobs under prefix last modified before cutoff.
	Sweep(prefix string, cutoff time.Time) (int, error)
}
