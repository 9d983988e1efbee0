package storage

import (
	"context"
	"io"
	"time"

	"github.com/kbukum/filevault/errors"
)

// Class selects which of the three storage roots an object lives in. It is
// fixed when a logical file is created.
type Class string

// Storage classes.
const (
	ClassPublic  Class = "public"
	ClassPrivate Class = "private"
	ClassTemp    Class = "temp"
)

// Classes lists every storage class in a stable order.
func Classes() []Class {
	return []Class{ClassPublic, ClassPrivate, ClassTemp}
}

// Valid reports whether c is a known class.
func (c Class) Valid() bool {
	switch c {
	case ClassPublic, ClassPrivate, ClassTemp:
		return true
	}
	return false
}

func (c Class) String() string { return string(c) }

// ParseClass converts s to a Class, failing with INVALID_INPUT for unknown values.
func ParseClass(s string) (Class, error) {
	c := Class(s)
	if !c.Valid() {
		return "", errors.InvalidInput("class", "storage class must be one of public, private, temp")
	}
	return c, nil
}

// ObjectInfo contains metadata about a stored object. Path is backend-relative
// and always uses forward slashes.
type ObjectInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Backend stores bytes under one root. Every path is backend-relative
// ("reports/q1.pdf") and is resolved against the root before any I/O; a path
// that would escape it fails with PATH_SECURITY_VIOLATION and touches nothing.
//
// Mutations are visible to the next call on any goroutine. Implementations
// never cache.
type Backend interface {
	// Save writes r to path, creating parent directories and replacing any
	// existing object. Readers never observe a partially written object.
	// It returns the number of bytes written.
	Save(ctx context.Context, path string, r io.Reader) (int64, error)

	// Get opens the object at path. The caller must close the reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at path. Deleting an absent object is a no-op.
	Delete(ctx context.Context, path string) error

	// Copy duplicates src to dst, replacing dst.
	Copy(ctx context.Context, src, dst string) error

	// Move relocates src to dst, replacing dst.
	Move(ctx context.Context, src, dst string) error

	// Exists reports whether a regular object exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// DirectoryExists reports whether a directory exists at path.
	DirectoryExists(ctx context.Context, path string) (bool, error)

	// CreateDirectory creates path and its parents. It is idempotent.
	CreateDirectory(ctx context.Context, path string) error

	// DeleteDirectory removes the directory at path. Without recursive a
	// non-empty directory fails with CONFLICT.
	DeleteDirectory(ctx context.Context, path string, recursive bool) error

	// Size returns the object size in bytes.
	Size(ctx context.Context, path string) (int64, error)

	// Stat returns the object metadata.
	Stat(ctx context.Context, path string) (ObjectInfo, error)

	// ContentHash returns the lowercase hex digest of the object bytes,
	// computed by streaming the object once.
	ContentHash(ctx context.Context, path string) (string, error)
}
