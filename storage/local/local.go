// Package local implements storage.Backend on the local filesystem, confined
// to one root directory per instance.
package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"hash"
	"io"
	"mime"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/crypto/blake2b"

	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/storage"
)

const backendName = "local storage"

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(class storage.Class, root string, cfg storage.Config, log *logger.Logger) (storage.Backend, error) {
		return NewStorage(root,
			WithHashAlgorithm(cfg.HashAlgorithm),
			WithLogger(log.WithFields(logger.Fields(logger.FieldStorageClass, string(class)))),
		)
	})
}

// Storage implements storage.Backend using the local filesystem.
type Storage struct {
	resolver *Resolver
	hashAlgo string
	log      *logger.Logger
}

// ensure Storage satisfies storage.Backend.
var _ storage.Backend = (*Storage)(nil)

// Option configures a Storage.
type Option func(*Storage)

// WithHashAlgorithm selects the ContentHash digest ("sha256" or "blake2b").
func WithHashAlgorithm(name string) Option {
	return func(s *Storage) {
		if name != "" {
			s.hashAlgo = name
		}
	}
}

// WithLogger sets the logger used for security events and diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStorage creates a local filesystem backend rooted at root.
func NewStorage(root string, opts ...Option) (*Storage, error) {
	s := &Storage{hashAlgo: storage.HashSHA256, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := newHash(s.hashAlgo); err != nil {
		return nil, err
	}

	r, err := NewResolver(root, s.log)
	if err != nil {
		return nil, err
	}
	s.resolver = r
	return s, nil
}

// Root returns the canonical root directory.
func (s *Storage) Root() string {
	return s.resolver.Root()
}

// resolveFile resolves p and refuses the root itself.
func (s *Storage) resolveFile(op, p string) (string, error) {
	full, err := s.resolver.Resolve(op, p)
	if err != nil {
		return "", err
	}
	if s.resolver.IsRoot(full) {
		return "", errors.InvalidInput("path", "path addresses the storage root, not an object")
	}
	return full, nil
}

// Save writes data from r through a temporary file renamed over the target.
func (s *Storage) Save(ctx context.Context, path string, r io.Reader) (int64, error) {
	full, err := s.resolveFile("save", path)
	if err != nil {
		return 0, err
	}
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return 0, errors.InvalidInput("path", "path is a directory")
	}
	if err := s.mkdirParent(full); err != nil {
		return 0, err
	}
	n, err := writeAtomic(ctx, full, r)
	if err != nil {
		return 0, s.fsError(err, path)
	}
	s.log.Debug("object saved", logger.Fields(logger.FieldPath, path, "size", n))
	return n, nil
}

// Get opens the object at path for reading.
func (s *Storage) Get(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolveFile("get", path)
	if err != nil {
		return nil, err
	}
	return s.openFile(full, path)
}

// Delete removes a file. Returns nil if the file does not exist.
func (s *Storage) Delete(_ context.Context, path string) error {
	full, err := s.resolveFile("delete", path)
	if err != nil {
		return err
	}
	info, err := os.Lstat(full)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return s.fsError(err, path)
	}
	if info.IsDir() {
		return errors.InvalidInput("path", "path is a directory; use DeleteDirectory")
	}
	if err := os.Remove(full); err != nil && !isNotExist(err) {
		return s.fsError(err, path)
	}
	return nil
}

// Copy duplicates src to dst. A missing source leaves dst untouched.
func (s *Storage) Copy(ctx context.Context, src, dst string) error {
	srcFull, err := s.resolveFile("copy", src)
	if err != nil {
		return err
	}
	dstFull, err := s.resolveFile("copy", dst)
	if err != nil {
		return err
	}

	in, err := s.openFile(srcFull, src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // read-only handle

	if err := s.mkdirParent(dstFull); err != nil {
		return err
	}
	if _, err := writeAtomic(ctx, dstFull, in); err != nil {
		return s.fsError(err, dst)
	}
	return nil
}

// Move relocates src to dst, falling back to copy and remove across devices.
func (s *Storage) Move(ctx context.Context, src, dst string) error {
	srcFull, err := s.resolveFile("move", src)
	if err != nil {
		return err
	}
	dstFull, err := s.resolveFile("move", dst)
	if err != nil {
		return err
	}

	info, err := os.Stat(srcFull)
	if err != nil {
		return s.fsError(err, src)
	}
	if !info.Mode().IsRegular() {
		return errors.ObjectNotFound(src)
	}
	if srcFull == dstFull {
		return nil
	}
	if err := s.mkdirParent(dstFull); err != nil {
		return err
	}

	err = os.Rename(srcFull, dstFull)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, syscall.EXDEV) {
		return s.fsError(err, src)
	}

	if err := s.Copy(ctx, src, dst); err != nil {
		return err
	}
	if err := os.Remove(srcFull); err != nil && !isNotExist(err) {
		return s.fsError(err, src)
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.resolver.Resolve("exists", path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, s.fsError(err, path)
	}
	return info.Mode().IsRegular(), nil
}

// DirectoryExists reports whether a directory exists at path.
func (s *Storage) DirectoryExists(_ context.Context, path string) (bool, error) {
	full, err := s.resolver.Resolve("directory_exists", path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, s.fsError(err, path)
	}
	return info.IsDir(), nil
}

// CreateDirectory creates path and any missing parents.
func (s *Storage) CreateDirectory(_ context.Context, path string) error {
	full, err := s.resolver.Resolve("create_directory", path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(full); err == nil {
		if info.IsDir() {
			return nil
		}
		return errors.ObjectAlreadyExists(path)
	}
	if err := os.MkdirAll(full, 0o750); err != nil {
		if stderrors.Is(err, syscall.ENOTDIR) || stderrors.Is(err, os.ErrExist) {
			return errors.ObjectAlreadyExists(path)
		}
		return s.fsError(err, path)
	}
	return nil
}

// DeleteDirectory removes the directory at path. The root itself cannot be removed.
func (s *Storage) DeleteDirectory(_ context.Context, path string, recursive bool) error {
	full, err := s.resolver.Resolve("delete_directory", path)
	if err != nil {
		return err
	}
	if s.resolver.IsRoot(full) {
		return errors.InvalidInput("path", "the storage root cannot be deleted")
	}

	info, err := os.Lstat(full)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return s.fsError(err, path)
	}
	if !info.IsDir() {
		return errors.InvalidInput("path", "path is not a directory")
	}

	if recursive {
		if err := os.RemoveAll(full); err != nil {
			return s.fsError(err, path)
		}
		return nil
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return s.fsError(err, path)
	}
	if len(entries) > 0 {
		return errors.Conflict(fmt.Sprintf("Directory %q is not empty.", path))
	}
	if err := os.Remove(full); err != nil && !isNotExist(err) {
		return s.fsError(err, path)
	}
	return nil
}

// Size returns the size of the file in bytes.
func (s *Storage) Size(ctx context.Context, path string) (int64, error) {
	info, err := s.Stat(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// Stat returns metadata for the file at path.
func (s *Storage) Stat(_ context.Context, path string) (storage.ObjectInfo, error) {
	full, err := s.resolveFile("stat", path)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return storage.ObjectInfo{}, s.fsError(err, path)
	}
	if !info.Mode().IsRegular() {
		return storage.ObjectInfo{}, errors.ObjectNotFound(path)
	}

	return storage.ObjectInfo{
		Path:         s.resolver.Rel(full),
		Size:         info.Size(),
		LastModified: info.ModTime(),
		ContentType:  contentType(full),
	}, nil
}

// ContentHash streams the file once through the configured digest.
func (s *Storage) ContentHash(ctx context.Context, path string) (string, error) {
	full, err := s.resolveFile("content_hash", path)
	if err != nil {
		return "", err
	}
	f, err := s.openFile(full, path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // read-only handle

	h, err := newHash(s.hashAlgo)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, &ctxReader{ctx: ctx, r: f}); err != nil {
		return "", s.fsError(err, path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Storage) openFile(full, path string) (*os.File, error) {
	f, err := os.Open(full)
	if err != nil {
		return nil, s.fsError(err, path)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, s.fsError(err, path)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, errors.ObjectNotFound(path)
	}
	return f, nil
}

func (s *Storage) mkdirParent(full string) error {
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		if stderrors.Is(err, syscall.ENOTDIR) || stderrors.Is(err, os.ErrExist) {
			return errors.InvalidInput("path", "a parent of the path is a file")
		}
		return errors.BackendUnavailable(backendName, err)
	}
	return nil
}

// fsError maps filesystem and context errors onto application errors.
func (s *Storage) fsError(err error, path string) error {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case isNotExist(err):
		return errors.ObjectNotFound(path)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout("storage").WithCause(err)
	default:
		s.log.Error("filesystem operation failed", logger.MergeWithError(
			logger.Fields(logger.FieldPath, path), err,
		))
		return errors.BackendUnavailable(backendName, err)
	}
}

func newHash(name string) (hash.Hash, error) {
	switch name {
	case storage.HashSHA256:
		return sha256.New(), nil
	case storage.HashBLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, errors.InvalidInput("hash_algorithm", fmt.Sprintf("unsupported hash algorithm %q", name))
	}
}

func contentType(full string) string {
	if ct := mime.TypeByExtension(filepath.Ext(full)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
