package local

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/logger"
)

// Resolver maps backend-relative paths onto a canonical root and refuses
// anything that would land outside it.
type Resolver struct {
	root string
	log  *logger.Logger
}

// NewResolver canonicalizes root, creating it when missing. A root equal to
// the filesystem root is rejected.
func NewResolver(root string, log *logger.Logger) (*Resolver, error) {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(root) == "" {
		return nil, errors.InvalidInput("root", "storage root must not be empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("local: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("local: create root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("local: canonicalize root: %w", err)
	}
	canonical = filepath.Clean(canonical)
	if filepath.Dir(canonical) == canonical {
		return nil, errors.InvalidInput("root", "storage root must not be the filesystem root")
	}

	return &Resolver{root: canonical, log: log}, nil
}

// Root returns the canonical root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the canonical absolute path for p. The containment check
// runs after symlinks of the longest existing ancestor are resolved, so a
// link inside the root pointing elsewhere is rejected too.
func (r *Resolver) Resolve(op, p string) (string, error) {
	if p == "" {
		return "", errors.InvalidInput("path", "path must not be empty")
	}
	if strings.ContainsRune(p, 0) {
		return "", r.violation(op, p)
	}

	norm := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(norm, "/") || hasDrivePrefix(norm) ||
		filepath.IsAbs(filepath.FromSlash(norm)) || filepath.VolumeName(filepath.FromSlash(norm)) != "" {
		return "", r.violation(op, p)
	}
	for _, seg := range strings.Split(norm, "/") {
		if seg == ".." {
			return "", r.violation(op, p)
		}
	}

	canonical, err := canonicalize(filepath.Join(r.root, filepath.FromSlash(norm)))
	if err != nil {
		return "", errors.BackendUnavailable("local storage", err)
	}
	if !r.contains(canonical) {
		return "", r.violation(op, p)
	}
	return canonical, nil
}

// Rel converts a canonical path back to its backend-relative form.
func (r *Resolver) Rel(full string) string {
	rel, err := filepath.Rel(r.root, full)
	if err != nil {
		return full
	}
	return filepath.ToSlash(rel)
}

// IsRoot reports whether full is the root itself.
func (r *Resolver) IsRoot(full string) bool {
	return full == r.root
}

func (r *Resolver) contains(full string) bool {
	return full == r.root || strings.HasPrefix(full, r.root+string(filepath.Separator))
}

func (r *Resolver) violation(op, p string) error {
	r.log.Warn("path escapes storage root", logger.SecurityFields(op, p))
	return errors.PathSecurityViolation(p)
}

func hasDrivePrefix(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// canonicalize cleans p and resolves symlinks in its longest existing
// ancestor; the missing tail is appended unchanged.
func canonicalize(p string) (string, error) {
	existing := filepath.Clean(p)
	var tail []string
	for {
		_, err := os.Stat(existing)
		if err == nil {
			break
		}
		if !isNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		tail = append(tail, filepath.Base(existing))
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	for i := len(tail) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, tail[i])
	}
	return filepath.Clean(resolved), nil
}

func isNotExist(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist) || stderrors.Is(err, syscall.ENOTDIR)
}
