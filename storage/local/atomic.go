package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ctxReader stops a copy as soon as ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// writeAtomic copies r into a temporary file next to target and renames it
// into place. On any failure the temporary file is removed and target keeps
// its previous content.
func writeAtomic(ctx context.Context, target string, r io.Reader) (n int64, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".filevault-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err = io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		return 0, err
	}
	if err = tmp.Sync(); err != nil {
		return 0, err
	}
	if err = tmp.Close(); err != nil {
		return 0, err
	}
	if err = os.Chmod(tmpName, 0o640); err != nil {
		return 0, err
	}
	if err = os.Rename(tmpName, target); err != nil {
		return 0, err
	}
	return n, nil
}
