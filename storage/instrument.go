package storage

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/observability"
)

// instrumented records a span and an operation counter around every call of
// the wrapped backend.
type instrumented struct {
	next    Backend
	class   Class
	metrics *observability.Metrics
}

// Instrument wraps b with tracing and metrics. A nil metrics only traces.
func Instrument(b Backend, class Class, metrics *observability.Metrics) Backend {
	if b == nil {
		return nil
	}
	return &instrumented{next: b, class: class, metrics: metrics}
}

func (i *instrumented) start(ctx context.Context, op, path string) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "storage."+op,
		attribute.String(observability.AttrOperation, op),
		attribute.String(observability.AttrStorageClass, string(i.class)),
		attribute.String(observability.AttrPath, path),
	)
	return ctx, func(err error) {
		i.metrics.RecordStorageOp(ctx, string(i.class), op, outcome(err))
		observability.EndSpan(span, err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.HasCode(err, errors.ErrCodeNotFound):
		return observability.OutcomeNotFound
	default:
		return observability.OutcomeError
	}
}

func (i *instrumented) Save(ctx context.Context, path string, r io.Reader) (int64, error) {
	ctx, done := i.start(ctx, "save", path)
	n, err := i.next.Save(ctx, path, r)
	if err == nil {
		i.metrics.RecordStorageBytes(ctx, string(i.class), n)
	}
	done(err)
	return n, err
}

func (i *instrumented) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	ctx, done := i.start(ctx, "get", path)
	rc, err := i.next.Get(ctx, path)
	done(err)
	return rc, err
}

func (i *instrumented) Delete(ctx context.Context, path string) error {
	ctx, done := i.start(ctx, "delete", path)
	err := i.next.Delete(ctx, path)
	done(err)
	return err
}

func (i *instrumented) Copy(ctx context.Context, src, dst string) error {
	ctx, done := i.start(ctx, "copy", src)
	err := i.next.Copy(ctx, src, dst)
	done(err)
	return err
}

func (i *instrumented) Move(ctx context.Context, src, dst string) error {
	ctx, done := i.start(ctx, "move", src)
	err := i.next.Move(ctx, src, dst)
	done(err)
	return err
}

func (i *instrumented) Exists(ctx context.Context, path string) (bool, error) {
	ctx, done := i.start(ctx, "exists", path)
	ok, err := i.next.Exists(ctx, path)
	done(err)
	return ok, err
}

func (i *instrumented) DirectoryExists(ctx context.Context, path string) (bool, error) {
	ctx, done := i.start(ctx, "directory_exists", path)
	ok, err := i.next.DirectoryExists(ctx, path)
	done(err)
	return ok, err
}

func (i *instrumented) CreateDirectory(ctx context.Context, path string) error {
	ctx, done := i.start(ctx, "create_directory", path)
	err := i.next.CreateDirectory(ctx, path)
	done(err)
	return err
}

func (i *instrumented) DeleteDirectory(ctx context.Context, path string, recursive bool) error {
	ctx, done := i.start(ctx, "delete_directory", path)
	err := i.next.DeleteDirectory(ctx, path, recursive)
	done(err)
	return err
}

func (i *instrumented) Size(ctx context.Context, path string) (int64, error) {
	ctx, done := i.start(ctx, "size", path)
	n, err := i.next.Size(ctx, path)
	done(err)
	return n, err
}

func (i *instrumented) Stat(ctx context.Context, path string) (ObjectInfo, error) {
	ctx, done := i.start(ctx, "stat", path)
	info, err := i.next.Stat(ctx, path)
	done(err)
	return info, err
}

func (i *instrumented) ContentHash(ctx context.Context, path string) (string, error) {
	ctx, done := i.start(ctx, "content_hash", path)
	sum, err := i.next.ContentHash(ctx, path)
	done(err)
	return sum, err
}
