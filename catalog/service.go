package catalog

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/observability"
	"github.com/kbukum/filevault/share"
	"github.com/kbukum/filevault/storage"
	"github.com/kbukum/filevault/validation"
)

// Paging limits for List.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// UploadRequest describes a new file.
type UploadRequest struct {
	OwnerID  string        `json:"owner_id" validate:"required,max=128"`
	FolderID string        `json:"folder_id" validate:"omitempty,uuid"`
	Class    storage.Class `json:"class" validate:"required,storage_class"`
	Name     string        `json:"name" validate:"required,display_name,max=255"`
	MimeType string        `json:"mime_type" validate:"max=255"`
	Content  io.Reader     `json:"-" validate:"-"`
}

// CreateFolderRequest describes a new folder.
type CreateFolderRequest struct {
	OwnerID  string        `json:"owner_id" validate:"required,max=128"`
	ParentID string        `json:"parent_id" validate:"omitempty,uuid"`
	Class    storage.Class `json:"class" validate:"required,storage_class"`
	Name     string        `json:"name" validate:"required,display_name,max=255"`
}

// ShareRequest describes a link to issue for a file.
type ShareRequest struct {
	CallerID       string
	FileID         string
	ExpiresAt      time.Time
	MaxRedemptions int

	// Materialize copies the file into the temp class and serves the copy.
	Materialize bool
}

// Page is one page of List results.
type Page struct {
	Files    []*File `json:"files"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// Download is an open object stream. The caller must close Content.
type Download struct {
	Content  io.ReadCloser
	Name     string
	MimeType string
	Size     int64
	Link     *share.Link
}

// Service is the file catalog.
type Service struct {
	store       MetadataStore
	backends    *storage.Set
	shares      *share.Service
	maxFileSize int64
	recordHash  bool
	allowed     []string
	log         *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMaxFileSize caps upload size in bytes.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// WithContentHash records the content hash of every upload.
func WithContentHash(enabled bool) Option {
	return func(s *Service) { s.recordHash = enabled }
}

// WithAllowedMimeTypes restricts uploads to the listed media types. An entry
// may be a full type such as "image/png" or a wildcard such as "image/*".
// An empty list accepts any type.
func WithAllowedMimeTypes(types []string) Option {
	return func(s *Service) {
		s.allowed = s.allowed[:0]
		for _, t := range types {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				s.allowed = append(s.allowed, t)
			}
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l.WithComponent("catalog") }
}

// NewService creates a catalog over store, backends and shares.
func NewService(store MetadataStore, backends *storage.Set, shares *share.Service, opts ...Option) *Service {
	s := &Service{
		store:       store,
		backends:    backends,
		shares:      shares,
		maxFileSize: storage.DefaultMaxFileSize,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores the content and records it. If the record cannot be created
// the stored bytes are removed again.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (_ *File, err error) {
	ctx, span := observability.StartSpan(ctx, "catalog.upload",
		attribute.String(observability.AttrStorageClass, string(req.Class)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	if req.Content == nil {
		return nil, errors.InvalidInput("file", "content is required")
	}
	contentType := req.MimeType
	if contentType == "" {
		contentType = mimeType(req.Name)
	}
	if !s.mimeAllowed(contentType) {
		return nil, errors.InvalidInput("mime_type", fmt.Sprintf("type %q is not accepted", contentType))
	}
	if req.FolderID != "" {
		if _, err := s.ownedFolder(ctx, req.OwnerID, req.FolderID, req.Class); err != nil {
			return nil, err
		}
	}

	backend, err := s.backends.For(req.Class)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	objectPath := ObjectPath(req.OwnerID, id)
	n, err := backend.Save(ctx, objectPath, io.LimitReader(req.Content, s.maxFileSize+1))
	if err != nil {
		return nil, err
	}
	if n > s.maxFileSize {
		s.discard(ctx, backend, objectPath)
		return nil, errors.InvalidInput("file", fmt.Sprintf("file exceeds the maximum size of %d bytes", s.maxFileSize))
	}

	f := &File{
		OwnerID:     req.OwnerID,
		FolderID:    req.FolderID,
		Class:       req.Class,
		StoragePath: objectPath,
		Name:        req.Name,
		Size:        n,
		MimeType:    contentType,
	}
	f.ID = id
	if s.recordHash {
		if f.ContentHash, err = backend.ContentHash(ctx, objectPath); err != nil {
			s.discard(ctx, backend, objectPath)
			return nil, err
		}
	}

	if err := s.store.CreateFile(ctx, f); err != nil {
		s.discard(ctx, backend, objectPath)
		return nil, err
	}

	s.log.Info("file uploaded", logger.Fields(
		logger.FieldFileID, f.ID,
		logger.FieldOwnerID, f.OwnerID,
		logger.FieldStorageClass, string(f.Class),
		"size", f.Size,
	))
	return f, nil
}

// Open streams a file. Public files are readable by any caller, private and
// temp files only by their owner.
func (s *Service) Open(ctx context.Context, callerID, fileID string) (*Download, error) {
	f, err := s.Stat(ctx, callerID, fileID)
	if err != nil {
		return nil, err
	}
	backend, err := s.backends.For(f.Class)
	if err != nil {
		return nil, err
	}
	rc, err := backend.Get(ctx, f.StoragePath)
	if err != nil {
		return nil, err
	}
	return &Download{Content: rc, Name: f.Name, MimeType: f.MimeType, Size: f.Size}, nil
}

// Stat returns the record of a file the caller may read.
func (s *Service) Stat(ctx context.Context, callerID, fileID string) (*File, error) {
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !f.readableBy(callerID) {
		return nil, errors.NotAuthorized("file", fileID)
	}
	return f, nil
}

// Delete removes a file, its bytes and every share link issued for it.
func (s *Service) Delete(ctx context.Context, callerID, fileID string) (err error) {
	ctx, span := observability.StartSpan(ctx, "catalog.delete",
		attribute.String(observability.AttrFileID, fileID))
	defer func() { observability.EndSpan(span, err) }()

	f, err := s.ownedFile(ctx, callerID, fileID)
	if err != nil {
		return err
	}

	links, err := s.shares.ListForFile(ctx, f.ID)
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := s.retire(ctx, l); err != nil {
			return err
		}
	}

	backend, err := s.backends.For(f.Class)
	if err != nil {
		return err
	}
	if err := backend.Delete(ctx, f.StoragePath); err != nil {
		return err
	}
	if err := s.store.DeleteFile(ctx, f.ID); err != nil {
		return err
	}

	s.log.Info("file deleted", logger.Fields(
		logger.FieldFileID, f.ID,
		logger.FieldOwnerID, f.OwnerID,
		"revoked_links", len(links),
	))
	return nil
}

// FileUpdate changes the metadata of a file. Nil fields are left as they are.
type FileUpdate struct {
	Name     *string
	FolderID *string
}

// Update validates every requested change before writing any of them, then
// saves the record once. Bytes never move.
func (s *Service) Update(ctx context.Context, callerID, fileID string, u FileUpdate) (*File, error) {
	if u.Name == nil && u.FolderID == nil {
		return nil, errors.InvalidInput("", "name or folder_id is required")
	}
	v := validation.New()
	if u.Name != nil {
		v.DisplayName("name", *u.Name, 255)
	}
	if u.FolderID != nil {
		v.OptionalUUID("folder_id", *u.FolderID)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	f, err := s.ownedFile(ctx, callerID, fileID)
	if err != nil {
		return nil, err
	}
	if u.FolderID != nil && *u.FolderID != "" {
		if _, err := s.ownedFolder(ctx, callerID, *u.FolderID, f.Class); err != nil {
			return nil, err
		}
	}

	if u.FolderID != nil {
		f.FolderID = *u.FolderID
	}
	if u.Name != nil {
		f.Name = *u.Name
	}
	if err := s.store.UpdateFile(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Move changes the folder of a file.
func (s *Service) Move(ctx context.Context, callerID, fileID, folderID string) (*File, error) {
	return s.Update(ctx, callerID, fileID, FileUpdate{FolderID: &folderID})
}

// Rename changes the display name of a file.
func (s *Service) Rename(ctx context.Context, callerID, fileID, name string) (*File, error) {
	return s.Update(ctx, callerID, fileID, FileUpdate{Name: &name})
}

// List returns one page of the caller's files in a folder.
func (s *Service) List(ctx context.Context, callerID string, opts ListOptions) (*Page, error) {
	return s.list(ctx, callerID, opts)
}

// ListPublic lists the public files of ownerID. It needs no caller: every
// file it returns is readable by anyone. A folder, if given, must be a public
// folder of ownerID.
func (s *Service) ListPublic(ctx context.Context, ownerID string, opts ListOptions) (*Page, error) {
	opts.Class = storage.ClassPublic
	return s.list(ctx, ownerID, opts)
}

func (s *Service) list(ctx context.Context, ownerID string, opts ListOptions) (*Page, error) {
	if err := validation.New().
		Required("owner_id", ownerID).
		OptionalUUID("folder_id", opts.FolderID).
		Validate(); err != nil {
		return nil, err
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.FolderID != "" {
		if _, err := s.ownedFolder(ctx, ownerID, opts.FolderID, opts.Class); err != nil {
			return nil, err
		}
	}

	files, total, err := s.store.ListFiles(ctx, ownerID, opts)
	if err != nil {
		return nil, err
	}
	return &Page{Files: files, Total: total, Page: opts.Page, PageSize: opts.PageSize}, nil
}

// CreateFolder creates a folder under an optional parent of the same class.
func (s *Service) CreateFolder(ctx context.Context, req CreateFolderRequest) (*Folder, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	virtualPath := "/" + req.Name
	if req.ParentID != "" {
		parent, err := s.ownedFolder(ctx, req.OwnerID, req.ParentID, req.Class)
		if err != nil {
			return nil, err
		}
		virtualPath = path.Join(parent.VirtualPath, req.Name)
	}

	f := &Folder{
		OwnerID:     req.OwnerID,
		ParentID:    req.ParentID,
		Class:       req.Class,
		Name:        req.Name,
		VirtualPath: virtualPath,
	}
	if err := s.store.CreateFolder(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteFolder removes an empty folder.
func (s *Service) DeleteFolder(ctx context.Context, callerID, folderID string) error {
	if _, err := s.ownedFolder(ctx, callerID, folderID, ""); err != nil {
		return err
	}
	files, err := s.store.CountFiles(ctx, folderID)
	if err != nil {
		return err
	}
	subfolders, err := s.store.CountSubfolders(ctx, folderID)
	if err != nil {
		return err
	}
	if files+subfolders > 0 {
		return errors.Conflict("The folder is not empty.")
	}
	return s.store.DeleteFolder(ctx, folderID)
}

// Share issues a link for a file owned by the caller, optionally serving a
// temp-class copy instead of the original.
func (s *Service) Share(ctx context.Context, req ShareRequest) (_ *share.Link, err error) {
	ctx, span := observability.StartSpan(ctx, "catalog.share",
		attribute.String(observability.AttrFileID, req.FileID))
	defer func() { observability.EndSpan(span, err) }()

	f, err := s.ownedFile(ctx, req.CallerID, req.FileID)
	if err != nil {
		return nil, err
	}

	issue := share.IssueRequest{
		Object:         share.ObjectRef{Class: f.Class, Path: f.StoragePath},
		FileID:         f.ID,
		OwnerID:        f.OwnerID,
		ExpiresAt:      req.ExpiresAt,
		MaxRedemptions: req.MaxRedemptions,
	}

	var temp storage.Backend
	if req.Materialize {
		if err := s.shares.CheckPolicy(req.ExpiresAt, req.MaxRedemptions); err != nil {
			return nil, err
		}
		if temp, err = s.backends.For(storage.ClassTemp); err != nil {
			return nil, err
		}
		issue.MaterializedPath = SharePath(uuid.NewString())
		if err := s.materialize(ctx, f, temp, issue.MaterializedPath); err != nil {
			return nil, err
		}
	}

	link, err := s.shares.Issue(ctx, issue)
	if err != nil {
		if temp != nil {
			s.discard(ctx, temp, issue.MaterializedPath)
		}
		return nil, err
	}
	return link, nil
}

// Redeem consumes one use of token, then opens the shared object. The use
// is spent before the backend is read, so a read that fails afterwards,
// SERVICE_UNAVAILABLE included, still costs the holder that redemption.
// Closing the stream of the final redemption removes a materialized copy,
// and so does a redemption refused because the link expired.
func (s *Service) Redeem(ctx context.Context, token string) (_ *Download, err error) {
	ctx, span := observability.StartSpan(ctx, "catalog.redeem")
	defer func() { observability.EndSpan(span, err) }()

	r, err := s.shares.Redeem(ctx, token)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeLinkExpired) {
			s.dropCopy(ctx, token)
		}
		return nil, err
	}

	src := r.Source()
	backend, err := s.backends.For(src.Class)
	if err != nil {
		return nil, err
	}
	rc, err := backend.Get(ctx, src.Path)
	if err != nil {
		return nil, err
	}

	d := &Download{Content: rc, Name: path.Base(src.Path), MimeType: "application/octet-stream", Link: r.Link}
	if info, err := backend.Stat(ctx, src.Path); err == nil {
		d.Size = info.Size
	}
	if r.Link.FileID != "" {
		if f, err := s.store.GetFile(ctx, r.Link.FileID); err == nil {
			d.Name, d.MimeType, d.Size = f.Name, f.MimeType, f.Size
		}
	}

	if r.Final() && r.Link.MaterializedPath != "" {
		d.Content = &cleanupCloser{ReadCloser: rc, cleanup: func() {
			// The request context may already be done once the body is sent.
			s.discard(context.WithoutCancel(ctx), backend, src.Path)
		}}
	}
	return d, nil
}

// RevokeShare revokes a link owned by the caller and removes its temp copy.
func (s *Service) RevokeShare(ctx context.Context, callerID, token string) (*share.Link, error) {
	link, err := s.shares.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != callerID {
		return nil, errors.NotAuthorized("share link", "")
	}
	if err := s.retire(ctx, link); err != nil {
		return nil, err
	}
	return s.shares.Get(ctx, token)
}

// ListShares returns the links issued for a file owned by the caller.
func (s *Service) ListShares(ctx context.Context, callerID, fileID string) ([]*share.Link, error) {
	f, err := s.ownedFile(ctx, callerID, fileID)
	if err != nil {
		return nil, err
	}
	return s.shares.ListForFile(ctx, f.ID)
}

// sweepBatch is how many copies one SweepExpiredCopies round claims.
const sweepBatch = 100

// SweepExpiredCopies deletes the temp copies of links that expired before
// they were used up and returns how many it removed. Copies that fail to
// delete are logged and not retried.
func (s *Service) SweepExpiredCopies(ctx context.Context) (int, error) {
	temp, err := s.backends.For(storage.ClassTemp)
	if err != nil {
		return 0, err
	}
	removed := 0
	for {
		copies, err := s.shares.TakeExpiredCopies(ctx, sweepBatch)
		for _, c := range copies {
			if derr := temp.Delete(ctx, c.Path); derr != nil {
				s.log.Error("failed to remove expired share copy", logger.MergeWithError(
					logger.Fields(logger.FieldPath, c.Path, logger.FieldToken, logger.RedactToken(c.Token)), derr,
				))
				continue
			}
			removed++
		}
		if err != nil {
			return removed, err
		}
		if len(copies) < sweepBatch {
			return removed, nil
		}
	}
}

// dropCopy removes the materialized copy of a link that can no longer be
// redeemed. Failures are logged; the sweep catches what is left.
func (s *Service) dropCopy(ctx context.Context, token string) {
	l, err := s.shares.Get(ctx, token)
	if err != nil || l.MaterializedPath == "" {
		return
	}
	temp, err := s.backends.For(storage.ClassTemp)
	if err != nil {
		return
	}
	s.discard(ctx, temp, l.MaterializedPath)
}

// retire revokes l if needed and drops its materialized copy.
func (s *Service) retire(ctx context.Context, l *share.Link) error {
	if l.RevokedAt.IsZero() {
		if _, err := s.shares.Revoke(ctx, l.Token); err != nil {
			return err
		}
	}
	if l.MaterializedPath != "" {
		temp, err := s.backends.For(storage.ClassTemp)
		if err != nil {
			return err
		}
		if err := temp.Delete(ctx, l.MaterializedPath); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) materialize(ctx context.Context, f *File, temp storage.Backend, dst string) error {
	src, err := s.backends.For(f.Class)
	if err != nil {
		return err
	}
	rc, err := src.Get(ctx, f.StoragePath)
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck // read-only handle

	_, err = temp.Save(ctx, dst, rc)
	return err
}

func (s *Service) ownedFile(ctx context.Context, callerID, fileID string) (*File, error) {
	if err := validation.New().Required("owner_id", callerID).RequiredUUID("file_id", fileID).Validate(); err != nil {
		return nil, err
	}
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != callerID {
		s.log.Warn("ownership check failed", logger.Fields(
			logger.FieldOwnerID, callerID,
			logger.FieldFileID, fileID,
		))
		return nil, errors.NotAuthorized("file", fileID)
	}
	return f, nil
}

// ownedFolder loads a folder owned by callerID. A non-empty class must match
// the folder class.
func (s *Service) ownedFolder(ctx context.Context, callerID, folderID string, class storage.Class) (*Folder, error) {
	if err := validation.New().RequiredUUID("folder_id", folderID).Validate(); err != nil {
		return nil, err
	}
	f, err := s.store.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != callerID {
		return nil, errors.NotAuthorized("folder", folderID)
	}
	if class != "" && f.Class != class {
		return nil, errors.InvalidInput("class", fmt.Sprintf("folder holds %s files", f.Class))
	}
	return f, nil
}

// discard removes bytes written by a failed operation; failures are logged.
func (s *Service) discard(ctx context.Context, b storage.Backend, p string) {
	if err := b.Delete(ctx, p); err != nil {
		s.log.Error("failed to remove orphaned object", logger.MergeWithError(
			logger.Fields(logger.FieldPath, p), err,
		))
	}
}

// mimeAllowed matches the media type of contentType, parameters dropped,
// against the configured list.
func (s *Service) mimeAllowed(contentType string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	major, _, _ := strings.Cut(mt, "/")
	for _, a := range s.allowed {
		if a == mt || a == "*/*" || a == major+"/*" {
			return true
		}
	}
	return false
}

func mimeType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// cleanupCloser runs cleanup once after the wrapped stream is closed.
type cleanupCloser struct {
	io.ReadCloser
	once    sync.Once
	cleanup func()
}

func (c *cleanupCloser) Close() error {
	err := c.ReadCloser.Close()
	c.once.Do(c.cleanup)
	return err
}
