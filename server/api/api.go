// Package api serves the filevault HTTP API on top of the catalog.
package api

import (
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/filevault/auth"
	"github.com/kbukum/filevault/catalog"
	"github.com/kbukum/filevault/database/query"
	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/server"
	"github.com/kbukum/filevault/server/middleware"
	"github.com/kbukum/filevault/share"
	"github.com/kbukum/filevault/storage"
)

// DefaultMaxRedemptions applies when a share request omits max_redemptions.
const DefaultMaxRedemptions = 1

// maxExpiresIn keeps expires_in seconds within share.MaxLifetime and far
// from time.Duration overflow.
const maxExpiresIn = int64(share.MaxLifetime / time.Second)

// Handler serves the file, folder and share routes.
type Handler struct {
	files     *catalog.Service
	publicURL string
	now       func() time.Time
	log       *logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithPublicURL prefixes share URLs, e.g. "https://files.example.com".
func WithPublicURL(u string) Option {
	return func(h *Handler) { h.publicURL = strings.TrimSuffix(u, "/") }
}

// WithClock replaces the time source used for share expiry.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithLogger sets the handler logger.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) { h.log = l.WithComponent("api") }
}

// NewHandler creates a Handler over files.
func NewHandler(files *catalog.Service, opts ...Option) *Handler {
	h := &Handler{files: files, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every route on r. Routes under /api/v1 require a bearer
// token except file download, where the token is optional.
func (h *Handler) Register(r gin.IRouter, p auth.Provider) {
	v1 := r.Group("/api/v1")
	v1.GET("/files/:id", middleware.OptionalAuth(p), h.download)
	v1.GET("/public/files", h.listPublic)

	authed := v1.Group("", middleware.RequireAuth(p))
	authed.POST("/files", h.upload)
	authed.GET("/files", h.list)
	authed.PATCH("/files/:id", h.update)
	authed.DELETE("/files/:id", h.delete)
	authed.POST("/files/:id/shares", h.share)
	authed.GET("/files/:id/shares", h.listShares)
	authed.DELETE("/shares/:token", h.revoke)
	authed.POST("/folders", h.createFolder)
	authed.DELETE("/folders/:id", h.deleteFolder)

	r.GET("/s/:token", h.redeem)
}

func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		server.RespondWithError(c, formError(err))
		return
	}
	class := storage.ClassPrivate
	if v := c.PostForm("class"); v != "" {
		if class, err = storage.ParseClass(v); err != nil {
			server.RespondWithError(c, err)
			return
		}
	}
	name := c.PostForm("name")
	if name == "" {
		name = path.Base(strings.ReplaceAll(fh.Filename, `\`, "/"))
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}

	content, err := fh.Open()
	if err != nil {
		server.RespondWithError(c, errors.Internal(err))
		return
	}
	defer content.Close() //nolint:errcheck // multipart temp file

	f, err := h.files.Upload(c.Request.Context(), catalog.UploadRequest{
		OwnerID:  middleware.Caller(c),
		FolderID: c.PostForm("folder_id"),
		Class:    class,
		Name:     name,
		MimeType: mimeType,
		Content:  content,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, toFile(f))
}

func (h *Handler) list(c *gin.Context) {
	_, opts, ok := listOptions(c)
	if !ok {
		return
	}
	h.respondPage(c, func() (*catalog.Page, error) {
		return h.files.List(c.Request.Context(), middleware.Caller(c), opts)
	})
}

// listPublic lists one owner's public files without authentication.
func (h *Handler) listPublic(c *gin.Context) {
	q, opts, ok := listOptions(c)
	if !ok {
		return
	}
	h.respondPage(c, func() (*catalog.Page, error) {
		return h.files.ListPublic(c.Request.Context(), q.OwnerID, opts)
	})
}

func listOptions(c *gin.Context) (listQuery, catalog.ListOptions, bool) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		server.RespondWithError(c, errors.Validation("Invalid query parameters."))
		return q, catalog.ListOptions{}, false
	}
	params, err := query.Parse(c.Request.URL.Query(), catalog.FileQuery)
	if err != nil {
		server.RespondWithError(c, err)
		return q, catalog.ListOptions{}, false
	}
	return q, catalog.ListOptions{
		FolderID: q.FolderID,
		Page:     q.Page,
		PageSize: q.PageSize,
		Query:    params,
	}, true
}

func (h *Handler) respondPage(c *gin.Context, list func() (*catalog.Page, error)) {
	page, err := list()
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	out := make([]fileResponse, 0, len(page.Files))
	for _, f := range page.Files {
		out = append(out, toFile(f))
	}
	server.RespondOKWithMeta(c, out, server.NewMeta(page.Page, page.PageSize, page.Total))
}

func (h *Handler) download(c *gin.Context) {
	d, err := h.files.Open(c.Request.Context(), middleware.Caller(c), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.stream(c, d, "private, no-cache")
}

func (h *Handler) update(c *gin.Context) {
	var req updateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, errors.Validation("Request body must be a JSON object."))
		return
	}
	f, err := h.files.Update(c.Request.Context(), middleware.Caller(c), c.Param("id"), catalog.FileUpdate{
		Name:     req.Name,
		FolderID: req.FolderID,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, toFile(f))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.files.Delete(c.Request.Context(), middleware.Caller(c), c.Param("id")); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

func (h *Handler) share(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, errors.Validation("Request body must be a JSON object."))
		return
	}
	if req.ExpiresIn <= 0 {
		server.RespondWithError(c, errors.InvalidPolicy("expires_in must be a positive number of seconds"))
		return
	}
	if req.ExpiresIn > maxExpiresIn {
		server.RespondWithError(c, errors.InvalidPolicy("expires_in is more than 10 years"))
		return
	}
	maxRedemptions := DefaultMaxRedemptions
	if req.MaxRedemptions != nil {
		maxRedemptions = *req.MaxRedemptions
	}

	link, err := h.files.Share(c.Request.Context(), catalog.ShareRequest{
		CallerID:       middleware.Caller(c),
		FileID:         c.Param("id"),
		ExpiresAt:      h.now().Add(time.Duration(req.ExpiresIn) * time.Second),
		MaxRedemptions: maxRedemptions,
		Materialize:    req.Materialize,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, h.toLink(link))
}

func (h *Handler) listShares(c *gin.Context) {
	links, err := h.files.ListShares(c.Request.Context(), middleware.Caller(c), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	out := make([]linkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, h.toLink(l))
	}
	server.RespondOK(c, out)
}

func (h *Handler) revoke(c *gin.Context) {
	link, err := h.files.RevokeShare(c.Request.Context(), middleware.Caller(c), c.Param("token"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, h.toLink(link))
}

func (h *Handler) createFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, errors.Validation("Request body must be a JSON object."))
		return
	}
	if req.Class == "" {
		req.Class = storage.ClassPrivate
	}
	f, err := h.files.CreateFolder(c.Request.Context(), catalog.CreateFolderRequest{
		OwnerID:  middleware.Caller(c),
		ParentID: req.ParentID,
		Class:    req.Class,
		Name:     req.Name,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, toFolder(f))
}

func (h *Handler) deleteFolder(c *gin.Context) {
	if err := h.files.DeleteFolder(c.Request.Context(), middleware.Caller(c), c.Param("id")); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

func (h *Handler) redeem(c *gin.Context) {
	d, err := h.files.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.stream(c, d, "no-store")
}

// stream writes d as an attachment and closes it.
func (h *Handler) stream(c *gin.Context, d *catalog.Download, cacheControl string) {
	defer func() {
		if err := d.Content.Close(); err != nil {
			h.log.Warn("failed to close download", logger.ErrorFields("stream", err))
		}
	}()

	headers := map[string]string{
		"Cache-Control":          cacheControl,
		"X-Content-Type-Options": "nosniff",
	}
	if cd := mime.FormatMediaType("attachment", map[string]string{"filename": d.Name}); cd != "" {
		headers["Content-Disposition"] = cd
	}
	c.DataFromReader(http.StatusOK, d.Size, d.MimeType, d.Content, headers)
}

// formError maps multipart parsing failures.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.New(errors.ErrCodeInvalidInput,
			"Request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes.",
			http.StatusRequestEntityTooLarge)
	}
	if stderrors.Is(err, http.ErrMissingFile) || stderrors.Is(err, io.EOF) {
		return errors.InvalidInput("file", "multipart field \"file\" is required")
	}
	return errors.InvalidInput("file", "malformed multipart body")
}
