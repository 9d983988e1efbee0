package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/logger"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries pagination metadata.
type Meta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewMeta computes page metadata.
func NewMeta(page, pageSize int, total int64) *Meta {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Meta{Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}

// RespondWithError renders err. AppErrors carry their own status and body;
// anything else becomes a 500 whose cause is logged but never sent.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		fields := logger.MergeWithError(logger.Fields(
			"path", c.Request.URL.Path,
			"code", string(appErr.Code),
		), err)
		logger.GetGlobalLogger().WithContext(c.Request.Context()).Error("Request failed", fields)
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, appErr.ToResponse())
}

// RespondNotFound renders a NOT_FOUND error for unknown routes.
func RespondNotFound(c *gin.Context) {
	RespondWithError(c, apperrors.NotFound("route", c.Request.URL.Path))
}

// RespondMethodNotAllowed renders a 405 for known routes with the wrong method.
func RespondMethodNotAllowed(c *gin.Context) {
	RespondWithError(c, apperrors.New(apperrors.ErrCodeInvalidInput, "Method not allowed.", http.StatusMethodNotAllowed))
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondOKWithMeta sends a 200 response with data and metadata.
func RespondOKWithMeta(c *gin.Context, data any, meta *Meta) {
	c.JSON(http.StatusOK, DataResponse{Data: data, Meta: meta})
}

// RespondCreated sends a 201 response wrapping data.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, DataResponse{Data: data})
}

// RespondNoContent sends a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
