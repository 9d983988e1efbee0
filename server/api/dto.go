package api

import (
	"time"

	"github.com/kbukum/filevault/catalog"
	"github.com/kbukum/filevault/share"
	"github.com/kbukum/filevault/storage"
)

type fileResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Class       storage.Class `json:"class"`
	FolderID    string        `json:"folder_id,omitempty"`
	Size        int64         `json:"size"`
	MimeType    string        `json:"mime_type"`
	ContentHash string        `json:"content_hash,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func toFile(f *catalog.File) fileResponse {
	return fileResponse{
		ID:          f.ID,
		Name:        f.Name,
		Class:       f.Class,
		FolderID:    f.FolderID,
		Size:        f.Size,
		MimeType:    f.MimeType,
		ContentHash: f.ContentHash,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

type folderResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Class       storage.Class `json:"class"`
	ParentID    string        `json:"parent_id,omitempty"`
	VirtualPath string        `json:"virtual_path"`
	CreatedAt   time.Time     `json:"created_at"`
}

func toFolder(f *catalog.Folder) folderResponse {
	return folderResponse{
		ID:          f.ID,
		Name:        f.Name,
		Class:       f.Class,
		ParentID:    f.ParentID,
		VirtualPath: f.VirtualPath,
		CreatedAt:   f.CreatedAt,
	}
}

// linkResponse never exposes backend paths.
type linkResponse struct {
	Token           string      `json:"token"`
	URL             string      `json:"url"`
	FileID          string      `json:"file_id,omitempty"`
	State           share.State `json:"state"`
	ExpiresAt       time.Time   `json:"expires_at"`
	MaxRedemptions  int         `json:"max_redemptions"`
	RedemptionCount int         `json:"redemption_count"`
	Remaining       int         `json:"remaining"`
	Materialized    bool        `json:"materialized"`
	RevokedAt       *time.Time  `json:"revoked_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

func (h *Handler) toLink(l *share.Link) linkResponse {
	r := linkResponse{
		Token:           l.Token,
		URL:             h.publicURL + "/s/" + l.Token,
		FileID:          l.FileID,
		State:           l.State(h.now()),
		ExpiresAt:       l.ExpiresAt,
		MaxRedemptions:  l.MaxRedemptions,
		RedemptionCount: l.RedemptionCount,
		Remaining:       l.Remaining(),
		Materialized:    l.MaterializedPath != "",
		CreatedAt:       l.CreatedAt,
	}
	if !l.RevokedAt.IsZero() {
		at := l.RevokedAt
		r.RevokedAt = &at
	}
	return r
}

type listQuery struct {
	OwnerID  string `form:"owner_id"`
	FolderID string `form:"folder_id"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type updateFileRequest struct {
	Name     *string `json:"name"`
	FolderID *string `json:"folder_id"`
}

type createFolderRequest struct {
	Name     string        `json:"name"`
	Class    storage.Class `json:"class"`
	ParentID string        `json:"parent_id"`
}

type shareRequest struct {
	ExpiresIn      int64 `json:"expires_in"`
	MaxRedemptions *int  `json:"max_redemptions"`
	Materialize    bool  `json:"materialize"`
}
