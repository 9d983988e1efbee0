package catalog

import (
	"github.com/kbukum/filevault/database"
	"github.com/kbukum/filevault/storage"
)

// File is the metadata record of one stored object. Records hold ids only;
// folder and owner are resolved through the MetadataStore when needed.
type File struct {
	database.BaseModel
	OwnerID     string        `gorm:"type:varchar(128);not null;uniqueIndex:idx_files_owner_path,priority:1"`
	FolderID    string        `gorm:"type:varchar(36);index"`
	Class       storage.Class `gorm:"type:varchar(16);not null"`
	StoragePath string        `gorm:"type:varchar(1024);not null;uniqueIndex:idx_files_owner_path,priority:2"`
	Name        string        `gorm:"type:varchar(255);not null"`
	Size        int64         `gorm:"not null;default:0"`
	ContentHash string        `gorm:"type:varchar(128)"`
	MimeType    string        `gorm:"type:varchar(255)"`
}

// TableName overrides the default table name.
func (File) TableName() string { return "files" }

// Folder is a virtual directory. VirtualPath is display-only and never used
// to build backend paths.
type Folder struct {
	database.BaseModel
	OwnerID     string        `gorm:"type:varchar(128);not null;uniqueIndex:idx_folders_owner_path,priority:1"`
	ParentID    string        `gorm:"type:varchar(36);index"`
	Class       storage.Class `gorm:"type:varchar(16);not null;uniqueIndex:idx_folders_owner_path,priority:2"`
	Name        string        `gorm:"type:varchar(255);not null"`
	VirtualPath string        `gorm:"type:varchar(2048);not null;uniqueIndex:idx_folders_owner_path,priority:3"`
}

// TableName overrides the default table name.
func (Folder) TableName() string { return "folders" }

// readableBy reports whether callerID may read f. Public files are readable
// by anyone, including anonymous callers.
func (f *File) readableBy(callerID string) bool {
	return f.Class == storage.ClassPublic || (callerID != "" && f.OwnerID == callerID)
}
