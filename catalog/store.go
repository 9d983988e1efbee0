package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/kbukum/filevault/database"
	"github.com/kbukum/filevault/database/query"
	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/storage"
)

// ListOptions selects one page of an owner's files in one folder. An empty
// FolderID selects the owner's root. Query narrows and orders the listing
// within the fields of FileQuery. A non-empty Class keeps only files of
// that class.
type ListOptions struct {
	FolderID string
	Class    storage.Class
	Page     int
	PageSize int
	Query    query.Params
}

// FileQuery whitelists the file fields a listing may filter and sort on.
var FileQuery = query.Config{
	AllowedFilters:    []string{"name", "mime_type", "class", "size", "created_at"},
	AllowedSortFields: []string{"name", "size", "created_at", "updated_at"},
	SearchFields:      []string{"name"},
	DefaultSort:       "created_at DESC",
}

// MetadataStore persists file and folder records.
type MetadataStore interface {
	CreateFile(ctx context.Context, f *File) error
	GetFile(ctx context.Context, id string) (*File, error)
	UpdateFile(ctx context.Context, f *File) error
	DeleteFile(ctx context.Context, id string) error
	ListFiles(ctx context.Context, ownerID string, opts ListOptions) ([]*File, int64, error)
	CountFiles(ctx context.Context, folderID string) (int64, error)

	CreateFolder(ctx context.Context, f *Folder) error
	GetFolder(ctx context.Context, id string) (*Folder, error)
	DeleteFolder(ctx context.Context, id string) error
	CountSubfolders(ctx context.Context, parentID string) (int64, error)
}

// GormStore implements MetadataStore with gorm.
type GormStore struct {
	db *database.DB
}

// ensure GormStore satisfies MetadataStore.
var _ MetadataStore = (*GormStore)(nil)

// NewGormStore creates a GormStore. Migrate must have run on db.
func NewGormStore(db *database.DB) *GormStore {
	return &GormStore{db: db}
}

// Models lists the tables owned by the catalog, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{&File{}, &Folder{}}
}

// Migrate creates or updates the catalog tables.
func Migrate(db *database.DB) error {
	return db.AutoMigrate(Models()...)
}

func (s *GormStore) CreateFile(ctx context.Context, f *File) error {
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return database.FromDatabase(err, "file")
	}
	return nil
}

func (s *GormStore) GetFile(ctx context.Context, id string) (*File, error) {
	var f File
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&f).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, errors.NotFound("file", id)
		}
		return nil, database.FromDatabase(err, "file")
	}
	return &f, nil
}

func (s *GormStore) UpdateFile(ctx context.Context, f *File) error {
	if err := s.db.WithContext(ctx).Save(f).Error; err != nil {
		return database.FromDatabase(err, "file")
	}
	return nil
}

func (s *GormStore) DeleteFile(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&File{}).Error; err != nil {
		return database.FromDatabase(err, "file")
	}
	return nil
}

func (s *GormStore) ListFiles(ctx context.Context, ownerID string, opts ListOptions) ([]*File, int64, error) {
	scope := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&File{}).
			Where("owner_id = ? AND folder_id = ?", ownerID, opts.FolderID)
		if opts.Class != "" {
			db = db.Where("class = ?", opts.Class)
		}
		return query.Filter(db, opts.Query, FileQuery)
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, database.FromDatabase(err, "file")
	}

	var files []*File
	if err := query.Sort(scope(), opts.Query, FileQuery).Order("id ASC").
		Offset((opts.Page - 1) * opts.PageSize).Limit(opts.PageSize).
		Find(&files).Error; err != nil {
		return nil, 0, database.FromDatabase(err, "file")
	}
	return files, total, nil
}

func (s *GormStore) CountFiles(ctx context.Context, folderID string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&File{}).Where("folder_id = ?", folderID).Count(&n).Error; err != nil {
		return 0, database.FromDatabase(err, "file")
	}
	return n, nil
}

func (s *GormStore) CreateFolder(ctx context.Context, f *Folder) error {
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return database.FromDatabase(err, "folder")
	}
	return nil
}

func (s *GormStore) GetFolder(ctx context.Context, id string) (*Folder, error) {
	var f Folder
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&f).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, errors.NotFound("folder", id)
		}
		return nil, database.FromDatabase(err, "folder")
	}
	return &f, nil
}

func (s *GormStore) DeleteFolder(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Folder{}).Error; err != nil {
		return database.FromDatabase(err, "folder")
	}
	return nil
}

func (s *GormStore) CountSubfolders(ctx context.Context, parentID string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Folder{}).Where("parent_id = ?", parentID).Count(&n).Error; err != nil {
		return 0, database.FromDatabase(err, "folder")
	}
	return n, nil
}
