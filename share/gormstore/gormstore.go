// Package gormstore implements share.Store on a relational share_links table.
package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/filevault/database"
	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/share"
	"github.com/kbukum/filevault/storage"
)

// LinkRecord is the share_links row. Times are Unix milliseconds so the
// redeem predicate compares integers on every driver.
type LinkRecord struct {
	Token            string `gorm:"type:varchar(64);primaryKey"`
	FileID           string `gorm:"type:varchar(36);index"`
	OwnerID          string `gorm:"type:varchar(128);index;not null"`
	Class            string `gorm:"type:varchar(16);not null"`
	Path             string `gorm:"type:varchar(1024);not null"`
	MaterializedPath string `gorm:"type:varchar(1024)"`
	ExpiresAtMs      int64  `gorm:"not null"`
	MaxRedemptions   int    `gorm:"not null"`
	RedemptionCount  int    `gorm:"not null;default:0"`
	RevokedAtMs      int64  `gorm:"not null;default:0"`
	CreatedAtMs      int64  `gorm:"not null"`
}

// TableName overrides the default table name.
func (LinkRecord) TableName() string { return "share_links" }

// Store implements share.Store with gorm.
type Store struct {
	db *database.DB
}

// ensure Store satisfies share.Store.
var _ share.Store = (*Store)(nil)

// New creates a Store. Migrate must have run on db.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the share_links table.
func Migrate(db *database.DB) error {
	return db.AutoMigrate(&LinkRecord{})
}

func (s *Store) Create(ctx context.Context, link *share.Link) error {
	rec := toRecord(link)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return database.FromDatabase(err, "share link")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, token string) (*share.Link, error) {
	var rec LinkRecord
	if err := s.db.WithContext(ctx).Where("token = ?", token).Take(&rec).Error; err != nil {
		return nil, database.FromDatabase(err, "share link")
	}
	return rec.toLink(), nil
}

// Redeem increments the count with one conditional UPDATE and reloads the
// row in the same transaction. Zero affected rows means the predicate
// refused the redemption; the reloaded row tells which rule did.
func (s *Store) Redeem(ctx context.Context, token string, now time.Time) (*share.Link, error) {
	var out *share.Link
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&LinkRecord{}).
			Where("token = ? AND revoked_at_ms = 0 AND expires_at_ms > ? AND redemption_count < max_redemptions",
				token, now.UnixMilli()).
			UpdateColumn("redemption_count", gorm.Expr("redemption_count + 1"))
		if res.Error != nil {
			return res.Error
		}

		var rec LinkRecord
		if err := tx.Where("token = ?", token).Take(&rec).Error; err != nil {
			return err
		}
		link := rec.toLink()
		if res.RowsAffected == 0 {
			if err := share.RedeemError(link.State(now)); err != nil {
				return err
			}
			return errors.Conflict("share link changed during redemption")
		}
		out = link
		return nil
	})
	if err != nil {
		return nil, database.FromDatabase(err, "share link")
	}
	return out, nil
}

func (s *Store) Revoke(ctx context.Context, token string, at time.Time) (*share.Link, error) {
	var out *share.Link
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&LinkRecord{}).
			Where("token = ? AND revoked_at_ms = 0", token).
			UpdateColumn("revoked_at_ms", at.UnixMilli()).Error; err != nil {
			return err
		}
		var rec LinkRecord
		if err := tx.Where("token = ?", token).Take(&rec).Error; err != nil {
			return err
		}
		out = rec.toLink()
		return nil
	})
	if err != nil {
		return nil, database.FromDatabase(err, "share link")
	}
	return out, nil
}

func (s *Store) ListByFile(ctx context.Context, fileID string) ([]*share.Link, error) {
	var recs []LinkRecord
	if err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at_ms ASC").Order("token ASC").
		Find(&recs).Error; err != nil {
		return nil, database.FromDatabase(err, "share link")
	}
	out := make([]*share.Link, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toLink())
	}
	return out, nil
}

// TakeExpiredCopies claims each copy with a conditional UPDATE, so a row
// another sweeper cleared first is skipped.
func (s *Store) TakeExpiredCopies(ctx context.Context, now time.Time, limit int) ([]share.Copy, error) {
	var recs []LinkRecord
	if err := s.db.WithContext(ctx).
		Where("materialized_path <> '' AND expires_at_ms <= ?", now.UnixMilli()).
		Order("expires_at_ms ASC").Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, database.FromDatabase(err, "share link")
	}

	out := make([]share.Copy, 0, len(recs))
	for _, rec := range recs {
		res := s.db.WithContext(ctx).Model(&LinkRecord{}).
			Where("token = ? AND materialized_path = ?", rec.Token, rec.MaterializedPath).
			UpdateColumn("materialized_path", "")
		if res.Error != nil {
			return out, database.FromDatabase(res.Error, "share link")
		}
		if res.RowsAffected == 1 {
			out = append(out, share.Copy{Token: rec.Token, Path: rec.MaterializedPath})
		}
	}
	return out, nil
}

func toRecord(l *share.Link) LinkRecord {
	rec := LinkRecord{
		Token:            l.Token,
		FileID:           l.FileID,
		OwnerID:          l.OwnerID,
		Class:            string(l.Object.Class),
		Path:             l.Object.Path,
		MaterializedPath: l.MaterializedPath,
		ExpiresAtMs:      l.ExpiresAt.UnixMilli(),
		MaxRedemptions:   l.MaxRedemptions,
		RedemptionCount:  l.RedemptionCount,
		CreatedAtMs:      l.CreatedAt.UnixMilli(),
	}
	if !l.RevokedAt.IsZero() {
		rec.RevokedAtMs = l.RevokedAt.UnixMilli()
	}
	return rec
}

func (r *LinkRecord) toLink() *share.Link {
	l := &share.Link{
		Token:            r.Token,
		Object:           share.ObjectRef{Class: storage.Class(r.Class), Path: r.Path},
		FileID:           r.FileID,
		OwnerID:          r.OwnerID,
		ExpiresAt:        time.UnixMilli(r.ExpiresAtMs).UTC(),
		MaxRedemptions:   r.MaxRedemptions,
		RedemptionCount:  r.RedemptionCount,
		MaterializedPath: r.MaterializedPath,
		CreatedAt:        time.UnixMilli(r.CreatedAtMs).UTC(),
	}
	if r.RevokedAtMs > 0 {
		l.RevokedAt = time.UnixMilli(r.RevokedAtMs).UTC()
	}
	return l
}
