package repository

import (
	"context"
	"time"

	"github.com/702ron/product-api-site-sub000/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type conversionCacheRepository struct {
	db *gorm.DB
}

// NewConversionCacheRepository creates a conversion cache repository backed by GORM.
func NewConversionCacheRepository(db *gorm.DB) ConversionCacheRepository {
	return &conversionCacheRepository{db: db}
}

func (r *conversionCacheRepository) GetByFNSKU(ctx context.Context, fnsku string) (*models.ConversionCacheEntry, error) {
	var entry models.ConversionCacheEntry
	err := r.db.WithContext(ctx).Where("fnsku = ?", fnsku).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert inserts the entry or overwrites the existing row for the same FNSKU.
// created_at and hit_count of an existing row are preserved.
func (r *conversionCacheRepository) Upsert(ctx context.Context, entry *models.ConversionCacheEntry) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "fnsku"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"asin",
			"confidence_score",
			"method",
			"conversion_details",
			"error_message",
			"expires_at",
			"is_stale",
			"updated_at",
		}),
	}).Create(entry).Error; err != nil {
		return err
	}

	// Ensure ID and timestamps reflect the stored row after upsert.
	return db.Where("fnsku = ?", entry.FNSKU).First(entry).Error
}

// FindByPrefix returns servable entries with a known ASIN whose FNSKU starts
// with prefix, best confidence first.
func (r *conversionCacheRepository) FindByPrefix(ctx context.Context, prefix string, now time.Time, limit int) ([]models.ConversionCacheEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []models.ConversionCacheEntry
	err := r.db.WithContext(ctx).
		Where("fnsku LIKE ? AND asin IS NOT NULL AND asin <> '' AND is_stale = ? AND expires_at > ?", prefix+"%", false, now).
		Order("confidence_score DESC").
		Order("updated_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *conversionCacheRepository) IncrementHits(ctx context.Context, fnsku string, by int64) error {
	return r.db.WithContext(ctx).Model(&models.ConversionCacheEntry{}).
		Where("fnsku = ?", fnsku).
		UpdateColumn("hit_count", gorm.Expr("hit_count + ?", by)).Error
}

// MarkStale flags an entry so it is no longer served. Reports whether a row matched.
func (r *conversionCacheRepository) MarkStale(ctx context.Context, fnsku string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.ConversionCacheEntry{}).
		Where("fnsku = ?", fnsku).
		UpdateColumn("is_stale", true)
	return tx.RowsAffected > 0, tx.Error
}

func (r *conversionCacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.ConversionCacheEntry{})
	return tx.RowsAffected, tx.Error
}

// Scan walks every entry in primary key order, batchSize rows at a time.
func (r *conversionCacheRepository) Scan(ctx context.Context, batchSize int, fn func(batch []models.ConversionCacheEntry) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []models.ConversionCacheEntry
	return r.db.WithContext(ctx).Model(&models.ConversionCacheEntry{}).
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

func (r *conversionCacheRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ConversionCacheEntry{}).Count(&count).Error
	return count, err
}
