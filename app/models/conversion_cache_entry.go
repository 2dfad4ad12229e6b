package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConversionCacheTTL is how long a conversion outcome stays servable.
const ConversionCacheTTL = 72 * time.Hour

// ConversionCacheEntry stores the last conversion outcome for an FNSKU.
// Failed conversions are stored too, with a nil ASIN.
type ConversionCacheEntry struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	FNSKU             string            `gorm:"column:fnsku;type:varchar(10);not null;uniqueIndex" json:"fnsku" validate:"required,len=10,alphanum"`
	ASIN              *string           `gorm:"column:asin;type:varchar(10);index" json:"asin"`
	ConfidenceScore   int               `gorm:"not null;default:0;check:chk_conversion_cache_confidence,confidence_score BETWEEN 0 AND 100" json:"confidence_score" validate:"min=0,max=100"`
	Method            string            `gorm:"type:varchar(50);not null;index" json:"method"`
	ConversionDetails datatypes.JSONMap `json:"conversion_details,omitempty"`
	ErrorMessage      string            `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	ExpiresAt         time.Time         `gorm:"not null;index" json:"expires_at"`
	IsStale           bool              `gorm:"not null;default:false" json:"is_stale"`
	HitCount          int64             `gorm:"not null;default:0" json:"hit_count"`
}

func (ConversionCacheEntry) TableName() string {
	return "conversion_cache_entries"
}

// IsExpired reports whether the entry is past its expiry at the given time.
func (e *ConversionCacheEntry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// IsServable reports whether the entry can be returned as a cache hit.
func (e *ConversionCacheEntry) IsServable(now time.Time) bool {
	return !e.IsStale && !e.IsExpired(now)
}

// HasASIN reports whether the cached conversion succeeded.
func (e *ConversionCacheEntry) HasASIN() bool {
	return e.ASIN != nil && *e.ASIN != ""
}
