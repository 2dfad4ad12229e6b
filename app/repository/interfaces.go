package repository

import (
	"context"
	"time"

	"github.com/702ron/product-api-site-sub000/app/models"
)

// UserRepository defines the interface for user-related database operations.
// Balance mutations are not part of it; they go through the credit ledger.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, error)
	SaveAPIKey(ctx context.Context, user *models.User) error
	TouchAPIKeyUsage(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, offset, limit int) ([]models.User, error)
}

// CreditTransactionRepository provides read access to the credit ledger.
type CreditTransactionRepository interface {
	ListByUser(ctx context.Context, userID uint, filter TransactionFilter) ([]models.CreditTransaction, int64, error)
	SumByType(ctx context.Context, userID uint, since time.Time) (map[string]int, error)
	UsageByOperation(ctx context.Context, userID uint, since time.Time) ([]OperationUsage, error)
	SumAmounts(ctx context.Context, userID uint) (int, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

// ConversionCacheRepository defines persistence for FNSKU conversion outcomes.
type ConversionCacheRepository interface {
	GetByFNSKU(ctx context.Context, fnsku string) (*models.ConversionCacheEntry, error)
	Upsert(ctx context.Context, entry *models.ConversionCacheEntry) error
	FindByPrefix(ctx context.Context, prefix string, now time.Time, limit int) ([]models.ConversionCacheEntry, error)
	IncrementHits(ctx context.Context, fnsku string, by int64) error
	MarkStale(ctx context.Context, fnsku string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Scan(ctx context.Context, batchSize int, fn func(batch []models.ConversionCacheEntry) error) error
	Count(ctx context.Context) (int64, error)
}

// TransactionFilter narrows a ledger history query. Zero values mean "all".
type TransactionFilter struct {
	Type   string
	Limit  int
	Offset int
}

// OperationUsage aggregates usage rows for one operation.
type OperationUsage struct {
	Operation string `json:"operation"`
	Count     int64  `json:"count"`
	Credits   int    `json:"credits"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	User              UserRepository
	CreditTransaction CreditTransactionRepository
	ConversionCache   ConversionCacheRepository
}
