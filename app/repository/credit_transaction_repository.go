package repository

import (
	"context"
	"time"

	"github.com/702ron/product-api-site-sub000/app/models"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type creditTransactionRepository struct {
	db *gorm.DB
}

// NewCreditTransactionRepository creates a ledger read repository backed by GORM.
func NewCreditTransactionRepository(db *gorm.DB) CreditTransactionRepository {
	return &creditTransactionRepository{db: db}
}

// ListByUser returns a page of transactions, newest first, plus the total
// number of rows matching the filter.
func (r *creditTransactionRepository) ListByUser(ctx context.Context, userID uint, filter TransactionFilter) ([]models.CreditTransaction, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		query = query.Where("transaction_type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []models.CreditTransaction
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// SumByType returns the signed amount per transaction type since the given time.
func (r *creditTransactionRepository) SumByType(ctx context.Context, userID uint, since time.Time) (map[string]int, error) {
	var rows []struct {
		TransactionType string
		Total           int
	}
	err := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Select("transaction_type, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("transaction_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[string]int, len(rows))
	for _, row := range rows {
		sums[row.TransactionType] = row.Total
	}
	return sums, nil
}

// UsageByOperation aggregates usage rows per operation. Credits is positive.
func (r *creditTransactionRepository) UsageByOperation(ctx context.Context, userID uint, since time.Time) ([]OperationUsage, error) {
	var usage []OperationUsage
	err := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Select("operation, COUNT(*) AS count, COALESCE(SUM(-amount), 0) AS credits").
		Where("user_id = ? AND transaction_type = ? AND created_at >= ?", userID, models.TransactionTypeUsage, since).
		Group("operation").
		Order("credits DESC").
		Scan(&usage).Error
	return usage, err
}

// SumAmounts returns the sum of every signed amount for the user. For a
// consistent ledger this equals the user's balance.
func (r *creditTransactionRepository) SumAmounts(ctx context.Context, userID uint) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	return total, err
}

// CountByUser returns the number of ledger rows for the user.
func (r *creditTransactionRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
