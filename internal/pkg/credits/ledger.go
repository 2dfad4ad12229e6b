package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/app/repository"
)

const defaultSummaryDays = 30

// AddOptions carries the optional fields of a balance increase.
type AddOptions struct {
	Operation             string
	Description           string
	StripePaymentIntentID string
	StripeSessionID       string
	Metadata              map[string]any
}

// UsageSummary aggregates a user's ledger over a trailing window.
type UsageSummary struct {
	UserID         uint                        `json:"user_id"`
	PeriodDays     int                         `json:"period_days"`
	Since          time.Time                   `json:"since"`
	CurrentBalance int                         `json:"current_balance"`
	TotalUsed      int                         `json:"total_used"`
	TotalPurchased int                         `json:"total_purchased"`
	TotalRefunded  int                         `json:"total_refunded"`
	TotalAdjusted  int                         `json:"total_adjusted"`
	ByOperation    []repository.OperationUsage `json:"by_operation"`
}

// Ledger owns every mutation of user credit balances. Each mutation locks
// the user row, updates the balance and appends a CreditTransaction inside
// one database transaction.
type Ledger struct {
	db  *gorm.DB
	txs repository.CreditTransactionRepository
	now func() time.Time
}

// NewLedger creates a ledger from an injected database handle and read repository.
func NewLedger(db *gorm.DB, txs repository.CreditTransactionRepository) *Ledger {
	return &Ledger{db: db, txs: txs, now: time.Now}
}

// NewLedgerFromDB creates a ledger with the default GORM read repository.
func NewLedgerFromDB(db *gorm.DB) *Ledger {
	return NewLedger(db, repository.NewCreditTransactionRepository(db))
}

// Deduct charges cost credits for an operation. It fails with an
// *InsufficientCreditsError, leaving balance and ledger untouched, when the
// balance does not cover the cost.
func (l *Ledger) Deduct(ctx context.Context, userID uint, operation string, cost int, description string, metadata map[string]any) (*models.CreditTransaction, error) {
	if cost <= 0 {
		return nil, fmt.Errorf("%w: cost must be positive, got %d", ErrInvalidAmount, cost)
	}

	var entry *models.CreditTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if user.Credits < cost {
			return &InsufficientCreditsError{UserID: userID, Required: cost, Available: user.Credits}
		}

		balance := user.Credits - cost
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("credits", balance).Error; err != nil {
			return err
		}

		entry = newTransaction(userID, -cost, models.TransactionTypeUsage, operation, description, metadata, balance)
		return tx.Create(entry).Error
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientCredits) {
			log.Errorf("[Ledger] Deduct of %d credits for user %d (%s) failed: %v", cost, userID, operation, err)
		}
		return nil, err
	}

	log.Debugf("[Ledger] Deducted %d credits from user %d for %s", cost, userID, operation)
	return entry, nil
}

// Add increases the balance. txType must be purchase, refund or adjustment.
func (l *Ledger) Add(ctx context.Context, userID uint, amount int, txType string, opts AddOptions) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidAmount, amount)
	}
	if txType == models.TransactionTypeUsage || !models.IsValidTransactionType(txType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, txType)
	}

	var entry *models.CreditTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		balance := user.Credits + amount
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("credits", balance).Error; err != nil {
			return err
		}

		entry = newTransaction(userID, amount, txType, opts.Operation, opts.Description, opts.Metadata, balance)
		entry.StripePaymentIntentID = optionalString(opts.StripePaymentIntentID)
		entry.StripeSessionID = optionalString(opts.StripeSessionID)
		return tx.Create(entry).Error
	})
	if err != nil {
		log.Errorf("[Ledger] Add of %d credits (%s) for user %d failed: %v", amount, txType, userID, err)
		return nil, err
	}

	log.Infof("[Ledger] Added %d credits (%s) to user %d", amount, txType, userID)
	return entry, nil
}

// Refund returns credits for an operation that did not deliver.
func (l *Ledger) Refund(ctx context.Context, userID uint, amount int, reason, originalOperation string) (*models.CreditTransaction, error) {
	return l.Add(ctx, userID, amount, models.TransactionTypeRefund, AddOptions{
		Operation:   originalOperation,
		Description: fmt.Sprintf("Refund for %s: %s", originalOperation, reason),
		Metadata: map[string]any{
			"reason":             reason,
			"original_operation": originalOperation,
		},
	})
}

// GetBalance returns the current balance of the user.
func (l *Ledger) GetBalance(ctx context.Context, userID uint) (int, error) {
	var user models.User
	err := l.db.WithContext(ctx).Select("id", "credits").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
		}
		return 0, err
	}
	return user.Credits, nil
}

// GetHistory returns a page of the user's transactions, newest first, and
// the total number of matching rows.
func (l *Ledger) GetHistory(ctx context.Context, userID uint, filter repository.TransactionFilter) ([]models.CreditTransaction, int64, error) {
	filter.Type = strings.ToLower(strings.TrimSpace(filter.Type))
	if filter.Type != "" && !models.IsValidTransactionType(filter.Type) {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidTransactionType, filter.Type)
	}
	return l.txs.ListByUser(ctx, userID, filter)
}

// GetUsageSummary aggregates the last days of ledger activity.
func (l *Ledger) GetUsageSummary(ctx context.Context, userID uint, days int) (*UsageSummary, error) {
	if days <= 0 {
		days = defaultSummaryDays
	}
	balance, err := l.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	since := l.now().AddDate(0, 0, -days)
	sums, err := l.txs.SumByType(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	byOperation, err := l.txs.UsageByOperation(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	if byOperation == nil {
		byOperation = []repository.OperationUsage{}
	}

	return &UsageSummary{
		UserID:         userID,
		PeriodDays:     days,
		Since:          since,
		CurrentBalance: balance,
		TotalUsed:      -sums[models.TransactionTypeUsage],
		TotalPurchased: sums[models.TransactionTypePurchase],
		TotalRefunded:  sums[models.TransactionTypeRefund],
		TotalAdjusted:  sums[models.TransactionTypeAdjustment],
		ByOperation:    byOperation,
	}, nil
}

// lockUser reads the user row with an exclusive lock held until the
// surrounding transaction ends.
func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	err := lockUserQuery(tx, userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
		}
		return nil, err
	}
	return &user, nil
}

// lockUserQuery selects the balance of one user with SELECT ... FOR UPDATE.
// Dialects without row locks (SQLite) drop the clause.
func lockUserQuery(tx *gorm.DB, userID uint) *gorm.DB {
	return tx.Model(&models.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "credits").
		Where("id = ?", userID)
}

func newTransaction(userID uint, amount int, txType, operation, description string, metadata map[string]any, balanceAfter int) *models.CreditTransaction {
	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["balance_after"] = balanceAfter

	return &models.CreditTransaction{
		Reference:       uuid.NewString(),
		UserID:          userID,
		Amount:          amount,
		TransactionType: txType,
		Operation:       operation,
		Description:     description,
		Metadata:        meta,
	}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
