package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

const (
	TransactionTypePurchase   = "purchase"
	TransactionTypeUsage      = "usage"
	TransactionTypeRefund     = "refund"
	TransactionTypeAdjustment = "adjustment"
)

// CreditTransaction is an append-only ledger row. Amount is signed:
// negative for usage, positive for purchases, refunds and adjustments.
// Rows are never updated or deleted; corrections are new rows.
type CreditTransaction struct {
	ID                    uint              `gorm:"primaryKey" json:"id"`
	Reference             string            `gorm:"type:char(36);uniqueIndex;not null" json:"reference"`
	UserID                uint              `gorm:"not null;index:idx_credit_tx_user_created,priority:1" json:"user_id" validate:"required"`
	Amount                int               `gorm:"not null" json:"amount" validate:"required"`
	TransactionType       string            `gorm:"type:varchar(20);not null;index;check:chk_credit_tx_type,transaction_type IN ('purchase','usage','refund','adjustment')" json:"transaction_type" validate:"required,oneof=purchase usage refund adjustment"`
	Operation             string            `gorm:"type:varchar(100);index" json:"operation" validate:"max=100"`
	Description           string            `gorm:"type:text" json:"description"`
	StripePaymentIntentID *string           `gorm:"type:varchar(255);index" json:"stripe_payment_intent_id,omitempty"`
	StripeSessionID       *string           `gorm:"type:varchar(255)" json:"stripe_session_id,omitempty"`
	Metadata              datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt             time.Time         `gorm:"autoCreateTime;index:idx_credit_tx_user_created,priority:2" json:"created_at"`
}

func (t *CreditTransaction) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

// IsDebit reports whether the transaction reduced the balance.
func (t *CreditTransaction) IsDebit() bool {
	return t.Amount < 0
}

// IsValidTransactionType reports whether s is one of the four ledger types.
func IsValidTransactionType(s string) bool {
	switch s {
	case TransactionTypePurchase, TransactionTypeUsage, TransactionTypeRefund, TransactionTypeAdjustment:
		return true
	default:
		return false
	}
}
