// Package metering binds credit charges to the work they pay for. Credits
// are taken before the work runs and given back when it does not deliver.
package metering

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/702ron/product-api-site-sub000/app/models"
)

// ErrRefundFailed marks a failure whose compensating refund could not be written.
var ErrRefundFailed = errors.New("refund failed")

// Ledger is the subset of the credit ledger the meter needs.
type Ledger interface {
	Deduct(ctx context.Context, userID uint, operation string, cost int, description string, metadata map[string]any) (*models.CreditTransaction, error)
	Refund(ctx context.Context, userID uint, amount int, reason, originalOperation string) (*models.CreditTransaction, error)
}

// Charge describes the credits taken before a unit of work runs.
type Charge struct {
	UserID      uint
	Operation   string
	Cost        int
	Description string
	Metadata    map[string]any
}

// Usage is reported by successful work. Unused credits are refunded.
type Usage struct {
	Unused int
	Reason string
}

// Receipt summarizes what the user finally paid.
type Receipt struct {
	Charged     int
	Refunded    int
	Transaction *models.CreditTransaction
	RefundErr   error
}

// Net returns the credits kept after refunds.
func (r *Receipt) Net() int {
	return r.Charged - r.Refunded
}

// FailureError tags a work error with the reason recorded on its refund.
type FailureError struct {
	Reason string
	Err    error
}

func (e *FailureError) Error() string {
	return e.Err.Error()
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// Fail wraps err so its refund carries reason.
func Fail(reason string, err error) error {
	if err == nil {
		return nil
	}
	return &FailureError{Reason: reason, Err: err}
}

// Meter runs credit-metered work.
type Meter struct {
	ledger Ledger
}

// NewMeter creates a meter charging through the given ledger.
func NewMeter(ledger Ledger) *Meter {
	return &Meter{ledger: ledger}
}

// Do charges the user, runs work and settles the charge:
//   - a failed charge (e.g. insufficient credits) is returned as is; work
//     does not run and nothing is refunded;
//   - a work error or panic refunds the full cost before the error is
//     returned (or the panic resumes);
//   - successful work may report unused credits, which are refunded.
func (m *Meter) Do(ctx context.Context, charge Charge, work func(ctx context.Context) (Usage, error)) (receipt *Receipt, err error) {
	tx, err := m.ledger.Deduct(ctx, charge.UserID, charge.Operation, charge.Cost, charge.Description, charge.Metadata)
	if err != nil {
		return nil, err
	}
	receipt = &Receipt{Charged: charge.Cost, Transaction: tx}

	defer func() {
		if p := recover(); p != nil {
			if rerr := m.refund(ctx, charge, charge.Cost, "unexpected_error"); rerr == nil {
				receipt.Refunded = charge.Cost
			}
			panic(p)
		}
	}()

	usage, workErr := work(ctx)
	if workErr != nil {
		reason := failureReason(workErr)
		if rerr := m.refund(ctx, charge, charge.Cost, reason); rerr != nil {
			return receipt, errors.Join(workErr, fmt.Errorf("%w: %v", ErrRefundFailed, rerr))
		}
		receipt.Refunded = charge.Cost
		return receipt, workErr
	}

	if usage.Unused > 0 {
		amount := min(usage.Unused, charge.Cost)
		reason := usage.Reason
		if reason == "" {
			reason = "partial_usage"
		}
		if rerr := m.refund(ctx, charge, amount, reason); rerr != nil {
			receipt.RefundErr = rerr
		} else {
			receipt.Refunded = amount
		}
	}
	return receipt, nil
}

func (m *Meter) refund(ctx context.Context, charge Charge, amount int, reason string) error {
	// The refund must land even if the request that paid for the work was cancelled.
	refundCtx := context.WithoutCancel(ctx)
	if _, err := m.ledger.Refund(refundCtx, charge.UserID, amount, reason, charge.Operation); err != nil {
		log.Errorf("[Meter] Refund of %d credits for user %d (%s, %s) failed: %v", amount, charge.UserID, charge.Operation, reason, err)
		return err
	}
	log.Infof("[Meter] Refunded %d credits to user %d for %s: %s", amount, charge.UserID, charge.Operation, reason)
	return nil
}

func failureReason(err error) string {
	var fe *FailureError
	if errors.As(err, &fe) && fe.Reason != "" {
		return fe.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "operation_failed"
}
