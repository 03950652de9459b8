// Package settlement derives an invoice's outstanding balance and payment
// status from the payments recorded against it.
package settlement

import (
	"context"
	"fmt"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
)

// PaymentSums is the read side of the payment store the calculator needs.
type PaymentSums interface {
	SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	SumByInvoices(ctx context.Context, invoiceIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// BalanceCalculator computes RemainingAmount from live payment rows. It holds
// no state, so every call reflects what the store holds at that moment.
type BalanceCalculator struct {
	payments PaymentSums
}

func NewBalanceCalculator(payments PaymentSums) *BalanceCalculator {
	return &BalanceCalculator{payments: payments}
}

// Paid returns the sum of payments recorded against the invoice.
func (c *BalanceCalculator) Paid(ctx context.Context, invoice *models.Invoice) (int64, error) {
	paid, err := c.payments.SumByInvoice(ctx, invoice.ID)
	if err != nil {
		return 0, fmt.Errorf("sum payments of invoice %s: %w", invoice.ID, err)
	}
	return paid, nil
}

// Remaining returns invoice.Total minus every payment recorded against it.
// The result is negative for over-paid invoices.
func (c *BalanceCalculator) Remaining(ctx context.Context, invoice *models.Invoice) (int64, error) {
	paid, err := c.Paid(ctx, invoice)
	if err != nil {
		return 0, err
	}
	return invoice.Total - paid, nil
}

// RemainingFor computes Remaining for a list of invoices with a single query.
func (c *BalanceCalculator) RemainingFor(ctx context.Context, invoices []models.Invoice) (map[uuid.UUID]int64, error) {
	ids := make([]uuid.UUID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	paid, err := c.payments.SumByInvoices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("sum payments of %d invoices: %w", len(ids), err)
	}
	out := make(map[uuid.UUID]int64, len(invoices))
	for _, inv := range invoices {
		out[inv.ID] = inv.Total - paid[inv.ID]
	}
	return out, nil
}
