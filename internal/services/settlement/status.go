package settlement

import (
	"time"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"
)

// StatusInput is everything the projector looks at.
type StatusInput struct {
	Total          int64
	Paid           int64
	DueDate        time.Time
	Previous       models.InvoiceStatus
	PreviousPaidAt *time.Time
	// Now is both the clock used for the overdue check and the event time
	// recorded when the invoice becomes paid.
	Now time.Time
}

type Projection struct {
	Status models.InvoiceStatus
	PaidAt *time.Time
}

// ProjectStatus maps an invoice's payment totals to its payment status.
//
// An invoice that was already PAID and stays fully paid keeps its original
// paidAt. Any non-paid outcome clears paidAt. The VIEWED sub-state is never
// produced: an invoice with no payments falls back to SENT or OVERDUE.
func ProjectStatus(in StatusInput) Projection {
	switch {
	case in.Paid >= in.Total:
		if in.Previous == models.InvoiceStatusPaid && in.PreviousPaidAt != nil {
			paidAt := *in.PreviousPaidAt
			return Projection{Status: models.InvoiceStatusPaid, PaidAt: &paidAt}
		}
		paidAt := in.Now
		return Projection{Status: models.InvoiceStatusPaid, PaidAt: &paidAt}
	case in.Paid > 0:
		return Projection{Status: models.InvoiceStatusPartiallyPaid}
	case in.Now.After(in.DueDate):
		return Projection{Status: models.InvoiceStatusOverdue}
	default:
		return Projection{Status: models.InvoiceStatusSent}
	}
}
