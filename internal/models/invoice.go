package models

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusViewed        InvoiceStatus = "VIEWED"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// PayableStatuses are the invoice states a bank transaction can be reconciled against.
var PayableStatuses = []InvoiceStatus{
	InvoiceStatusSent,
	InvoiceStatusViewed,
	InvoiceStatusOverdue,
	InvoiceStatusPartiallyPaid,
}

// Payable reports whether the status is one of PayableStatuses.
func (s InvoiceStatus) Payable() bool {
	for _, p := range PayableStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// Matchable reports whether a payment may be recorded against an invoice in
// this status. PAID is matchable (over-payment is accepted), DRAFT and
// CANCELLED are not.
func (s InvoiceStatus) Matchable() bool {
	return s != InvoiceStatusDraft && s != InvoiceStatusCancelled
}

type Invoice struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;index" json:"organization_id"`
	ContactID      *uuid.UUID    `gorm:"type:uuid;index" json:"contact_id,omitempty"`
	Number         string        `gorm:"index" json:"number"`
	Currency       string        `gorm:"size:3" json:"currency"`
	Total          int64         `json:"total"`
	DueDate        time.Time     `json:"due_date"`
	VariableSymbol *string       `gorm:"index" json:"variable_symbol,omitempty"`
	Status         InvoiceStatus `gorm:"index" json:"status"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
