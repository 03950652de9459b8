package models

import (
	"time"

	"github.com/google/uuid"
)

const PaymentMethodBankTransfer = "BANK_TRANSFER"

type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index" json:"invoice_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `gorm:"size:3" json:"currency"`
	PaidAt    time.Time `json:"paid_at"`
	Method    string    `json:"method"`
	Reference *string   `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
