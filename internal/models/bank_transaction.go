package models

import (
	"time"

	"github.com/google/uuid"
)

// BankTransaction is one posted bank-ledger line. Rows are written by
// ingestion and only MatchedPaymentID changes afterwards.
type BankTransaction struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID      uuid.UUID  `gorm:"type:uuid;index" json:"organization_id"`
	BankAccountID       uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_bank_tx_account_external" json:"bank_account_id"`
	ExternalID          string     `gorm:"uniqueIndex:idx_bank_tx_account_external" json:"external_id"`
	Date                time.Time  `gorm:"index" json:"date"`
	Amount              int64      `json:"amount"`
	Currency            string     `gorm:"size:3" json:"currency"`
	CounterpartyName    *string    `json:"counterparty_name,omitempty"`
	CounterpartyAccount *string    `json:"counterparty_account,omitempty"`
	VariableSymbol      *string    `gorm:"index" json:"variable_symbol,omitempty"`
	Description         *string    `json:"description,omitempty"`
	MatchedPaymentID    *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"matched_payment_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func (t *BankTransaction) IsCredit() bool {
	return t.Amount > 0
}

func (t *BankTransaction) IsMatched() bool {
	return t.MatchedPaymentID != nil
}
