package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditActionMatch     = "MATCH"
	AuditActionUnmatch   = "UNMATCH"
	AuditActionAutoMatch = "AUTO_MATCH"
)

type MatchAuditLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;index" json:"organization_id"`
	TransactionID  uuid.UUID      `gorm:"type:uuid;index" json:"transaction_id"`
	InvoiceID      uuid.UUID      `gorm:"type:uuid;index" json:"invoice_id"`
	PaymentID      uuid.UUID      `gorm:"type:uuid" json:"payment_id"`
	Action         string         `json:"action"`
	PerformedBy    string         `json:"performed_by"`
	Reason         string         `json:"reason"`
	Details        datatypes.JSON `json:"details"`
	CreatedAt      time.Time      `json:"created_at"`
}
