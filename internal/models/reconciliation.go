package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusCancelled  = "cancelled"
	RunStatusFailed     = "failed"
)

// AutoMatchRun records one invocation of the batch auto-match job.
type AutoMatchRun struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;index" json:"organization_id"`
	BankAccountID  *uuid.UUID `gorm:"type:uuid" json:"bank_account_id,omitempty"`
	Status         string     `json:"status"`
	CandidateCount int        `json:"candidate_count"`
	MatchedCount   int        `json:"matched_count"`
	SkippedCount   int        `json:"skipped_count"`
	FailedCount    int        `json:"failed_count"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
