package repository

import (
	"context"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchAuditLogRepository struct {
	db *gorm.DB
}

func NewMatchAuditLogRepository(db *gorm.DB) *MatchAuditLogRepository {
	return &MatchAuditLogRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *MatchAuditLogRepository) WithTx(tx *gorm.DB) *MatchAuditLogRepository {
	return &MatchAuditLogRepository{db: tx}
}

func (r *MatchAuditLogRepository) Create(ctx context.Context, entry *models.MatchAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByTransaction returns the audit trail of one transaction, oldest first.
func (r *MatchAuditLogRepository) ListByTransaction(ctx context.Context, orgID, txnID uuid.UUID) ([]models.MatchAuditLog, error) {
	var entries []models.MatchAuditLog
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND transaction_id = ?", orgID, txnID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
