package repository

import (
	"context"
	"errors"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *BankTransactionRepository) WithTx(tx *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: tx}
}

func (r *BankTransactionRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.BankTransaction, error) {
	var txn models.BankTransaction
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *BankTransactionRepository) unmatchedCredits(ctx context.Context, orgID uuid.UUID, accountID *uuid.UUID) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("organization_id = ?", orgID).
		Where("matched_payment_id IS NULL").
		Where("amount > 0")
	if accountID != nil {
		q = q.Where("bank_account_id = ?", *accountID)
	}
	return q
}

// ListUnmatched returns unmatched credit transactions, newest first.
func (r *BankTransactionRepository) ListUnmatched(ctx context.Context, orgID uuid.UUID, accountID *uuid.UUID, limit int) ([]models.BankTransaction, error) {
	var txns []models.BankTransaction
	err := r.unmatchedCredits(ctx, orgID, accountID).
		Order("date DESC").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

type UnmatchedStat struct {
	Currency string `json:"currency"`
	Count    int64  `json:"count"`
	Sum      int64  `json:"sum"`
}

// UnmatchedStats aggregates unmatched credits per currency.
func (r *BankTransactionRepository) UnmatchedStats(ctx context.Context, orgID uuid.UUID, accountID *uuid.UUID) ([]UnmatchedStat, error) {
	var rows []UnmatchedStat
	err := r.unmatchedCredits(ctx, orgID, accountID).
		Select("currency, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Group("currency").
		Order("currency ASC").
		Scan(&rows).Error
	return rows, err
}

// ListAutoMatchCandidates returns unmatched credits carrying a variable symbol, oldest first.
func (r *BankTransactionRepository) ListAutoMatchCandidates(ctx context.Context, orgID uuid.UUID, accountID *uuid.UUID) ([]models.BankTransaction, error) {
	var txns []models.BankTransaction
	err := r.unmatchedCredits(ctx, orgID, accountID).
		Where("variable_symbol IS NOT NULL AND variable_symbol <> ''").
		Order("date ASC").
		Order("id ASC").
		Find(&txns).Error
	return txns, err
}

// LinkPayment sets matched_payment_id only while it is still NULL.
func (r *BankTransactionRepository) LinkPayment(ctx context.Context, orgID, id, paymentID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("id = ? AND organization_id = ? AND matched_payment_id IS NULL", id, orgID).
		Update("matched_payment_id", paymentID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrAlreadyLinked
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyLinked
	}
	return nil
}

// UnlinkPayment clears matched_payment_id only while it still points at paymentID.
func (r *BankTransactionRepository) UnlinkPayment(ctx context.Context, orgID, id, paymentID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("id = ? AND organization_id = ? AND matched_payment_id = ?", id, orgID, paymentID).
		Update("matched_payment_id", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotLinked
	}
	return nil
}

// insertBatchSize keeps one INSERT well below the bind variable limits of
// postgres (65535) and SQLite (32766).
const insertBatchSize = 500

// InsertNew inserts transactions, silently skipping (bank_account_id, external_id) duplicates.
func (r *BankTransactionRepository) InsertNew(ctx context.Context, txns []models.BankTransaction) (int64, error) {
	if len(txns) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bank_account_id"}, {Name: "external_id"}},
			DoNothing: true,
		}).
		CreateInBatches(&txns, insertBatchSize)
	return res.RowsAffected, res.Error
}
