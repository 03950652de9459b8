package repository

import (
	"context"
	"errors"
	"time"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *InvoiceRepository) WithTx(tx *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: tx}
}

// payable scopes a query to one organization's invoices in a payable state,
// ordered the same way for every lookup so candidate lists are reproducible.
func (r *InvoiceRepository) payable(ctx context.Context, orgID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("status IN ?", models.PayableStatuses).
		Order("due_date ASC").
		Order("number ASC").
		Order("id ASC")
}

// GetByID fetch a single invoice owned by orgID
func (r *InvoiceRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error) {
	return r.get(r.db.WithContext(ctx), orgID, id)
}

// GetByIDForUpdate is GetByID holding a row lock until the surrounding
// transaction ends. SQLite has no row locks and is left unlocked.
func (r *InvoiceRepository) GetByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(q, orgID, id)
}

func (r *InvoiceRepository) get(q *gorm.DB, orgID, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := q.Where("id = ? AND organization_id = ?", id, orgID).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindPayableByVariableSymbol returns every payable invoice carrying symbol.
func (r *InvoiceRepository) FindPayableByVariableSymbol(ctx context.Context, orgID uuid.UUID, symbol string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.payable(ctx, orgID).Where("variable_symbol = ?", symbol).Find(&invoices).Error
	return invoices, err
}

// FirstPayableByVariableSymbol returns the earliest-due payable invoice carrying symbol.
func (r *InvoiceRepository) FirstPayableByVariableSymbol(ctx context.Context, orgID uuid.UUID, symbol string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.payable(ctx, orgID).Where("variable_symbol = ?", symbol).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) FindPayableByCurrency(ctx context.Context, orgID uuid.UUID, currency string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.payable(ctx, orgID).Where("currency = ?", currency).Find(&invoices).Error
	return invoices, err
}

func (r *InvoiceRepository) FindPayableByContacts(ctx context.Context, orgID uuid.UUID, contactIDs []uuid.UUID) ([]models.Invoice, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}
	var invoices []models.Invoice
	err := r.payable(ctx, orgID).Where("contact_id IN ?", contactIDs).Find(&invoices).Error
	return invoices, err
}

// UpdatePaymentStatus writes the two invoice fields reconciliation owns.
func (r *InvoiceRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.InvoiceStatus, paidAt *time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  status,
			"paid_at": paidAt,
		}).Error
}
