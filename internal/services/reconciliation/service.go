package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/metrics"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/repository"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/services/matching"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/services/settlement"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultUnmatchedLimit = 50
	MaxUnmatchedLimit     = 500
)

// Scope identifies the caller of an operation. Every lookup is filtered by
// OrganizationID; Actor is written to the audit log.
type Scope struct {
	OrganizationID uuid.UUID
	Actor          string
}

// ReconciliationService is the only component that creates or deletes
// payments and flips a bank transaction's matched link.
type ReconciliationService struct {
	db              *gorm.DB
	transactionRepo *repository.BankTransactionRepository
	invoiceRepo     *repository.InvoiceRepository
	paymentRepo     *repository.PaymentRepository
	contactRepo     *repository.ContactRepository
	auditRepo       *repository.MatchAuditLogRepository
	runRepo         *repository.AutoMatchRunRepository
	finder          *matching.Finder

	tolerance      matching.Tolerance
	maxSuggestions int
	defaultLimit   int
	maxLimit       int
	logger         *log.Logger
	now            func() time.Time
}

type Option func(*ReconciliationService)

func WithTolerance(t matching.Tolerance) Option {
	return func(s *ReconciliationService) { s.tolerance = t }
}

func WithMaxSuggestions(n int) Option {
	return func(s *ReconciliationService) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithUnmatchedLimits sets the default and maximum page size of GetUnmatchedTransactions.
func WithUnmatchedLimits(defaultLimit, maxLimit int) Option {
	return func(s *ReconciliationService) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *ReconciliationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for overdue checks and paidAt.
func WithClock(now func() time.Time) Option {
	return func(s *ReconciliationService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewReconciliationService(db *gorm.DB, opts ...Option) *ReconciliationService {
	s := &ReconciliationService{
		db:              db,
		transactionRepo: repository.NewBankTransactionRepository(db),
		invoiceRepo:     repository.NewInvoiceRepository(db),
		paymentRepo:     repository.NewPaymentRepository(db),
		contactRepo:     repository.NewContactRepository(db),
		auditRepo:       repository.NewMatchAuditLogRepository(db),
		runRepo:         repository.NewAutoMatchRunRepository(db),
		tolerance:       matching.DefaultTolerance(),
		maxSuggestions:  matching.DefaultMaxSuggestions,
		defaultLimit:    DefaultUnmatchedLimit,
		maxLimit:        MaxUnmatchedLimit,
		logger:          log.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.finder = matching.NewFinder(
		s.invoiceRepo,
		s.contactRepo,
		settlement.NewBalanceCalculator(s.paymentRepo),
		s.tolerance,
		matching.WithMaxResults(s.maxSuggestions),
	)
	return s
}

type UnmatchedTransactions struct {
	Items []models.BankTransaction    `json:"items"`
	Stats []repository.UnmatchedStat `json:"stats"`
}

// GetUnmatchedTransactions lists credit transactions without a linked
// payment, newest first, together with per-currency totals of the same scope.
func (s *ReconciliationService) GetUnmatchedTransactions(ctx context.Context, scope Scope, accountID *uuid.UUID, limit int) (*UnmatchedTransactions, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	items, err := s.transactionRepo.ListUnmatched(ctx, scope.OrganizationID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unmatched transactions: %w", err)
	}
	stats, err := s.transactionRepo.UnmatchedStats(ctx, scope.OrganizationID, accountID)
	if err != nil {
		return nil, fmt.Errorf("unmatched transaction stats: %w", err)
	}
	if items == nil {
		items = []models.BankTransaction{}
	}
	if stats == nil {
		stats = []repository.UnmatchedStat{}
	}
	return &UnmatchedTransactions{Items: items, Stats: stats}, nil
}

// SuggestMatches ranks candidate invoices for an unmatched transaction.
func (s *ReconciliationService) SuggestMatches(ctx context.Context, scope Scope, txnID uuid.UUID) ([]matching.Candidate, error) {
	txn, err := s.transactionRepo.GetByID(ctx, scope.OrganizationID, txnID)
	if err != nil {
		return nil, notFound("transaction", txnID, err)
	}
	if txn.IsMatched() {
		return nil, fmt.Errorf("transaction %s: %w", txnID, ErrAlreadyMatched)
	}

	candidates, err := s.finder.Suggest(ctx, scope.OrganizationID, txn)
	if err != nil {
		return nil, fmt.Errorf("suggest matches for %s: %w", txnID, err)
	}
	metrics.ObserveSuggestions(len(candidates))
	return candidates, nil
}

type MatchResult struct {
	PaymentID uuid.UUID            `json:"payment_id"`
	NewStatus models.InvoiceStatus `json:"new_status"`
}

// MatchTransaction records the transaction as a payment of the invoice. The
// payment, the transaction link and the invoice status are written in one
// database transaction; the link only succeeds while the transaction is
// still unmatched, so concurrent calls yield exactly one payment.
//
// Amount and currency are not checked against the invoice: any candidate can
// be force-matched, including over-paying an invoice.
func (s *ReconciliationService) MatchTransaction(ctx context.Context, scope Scope, txnID, invoiceID uuid.UUID) (*MatchResult, error) {
	var result *MatchResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.transactionRepo.WithTx(tx).GetByID(ctx, scope.OrganizationID, txnID)
		if err != nil {
			return notFound("transaction", txnID, err)
		}
		if txn.IsMatched() {
			return fmt.Errorf("transaction %s: %w", txnID, ErrAlreadyMatched)
		}

		result, err = s.applyMatch(ctx, tx, scope, txn, invoiceID, models.AuditActionMatch, "manual match")
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordMatch(metrics.SourceManual)
	return result, nil
}

// applyMatch performs the match effect inside tx. txn must have been read through tx.
func (s *ReconciliationService) applyMatch(ctx context.Context, tx *gorm.DB, scope Scope, txn *models.BankTransaction, invoiceID uuid.UUID, action, reason string) (*MatchResult, error) {
	invoice, err := s.invoiceRepo.WithTx(tx).GetByIDForUpdate(ctx, scope.OrganizationID, invoiceID)
	if err != nil {
		return nil, notFound("invoice", invoiceID, err)
	}
	if !invoice.Status.Matchable() {
		return nil, fmt.Errorf("invoice %s is %s: %w", invoice.Number, invoice.Status, ErrInvoiceNotPayable)
	}

	reference := txn.ExternalID
	if txn.VariableSymbol != nil && *txn.VariableSymbol != "" {
		reference = *txn.VariableSymbol
	}
	payment := &models.Payment{
		ID:        uuid.New(),
		InvoiceID: invoice.ID,
		Amount:    txn.Amount,
		Currency:  txn.Currency,
		PaidAt:    txn.Date,
		Method:    models.PaymentMethodBankTransfer,
		Reference: &reference,
		CreatedAt: s.now(),
	}
	if err := s.paymentRepo.WithTx(tx).Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := s.transactionRepo.WithTx(tx).LinkPayment(ctx, scope.OrganizationID, txn.ID, payment.ID); err != nil {
		if errors.Is(err, repository.ErrAlreadyLinked) {
			return nil, fmt.Errorf("transaction %s: %w", txn.ID, ErrAlreadyMatched)
		}
		return nil, fmt.Errorf("link payment: %w", err)
	}

	previous := invoice.Status
	projection, err := s.reproject(ctx, tx, invoice)
	if err != nil {
		return nil, err
	}

	if err := s.audit(ctx, tx, scope, action, reason, txn.ID, invoice.ID, payment.ID, map[string]interface{}{
		"amount":          txn.Amount,
		"currency":        txn.Currency,
		"invoice_number":  invoice.Number,
		"previous_status": previous,
		"new_status":      projection.Status,
	}); err != nil {
		return nil, err
	}

	return &MatchResult{PaymentID: payment.ID, NewStatus: projection.Status}, nil
}

type UnmatchResult struct {
	NewStatus models.InvoiceStatus `json:"new_status"`
}

// UnmatchTransaction deletes the transaction's payment, clears the link and
// recomputes the invoice status from the payments that remain, all in one
// database transaction.
func (s *ReconciliationService) UnmatchTransaction(ctx context.Context, scope Scope, txnID uuid.UUID) (*UnmatchResult, error) {
	var result *UnmatchResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.transactionRepo.WithTx(tx).GetByID(ctx, scope.OrganizationID, txnID)
		if err != nil {
			return notFound("transaction", txnID, err)
		}
		if !txn.IsMatched() {
			return fmt.Errorf("transaction %s: %w", txnID, ErrNotMatched)
		}
		paymentID := *txn.MatchedPaymentID

		payment, err := s.paymentRepo.WithTx(tx).GetByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("load payment %s linked from transaction %s: %w", paymentID, txnID, err)
		}

		// Invoice before transaction row, the same lock order as applyMatch.
		invoice, err := s.invoiceRepo.WithTx(tx).GetByIDForUpdate(ctx, scope.OrganizationID, payment.InvoiceID)
		if err != nil {
			return notFound("invoice", payment.InvoiceID, err)
		}

		if err := s.transactionRepo.WithTx(tx).UnlinkPayment(ctx, scope.OrganizationID, txnID, paymentID); err != nil {
			if errors.Is(err, repository.ErrNotLinked) {
				return fmt.Errorf("transaction %s: %w", txnID, ErrNotMatched)
			}
			return fmt.Errorf("unlink payment: %w", err)
		}
		if err := s.paymentRepo.WithTx(tx).Delete(ctx, paymentID); err != nil {
			return fmt.Errorf("delete payment %s: %w", paymentID, err)
		}

		previous := invoice.Status
		projection, err := s.reproject(ctx, tx, invoice)
		if err != nil {
			return err
		}

		if err := s.audit(ctx, tx, scope, models.AuditActionUnmatch, "manual unmatch", txnID, invoice.ID, paymentID, map[string]interface{}{
			"amount":          payment.Amount,
			"currency":        payment.Currency,
			"invoice_number":  invoice.Number,
			"previous_status": previous,
			"new_status":      projection.Status,
		}); err != nil {
			return err
		}

		result = &UnmatchResult{NewStatus: projection.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordUnmatch()
	return result, nil
}

// reproject recomputes the invoice's paid total from live payment rows inside
// tx and writes the projected status.
func (s *ReconciliationService) reproject(ctx context.Context, tx *gorm.DB, invoice *models.Invoice) (settlement.Projection, error) {
	paid, err := settlement.NewBalanceCalculator(s.paymentRepo.WithTx(tx)).Paid(ctx, invoice)
	if err != nil {
		return settlement.Projection{}, err
	}
	projection := settlement.ProjectStatus(settlement.StatusInput{
		Total:          invoice.Total,
		Paid:           paid,
		DueDate:        invoice.DueDate,
		Previous:       invoice.Status,
		PreviousPaidAt: invoice.PaidAt,
		Now:            s.now(),
	})
	if err := s.invoiceRepo.WithTx(tx).UpdatePaymentStatus(ctx, invoice.ID, projection.Status, projection.PaidAt); err != nil {
		return settlement.Projection{}, fmt.Errorf("update invoice %s status: %w", invoice.ID, err)
	}
	return projection, nil
}

func (s *ReconciliationService) audit(ctx context.Context, tx *gorm.DB, scope Scope, action, reason string, txnID, invoiceID, paymentID uuid.UUID, details map[string]interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	entry := &models.MatchAuditLog{
		ID:             uuid.New(),
		OrganizationID: scope.OrganizationID,
		TransactionID:  txnID,
		InvoiceID:      invoiceID,
		PaymentID:      paymentID,
		Action:         action,
		PerformedBy:    scope.Actor,
		Reason:         reason,
		Details:        datatypes.JSON(detailsJSON),
		CreatedAt:      s.now(),
	}
	if err := s.auditRepo.WithTx(tx).Create(ctx, entry); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// AuditTrail returns the match/unmatch history of a transaction.
func (s *ReconciliationService) AuditTrail(ctx context.Context, scope Scope, txnID uuid.UUID) ([]models.MatchAuditLog, error) {
	if _, err := s.transactionRepo.GetByID(ctx, scope.OrganizationID, txnID); err != nil {
		return nil, notFound("transaction", txnID, err)
	}
	return s.auditRepo.ListByTransaction(ctx, scope.OrganizationID, txnID)
}

func notFound(what string, id uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}
