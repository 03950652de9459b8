package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/metrics"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/repository"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/services/settlement"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AutoMatchResult struct {
	RunID        uuid.UUID `json:"run_id"`
	MatchedCount int       `json:"matched_count"`
	SkippedCount int       `json:"skipped_count"`
	FailedCount  int       `json:"failed_count"`
	Status       string    `json:"status"`
}

// AutoMatchTransactions matches every unmatched credit transaction carrying a
// variable symbol to the payable invoice with the same symbol, when the
// amount is within tolerance of the invoice's remaining amount. Transactions
// are processed sequentially and independently: a skip or failure on one
// never stops the rest. A cancelled ctx stops the loop between transactions.
func (s *ReconciliationService) AutoMatchTransactions(ctx context.Context, scope Scope, accountID *uuid.UUID) (*AutoMatchResult, error) {
	started := s.now()
	run := &models.AutoMatchRun{
		ID:             uuid.New(),
		OrganizationID: scope.OrganizationID,
		BankAccountID:  accountID,
		Status:         models.RunStatusProcessing,
		StartedAt:      started,
		CreatedAt:      started,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create auto-match run: %w", err)
	}

	txns, err := s.transactionRepo.ListAutoMatchCandidates(ctx, scope.OrganizationID, accountID)
	if err != nil {
		if ferr := s.runRepo.Finish(context.WithoutCancel(ctx), run, models.RunStatusFailed, s.now()); ferr != nil {
			s.logger.Printf("auto-match run %s: finish: %v", run.ID, ferr)
		}
		return nil, fmt.Errorf("list auto-match candidates: %w", err)
	}
	run.CandidateCount = len(txns)

	status := models.RunStatusCompleted
	for i := range txns {
		if ctx.Err() != nil {
			s.logger.Printf("auto-match run %s cancelled after %d of %d transactions", run.ID, i, len(txns))
			status = models.RunStatusCancelled
			break
		}

		outcome, err := s.autoMatchOne(ctx, scope, txns[i].ID)
		metrics.RecordAutoMatchOutcome(outcome)
		switch outcome {
		case metrics.OutcomeMatched:
			run.MatchedCount++
			metrics.RecordMatch(metrics.SourceAuto)
		case metrics.OutcomeFailed:
			run.FailedCount++
			s.logger.Printf("auto-match run %s: transaction %s failed: %v", run.ID, txns[i].ID, err)
		default:
			run.SkippedCount++
			s.logger.Printf("auto-match run %s: transaction %s skipped: %s", run.ID, txns[i].ID, outcome)
		}
	}

	// The run record is finalised even when the caller's context is gone.
	if err := s.runRepo.Finish(context.WithoutCancel(ctx), run, status, s.now()); err != nil {
		s.logger.Printf("auto-match run %s: finish: %v", run.ID, err)
	}

	return &AutoMatchResult{
		RunID:        run.ID,
		MatchedCount: run.MatchedCount,
		SkippedCount: run.SkippedCount,
		FailedCount:  run.FailedCount,
		Status:       status,
	}, nil
}

// autoMatchOne runs one transaction's lookup, tolerance check and match
// effect in its own database transaction.
func (s *ReconciliationService) autoMatchOne(ctx context.Context, scope Scope, txnID uuid.UUID) (string, error) {
	outcome := metrics.OutcomeMatched
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.transactionRepo.WithTx(tx).GetByID(ctx, scope.OrganizationID, txnID)
		if err != nil {
			return notFound("transaction", txnID, err)
		}
		if txn.IsMatched() {
			outcome = metrics.OutcomeAlreadyMatched
			return nil
		}
		if txn.VariableSymbol == nil || *txn.VariableSymbol == "" || !txn.IsCredit() {
			outcome = metrics.OutcomeNoInvoice
			return nil
		}
		symbol := *txn.VariableSymbol

		invoices := s.invoiceRepo.WithTx(tx)
		found, err := invoices.FirstPayableByVariableSymbol(ctx, scope.OrganizationID, symbol)
		if errors.Is(err, repository.ErrNotFound) {
			outcome = metrics.OutcomeNoInvoice
			return nil
		}
		if err != nil {
			return fmt.Errorf("find invoice by variable symbol %s: %w", symbol, err)
		}

		// Balance and status are read under the row lock so a match committed
		// after the lookup is seen by the tolerance check.
		invoice, err := invoices.GetByIDForUpdate(ctx, scope.OrganizationID, found.ID)
		if err != nil {
			return notFound("invoice", found.ID, err)
		}
		if !invoice.Status.Payable() {
			outcome = metrics.OutcomeNoInvoice
			return nil
		}

		remaining, err := settlement.NewBalanceCalculator(s.paymentRepo.WithTx(tx)).Remaining(ctx, invoice)
		if err != nil {
			return err
		}
		if !s.tolerance.Within(txn.Amount, remaining) {
			outcome = metrics.OutcomeOutOfTolerance
			return nil
		}

		_, err = s.applyMatch(ctx, tx, scope, txn, invoice.ID, models.AuditActionAutoMatch, "Variable symbol match: "+symbol)
		return err
	})
	switch {
	case errors.Is(err, ErrAlreadyMatched):
		return metrics.OutcomeAlreadyMatched, nil
	case err != nil:
		return metrics.OutcomeFailed, err
	}
	return outcome, nil
}

// GetRun returns a recorded auto-match run.
func (s *ReconciliationService) GetRun(ctx context.Context, scope Scope, runID uuid.UUID) (*models.AutoMatchRun, error) {
	run, err := s.runRepo.GetByID(ctx, scope.OrganizationID, runID)
	if err != nil {
		return nil, notFound("auto-match run", runID, err)
	}
	return run, nil
}
