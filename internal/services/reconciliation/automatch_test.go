package reconciliation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/metrics"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAutoMatchTransactions(t *testing.T) {
	svc, f, scope := newService(t)
	ctx := context.Background()

	exact := f.Invoice(vs("1001"))
	nearly := f.Invoice(vs("1002"))
	far := f.Invoice(vs("1003"))
	f.Invoice(vs("1004"), status(models.InvoiceStatusDraft))

	matchedExact := f.Transaction(txVS("1001"))
	matchedClose := f.Transaction(txVS("1002"), amount(99500))
	outOfTolerance := f.Transaction(txVS("1003"), amount(50000))
	noInvoice := f.Transaction(txVS("9999"))
	draftOnly := f.Transaction(txVS("1004"))
	f.Transaction()

	res, err := svc.AutoMatchTransactions(ctx, scope, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.MatchedCount)
	assert.Equal(t, 3, res.SkippedCount)
	assert.Zero(t, res.FailedCount)
	assert.Equal(t, models.RunStatusCompleted, res.Status)

	assert.NotNil(t, testutil.Reload[models.BankTransaction](t, f.DB, matchedExact.ID).MatchedPaymentID)
	assert.NotNil(t, testutil.Reload[models.BankTransaction](t, f.DB, matchedClose.ID).MatchedPaymentID)
	for _, id := range []uuid.UUID{outOfTolerance.ID, noInvoice.ID, draftOnly.ID} {
		assert.Nil(t, testutil.Reload[models.BankTransaction](t, f.DB, id).MatchedPaymentID)
	}

	assert.Equal(t, models.InvoiceStatusPaid, testutil.Reload[models.Invoice](t, f.DB, exact.ID).Status)
	// 995.00 of 1000.00 leaves the invoice partially paid
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, testutil.Reload[models.Invoice](t, f.DB, nearly.ID).Status)
	assert.Equal(t, models.InvoiceStatusSent, testutil.Reload[models.Invoice](t, f.DB, far.ID).Status)

	trail, err := svc.AuditTrail(ctx, scope, matchedExact.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, models.AuditActionAutoMatch, trail[0].Action)
	assert.Equal(t, "Variable symbol match: 1001", trail[0].Reason)

	run, err := svc.GetRun(ctx, scope, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 5, run.CandidateCount)
	assert.Equal(t, 2, run.MatchedCount)
	assert.Equal(t, 3, run.SkippedCount)
	require.NotNil(t, run.CompletedAt)

	again, err := svc.AutoMatchTransactions(ctx, scope, nil)
	require.NoError(t, err)
	assert.Zero(t, again.MatchedCount)
	assert.Equal(t, 3, again.SkippedCount)
}

func TestAutoMatchPicksEarliestDueInvoice(t *testing.T) {
	svc, f, scope := newService(t)
	later := f.Invoice(vs("55"), func(inv *models.Invoice) { inv.DueDate = testutil.Now.AddDate(0, 1, 0) })
	sooner := f.Invoice(vs("55"), func(inv *models.Invoice) { inv.DueDate = testutil.Now.AddDate(0, 0, 3) })
	f.Transaction(txVS("55"))

	res, err := svc.AutoMatchTransactions(context.Background(), scope, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchedCount)
	assert.Equal(t, int64(1), testutil.CountPayments(t, f.DB, sooner.ID))
	assert.Zero(t, testutil.CountPayments(t, f.DB, later.ID))
}

func TestAutoMatchFiltersByAccount(t *testing.T) {
	svc, f, scope := newService(t)
	f.Invoice(vs("77"))
	txn := f.Transaction(txVS("77"))
	otherAccount := uuid.New()

	res, err := svc.AutoMatchTransactions(context.Background(), scope, &otherAccount)
	require.NoError(t, err)
	assert.Zero(t, res.MatchedCount+res.SkippedCount+res.FailedCount)
	assert.Nil(t, testutil.Reload[models.BankTransaction](t, f.DB, txn.ID).MatchedPaymentID)

	res, err = svc.AutoMatchTransactions(context.Background(), scope, &f.AccountID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchedCount)
}

func TestAutoMatchContinuesAfterFailure(t *testing.T) {
	svc, f, scope := newService(t)
	ctx := context.Background()

	require.NoError(t, f.DB.Callback().Create().Before("gorm:create").Register("test:fail_payment", func(db *gorm.DB) {
		if p, ok := db.Statement.Dest.(*models.Payment); ok && p.Amount == 66600 {
			_ = db.AddError(errors.New("injected write failure"))
		}
	}))

	broken := f.Invoice(vs("2001"), total(66600))
	fine := f.Invoice(vs("2002"))
	brokenTxn := f.Transaction(txVS("2001"), amount(66600), func(txn *models.BankTransaction) {
		txn.Date = testutil.Now.AddDate(0, 0, -5)
	})
	fineTxn := f.Transaction(txVS("2002"))

	res, err := svc.AutoMatchTransactions(ctx, scope, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedCount)
	assert.Equal(t, 1, res.MatchedCount)
	assert.Equal(t, models.RunStatusCompleted, res.Status)

	assert.Nil(t, testutil.Reload[models.BankTransaction](t, f.DB, brokenTxn.ID).MatchedPaymentID)
	assert.Zero(t, testutil.CountPayments(t, f.DB, broken.ID))
	assert.Equal(t, models.InvoiceStatusSent, testutil.Reload[models.Invoice](t, f.DB, broken.ID).Status)

	assert.NotNil(t, testutil.Reload[models.BankTransaction](t, f.DB, fineTxn.ID).MatchedPaymentID)
	assert.Equal(t, models.InvoiceStatusPaid, testutil.Reload[models.Invoice](t, f.DB, fine.ID).Status)

	run, err := svc.GetRun(ctx, scope, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.FailedCount)
}

func TestAutoMatchSkipsTransactionMatchedSinceListing(t *testing.T) {
	svc, f, scope := newService(t)
	ctx := context.Background()
	inv := f.Invoice(vs("3001"))
	other := f.Invoice()
	txn := f.Transaction(txVS("3001"))

	_, err := svc.MatchTransaction(ctx, scope, txn.ID, other.ID)
	require.NoError(t, err)

	outcome, err := svc.autoMatchOne(ctx, scope, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeAlreadyMatched, outcome)
	assert.Zero(t, testutil.CountPayments(t, f.DB, inv.ID))
}

func TestGetRunOtherOrganization(t *testing.T) {
	svc, _, scope := newService(t)
	res, err := svc.AutoMatchTransactions(context.Background(), scope, nil)
	require.NoError(t, err)

	_, err = svc.GetRun(context.Background(), Scope{OrganizationID: uuid.New()}, res.RunID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// onFirstInvoiceLookup runs write inside the caller's database transaction
// right after the first invoice select, standing in for a match that commits
// between the variable symbol lookup and the row lock.
func onFirstInvoiceLookup(t *testing.T, db *gorm.DB, write func(tx *gorm.DB) error) {
	t.Helper()
	var once sync.Once
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:interleave", func(tx *gorm.DB) {
		if tx.Statement.Table != "invoices" || tx.Error != nil {
			return
		}
		once.Do(func() {
			if err := write(tx.Session(&gorm.Session{NewDB: true})); err != nil {
				_ = tx.AddError(err)
			}
		})
	}))
}

func TestAutoMatchRechecksInvoiceUnderLock(t *testing.T) {
	t.Run("balance changed", func(t *testing.T) {
		svc, f, scope := newService(t)
		inv := f.Invoice(vs("4001"))
		txn := f.Transaction(txVS("4001"))
		onFirstInvoiceLookup(t, f.DB, func(tx *gorm.DB) error {
			return tx.Create(&models.Payment{
				ID: uuid.New(), InvoiceID: inv.ID, Amount: 100000, Currency: "CZK",
				PaidAt: testutil.Now, Method: models.PaymentMethodBankTransfer, CreatedAt: testutil.Now,
			}).Error
		})

		res, err := svc.AutoMatchTransactions(context.Background(), scope, nil)
		require.NoError(t, err)
		assert.Zero(t, res.MatchedCount)
		assert.Equal(t, 1, res.SkippedCount)
		assert.Zero(t, res.FailedCount)
		assert.Equal(t, int64(1), testutil.CountPayments(t, f.DB, inv.ID))
		assert.Nil(t, testutil.Reload[models.BankTransaction](t, f.DB, txn.ID).MatchedPaymentID)
	})

	t.Run("invoice no longer payable", func(t *testing.T) {
		svc, f, scope := newService(t)
		inv := f.Invoice(vs("4002"))
		f.Transaction(txVS("4002"))
		onFirstInvoiceLookup(t, f.DB, func(tx *gorm.DB) error {
			return tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).
				Update("status", models.InvoiceStatusCancelled).Error
		})

		res, err := svc.AutoMatchTransactions(context.Background(), scope, nil)
		require.NoError(t, err)
		assert.Zero(t, res.MatchedCount)
		assert.Equal(t, 1, res.SkippedCount)
		assert.Zero(t, res.FailedCount)
		assert.Zero(t, testutil.CountPayments(t, f.DB, inv.ID))
	})
}

func TestAutoMatchFinishesRunWhenListingFails(t *testing.T) {
	svc, f, scope := newService(t)
	f.Transaction(txVS("5001"))
	require.NoError(t, f.DB.Callback().Query().Before("gorm:query").Register("test:fail_listing", func(tx *gorm.DB) {
		if tx.Statement.Table == "bank_transactions" {
			_ = tx.AddError(errors.New("listing unavailable"))
		}
	}))

	res, err := svc.AutoMatchTransactions(context.Background(), scope, nil)
	require.Error(t, err)
	assert.Nil(t, res)

	var runs []models.AutoMatchRun
	require.NoError(t, f.DB.Where("organization_id = ?", f.OrgID).Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
	assert.NotNil(t, runs[0].CompletedAt)
}
