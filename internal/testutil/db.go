// Package testutil provides an in-memory gorm store and fixtures for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Now is the fixed clock used by fixtures and services under test.
var Now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func Clock() time.Time { return Now }

// NewDB opens a private in-memory SQLite database with every model migrated.
// The pool is limited to one connection so database transactions serialize.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func Ptr[T any](v T) *T { return &v }

// Fixture creates rows for one organization and bank account.
type Fixture struct {
	t         testing.TB
	DB        *gorm.DB
	OrgID     uuid.UUID
	AccountID uuid.UUID
	seq       int
}

func NewFixture(t testing.TB) *Fixture {
	return &Fixture{
		t:         t,
		DB:        NewDB(t),
		OrgID:     uuid.New(),
		AccountID: uuid.New(),
	}
}

// ForOrg returns a fixture writing to the same database for another organization.
func (f *Fixture) ForOrg(orgID uuid.UUID) *Fixture {
	return &Fixture{t: f.t, DB: f.DB, OrgID: orgID, AccountID: uuid.New()}
}

func (f *Fixture) next() int {
	f.seq++
	return f.seq
}

// Invoice creates a SENT CZK invoice of 100000 due after Now, then applies opts.
func (f *Fixture) Invoice(opts ...func(*models.Invoice)) *models.Invoice {
	f.t.Helper()
	n := f.next()
	inv := &models.Invoice{
		ID:             uuid.New(),
		OrganizationID: f.OrgID,
		Number:         fmt.Sprintf("INV-%04d", n),
		Currency:       "CZK",
		Total:          100000,
		DueDate:        Now.AddDate(0, 0, 14),
		Status:         models.InvoiceStatusSent,
		CreatedAt:      Now,
	}
	for _, opt := range opts {
		opt(inv)
	}
	require.NoError(f.t, f.DB.Create(inv).Error)
	return inv
}

// Transaction creates an unmatched CZK credit of 100000, then applies opts.
func (f *Fixture) Transaction(opts ...func(*models.BankTransaction)) *models.BankTransaction {
	f.t.Helper()
	n := f.next()
	txn := &models.BankTransaction{
		ID:             uuid.New(),
		OrganizationID: f.OrgID,
		BankAccountID:  f.AccountID,
		ExternalID:     fmt.Sprintf("EXT-%04d", n),
		Date:           Now.AddDate(0, 0, -1),
		Amount:         100000,
		Currency:       "CZK",
		CreatedAt:      Now,
	}
	for _, opt := range opts {
		opt(txn)
	}
	require.NoError(f.t, f.DB.Create(txn).Error)
	return txn
}

func (f *Fixture) Contact(name string) *models.Contact {
	f.t.Helper()
	c := &models.Contact{ID: uuid.New(), OrganizationID: f.OrgID, Name: name, CreatedAt: Now}
	require.NoError(f.t, f.DB.Create(c).Error)
	return c
}

// Payment records a payment outside the reconciliation service, as the
// "mark paid" collaborator would.
func (f *Fixture) Payment(invoiceID uuid.UUID, amount int64) *models.Payment {
	f.t.Helper()
	p := &models.Payment{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Amount:    amount,
		Currency:  "CZK",
		PaidAt:    Now,
		Method:    "CASH",
		CreatedAt: Now,
	}
	require.NoError(f.t, f.DB.Create(p).Error)
	return p
}

// Reload reads the current state of a row by primary key.
func Reload[T any](t testing.TB, db *gorm.DB, id uuid.UUID) *T {
	t.Helper()
	var out T
	require.NoError(t, db.First(&out, "id = ?", id).Error)
	return &out
}

func CountPayments(t testing.TB, db *gorm.DB, invoiceID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Payment{}).Where("invoice_id = ?", invoiceID).Count(&n).Error)
	return n
}
