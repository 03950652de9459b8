package matching

import (
	"context"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
)

const DefaultMaxSuggestions = 5

// Candidate is one invoice proposed for a bank transaction.
type Candidate struct {
	Invoice   models.Invoice `json:"invoice"`
	Remaining int64          `json:"remaining"`
	Score     int            `json:"score"`
	Reason    string         `json:"reason"`
	Tier      string         `json:"tier"`
}

// Query is the input every tier receives.
type Query struct {
	OrganizationID uuid.UUID
	Transaction    *models.BankTransaction
	MaxResults     int
}

// Tier is one heuristic in the ranking pipeline. found holds the candidates
// of the tiers that already ran, in discovery order.
type Tier interface {
	Name() string
	FindCandidates(ctx context.Context, q Query, found []Candidate) ([]Candidate, error)
}

// Gate decides whether a tier runs given what earlier tiers produced.
type Gate func(q Query, found []Candidate) bool

// Step pairs a tier with the gate that enables it.
type Step struct {
	Tier Tier
	Gate Gate
}

// HasVariableSymbol enables a tier only for transactions carrying a reference.
func HasVariableSymbol(q Query, _ []Candidate) bool {
	return q.Transaction.VariableSymbol != nil && *q.Transaction.VariableSymbol != ""
}

// NothingFound enables a tier only while no earlier tier produced a candidate.
func NothingFound(_ Query, found []Candidate) bool {
	return len(found) == 0
}

// HasCounterpartyAndRoom enables a tier when the transaction names a
// counterparty and fewer than MaxResults candidates exist.
func HasCounterpartyAndRoom(q Query, found []Candidate) bool {
	return counterpartyFirstWord(q.Transaction) != "" && len(found) < q.MaxResults
}

// InvoiceSource is the invoice read access the tiers need.
type InvoiceSource interface {
	FindPayableByVariableSymbol(ctx context.Context, orgID uuid.UUID, symbol string) ([]models.Invoice, error)
	FindPayableByCurrency(ctx context.Context, orgID uuid.UUID, currency string) ([]models.Invoice, error)
	FindPayableByContacts(ctx context.Context, orgID uuid.UUID, contactIDs []uuid.UUID) ([]models.Invoice, error)
}

type ContactSource interface {
	FindByNameFragment(ctx context.Context, orgID uuid.UUID, fragment string) ([]models.Contact, error)
}

// Balances returns RemainingAmount keyed by invoice id.
type Balances interface {
	RemainingFor(ctx context.Context, invoices []models.Invoice) (map[uuid.UUID]int64, error)
}

func seenInvoices(found []Candidate) map[uuid.UUID]bool {
	seen := make(map[uuid.UUID]bool, len(found))
	for _, c := range found {
		seen[c.Invoice.ID] = true
	}
	return seen
}
