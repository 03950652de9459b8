package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
)

const (
	TierReference    = "reference"
	TierAmount       = "amount"
	TierCounterparty = "counterparty"

	ScoreReferenceExact = 100
	ScoreReferenceOnly  = 80
	ScoreAmountExact    = 70
	ScoreAmountClose    = 50
	ScoreCounterparty   = 30
)

// ReferenceTier proposes payable invoices whose variable symbol equals the transaction's.
type ReferenceTier struct {
	Invoices  InvoiceSource
	Balances  Balances
	Tolerance Tolerance
}

func (t *ReferenceTier) Name() string { return TierReference }

func (t *ReferenceTier) FindCandidates(ctx context.Context, q Query, found []Candidate) ([]Candidate, error) {
	symbol := *q.Transaction.VariableSymbol
	invoices, err := t.Invoices.FindPayableByVariableSymbol(ctx, q.OrganizationID, symbol)
	if err != nil {
		return nil, fmt.Errorf("find invoices by variable symbol: %w", err)
	}
	remaining, err := t.Balances.RemainingFor(ctx, invoices)
	if err != nil {
		return nil, err
	}

	seen := seenInvoices(found)
	var out []Candidate
	for _, inv := range invoices {
		if seen[inv.ID] {
			continue
		}
		score := ScoreReferenceOnly
		if t.Tolerance.Within(q.Transaction.Amount, remaining[inv.ID]) {
			score = ScoreReferenceExact
		}
		out = append(out, Candidate{
			Invoice:   inv,
			Remaining: remaining[inv.ID],
			Score:     score,
			Reason:    "Variable symbol match: " + symbol,
			Tier:      TierReference,
		})
	}
	return out, nil
}

// AmountTier proposes same-currency payable invoices whose remaining amount
// equals or is within tolerance of the transaction amount.
type AmountTier struct {
	Invoices  InvoiceSource
	Balances  Balances
	Tolerance Tolerance
}

func (t *AmountTier) Name() string { return TierAmount }

func (t *AmountTier) FindCandidates(ctx context.Context, q Query, found []Candidate) ([]Candidate, error) {
	txn := q.Transaction
	invoices, err := t.Invoices.FindPayableByCurrency(ctx, q.OrganizationID, txn.Currency)
	if err != nil {
		return nil, fmt.Errorf("find invoices by currency: %w", err)
	}
	remaining, err := t.Balances.RemainingFor(ctx, invoices)
	if err != nil {
		return nil, err
	}

	seen := seenInvoices(found)
	var out []Candidate
	for _, inv := range invoices {
		if seen[inv.ID] {
			continue
		}
		rem := remaining[inv.ID]
		switch {
		case txn.Amount == rem:
			out = append(out, Candidate{
				Invoice:   inv,
				Remaining: rem,
				Score:     ScoreAmountExact,
				Reason:    "Exact amount match",
				Tier:      TierAmount,
			})
		case t.Tolerance.Within(txn.Amount, rem):
			out = append(out, Candidate{
				Invoice:   inv,
				Remaining: rem,
				Score:     ScoreAmountClose,
				Reason:    fmt.Sprintf("Amount close to remaining %s %s", FormatMinor(rem), inv.Currency),
				Tier:      TierAmount,
			})
		}
	}
	return out, nil
}

// CounterpartyTier proposes payable invoices of contacts whose name contains
// the first word of the transaction's counterparty name.
type CounterpartyTier struct {
	Invoices InvoiceSource
	Contacts ContactSource
	Balances Balances
}

func (t *CounterpartyTier) Name() string { return TierCounterparty }

func (t *CounterpartyTier) FindCandidates(ctx context.Context, q Query, found []Candidate) ([]Candidate, error) {
	word := counterpartyFirstWord(q.Transaction)
	contacts, err := t.Contacts.FindByNameFragment(ctx, q.OrganizationID, word)
	if err != nil {
		return nil, fmt.Errorf("find contacts by name: %w", err)
	}
	if len(contacts) == 0 {
		return nil, nil
	}

	names := make(map[uuid.UUID]string, len(contacts))
	ids := make([]uuid.UUID, 0, len(contacts))
	for _, c := range contacts {
		names[c.ID] = c.Name
		ids = append(ids, c.ID)
	}

	invoices, err := t.Invoices.FindPayableByContacts(ctx, q.OrganizationID, ids)
	if err != nil {
		return nil, fmt.Errorf("find invoices by contacts: %w", err)
	}

	seen := seenInvoices(found)
	var fresh []models.Invoice
	for _, inv := range invoices {
		if !seen[inv.ID] {
			fresh = append(fresh, inv)
		}
	}
	remaining, err := t.Balances.RemainingFor(ctx, fresh)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(fresh))
	for _, inv := range fresh {
		out = append(out, Candidate{
			Invoice:   inv,
			Remaining: remaining[inv.ID],
			Score:     ScoreCounterparty,
			Reason:    "Contact name match: " + names[*inv.ContactID],
			Tier:      TierCounterparty,
		})
	}
	return out, nil
}

func counterpartyFirstWord(txn *models.BankTransaction) string {
	if txn.CounterpartyName == nil {
		return ""
	}
	fields := strings.Fields(*txn.CounterpartyName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
