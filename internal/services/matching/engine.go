// Package matching ranks open invoices against an unmatched bank transaction.
package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
)

// Finder runs an ordered list of gated tiers and ranks what they find.
type Finder struct {
	steps      []Step
	maxResults int
}

type Option func(*Finder)

// WithMaxResults caps the ranked list. Values below 1 are ignored.
func WithMaxResults(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.maxResults = n
		}
	}
}

// WithSteps replaces the default tier pipeline.
func WithSteps(steps ...Step) Option {
	return func(f *Finder) {
		f.steps = steps
	}
}

// NewFinder builds the reference -> amount -> counterparty pipeline.
func NewFinder(invoices InvoiceSource, contacts ContactSource, balances Balances, tol Tolerance, opts ...Option) *Finder {
	f := &Finder{
		steps:      DefaultSteps(invoices, contacts, balances, tol),
		maxResults: DefaultMaxSuggestions,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DefaultSteps is the standard tiering policy: the reference tier runs when
// the transaction has a variable symbol, the amount tier only when nothing
// was found before it, and the counterparty tier whenever a counterparty name
// is present and there is still room in the list.
func DefaultSteps(invoices InvoiceSource, contacts ContactSource, balances Balances, tol Tolerance) []Step {
	return []Step{
		{Tier: &ReferenceTier{Invoices: invoices, Balances: balances, Tolerance: tol}, Gate: HasVariableSymbol},
		{Tier: &AmountTier{Invoices: invoices, Balances: balances, Tolerance: tol}, Gate: NothingFound},
		{Tier: &CounterpartyTier{Invoices: invoices, Contacts: contacts, Balances: balances}, Gate: HasCounterpartyAndRoom},
	}
}

// Suggest returns at most maxResults candidates, best first. Debit and
// zero-amount transactions never have candidates. An empty result is not an error.
func (f *Finder) Suggest(ctx context.Context, orgID uuid.UUID, txn *models.BankTransaction) ([]Candidate, error) {
	if !txn.IsCredit() {
		return []Candidate{}, nil
	}
	q := Query{OrganizationID: orgID, Transaction: txn, MaxResults: f.maxResults}

	found := []Candidate{}
	for _, step := range f.steps {
		if step.Gate != nil && !step.Gate(q, found) {
			continue
		}
		more, err := step.Tier.FindCandidates(ctx, q, found)
		if err != nil {
			return nil, fmt.Errorf("%s tier: %w", step.Tier.Name(), err)
		}
		found = append(found, more...)
	}

	// Stable: equal scores keep tier order, then fetch order within a tier.
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Score > found[j].Score
	})
	if len(found) > f.maxResults {
		found = found[:f.maxResults]
	}
	return found, nil
}
